package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	Redis   RedisConfig
	DB      DBConfig
	Auth    AuthConfig
	Printer PrinterConfig
	Billing BillingConfig
	Tracing TracingConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type AuthConfig struct {
	JWTSecret string
}

type PrinterConfig struct {
	BaseURL   string
	PrinterID string
	Timeout   time.Duration
}

type BillingConfig struct {
	WebhookSecret string
	// RedisLedger switches idempotency storage from in-process memory to
	// Redis, required when running more than one instance.
	RedisLedger bool
}

type TracingConfig struct {
	// OTLPEndpoint empty disables tracing entirely.
	OTLPEndpoint string
	ServiceName  string
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	printerTimeout, _ := strconv.Atoi(getEnv("PRINTER_TIMEOUT_SECONDS", "5"))

	return Config{
		Port: getEnv("PORT", "8080"),
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "mesa"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		},
		Printer: PrinterConfig{
			BaseURL:   getEnv("PRINTER_URL", "http://localhost:9100"),
			PrinterID: getEnv("PRINTER_ID", "kitchen-1"),
			Timeout:   time.Duration(printerTimeout) * time.Second,
		},
		Billing: BillingConfig{
			WebhookSecret: getEnv("GATEWAY_WEBHOOK_SECRET", ""),
			RedisLedger:   getEnv("IDEMPOTENCY_BACKEND", "memory") == "redis",
		},
		Tracing: TracingConfig{
			OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "mesa-system"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
