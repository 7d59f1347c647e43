package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"mesa-system/config"
	"mesa-system/internal/auth"
	"mesa-system/internal/billing"
	"mesa-system/internal/database"
	"mesa-system/internal/idempotency"
	"mesa-system/internal/inventory"
	"mesa-system/internal/notify"
	"mesa-system/internal/orders"
	"mesa-system/internal/printer"
	"mesa-system/internal/server/middleware"
	"mesa-system/internal/tables"
	"mesa-system/internal/telemetry"
	"mesa-system/internal/tenant"
	"mesa-system/internal/tickets"
)

func main() {
	cfg := config.LoadConfig()

	auth.SetSecret(cfg.Auth.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.InitTracer(ctx, cfg.Tracing.OTLPEndpoint, cfg.Tracing.ServiceName)
	if err != nil {
		log.Fatalf("Failed to init tracer: %v", err)
	}
	if tp != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.Printf("tracer shutdown: %v", err)
			}
		}()
	}

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	rdb := config.NewRedisClient(cfg.Redis)

	var ledger idempotency.Ledger
	if cfg.Billing.RedisLedger {
		ledger = idempotency.NewRedisLedger(rdb)
	} else {
		mem := idempotency.NewMemoryLedger()
		mem.StartSweeper(ctx, time.Hour)
		ledger = mem
	}

	resolver := tenant.NewResolver(tenant.NewGormLookup(db))
	notifier := notify.NewPublisher(rdb)
	deductor := inventory.NewDeductor(db)
	printClient := printer.NewHTTPClient(cfg.Printer.BaseURL, cfg.Printer.PrinterID, cfg.Printer.Timeout)

	tableHandler := tables.NewHandler(db, rdb, resolver)
	orderHandler := orders.NewHandler(db, rdb, resolver, deductor, notifier)
	ticketHandler := tickets.NewHandler(db, resolver, printClient, deductor, notifier)
	billingHandler := billing.NewHandler(db, rdb, resolver, ledger, notifier, cfg.Billing.WebhookSecret)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit())
	r.Use(middleware.CorrelationID())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Gateway callbacks authenticate via HMAC signature, not JWT.
	r.POST("/webhooks/payment", billingHandler.GatewayWebhook)

	api := r.Group("/api/v1")
	api.Use(middleware.JWTAuth())
	api.Use(middleware.Idempotency(ledger))
	{
		t := api.Group("/tables")
		{
			t.POST("", tableHandler.CreateTable)
			t.GET("", tableHandler.ListTables)
			t.PATCH("/:id/status", tableHandler.SetStatus)
			t.POST("/:id/clean", tableHandler.CompleteCleaning)
			t.POST("/:id/transfer", tableHandler.TransferTable)
			t.DELETE("/:id", tableHandler.DeleteTable)
		}

		o := api.Group("/orders")
		{
			o.POST("", orderHandler.CreateOrder)
			o.GET("", orderHandler.ListOrders)
			o.GET("/:id", orderHandler.GetOrder)
			o.PATCH("/:id/status", orderHandler.UpdateStatus)
			o.POST("/:id/confirm", orderHandler.ConfirmOrder)
			o.POST("/:id/cancel", orderHandler.CancelOrder)
			o.POST("/:id/items", orderHandler.AddItems)
		}

		k := api.Group("/tickets")
		{
			k.POST("", ticketHandler.CreateTicket)
			k.GET("", ticketHandler.ListTickets)
			k.GET("/:id", ticketHandler.GetTicket)
			k.PATCH("/:id/status", ticketHandler.UpdateStatus)
			k.POST("/:id/print", ticketHandler.PrintTicket)
		}

		b := api.Group("/bills")
		{
			b.POST("", billingHandler.CreateBill)
			b.GET("", billingHandler.ListBills)
			b.GET("/:id", billingHandler.GetBill)
			b.POST("/:id/pay", billingHandler.ProcessPayment)
			b.POST("/:id/refund", billingHandler.ProcessRefund)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
