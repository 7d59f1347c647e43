package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var jwtSecret = []byte("change-me-in-env")

// SetSecret overrides the signing secret at startup.
func SetSecret(secret string) {
	if secret != "" {
		jwtSecret = []byte(secret)
	}
}

// Claims carried by an already-authenticated principal. Token issuance
// belongs to the external identity service; GenerateToken exists for tests
// and local development.
type Claims struct {
	UserId   int64  `json:"user_id"`
	Role     string `json:"role"`
	TenantId int64  `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

func GenerateToken(userID int64, role Role, tenantID int64, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	claims := &Claims{
		UserId:   userID,
		Role:     string(role),
		TenantId: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   strconv.FormatInt(userID, 10),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(jwtSecret)
	return s, exp, err
}

func ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// PrincipalFromClaims normalizes token claims into the workflow's principal.
func PrincipalFromClaims(claims *Claims) Principal {
	return Principal{
		UserID:   claims.UserId,
		Role:     Role(claims.Role),
		TenantID: claims.TenantId,
	}
}
