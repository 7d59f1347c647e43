package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"mesa-system/internal/auth"
	"mesa-system/internal/tenant"
)

const principalKey = "principal"

// JWTAuth extracts an already-authenticated principal from the bearer token.
// Credential issuance and verification beyond the signature live in the
// external identity service.
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "missing bearer token",
			})
			return
		}

		claims, err := auth.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "invalid token",
			})
			return
		}

		p := auth.PrincipalFromClaims(claims)
		if !p.Role.Known() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "unknown role",
			})
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

// RequestContextFrom collects the explicit tenant scope a trusted caller may
// carry in the header or query string.
func RequestContextFrom(c *gin.Context) tenant.RequestContext {
	raw := c.GetHeader("X-Tenant-ID")
	if raw == "" {
		raw = c.Query("tenant_id")
	}
	if raw == "" {
		return tenant.RequestContext{}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return tenant.RequestContext{}
	}
	return tenant.RequestContext{ExplicitTenantID: id}
}
