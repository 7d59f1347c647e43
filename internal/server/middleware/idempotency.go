package middleware

import (
	"bytes"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"mesa-system/internal/idempotency"
)

const idempotencyHeader = "Idempotency-Key"

type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

// Idempotency replays the cached response for a repeated Idempotency-Key on
// mutating routes. Only successful responses are cached; the payment
// pipeline additionally checks the ledger explicitly before its transaction.
func Idempotency(ledger idempotency.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if key == "" || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		cached, ok, err := ledger.Check(c.Request.Context(), key)
		if err != nil {
			log.Printf("idempotency check failed: %v", err)
		} else if ok {
			c.Data(http.StatusOK, "application/json", cached)
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		if c.Writer.Status() >= 200 && c.Writer.Status() < 300 {
			if err := ledger.Store(c.Request.Context(), key, rec.buf.Bytes()); err != nil {
				log.Printf("idempotency store failed: %v", err)
			}
		}
	}
}
