package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mesa-system/internal/apperr"
	"mesa-system/internal/database/models"
	"mesa-system/internal/notify"
	"mesa-system/internal/orders"
	"mesa-system/internal/server"
)

const signatureHeader = "X-Gateway-Signature"

type webhookPayload struct {
	PaymentID    string  `json:"payment_id" binding:"required"`
	Status       string  `json:"status" binding:"required"`
	GatewayTxnID *string `json:"gateway_txn_id,omitempty"`
}

// reopenOrder undoes the settlement's order completion after a failed
// gateway callback. Guarded on completed so an order that has moved on for
// any other reason is left alone.
func reopenOrder(tx *gorm.DB, orderID int64) *gorm.DB {
	return tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, orders.StatusCompleted).
		Update("status", orders.StatusServed)
}

// VerifySignature checks an HMAC-SHA256 hex signature over the raw body.
func VerifySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// GatewayWebhook receives asynchronous settlement callbacks for card/upi/
// wallet payments. The route is unauthenticated; the signature over the raw
// body is the only trust anchor, so it is checked before the payload is
// parsed.
func (h *Handler) GatewayWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		server.Fail(c, apperr.ValidationFailed("unreadable body"))
		return
	}

	if h.webhookSecret == "" || !VerifySignature(h.webhookSecret, body, c.GetHeader(signatureHeader)) {
		server.Fail(c, apperr.Forbidden("invalid webhook signature"))
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		server.Fail(c, apperr.ValidationFailed("malformed webhook payload"))
		return
	}
	switch payload.Status {
	case PaymentCompleted, PaymentFailed:
	default:
		server.Fail(c, apperr.ValidationFailed("unsupported webhook status"))
		return
	}

	ctx := c.Request.Context()

	var payment models.Payment
	err = h.db.WithContext(ctx).
		Where("payment_id = ?", payload.PaymentID).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		server.Fail(c, apperr.NotFound("payment not found"))
		return
	}
	if err != nil {
		server.Fail(c, apperr.Unavailable("failed to load payment", err))
		return
	}

	// Callbacks can arrive twice; a settled payment is left alone.
	if payment.Status != PaymentProcessing {
		server.OK(c, "Payment already settled", payment)
		return
	}

	updates := map[string]interface{}{"status": payload.Status}
	if payload.GatewayTxnID != nil {
		updates["gateway_txn_id"] = *payload.GatewayTxnID
	}
	if err := h.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Updates(updates).Error; err != nil {
		server.Fail(c, apperr.Unavailable("failed to update payment", err))
		return
	}
	payment.Status = payload.Status
	payment.GatewayTxnID = payload.GatewayTxnID

	if payload.Status == PaymentFailed {
		// Reopen the bill so the cashier can retry with another mode, and
		// return the order to served so the retry passes the billing gate.
		err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Bill{}).
				Where("id = ?", payment.BillID).
				Updates(map[string]interface{}{
					"paid":           false,
					"payment_method": nil,
					"paid_at":        nil,
					"transaction_id": nil,
				}).Error; err != nil {
				return err
			}
			return reopenOrder(tx, payment.OrderID).Error
		})
		if err != nil {
			server.Fail(c, apperr.Unavailable("failed to reopen bill", err))
			return
		}
	}

	h.notifier.Publish(ctx, notify.EventBillPaid, payment.TenantID, gin.H{
		"payment_id": payment.PaymentID,
		"status":     payment.Status,
	})

	server.OK(c, "Webhook processed", payment)
}
