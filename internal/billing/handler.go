package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"mesa-system/internal/apperr"
	"mesa-system/internal/auth"
	"mesa-system/internal/database"
	"mesa-system/internal/database/models"
	"mesa-system/internal/idempotency"
	"mesa-system/internal/notify"
	"mesa-system/internal/orders"
	"mesa-system/internal/server"
	"mesa-system/internal/server/middleware"
	"mesa-system/internal/sideeffect"
	"mesa-system/internal/tables"
	"mesa-system/internal/tenant"
)

const (
	ModeCash   = "cash"
	ModeCard   = "card"
	ModeUPI    = "upi"
	ModeWallet = "wallet"
)

const (
	PaymentCompleted  = "completed"
	PaymentProcessing = "processing"
	PaymentFailed     = "failed"
	PaymentRefunded   = "refunded"
)

func ValidMode(mode string) bool {
	switch mode {
	case ModeCash, ModeCard, ModeUPI, ModeWallet:
		return true
	}
	return false
}

type Handler struct {
	db            *gorm.DB
	rdb           *redis.Client
	resolver      *tenant.Resolver
	ledger        idempotency.Ledger
	notifier      *notify.Publisher
	webhookSecret string
}

func NewHandler(db *gorm.DB, rdb *redis.Client, resolver *tenant.Resolver, ledger idempotency.Ledger, notifier *notify.Publisher, webhookSecret string) *Handler {
	return &Handler{db: db, rdb: rdb, resolver: resolver, ledger: ledger, notifier: notifier, webhookSecret: webhookSecret}
}

type createBillRequest struct {
	OrderID int64 `json:"order_id" binding:"required"`
}

type processPaymentRequest struct {
	Mode         string  `json:"mode" binding:"required"`
	Gateway      *string `json:"gateway,omitempty"`
	GatewayTxnID *string `json:"gateway_txn_id,omitempty"`
}

type refundRequest struct {
	Amount string `json:"amount" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// CreateBill snapshots the served order's totals into a bill. One bill per
// order: a repeat call returns the existing bill instead of erroring, and an
// Idempotency-Key replays the earlier creation even across retries that
// raced each other.
func (h *Handler) CreateBill(c *gin.Context) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		server.Fail(c, apperr.Forbidden("no principal"))
		return
	}
	if !auth.CanPerform(p.Role, auth.CapBillCreate) {
		server.Fail(c, apperr.Forbidden("role may not create bills"))
		return
	}

	var req createBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, apperr.ValidationFailed(err.Error()))
		return
	}

	ctx := c.Request.Context()
	tenantID, err := h.resolver.Resolve(ctx, p, middleware.RequestContextFrom(c))
	if err != nil {
		server.Fail(c, apperr.Unavailable("tenant resolution failed", err))
		return
	}

	var order models.Order
	err = h.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", req.OrderID, tenantID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		server.Fail(c, apperr.NotFound("order not found"))
		return
	}
	if err != nil {
		server.Fail(c, apperr.Unavailable("failed to load order", err))
		return
	}
	if !billable(order.Status) {
		server.Fail(c, apperr.InvalidTransition("order must be served before billing"))
		return
	}

	key := c.GetHeader("Idempotency-Key")

	var existing models.Bill
	err = h.db.WithContext(ctx).Where("order_id = ?", order.ID).First(&existing).Error
	if err == nil {
		server.OK(c, "Bill already exists for order", existing)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		server.Fail(c, apperr.Unavailable("failed to check existing bill", err))
		return
	}
	if key != "" {
		err = h.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&existing).Error
		if err == nil {
			server.OK(c, "Bill already exists for key", existing)
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			server.Fail(c, apperr.Unavailable("failed to check existing bill", err))
			return
		}
	}

	var bill models.Bill
	for attempt := 0; ; attempt++ {
		var count int64
		if err := h.db.WithContext(ctx).Model(&models.Bill{}).
			Where("tenant_id = ?", tenantID).
			Count(&count).Error; err != nil {
			server.Fail(c, apperr.Unavailable("failed to allocate bill number", err))
			return
		}

		bill = models.Bill{
			BillNumber:     fmt.Sprintf("BILL-%d-%05d", tenantID, count+1),
			OrderID:        order.ID,
			Subtotal:       order.Subtotal,
			DiscountAmount: order.DiscountAmount,
			TaxAmount:      order.TaxAmount,
			TotalAmount:    order.TotalAmount,
			CashierID:      p.UserID,
			TenantID:       tenantID,
		}
		if key != "" {
			bill.IdempotencyKey = &key
		}

		err := h.db.WithContext(ctx).Create(&bill).Error
		if err == nil {
			break
		}
		if database.IsDuplicateKey(err) {
			// A racing duplicate request may have created the bill between
			// our lookup and the insert; hand back its row.
			var winner models.Bill
			if h.db.WithContext(ctx).Where("order_id = ?", order.ID).First(&winner).Error == nil {
				server.OK(c, "Bill already exists for order", winner)
				return
			}
			// Otherwise the sequential number collided; recount and retry.
			if attempt < 2 {
				continue
			}
		}
		server.Fail(c, apperr.Unavailable("failed to create bill", err))
		return
	}

	h.notifier.Publish(ctx, notify.EventBillCreated, tenantID, gin.H{
		"bill_id":     bill.ID,
		"bill_number": bill.BillNumber,
		"order_id":    order.ID,
		"total":       bill.TotalAmount,
	})

	server.Created(c, "Bill created successfully", bill)
}

// ProcessPayment settles a bill atomically: payment row, bill stamps, order
// completion, table release, tenant counters all commit or roll back
// together. A repeated Idempotency-Key replays the original response without
// touching the database.
func (h *Handler) ProcessPayment(c *gin.Context) {
	p, bill, err := h.scopedBill(c)
	if err != nil {
		server.Fail(c, err)
		return
	}
	if !auth.CanPerform(p.Role, auth.CapPaymentProcess) {
		server.Fail(c, apperr.Forbidden("role may not process payments"))
		return
	}

	var req processPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, apperr.ValidationFailed(err.Error()))
		return
	}
	if !ValidMode(req.Mode) {
		server.Fail(c, apperr.ValidationFailed(fmt.Sprintf("unknown payment mode %q", req.Mode)))
		return
	}

	ctx := c.Request.Context()
	key := c.GetHeader("Idempotency-Key")

	if key != "" {
		cached, hit, lerr := h.ledger.Check(ctx, key)
		if lerr != nil {
			server.Fail(c, apperr.Unavailable("idempotency ledger unavailable", lerr))
			return
		}
		if hit {
			var payment models.Payment
			if jerr := json.Unmarshal(cached, &payment); jerr == nil {
				server.OK(c, "Payment already processed", payment)
				return
			}
		}
	}

	ctx, span := otel.Tracer("billing").Start(ctx, "payment.process")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("bill.id", bill.ID),
		attribute.String("payment.mode", req.Mode),
	)

	status := PaymentCompleted
	if req.Mode != ModeCash {
		status = PaymentProcessing
	}

	payment := models.Payment{
		PaymentID:    uuid.NewString(),
		BillID:       bill.ID,
		OrderID:      bill.OrderID,
		Amount:       bill.TotalAmount,
		Mode:         req.Mode,
		Status:       status,
		Gateway:      req.Gateway,
		GatewayTxnID: req.GatewayTxnID,
		ProcessedBy:  p.UserID,
		TenantID:     bill.TenantID,
	}
	if key != "" {
		payment.IdempotencyKey = &key
	}

	now := time.Now()
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Claiming the bill is one guarded update: of two racing
		// settlements only one matches the unpaid row, and the loser gets
		// Conflict instead of a second Payment row.
		res := claimBill(tx, bill.ID, req.Mode, payment.PaymentID, now)
		if res.Error != nil {
			return apperr.Unavailable("failed to mark bill paid", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("bill is already paid")
		}

		if err := tx.Create(&payment).Error; err != nil {
			return apperr.Unavailable("failed to record payment", err)
		}

		if err := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", bill.OrderID, orders.StatusServed).
			Update("status", orders.StatusCompleted).Error; err != nil {
			return apperr.Unavailable("failed to complete order", err)
		}

		if err := tx.Model(&models.Tenant{}).
			Where("id = ?", bill.TenantID).
			Updates(map[string]interface{}{
				"total_revenue":   gorm.Expr("total_revenue + ?", bill.TotalAmount),
				"account_balance": gorm.Expr("account_balance + ?", bill.TotalAmount),
			}).Error; err != nil {
			return apperr.Unavailable("failed to update tenant counters", err)
		}

		return nil
	})
	if err != nil {
		span.RecordError(err)
		server.Fail(c, err)
		return
	}

	bill.Paid = true
	bill.PaymentMethod = &req.Mode
	bill.PaidAt = &now
	bill.TransactionID = &payment.PaymentID

	// Table release is outside the settlement transaction: money already
	// moved, a stuck table is a warning, not a failure.
	var col sideeffect.Collector
	col.Run("table.release", func() error {
		if err := tables.MarkCleaning(ctx, h.db, bill.TenantID, bill.OrderID); err != nil {
			return err
		}
		tables.InvalidateCache(ctx, h.rdb, bill.TenantID)
		return nil
	})

	if key != "" {
		col.Run("idempotency.store", func() error {
			body, merr := json.Marshal(payment)
			if merr != nil {
				return merr
			}
			return h.ledger.Store(ctx, key, body)
		})
	}

	h.notifier.Publish(ctx, notify.EventBillPaid, bill.TenantID, gin.H{
		"bill_id":    bill.ID,
		"payment_id": payment.PaymentID,
		"mode":       req.Mode,
		"amount":     payment.Amount,
	})

	server.Respond(c, 200, "Payment processed successfully", payment, col.Warnings())
}

// ProcessRefund records a refund against a paid bill. The bill stays paid
// and the order stays completed; tenant counters are not reversed. Refunds
// are an accounting annotation, not an undo.
func (h *Handler) ProcessRefund(c *gin.Context) {
	p, bill, err := h.scopedBill(c)
	if err != nil {
		server.Fail(c, err)
		return
	}
	if !auth.CanPerform(p.Role, auth.CapPaymentRefund) {
		server.Fail(c, apperr.Forbidden("role may not process refunds"))
		return
	}

	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, apperr.ValidationFailed(err.Error()))
		return
	}
	amount, derr := decimal.NewFromString(req.Amount)
	if derr != nil || !amount.IsPositive() {
		server.Fail(c, apperr.ValidationFailed("invalid refund amount"))
		return
	}
	total, derr := decimal.NewFromString(bill.TotalAmount)
	if derr != nil {
		server.Fail(c, apperr.Unavailable("corrupt bill total", derr))
		return
	}
	if amount.GreaterThan(total) {
		server.Fail(c, apperr.ValidationFailed("refund amount exceeds bill total"))
		return
	}
	if !bill.Paid {
		server.Fail(c, apperr.InvalidTransition("cannot refund an unpaid bill"))
		return
	}
	if bill.Refunded {
		server.Fail(c, apperr.Conflict("bill is already refunded"))
		return
	}

	ctx := c.Request.Context()
	now := time.Now()

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Bill{}).
			Where("id = ? AND refunded = ?", bill.ID, false).
			Updates(map[string]interface{}{
				"refunded":      true,
				"refund_amount": amount.StringFixed(2),
				"refunded_at":   now,
				"refund_reason": req.Reason,
			}).Error; err != nil {
			return apperr.Unavailable("failed to record refund", err)
		}

		if err := tx.Model(&models.Payment{}).
			Where("bill_id = ? AND status = ?", bill.ID, PaymentCompleted).
			Updates(map[string]interface{}{
				"status":        PaymentRefunded,
				"refund_amount": amount.StringFixed(2),
				"refunded_at":   now,
			}).Error; err != nil {
			return apperr.Unavailable("failed to update payment", err)
		}

		return nil
	})
	if err != nil {
		server.Fail(c, err)
		return
	}

	refundStr := amount.StringFixed(2)
	bill.Refunded = true
	bill.RefundAmount = &refundStr
	bill.RefundedAt = &now
	bill.RefundReason = &req.Reason

	h.notifier.Publish(ctx, notify.EventPaymentRefund, bill.TenantID, gin.H{
		"bill_id": bill.ID,
		"amount":  refundStr,
		"reason":  req.Reason,
	})

	server.OK(c, "Refund processed successfully", bill)
}

func (h *Handler) GetBill(c *gin.Context) {
	_, bill, err := h.scopedBill(c)
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, "Bill retrieved successfully", bill)
}

func (h *Handler) ListBills(c *gin.Context) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		server.Fail(c, apperr.Forbidden("no principal"))
		return
	}

	ctx := c.Request.Context()
	tenantID, err := h.resolver.Resolve(ctx, p, middleware.RequestContextFrom(c))
	if err != nil {
		server.Fail(c, apperr.Unavailable("tenant resolution failed", err))
		return
	}
	if tenantID == 0 {
		server.OK(c, "Bills retrieved successfully", []models.Bill{})
		return
	}

	query := h.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if paid := c.Query("paid"); paid != "" {
		query = query.Where("paid = ?", paid == "true")
	}

	var results []models.Bill
	if err := query.Order("created_at DESC").Find(&results).Error; err != nil {
		server.Fail(c, apperr.Unavailable("failed to list bills", err))
		return
	}

	server.OK(c, "Bills retrieved successfully", results)
}

// billable: bills snapshot the served order exactly; a completed order is
// already settled and a cancelled one never reaches the cashier.
func billable(status string) bool {
	return status == orders.StatusServed
}

// claimBill atomically flips an unpaid bill to paid. Zero rows affected
// means another settlement already claimed it.
func claimBill(tx *gorm.DB, billID int64, mode, transactionID string, paidAt time.Time) *gorm.DB {
	return tx.Model(&models.Bill{}).
		Where("id = ? AND paid = ?", billID, false).
		Updates(map[string]interface{}{
			"paid":           true,
			"payment_method": mode,
			"paid_at":        paidAt,
			"transaction_id": transactionID,
		})
}

func (h *Handler) scopedBill(c *gin.Context) (auth.Principal, *models.Bill, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return auth.Principal{}, nil, apperr.Forbidden("no principal")
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return p, nil, apperr.ValidationFailed("invalid bill id")
	}

	ctx := c.Request.Context()
	tenantID, err := h.resolver.Resolve(ctx, p, middleware.RequestContextFrom(c))
	if err != nil {
		return p, nil, apperr.Unavailable("tenant resolution failed", err)
	}
	if tenantID == 0 {
		return p, nil, apperr.NotFound("bill not found")
	}

	var bill models.Bill
	err = h.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, nil, apperr.NotFound("bill not found")
	}
	if err != nil {
		return p, nil, apperr.Unavailable("failed to load bill", err)
	}
	return p, &bill, nil
}
