package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"mesa-system/internal/apperr"
	"mesa-system/internal/auth"
	"mesa-system/internal/database"
	"mesa-system/internal/database/models"
	"mesa-system/internal/inventory"
	"mesa-system/internal/notify"
	"mesa-system/internal/server"
	"mesa-system/internal/server/middleware"
	"mesa-system/internal/sideeffect"
	"mesa-system/internal/tables"
	"mesa-system/internal/tenant"
)

type Handler struct {
	db       *gorm.DB
	rdb      *redis.Client
	resolver *tenant.Resolver
	deductor *inventory.Deductor
	notifier *notify.Publisher
}

func NewHandler(db *gorm.DB, rdb *redis.Client, resolver *tenant.Resolver, deductor *inventory.Deductor, notifier *notify.Publisher) *Handler {
	return &Handler{db: db, rdb: rdb, resolver: resolver, deductor: deductor, notifier: notifier}
}

type orderItemRequest struct {
	ItemName     string  `json:"item_name" binding:"required"`
	Quantity     int32   `json:"quantity" binding:"required,min=1"`
	UnitPrice    string  `json:"unit_price" binding:"required"`
	Instructions *string `json:"instructions,omitempty"`
}

type createOrderRequest struct {
	Source          string             `json:"source" binding:"required"`
	Draft           bool               `json:"draft,omitempty"`
	TableNumber     *int32             `json:"table_number,omitempty"`
	Items           []orderItemRequest `json:"items" binding:"required,min=1"`
	DiscountType    *string            `json:"discount_type,omitempty"`
	DiscountValue   *string            `json:"discount_value,omitempty"`
	CustomerName    *string            `json:"customer_name,omitempty"`
	CustomerPhone   *string            `json:"customer_phone,omitempty"`
	DeliveryAddress *string            `json:"delivery_address,omitempty"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type addItemsRequest struct {
	Items []orderItemRequest `json:"items" binding:"required,min=1"`
}

type listOrdersQuery struct {
	Page     int     `form:"page,default=1"`
	PageSize int     `form:"page_size,default=20"`
	Status   *string `form:"status,omitempty"`
	Source   *string `form:"source,omitempty"`
}

func (h *Handler) CreateOrder(c *gin.Context) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		server.Fail(c, apperr.Forbidden("no principal"))
		return
	}
	if !auth.CanPerform(p.Role, auth.CapOrderCreate) {
		server.Fail(c, apperr.Forbidden("role may not create orders"))
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, apperr.ValidationFailed(err.Error()))
		return
	}
	if err := validateChannel(&req); err != nil {
		server.Fail(c, err)
		return
	}

	lines, items, err := parseItems(req.Items)
	if err != nil {
		server.Fail(c, err)
		return
	}

	discountType, discountValue, err := parseDiscount(req.DiscountType, req.DiscountValue)
	if err != nil {
		server.Fail(c, err)
		return
	}

	ctx := c.Request.Context()

	// Compensating action: a principal without any tenant gets a default one
	// rather than a hard failure.
	tenantID, err := h.resolver.EnsureTenant(ctx, h.db, p, middleware.RequestContextFrom(c))
	if err != nil {
		server.Fail(c, apperr.Unavailable("tenant resolution failed", err))
		return
	}

	if RequiresTable(req.Source) {
		var table models.DiningTable
		err := h.db.WithContext(ctx).
			Where("tenant_id = ? AND table_number = ?", tenantID, *req.TableNumber).
			First(&table).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			server.Fail(c, apperr.NotFound(fmt.Sprintf("table %d not found", *req.TableNumber)))
			return
		}
		if err != nil {
			server.Fail(c, apperr.Unavailable("failed to load table", err))
			return
		}
	}

	totals := ComputeTotals(lines, discountType, discountValue)

	status := StatusPending
	if req.Draft {
		status = StatusDraft
	}

	var order models.Order
	for attempt := 0; ; attempt++ {
		number, err := h.nextOrderNumber(ctx, tenantID)
		if err != nil {
			server.Fail(c, apperr.Unavailable("failed to allocate order number", err))
			return
		}

		order = models.Order{
			OrderNumber:     number,
			Source:          req.Source,
			TableNumber:     req.TableNumber,
			Status:          status,
			Subtotal:        totals.Subtotal.StringFixed(2),
			DiscountValue:   discountValue.StringFixed(2),
			DiscountAmount:  totals.Discount.StringFixed(2),
			TaxAmount:       totals.Tax.StringFixed(2),
			TotalAmount:     totals.Total.StringFixed(2),
			TenantID:        tenantID,
			CreatedBy:       p.UserID,
			CustomerName:    req.CustomerName,
			CustomerPhone:   req.CustomerPhone,
			DeliveryAddress: req.DeliveryAddress,
			Items:           items,
		}
		if discountType != "" {
			order.DiscountType = &discountType
		}

		err = h.db.WithContext(ctx).Create(&order).Error
		if err == nil {
			break
		}
		// Concurrent creates collide on the sequential number; recount and
		// retry.
		if database.IsDuplicateKey(err) && attempt < 2 {
			continue
		}
		server.Fail(c, apperr.Unavailable("failed to create order", err))
		return
	}

	var col sideeffect.Collector
	// Drafts do not seize the table; confirmation does.
	if !req.Draft && RequiresTable(req.Source) {
		col.Run("table.serving", func() error {
			if err := tables.MarkServing(ctx, h.db, tenantID, *req.TableNumber, order.ID); err != nil {
				return err
			}
			tables.InvalidateCache(ctx, h.rdb, tenantID)
			return nil
		})
	}
	// Stock is reserved up front so the kitchen sees shortages before it
	// starts cooking. Failures surface as warnings, never as a failed order.
	for _, w := range h.deductor.DeductForItems(ctx, tenantID, deductLines(order.Items)) {
		col.Add(w.Effect, w.Message)
	}
	col.Run("tenant.stats", func() error {
		return h.db.WithContext(ctx).Model(&models.Tenant{}).
			Where("id = ?", tenantID).
			UpdateColumn("total_orders", gorm.Expr("total_orders + 1")).Error
	})
	h.notifier.Publish(ctx, notify.EventOrderNew, tenantID, gin.H{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"source":       order.Source,
		"total":        order.TotalAmount,
	})

	server.Respond(c, 201, "Order created successfully", order, col.Warnings())
}

func (h *Handler) GetOrder(c *gin.Context) {
	_, order, err := h.scopedOrder(c, true)
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, "Order retrieved successfully", order)
}

func (h *Handler) ListOrders(c *gin.Context) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		server.Fail(c, apperr.Forbidden("no principal"))
		return
	}

	var q listOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		server.Fail(c, apperr.ValidationFailed(err.Error()))
		return
	}

	ctx := c.Request.Context()
	tenantID, err := h.resolver.Resolve(ctx, p, middleware.RequestContextFrom(c))
	if err != nil {
		server.Fail(c, apperr.Unavailable("tenant resolution failed", err))
		return
	}
	if tenantID == 0 {
		server.RespondWithMeta(c, 200, "Orders retrieved successfully", []models.Order{}, gin.H{"total": 0})
		return
	}

	query := h.db.WithContext(ctx).Model(&models.Order{}).Where("tenant_id = ?", tenantID)
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if q.Source != nil {
		query = query.Where("source = ?", *q.Source)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		server.Fail(c, apperr.Unavailable("failed to count orders", err))
		return
	}

	if q.PageSize <= 0 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	offset := (q.Page - 1) * q.PageSize

	var results []models.Order
	if err := query.Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(q.PageSize).
		Find(&results).Error; err != nil {
		server.Fail(c, apperr.Unavailable("failed to list orders", err))
		return
	}

	server.RespondWithMeta(c, 200, "Orders retrieved successfully", results, gin.H{
		"total":     total,
		"page":      q.Page,
		"page_size": q.PageSize,
	})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	p, order, err := h.scopedOrder(c, false)
	if err != nil {
		server.Fail(c, err)
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, apperr.ValidationFailed(err.Error()))
		return
	}
	target := req.Status

	if !auth.CanPerform(p.Role, auth.CapOrderUpdate) {
		server.Fail(c, apperr.Forbidden("role may not update orders"))
		return
	}
	if p.Role == auth.RoleWaiter && order.CreatedBy != p.UserID {
		server.Fail(c, apperr.Forbidden("waiters may only update their own orders"))
		return
	}
	if !auth.CanTransitionTo(p.Role, auth.ResourceOrder, target) {
		server.Fail(c, apperr.InvalidTransition(fmt.Sprintf("role %s may not set status %s", p.Role, target)))
		return
	}
	if !CanReach(order.Status, target) {
		server.Fail(c, apperr.InvalidTransition(fmt.Sprintf("cannot move order from %s to %s", order.Status, target)))
		return
	}

	switch target {
	case StatusCancelled:
		h.cancel(c, p, order, "cancelled by staff")
	case StatusConfirmed:
		h.confirm(c, p, order)
	default:
		ctx := c.Request.Context()
		if err := h.db.WithContext(ctx).Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("status", target).Error; err != nil {
			server.Fail(c, apperr.Unavailable("failed to update order", err))
			return
		}
		order.Status = target
		h.notifier.Publish(ctx, notify.EventOrderStatus, order.TenantID, gin.H{
			"order_id": order.ID,
			"status":   target,
		})
		server.OK(c, "Order status updated", order)
	}
}

func (h *Handler) ConfirmOrder(c *gin.Context) {
	p, order, err := h.scopedOrder(c, false)
	if err != nil {
		server.Fail(c, err)
		return
	}
	if !auth.CanTransitionTo(p.Role, auth.ResourceOrder, StatusConfirmed) {
		server.Fail(c, apperr.InvalidTransition(fmt.Sprintf("role %s may not confirm orders", p.Role)))
		return
	}
	if p.Role == auth.RoleWaiter && order.CreatedBy != p.UserID {
		server.Fail(c, apperr.Forbidden("waiters may only confirm their own orders"))
		return
	}
	if !CanReach(order.Status, StatusConfirmed) {
		server.Fail(c, apperr.InvalidTransition(fmt.Sprintf("cannot confirm order in state %s", order.Status)))
		return
	}
	h.confirm(c, p, order)
}

// confirm flips the order to confirmed and auto-spawns the kitchen ticket.
// The table is marked serving before the ticket exists, and a ticket-spawn
// failure never fails the confirmation.
func (h *Handler) confirm(c *gin.Context, p auth.Principal, order *models.Order) {
	ctx := c.Request.Context()
	var col sideeffect.Collector

	if RequiresTable(order.Source) && order.TableNumber != nil {
		col.Run("table.serving", func() error {
			if err := tables.MarkServing(ctx, h.db, order.TenantID, *order.TableNumber, order.ID); err != nil {
				return err
			}
			tables.InvalidateCache(ctx, h.rdb, order.TenantID)
			return nil
		})
	}

	if err := h.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":       StatusConfirmed,
			"confirmed_by": p.UserID,
		}).Error; err != nil {
		server.Fail(c, apperr.Unavailable("failed to confirm order", err))
		return
	}
	order.Status = StatusConfirmed
	order.ConfirmedBy = &p.UserID

	col.Run("ticket.spawn", func() error {
		return h.spawnKitchenTicket(ctx, order)
	})

	h.notifier.Publish(ctx, notify.EventOrderStatus, order.TenantID, gin.H{
		"order_id": order.ID,
		"status":   StatusConfirmed,
	})

	server.Respond(c, 200, "Order confirmed", order, col.Warnings())
}

func (h *Handler) CancelOrder(c *gin.Context) {
	p, order, err := h.scopedOrder(c, false)
	if err != nil {
		server.Fail(c, err)
		return
	}

	var req cancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, apperr.ValidationFailed(err.Error()))
		return
	}

	if !auth.CanPerform(p.Role, auth.CapOrderCancel) {
		server.Fail(c, apperr.Forbidden("role may not cancel orders"))
		return
	}
	if !auth.CanTransitionTo(p.Role, auth.ResourceOrder, StatusCancelled) {
		server.Fail(c, apperr.InvalidTransition(fmt.Sprintf("role %s may not cancel orders", p.Role)))
		return
	}
	if !CanReach(order.Status, StatusCancelled) {
		server.Fail(c, apperr.InvalidTransition(fmt.Sprintf("cannot cancel order in state %s", order.Status)))
		return
	}

	h.cancel(c, p, order, req.Reason)
}

// cancel is terminal and one-way. Associated tickets are marked cancelled
// and the table released to cleaning, both best-effort.
func (h *Handler) cancel(c *gin.Context, p auth.Principal, order *models.Order, reason string) {
	ctx := c.Request.Context()
	now := time.Now()

	if err := h.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":        StatusCancelled,
			"cancelled_at":  now,
			"cancelled_by":  p.UserID,
			"cancel_reason": reason,
		}).Error; err != nil {
		server.Fail(c, apperr.Unavailable("failed to cancel order", err))
		return
	}
	order.Status = StatusCancelled
	order.CancelledAt = &now
	order.CancelledBy = &p.UserID
	order.CancelReason = &reason

	var col sideeffect.Collector
	col.Run("ticket.cascade", func() error {
		return h.db.WithContext(ctx).Model(&models.ProductionTicket{}).
			Where("order_id = ? AND status <> ?", order.ID, "cancelled").
			Update("status", "cancelled").Error
	})
	col.Run("table.release", func() error {
		if err := tables.MarkCleaning(ctx, h.db, order.TenantID, order.ID); err != nil {
			return err
		}
		tables.InvalidateCache(ctx, h.rdb, order.TenantID)
		return nil
	})
	h.notifier.Publish(ctx, notify.EventOrderCancelled, order.TenantID, gin.H{
		"order_id": order.ID,
		"reason":   reason,
	})

	server.Respond(c, 200, "Order cancelled", order, col.Warnings())
}

// AddItems appends line items to a draft or pending order and recomputes its
// totals.
func (h *Handler) AddItems(c *gin.Context) {
	p, order, err := h.scopedOrder(c, true)
	if err != nil {
		server.Fail(c, err)
		return
	}
	if !auth.CanPerform(p.Role, auth.CapOrderUpdate) {
		server.Fail(c, apperr.Forbidden("role may not update orders"))
		return
	}
	if p.Role == auth.RoleWaiter && order.CreatedBy != p.UserID {
		server.Fail(c, apperr.Forbidden("waiters may only update their own orders"))
		return
	}
	if order.Status != StatusDraft && order.Status != StatusPending {
		server.Fail(c, apperr.InvalidTransition("items can only be added before confirmation"))
		return
	}

	var req addItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, apperr.ValidationFailed(err.Error()))
		return
	}

	_, newItems, err := parseItems(req.Items)
	if err != nil {
		server.Fail(c, err)
		return
	}
	for i := range newItems {
		newItems[i].OrderID = order.ID
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Create(&newItems).Error; err != nil {
		server.Fail(c, apperr.Unavailable("failed to add items", err))
		return
	}

	order.Items = append(order.Items, newItems...)
	lines := make([]LineInput, 0, len(order.Items))
	for _, it := range order.Items {
		price, perr := decimal.NewFromString(it.UnitPrice)
		if perr != nil {
			continue
		}
		lines = append(lines, LineInput{Quantity: it.Quantity, UnitPrice: price})
	}

	discountType := ""
	if order.DiscountType != nil {
		discountType = *order.DiscountType
	}
	discountValue, derr := decimal.NewFromString(order.DiscountValue)
	if derr != nil {
		discountValue = decimal.Zero
	}
	totals := ComputeTotals(lines, discountType, discountValue)

	if err := h.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"subtotal":        totals.Subtotal.StringFixed(2),
			"discount_amount": totals.Discount.StringFixed(2),
			"tax_amount":      totals.Tax.StringFixed(2),
			"total_amount":    totals.Total.StringFixed(2),
		}).Error; err != nil {
		server.Fail(c, apperr.Unavailable("failed to update totals", err))
		return
	}
	order.Subtotal = totals.Subtotal.StringFixed(2)
	order.DiscountAmount = totals.Discount.StringFixed(2)
	order.TaxAmount = totals.Tax.StringFixed(2)
	order.TotalAmount = totals.Total.StringFixed(2)

	server.OK(c, "Items added", order)
}

// spawnKitchenTicket creates the kitchen ticket bridging "order accepted" to
// "kitchen notified", unless one already exists for the order.
func (h *Handler) spawnKitchenTicket(ctx context.Context, order *models.Order) error {
	var existing int64
	if err := h.db.WithContext(ctx).Model(&models.ProductionTicket{}).
		Where("order_id = ?", order.ID).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	items := order.Items
	if len(items) == 0 {
		if err := h.db.WithContext(ctx).
			Where("order_id = ?", order.ID).
			Find(&items).Error; err != nil {
			return err
		}
	}

	var ticket models.ProductionTicket
	for attempt := 0; ; attempt++ {
		var count int64
		if err := h.db.WithContext(ctx).Model(&models.ProductionTicket{}).
			Where("tenant_id = ?", order.TenantID).
			Count(&count).Error; err != nil {
			return err
		}

		ticket = models.ProductionTicket{
			TicketNumber: fmt.Sprintf("KOT-%d-%05d", order.TenantID, count+1),
			OrderID:      order.ID,
			Station:      "kitchen",
			Status:       "pending",
			TenantID:     order.TenantID,
		}
		for _, it := range items {
			ticket.Items = append(ticket.Items, models.TicketItem{
				ItemName:     it.ItemName,
				Quantity:     it.Quantity,
				Instructions: it.Instructions,
			})
		}

		err := h.db.WithContext(ctx).Create(&ticket).Error
		if err == nil {
			break
		}
		if database.IsDuplicateKey(err) && attempt < 2 {
			continue
		}
		return err
	}

	h.notifier.Publish(ctx, notify.EventTicketCreated, order.TenantID, gin.H{
		"ticket_id":     ticket.ID,
		"ticket_number": ticket.TicketNumber,
		"order_id":      order.ID,
		"station":       ticket.Station,
	})
	return nil
}

// scopedOrder loads the order in the principal's tenant scope.
func (h *Handler) scopedOrder(c *gin.Context, withItems bool) (auth.Principal, *models.Order, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return auth.Principal{}, nil, apperr.Forbidden("no principal")
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return p, nil, apperr.ValidationFailed("invalid order id")
	}

	ctx := c.Request.Context()
	tenantID, err := h.resolver.Resolve(ctx, p, middleware.RequestContextFrom(c))
	if err != nil {
		return p, nil, apperr.Unavailable("tenant resolution failed", err)
	}
	if tenantID == 0 {
		return p, nil, apperr.NotFound("order not found")
	}

	query := h.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID)
	if withItems {
		query = query.Preload("Items")
	}

	var order models.Order
	err = query.First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return p, nil, apperr.Unavailable("failed to load order", err)
	}
	return p, &order, nil
}

func deductLines(items []models.OrderItem) []inventory.Line {
	lines := make([]inventory.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, inventory.Line{ItemName: it.ItemName, Quantity: it.Quantity})
	}
	return lines
}

func (h *Handler) nextOrderNumber(ctx context.Context, tenantID int64) (string, error) {
	var count int64
	if err := h.db.WithContext(ctx).Model(&models.Order{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%d-%05d", tenantID, count+1), nil
}

func validateChannel(req *createOrderRequest) error {
	if !ValidSource(req.Source) {
		return apperr.ValidationFailed(fmt.Sprintf("unknown order source %q", req.Source))
	}
	if RequiresTable(req.Source) {
		if req.TableNumber == nil {
			return apperr.ValidationFailed("table_number is required for " + req.Source + " orders")
		}
	} else if req.TableNumber != nil {
		return apperr.ValidationFailed("table_number must be absent for " + req.Source + " orders")
	}
	if RequiresCustomer(req.Source) {
		if req.CustomerName == nil || *req.CustomerName == "" {
			return apperr.ValidationFailed("customer_name is required for " + req.Source + " orders")
		}
		if req.CustomerPhone == nil || *req.CustomerPhone == "" {
			return apperr.ValidationFailed("customer_phone is required for " + req.Source + " orders")
		}
	}
	if RequiresDelivery(req.Source) {
		if req.DeliveryAddress == nil || *req.DeliveryAddress == "" {
			return apperr.ValidationFailed("delivery_address is required for " + req.Source + " orders")
		}
	}
	return nil
}

func parseItems(reqs []orderItemRequest) ([]LineInput, []models.OrderItem, error) {
	lines := make([]LineInput, 0, len(reqs))
	items := make([]models.OrderItem, 0, len(reqs))
	for _, r := range reqs {
		price, err := decimal.NewFromString(r.UnitPrice)
		if err != nil || price.IsNegative() {
			return nil, nil, apperr.ValidationFailed(fmt.Sprintf("invalid unit price for %q", r.ItemName))
		}
		lines = append(lines, LineInput{Quantity: r.Quantity, UnitPrice: price})
		items = append(items, models.OrderItem{
			ItemName:     r.ItemName,
			Quantity:     r.Quantity,
			UnitPrice:    price.StringFixed(2),
			LineTotal:    price.Mul(decimal.NewFromInt32(r.Quantity)).StringFixed(2),
			Instructions: r.Instructions,
		})
	}
	return lines, items, nil
}

func parseDiscount(discountType, discountValue *string) (string, decimal.Decimal, error) {
	if discountType == nil {
		return "", decimal.Zero, nil
	}
	if *discountType != DiscountFlat && *discountType != DiscountPercentage {
		return "", decimal.Zero, apperr.ValidationFailed("discount_type must be flat or percentage")
	}
	if discountValue == nil {
		return "", decimal.Zero, apperr.ValidationFailed("discount_value is required with discount_type")
	}
	value, err := decimal.NewFromString(*discountValue)
	if err != nil || value.IsNegative() {
		return "", decimal.Zero, apperr.ValidationFailed("invalid discount_value")
	}
	return *discountType, value, nil
}
