package tickets

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mesa-system/internal/apperr"
	"mesa-system/internal/auth"
	"mesa-system/internal/database"
	"mesa-system/internal/database/models"
	"mesa-system/internal/inventory"
	"mesa-system/internal/notify"
	"mesa-system/internal/orders"
	"mesa-system/internal/printer"
	"mesa-system/internal/server"
	"mesa-system/internal/server/middleware"
	"mesa-system/internal/sideeffect"
	"mesa-system/internal/tenant"
)

type Handler struct {
	db       *gorm.DB
	resolver *tenant.Resolver
	printer  printer.Client
	deductor *inventory.Deductor
	notifier *notify.Publisher
}

func NewHandler(db *gorm.DB, resolver *tenant.Resolver, pc printer.Client, deductor *inventory.Deductor, notifier *notify.Publisher) *Handler {
	return &Handler{db: db, resolver: resolver, printer: pc, deductor: deductor, notifier: notifier}
}

type createTicketRequest struct {
	OrderID int64  `json:"order_id" binding:"required"`
	Station string `json:"station" binding:"required"`
	Items   []struct {
		ItemName     string  `json:"item_name" binding:"required"`
		Quantity     int32   `json:"quantity" binding:"required,min=1"`
		Instructions *string `json:"instructions,omitempty"`
	} `json:"items,omitempty"`
}

type updateTicketRequest struct {
	Status string `json:"status" binding:"required"`
}

type printTicketRequest struct {
	PrinterID *string `json:"printer_id,omitempty"`
}

type listTicketsQuery struct {
	Station *string `form:"station,omitempty"`
	Status  *string `form:"status,omitempty"`
}

// CreateTicket splits a station-specific subset of an order onto its own
// ticket, e.g. drinks to the bar while food is already in the kitchen. With
// no explicit items the whole order is routed.
func (h *Handler) CreateTicket(c *gin.Context) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		server.Fail(c, apperr.Forbidden("no principal"))
		return
	}
	if !auth.CanPerform(p.Role, auth.CapTicketCreate) {
		server.Fail(c, apperr.Forbidden("role may not create tickets"))
		return
	}

	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, apperr.ValidationFailed(err.Error()))
		return
	}
	if !ValidStation(req.Station) {
		server.Fail(c, apperr.ValidationFailed(fmt.Sprintf("unknown station %q", req.Station)))
		return
	}

	ctx := c.Request.Context()
	tenantID, err := h.resolver.Resolve(ctx, p, middleware.RequestContextFrom(c))
	if err != nil {
		server.Fail(c, apperr.Unavailable("tenant resolution failed", err))
		return
	}

	var order models.Order
	err = h.db.WithContext(ctx).Preload("Items").
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
	if order.Status == orders.StatusCancelled {
		server.Fail(c, apperr.InvalidTransition("cannot ticket a cancelled order"))
		return
	}
	if orders.Rank(order.Status) < orders.Rank(orders.StatusConfirmed) {
		server.Fail(c, apperr.InvalidTransition("order must be confirmed before ticketing"))
		return
	}

	var ticket models.ProductionTicket
	for attempt := 0; ; attempt++ {
		var count int64
		if err := h.db.WithContext(ctx).Model(&models.ProductionTicket{}).
			Where("tenant_id = ?", tenantID).
			Count(&count).Error; err != nil {
			server.Fail(c, apperr.Unavailable("failed to allocate ticket number", err))
			return
		}

		ticket = models.ProductionTicket{
			TicketNumber: fmt.Sprintf("KOT-%d-%05d", tenantID, count+1),
			OrderID:      order.ID,
			Station:      req.Station,
			Status:       StatusPending,
			TenantID:     tenantID,
		}
		if len(req.Items) > 0 {
			for _, it := range req.Items {
				ticket.Items = append(ticket.Items, models.TicketItem{
					ItemName:     it.ItemName,
					Quantity:     it.Quantity,
					Instructions: it.Instructions,
				})
			}
		} else {
			for _, it := range order.Items {
				ticket.Items = append(ticket.Items, models.TicketItem{
					ItemName:     it.ItemName,
					Quantity:     it.Quantity,
					Instructions: it.Instructions,
				})
			}
		}

		err := h.db.WithContext(ctx).Create(&ticket).Error
		if err == nil {
			break
		}
		// Two stations ticketing at once can race to the same sequential
		// number; recount and retry.
		if database.IsDuplicateKey(err) && attempt < 2 {
			continue
		}
		server.Fail(c, apperr.Unavailable("failed to create ticket", err))
		return
	}

	h.notifier.Publish(ctx, notify.EventTicketCreated, tenantID, gin.H{
		"ticket_id":     ticket.ID,
		"ticket_number": ticket.TicketNumber,
		"order_id":      order.ID,
		"station":       ticket.Station,
	})

	server.Created(c, "Ticket created successfully", ticket)
}

func (h *Handler) GetTicket(c *gin.Context) {
	_, ticket, err := h.scopedTicket(c, true)
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, "Ticket retrieved successfully", ticket)
}

func (h *Handler) ListTickets(c *gin.Context) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		server.Fail(c, apperr.Forbidden("no principal"))
		return
	}

	var q listTicketsQuery
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
		server.OK(c, "Tickets retrieved successfully", []models.ProductionTicket{})
		return
	}

	query := h.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if q.Station != nil {
		query = query.Where("station = ?", *q.Station)
	}
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}

	var results []models.ProductionTicket
	if err := query.Preload("Items").
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		server.Fail(c, apperr.Unavailable("failed to list tickets", err))
		return
	}

	server.OK(c, "Tickets retrieved successfully", results)
}

// UpdateStatus advances the ticket and echoes progress onto the parent
// order. The parent order moves forward only, and never from a cancelled
// or completed state.
func (h *Handler) UpdateStatus(c *gin.Context) {
	p, ticket, err := h.scopedTicket(c, true)
	if err != nil {
		server.Fail(c, err)
		return
	}

	var req updateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, apperr.ValidationFailed(err.Error()))
		return
	}
	target := req.Status

	if !auth.CanPerform(p.Role, auth.CapTicketUpdate) {
		server.Fail(c, apperr.Forbidden("role may not update tickets"))
		return
	}
	if !auth.CanTransitionTo(p.Role, auth.ResourceTicket, target) {
		server.Fail(c, apperr.InvalidTransition(fmt.Sprintf("role %s may not set ticket status %s", p.Role, target)))
		return
	}
	if !CanReach(ticket.Status, target) {
		server.Fail(c, apperr.InvalidTransition(fmt.Sprintf("cannot move ticket from %s to %s", ticket.Status, target)))
		return
	}

	ctx := c.Request.Context()

	var order models.Order
	if err := h.db.WithContext(ctx).
		Where("id = ?", ticket.OrderID).
		First(&order).Error; err != nil {
		server.Fail(c, apperr.Unavailable("failed to load parent order", err))
		return
	}
	if order.Status == orders.StatusCancelled {
		server.Fail(c, apperr.InvalidTransition("parent order is cancelled"))
		return
	}

	now := time.Now()
	updates := map[string]interface{}{"status": target}
	firstPrep := target == StatusPreparing && ticket.StartedAt == nil
	if firstPrep {
		updates["started_at"] = now
		updates["assigned_to"] = p.UserID
	}
	if target == StatusReady && ticket.CompletedAt == nil {
		updates["completed_at"] = now
	}

	if err := h.db.WithContext(ctx).Model(&models.ProductionTicket{}).
		Where("id = ?", ticket.ID).
		Updates(updates).Error; err != nil {
		server.Fail(c, apperr.Unavailable("failed to update ticket", err))
		return
	}
	ticket.Status = target
	if v, ok := updates["started_at"]; ok {
		t := v.(time.Time)
		ticket.StartedAt = &t
		ticket.AssignedTo = &p.UserID
	}
	if v, ok := updates["completed_at"]; ok {
		t := v.(time.Time)
		ticket.CompletedAt = &t
	}

	// Stock leaves the shelf when the kitchen actually starts, once per
	// ticket.
	var col sideeffect.Collector
	if firstPrep {
		lines := make([]inventory.Line, 0, len(ticket.Items))
		for _, it := range ticket.Items {
			lines = append(lines, inventory.Line{ItemName: it.ItemName, Quantity: it.Quantity})
		}
		for _, w := range h.deductor.DeductForItems(ctx, ticket.TenantID, lines) {
			col.Add(w.Effect, w.Message)
		}
	}

	if echo := PropagatedOrderStatus(target, order.Status); echo != "" {
		if err := h.db.WithContext(ctx).Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, order.Status).
			Update("status", echo).Error; err != nil {
			server.Fail(c, apperr.Unavailable("failed to propagate order status", err))
			return
		}
		h.notifier.Publish(ctx, notify.EventOrderStatus, ticket.TenantID, gin.H{
			"order_id": order.ID,
			"status":   echo,
		})
	}

	h.notifier.Publish(ctx, notify.EventTicketUpdated, ticket.TenantID, gin.H{
		"ticket_id": ticket.ID,
		"status":    target,
	})

	server.Respond(c, 200, "Ticket status updated", ticket, col.Warnings())
}

// PrintTicket renders the ticket and sends it to the print server. The
// printed flags are stamped only after the print server accepts the job.
func (h *Handler) PrintTicket(c *gin.Context) {
	p, ticket, err := h.scopedTicket(c, true)
	if err != nil {
		server.Fail(c, err)
		return
	}
	if !auth.CanPerform(p.Role, auth.CapTicketPrint) {
		server.Fail(c, apperr.Forbidden("role may not print tickets"))
		return
	}
	if ticket.Status == StatusCancelled {
		server.Fail(c, apperr.InvalidTransition("cannot print a cancelled ticket"))
		return
	}

	var req printTicketRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			server.Fail(c, apperr.ValidationFailed(err.Error()))
			return
		}
	}

	ctx := c.Request.Context()
	lines := renderTicket(ticket)

	if err := h.printer.Print(ctx, lines); err != nil {
		server.Fail(c, apperr.Unavailable("print server rejected the job", err))
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"is_printed": true,
		"printed_by": p.UserID,
		"printed_at": now,
	}
	if req.PrinterID != nil {
		updates["printer_id"] = *req.PrinterID
	}
	if err := h.db.WithContext(ctx).Model(&models.ProductionTicket{}).
		Where("id = ?", ticket.ID).
		Updates(updates).Error; err != nil {
		server.Fail(c, apperr.Unavailable("failed to record print", err))
		return
	}
	ticket.IsPrinted = true
	ticket.PrintedBy = &p.UserID
	ticket.PrintedAt = &now
	ticket.PrinterID = req.PrinterID

	server.OK(c, "Ticket printed", ticket)
}

// renderTicket lays out the ticket for a fixed-width station printer. Every
// line is sanitized so crafted instructions cannot smuggle control sequences
// into the device.
func renderTicket(t *models.ProductionTicket) []string {
	lines := []string{
		fmt.Sprintf("=== %s ===", t.TicketNumber),
		fmt.Sprintf("Station: %s", t.Station),
		fmt.Sprintf("Order:   #%d", t.OrderID),
		"------------------------",
	}
	for _, it := range t.Items {
		lines = append(lines, fmt.Sprintf("%2dx %s", it.Quantity, it.ItemName))
		if it.Instructions != nil && *it.Instructions != "" {
			lines = append(lines, fmt.Sprintf("    > %s", *it.Instructions))
		}
	}
	lines = append(lines, "------------------------")

	return printer.Sanitize(lines)
}

func (h *Handler) scopedTicket(c *gin.Context, withItems bool) (auth.Principal, *models.ProductionTicket, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return auth.Principal{}, nil, apperr.Forbidden("no principal")
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return p, nil, apperr.ValidationFailed("invalid ticket id")
	}

	ctx := c.Request.Context()
	tenantID, err := h.resolver.Resolve(ctx, p, middleware.RequestContextFrom(c))
	if err != nil {
		return p, nil, apperr.Unavailable("tenant resolution failed", err)
	}
	if tenantID == 0 {
		return p, nil, apperr.NotFound("ticket not found")
	}

	query := h.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID)
	if withItems {
		query = query.Preload("Items")
	}

	var ticket models.ProductionTicket
	err = query.First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, nil, apperr.NotFound("ticket not found")
	}
	if err != nil {
		return p, nil, apperr.Unavailable("failed to load ticket", err)
	}
	return p, &ticket, nil
}
