package tables

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"mesa-system/internal/apperr"
	"mesa-system/internal/auth"
	"mesa-system/internal/database"
	"mesa-system/internal/database/models"
	"mesa-system/internal/server"
	"mesa-system/internal/server/middleware"
	"mesa-system/internal/tenant"
)

const (
	tableCachePrefix = "tables:"
	tableCacheTTL    = 5 * time.Minute
)

type Handler struct {
	db       *gorm.DB
	rdb      *redis.Client
	resolver *tenant.Resolver
}

func NewHandler(db *gorm.DB, rdb *redis.Client, resolver *tenant.Resolver) *Handler {
	return &Handler{db: db, rdb: rdb, resolver: resolver}
}

type createTableRequest struct {
	TableNumber int32 `json:"table_number" binding:"required,min=1"`
	Capacity    int32 `json:"capacity" binding:"required,min=1"`
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type transferRequest struct {
	ToTableNumber int32 `json:"to_table_number" binding:"required,min=1"`
}

func (h *Handler) scope(c *gin.Context) (auth.Principal, int64, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return auth.Principal{}, 0, apperr.Forbidden("no principal")
	}
	tenantID, err := h.resolver.Resolve(c.Request.Context(), p, middleware.RequestContextFrom(c))
	if err != nil {
		return p, 0, apperr.Unavailable("tenant resolution failed", err)
	}
	return p, tenantID, nil
}

func (h *Handler) CreateTable(c *gin.Context) {
	p, tenantID, err := h.scope(c)
	if err != nil {
		server.Fail(c, err)
		return
	}
	if !auth.CanPerform(p.Role, auth.CapTableManage) {
		server.Fail(c, apperr.Forbidden("role may not manage tables"))
		return
	}
	if tenantID == 0 {
		server.Fail(c, apperr.NotFound("no tenant scope"))
		return
	}

	var req createTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, apperr.ValidationFailed(err.Error()))
		return
	}

	table := models.DiningTable{
		TableNumber: req.TableNumber,
		TenantID:    tenantID,
		Capacity:    req.Capacity,
		Status:      StatusAvailable,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&table).Error; err != nil {
		if database.IsDuplicateKey(err) {
			server.Fail(c, apperr.Conflict(fmt.Sprintf("table %d already exists", req.TableNumber)))
			return
		}
		server.Fail(c, apperr.Unavailable("failed to create table", err))
		return
	}

	InvalidateCache(c.Request.Context(), h.rdb, tenantID)
	server.Created(c, "Table created successfully", table)
}

func (h *Handler) ListTables(c *gin.Context) {
	_, tenantID, err := h.scope(c)
	if err != nil {
		server.Fail(c, err)
		return
	}
	if tenantID == 0 {
		server.OK(c, "Tables retrieved successfully", []models.DiningTable{})
		return
	}

	ctx := c.Request.Context()
	cacheKey := fmt.Sprintf("%s%d", tableCachePrefix, tenantID)

	if h.rdb != nil {
		if cached, err := h.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var tables []models.DiningTable
			if json.Unmarshal(cached, &tables) == nil {
				server.OK(c, "Tables retrieved successfully", tables)
				return
			}
		}
	}

	var tables []models.DiningTable
	if err := h.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("table_number").
		Find(&tables).Error; err != nil {
		server.Fail(c, apperr.Unavailable("failed to list tables", err))
		return
	}

	if h.rdb != nil {
		if body, err := json.Marshal(tables); err == nil {
			_ = h.rdb.Set(ctx, cacheKey, body, tableCacheTTL).Err()
		}
	}

	server.OK(c, "Tables retrieved successfully", tables)
}

func (h *Handler) SetStatus(c *gin.Context) {
	p, tenantID, err := h.scope(c)
	if err != nil {
		server.Fail(c, err)
		return
	}
	if !auth.CanPerform(p.Role, auth.CapTableManage) {
		server.Fail(c, apperr.Forbidden("role may not manage tables"))
		return
	}

	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, apperr.ValidationFailed(err.Error()))
		return
	}
	if !ValidStatus(req.Status) {
		server.Fail(c, apperr.ValidationFailed("unknown table status"))
		return
	}

	table, err := h.find(c, tenantID)
	if err != nil {
		server.Fail(c, err)
		return
	}

	updates := map[string]interface{}{"status": req.Status}
	if req.Status == StatusAvailable {
		updates["current_order_id"] = nil
	}
	if err := h.db.WithContext(c.Request.Context()).
		Model(&models.DiningTable{}).Where("id = ?", table.ID).
		Updates(updates).Error; err != nil {
		server.Fail(c, apperr.Unavailable("failed to update table", err))
		return
	}

	InvalidateCache(c.Request.Context(), h.rdb, tenantID)
	server.OK(c, "Table status updated", gin.H{"table_id": table.ID, "status": req.Status})
}

// CompleteCleaning flips a table back to available, only from cleaning.
func (h *Handler) CompleteCleaning(c *gin.Context) {
	p, tenantID, err := h.scope(c)
	if err != nil {
		server.Fail(c, err)
		return
	}
	if !auth.CanPerform(p.Role, auth.CapTableManage) {
		server.Fail(c, apperr.Forbidden("role may not manage tables"))
		return
	}

	table, err := h.find(c, tenantID)
	if err != nil {
		server.Fail(c, err)
		return
	}
	if table.Status != StatusCleaning {
		server.Fail(c, apperr.InvalidTransition("table is not being cleaned"))
		return
	}

	if err := h.db.WithContext(c.Request.Context()).
		Model(&models.DiningTable{}).Where("id = ?", table.ID).
		Updates(map[string]interface{}{
			"status":           StatusAvailable,
			"current_order_id": nil,
		}).Error; err != nil {
		server.Fail(c, apperr.Unavailable("failed to update table", err))
		return
	}

	InvalidateCache(c.Request.Context(), h.rdb, tenantID)
	server.OK(c, "Table is available again", gin.H{"table_id": table.ID, "status": StatusAvailable})
}

// TransferTable moves the occupying order to another table; the source
// resets to available with its back-reference cleared.
func (h *Handler) TransferTable(c *gin.Context) {
	p, tenantID, err := h.scope(c)
	if err != nil {
		server.Fail(c, err)
		return
	}
	if !auth.CanPerform(p.Role, auth.CapTableTransfer) {
		server.Fail(c, apperr.Forbidden("role may not transfer tables"))
		return
	}

	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, apperr.ValidationFailed(err.Error()))
		return
	}

	from, err := h.find(c, tenantID)
	if err != nil {
		server.Fail(c, err)
		return
	}
	if from.CurrentOrderID == nil {
		server.Fail(c, apperr.InvalidTransition("table has no order to transfer"))
		return
	}

	var to models.DiningTable
	err = h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ? AND table_number = ?", tenantID, req.ToTableNumber).
		First(&to).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		server.Fail(c, apperr.NotFound("destination table not found"))
		return
	}
	if err != nil {
		server.Fail(c, apperr.Unavailable("failed to load destination table", err))
		return
	}
	if to.Status != StatusAvailable {
		server.Fail(c, apperr.Conflict("destination table is not available"))
		return
	}

	orderID := *from.CurrentOrderID
	ctx := c.Request.Context()
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.DiningTable{}).Where("id = ?", to.ID).
			Updates(map[string]interface{}{
				"status":           StatusServing,
				"current_order_id": orderID,
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.DiningTable{}).Where("id = ?", from.ID).
			Updates(map[string]interface{}{
				"status":           StatusAvailable,
				"current_order_id": nil,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Order{}).Where("id = ?", orderID).
			Update("table_number", to.TableNumber).Error
	})
	if err != nil {
		server.Fail(c, apperr.Unavailable("transfer failed", err))
		return
	}

	InvalidateCache(ctx, h.rdb, tenantID)
	server.OK(c, "Table transferred", gin.H{
		"order_id":   orderID,
		"from_table": from.TableNumber,
		"to_table":   to.TableNumber,
	})
}

// DeleteTable refuses while a non-terminal order still references the table.
func (h *Handler) DeleteTable(c *gin.Context) {
	p, tenantID, err := h.scope(c)
	if err != nil {
		server.Fail(c, err)
		return
	}
	if !auth.CanPerform(p.Role, auth.CapTableManage) {
		server.Fail(c, apperr.Forbidden("role may not manage tables"))
		return
	}

	table, err := h.find(c, tenantID)
	if err != nil {
		server.Fail(c, err)
		return
	}

	var active int64
	if err := h.db.WithContext(c.Request.Context()).Model(&models.Order{}).
		Where("tenant_id = ? AND table_number = ? AND status NOT IN ?",
			tenantID, table.TableNumber, []string{"completed", "cancelled"}).
		Count(&active).Error; err != nil {
		server.Fail(c, apperr.Unavailable("failed to check active orders", err))
		return
	}
	if active > 0 {
		server.Fail(c, apperr.Conflict("table has active orders"))
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(&models.DiningTable{}, table.ID).Error; err != nil {
		server.Fail(c, apperr.Unavailable("failed to delete table", err))
		return
	}

	InvalidateCache(c.Request.Context(), h.rdb, tenantID)
	server.OK(c, "Table deleted", nil)
}

func (h *Handler) find(c *gin.Context, tenantID int64) (*models.DiningTable, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return nil, apperr.ValidationFailed("invalid table id")
	}
	if tenantID == 0 {
		return nil, apperr.NotFound("table not found")
	}

	var table models.DiningTable
	err = h.db.WithContext(c.Request.Context()).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("table not found")
	}
	if err != nil {
		return nil, apperr.Unavailable("failed to load table", err)
	}
	return &table, nil
}

// InvalidateCache drops the tenant's cached table list. The order and
// billing flows call this after mutating table state out-of-band.
func InvalidateCache(ctx context.Context, rdb *redis.Client, tenantID int64) {
	if rdb == nil {
		return
	}
	_ = rdb.Del(ctx, fmt.Sprintf("%s%d", tableCachePrefix, tenantID)).Err()
}

// MarkServing flips the table under an order to serving with a
// back-reference. Called by the order lifecycle before any ticket exists so
// readers never observe a ticket without an occupied table.
func MarkServing(ctx context.Context, db *gorm.DB, tenantID int64, tableNumber int32, orderID int64) error {
	res := db.WithContext(ctx).Model(&models.DiningTable{}).
		Where("tenant_id = ? AND table_number = ?", tenantID, tableNumber).
		Updates(map[string]interface{}{
			"status":           StatusServing,
			"current_order_id": orderID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("table %d not found for tenant %d", tableNumber, tenantID)
	}
	return nil
}

// MarkCleaning releases the table referenced by an order into the cleaning
// state. Used when the order completes or is cancelled.
func MarkCleaning(ctx context.Context, db *gorm.DB, tenantID, orderID int64) error {
	return db.WithContext(ctx).Model(&models.DiningTable{}).
		Where("tenant_id = ? AND current_order_id = ?", tenantID, orderID).
		Updates(map[string]interface{}{
			"status":           StatusCleaning,
			"current_order_id": nil,
		}).Error
}
