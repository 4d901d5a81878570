package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sales_saga/internal/sales"
)

// IdempotencyHeader lets clients retry POST /api/sales without recording the sale twice.
const IdempotencyHeader = "Idempotency-Key"

// IdempotencyStore maps an idempotency key to the sale it produced.
//
// Reserve claims key for one request. When the key is already claimed it
// returns reserved false and the sale id, which is empty while the first
// request is still running. Complete and Release settle a reservation.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (saleID string, reserved bool, err error)
	Complete(ctx context.Context, key, saleID string) error
	Release(ctx context.Context, key string) error
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// salesHandler holds the sales service and implements HTTP handlers for sales operations.
type salesHandler struct {
	salesService *sales.Service
	idempotency  IdempotencyStore
	logger       *zap.Logger
}

// NewSalesHandler creates a new sales handler. idempotency may be nil.
func NewSalesHandler(salesService *sales.Service, idempotency IdempotencyStore, logger *zap.Logger) *salesHandler {
	return &salesHandler{
		salesService: salesService,
		idempotency:  idempotency,
		logger:       logger,
	}
}

func writeError(ctx *gin.Context, status int, code, message string) {
	ctx.JSON(status, ErrorResponse{Error: code, Message: message, Timestamp: time.Now().UnixMilli()})
}

// handleCreateSale handles the POST /api/sales endpoint.
func (h *salesHandler) handleCreateSale(ctx *gin.Context) {
	var req sales.SaleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		writeError(ctx, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request payload")
		return
	}

	key := ctx.GetHeader(IdempotencyHeader)
	if key != "" && h.idempotency != nil {
		if !h.reserve(ctx, key) {
			return
		}
	}

	sale, err := h.salesService.ExecuteSale(ctx.Request.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create sale", zap.Error(err), zap.String("product_id", req.ProductID), zap.Int("quantity", req.Quantity))
		if key != "" && h.idempotency != nil {
			if err := h.idempotency.Release(context.WithoutCancel(ctx.Request.Context()), key); err != nil {
				h.logger.Warn("failed to release idempotency key", zap.Error(err))
			}
		}
		h.writeSaleError(ctx, err)
		return
	}

	if key != "" && h.idempotency != nil {
		if err := h.idempotency.Complete(context.WithoutCancel(ctx.Request.Context()), key, sale.ID); err != nil {
			h.logger.Warn("failed to remember idempotency key", zap.String("sale_id", sale.ID), zap.Error(err))
		}
	}
	ctx.JSON(http.StatusCreated, sale)
}

// reserve claims the idempotency key. It reports false when the response was
// already written: the earlier sale is replayed, or the key is still in flight.
// A store that cannot be reached does not block the sale.
func (h *salesHandler) reserve(ctx *gin.Context, key string) bool {
	saleID, reserved, err := h.idempotency.Reserve(ctx.Request.Context(), key)
	if err != nil {
		h.logger.Warn("idempotency reservation failed", zap.Error(err))
		return true
	}
	if reserved {
		return true
	}
	if saleID == "" {
		writeError(ctx, http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS", "a request with this idempotency key is still being processed")
		return false
	}
	sale, err := h.salesService.GetSale(ctx.Request.Context(), saleID)
	if err != nil {
		h.logger.Warn("idempotent sale no longer readable", zap.String("sale_id", saleID), zap.Error(err))
		writeError(ctx, http.StatusConflict, "IDEMPOTENCY_CONFLICT", "idempotency key already used")
		return false
	}
	ctx.JSON(http.StatusOK, sale)
	return false
}

func (h *salesHandler) writeSaleError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, sales.ErrDuplicateSaleNumber):
		writeError(ctx, http.StatusConflict, "DUPLICATE_SALE_NUMBER", err.Error())
	case errors.Is(err, sales.ErrTransactionFailed):
		writeError(ctx, http.StatusInternalServerError, "TRANSACTION_FAILED", err.Error())
	case sales.IsValidation(err):
		writeError(ctx, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, sales.ErrInfrastructure):
		writeError(ctx, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
	default:
		writeError(ctx, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred: "+err.Error())
	}
}

func (h *salesHandler) handleGetSale(ctx *gin.Context) {
	sale, err := h.salesService.GetSale(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, sales.ErrNotFound) {
			writeError(ctx, http.StatusNotFound, "NOT_FOUND", "sale not found")
			return
		}
		h.logger.Error("failed to read sale", zap.String("sale_id", ctx.Param("id")), zap.Error(err))
		h.writeSaleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sale)
}

func (h *salesHandler) handleGetSaleJournal(ctx *gin.Context) {
	entry, err := h.salesService.GetSaleJournal(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, sales.ErrNotFound):
			writeError(ctx, http.StatusNotFound, "NOT_FOUND", "sale not found")
		case errors.Is(err, sales.ErrJournalNotFound):
			writeError(ctx, http.StatusNotFound, "NOT_FOUND", "journal entry not found")
		default:
			h.logger.Error("failed to read sale journal", zap.String("sale_id", ctx.Param("id")), zap.Error(err))
			h.writeSaleError(ctx, err)
		}
		return
	}
	ctx.JSON(http.StatusOK, entry)
}

// handleListSales handles GET /api/sales with optional customer_id, product_id and sale_number filters.
func (h *salesHandler) handleListSales(ctx *gin.Context) {
	if number := ctx.Query("sale_number"); number != "" {
		sale, err := h.salesService.FindBySaleNumber(ctx.Request.Context(), number)
		switch {
		case errors.Is(err, sales.ErrNotFound):
			ctx.JSON(http.StatusOK, []*sales.Sale{})
		case err != nil:
			h.writeSaleError(ctx, err)
		default:
			ctx.JSON(http.StatusOK, []*sales.Sale{sale})
		}
		return
	}

	results, err := h.salesService.ListSales(ctx.Request.Context(), sales.ListFilter{
		CustomerID: ctx.Query("customer_id"),
		ProductID:  ctx.Query("product_id"),
	})
	if err != nil {
		h.writeSaleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, results)
}
