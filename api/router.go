package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sales_saga/internal/sales"
)

// InitRoutes registers the sales endpoints on the given Gin engine.
// idempotency may be nil, which disables Idempotency-Key handling.
func InitRoutes(e *gin.Engine, salesService *sales.Service, idempotency IdempotencyStore, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	salesHandler := NewSalesHandler(salesService, idempotency, logger)

	g := e.Group("/api/sales")
	g.POST("", salesHandler.handleCreateSale)
	g.GET("", salesHandler.handleListSales)
	g.GET("/:id", salesHandler.handleGetSale)
	g.GET("/:id/journal", salesHandler.handleGetSaleJournal)

	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	e.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "Sales service is running")
	})
}
