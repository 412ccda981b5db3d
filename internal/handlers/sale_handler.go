package handlers

import (
	"net/http"
	"strconv"
	"time"

	"acai-delivery-backend/internal/middleware"
	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type SaleHandler struct {
	saleService SaleServiceInterface
}

func NewSaleHandler(saleService SaleServiceInterface) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

// RegisterRoutes registers the routes for sales history and cancellation
func (h *SaleHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	sales := router.Group("/sales", authMiddleware.AuthRequired())
	{
		sales.GET("", authMiddleware.PermissionRequired(models.CapViewSales), h.ListSales)
		sales.GET("/summary", authMiddleware.PermissionRequired(models.CapViewCashReport), h.DailySummary)
		sales.GET("/:id", authMiddleware.PermissionRequired(models.CapViewSales), h.GetSale)
		sales.POST("/:id/cancel", authMiddleware.PermissionRequired(models.CapCancel), h.CancelSale)
	}
}

// @Summary List sales
// @Tags sales
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Page size (default: 50)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Sale
// @Router /api/v1/sales [get]
func (h *SaleHandler) ListSales(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	sales, err := h.saleService.ListSales(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, "Failed to list sales", err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

// @Summary Daily cash summary
// @Description Totals per payment method and channel plus cancellations
// @Tags sales
// @Security BearerAuth
// @Produce json
// @Param date query string false "Day as YYYY-MM-DD (default: today)"
// @Success 200 {object} services.DailySummary
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/sales/summary [get]
func (h *SaleHandler) DailySummary(c *gin.Context) {
	day := time.Now()
	if q := c.Query("date"); q != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, q, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid date", Message: "expected YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	summary, err := h.saleService.DailySummary(c.Request.Context(), day)
	if err != nil {
		respondError(c, "Failed to summarise sales", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *SaleHandler) GetSale(c *gin.Context) {
	id, ok := uuidParam(c)
	if !ok {
		return
	}

	sale, err := h.saleService.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Failed to get sale", err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// @Summary Cancel a sale
// @Tags sales
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Sale ID"
// @Param request body services.CancelSaleRequest true "Reason"
// @Success 200 {object} models.Sale
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/sales/{id}/cancel [post]
func (h *SaleHandler) CancelSale(c *gin.Context) {
	id, ok := uuidParam(c)
	if !ok {
		return
	}

	var req services.CancelSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sale, err := h.saleService.CancelSale(c.Request.Context(), id, req.Reason, middleware.GetOperatorID(c))
	if err != nil {
		respondError(c, "Failed to cancel sale", err)
		return
	}
	c.JSON(http.StatusOK, sale)
}
