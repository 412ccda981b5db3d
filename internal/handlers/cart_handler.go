package handlers

import (
	"io"
	"net/http"
	"time"

	"acai-delivery-backend/internal/middleware"
	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/internal/services"
	"acai-delivery-backend/internal/upsell"
	"acai-delivery-backend/pkg/money"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	suggestionEvent  = "suggestion"
	streamKeepAlive  = 15 * time.Second
	keepAliveComment = "ping"
)

type CartHandler struct {
	cartService       CartServiceInterface
	suggestionService SuggestionServiceInterface
	saleService       SaleServiceInterface
}

func NewCartHandler(cartService CartServiceInterface, suggestionService SuggestionServiceInterface, saleService SaleServiceInterface) *CartHandler {
	return &CartHandler{
		cartService:       cartService,
		suggestionService: suggestionService,
		saleService:       saleService,
	}
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type UpdateWeightRequest struct {
	WeightKg decimal.Decimal `json:"weight_kg"`
}

type LineDiscountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type AcceptSuggestionRequest struct {
	Key string `json:"key" binding:"required"`
}

// RegisterRoutes registers the routes for cart sessions and suggestions
func (h *CartHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	carts := router.Group("/carts")
	{
		carts.POST("", h.CreateCart)
		carts.GET("/:id", h.GetCart)
		carts.DELETE("/:id", h.DeleteCart)

		carts.POST("/:id/items", h.AddItem)
		carts.POST("/:id/items/weighed", h.AddWeighedItem)
		carts.PATCH("/:id/items/:line_id", h.UpdateQuantity)
		carts.DELETE("/:id/items/:line_id", h.RemoveLine)
		carts.DELETE("/:id/items", h.ClearCart)
		carts.PUT("/:id/items/:line_id/weight", h.UpdateWeight)

		// Discounts are given at the PDV only
		carts.PUT("/:id/discount", authMiddleware.AuthRequired(), authMiddleware.PermissionRequired(models.CapDiscount), h.SetDiscount)
		carts.PUT("/:id/items/:line_id/discount", authMiddleware.AuthRequired(), authMiddleware.PermissionRequired(models.CapDiscount), h.SetLineDiscount)

		carts.GET("/:id/suggestions", h.GetSuggestions)
		carts.POST("/:id/suggestions/dismiss", h.DismissSuggestion)
		carts.POST("/:id/suggestions/accept", h.AcceptSuggestion)
		carts.GET("/:id/suggestions/stream", h.StreamSuggestions)

		carts.POST("/:id/checkout", authMiddleware.OptionalAuth(), h.Checkout)
	}
}

// CreateCart godoc
// @Summary Create a cart
// @Tags cart
// @Produce json
// @Success 201 {object} services.CartView
// @Router /carts [post]
func (h *CartHandler) CreateCart(c *gin.Context) {
	view, err := h.cartService.CreateCart(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to create cart", err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// GetCart godoc
// @Summary Get a cart
// @Description Lines, priced summary and the suggestion banner
// @Tags cart
// @Produce json
// @Param id path string true "Cart ID"
// @Success 200 {object} services.CartView
// @Failure 404 {object} ErrorResponse
// @Router /carts/{id} [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	view, err := h.cartService.GetCart(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to get cart", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CartHandler) DeleteCart(c *gin.Context) {
	if err := h.cartService.DeleteCart(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "Failed to delete cart", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddItem godoc
// @Summary Add item to cart
// @Description Adds a product, merging with an identical plain line
// @Tags cart
// @Accept json
// @Produce json
// @Param id path string true "Cart ID"
// @Param item body services.AddItemRequest true "Item"
// @Success 200 {object} services.CartView
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /carts/{id}/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	var req services.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.cartService.AddItem(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, "Failed to add item", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CartHandler) AddWeighedItem(c *gin.Context) {
	var req services.AddWeighedItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.cartService.AddWeighedItem(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, "Failed to add weighed item", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.cartService.UpdateQuantity(c.Request.Context(), c.Param("id"), c.Param("line_id"), req.Quantity)
	if err != nil {
		respondError(c, "Failed to update item", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CartHandler) RemoveLine(c *gin.Context) {
	view, err := h.cartService.RemoveLine(c.Request.Context(), c.Param("id"), c.Param("line_id"))
	if err != nil {
		respondError(c, "Failed to remove item", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	view, err := h.cartService.ClearCart(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to clear cart", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateWeight godoc
// @Summary Re-weigh a weighed line
// @Tags cart
// @Accept json
// @Produce json
// @Param id path string true "Cart ID"
// @Param line_id path string true "Line ID"
// @Param weight body UpdateWeightRequest true "Weight in kg"
// @Success 200 {object} services.CartView
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /carts/{id}/items/{line_id}/weight [put]
func (h *CartHandler) UpdateWeight(c *gin.Context) {
	var req UpdateWeightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.cartService.UpdateWeight(c.Request.Context(), c.Param("id"), c.Param("line_id"), req.WeightKg)
	if err != nil {
		respondError(c, "Failed to update weight", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CartHandler) SetLineDiscount(c *gin.Context) {
	var req LineDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.cartService.SetLineDiscount(c.Request.Context(), c.Param("id"), c.Param("line_id"), req.Amount)
	if err != nil {
		respondError(c, "Failed to apply line discount", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CartHandler) SetDiscount(c *gin.Context) {
	var req money.Discount
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.cartService.SetDiscount(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, "Failed to apply discount", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetSuggestions godoc
// @Summary Get cart suggestions
// @Description The banner state and every suggestion computed for the cart
// @Tags suggestions
// @Produce json
// @Param id path string true "Cart ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /carts/{id}/suggestions [get]
func (h *CartHandler) GetSuggestions(c *gin.Context) {
	id := c.Param("id")
	view, err := h.cartService.GetCart(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Failed to get suggestions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"display":     view.Suggestions,
		"suggestions": h.suggestionService.Suggestions(id),
	})
}

func (h *CartHandler) DismissSuggestion(c *gin.Context) {
	id := c.Param("id")
	if !h.suggestionService.Dismiss(id) {
		respondError(c, "Failed to dismiss suggestion", services.ErrCartNotFound)
		return
	}
	c.JSON(http.StatusOK, h.suggestionService.Display(id))
}

func (h *CartHandler) AcceptSuggestion(c *gin.Context) {
	var req AcceptSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.cartService.AcceptSuggestion(c.Request.Context(), c.Param("id"), req.Key)
	if err != nil {
		respondError(c, "Failed to accept suggestion", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// StreamSuggestions godoc
// @Summary Stream the suggestion banner
// @Description Server-sent events: one "suggestion" event with the current
// @Description display, then one per rotation, cart change or dismissal.
// @Description A hidden display closes the stream once the cart is gone.
// @Tags suggestions
// @Produce text/event-stream
// @Param id path string true "Cart ID"
// @Router /carts/{id}/suggestions/stream [get]
func (h *CartHandler) StreamSuggestions(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.cartService.GetCart(c.Request.Context(), id); err != nil {
		respondError(c, "Failed to stream suggestions", err)
		return
	}

	// Holds only the latest display; older ones are superseded.
	updates := make(chan upsell.Display, 1)
	unsubscribe, ended, ok := h.suggestionService.Subscribe(id, func(d upsell.Display) {
		select {
		case updates <- d:
		default:
			select {
			case <-updates:
			default:
			}
			updates <- d
		}
	})
	if !ok {
		respondError(c, "Failed to stream suggestions", services.ErrCartNotFound)
		return
	}
	defer unsubscribe()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent(suggestionEvent, h.suggestionService.Display(id))
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case d := <-updates:
			c.SSEvent(suggestionEvent, d)
			return true
		case <-keepAlive.C:
			_, _ = io.WriteString(w, ": "+keepAliveComment+"\n\n")
			return true
		case <-ended:
			// The cart was checked out or deleted.
			c.SSEvent(suggestionEvent, upsell.Display{})
			return false
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Checkout godoc
// @Summary Submit the cart as a sale
// @Description Anonymous storefront checkouts are delivery orders; operators
// @Description may register PDV and manual sales.
// @Tags cart
// @Accept json
// @Produce json
// @Param id path string true "Cart ID"
// @Param payment body services.Payment true "Payment"
// @Success 201 {object} models.Sale
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /carts/{id}/checkout [post]
func (h *CartHandler) Checkout(c *gin.Context) {
	var payment services.Payment
	if err := c.ShouldBindJSON(&payment); err != nil {
		badRequest(c, err)
		return
	}

	payment.OperatorID = middleware.GetOperatorID(c)
	if payment.OperatorID == nil {
		payment.Channel = models.ChannelDelivery
	}

	sale, err := h.saleService.SubmitCart(c.Request.Context(), c.Param("id"), payment)
	if err != nil {
		respondError(c, "Failed to checkout", err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}
