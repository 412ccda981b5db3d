package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"acai-delivery-backend/internal/middleware"
	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/internal/services"

	"github.com/gin-gonic/gin"
)

const imageFormField = "image"

type ProductHandler struct {
	productService ProductServiceInterface
	imageService   ImageServiceInterface
}

func NewProductHandler(productService ProductServiceInterface, imageService ImageServiceInterface) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		imageService:   imageService,
	}
}

// RegisterRoutes registers the catalog and product image routes
func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	manage := authMiddleware.PermissionRequired(models.CapManageProducts)

	products := router.Group("/products")
	{
		products.GET("", authMiddleware.OptionalAuth(), h.ListProducts)
		products.GET("/:id", h.GetProduct)

		products.POST("", authMiddleware.AuthRequired(), manage, h.CreateProduct)
		products.PUT("/:id", authMiddleware.AuthRequired(), manage, h.UpdateProduct)
		products.DELETE("/:id", authMiddleware.AuthRequired(), manage, h.DeleteProduct)
		products.POST("/:id/image", authMiddleware.AuthRequired(), manage, h.UploadImage)
	}

	router.GET("/images/:id", h.GetImage)
}

// @Summary List products
// @Description List the products on sale, or search them with q. Operators
// @Description allowed to manage products may pass include_inactive=true.
// @Tags products
// @Produce json
// @Param q query string false "Search query"
// @Param limit query int false "Search limit (default: 20)"
// @Param include_inactive query bool false "Include inactive products"
// @Success 200 {array} models.Product
// @Router /api/v1/products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()

	if query := c.Query("q"); query != "" {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		products, err := h.productService.SearchProducts(ctx, query, limit)
		if err != nil {
			respondError(c, "Failed to search products", err)
			return
		}
		c.JSON(http.StatusOK, products)
		return
	}

	activeOnly := true
	if c.Query("include_inactive") == "true" {
		claims := middleware.GetClaims(c)
		if claims == nil || (claims.Role != string(models.RoleAdmin) && !claims.Can(string(models.CapManageProducts))) {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "Forbidden", Message: "inactive products need can_manage_products"})
			return
		}
		activeOnly = false
	}

	products, err := h.productService.ListProducts(ctx, activeOnly)
	if err != nil {
		respondError(c, "Failed to list products", err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// @Summary Get product by ID
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} models.Product
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to get product", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// @Summary Create a new product
// @Tags products
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body services.ProductRequest true "Product"
// @Success 201 {object} models.Product
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req services.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "Failed to create product", err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req services.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, "Failed to update product", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.productService.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "Failed to delete product", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Upload product image
// @Description Multipart upload in the "image" field. The image is resized
// @Description and stored as JPEG.
// @Tags products
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Product ID"
// @Param image formData file true "Image"
// @Success 200 {object} map[string]string
// @Failure 413 {object} ErrorResponse
// @Failure 415 {object} ErrorResponse
// @Router /api/v1/products/{id}/image [post]
func (h *ProductHandler) UploadImage(c *gin.Context) {
	limit := h.imageService.MaxUploadBytes()
	// Multipart framing adds a little on top of the file itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+64*1024)

	file, err := c.FormFile(imageFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, "Failed to upload image", services.ErrImageTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid upload", Message: err.Error()})
		return
	}
	if file.Size > limit {
		respondError(c, "Failed to upload image", services.ErrImageTooLarge)
		return
	}

	f, err := file.Open()
	if err != nil {
		respondError(c, "Failed to upload image", err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		respondError(c, "Failed to upload image", err)
		return
	}

	url, err := h.imageService.UploadProductImage(c.Request.Context(), c.Param("id"), data)
	if err != nil {
		respondError(c, "Failed to upload image", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": url})
}

// GetImage streams a stored product image.
func (h *ProductHandler) GetImage(c *gin.Context) {
	r, err := h.imageService.OpenImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to get image", err)
		return
	}
	defer r.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, -1, "image/jpeg", r, nil)
}
