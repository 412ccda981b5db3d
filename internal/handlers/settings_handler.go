package handlers

import (
	"net/http"

	"acai-delivery-backend/internal/middleware"
	"acai-delivery-backend/internal/models"

	"github.com/gin-gonic/gin"
)

type SettingsHandler struct {
	settingsService SettingsServiceInterface
}

func NewSettingsHandler(settingsService SettingsServiceInterface) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

type SuggestionSettingsRequest struct {
	Enabled    *bool `json:"enabled" binding:"required"`
	ShowInCart *bool `json:"show_in_cart" binding:"required"`
}

type SuggestionSettingsResponse struct {
	models.SuggestionSettings
	Effective bool `json:"effective"`
}

func settingsResponse(s models.SuggestionSettings) SuggestionSettingsResponse {
	return SuggestionSettingsResponse{SuggestionSettings: s, Effective: s.Effective()}
}

// RegisterRoutes registers the suggestion settings routes
func (h *SettingsHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	settings := router.Group("/settings")
	{
		settings.GET("/suggestions", h.GetSuggestionSettings)
		settings.PUT("/suggestions",
			authMiddleware.AuthRequired(),
			authMiddleware.PermissionRequired(models.CapManageSettings),
			h.UpdateSuggestionSettings,
		)
	}
}

func (h *SettingsHandler) GetSuggestionSettings(c *gin.Context) {
	c.JSON(http.StatusOK, settingsResponse(h.settingsService.Load(c.Request.Context())))
}

// @Summary Update suggestion settings
// @Description Switch the cart suggestions on or off for every storefront
// @Tags settings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body SuggestionSettingsRequest true "Settings"
// @Success 200 {object} SuggestionSettingsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/settings/suggestions [put]
func (h *SettingsHandler) UpdateSuggestionSettings(c *gin.Context) {
	var req SuggestionSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	updated, err := h.settingsService.Update(c.Request.Context(), models.SuggestionSettings{
		Enabled:    *req.Enabled,
		ShowInCart: *req.ShowInCart,
	})
	if err != nil {
		respondError(c, "Failed to update settings", err)
		return
	}
	c.JSON(http.StatusOK, settingsResponse(updated))
}
