package handlers

import (
	"net/http"

	"acai-delivery-backend/internal/middleware"
	"acai-delivery-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuthHandler struct {
	attendanceService AttendanceServiceInterface
}

func NewAuthHandler(attendanceService AttendanceServiceInterface) *AuthHandler {
	return &AuthHandler{
		attendanceService: attendanceService,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RegisterRoutes registers operator login and the admin user management routes
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.RefreshToken)
		authGroup.GET("/me", authMiddleware.AuthRequired(), h.Me)
	}

	users := router.Group("/attendance/users", authMiddleware.AuthRequired(), authMiddleware.AdminRequired())
	{
		users.GET("", h.ListUsers)
		users.POST("", h.CreateUser)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)
	}
}

// @Summary Login operator
// @Description Authenticate an attendance user and return a token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} services.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	response, err := h.attendanceService.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, "Login failed", err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// @Summary Refresh token
// @Description Exchange a refresh token for a new token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh request"
// @Success 200 {object} auth.TokenPair
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tokens, err := h.attendanceService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, "Refresh failed", err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Me returns the identity carried by the access token.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized", Message: "no identity on request"})
		return
	}
	c.JSON(http.StatusOK, claims.Identity)
}

func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.attendanceService.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to list users", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// @Summary Create operator
// @Tags attendance
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body services.CreateUserRequest true "User"
// @Success 201 {object} models.AttendanceUser
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/attendance/users [post]
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.attendanceService.CreateUser(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "Failed to create user", err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) GetUser(c *gin.Context) {
	id, ok := uuidParam(c)
	if !ok {
		return
	}

	user, err := h.attendanceService.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Failed to get user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) UpdateUser(c *gin.Context) {
	id, ok := uuidParam(c)
	if !ok {
		return
	}

	var req services.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.attendanceService.UpdateUser(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, "Failed to update user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) DeleteUser(c *gin.Context) {
	id, ok := uuidParam(c)
	if !ok {
		return
	}
	if id.String() == middleware.GetUserID(c) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to delete user", Message: "operators cannot delete themselves"})
		return
	}

	if err := h.attendanceService.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, "Failed to delete user", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func uuidParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid ID", Message: err.Error()})
		return uuid.Nil, false
	}
	return id, true
}
