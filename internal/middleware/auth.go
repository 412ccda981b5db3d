package middleware

import (
	"net/http"
	"strings"

	"acai-delivery-backend/internal/models"
	"acai-delivery-backend/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const claimsKey = "claims"

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
}

func NewAuthMiddleware(jwtManager *auth.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

func (a *AuthMiddleware) parse(c *gin.Context) (*auth.Claims, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, "Authorization header required"
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return nil, "Invalid authorization header format"
	}

	claims, err := a.jwtManager.ValidateToken(tokenParts[1])
	if err != nil {
		return nil, "Invalid token"
	}
	return claims, ""
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(claimsKey, claims)
	c.Set("user_id", claims.UserID)
	c.Set("username", claims.Username)
	c.Set("role", claims.Role)
}

// AuthRequired middleware validates JWT token
func (a *AuthMiddleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, problem := a.parse(c)
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": problem})
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth records the operator when a valid token is sent and lets
// anonymous storefront requests through.
func (a *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		claims, problem := a.parse(c)
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": problem})
			c.Abort()
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// RoleRequired middleware checks if user has required role
func (a *AuthMiddleware) RoleRequired(requiredRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{"error": "Role information missing"})
			c.Abort()
			return
		}

		userRole := role.(string)
		for _, requiredRole := range requiredRoles {
			if userRole == string(requiredRole) {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		c.Abort()
	}
}

// AdminRequired middleware ensures user is an admin
func (a *AuthMiddleware) AdminRequired() gin.HandlerFunc {
	return a.RoleRequired(models.RoleAdmin)
}

// PermissionRequired lets through admins and operators holding capability.
func (a *AuthMiddleware) PermissionRequired(capability models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Permission information missing"})
			c.Abort()
			return
		}
		if claims.Role != string(models.RoleAdmin) && !claims.Can(string(capability)) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Missing permission " + string(capability)})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetClaims returns the token claims of the request, or nil.
func GetClaims(c *gin.Context) *auth.Claims {
	if v, exists := c.Get(claimsKey); exists {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetUserID helper function to extract user ID from context
func GetUserID(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		return userID.(string)
	}
	return ""
}

// GetOperatorID is the authenticated user id as a UUID, or nil for
// anonymous requests.
func GetOperatorID(c *gin.Context) *uuid.UUID {
	id, err := uuid.Parse(GetUserID(c))
	if err != nil {
		return nil
	}
	return &id
}

// GetUserRole helper function to extract user role from context
func GetUserRole(c *gin.Context) string {
	if role, exists := c.Get("role"); exists {
		return role.(string)
	}
	return ""
}
