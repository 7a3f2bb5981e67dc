package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/catalog-api/model"
	"github.com/sahilchouksey/catalog-api/utils/auth"
	"github.com/sahilchouksey/catalog-api/utils/response"
	"gorm.io/gorm"
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	db         *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		db:         db,
	}
}

// authenticate validates the bearer token and checks the user still exists.
// It writes the error response itself and returns nil claims on failure.
func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*auth.Claims, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, response.Unauthorized(c, "Missing authorization token")
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, response.Unauthorized(c, "Invalid authorization format")
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, response.Unauthorized(c, "Token has expired")
		}
		return nil, response.Unauthorized(c, "Invalid token")
	}

	// Tokens of deleted users stop working immediately
	var count int64
	if err := m.db.WithContext(c.UserContext()).Model(&model.User{}).Where("id = ?", claims.UserID).Count(&count).Error; err != nil {
		return nil, response.InternalServerError(c, "Failed to load user")
	}
	if count == 0 {
		return nil, response.Unauthorized(c, "User not found")
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("claims", claims)
	return claims, nil
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := m.authenticate(c)
		if claims == nil {
			return err
		}
		return c.Next()
	}
}

// RequireAdmin is middleware that requires a valid token carrying the admin role
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := m.authenticate(c)
		if claims == nil {
			return err
		}
		if !claims.HasRole(model.RoleAdmin) {
			return response.Forbidden(c, "Admin access required")
		}
		return c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (string, bool) {
	id, ok := c.Locals("user_id").(string)
	return id, ok && id != ""
}

// GetClaims extracts full claims from context
func GetClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals("claims").(*auth.Claims)
	return claims, ok
}
