package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/catalog-api/services"
	"github.com/sahilchouksey/catalog-api/utils/response"
)

// LoginRequest represents a user login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	User        UserResponse `json:"user"`
	AccessToken string       `json:"access_token"`
	ExpiresIn   int          `json:"expires_in"` // in seconds
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	ctx := c.UserContext()
	ip := c.IP()

	user, err := h.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			// Record failed attempt even if user not found
			_ = h.bruteForceProtection.RecordFailedAttempt(ctx, ip)
		}
		return response.FromError(c, err)
	}

	// Clear failed attempts on successful login
	_ = h.bruteForceProtection.RecordSuccessfulAttempt(ctx, ip)

	accessToken, _, err := h.jwtManager.GenerateAccessToken(user.ID, user.Email, services.RoleNumbers(user))
	if err != nil {
		return response.InternalServerError(c, "Failed to generate access token")
	}

	return response.Success(c, LoginResponse{
		User:        newUserResponse(user),
		AccessToken: accessToken,
		ExpiresIn:   int(h.jwtManager.Expiry().Seconds()),
	})
}
