package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/catalog-api/model"
	"github.com/sahilchouksey/catalog-api/services"
	authutil "github.com/sahilchouksey/catalog-api/utils/auth"
	"github.com/sahilchouksey/catalog-api/utils/middleware"
	"github.com/sahilchouksey/catalog-api/utils/response"
	"github.com/sahilchouksey/catalog-api/utils/validation"
)

// AuthHandler handles authentication and self-service requests
type AuthHandler struct {
	users                *services.UserService
	admissions           *services.AdmissionService
	jwtManager           *authutil.JWTManager
	bruteForceProtection *middleware.BruteForceProtection
	validator            *validation.Validator
}

// NewAuthHandler creates a new auth handler. bruteForceProtection may be nil.
func NewAuthHandler(users *services.UserService, admissions *services.AdmissionService, jwtManager *authutil.JWTManager, bruteForceProtection *middleware.BruteForceProtection) *AuthHandler {
	return &AuthHandler{
		users:                users,
		admissions:           admissions,
		jwtManager:           jwtManager,
		bruteForceProtection: bruteForceProtection,
		validator:            validation.NewValidator(),
	}
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Email    string    `json:"email" validate:"required,email"`
	Password string    `json:"password" validate:"required,min=8"`
	Name     string    `json:"name" validate:"required,min=2,max=255"`
	Birthday time.Time `json:"birthday"`
	Phone    string    `json:"phone" validate:"max=32"`
	Address  string    `json:"address"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []int     `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Roles:     services.RoleNumbers(u),
		CreatedAt: u.CreatedAt,
	}
}

// Register handles POST /api/v1/auth/register. New accounts are students.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	user, err := h.users.Create(c.UserContext(), services.UserInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     validation.SanitizeString(req.Name),
		Birthday: req.Birthday,
		Phone:    req.Phone,
		Address:  validation.SanitizeString(req.Address),
		Roles:    []int{model.RoleStudent},
	})
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, newUserResponse(user))
}
