package response

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/catalog-api/utils/validation"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// Response is the envelope every catalog endpoint writes
type Response struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message,omitempty"`
	Data      interface{}  `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
}

// ErrorDetail contains error information. Fields is keyed by the json name
// of the offending request field.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
}

// Offset is the number of rows skipped before the current page
func (p PaginationMeta) Offset() int {
	return (p.CurrentPage - 1) * p.PerPage
}

type PaginatedResponse struct {
	Success    bool           `json:"success"`
	Message    string         `json:"message,omitempty"`
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
	RequestID  string         `json:"request_id,omitempty"`
}

// requestID is set by the requestid middleware
func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}

func write(c *fiber.Ctx, status int, body Response) error {
	body.RequestID = requestID(c)
	return c.Status(status).JSON(body)
}

func Success(c *fiber.Ctx, data interface{}) error {
	return write(c, fiber.StatusOK, Response{Success: true, Data: data})
}

func SuccessWithMessage(c *fiber.Ctx, message string, data interface{}) error {
	return write(c, fiber.StatusOK, Response{Success: true, Message: message, Data: data})
}

// Created returns a 201 with the stored entity
func Created(c *fiber.Ctx, data interface{}) error {
	return write(c, fiber.StatusCreated, Response{
		Success: true,
		Message: "Resource created successfully",
		Data:    data,
	})
}

func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// Error writes a failure envelope with a machine readable code
func Error(c *fiber.Ctx, statusCode int, message string, code string) error {
	return write(c, statusCode, Response{
		Error: &ErrorDetail{Code: code, Message: message},
	})
}

func ErrorWithDetails(c *fiber.Ctx, statusCode int, message string, code string, details string) error {
	return write(c, statusCode, Response{
		Error: &ErrorDetail{Code: code, Message: message, Details: details},
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message, "BAD_REQUEST")
}

func Unauthorized(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Unauthorized access"
	}
	return Error(c, fiber.StatusUnauthorized, message, "UNAUTHORIZED")
}

func Forbidden(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Access forbidden"
	}
	return Error(c, fiber.StatusForbidden, message, "FORBIDDEN")
}

func NotFound(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Resource not found"
	}
	return Error(c, fiber.StatusNotFound, message, "NOT_FOUND")
}

func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, message, "CONFLICT")
}

func TooManyRequests(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Too many requests"
	}
	return Error(c, fiber.StatusTooManyRequests, message, "TOO_MANY_REQUESTS")
}

// ValidationError returns a 422. Validator failures are broken down per
// field; anything else (malformed JSON) goes into Details.
func ValidationError(c *fiber.Ctx, err error) error {
	detail := &ErrorDetail{Code: "VALIDATION_ERROR", Message: "Validation failed"}
	if fields := validation.FormatValidationErrors(err); len(fields) > 0 {
		detail.Fields = fields
	} else {
		detail.Details = err.Error()
	}
	return write(c, fiber.StatusUnprocessableEntity, Response{Error: detail})
}

func InternalServerError(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Internal server error"
	}
	return Error(c, fiber.StatusInternalServerError, message, "INTERNAL_ERROR")
}

func ServiceUnavailable(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	return Error(c, fiber.StatusServiceUnavailable, message, "SERVICE_UNAVAILABLE")
}

func Paginated(c *fiber.Ctx, data interface{}, pagination PaginationMeta) error {
	return c.Status(fiber.StatusOK).JSON(PaginatedResponse{
		Success:    true,
		Data:       data,
		Pagination: pagination,
		RequestID:  requestID(c),
	})
}

// Page reads ?page= and ?limit= and clamps them the same way the services do
func Page(c *fiber.Ctx, defaultLimit int) PaginationMeta {
	return CalculatePagination(c.QueryInt("page", 1), c.QueryInt("limit", defaultLimit), 0)
}

// CalculatePagination clamps page and limit and derives the page count
func CalculatePagination(page, limit int, total int64) PaginationMeta {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPerPage
	}
	if limit > maxPerPage {
		limit = maxPerPage
	}

	totalPages := int(total) / limit
	if int(total)%limit > 0 {
		totalPages++
	}

	return PaginationMeta{
		CurrentPage: page,
		PerPage:     limit,
		Total:       total,
		TotalPages:  totalPages,
	}
}
