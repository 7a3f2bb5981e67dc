package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahilchouksey/catalog-api/services"
	"github.com/sahilchouksey/catalog-api/services/consistency"
	"github.com/sahilchouksey/catalog-api/utils/validation"
)

func serve(t *testing.T, h fiber.Handler) (int, Response, string) {
	t.Helper()
	app := fiber.New()
	app.Use(requestid.New())
	app.Get("/", h)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body Response
	if resp.StatusCode != fiber.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp.StatusCode, body, resp.Header.Get("Retry-After")
}

func TestFromError(t *testing.T) {
	// service sentinels reach the handler wrapped by the engine
	wrapped := func(err error) error { return consistency.Classify("update faculty", err) }

	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"not found", consistency.NotFound("get", consistency.Course, "c1"), fiber.StatusNotFound, "NOT_FOUND"},
		{"invalid", wrapped(fmt.Errorf("%w: curriculum x does not exist", services.ErrInvalidInput)), fiber.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"code taken", wrapped(services.ErrCodeTaken), fiber.StatusConflict, "CONFLICT"},
		{"email taken", services.ErrEmailTaken, fiber.StatusConflict, "CONFLICT"},
		{"already registered", wrapped(services.ErrAlreadyRegistered), fiber.StatusConflict, "CONFLICT"},
		{"credentials", services.ErrInvalidCredentials, fiber.StatusUnauthorized, "UNAUTHORIZED"},
		{"locked", services.ErrLocked, fiber.StatusConflict, "LOCKED"},
		{"forbidden", fmt.Errorf("%w: changing roles needs the admin role", services.ErrForbidden), fiber.StatusForbidden, "FORBIDDEN"},
		{"no capacity", wrapped(services.ErrNoCapacity), fiber.StatusBadRequest, "BAD_REQUEST"},
		{"nothing", wrapped(services.ErrNothingToProcess), fiber.StatusBadRequest, "BAD_REQUEST"},
		{"transient", &consistency.Error{Op: "delete", Kind: consistency.KindTransient}, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"constraint", &consistency.Error{Op: "delete", Kind: consistency.KindConstraintViolation}, fiber.StatusInternalServerError, "CONSTRAINT_VIOLATION"},
		{"other", errors.New("boom"), fiber.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body, retry := serve(t, func(c *fiber.Ctx) error { return FromError(c, tt.err) })
			assert.Equal(t, tt.want, status)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.RequestID)
			if tt.code == "LOCKED" {
				assert.Equal(t, "1", retry)
			}
		})
	}
}

func TestFromError_HidesInternalDetail(t *testing.T) {
	_, body, _ := serve(t, func(c *fiber.Ctx) error {
		return FromError(c, errors.New("pq: password authentication failed"))
	})
	require.NotNil(t, body.Error)
	assert.Equal(t, "Internal server error", body.Error.Message)
}

func TestValidationError_Fields(t *testing.T) {
	type input struct {
		Title string   `json:"title" validate:"required"`
		IDs   []string `json:"faculty_ids" validate:"ids"`
	}
	err := validation.NewValidator().ValidateStruct(input{IDs: []string{"a", " "}})
	require.Error(t, err)

	status, body, _ := serve(t, func(c *fiber.Ctx) error { return ValidationError(c, err) })
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "title is required", body.Error.Fields["title"])
	assert.Contains(t, body.Error.Fields, "faculty_ids")
	assert.Empty(t, body.Error.Details)
}

func TestValidationError_Malformed(t *testing.T) {
	_, body, _ := serve(t, func(c *fiber.Ctx) error {
		return ValidationError(c, errors.New("unexpected end of JSON input"))
	})
	require.NotNil(t, body.Error)
	assert.Empty(t, body.Error.Fields)
	assert.Equal(t, "unexpected end of JSON input", body.Error.Details)
}

func TestCalculatePagination(t *testing.T) {
	tests := []struct {
		page, limit int
		total       int64
		want        PaginationMeta
	}{
		{1, 10, 0, PaginationMeta{CurrentPage: 1, PerPage: 10, Total: 0, TotalPages: 0}},
		{2, 10, 21, PaginationMeta{CurrentPage: 2, PerPage: 10, Total: 21, TotalPages: 3}},
		{0, 0, 5, PaginationMeta{CurrentPage: 1, PerPage: 10, Total: 5, TotalPages: 1}},
		{3, 500, 250, PaginationMeta{CurrentPage: 3, PerPage: 100, Total: 250, TotalPages: 3}},
	}
	for _, tt := range tests {
		got := CalculatePagination(tt.page, tt.limit, tt.total)
		assert.Equal(t, tt.want, got)
	}
	assert.Equal(t, 200, CalculatePagination(3, 500, 0).Offset())
}

func TestPage(t *testing.T) {
	app := fiber.New()
	var got PaginationMeta
	app.Get("/", func(c *fiber.Ctx) error {
		got = Page(c, 20)
		return c.SendStatus(fiber.StatusNoContent)
	})

	_, err := app.Test(httptest.NewRequest("GET", "/?page=4&limit=abc", nil))
	require.NoError(t, err)
	assert.Equal(t, 4, got.CurrentPage)
	assert.Equal(t, 20, got.PerPage)
	assert.Equal(t, 60, got.Offset())
}
