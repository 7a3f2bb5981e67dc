package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/sahilchouksey/catalog-api/utils/response"
)

// SecurityConfig holds security middleware configuration
type SecurityConfig struct {
	AllowedOrigins    string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	Logger            zerolog.Logger
}

// unlimitedPaths are polled by infrastructure and never rate limited
var unlimitedPaths = map[string]bool{
	"/ping":    true,
	"/metrics": true,
}

// SetupSecurity applies the middleware chain shared by every route
func SetupSecurity(app *fiber.App, config SecurityConfig) {
	app.Use(requestid.New())
	app.Use(RequestLogger(config.Logger))

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         31536000,
		ReferrerPolicy:     "no-referrer",
	}))

	origins := strings.TrimSpace(config.AllowedOrigins)
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
		// Credentials cannot be combined with a wildcard origin
		AllowCredentials: origins != "*",
		ExposeHeaders:    "Retry-After,X-Request-ID",
		MaxAge:           86400,
	}))

	if config.RateLimitRequests > 0 {
		app.Use(limiter.New(limiter.Config{
			Next: func(c *fiber.Ctx) bool {
				return unlimitedPaths[c.Path()]
			},
			Max:        config.RateLimitRequests,
			Expiration: config.RateLimitWindow,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return response.TooManyRequests(c, "Too many requests. Please try again later.")
			},
		}))
	}
}

// RequestLogger writes one structured line per request. Server errors are
// logged at error level, client errors at warn.
func RequestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		chainErr := c.Next()
		if chainErr != nil {
			// Let the app error handler pick the status before we read it
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		var ev *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			ev = log.Error()
		case status >= fiber.StatusBadRequest:
			ev = log.Warn()
		default:
			ev = log.Info()
		}

		id, _ := c.Locals("requestid").(string)
		ev.Str("request_id", id).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.IP()).
			Msg("request")
		return nil
	}
}
