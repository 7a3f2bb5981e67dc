package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/sahilchouksey/catalog-api/utils/response"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
	log           zerolog.Logger
}

func NewAPIServer(listenAddress string, logger zerolog.Logger) *APIServer {
	return &APIServer{
		app: fiber.New(fiber.Config{
			AppName:      "catalog-api",
			ReadTimeout:  30 * time.Second,
			ErrorHandler: errorHandler,
		}),
		listenAddress: listenAddress,
		log:           logger,
	}
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *APIServer) Run(ctx context.Context) error {
	s.log.Info().Str("address", s.listenAddress).Msg("Starting API Server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.listenAddress)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info().Msg("Shutting down API Server")
		return s.app.Shutdown()
	}
}

// errorHandler renders errors that escape handlers (unknown routes, body
// limits, panics caught by recover) in the standard response shape
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return response.Error(c, fe.Code, fe.Message, "HTTP_ERROR")
	}
	return response.InternalServerError(c, "")
}
