package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sahilchouksey/catalog-api/api"
	"github.com/sahilchouksey/catalog-api/config"
	"github.com/sahilchouksey/catalog-api/database"
	"github.com/sahilchouksey/catalog-api/router"
	"github.com/sahilchouksey/catalog-api/services/cron"
	"github.com/sahilchouksey/catalog-api/services/spaces"
	"github.com/sahilchouksey/catalog-api/utils"
	"github.com/sahilchouksey/catalog-api/utils/cache"
)

func SetupAndRunServer() error {

	// Load ENV; a missing .env is fine when the variables come from the environment
	envErr := config.LoadENV()

	getEnv, err := config.Get()
	if err != nil {
		return err
	}
	if getEnv.JWT_SECRET == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}

	logger := utils.NewLogger(getEnv.LOG_LEVEL, getEnv.GO_ENV != "production")
	if envErr != nil {
		logger.Debug().Err(envErr).Msg("no .env file loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		logger.Error().Err(err).Msg("Check whether the Postgres is running or not")
		return err
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		logger.Error().Err(err).Msg("Failed to initialize database tables")
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps := router.Deps{
		Env:      getEnv,
		Logger:   logger,
		Registry: registry,
	}

	if getEnv.REDIS_URL != "" {
		redisCache, err := cache.NewRedisCache(getEnv.REDIS_URL)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Redis")
		} else {
			defer redisCache.Close()
			deps.Redis = redisCache
		}
	}

	spacesClient, err := spaces.NewClient(spaces.Config{
		AccessKey: getEnv.DO_SPACES_KEY,
		SecretKey: getEnv.DO_SPACES_SECRET,
		Bucket:    getEnv.DO_SPACES_BUCKET,
		Region:    getEnv.DO_SPACES_REGION,
		Endpoint:  getEnv.DO_SPACES_ENDPOINT,
		CDNURL:    getEnv.DO_SPACES_CDN_URL,
	})
	switch {
	case errors.Is(err, spaces.ErrNotConfigured):
		logger.Info().Msg("Spaces not configured: thumbnail uploads disabled")
	case err != nil:
		logger.Warn().Err(err).Msg("Failed to create Spaces client")
	default:
		deps.Spaces = spacesClient
	}

	// Integrity audit over lib/pq, scheduled by the cron manager
	auditStore, err := database.StartAudit(logger.With().Str("component", "audit").Logger())
	if err != nil {
		logger.Warn().Err(err).Msg("Integrity audit disabled")
	} else {
		defer auditStore.Close()

		cronManager := cron.NewCronManager(store.GetDB(), auditStore, registry, logger)
		deps.Auditor = cronManager
		if getEnv.CRON_ENABLED {
			if err := cronManager.Start(getEnv.AUDIT_SCHEDULE); err != nil {
				// Don't fail the app, just log the warning
				logger.Warn().Err(err).Msg("Failed to start cron jobs")
			} else {
				defer cronManager.Stop()
			}
		}
	}

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT), logger)
	app := server.GetEngine()

	// Setup Routes
	router.SetupRoutes(app, store, deps)

	return server.Run(ctx)
}
