package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	// All variables
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// JWT Configuration
	JWT_SECRET string
	JWT_ISSUER string
	// Redis Configuration
	REDIS_URL        string
	LOCK_TTL_SECONDS int
	// Logging
	LOG_LEVEL string
	// Scheduled integrity audit
	CRON_ENABLED   bool
	AUDIT_SCHEDULE string
	// DigitalOcean Spaces (faculty thumbnails)
	DO_SPACES_KEY      string
	DO_SPACES_SECRET   string
	DO_SPACES_BUCKET   string
	DO_SPACES_REGION   string
	DO_SPACES_ENDPOINT string
	DO_SPACES_CDN_URL  string
	// CORS
	ALLOWED_ORIGINS string
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	sslMode := os.Getenv("DB_SSL_MODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	lockTTL, err := strconv.Atoi(os.Getenv("LOCK_TTL_SECONDS"))
	if err != nil || lockTTL <= 0 {
		lockTTL = 30
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	cronEnabled := true
	if v := strings.TrimSpace(os.Getenv("CRON_ENABLED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cronEnabled = b
		}
	}

	auditSchedule := os.Getenv("AUDIT_SCHEDULE")
	if auditSchedule == "" {
		// Every 30 minutes (seconds field first)
		auditSchedule = "0 */30 * * * *"
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  sslMode,
		PORT:         port,
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: os.Getenv("JWT_ISSUER"),
		// Redis
		REDIS_URL:        os.Getenv("REDIS_URL"),
		LOCK_TTL_SECONDS: lockTTL,
		// Logging
		LOG_LEVEL: logLevel,
		// Cron
		CRON_ENABLED:   cronEnabled,
		AUDIT_SCHEDULE: auditSchedule,
		// DigitalOcean
		DO_SPACES_KEY:      os.Getenv("DO_SPACES_KEY"),
		DO_SPACES_SECRET:   os.Getenv("DO_SPACES_SECRET"),
		DO_SPACES_BUCKET:   os.Getenv("DO_SPACES_BUCKET"),
		DO_SPACES_REGION:   os.Getenv("DO_SPACES_REGION"),
		DO_SPACES_ENDPOINT: os.Getenv("DO_SPACES_ENDPOINT"),
		DO_SPACES_CDN_URL:  os.Getenv("DO_SPACES_CDN_URL"),
		// CORS
		ALLOWED_ORIGINS: os.Getenv("ALLOWED_ORIGINS"),
	}

	return envVariables, nil
}

// DSN builds the Postgres connection string shared by GORM and lib/pq
func (e *EnviornmentVariable) DSN() string {
	return "host=" + e.DB_HOST +
		" user=" + e.DB_USER_NAME +
		" password=" + e.DB_PASSWORD +
		" dbname=" + e.DB_NAME +
		" port=" + e.DB_PORT +
		" sslmode=" + e.DB_SSL_MODE +
		" TimeZone=UTC"
}
