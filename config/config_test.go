package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_HOST", "DB_PORT", "DB_SSL_MODE", "LOCK_TTL_SECONDS", "LOG_LEVEL", "CRON_ENABLED", "AUDIT_SCHEDULE"} {
		t.Setenv(k, "")
	}

	env, err := Get()
	require.NoError(t, err)

	assert.Equal(t, 8080, env.PORT)
	assert.Equal(t, "localhost", env.DB_HOST)
	assert.Equal(t, "5432", env.DB_PORT)
	assert.Equal(t, "disable", env.DB_SSL_MODE)
	assert.Equal(t, 30, env.LOCK_TTL_SECONDS)
	assert.Equal(t, "info", env.LOG_LEVEL)
	assert.True(t, env.CRON_ENABLED)
	assert.Equal(t, "0 */30 * * * *", env.AUDIT_SCHEDULE)
}

func TestGetOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOCK_TTL_SECONDS", "5")
	t.Setenv("CRON_ENABLED", "false")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER_NAME", "catalog")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "catalog")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_SSL_MODE", "require")

	env, err := Get()
	require.NoError(t, err)

	assert.Equal(t, 9000, env.PORT)
	assert.Equal(t, 5, env.LOCK_TTL_SECONDS)
	assert.False(t, env.CRON_ENABLED)
	assert.Equal(t, "host=db user=catalog password=secret dbname=catalog port=6543 sslmode=require TimeZone=UTC", env.DSN())
}
