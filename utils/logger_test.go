package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "warn", false)

	log.Info().Msg("hidden")
	log.Warn().Str("op", "delete_subtree").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"op":"delete_subtree"`)
	assert.Contains(t, out, `"service":"catalog-api"`)
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "loud", false)

	log.Debug().Msg("debug")
	log.Info().Msg("info")

	assert.NotContains(t, buf.String(), `"message":"debug"`)
	assert.Contains(t, buf.String(), `"message":"info"`)
}
