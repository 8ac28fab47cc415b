package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	cfg, err := ParseFlags([]string{"-port", "8080", "-token-secret", "s3cret", "-token-ttl", "60", "-debug"})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, "http://localhost:8080", cfg.Url())
	assert.Equal(t, "s3cret", cfg.TokenSecret)
	assert.Equal(t, time.Minute, cfg.TokenTTL)
	assert.Equal(t, "dynaform.sqlite", cfg.DBUrl)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.Metrics)
}

func TestParseFlagsNeedsSecret(t *testing.T) {
	_, err := ParseFlags([]string{"-port", "8080"})
	assert.EqualError(t, err, "missing parameter -token-secret")
}
