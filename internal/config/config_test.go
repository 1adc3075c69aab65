package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("REQUEST_TIMEOUT", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, "", cfg.RedisURL)
}

func TestLoadInvalidTimeout(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "not-a-number")
	_, err := Load()
	require.Error(t, err)
}
