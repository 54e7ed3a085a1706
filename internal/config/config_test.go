package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	require.ErrorIs(t, err, ErrMissingJWTSecret)

	t.Setenv("JWT_SECRET", "too-short")
	_, err = Load()
	require.ErrorIs(t, err, ErrShortJWTSecret)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("x", 32))
	t.Setenv("RESOLVER_REPROBE_DELAY", "200ms")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.HTTPPort)
	require.Equal(t, 24*time.Hour, cfg.JWTTTL)
	require.Equal(t, 200*time.Millisecond, cfg.ReprobeDelay)
	require.Equal(t, 4, cfg.SectionConcurrency)
}

func TestAllowedOriginsTrimsEntries(t *testing.T) {
	cfg := &Config{CORSOrigins: " https://a.example , https://b.example,, "}
	require.Equal(t, "https://a.example,https://b.example", cfg.AllowedOrigins())
}
