package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "PRODUCTS_API_URL", "CATEGORIES_API_URL", "POSTGRES_DSN", "ADMIN_TOKEN",
		"CATALOG_PREVIEW_LIMIT", "CATALOG_CONCURRENCY", "REMOTE_TIMEOUT_SECONDS",
		"TEMPORAL_ADDRESS", "TEMPORAL_NAMESPACE", "TEMPORAL_DISABLED"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, 8, cfg.PreviewLimit)
	require.Equal(t, 8, cfg.Concurrency)
	require.Equal(t, 10*time.Second, cfg.RemoteTimeout)
	require.Equal(t, client.DefaultHostPort, cfg.TemporalAddress)
	require.Equal(t, client.DefaultNamespace, cfg.TemporalNamespace)
	require.False(t, cfg.TemporalDisabled)
	require.False(t, cfg.RemoteConfigured())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PRODUCTS_API_URL", "https://fn.example.com/products")
	t.Setenv("CATEGORIES_API_URL", "https://fn.example.com/categories")
	t.Setenv("CATALOG_PREVIEW_LIMIT", "0")
	t.Setenv("CATALOG_CONCURRENCY", "3")
	t.Setenv("REMOTE_TIMEOUT_SECONDS", "4")
	t.Setenv("TEMPORAL_DISABLED", "yes")
	t.Setenv("ADMIN_TOKEN", " token ")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.RemoteConfigured())
	require.Zero(t, cfg.PreviewLimit)
	require.Equal(t, 3, cfg.Concurrency)
	require.Equal(t, 4*time.Second, cfg.RemoteTimeout)
	require.True(t, cfg.TemporalDisabled)
	require.Equal(t, "token", cfg.AdminToken)
}

func TestLoadConfig_RejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"CATALOG_PREVIEW_LIMIT":  "-1",
		"CATALOG_CONCURRENCY":    "0",
		"REMOTE_TIMEOUT_SECONDS": "soon",
		"PRODUCTS_API_URL":       "/relative",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadConfig()
			require.ErrorContains(t, err, key)
		})
	}
}
