package api

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/sdk/client"
)

const (
	defaultPreviewLimit  = 8
	defaultConcurrency   = 8
	defaultRemoteTimeout = 10 * time.Second
)

// Config carries environment-driven settings for the catalog API process.
type Config struct {
	Port              string
	ProductsAPIURL    string
	CategoriesAPIURL  string
	PostgresDSN       string
	AdminToken        string
	PreviewLimit      int
	Concurrency       int
	RemoteTimeout     time.Duration
	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		ProductsAPIURL:    strings.TrimSpace(os.Getenv("PRODUCTS_API_URL")),
		CategoriesAPIURL:  strings.TrimSpace(os.Getenv("CATEGORIES_API_URL")),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		AdminToken:        strings.TrimSpace(os.Getenv("ADMIN_TOKEN")),
		PreviewLimit:      defaultPreviewLimit,
		Concurrency:       defaultConcurrency,
		RemoteTimeout:     defaultRemoteTimeout,
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
	}
	var err error
	if cfg.PreviewLimit, err = envInt("CATALOG_PREVIEW_LIMIT", defaultPreviewLimit, 0); err != nil {
		return Config{}, err
	}
	if cfg.Concurrency, err = envInt("CATALOG_CONCURRENCY", defaultConcurrency, 1); err != nil {
		return Config{}, err
	}
	seconds, err := envInt("REMOTE_TIMEOUT_SECONDS", int(defaultRemoteTimeout/time.Second), 1)
	if err != nil {
		return Config{}, err
	}
	cfg.RemoteTimeout = time.Duration(seconds) * time.Second
	for key, raw := range map[string]string{"PRODUCTS_API_URL": cfg.ProductsAPIURL, "CATEGORIES_API_URL": cfg.CategoriesAPIURL} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || !u.IsAbs() {
			return Config{}, fmt.Errorf("%s must be an absolute URL", key)
		}
	}
	return cfg, nil
}

// RemoteConfigured reports whether both collection functions are reachable over HTTP.
func (c Config) RemoteConfigured() bool {
	return c.ProductsAPIURL != "" && c.CategoriesAPIURL != ""
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback, min int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min {
		return 0, fmt.Errorf("%s must be an integer >= %d", key, min)
	}
	return n, nil
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
