package demoapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls the demo API behavior and limits.
type Config struct {
	// MaxUploadBytes caps the multipart body of a submission.
	MaxUploadBytes int64

	// DemoResetPeriod is the rolling window after which a principal's usage
	// counter resets.
	DemoResetPeriod time.Duration

	// IPLimit/IPWindow shape the unauthenticated per-IP window in front of
	// the quota gate.
	IPLimit  int
	IPWindow time.Duration

	// ContactEmail is surfaced in the IP-window denial message.
	ContactEmail string

	// CountCacheTTL bounds staleness of the display-only remaining counter.
	CountCacheTTL time.Duration
}

// LoadConfigFromEnv loads demo API config from environment variables with
// safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		MaxUploadBytes:  envInt64("TML_DEMO_MAX_UPLOAD_BYTES", 20<<20), // 20 MiB
		DemoResetPeriod: envDuration("TML_DEMO_RESET_PERIOD", 30*24*time.Hour),
		IPLimit:         envInt("TML_DEMO_IP_LIMIT", 5),
		IPWindow:        envDuration("TML_DEMO_IP_WINDOW", 15*24*time.Hour),
		ContactEmail:    envString("TML_DEMO_CONTACT_EMAIL", "contact@trymylook.com"),
		CountCacheTTL:   envDuration("TML_DEMO_COUNT_CACHE_TTL", 2*time.Minute),
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	if cfg.IPLimit <= 0 {
		cfg.IPLimit = 5
	}
	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
