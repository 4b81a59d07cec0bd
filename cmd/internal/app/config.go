package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	RedisURL string

	KlingBaseURL      string
	KlingAccessKey    string
	KlingSecretKey    string
	KlingMaxRetries   int
	KlingInitialDelay time.Duration
	KlingPollBudget   time.Duration

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Security policy:
	// If true, TML_PRINCIPAL_HMAC_KEY MUST be set (>= 32 bytes) so submissions
	// only run for principals signed by the web tier.
	RequirePrincipalHMAC bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("TML_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("TML_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("TML_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("TML_HTTP_READ_TIMEOUT", 60*time.Second),
		WriteTimeout:      EnvDuration("TML_HTTP_WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:       EnvDuration("TML_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("TML_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("TML_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("TML_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("TML_DB_MIN_CONNS", 0),

		RedisURL: EnvString("TML_REDIS_URL", ""),

		// Credential names match what the Kling console hands out.
		KlingAccessKey: EnvString("KLING_ACCESS_KEY", ""),
		KlingSecretKey: EnvString("KLING_SECRET_KEY", ""),

		KlingBaseURL:      EnvString("TML_KLING_BASE_URL", "https://api.klingai.com"),
		KlingMaxRetries:   EnvInt("TML_KLING_MAX_RETRIES", 5),
		KlingInitialDelay: EnvDuration("TML_KLING_INITIAL_DELAY", 5*time.Second),
		KlingPollBudget:   EnvDuration("TML_KLING_POLL_BUDGET", 55*time.Second),

		ReadinessRequireDB: EnvBool("TML_READINESS_REQUIRE_DB", false),

		RequirePrincipalHMAC: EnvBool("TML_REQUIRE_PRINCIPAL_HMAC", false),
	}
}
