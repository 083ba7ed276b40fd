package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Data locations
	DataDir          string // bank CSV exports
	RulesPath        string // base rule file, empty means built-in defaults
	RulesOverlayPath string // private overlay, missing file is fine
	BudgetsPath      string
	ManualPath       string // manual transaction journal
	ReportDir        string

	// Alert webhook, empty disables delivery
	WebhookURL  string
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// JWT / Auth. An empty APIPasswordHash disables the /v1/auth
	// endpoints and leaves the API open, which is fine on localhost.
	APIPasswordHash string
	JWTSecret       string
	JWTAccessTTL    time.Duration
	JWTRefreshTTL   time.Duration

	// Scheduler
	RefreshSchedule string // cron spec, empty disables background sweeps
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataDir:          getEnv("DATA_DIR", "./data"),
		RulesPath:        getEnv("RULES_PATH", ""),
		RulesOverlayPath: getEnv("RULES_OVERLAY_PATH", "./rules_private.yaml"),
		BudgetsPath:      getEnv("BUDGETS_PATH", "./budgets.json"),
		ManualPath:       getEnv("MANUAL_PATH", "./manual_transactions.json"),
		ReportDir:        getEnv("REPORT_DIR", "./reports"),

		WebhookURL:  getEnv("ALERT_WEBHOOK_URL", ""),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		APIPasswordHash: getEnv("API_PASSWORD_HASH", ""),
		JWTSecret:       getEnv("JWT_SECRET", "pftrack-default-dev-secret-change-me"),
		JWTAccessTTL:    getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
		JWTRefreshTTL:   getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),

		RefreshSchedule: getEnv("REFRESH_SCHEDULE", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
