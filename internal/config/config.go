package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultLicenseKey is the invitation key accepted by registration when
// LICENSE_KEY is not set.
const DefaultLicenseKey = "LMP-STUDIO-2024"

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string
	Timezone string

	// CORS
	AllowedOrigins []string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Supabase (Storage + Auth)
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	SupabaseBucket     string

	// Local fallback store
	LocalStorePath   string
	LocalStorePrefix string

	// JWT / Auth
	JWTSecret    string
	JWTAccessTTL time.Duration
	LicenseKey   string

	// Generative AI
	GeminiAPIKey   string
	GeminiModel    string
	GeminiURL      string
	AIMinInterval  time.Duration
	AIMaxToolSteps int
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("TIMEZONE", "America/Sao_Paulo"),

		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 8),

		CacheTTL: getEnvDuration("CACHE_TTL", 2*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		SupabaseURL:        strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseBucket:     getEnv("SUPABASE_BUCKET", "app-data"),

		LocalStorePath:   getEnv("LOCAL_STORE_PATH", "data/local.db"),
		LocalStorePrefix: getEnv("LOCAL_STORE_PREFIX", "lmp_data_"),

		JWTSecret:    getEnv("JWT_SECRET", "studio-default-dev-secret-change-me"),
		JWTAccessTTL: getEnvDuration("JWT_ACCESS_TTL", 12*time.Hour),
		LicenseKey:   getEnv("LICENSE_KEY", DefaultLicenseKey),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiURL:      strings.TrimRight(getEnv("GEMINI_URL", "https://generativelanguage.googleapis.com"), "/"),
		AIMinInterval:  getEnvDuration("AI_MIN_INTERVAL", 60*time.Second),
		AIMaxToolSteps: getEnvInt("AI_MAX_TOOL_STEPS", 5),
	}
}

// RemoteConfigured reports whether the hosted backend credentials are present.
// Without them the service falls back to the local SQLite store.
func (c *Config) RemoteConfigured() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceKey != ""
}

// AIConfigured reports whether the generative AI provider can be called.
func (c *Config) AIConfigured() bool {
	return c.GeminiAPIKey != ""
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
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

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
