// Package config loads container settings from the environment.
//
// Values are read from NASC_* variables after an optional .env file has been
// loaded. Call once at bootstrap:
//
//	cfg := config.Load()
//	container := nasc.New(nasc.WithConfig(cfg))
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the typed container configuration.
type Config struct {
	Log       LogConfig
	Telemetry TelemetryConfig
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string // debug | info | warn | error
	Format string // json | text
	Module string
}

// TelemetryConfig controls tracing and metrics.
type TelemetryConfig struct {
	Tracing    bool
	TracerName string
	Metrics    bool
	Namespace  string
}

// Load reads the given env files (default .env), if present, and populates a
// Config from environment variables.
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env usually does not exist in production
	_ = godotenv.Load(files...)

	return &Config{
		Log: LogConfig{
			Level:  env("NASC_LOG_LEVEL", "info"),
			Format: env("NASC_LOG_FORMAT", "json"),
			Module: env("NASC_LOG_MODULE", "nasc"),
		},
		Telemetry: TelemetryConfig{
			Tracing:    envBool("NASC_TRACING", false),
			TracerName: env("NASC_TRACER_NAME", "github.com/toutaio/nasc-resolver"),
			Metrics:    envBool("NASC_METRICS", false),
			Namespace:  env("NASC_METRICS_NAMESPACE", "nasc"),
		},
	}
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

func env(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
