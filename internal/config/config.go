/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/friendsincode/grimnir_reels/internal/activation"
	"github.com/friendsincode/grimnir_reels/internal/progress"
	"github.com/friendsincode/grimnir_reels/internal/session"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// ContentSource selects where playback queues come from.
type ContentSource string

const (
	ContentDatabase ContentSource = "db"
	ContentFile     ContentSource = "file"
)

// EventTransport selects how session events fan out across instances.
type EventTransport string

const (
	EventsMemory EventTransport = "memory"
	EventsRedis  EventTransport = "redis"
	EventsNATS   EventTransport = "nats"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MetricsBind string
	InstanceID  string

	// Content
	ContentSource ContentSource
	ContentFile   string
	DBBackend     DatabaseBackend
	DBDSN         string

	// Redis cache and event transport
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheEnabled  bool
	CacheTTL      time.Duration

	EventTransport EventTransport
	NATSURL        string

	// S3 Object Storage configuration
	S3Enabled         bool
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Endpoint        string // For S3-compatible services (MinIO, Spaces, etc.)
	S3PublicBaseURL   string // Optional CDN/CloudFront URL
	S3UsePathStyle    bool   // Required for MinIO
	S3PresignTTL      time.Duration

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Playback tuning
	StaticDuration      time.Duration
	MediaFallback       time.Duration
	TickInterval        time.Duration
	VisibilityThreshold float64
	SettleDelay         time.Duration
	UnmuteDelay         time.Duration
	MaxRetries          int
	StartMuted          bool
	AutoUnmuteOnView    bool
	PortraitHeuristic   bool

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"GRIMNIR_REELS_ENV", "GRIMNIR_ENV"}, "development"),
		HTTPBind:    getEnvAny([]string{"GRIMNIR_REELS_HTTP_BIND", "GRIMNIR_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:    getEnvIntAny([]string{"GRIMNIR_REELS_HTTP_PORT"}, 8090),
		MetricsBind: getEnvAny([]string{"GRIMNIR_REELS_METRICS_BIND"}, "127.0.0.1:9010"),
		InstanceID:  getEnvAny([]string{"GRIMNIR_REELS_INSTANCE_ID", "GRIMNIR_INSTANCE_ID"}, ""),

		ContentSource: ContentSource(getEnvAny([]string{"GRIMNIR_REELS_CONTENT_SOURCE"}, string(ContentDatabase))),
		ContentFile:   getEnvAny([]string{"GRIMNIR_REELS_CONTENT_FILE"}, ""),
		DBBackend:     DatabaseBackend(getEnvAny([]string{"GRIMNIR_REELS_DB_BACKEND", "GRIMNIR_DB_BACKEND"}, string(DatabasePostgres))),
		DBDSN:         getEnvAny([]string{"GRIMNIR_REELS_DB_DSN", "GRIMNIR_DB_DSN"}, ""),

		RedisAddr:     getEnvAny([]string{"GRIMNIR_REELS_REDIS_ADDR", "GRIMNIR_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"GRIMNIR_REELS_REDIS_PASSWORD", "GRIMNIR_REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"GRIMNIR_REELS_REDIS_DB", "GRIMNIR_REDIS_DB"}, 0),
		CacheEnabled:  getEnvBoolAny([]string{"GRIMNIR_REELS_CACHE_ENABLED"}, false),
		CacheTTL:      getEnvDurationAny([]string{"GRIMNIR_REELS_CACHE_TTL"}, 5*time.Minute),

		EventTransport: EventTransport(getEnvAny([]string{"GRIMNIR_REELS_EVENT_TRANSPORT"}, string(EventsMemory))),
		NATSURL:        getEnvAny([]string{"GRIMNIR_REELS_NATS_URL", "NATS_URL"}, "nats://127.0.0.1:4222"),

		S3Enabled:         getEnvBoolAny([]string{"GRIMNIR_REELS_S3_ENABLED"}, false),
		S3AccessKeyID:     getEnvAny([]string{"GRIMNIR_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"GRIMNIR_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:          getEnvAny([]string{"GRIMNIR_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Endpoint:        getEnvAny([]string{"GRIMNIR_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3PublicBaseURL:   getEnvAny([]string{"GRIMNIR_S3_PUBLIC_BASE_URL", "S3_PUBLIC_BASE_URL"}, ""),
		S3UsePathStyle:    getEnvBoolAny([]string{"GRIMNIR_S3_USE_PATH_STYLE", "S3_USE_PATH_STYLE"}, false),
		S3PresignTTL:      getEnvDurationAny([]string{"GRIMNIR_REELS_S3_PRESIGN_TTL"}, 15*time.Minute),

		TracingEnabled:    getEnvBoolAny([]string{"GRIMNIR_REELS_TRACING_ENABLED", "GRIMNIR_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"GRIMNIR_REELS_OTLP_ENDPOINT", "GRIMNIR_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"GRIMNIR_REELS_TRACING_SAMPLE_RATE", "GRIMNIR_TRACING_SAMPLE_RATE"}, 1.0),

		StaticDuration:      getEnvDurationAny([]string{"GRIMNIR_REELS_STATIC_DURATION"}, progress.DefaultStatic),
		MediaFallback:       getEnvDurationAny([]string{"GRIMNIR_REELS_MEDIA_FALLBACK"}, progress.DefaultMediaFallback),
		TickInterval:        getEnvDurationAny([]string{"GRIMNIR_REELS_TICK_INTERVAL"}, progress.DefaultTick),
		VisibilityThreshold: getEnvFloatAny([]string{"GRIMNIR_REELS_VISIBILITY_THRESHOLD"}, activation.DefaultThreshold),
		SettleDelay:         getEnvDurationAny([]string{"GRIMNIR_REELS_SETTLE_DELAY"}, activation.DefaultSettleDelay),
		UnmuteDelay:         getEnvDurationAny([]string{"GRIMNIR_REELS_UNMUTE_DELAY"}, 200*time.Millisecond),
		MaxRetries:          getEnvIntAny([]string{"GRIMNIR_REELS_MAX_RETRIES"}, 2),
		StartMuted:          getEnvBoolAny([]string{"GRIMNIR_REELS_START_MUTED"}, true),
		AutoUnmuteOnView:    getEnvBoolAny([]string{"GRIMNIR_REELS_AUTO_UNMUTE_ON_VIEW"}, false),
		PortraitHeuristic:   getEnvBoolAny([]string{"GRIMNIR_REELS_PORTRAIT_HEURISTIC"}, true),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.ContentSource {
	case ContentDatabase:
		if c.DBBackend != DatabasePostgres && c.DBBackend != DatabaseMySQL && c.DBBackend != DatabaseSQLite {
			return fmt.Errorf("unsupported database backend %q", c.DBBackend)
		}
		if c.DBDSN == "" {
			return fmt.Errorf("GRIMNIR_REELS_DB_DSN or GRIMNIR_DB_DSN must be provided")
		}
	case ContentFile:
		if c.ContentFile == "" {
			return fmt.Errorf("GRIMNIR_REELS_CONTENT_FILE must be provided when the content source is file")
		}
	default:
		return fmt.Errorf("unsupported content source %q", c.ContentSource)
	}

	switch c.EventTransport {
	case EventsMemory, EventsRedis, EventsNATS:
	default:
		return fmt.Errorf("unsupported event transport %q", c.EventTransport)
	}

	if c.VisibilityThreshold <= 0 || c.VisibilityThreshold > 1 {
		return fmt.Errorf("visibility threshold must be in (0, 1], got %v", c.VisibilityThreshold)
	}
	if c.SettleDelay < activation.MinSettleDelay || c.SettleDelay > activation.MaxSettleDelay {
		return fmt.Errorf("settle delay must be between %s and %s, got %s", activation.MinSettleDelay, activation.MaxSettleDelay, c.SettleDelay)
	}
	for name, d := range map[string]time.Duration{
		"static duration": c.StaticDuration,
		"media fallback":  c.MediaFallback,
		"tick interval":   c.TickInterval,
		"unmute delay":    c.UnmuteDelay,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}

	if strings.EqualFold(c.Environment, "production") && c.S3Enabled && c.S3PublicBaseURL == "" && c.S3AccessKeyID == "" {
		return fmt.Errorf("GRIMNIR_S3_ACCESS_KEY_ID or GRIMNIR_S3_PUBLIC_BASE_URL is required for S3 media in production")
	}
	return nil
}

// Playback derives session defaults from the configuration.
func (c *Config) Playback() session.Defaults {
	return session.Defaults{
		Durations: progress.Durations{
			Static:        c.StaticDuration,
			MediaFallback: c.MediaFallback,
			Tick:          c.TickInterval,
		},
		Visibility: activation.VisibilityConfig{
			Threshold:   c.VisibilityThreshold,
			SettleDelay: c.SettleDelay,
		},
		UnmuteDelay:       c.UnmuteDelay,
		MaxRetries:        c.MaxRetries,
		AutoUnmuteOnView:  c.AutoUnmuteOnView,
		PortraitHeuristic: c.PortraitHeuristic,
	}
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"REELS_ENV":         "use GRIMNIR_REELS_ENV",
		"REELS_DB_DSN":      "use GRIMNIR_REELS_DB_DSN (or GRIMNIR_DB_DSN)",
		"REELS_HTTP_PORT":   "use GRIMNIR_REELS_HTTP_PORT",
		"STORY_DURATION_MS": "use GRIMNIR_REELS_STATIC_DURATION (e.g. 3s)",
		"VISIBILITY_RATIO":  "use GRIMNIR_REELS_VISIBILITY_THRESHOLD",
		"TRACING_ENABLED":   "use GRIMNIR_REELS_TRACING_ENABLED (or GRIMNIR_TRACING_ENABLED)",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvDurationAny accepts Go durations ("300ms") or bare milliseconds ("300").
func getEnvDurationAny(keys []string, def time.Duration) time.Duration {
	for _, k := range keys {
		v := strings.TrimSpace(os.Getenv(k))
		if v == "" {
			continue
		}
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
		if ms, err := strconv.Atoi(v); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}
