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
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// File storage backend selection for source audio and generated speech.
type StorageBackend string

const (
	StorageLocal StorageBackend = "local"
	StorageS3    StorageBackend = "s3"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	BaseURL       string
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string

	// Media and segment output roots
	MediaRoot  string // Object store root when StorageLocal: source audio, speech, segment archive
	OutputRoot string // Segment output tree (date/hour partitioned)
	TempRoot   string // Intermediate mix files; cleaned best-effort after each job

	// Production pipeline
	FFmpegBin        string        // Path to the external transcoder binary
	FFprobeBin       string        // Path to the duration probe binary
	Bitrates         []int         // Bitrate ladder in bits per second
	SegmentDuration  int           // Fixed segment length in seconds
	SegmentQueueCap  int           // Per-bitrate delivery buffer capacity
	AudioFilterChain string        // Loudness/compression filter applied per bitrate
	MixWorkers       int           // Worker pool size for blocking mix/TTS jobs
	StationTick      time.Duration // Orchestrator loop interval per station

	// Speech synthesis vendor
	TTSEndpoint string
	TTSAPIKey   string
	TTSVoiceID  string

	// File storage
	StorageBackend StorageBackend

	// S3 object storage configuration
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string // For S3-compatible services (MinIO, Spaces, etc.)
	S3UsePathStyle    bool   // Required for MinIO

	// Redis segment/station cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// NATS event bridge
	NATSEnabled bool
	NATSURL     string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	MetricsBind string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnv("SKALD_ENV", "development"),
		HTTPBind:      getEnv("SKALD_HTTP_BIND", "0.0.0.0"),
		HTTPPort:      getEnvInt("SKALD_HTTP_PORT", 8080),
		BaseURL:       getEnv("SKALD_BASE_URL", ""),
		DBBackend:     DatabaseBackend(getEnv("SKALD_DB_BACKEND", string(DatabasePostgres))),
		DBDSN:         getEnv("SKALD_DB_DSN", ""),
		JWTSigningKey: getEnv("SKALD_JWT_SIGNING_KEY", ""),

		MediaRoot:  getEnv("SKALD_MEDIA_ROOT", "./media"),
		OutputRoot: getEnv("SKALD_OUTPUT_ROOT", "./segments"),
		TempRoot:   getEnv("SKALD_TEMP_ROOT", os.TempDir()),

		FFmpegBin:        getEnv("SKALD_FFMPEG_BIN", "ffmpeg"),
		FFprobeBin:       getEnv("SKALD_FFPROBE_BIN", "ffprobe"),
		Bitrates:         getEnvIntList("SKALD_BITRATES", []int{64000, 128000, 256000}),
		SegmentDuration:  getEnvInt("SKALD_SEGMENT_DURATION", 10),
		SegmentQueueCap:  getEnvInt("SKALD_SEGMENT_QUEUE_CAP", 128),
		AudioFilterChain: getEnv("SKALD_AUDIO_FILTER_CHAIN", "loudnorm=I=-16:TP=-1.5:LRA=11,acompressor=threshold=-18dB:ratio=3:attack=20:release=250"),
		MixWorkers:       getEnvInt("SKALD_MIX_WORKERS", 4),
		StationTick:      getEnvDuration("SKALD_STATION_TICK", 2*time.Second),

		TTSEndpoint: getEnv("SKALD_TTS_ENDPOINT", ""),
		TTSAPIKey:   getEnv("SKALD_TTS_API_KEY", ""),
		TTSVoiceID:  getEnv("SKALD_TTS_VOICE_ID", "default"),

		StorageBackend: StorageBackend(getEnv("SKALD_STORAGE_BACKEND", string(StorageLocal))),

		S3AccessKeyID:     getEnv("SKALD_S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("SKALD_S3_SECRET_ACCESS_KEY", ""),
		S3Region:          getEnv("SKALD_S3_REGION", "us-east-1"),
		S3Bucket:          getEnv("SKALD_S3_BUCKET", ""),
		S3Endpoint:        getEnv("SKALD_S3_ENDPOINT", ""),
		S3UsePathStyle:    getEnvBool("SKALD_S3_USE_PATH_STYLE", false),

		RedisAddr:     getEnv("SKALD_REDIS_ADDR", ""),
		RedisPassword: getEnv("SKALD_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("SKALD_REDIS_DB", 0),

		NATSEnabled: getEnvBool("SKALD_NATS_ENABLED", false),
		NATSURL:     getEnv("SKALD_NATS_URL", "nats://localhost:4222"),

		TracingEnabled:    getEnvBool("SKALD_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("SKALD_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("SKALD_TRACING_SAMPLE_RATE", 0.1),

		MetricsBind: getEnv("SKALD_METRICS_BIND", ""),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("SKALD_DB_DSN must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("SKALD_JWT_SIGNING_KEY must be provided")
	}

	if len(cfg.Bitrates) == 0 {
		return nil, fmt.Errorf("SKALD_BITRATES must list at least one bitrate")
	}
	for _, b := range cfg.Bitrates {
		if b <= 0 {
			return nil, fmt.Errorf("invalid bitrate %d in SKALD_BITRATES", b)
		}
	}

	if cfg.SegmentDuration <= 0 {
		return nil, fmt.Errorf("SKALD_SEGMENT_DURATION must be positive")
	}

	if cfg.StorageBackend != StorageLocal && cfg.StorageBackend != StorageS3 {
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}

	if cfg.StorageBackend == StorageS3 && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("SKALD_S3_BUCKET must be provided when storage backend is s3")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvIntList parses a comma-separated integer list, e.g. "64000,128000".
func getEnvIntList(key string, def []int) []int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parts := strings.Split(val, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parsed, err := strconv.Atoi(p)
		if err != nil {
			return def
		}
		out = append(out, parsed)
	}
	if len(out) == 0 {
		return def
	}
	return out
}
