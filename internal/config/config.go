// Package config handles gateway configuration
package config

import (
	"os"
	"strconv"
)

type Config struct {
	HTTPAddr       string
	ServerHost     string
	ServerPort     int
	LogLevel       string

	ASRBackendAddr string // networked backend, generalizes QWEN3_ASR_MODEL_PATH
	ModelPath      string
	GPUMemoryUtil  float64
	MaxNewTokens   int
	ModelDtype     string

	SampleRate            int
	StreamingChunkSizeSec float64
	AutoCommitIntervalSec float64

	VADEnabled            bool
	VADThreshold          float64
	VADSilenceDurationMS  int

	ShutdownTimeoutSec   int
	KeepaliveIntervalSec int
	ReadTimeoutSec       int

	OTelMetricsEnabled bool
}

func Load() *Config {
	return &Config{
		HTTPAddr:   getEnv("HTTP_ADDR", ":8001"),
		ServerHost: getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8001),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		ASRBackendAddr: getEnv("ASR_BACKEND_ADDR", getEnv("QWEN3_ASR_MODEL_PATH", "localhost:8080")),
		ModelPath:      getEnv("QWEN3_ASR_MODEL_PATH", ""),
		GPUMemoryUtil:  getEnvFloat("GPU_MEMORY_UTILIZATION", 0.9),
		MaxNewTokens:   getEnvInt("MAX_NEW_TOKENS", 256),
		ModelDtype:     getEnv("MODEL_DTYPE", "bfloat16"),

		SampleRate:            getEnvInt("SAMPLE_RATE", 16000),
		StreamingChunkSizeSec: getEnvFloat("STREAMING_CHUNK_SIZE_SEC", 2.0),
		AutoCommitIntervalSec: getEnvFloat("AUTO_COMMIT_INTERVAL_SEC", 60.0),

		VADEnabled:           getEnvBool("VAD_ENABLED", true),
		VADThreshold:         getEnvFloat("VAD_THRESHOLD", 0.5),
		VADSilenceDurationMS: getEnvInt("VAD_SILENCE_DURATION_MS", 400),

		ShutdownTimeoutSec:   getEnvInt("SHUTDOWN_TIMEOUT_SEC", 10),
		KeepaliveIntervalSec: getEnvInt("KEEPALIVE_INTERVAL_SEC", 30),
		ReadTimeoutSec:       getEnvInt("READ_TIMEOUT_SEC", 60),

		OTelMetricsEnabled: getEnvBool("OTEL_METRICS_ENABLED", true),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

