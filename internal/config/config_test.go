package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	envVars := []string{
		"HTTP_ADDR", "SERVER_HOST", "SERVER_PORT", "LOG_LEVEL",
		"ASR_BACKEND_ADDR", "QWEN3_ASR_MODEL_PATH", "GPU_MEMORY_UTILIZATION",
		"MAX_NEW_TOKENS", "MODEL_DTYPE", "SAMPLE_RATE", "STREAMING_CHUNK_SIZE_SEC",
		"AUTO_COMMIT_INTERVAL_SEC", "VAD_ENABLED", "VAD_THRESHOLD",
		"VAD_SILENCE_DURATION_MS", "SHUTDOWN_TIMEOUT_SEC", "KEEPALIVE_INTERVAL_SEC",
		"READ_TIMEOUT_SEC", "OTEL_METRICS_ENABLED",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg := Load()

	if cfg.HTTPAddr != ":8001" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8001")
	}
	if cfg.ASRBackendAddr != "localhost:8080" {
		t.Errorf("ASRBackendAddr = %q, want %q", cfg.ASRBackendAddr, "localhost:8080")
	}
	if cfg.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want %d", cfg.SampleRate, 16000)
	}
	if cfg.StreamingChunkSizeSec != 2.0 {
		t.Errorf("StreamingChunkSizeSec = %f, want %f", cfg.StreamingChunkSizeSec, 2.0)
	}
	if cfg.AutoCommitIntervalSec != 60.0 {
		t.Errorf("AutoCommitIntervalSec = %f, want %f", cfg.AutoCommitIntervalSec, 60.0)
	}
	if !cfg.VADEnabled {
		t.Error("VADEnabled should default to true")
	}
	if cfg.VADThreshold != 0.5 {
		t.Errorf("VADThreshold = %f, want %f", cfg.VADThreshold, 0.5)
	}
	if cfg.VADSilenceDurationMS != 400 {
		t.Errorf("VADSilenceDurationMS = %d, want %d", cfg.VADSilenceDurationMS, 400)
	}
	if cfg.ShutdownTimeoutSec != 10 {
		t.Errorf("ShutdownTimeoutSec = %d, want %d", cfg.ShutdownTimeoutSec, 10)
	}
	if cfg.KeepaliveIntervalSec != 30 {
		t.Errorf("KeepaliveIntervalSec = %d, want %d", cfg.KeepaliveIntervalSec, 30)
	}
	if cfg.ReadTimeoutSec != 60 {
		t.Errorf("ReadTimeoutSec = %d, want %d", cfg.ReadTimeoutSec, 60)
	}
	if !cfg.OTelMetricsEnabled {
		t.Error("OTelMetricsEnabled should default to true")
	}
}

func TestLoadWithEnv(t *testing.T) {
	os.Setenv("HTTP_ADDR", ":9000")
	os.Setenv("ASR_BACKEND_ADDR", "backend:9090")
	os.Setenv("SAMPLE_RATE", "48000")
	os.Setenv("VAD_THRESHOLD", "0.7")
	os.Setenv("VAD_ENABLED", "false")
	os.Setenv("AUTO_COMMIT_INTERVAL_SEC", "30")
	os.Setenv("SHUTDOWN_TIMEOUT_SEC", "5")
	defer func() {
		os.Unsetenv("HTTP_ADDR")
		os.Unsetenv("ASR_BACKEND_ADDR")
		os.Unsetenv("SAMPLE_RATE")
		os.Unsetenv("VAD_THRESHOLD")
		os.Unsetenv("VAD_ENABLED")
		os.Unsetenv("AUTO_COMMIT_INTERVAL_SEC")
		os.Unsetenv("SHUTDOWN_TIMEOUT_SEC")
	}()

	cfg := Load()

	if cfg.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9000")
	}
	if cfg.ASRBackendAddr != "backend:9090" {
		t.Errorf("ASRBackendAddr = %q, want %q", cfg.ASRBackendAddr, "backend:9090")
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want %d", cfg.SampleRate, 48000)
	}
	if cfg.VADThreshold != 0.7 {
		t.Errorf("VADThreshold = %f, want %f", cfg.VADThreshold, 0.7)
	}
	if cfg.VADEnabled {
		t.Error("VADEnabled should be false")
	}
	if cfg.AutoCommitIntervalSec != 30 {
		t.Errorf("AutoCommitIntervalSec = %f, want %f", cfg.AutoCommitIntervalSec, 30.0)
	}
	if cfg.ShutdownTimeoutSec != 5 {
		t.Errorf("ShutdownTimeoutSec = %d, want %d", cfg.ShutdownTimeoutSec, 5)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	os.Setenv("TEST_STRING", "hello")
	defer os.Unsetenv("TEST_STRING")
	if v := getEnv("TEST_STRING", "default"); v != "hello" {
		t.Errorf("getEnv = %q, want %q", v, "hello")
	}
	if v := getEnv("NONEXISTENT", "default"); v != "default" {
		t.Errorf("getEnv = %q, want %q", v, "default")
	}

	os.Setenv("TEST_INT", "42")
	defer os.Unsetenv("TEST_INT")
	if v := getEnvInt("TEST_INT", 0); v != 42 {
		t.Errorf("getEnvInt = %d, want %d", v, 42)
	}
	if v := getEnvInt("NONEXISTENT", 99); v != 99 {
		t.Errorf("getEnvInt = %d, want %d", v, 99)
	}
	os.Setenv("TEST_INT_INVALID", "not-a-number")
	defer os.Unsetenv("TEST_INT_INVALID")
	if v := getEnvInt("TEST_INT_INVALID", 100); v != 100 {
		t.Errorf("getEnvInt with invalid = %d, want %d", v, 100)
	}

	os.Setenv("TEST_FLOAT", "3.14")
	defer os.Unsetenv("TEST_FLOAT")
	if v := getEnvFloat("TEST_FLOAT", 0.0); v != 3.14 {
		t.Errorf("getEnvFloat = %f, want %f", v, 3.14)
	}
	if v := getEnvFloat("NONEXISTENT", 2.71); v != 2.71 {
		t.Errorf("getEnvFloat = %f, want %f", v, 2.71)
	}

	os.Setenv("TEST_BOOL_TRUE", "true")
	os.Setenv("TEST_BOOL_ONE", "1")
	os.Setenv("TEST_BOOL_FALSE", "false")
	defer func() {
		os.Unsetenv("TEST_BOOL_TRUE")
		os.Unsetenv("TEST_BOOL_ONE")
		os.Unsetenv("TEST_BOOL_FALSE")
	}()
	if !getEnvBool("TEST_BOOL_TRUE", false) {
		t.Error("getEnvBool should return true for 'true'")
	}
	if !getEnvBool("TEST_BOOL_ONE", false) {
		t.Error("getEnvBool should return true for '1'")
	}
	if getEnvBool("TEST_BOOL_FALSE", true) {
		t.Error("getEnvBool should return false for 'false'")
	}
	if !getEnvBool("NONEXISTENT", true) {
		t.Error("getEnvBool should return default true")
	}
}
