package logger

import (
	"context"
	"log/slog"
	"testing"

	"pmlogd/pkg/models"
)

// TestInit tests the initialization of the logger configuration
func TestInit(t *testing.T) {
	globalConfig = nil

	cfg := &models.LogConfig{
		Level:  "debug",
		Format: "json",
		Output: "stderr",
		LogDir: "/test/logs",
	}

	err := init_log_by_cfg(cfg)
	if err != nil {
		t.Errorf("Init failed: %v", err)
	}

	if globalConfig == nil {
		t.Error("Global config should be set after Init")
	}

	if globalConfig.LogDir != "/test/logs" {
		t.Errorf("Expected LogDir /test/logs, got %s", globalConfig.LogDir)
	}
}

func TestInitWithNilConfig(t *testing.T) {
	globalConfig = nil

	err := init_log_by_cfg(nil)
	if err == nil {
		t.Error("Expected error with nil config")
	}

	if globalConfig != nil {
		t.Error("Global config should remain nil with invalid config")
	}
}

func TestInitWithDefaultValues(t *testing.T) {
	globalConfig = nil

	cfg := &models.LogConfig{
		Level:  "info",
		Format: "text",
		Output: "",
		LogDir: "",
	}

	err := init_log_by_cfg(cfg)
	if err != nil {
		t.Errorf("Init failed: %v", err)
	}

	if globalConfig.LogDir != "/var/log/pmlogd" {
		t.Errorf("Expected default LogDir, got %s", globalConfig.LogDir)
	}
	if globalConfig.Output != "stderr" {
		t.Errorf("Expected default Output stderr, got %s", globalConfig.Output)
	}
}

func TestForModule(t *testing.T) {
	globalConfig = nil
	init_logger()

	logger := forModule("testmod")
	if logger == nil {
		t.Fatal("Expected a logger instance")
	}

	// module loggers never panic on use
	logger.Info("test message", "key", "value")
}

func TestGetLoggerUnknownLevelDefaultsToInfo(t *testing.T) {
	globalConfig = &models.LogConfig{Level: "loud", Format: "text", Output: "stderr"}

	logger := forModule("testmod")
	if logger == nil {
		t.Fatal("Expected a logger instance")
	}
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Expected info level to be enabled for an unknown level")
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug level to be disabled for an unknown level")
	}
}
