package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"pmlogd/pkg/models"
)

var globalConfig *models.LogConfig

var (
	Main_logger   = getLogger("main")
	Config_logger = getLogger("config")
	Router_logger = getLogger("router")
	Syslog_logger = getLogger("syslog")
)

func loadLoggerConfig() (*models.LogConfig, error) {
	return nil, fmt.Errorf("not implemented")
}

func getLogger(module string) *slog.Logger {
	init_logger()
	return forModule(module)
}

func init_logger() {
	if globalConfig != nil {
		return
	}
	conf, err := loadLoggerConfig()
	if err != nil {
		conf = models.DefaultLogConfig()
	}

	err = init_log_by_cfg(conf)
	if err != nil {
		panic(err)
	}
}

// init_log_by_cfg initializes the global logging configuration (does not create specific logger)
func init_log_by_cfg(cfg *models.LogConfig) error {
	if cfg == nil {
		return fmt.Errorf("invalid logger config")
	}
	// Set default values
	if cfg.LogDir == "" {
		cfg.LogDir = "/var/log/pmlogd"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}

	globalConfig = cfg
	return nil
}

// forModule returns a module-specific logger instance
// moduleName will be used as the filename, e.g. "router" → /var/log/pmlogd/router.log
func forModule(moduleName string) *slog.Logger {
	if globalConfig == nil {
		panic("logger not initialized")
	}

	var writer io.Writer

	switch globalConfig.Output {
	case "file":
		logPath := filepath.Join(globalConfig.LogDir, moduleName+".log")
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			writer = os.Stderr
		} else {
			writer = io.MultiWriter(file, os.Stderr)
		}
	case "stdout":
		writer = os.Stdout
	default:
		writer = os.Stderr
	}

	var level slog.Level
	switch strings.ToLower(globalConfig.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if globalConfig.Format == "json" {
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler).With("module", moduleName)
}
