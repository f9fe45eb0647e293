package main

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.SugaredLogger

// InitLogger sets up the global logger from config. Level and an optional
// file sink come from the logging section; console output is always on.
func InitLogger(config *Config) error {
	level := zapcore.InfoLevel
	if config.Logging.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(config.Logging.Level))); err != nil {
			return fmt.Errorf("invalid log level %q: %w", config.Logging.Level, err)
		}
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "console",
		EncoderConfig:    encCfg,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if config.Logging.OutputFile != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, config.Logging.OutputFile)
	}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	logger = l.Sugar()
	return nil
}

func CloseLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}

// Log writes a message at the given level ("debug", "info", "warn", "error").
func Log(level, message string) {
	if logger == nil {
		fmt.Println(message)
		return
	}
	switch strings.ToLower(level) {
	case "debug":
		logger.Debug(message)
	case "warn":
		logger.Warn(message)
	case "error":
		logger.Error(message)
	default:
		logger.Info(message)
	}
}

func Logf(level, format string, args ...interface{}) {
	Log(level, fmt.Sprintf(format, args...))
}
