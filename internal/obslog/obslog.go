// Package obslog builds the zap.Logger every other package accepts (and
// nil-defaults to zap.NewNop() if not given one), per SPEC_FULL.md §2.
package obslog

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"warehousefleet/internal/config"
)

// New builds a zap.Logger from a LogConfig: level is one of
// debug/info/warn/error, format is "json" or "console".
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	var encoderCfg zapcore.EncoderConfig
	var zcfg zap.Config
	switch cfg.Format {
	case "", "json":
		zcfg = zap.NewProductionConfig()
	case "console":
		zcfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("log format %q: must be json or console", cfg.Format)
	}
	encoderCfg = zcfg.EncoderConfig
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.EncoderConfig = encoderCfg
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
