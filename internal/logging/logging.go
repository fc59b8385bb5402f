package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger at the configured level. Output is JSON on
// stdout so log shippers can pick it up unchanged.
func New(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		lvl = zapcore.DebugLevel
	case "WARN":
		lvl = zapcore.WarnLevel
	case "ERROR":
		lvl = zapcore.ErrorLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
