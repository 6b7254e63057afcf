package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerConfig struct {
	Debug bool
}

// NewLogger creates a production zap logger. When Debug is set, the level
// drops to debug and callers are annotated.
func NewLogger(cfg *LoggerConfig) (*zap.Logger, error) {
	c := zap.NewProductionConfig()
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	opts := make([]zap.Option, 0)
	if cfg.Debug {
		c.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		opts = append(opts, zap.WithCaller(true))
	}

	return c.Build(opts...)
}

func NewNoopLogger() *zap.Logger {
	return zap.NewNop()
}
