// Package logger provides opinionated logging capabilities for devproxy
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// NewLogger returns a console logger on stdout at the given level. Levels are
// coloured only when stdout is a terminal.
func NewLogger(level zapcore.Level) *zap.Logger {
	color := term.IsTerminal(int(os.Stdout.Fd()))
	return New(zapcore.AddSync(os.Stdout), level, color)
}

// New builds a console logger writing to w.
func New(w zapcore.WriteSyncer, level zapcore.Level, color bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if color {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		w,
		level,
	)

	return zap.New(core, zap.AddCaller())
}

// WithLevel narrows base so it only emits entries at or above level. The
// result can never be more verbose than base.
func WithLevel(base *zap.Logger, level zapcore.Level) *zap.Logger {
	if base.Core().Enabled(level) {
		return base.WithOptions(zap.IncreaseLevel(level))
	}
	return base
}
