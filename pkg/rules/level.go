package rules

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// LogLevel controls how chatty the proxy host is about a single rule.
type LogLevel string

const (
	LevelDebug  LogLevel = "debug"
	LevelInfo   LogLevel = "info"
	LevelWarn   LogLevel = "warn"
	LevelError  LogLevel = "error"
	LevelSilent LogLevel = "silent"
)

// ParseLogLevel accepts the level names used by dev-server proxy configs.
// An empty string yields LevelInfo.
func ParseLogLevel(s string) (LogLevel, error) {
	switch l := LogLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LevelInfo, nil
	case LevelDebug, LevelInfo, LevelWarn, LevelError, LevelSilent:
		return l, nil
	case "warning":
		return LevelWarn, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// Silent reports whether the rule should produce no diagnostics at all.
func (l LogLevel) Silent() bool {
	return l == LevelSilent
}

// ZapLevel maps the level onto zap. LevelSilent maps to the highest level zap
// has and should be checked with Silent first.
func (l LogLevel) ZapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelSilent:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
