package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"interviewhub/internal/errors"
)

// Standard field names for structured logging.
const (
	FieldSessionID = "session_id"
	FieldJobID     = "job_id"
	FieldUserID    = "user_id"
	FieldQuestion  = "question_id"
	FieldSource    = "source"
	FieldStatus    = "status"
	FieldFrom      = "from"
	FieldTo        = "to"
	FieldReason    = "reason"
	FieldTrigger   = "trigger"
	FieldStep      = "step"
	FieldCompleted = "completed"
	FieldMode      = "mode"
	FieldComponent = "component"
	FieldError     = "error"
	FieldAddress   = "address"
)

// New builds a sugared logger. format is "json" or "console"; level is a zap
// level name and defaults to info.
func New(level, format string) (*zap.SugaredLogger, error) {
	lvl := zapcore.InfoLevel
	if strings.TrimSpace(level) != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, errors.Wrapf(err, "invalid log level %q", level)
		}
	}
	var cfg zap.Config
	switch strings.ToLower(format) {
	case "", "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	case "json":
		cfg = zap.NewProductionConfig()
	default:
		return nil, errors.Newf("invalid log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	l, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return l.Sugar(), nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// Component returns a named child logger for dependency injection.
func Component(parent *zap.SugaredLogger, name string) *zap.SugaredLogger {
	if parent == nil {
		parent = Nop()
	}
	return parent.Named(name)
}
