package log

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	Logger = zap.Logger
	Field  = zap.Field
)

var (
	mu            sync.RWMutex
	defaultLogger = zap.NewNop()
)

var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Float64  = zap.Float64
	Bool     = zap.Bool
	Duration = zap.Duration
	Time     = zap.Time
	Any      = zap.Any
)

// ErrorField wraps err into a field named "error"
func ErrorField(err error) Field {
	return zap.Error(err)
}

func InitProductionLogger() {
	l, _ := zap.NewProduction()
	ResetDefault(l)
}

func InitDevelopmentLogger() {
	l, _ := zap.NewDevelopment()
	ResetDefault(l)
}

// InitLogger builds a logger for the given level ("debug", "info", ...) and
// format ("text" or "json").
func InitLogger(level, format string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	cfg := zap.NewProductionConfig()
	if format == "text" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	ResetDefault(l)
	return nil
}

// Default returns the logger shared by all components. It is a no-op logger
// until one of the Init functions is called.
func Default() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

func ResetDefault(l *Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

func Debug(msg string, fields ...Field) { Default().Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { Default().Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { Default().Warn(msg, fields...) }
func Error(msg string, fields ...Field) { Default().Error(msg, fields...) }

func Sync() error {
	return Default().Sync()
}
