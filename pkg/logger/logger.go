package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/flightledger/core/pkg/config"
)

// Logger wraps a zap.SugaredLogger, keeping the WithField/WithFields call
// shape used throughout the pipeline stages.
type Logger struct {
	*zap.SugaredLogger
}

// New creates a logger instance from the process logging configuration.
func New(cfg config.LoggingConfig) *Logger {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Format, "console") {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	base := zap.New(core, zap.AddCaller())
	return &Logger{SugaredLogger: base.Sugar()}
}

// NewDefault creates a logger with sane defaults, tagged with a component name.
func NewDefault(name string) *Logger {
	log := New(config.LoggingConfig{Level: "info", Format: "json"})
	return log.Named(name)
}

// Named returns a logger scoped to a subcomponent.
func (l *Logger) Named(name string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(name)}
}

// WithField returns a logger with a single structured field attached.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(key, value)}
}

// WithFields returns a logger with multiple structured fields attached.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...)}
}
