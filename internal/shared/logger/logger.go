package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"office-dashboard/internal/shared/contextkeys"

	"github.com/sirupsen/logrus"
)

const (
	timestampFormat = "2006-01-02T15:04:05.000Z07:00"
	textTimestamp   = "2006-01-02 15:04:05"
)

// Logger is the structured logger used across the service.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Fatal(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	WithFields(fields map[string]interface{}) Logger
	WithContext(ctx context.Context) Logger
	WithComponent(component string) Logger
}

// Config selects the backend, level and output format.
type Config struct {
	Backend     string `env:"LOG_BACKEND" envDefault:"logrus"`
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Format      string `env:"LOG_FORMAT" envDefault:"text"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// contextFields lists the context keys copied into log fields by WithContext.
var contextFields = []struct {
	key  interface{}
	name string
}{
	{contextkeys.TenantIDKey, "tenant_id"},
	{contextkeys.UserIDKey, "user_id"},
	{contextkeys.RequestIDKey, "request_id"},
	{contextkeys.ComponentKey, "component"},
	{contextkeys.OperationKey, "operation"},
}

func fieldsFromContext(ctx context.Context) map[string]interface{} {
	fields := make(map[string]interface{})
	if ctx == nil {
		return fields
	}
	for _, f := range contextFields {
		if v, ok := ctx.Value(f.key).(string); ok && v != "" {
			fields[f.name] = v
		}
	}
	return fields
}

// LogrusLogger implements Logger on top of logrus.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogger builds a logger from environment variables.
func NewLogger() Logger {
	return New(Config{
		Backend:     os.Getenv("LOG_BACKEND"),
		Level:       os.Getenv("LOG_LEVEL"),
		Format:      os.Getenv("LOG_FORMAT"),
		Environment: os.Getenv("ENVIRONMENT"),
	})
}

// New builds a logger for cfg. Unknown backends fall back to logrus.
func New(cfg Config) Logger {
	if strings.EqualFold(cfg.Backend, "zap") {
		return NewZapLogger(cfg)
	}
	return newLogrus(cfg, os.Stdout)
}

func newLogrus(cfg Config, out io.Writer) *LogrusLogger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(parseLevel(cfg.Level))
	if jsonOutput(cfg) {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: textTimestamp,
		})
	}
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

func jsonOutput(cfg Config) bool {
	env := strings.ToLower(cfg.Environment)
	return strings.EqualFold(cfg.Format, "json") || env == "production" || env == "prod"
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

func (l *LogrusLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *LogrusLogger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *LogrusLogger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *LogrusLogger) Error(args ...interface{}) { l.entry.Error(args...) }
func (l *LogrusLogger) Fatal(args ...interface{}) { l.entry.Fatal(args...) }

func (l *LogrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *LogrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *LogrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *LogrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *LogrusLogger) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

// WithFields adds structured fields to the logger
func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// WithContext copies tenant, user and request identifiers from ctx.
func (l *LogrusLogger) WithContext(ctx context.Context) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(fieldsFromContext(ctx)))}
}

// WithComponent adds component name to the logger
func (l *LogrusLogger) WithComponent(component string) Logger {
	return &LogrusLogger{entry: l.entry.WithField("component", component)}
}

var defaultLogger = NewLogger()

// Default returns the process-wide logger.
func Default() Logger { return defaultLogger }

// WithComponent creates a logger with component information
func WithComponent(component string) Logger {
	return defaultLogger.WithComponent(component)
}

// WithContext creates a logger with context information
func WithContext(ctx context.Context) Logger {
	return defaultLogger.WithContext(ctx)
}

// Nop returns a logger that discards everything. Handy in tests.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debug(args ...interface{})                         {}
func (nopLogger) Info(args ...interface{})                          {}
func (nopLogger) Warn(args ...interface{})                          {}
func (nopLogger) Error(args ...interface{})                         {}
func (nopLogger) Fatal(args ...interface{})                         {}
func (nopLogger) Debugf(format string, args ...interface{})         {}
func (nopLogger) Infof(format string, args ...interface{})          {}
func (nopLogger) Warnf(format string, args ...interface{})          {}
func (nopLogger) Errorf(format string, args ...interface{})         {}
func (nopLogger) Fatalf(format string, args ...interface{})         {}
func (n nopLogger) WithFields(fields map[string]interface{}) Logger { return n }
func (n nopLogger) WithContext(ctx context.Context) Logger          { return n }
func (n nopLogger) WithComponent(component string) Logger           { return n }
