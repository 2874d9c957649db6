package logger

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements Logger with a sugared zap logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger builds a production (JSON) or development (console) zap logger.
func NewZapLogger(cfg Config) Logger {
	var zc zap.Config
	if jsonOutput(cfg) {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.MessageKey = "message"
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(zapLevel(cfg.Level))
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewNop()
	}
	return &ZapLogger{sugar: l.Sugar()}
}

func zapLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func (z *ZapLogger) Debug(args ...interface{}) { z.sugar.Debug(args...) }
func (z *ZapLogger) Info(args ...interface{})  { z.sugar.Info(args...) }
func (z *ZapLogger) Warn(args ...interface{})  { z.sugar.Warn(args...) }
func (z *ZapLogger) Error(args ...interface{}) { z.sugar.Error(args...) }
func (z *ZapLogger) Fatal(args ...interface{}) { z.sugar.Fatal(args...) }

func (z *ZapLogger) Debugf(format string, args ...interface{}) { z.sugar.Debugf(format, args...) }
func (z *ZapLogger) Infof(format string, args ...interface{})  { z.sugar.Infof(format, args...) }
func (z *ZapLogger) Warnf(format string, args ...interface{})  { z.sugar.Warnf(format, args...) }
func (z *ZapLogger) Errorf(format string, args ...interface{}) { z.sugar.Errorf(format, args...) }
func (z *ZapLogger) Fatalf(format string, args ...interface{}) { z.sugar.Fatalf(format, args...) }

func (z *ZapLogger) WithFields(fields map[string]interface{}) Logger {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return &ZapLogger{sugar: z.sugar.With(kv...)}
}

func (z *ZapLogger) WithContext(ctx context.Context) Logger {
	return z.WithFields(fieldsFromContext(ctx))
}

func (z *ZapLogger) WithComponent(component string) Logger {
	return &ZapLogger{sugar: z.sugar.With("component", component)}
}
