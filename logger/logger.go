// Package logger provides process-wide structured logging.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var instance = mustBuild()

func mustBuild() *zap.Logger {
	level := zapcore.InfoLevel
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		// Fall back to info on garbage values instead of failing startup.
		if err := level.Set(v); err != nil {
			level = zapcore.InfoLevel
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}

	return l
}

func Debug(msg string, fields ...zap.Field) {
	instance.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	instance.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	instance.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	instance.Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	instance.Fatal(msg, fields...)
}

func Sync() {
	_ = instance.Sync()
}
