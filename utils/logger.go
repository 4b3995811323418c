package utils

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide structured logger. It is a no-op until
// InitLogger runs, so packages can log from tests without setup.
var Logger = zap.NewNop()

// InitLogger init logger
func InitLogger() {
	config := zap.NewProductionConfig()

	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if os.Getenv("GO_ENV") == "production" {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		config.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
	} else {
		// Локальная разработка: читаемый цветной вывод
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.Development = true
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	// LOG_LEVEL overrides the environment default
	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		if level, err := zapcore.ParseLevel(raw); err == nil {
			config.Level = zap.NewAtomicLevelAt(level)
		}
	}

	logger, err := config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		panic(err)
	}
	Logger = logger
}

// DebugLog логирует debug-сообщения с поддержкой форматирования
func DebugLog(format string, args ...interface{}) {
	Logger.Sugar().Debugf(format, args...)
}
