package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is usable before Init; it discards everything until then.
var Log = zap.NewNop().Sugar()

var base *zap.Logger

// Init points Log at logFilePath. An empty path logs to stderr.
func Init(logFilePath string, verbose bool) error {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if logFilePath != "" {
		config.OutputPaths = []string{logFilePath}
	}

	l, err := config.Build()
	if err != nil {
		return err
	}
	base = l
	Log = l.Sugar()
	Log.Info("Logger initialized.")
	return nil
}

// Sync flushes buffered entries.
func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}
