package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global *zap.SugaredLogger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Init sets the process-wide logger.
func Init(z *zap.SugaredLogger) { global = z }

// Logger returns the process-wide logger, or a no-op logger before Init.
func Logger() *zap.SugaredLogger {
	if global == nil {
		return zap.NewNop().Sugar()
	}
	return global
}

// New builds a console logger writing to w at the given level and installs it
// as the global logger.
func New(lvl string, w zapcore.WriteSyncer) (*zap.SugaredLogger, error) {
	if err := SetLevel(lvl); err != nil {
		return nil, err
	}
	if w == nil {
		w = zapcore.Lock(os.Stderr)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), w, level)
	z := zap.New(core).Sugar()
	Init(z)
	return z, nil
}

// SetLevel changes the level of every logger created by New.
// An empty string leaves the current level untouched.
func SetLevel(lvl string) error {
	lvl = strings.TrimSpace(strings.ToLower(lvl))
	if lvl == "" {
		return nil
	}
	parsed, err := zapcore.ParseLevel(lvl)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", lvl, err)
	}
	level.SetLevel(parsed)
	return nil
}
