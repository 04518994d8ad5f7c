package debug

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu       sync.Mutex
	logger   = zap.NewNop()
	counters = make(map[string]int)
)

// New builds a logger writing to paths ("stderr", "stdout" or files).
// No paths gives a no-op logger. An empty level means info.
func New(level string, development bool, paths ...string) (*zap.Logger, error) {
	if len(paths) == 0 {
		return zap.NewNop(), nil
	}
	if level == "" {
		level = "info"
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	cfg.OutputPaths = paths
	cfg.ErrorOutputPaths = paths
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// Enable starts debug logging to path, creating its directory
func Enable(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	l, err := New("debug", true, path)
	if err != nil {
		return err
	}
	Set(l)
	l.Named("debug").Info("=== Debug logging started ===")
	return nil
}

// Set replaces the package logger
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	_ = logger.Sync()
	logger = l
}

// Disable flushes the current logger and stops logging
func Disable() {
	Set(zap.NewNop())
}

// L returns the package logger
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Log writes a debug message under a category
func Log(category, format string, args ...any) {
	L().Named(category).Sugar().Debugf(format, args...)
}

// LogEvery logs only every N calls (use for high-frequency events)
func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
