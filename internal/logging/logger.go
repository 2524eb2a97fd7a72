// Package logging provides categorized structured logging for the plugin
// runtime, built on go.uber.org/zap the way a production process logger
// is assembled, rather than a hand-rolled file logger.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies which runtime component emitted a log line.
type Category string

const (
	CategoryPathMap    Category = "pathmap"
	CategoryStore      Category = "store"
	CategoryScope      Category = "scope"
	CategoryReplay     Category = "replay"
	CategoryDepth      Category = "depth"
	CategoryPlacer     Category = "placer"
	CategoryRegistry   Category = "registry"
	CategoryFactory    Category = "factory"
	CategoryDispatcher Category = "dispatcher"
	CategoryInject     Category = "inject"
)

var (
	mu      sync.RWMutex
	base    *zap.Logger
	sinks   = map[Category]*zap.SugaredLogger{}
	verbose bool
)

// Init builds the process-wide zap logger. Call once at startup, the way
// cmd/nerd/main.go's PersistentPreRunE builds its logger from
// zap.NewProductionConfig(). A nil-safe no-op logger is used until Init is
// called, so libraries can log before the host decides on verbosity.
func Init(v bool) error {
	mu.Lock()
	defer mu.Unlock()

	verbose = v
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	base = l
	sinks = map[Category]*zap.SugaredLogger{}
	return nil
}

// Sync flushes the underlying logger. Call on process shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}

// Get returns (or lazily creates) the sugared logger for a category.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	l, ok := sinks[category]
	b := base
	mu.RUnlock()
	if ok {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if l, ok := sinks[category]; ok {
		return l
	}
	if b == nil {
		b = zap.NewNop()
	}
	l = b.Sugar().With("component", string(category))
	sinks[category] = l
	return l
}
