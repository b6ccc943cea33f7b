package flowtrace

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
)

//nolint:gochecknoglobals
var (
	acquireLoggerFunc   AcquireLoggerFunc = DefaultAcquireLoggerFunc
	acquireLoggerFuncMu                   = &sync.Mutex{}

	logger   = logr.Discard()
	loggerMu = &sync.Mutex{}

	persister   Persister
	persisterMu = &sync.Mutex{}

	enabled   = true
	enabledMu = &sync.RWMutex{}
)

// GetGlobalLogger gets the globally-registered Logger in this package.
// The default Logger implementation is logr.Discard().
func GetGlobalLogger() Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	return logger
}

// SetGlobalLogger sets the globally-registered Logger in this package.
func SetGlobalLogger(log Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	logger = log
}

// GetGlobalPersister gets the globally-registered Persister in this package.
// The default Persister writes JSON documents to DefaultLogDir, relative to
// the working directory at the time of the first call.
func GetGlobalPersister() Persister {
	persisterMu.Lock()
	defer persisterMu.Unlock()

	if persister == nil {
		persister = NewFilePersister(DefaultLogDir)
	}
	return persister
}

// SetGlobalPersister sets the globally-registered Persister in this package.
// Passing nil restores the default.
func SetGlobalPersister(p Persister) {
	persisterMu.Lock()
	defer persisterMu.Unlock()

	persister = p
}

// IsEnabled reports whether tracing is globally enabled. When disabled,
// traced functions are called straight through, and nothing is recorded.
func IsEnabled() bool {
	enabledMu.RLock()
	defer enabledMu.RUnlock()

	return enabled
}

// SetGlobalEnabled toggles tracing globally. Tracing is enabled by default.
func SetGlobalEnabled(on bool) {
	enabledMu.Lock()
	defer enabledMu.Unlock()

	enabled = on
}

// AcquireLoggerFunc represents a function that can resolve
// a Logger from the given context. Two common implementations
// are DefaultAcquireLoggerFunc and
// "sigs.k8s.io/controller-runtime/pkg/log".FromContext.
type AcquireLoggerFunc func(context.Context) Logger

// DefaultAcquireLoggerFunc is the default AcquireLoggerFunc implementation.
// It tries to resolve a logger from the given context using logr.FromContext,
// but if no Logger is registered, it defaults to GetGlobalLogger().
func DefaultAcquireLoggerFunc(ctx context.Context) Logger {
	if log, err := logr.FromContext(ctx); err == nil {
		return log
	}
	return GetGlobalLogger()
}

// LoggerFromContext executes the globally-registered AcquireLoggerFunc in
// this package to resolve a Logger from the context. By default,
// DefaultAcquireLoggerFunc is used which uses the Logger in the context,
// if any, or falls back to GetGlobalLogger().
//
// The Logger passed to a traced function is derived from this, and records
// everything logged through it in the current frame. Hence, within a traced
// function, prefer this over any other way of logging.
//
// If you want to customize this behavior, run SetAcquireLoggerFunc().
func LoggerFromContext(ctx context.Context) Logger {
	acquireLoggerFuncMu.Lock()
	fn := acquireLoggerFunc
	acquireLoggerFuncMu.Unlock()

	return fn(ctx)
}

// SetAcquireLoggerFunc sets the globally-registered AcquireLoggerFunc
// in this package. For example, fn can be DefaultAcquireLoggerFunc
// (the default) or "sigs.k8s.io/controller-runtime/pkg/log".FromContext.
func SetAcquireLoggerFunc(fn AcquireLoggerFunc) {
	acquireLoggerFuncMu.Lock()
	defer acquireLoggerFuncMu.Unlock()

	acquireLoggerFunc = fn
}
