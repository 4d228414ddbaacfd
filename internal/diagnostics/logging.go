// Package diagnostics holds the two error-handling channels described in
// spec.md §7 (compile-time validation errors and fatal traps) plus the
// package-level logger they and the WASI surface share.
package diagnostics

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var current atomic.Pointer[zap.Logger]

func init() {
	current.Store(zap.NewNop())
}

// Logger returns the package logger, defaulting to a no-op logger so the
// core is silent unless an embedder opts in with SetLogger.
func Logger() *zap.Logger {
	return current.Load()
}

// SetLogger installs l as the package logger. Passing nil restores the
// no-op default.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	current.Store(l)
}
