// Package rlog centralizes the zap logger used by the codec, the
// reference store and the CLI, the way internal/utils centralized error wrapping
// in the teacher library.
package rlog

import "go.uber.org/zap"

var global = zap.NewNop()

// Set installs the logger used by the rest of the module. Tests and
// cmd/noderepo-inspect call this once at startup; library code never
// constructs its own logger.
func Set(l *zap.Logger) {
	if l != nil {
		global = l
	}
}

// L returns the currently installed logger.
func L() *zap.Logger {
	return global
}

// Warn logs a recovered, non-fatal error (spec policy: a single
// corrupt value must not fail the whole bundle).
func Warn(msg string, fields ...zap.Field) {
	global.Warn(msg, fields...)
}
