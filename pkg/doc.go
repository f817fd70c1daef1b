// Package pkg provides shared utilities for the hashspi driver stack.
//
// This package contains common functionality used by the bus codec, the
// transports and the driver engine, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error types for bus and driver errors
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with component context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentDriver, "chain started", "chips", 32)
//
// # Errors
//
// Common errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrShortTransfer) {
//	    // Request is retired; the caller decides whether to retry.
//	}
package pkg
