// Package log provides structured protocol logging for the BLE WiFi
// provisioning service.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport, session, service).
// It is separate from operational logging (slog) - protocol capture
// provides a machine-readable event trace for debugging a link that is
// otherwise hard to observe (encrypted frames over BLE notifications).
//
// # Basic Usage
//
// Components accept a Logger; pass nil or NoopLogger to disable capture:
//
//	// For development: log to console via slog
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	logger, _ := log.NewFileLogger("/var/log/btwifiset/device.blog")
//
//	// Both: use MultiLogger
//	logger := log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: raw characteristic frames (FrameEvent)
//   - Session: lock/unlock and cipher state changes (StateChangeEvent)
//   - Service: dispatched commands and queued responses (CommandEvent)
//
// Errors have a dedicated event type and can occur at any layer.
//
// # File Format
//
// Log files use CBOR encoding with integer keys for compactness.
package log
