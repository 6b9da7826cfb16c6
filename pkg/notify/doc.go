// Package notify frames outbound protocol messages and paces their
// delivery over the BLE notify channel.
//
// The Framer turns response text and JSON payloads into wire frames
// (separator, optional target prefix, multipart chunking for oversized
// JSON) and encrypts them through the session layer. Frames wait in a
// FIFO queue.
//
// The Pump drains that queue at a fixed cadence, exactly one frame per
// tick. The pacing is deliberate: flooding the notify channel makes
// phones drop the connection. A bypass path exists for latency-sensitive
// acknowledgments that must not wait behind a multipart burst.
//
// The pump also completes the deferred unlock: the encrypted "Unlocking"
// acknowledgment is remembered by the framer, and only once that exact
// frame has been handed to the transport does the pump tell the session
// to stop encrypting.
package notify
