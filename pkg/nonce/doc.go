// Package nonce maintains the outbound message counter and the inbound
// replay protection table for the encrypted BLE session.
//
// # Nonce Layout
//
// A nonce is 12 bytes, little-endian. The low 8 bytes are a message
// counter. The high 4 bytes are a peer-chosen random identifier that
// distinguishes concurrently connected phones; device-originated nonces
// always carry identifier 0.
//
// # Parity Convention
//
// Device-originated counters are always advanced to the next even value
// before use. This is a wire-format contract with the phone applications:
// it keeps device nonces disjoint from any odd-counter convention a peer
// may use. Do not infer additional meaning.
//
// # Replay Protection
//
// A received nonce is accepted only if its counter is strictly greater
// than the last accepted counter for its identifier (first sighting of an
// identifier is always accepted). Stale nonces are dropped by the caller,
// never answered.
package nonce
