// Package crypt implements the dual-cipher encryption primitives for the
// encrypted BLE session.
//
// Both ciphers are keyed by SHA-256 of the shared password:
//
//   - AEAD (primary): ChaCha20-Poly1305 with the 12-byte session nonce.
//     Tampering is detected by tag verification.
//   - Legacy (block): AES-256-CBC with PKCS#7 padding, for peers without
//     ChaCha20 support. The 12-byte nonce is zero-padded to the 16-byte IV;
//     the padding bytes are never transmitted.
//
// The wire form is identical for both: nonce || cipher output. Which
// cipher a connected peer speaks is negotiated implicitly: decryption is
// attempted with the remembered cipher first and the alternate on
// failure, and the session records whichever one validated.
//
// Decrypt takes an explicit replay check; plaintext is never returned for
// a stale nonce. A nil, nil result means "drop the message", not an error.
package crypt
