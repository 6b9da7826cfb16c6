// Package wire defines the byte-level framing contract shared with the
// phone applications.
//
// The framing is deliberately tiny: every protocol payload is a UTF-8
// string carrying a leading separator byte, and every encrypted frame is
// prefixed with a single marker byte so the receiver can tell ciphertext
// from clear protocol text.
//
// # Framing Bytes
//
//   - 0x1E: separator. Prefixes clear protocol text and splits a payload
//     into its fields.
//   - 0x1D: ciphertext marker. Prefixes "nonce || cipher output".
//
// # Multipart Prefix
//
// Oversized JSON notifications are split into chunks, each framed as
//
//	0x1E + "multi{target}:{seq}|{part}|{total}|" + chunk
//
// with a 1-based part index. The prefix literal is a fixed contract; both
// phone app generations parse it by string matching.
package wire
