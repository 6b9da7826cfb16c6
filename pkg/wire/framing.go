package wire

import (
	"bytes"
	"unicode/utf8"
)

// Framing bytes. These values are a fixed contract with the phone
// applications and must not change.
const (
	// Separator prefixes clear protocol text and splits payload fields.
	Separator byte = 0x1E

	// CipherMarker prefixes an encrypted frame (nonce || cipher output).
	CipherMarker byte = 0x1D
)

// SeparatorString is the separator as a one-byte string, for building
// outbound payloads by concatenation.
const SeparatorString = "\x1e"

// SplitPayload splits a decrypted inbound payload on the separator byte
// into two UTF-8 fields. A payload with fewer than two fields pads with an
// empty second field; extra separators are preserved inside the second
// field boundary (the command vocabulary only ever inspects two).
//
// A leading separator yields an empty first field, which marks the payload
// as a command rather than an SSID connection request.
func SplitPayload(payload []byte) (first, second string) {
	fields := bytes.Split(payload, []byte{Separator})
	first = string(fields[0])
	if len(fields) > 1 {
		second = string(fields[1])
	}
	return first, second
}

// IsClearText reports whether data decodes as valid UTF-8 text. Encrypted
// frames contain the raw nonce and cipher output and fail this check with
// overwhelming probability.
func IsClearText(data []byte) bool {
	return utf8.Valid(data)
}
