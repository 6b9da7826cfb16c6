package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/btwifiset/btwifiset-go/pkg/nonce"
)

// Cipher selects one of the two supported algorithms.
type Cipher uint8

const (
	// CipherAEAD is ChaCha20-Poly1305 (primary, used by newer peers).
	CipherAEAD Cipher = 0

	// CipherLegacyCBC is AES-256-CBC with PKCS#7 padding (legacy peers).
	CipherLegacyCBC Cipher = 1
)

// String returns the cipher name.
func (c Cipher) String() string {
	switch c {
	case CipherAEAD:
		return "CHACHA20POLY1305"
	case CipherLegacyCBC:
		return "AES_CBC"
	default:
		return "UNKNOWN"
	}
}

// Other returns the alternate cipher, for the fallback decrypt attempt.
func (c Cipher) Other() Cipher {
	if c == CipherAEAD {
		return CipherLegacyCBC
	}
	return CipherAEAD
}

// Suite errors.
var (
	// ErrAuthentication indicates AEAD tag verification failed.
	ErrAuthentication = errors.New("message authentication failed")

	// ErrCiphertextShort indicates a frame too short to carry a nonce and
	// cipher output.
	ErrCiphertextShort = errors.New("ciphertext too short")

	// ErrBadPadding indicates invalid PKCS#7 padding on the legacy path.
	ErrBadPadding = errors.New("invalid padding")
)

// Suite holds the password-derived key. It is stateless and safe for
// concurrent use; nonce state lives in the nonce package.
type Suite struct {
	key [sha256.Size]byte
}

// NewSuite derives the cipher key from the shared password.
func NewSuite(password string) *Suite {
	return &Suite{key: sha256.Sum256([]byte(password))}
}

// Encrypt encrypts plaintext under the given cipher and nonce and returns
// the wire frame nonce || cipher output. The nonce must come fresh from
// the tracker; it is never reused.
func (s *Suite) Encrypt(c Cipher, n nonce.Value, plaintext []byte) ([]byte, error) {
	switch c {
	case CipherAEAD:
		aead, err := chacha20poly1305.New(s.key[:])
		if err != nil {
			return nil, fmt.Errorf("failed to create AEAD: %w", err)
		}
		out := make([]byte, 0, nonce.Size+len(plaintext)+aead.Overhead())
		out = append(out, n[:]...)
		return aead.Seal(out, n[:], plaintext, nil), nil

	case CipherLegacyCBC:
		block, err := aes.NewCipher(s.key[:])
		if err != nil {
			return nil, fmt.Errorf("failed to create AES cipher: %w", err)
		}
		padded := padPKCS7(plaintext, aes.BlockSize)
		iv := n.IV()
		out := make([]byte, nonce.Size+len(padded))
		copy(out, n[:])
		cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(out[nonce.Size:], padded)
		return out, nil

	default:
		return nil, fmt.Errorf("unknown cipher %d", c)
	}
}

// Decrypt decrypts a wire frame (nonce || cipher output) with the given
// cipher. replayOK is consulted with the extracted nonce after the
// ciphertext validates; if it reports false the plaintext is withheld and
// Decrypt returns nil, nil. Callers must drop the message, not treat it
// as an error.
func (s *Suite) Decrypt(c Cipher, data []byte, replayOK func(nonce.Value) bool) ([]byte, error) {
	if len(data) <= nonce.Size {
		return nil, ErrCiphertextShort
	}
	n, err := nonce.FromBytes(data)
	if err != nil {
		return nil, err
	}
	ct := data[nonce.Size:]

	var plaintext []byte
	switch c {
	case CipherAEAD:
		aead, err := chacha20poly1305.New(s.key[:])
		if err != nil {
			return nil, fmt.Errorf("failed to create AEAD: %w", err)
		}
		plaintext, err = aead.Open(nil, n[:], ct, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
		}

	case CipherLegacyCBC:
		block, err := aes.NewCipher(s.key[:])
		if err != nil {
			return nil, fmt.Errorf("failed to create AES cipher: %w", err)
		}
		if len(ct)%aes.BlockSize != 0 {
			return nil, fmt.Errorf("%w: %d not a block multiple", ErrCiphertextShort, len(ct))
		}
		iv := n.IV()
		padded := make([]byte, len(ct))
		cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(padded, ct)
		plaintext, err = unpadPKCS7(padded, aes.BlockSize)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown cipher %d", c)
	}

	// Replay check happens only after the ciphertext validates, so a
	// forged frame cannot advance the table.
	if replayOK != nil && !replayOK(n) {
		return nil, nil
	}
	return plaintext, nil
}

// padPKCS7 appends PKCS#7 padding up to blockSize.
func padPKCS7(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

// unpadPKCS7 validates and strips PKCS#7 padding.
func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrBadPadding
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, ErrBadPadding
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, ErrBadPadding
		}
	}
	return data[:len(data)-padLen], nil
}
