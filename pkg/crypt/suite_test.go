package crypt

import (
	"bytes"
	"errors"
	"testing"

	"github.com/btwifiset/btwifiset-go/pkg/nonce"
)

func acceptAll(nonce.Value) bool { return true }

func TestRoundTrip(t *testing.T) {
	suite := NewSuite("test1234")

	tests := []struct {
		name      string
		cipher    Cipher
		plaintext string
	}{
		{"aead short", CipherAEAD, "\x1eLockRequest"},
		{"aead unicode", CipherAEAD, "réseau-café ☕ 無線"},
		{"aead empty-ish", CipherAEAD, "x"},
		{"cbc short", CipherLegacyCBC, "\x1eLockRequest"},
		{"cbc unicode", CipherLegacyCBC, "réseau-café ☕ 無線"},
		{"cbc block multiple", CipherLegacyCBC, "0123456789abcdef"},
	}

	tracker := nonce.NewTracker(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tracker.NextOutbound()
			frame, err := suite.Encrypt(tt.cipher, n, []byte(tt.plaintext))
			if err != nil {
				t.Fatalf("Encrypt failed: %v", err)
			}
			if !bytes.Equal(frame[:nonce.Size], n[:]) {
				t.Error("frame does not start with the nonce")
			}

			got, err := suite.Decrypt(tt.cipher, frame, acceptAll)
			if err != nil {
				t.Fatalf("Decrypt failed: %v", err)
			}
			if string(got) != tt.plaintext {
				t.Errorf("round trip = %q, want %q", got, tt.plaintext)
			}
		})
	}
}

func TestDecryptWrongKey(t *testing.T) {
	frame, err := NewSuite("correct horse").Encrypt(CipherAEAD, nonce.FromCounter(2), []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = NewSuite("battery staple").Decrypt(CipherAEAD, frame, acceptAll)
	if !errors.Is(err, ErrAuthentication) {
		t.Errorf("expected ErrAuthentication, got %v", err)
	}
}

func TestDecryptTampered(t *testing.T) {
	suite := NewSuite("test1234")
	frame, err := suite.Encrypt(CipherAEAD, nonce.FromCounter(2), []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	frame[len(frame)-1] ^= 0x01

	if _, err := suite.Decrypt(CipherAEAD, frame, acceptAll); !errors.Is(err, ErrAuthentication) {
		t.Errorf("expected ErrAuthentication, got %v", err)
	}
}

func TestDecryptReplayWithheld(t *testing.T) {
	suite := NewSuite("test1234")
	frame, err := suite.Encrypt(CipherAEAD, nonce.FromCounter(4), []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := suite.Decrypt(CipherAEAD, frame, func(nonce.Value) bool { return false })
	if err != nil {
		t.Fatalf("stale nonce must not be an error, got %v", err)
	}
	if got != nil {
		t.Error("plaintext must be withheld for a stale nonce")
	}
}

func TestDecryptReplayCheckSeesNonce(t *testing.T) {
	suite := NewSuite("test1234")
	sent := nonce.FromCounter(42)
	frame, err := suite.Encrypt(CipherLegacyCBC, sent, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}

	var seen nonce.Value
	if _, err := suite.Decrypt(CipherLegacyCBC, frame, func(n nonce.Value) bool {
		seen = n
		return true
	}); err != nil {
		t.Fatal(err)
	}
	if seen != sent {
		t.Errorf("replay check saw %v, want %v", seen, sent)
	}
}

func TestDecryptShortFrame(t *testing.T) {
	suite := NewSuite("test1234")
	for _, c := range []Cipher{CipherAEAD, CipherLegacyCBC} {
		if _, err := suite.Decrypt(c, make([]byte, nonce.Size), acceptAll); !errors.Is(err, ErrCiphertextShort) {
			t.Errorf("%s: expected ErrCiphertextShort, got %v", c, err)
		}
	}
}

func TestCBCGarbageBadPadding(t *testing.T) {
	suite := NewSuite("test1234")
	frame := make([]byte, nonce.Size+32)
	for i := range frame {
		frame[i] = byte(i * 7)
	}

	if _, err := suite.Decrypt(CipherLegacyCBC, frame, acceptAll); err == nil {
		t.Error("garbage CBC frame should fail")
	}
}

func TestPKCS7(t *testing.T) {
	for length := 0; length <= 48; length++ {
		data := bytes.Repeat([]byte{0xAB}, length)
		padded := padPKCS7(data, 16)
		if len(padded)%16 != 0 {
			t.Fatalf("length %d: padded to %d", length, len(padded))
		}
		got, err := unpadPKCS7(padded, 16)
		if err != nil {
			t.Fatalf("length %d: unpad failed: %v", length, err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("length %d: round trip mismatch", length)
		}
	}
}

func TestCipherOther(t *testing.T) {
	if CipherAEAD.Other() != CipherLegacyCBC || CipherLegacyCBC.Other() != CipherAEAD {
		t.Error("Other() must swap ciphers")
	}
}
