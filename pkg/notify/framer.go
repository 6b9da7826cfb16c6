package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/btwifiset/btwifiset-go/pkg/wire"
)

// ChunkSize is the multipart split threshold in UTF-8 bytes. Anything
// larger than one chunk is split; iOS truncates notifications well above
// this, so the margin covers the multipart prefix.
const ChunkSize = 130

// UnlockingMessage is the acknowledgment whose delivery completes an
// unlock (see the pump).
const UnlockingMessage = "Unlocking"

// defaultWifiPrefix is the v2 target tag for WiFi messages. Version 1
// phones expect WiFi messages untagged.
const defaultWifiPrefix = "wifi"

// Encryptor is the one interface the framer needs from the session
// layer: text in, wire bytes out.
type Encryptor interface {
	Encrypt(message string) ([]byte, error)
}

// Framer builds outbound wire frames and holds them in FIFO order until
// the pump drains them. Safe for concurrent use.
type Framer struct {
	mu         sync.Mutex
	enc        Encryptor
	queue      [][]byte
	seq        int
	wifiPrefix string

	// unlockingFrame is the most recently queued frame iff it carries
	// the unlock acknowledgment; cleared by any other simple message.
	unlockingFrame []byte
}

// NewFramer builds a framer delivering through enc.
func NewFramer(enc Encryptor) *Framer {
	return &Framer{enc: enc, wifiPrefix: defaultWifiPrefix}
}

// Reset clears the queue, the multipart sequence counter, and the
// version negotiation. Called when a notification session starts or ends.
func (f *Framer) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = nil
	f.seq = 0
	f.wifiPrefix = defaultWifiPrefix
	f.unlockingFrame = nil
}

// SetAppVersion records the phone protocol version. Version 1 phones
// expect WiFi messages without a target prefix.
func (f *Framer) SetAppVersion(version int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if version == 1 {
		f.wifiPrefix = ""
	} else {
		f.wifiPrefix = defaultWifiPrefix
	}
}

// prefixLocked returns the "target:" tag, honoring the v1 exception for
// WiFi messages. Callers must hold f.mu.
func (f *Framer) prefixLocked(target string) string {
	if target == defaultWifiPrefix && f.wifiPrefix == "" {
		return ""
	}
	return target + ":"
}

// QueueSimple frames and queues a short response message.
func (f *Framer) QueueSimple(msg, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	frame, err := f.enc.Encrypt(wire.SeparatorString + f.prefixLocked(target) + msg)
	if err != nil {
		return fmt.Errorf("failed to frame %q: %w", msg, err)
	}
	if msg == UnlockingMessage {
		f.unlockingFrame = frame
	} else {
		f.unlockingFrame = nil
	}
	f.queue = append(f.queue, frame)
	return nil
}

// QueueJSON serializes v and queues it. A payload that fits in one chunk
// goes out as a simple "target:json" frame; anything larger is split
// into multipart chunks, each encrypted under its own nonce. neverEncrypt
// forces clear framing regardless of the lock posture (used for the v1
// access point list, which predates encryption).
func (f *Framer) QueueJSON(target string, v any, neverEncrypt bool) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to serialize %s notification: %w", target, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	chunks := splitChunks(string(data), ChunkSize)
	if len(chunks) == 1 {
		frame, err := f.buildLocked(wire.SeparatorString+target+":"+chunks[0], neverEncrypt)
		if err != nil {
			return err
		}
		f.queue = append(f.queue, frame)
		return nil
	}

	f.seq++
	total := len(chunks)
	for i, chunk := range chunks {
		payload := wire.SeparatorString + wire.MultipartPrefix(target, f.seq, i+1, total) + chunk
		frame, err := f.buildLocked(payload, neverEncrypt)
		if err != nil {
			return err
		}
		f.queue = append(f.queue, frame)
	}
	return nil
}

// BuildSimple frames a short message without queueing it, for the bypass
// path.
func (f *Framer) BuildSimple(msg, target string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buildLocked(wire.SeparatorString+f.prefixLocked(target)+msg, false)
}

// BuildMultiJSON frames v as a one-part multipart message without
// queueing it. Some phone flows expect the "multi{target}:" form even
// for a single part; the shared sequence counter still advances so a
// later real multipart message is not mistaken for this one.
func (f *Framer) BuildMultiJSON(target string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s notification: %w", target, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	payload := wire.SeparatorString + wire.MultipartPrefix(target, f.seq, 1, 1) + string(data)
	return f.buildLocked(payload, false)
}

// buildLocked encrypts a framed payload. Callers must hold f.mu.
func (f *Framer) buildLocked(payload string, neverEncrypt bool) ([]byte, error) {
	if neverEncrypt {
		return []byte(payload), nil
	}
	frame, err := f.enc.Encrypt(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to frame notification: %w", err)
	}
	return frame, nil
}

// Pop removes the oldest queued frame. isUnlocking reports whether this
// exact frame is the remembered unlock acknowledgment.
func (f *Framer) Pop() (frame []byte, isUnlocking, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return nil, false, false
	}
	frame = f.queue[0]
	f.queue = f.queue[1:]
	isUnlocking = f.unlockingFrame != nil && bytes.Equal(frame, f.unlockingFrame)
	if isUnlocking {
		f.unlockingFrame = nil
	}
	return frame, isUnlocking, true
}

// Len returns the number of queued frames.
func (f *Framer) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// splitChunks splits s into pieces of at most size UTF-8 bytes, never
// splitting inside a codepoint: a chunk that would end mid-rune is
// shortened to the previous boundary and the rune moves whole into the
// next chunk.
func splitChunks(s string, size int) []string {
	var chunks []string
	for len(s) > size {
		n := size
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		chunks = append(chunks, s[:n])
		s = s[n:]
	}
	return append(chunks, s)
}
