package nonce

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
)

// Size is the nonce size in bytes (96 bits).
const Size = 12

// IVSize is the nonce zero-padded to a legacy cipher block (128 bits).
const IVSize = 16

// ErrShortNonce indicates a buffer smaller than Size.
var ErrShortNonce = errors.New("nonce too short")

// Value is a 96-bit little-endian nonce.
type Value [Size]byte

// FromBytes extracts a Value from the first Size bytes of data.
func FromBytes(data []byte) (Value, error) {
	var v Value
	if len(data) < Size {
		return v, ErrShortNonce
	}
	copy(v[:], data[:Size])
	return v, nil
}

// FromCounter builds a device-originated Value: pure 64-bit counter,
// identifier bits zero.
func FromCounter(counter uint64) Value {
	var v Value
	binary.LittleEndian.PutUint64(v[0:8], counter)
	return v
}

// Counter returns the low 64 bits (the message counter).
func (v Value) Counter() uint64 {
	return binary.LittleEndian.Uint64(v[0:8])
}

// Identifier returns the high 32 bits (the peer identifier).
func (v Value) Identifier() uint32 {
	return binary.LittleEndian.Uint32(v[8:12])
}

// IV returns the value zero-padded to IVSize bytes, for the legacy CBC
// cipher. The padding bytes are reconstructed on both ends and never
// transmitted.
func (v Value) IV() [IVSize]byte {
	var iv [IVSize]byte
	copy(iv[:], v[:])
	return iv
}

// Tracker owns the device's outbound counter and the per-peer replay table.
// It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	counter  uint64
	looped   bool
	lastSeen map[uint32]uint64
}

// NewTracker restores a tracker from the last persisted outbound counter.
// The counter resumes two past the stored value so a crash between
// encrypt and persist can never reissue a nonce.
func NewTracker(lastNonce uint64) *Tracker {
	return &Tracker{
		counter:  lastNonce + 2,
		lastSeen: make(map[uint32]uint64),
	}
}

// NextOutbound advances the counter to the next even value and returns it
// as a device-originated nonce. Successive results are strictly
// increasing until the counter saturates; on saturation it wraps to zero
// and Looped reports true. Handling a looped counter beyond detection is
// out of scope for this protocol's usage.
func (t *Tracker) NextOutbound() Value {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.increment()
	if t.counter%2 != 0 {
		t.increment()
	}
	return FromCounter(t.counter)
}

// increment bumps the counter, wrapping at the 64-bit maximum.
// Callers must hold t.mu.
func (t *Tracker) increment() {
	if t.counter >= math.MaxUint64 {
		t.counter = 0
		t.looped = true
		return
	}
	t.counter++
}

// Current returns the last issued counter value.
func (t *Tracker) Current() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counter
}

// Looped reports whether the counter has wrapped.
func (t *Tracker) Looped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.looped
}

// AcceptInbound checks a received nonce against the replay table. The
// first nonce from an identifier is always accepted; afterwards a nonce
// is accepted only if its counter is strictly greater than the recorded
// one. On acceptance the table is updated.
func (t *Tracker) AcceptInbound(v Value) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := v.Identifier()
	counter := v.Counter()

	last, seen := t.lastSeen[id]
	if seen && counter <= last {
		return false
	}
	t.lastSeen[id] = counter
	return true
}

// Forget removes the replay table entry for the nonce's identifier.
// Called when a peer announces the end of its session.
func (t *Tracker) Forget(v Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lastSeen, v.Identifier())
}

// PeerCount returns the number of identifiers in the replay table.
func (t *Tracker) PeerCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastSeen)
}
