package nonce

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestNextOutboundMonotonicEven(t *testing.T) {
	tracker := NewTracker(0)

	var prev uint64
	for i := 0; i < 100; i++ {
		v := tracker.NextOutbound()
		counter := v.Counter()
		if counter%2 != 0 {
			t.Fatalf("nonce %d is odd", counter)
		}
		if counter <= prev {
			t.Fatalf("nonce %d not greater than previous %d", counter, prev)
		}
		if v.Identifier() != 0 {
			t.Fatalf("device nonce has identifier %d, want 0", v.Identifier())
		}
		prev = counter
	}
}

func TestNewTrackerResumesPastPersisted(t *testing.T) {
	tracker := NewTracker(100)
	v := tracker.NextOutbound()
	if v.Counter() <= 102 {
		t.Errorf("first nonce %d must exceed persisted counter + 2", v.Counter())
	}
}

func TestCounterSaturation(t *testing.T) {
	tracker := NewTracker(math.MaxUint64 - 5)

	tracker.NextOutbound()
	if tracker.Looped() {
		t.Fatal("looped too early")
	}

	tracker.NextOutbound()
	if !tracker.Looped() {
		t.Error("counter should have looped")
	}
}

func TestReplayRejection(t *testing.T) {
	tracker := NewTracker(0)

	mk := func(counter uint64) Value {
		var v Value
		binary.LittleEndian.PutUint64(v[0:8], counter)
		binary.LittleEndian.PutUint32(v[8:12], 0xAAAA0001)
		return v
	}

	tests := []struct {
		counter uint64
		want    bool
	}{
		{5, true},  // first sighting
		{3, false}, // stale
		{5, false}, // duplicate
		{7, true},  // advances
	}
	for _, tt := range tests {
		if got := tracker.AcceptInbound(mk(tt.counter)); got != tt.want {
			t.Errorf("AcceptInbound(counter=%d) = %v, want %v", tt.counter, got, tt.want)
		}
	}
}

func TestReplayTablePerIdentifier(t *testing.T) {
	tracker := NewTracker(0)

	mk := func(id uint32, counter uint64) Value {
		var v Value
		binary.LittleEndian.PutUint64(v[0:8], counter)
		binary.LittleEndian.PutUint32(v[8:12], id)
		return v
	}

	if !tracker.AcceptInbound(mk(1, 10)) {
		t.Fatal("first nonce from peer 1 rejected")
	}
	// A different peer starts its own sequence.
	if !tracker.AcceptInbound(mk(2, 3)) {
		t.Fatal("first nonce from peer 2 rejected")
	}
	if tracker.AcceptInbound(mk(1, 10)) {
		t.Error("replayed nonce from peer 1 accepted")
	}
	if tracker.PeerCount() != 2 {
		t.Errorf("PeerCount = %d, want 2", tracker.PeerCount())
	}
}

func TestForget(t *testing.T) {
	tracker := NewTracker(0)

	var v Value
	binary.LittleEndian.PutUint64(v[0:8], 50)
	binary.LittleEndian.PutUint32(v[8:12], 0xBEEF)

	tracker.AcceptInbound(v)
	tracker.Forget(v)

	// After forgetting, even a stale counter is accepted again.
	var stale Value
	binary.LittleEndian.PutUint64(stale[0:8], 1)
	binary.LittleEndian.PutUint32(stale[8:12], 0xBEEF)
	if !tracker.AcceptInbound(stale) {
		t.Error("nonce from forgotten identifier should be accepted")
	}
}

func TestValueEncoding(t *testing.T) {
	v := FromCounter(0x0102030405060708)
	if v.Counter() != 0x0102030405060708 {
		t.Errorf("Counter() = %#x", v.Counter())
	}
	if v[0] != 0x08 {
		t.Errorf("encoding not little-endian: first byte %#x", v[0])
	}

	iv := v.IV()
	if len(iv) != IVSize {
		t.Fatalf("IV length %d", len(iv))
	}
	for _, b := range iv[Size:] {
		if b != 0 {
			t.Error("IV padding must be zero")
		}
	}
}

func TestFromBytesShort(t *testing.T) {
	if _, err := FromBytes(make([]byte, 11)); err == nil {
		t.Error("expected error for short buffer")
	}
}
