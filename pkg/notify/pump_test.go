package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureSender records delivered frames in order.
type captureSender struct {
	mu     sync.Mutex
	frames []string
}

func (c *captureSender) send(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, string(frame))
}

func (c *captureSender) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.frames...)
}

func TestTickSendsExactlyOneFrame(t *testing.T) {
	f := NewFramer(clearEncryptor{})
	sender := &captureSender{}
	p := NewPump(PumpConfig{Framer: f, Send: sender.send, Interval: time.Hour})
	p.Start("conn-1")
	defer p.Stop()

	for _, msg := range []string{"one", "two", "three"} {
		require.NoError(t, f.QueueSimple(msg, "wifi"))
	}

	p.Tick()
	assert.Equal(t, []string{"\x1ewifi:one"}, sender.all())

	p.Tick()
	p.Tick()
	assert.Equal(t, []string{"\x1ewifi:one", "\x1ewifi:two", "\x1ewifi:three"}, sender.all())

	// Nothing queued: a tick is a no-op.
	p.Tick()
	assert.Len(t, sender.all(), 3)
}

func TestPumpDrainsOnCadence(t *testing.T) {
	f := NewFramer(clearEncryptor{})
	sender := &captureSender{}
	p := NewPump(PumpConfig{Framer: f, Send: sender.send, Interval: 5 * time.Millisecond})
	p.Start("conn-1")
	defer p.Stop()

	require.NoError(t, f.QueueSimple("a", "wifi"))
	require.NoError(t, f.QueueSimple("b", "wifi"))

	assert.Eventually(t, func() bool {
		return len(sender.all()) == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"\x1ewifi:a", "\x1ewifi:b"}, sender.all())
}

func TestUnlockDeliveryHook(t *testing.T) {
	f := NewFramer(clearEncryptor{})
	sender := &captureSender{}
	unlocked := 0
	p := NewPump(PumpConfig{
		Framer:            f,
		Send:              sender.send,
		OnUnlockDelivered: func() { unlocked++ },
		Interval:          time.Hour,
	})
	p.Start("conn-1")
	defer p.Stop()

	require.NoError(t, f.QueueSimple("Locked", "crypto"))
	require.NoError(t, f.QueueSimple(UnlockingMessage, "crypto"))

	p.Tick()
	assert.Zero(t, unlocked, "hook must wait for the unlocking frame itself")

	p.Tick()
	assert.Equal(t, 1, unlocked)
}

func TestSendNowOvertakesQueue(t *testing.T) {
	f := NewFramer(clearEncryptor{})
	sender := &captureSender{}
	p := NewPump(PumpConfig{Framer: f, Send: sender.send, Interval: time.Hour})
	p.Start("conn-1")
	defer p.Stop()

	require.NoError(t, f.QueueSimple("queued", "wifi"))

	frame, err := f.BuildSimple("SCANNING", "wifi")
	require.NoError(t, err)
	p.SendNow(frame)
	p.Tick()

	assert.Equal(t, []string{"\x1ewifi:SCANNING", "\x1ewifi:queued"}, sender.all())
}

func TestSendNowDroppedWhenStopped(t *testing.T) {
	f := NewFramer(clearEncryptor{})
	sender := &captureSender{}
	p := NewPump(PumpConfig{Framer: f, Send: sender.send})

	p.SendNow([]byte("\x1ewifi:SCANNING"))
	assert.Empty(t, sender.all())
}

func TestStartResetsSession(t *testing.T) {
	f := NewFramer(clearEncryptor{})
	sender := &captureSender{}
	p := NewPump(PumpConfig{Framer: f, Send: sender.send, Interval: time.Hour})

	p.Start("conn-1")
	require.NoError(t, f.QueueSimple("stale", "wifi"))
	p.Stop()
	assert.Zero(t, f.Len(), "stop must clear the queue")

	p.Start("conn-2")
	defer p.Stop()
	assert.True(t, p.Running())
	assert.Zero(t, f.Len())
}
