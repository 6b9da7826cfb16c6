package notify

import (
	"sync"
	"time"

	"github.com/btwifiset/btwifiset-go/pkg/log"
	"github.com/btwifiset/btwifiset-go/pkg/wire"
)

// DefaultTickInterval paces the queue drain. One frame per tick keeps
// multipart bursts from overwhelming the notify channel.
const DefaultTickInterval = 250 * time.Millisecond

// frameLogLimit caps how many frame bytes go into a log event.
const frameLogLimit = 64

// Sender delivers one wire frame to the BLE notify channel.
type Sender func(frame []byte)

// PumpConfig configures a Pump.
type PumpConfig struct {
	Framer *Framer
	Send   Sender

	// OnUnlockDelivered runs after the unlock acknowledgment frame has
	// been handed to the transport; the session's DisableCipher goes
	// here. Nil disables the hook.
	OnUnlockDelivered func()

	// Interval overrides the drain cadence. Zero means
	// DefaultTickInterval.
	Interval time.Duration

	// Logger receives frame events. Nil disables capture.
	Logger log.Logger
}

// Pump drains the framer queue at a fixed cadence while a notification
// session is active. Safe for concurrent use.
type Pump struct {
	framer   *Framer
	send     Sender
	onUnlock func()
	interval time.Duration
	logger   log.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
	connID  string
}

// NewPump builds a pump draining cfg.Framer through cfg.Send.
func NewPump(cfg PumpConfig) *Pump {
	interval := cfg.Interval
	if interval == 0 {
		interval = DefaultTickInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &Pump{
		framer:   cfg.Framer,
		send:     cfg.Send,
		onUnlock: cfg.OnUnlockDelivered,
		interval: interval,
		logger:   logger,
	}
}

// Start begins a notification session: the framer is reset and the drain
// loop starts. connID tags log events for this session. Starting an
// already running pump only records the new session identifier.
func (p *Pump) Start(connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.framer.Reset()
	p.connID = connID
	if p.running {
		return
	}
	p.running = true
	p.done = make(chan struct{})
	go p.loop(p.done)
}

// Stop ends the notification session and clears the queue.
func (p *Pump) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.running = false
	close(p.done)
	p.framer.Reset()
}

// Running reports whether a notification session is active.
func (p *Pump) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Pump) loop(done chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			p.Tick()
		}
	}
}

// Tick sends at most one queued frame. Exported so tests can drive the
// drain without real time.
func (p *Pump) Tick() {
	frame, isUnlocking, ok := p.framer.Pop()
	if !ok {
		return
	}
	p.send(frame)
	p.logFrame(frame, false)

	// The unlock acknowledgment is out; the session may now stop
	// encrypting.
	if isUnlocking && p.onUnlock != nil {
		p.onUnlock()
	}
}

// SendNow delivers a frame immediately, outside the queue and the
// pacing cadence. It may overtake queued frames; that reordering is the
// point. Dropped when no session is active.
func (p *Pump) SendNow(frame []byte) {
	if !p.Running() {
		return
	}
	p.send(frame)
	p.logFrame(frame, true)
}

func (p *Pump) logFrame(frame []byte, bypass bool) {
	p.mu.Lock()
	connID := p.connID
	p.mu.Unlock()

	data := frame
	truncated := false
	if len(data) > frameLogLimit {
		data = data[:frameLogLimit]
		truncated = true
	}
	p.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    log.DirectionOut,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size:      len(frame),
			Encrypted: len(frame) > 0 && frame[0] == wire.CipherMarker,
			Bypass:    bypass,
			Data:      data,
			Truncated: truncated,
		},
	})
}
