package session

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/btwifiset/btwifiset-go/pkg/crypt"
	"github.com/btwifiset/btwifiset-go/pkg/log"
	"github.com/btwifiset/btwifiset-go/pkg/nonce"
	"github.com/btwifiset/btwifiset-go/pkg/persistence"
	"github.com/btwifiset/btwifiset-go/pkg/wire"
)

// Protocol sentinels and response vocabulary. These strings are a wire
// contract with the phone application.
const (
	// LockRequestPayload is the framed sentinel a phone sends, encrypted,
	// to lock the device.
	LockRequestPayload = wire.SeparatorString + "LockRequest"

	ResponseLocked     = "Locked"
	ResponseUnlocked   = "Unlocked"
	ResponseNoPassword = "NoPassword"

	// ResponseGarbledPrefix is completed with the consecutive failure
	// count ("Garbled1", "Garbled2").
	ResponseGarbledPrefix = "Garbled"
)

// DefaultDisconnectDelay is how long a misbehaving peer gets to recover
// before the disconnect timer fires.
const DefaultDisconnectDelay = 20 * time.Second

// ResultKind discriminates Decrypt outcomes.
type ResultKind uint8

const (
	// ResultPlaintext carries a decrypted (or already-clear) payload for
	// the command dispatcher.
	ResultPlaintext ResultKind = 0

	// ResultDropped means the frame was discarded (stale nonce, or a
	// lockout that closed the connection). Nothing is sent back.
	ResultDropped ResultKind = 1

	// ResultResponse means the frame could not be handled as a command;
	// Response holds the protocol reply to notify.
	ResultResponse ResultKind = 2
)

// Result is the outcome of processing one inbound frame.
type Result struct {
	Kind     ResultKind
	Payload  []byte // set for ResultPlaintext
	Response string // set for ResultResponse
}

// Config configures an Authenticator.
type Config struct {
	// Password is the shared secret. Empty means no password is
	// configured and the device can never lock.
	Password string

	// DeviceID is the hex hardware identifier reported to the phone.
	DeviceID string

	// Store persists lock posture and the nonce counter. Nil keeps state
	// in memory only.
	Store *persistence.StateStore

	// Disconnect closes the BLE connection when the brute-force throttle
	// trips. Nil installs a no-op.
	Disconnect func()

	// DisconnectDelay overrides the failure timer delay. Zero means
	// DefaultDisconnectDelay.
	DisconnectDelay time.Duration

	// Logger receives protocol events. Nil disables capture.
	Logger log.Logger
}

// Authenticator is the lock/unlock state machine guarding the
// characteristic. It owns the cipher suite, the nonce tracker, and the
// brute-force throttle. Safe for concurrent use.
type Authenticator struct {
	mu       sync.Mutex
	suite    *crypt.Suite // nil when no password is configured
	cipher   crypt.Cipher // last cipher the peer was seen using
	locked   bool
	tracker  *nonce.Tracker
	store    *persistence.StateStore
	idBytes  []byte
	retries  retryCounter
	timer    *time.Timer
	timerGen uint64
	delay    time.Duration

	// sessionEnd is the plaintext whose receipt means the peer is
	// leaving; its replay entry is forgotten so the identifier can be
	// reused on a later connection.
	sessionEnd string

	disconnect func()
	logger     log.Logger
	connID     string
}

// New builds an Authenticator, restoring the persisted lock posture and
// nonce counter. The Locked posture is only honored when a password is
// configured; a device whose password was removed comes up Unlocked.
func New(cfg Config) (*Authenticator, error) {
	idBytes, err := hex.DecodeString(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("invalid device ID %q: %w", cfg.DeviceID, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}
	disconnect := cfg.Disconnect
	if disconnect == nil {
		disconnect = func() {}
	}
	delay := cfg.DisconnectDelay
	if delay == 0 {
		delay = DefaultDisconnectDelay
	}

	var state persistence.State
	if cfg.Store != nil {
		state, err = cfg.Store.Load()
		if err != nil {
			// A bad state document must not stop the service.
			logger.Log(log.Event{
				Timestamp: time.Now(),
				Layer:     log.LayerSession,
				Category:  log.CategoryError,
				Error: &log.ErrorEventData{
					Layer:   log.LayerSession,
					Message: err.Error(),
					Context: "loading persisted state",
				},
			})
			state = persistence.State{}
		}
	}

	a := &Authenticator{
		tracker:    nonce.NewTracker(state.LastNonce),
		store:      cfg.Store,
		idBytes:    idBytes,
		delay:      delay,
		disconnect: disconnect,
		logger:     logger,
	}
	if cfg.Password != "" {
		a.suite = crypt.NewSuite(cfg.Password)
		a.locked = state.Locked
	}
	return a, nil
}

// Locked reports the current lock posture.
func (a *Authenticator) Locked() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.locked
}

// HasPassword reports whether a shared password is configured.
func (a *Authenticator) HasPassword() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.suite != nil
}

// CipherInUse returns the cipher the peer was last seen using.
func (a *Authenticator) CipherInUse() crypt.Cipher {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cipher
}

// SetConnectionID tags subsequent log events with the notification
// session identifier.
func (a *Authenticator) SetConnectionID(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connID = id
}

// SetSessionEndSentinel registers the plaintext that announces the end of
// the peer's session.
func (a *Authenticator) SetSessionEndSentinel(s string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessionEnd = s
}

// Decrypt processes one inbound frame and returns what to do with it.
// Cryptographic failures never escape: they are converted into the
// protocol response vocabulary or a silent drop.
func (a *Authenticator) Decrypt(data []byte) Result {
	a.mu.Lock()
	res, after := a.decryptLocked(data)
	a.mu.Unlock()
	if after != nil {
		after()
	}
	return res
}

// decryptLocked does the state machine work. The returned func, if any,
// must run after the lock is released (it calls out to the disconnect
// callback).
func (a *Authenticator) decryptLocked(data []byte) (Result, func()) {
	if !a.locked || a.suite == nil {
		if wire.IsClearText(data) {
			return Result{Kind: ResultPlaintext, Payload: data}, nil
		}
		return a.lockAttemptLocked(data)
	}

	plaintext, n, err := a.tryDecryptLocked(data)
	if err != nil {
		return a.garbledLocked(err)
	}

	// A valid frame ends any garbled or lock-request counting.
	a.retries.reset()
	a.cancelTimerLocked()

	if plaintext == nil {
		// Stale nonce: drop without a response.
		return Result{Kind: ResultDropped}, nil
	}
	if a.sessionEnd != "" && string(plaintext) == a.sessionEnd {
		a.tracker.Forget(n)
	}
	return Result{Kind: ResultPlaintext, Payload: plaintext}, nil
}

// lockAttemptLocked handles undecodable bytes while Unlocked: either a
// valid encrypted "LockRequest" or a failed lock attempt.
func (a *Authenticator) lockAttemptLocked(data []byte) (Result, func()) {
	if a.suite == nil {
		return Result{Kind: ResultResponse, Response: ResponseNoPassword}, nil
	}

	plaintext, _, err := a.tryDecryptLocked(data)
	if err == nil && plaintext == nil {
		// Replayed frame: drop, and do not count it as an attempt.
		return Result{Kind: ResultDropped}, nil
	}
	if err == nil && string(plaintext) == LockRequestPayload {
		a.locked = true
		a.retries.reset()
		a.cancelTimerLocked()
		a.saveLocked()
		a.logStateLocked(log.StateEntityLock, "UNLOCKED", "LOCKED", "lock request accepted")
		return Result{Kind: ResultResponse, Response: ResponseLocked}, nil
	}

	// Wrong password, or a valid ciphertext that is not a lock request:
	// either way a failed lock attempt.
	n := a.retries.bump(retryLockRequest)
	if n >= maxLockAttempts {
		a.armTimerLocked("repeated failed lock attempts")
	}
	return Result{Kind: ResultResponse, Response: ResponseUnlocked}, nil
}

// garbledLocked handles an undecryptable frame while Locked.
func (a *Authenticator) garbledLocked(cause error) (Result, func()) {
	n := a.retries.bump(retryGarbled)
	if n > maxGarbledReplies {
		a.cancelTimerLocked()
		a.logStateLocked(log.StateEntityTimer, "", "DISCONNECTING", "garbled limit exceeded")
		return Result{Kind: ResultDropped}, a.disconnect
	}

	a.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: a.connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerSession,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerSession,
			Message: cause.Error(),
			Context: fmt.Sprintf("garbled frame %d of %d", n, maxGarbledReplies),
		},
	})
	a.armTimerLocked("garbled traffic")
	return Result{Kind: ResultResponse, Response: fmt.Sprintf("%s%d", ResponseGarbledPrefix, n)}, nil
}

// tryDecryptLocked attempts decryption with the remembered cipher first,
// then the alternate. A success with the alternate flips the remembered
// cipher so subsequent notifications use what the peer speaks.
func (a *Authenticator) tryDecryptLocked(data []byte) ([]byte, nonce.Value, error) {
	n, err := nonce.FromBytes(data)
	if err != nil {
		return nil, nonce.Value{}, err
	}

	plaintext, err := a.suite.Decrypt(a.cipher, data, a.tracker.AcceptInbound)
	if err == nil {
		return plaintext, n, nil
	}

	alt := a.cipher.Other()
	plaintext, altErr := a.suite.Decrypt(alt, data, a.tracker.AcceptInbound)
	if altErr != nil {
		return nil, n, err
	}
	a.logStateLocked(log.StateEntityCipher, a.cipher.String(), alt.String(), "peer cipher detected")
	a.cipher = alt
	return plaintext, n, nil
}

// Encrypt prepares an outbound message: verbatim UTF-8 when Unlocked,
// otherwise the ciphertext marker, a fresh nonce, and the cipher output.
// The advanced counter is persisted so a restart can never reissue a
// nonce.
func (a *Authenticator) Encrypt(message string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.locked || a.suite == nil {
		return []byte(message), nil
	}

	n := a.tracker.NextOutbound()
	frame, err := a.suite.Encrypt(a.cipher, n, []byte(message))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt notification: %w", err)
	}
	a.saveLocked()

	out := make([]byte, 0, 1+len(frame))
	out = append(out, wire.CipherMarker)
	return append(out, frame...), nil
}

// DisableCipher drops to the Unlocked posture. The notification pump
// calls this once the encrypted "Unlocking" acknowledgment has been
// handed to the transport.
func (a *Authenticator) DisableCipher() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.locked {
		return
	}
	a.locked = false
	a.retries.reset()
	a.cancelTimerLocked()
	a.saveLocked()
	a.logStateLocked(log.StateEntityLock, "LOCKED", "UNLOCKED", "unlock acknowledgment delivered")
}

// Info returns the characteristic read payload: "NoPassword" when no
// password is configured, otherwise the current nonce counter and the
// device identifier, with a "LOCK" prefix when Locked.
func (a *Authenticator) Info() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.suite == nil {
		return []byte(ResponseNoPassword)
	}
	n := nonce.FromCounter(a.tracker.Current())
	out := make([]byte, 0, 4+nonce.Size+len(a.idBytes))
	if a.locked {
		out = append(out, "LOCK"...)
	}
	out = append(out, n[:]...)
	return append(out, a.idBytes...)
}

// Close cancels the disconnect timer and persists the final state.
func (a *Authenticator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelTimerLocked()
	if a.store == nil {
		return nil
	}
	return a.store.Save(persistence.State{Locked: a.locked, LastNonce: a.tracker.Current()})
}

// saveLocked persists the current posture. Persistence trouble is logged
// and swallowed; it must never surface as a protocol failure.
func (a *Authenticator) saveLocked() {
	if a.store == nil {
		return
	}
	if err := a.store.Save(persistence.State{Locked: a.locked, LastNonce: a.tracker.Current()}); err != nil {
		a.logger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: a.connID,
			Layer:        log.LayerSession,
			Category:     log.CategoryError,
			Error: &log.ErrorEventData{
				Layer:   log.LayerSession,
				Message: err.Error(),
				Context: "saving state",
			},
		})
	}
}

// armTimerLocked arms the single-shot disconnect timer, cancelling any
// previous instance so at most one is ever alive.
func (a *Authenticator) armTimerLocked(reason string) {
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timerGen++
	gen := a.timerGen
	a.timer = time.AfterFunc(a.delay, func() { a.timerFired(gen) })
	a.logStateLocked(log.StateEntityTimer, "", "ARMED", reason)
}

// cancelTimerLocked stops the disconnect timer if armed.
func (a *Authenticator) cancelTimerLocked() {
	a.timerGen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// timerFired runs in the timer goroutine. The generation check discards
// a firing that raced with a cancel or re-arm.
func (a *Authenticator) timerFired(gen uint64) {
	a.mu.Lock()
	if gen != a.timerGen {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	disconnect := a.disconnect
	a.logStateLocked(log.StateEntityTimer, "ARMED", "FIRED", "peer did not recover")
	a.mu.Unlock()

	disconnect()
}

// logStateLocked emits a state change event. Callers must hold a.mu.
func (a *Authenticator) logStateLocked(entity log.StateEntity, oldState, newState, reason string) {
	a.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: a.connID,
		Layer:        log.LayerSession,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}
