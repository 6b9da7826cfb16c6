package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/btwifiset/btwifiset-go/pkg/log"
	"github.com/btwifiset/btwifiset-go/pkg/notify"
	"github.com/btwifiset/btwifiset-go/pkg/session"
	"github.com/btwifiset/btwifiset-go/pkg/wifi"
	"github.com/btwifiset/btwifiset-go/pkg/wire"
)

// End-of-session handshake: the phone "connects" to this pseudo network
// to announce it is leaving, and expects the 3111 acknowledgment back.
const (
	endSessionSSID = "#ssid-endBT#"
	endSessionPW   = "#pw-endBT#"
)

// openNetworkPassword is the placeholder a phone sends for networks that
// need no password.
const openNetworkPassword = "NONE"

// scanCacheTTL bounds how long cached scan results are served before a
// fresh scan is required.
const scanCacheTTL = 30 * time.Second

// Config configures a WifiSetService.
type Config struct {
	Auth    *session.Authenticator
	Manager wifi.Manager

	// Send delivers wire frames to the BLE notify channel.
	Send notify.Sender

	// PumpInterval overrides the notification cadence (tests).
	PumpInterval time.Duration

	// Logger for debug output (optional).
	Logger *slog.Logger

	// ProtocolLogger for structured event capture (optional).
	ProtocolLogger log.Logger
}

// WifiSetService is the provisioning service behind the WiFi data
// characteristic.
type WifiSetService struct {
	auth   *session.Authenticator
	mgr    wifi.Manager
	framer *notify.Framer
	pump   *notify.Pump

	logger *slog.Logger
	plog   log.Logger

	mu     sync.Mutex
	connID string

	// v1 phones read the scan results one access point per read.
	apList []string

	// v2 scan cache, served while fresh to keep the WiFi radio quiet
	// during a BLE session.
	scanCache   []string
	scanCacheAt time.Time
	scanPending bool

	bleActive       bool
	sentReady2      bool
	sentPlaceholder bool
	endingSession   bool
	lastActivity    time.Time
}

// New wires the service to its session, manager, and transport.
func New(cfg Config) *WifiSetService {
	plog := cfg.ProtocolLogger
	if plog == nil {
		plog = log.NoopLogger{}
	}

	s := &WifiSetService{
		auth:         cfg.Auth,
		mgr:          cfg.Manager,
		logger:       cfg.Logger,
		plog:         plog,
		lastActivity: time.Now(),
	}
	s.framer = notify.NewFramer(cfg.Auth)
	s.pump = notify.NewPump(notify.PumpConfig{
		Framer:            s.framer,
		Send:              cfg.Send,
		OnUnlockDelivered: cfg.Auth.DisableCipher,
		Interval:          cfg.PumpInterval,
		Logger:            plog,
	})
	cfg.Auth.SetSessionEndSentinel(endSessionSSID + wire.SeparatorString + endSessionPW)
	return s
}

// StartNotify begins a notification session and returns its identifier.
// The phone expects READY2 plus a first multiwifi frame right away, so
// the session is primed with a placeholder before any command arrives.
func (s *WifiSetService) StartNotify() string {
	id := uuid.NewString()
	s.auth.SetConnectionID(id)

	s.mu.Lock()
	s.connID = id
	s.bleActive = true
	s.sentReady2 = false
	s.sentPlaceholder = false
	s.endingSession = false
	s.mu.Unlock()

	s.pump.Start(id)
	s.primeSession()

	if s.logger != nil {
		s.logger.Info("notification session started", "conn", id)
	}
	return id
}

// StopNotify ends the notification session. A deferred or stale scan
// runs now that the BLE link no longer competes for the radio.
func (s *WifiSetService) StopNotify() {
	s.pump.Stop()

	s.mu.Lock()
	s.bleActive = false
	need := s.scanPending || time.Since(s.scanCacheAt) > scanCacheTTL
	s.scanPending = false
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("notification session stopped", "refresh_scan", need)
	}
	if need {
		go s.refreshScanCache()
	}
}

// primeSession pushes READY2 and an empty placeholder list through the
// bypass path, once per session.
func (s *WifiSetService) primeSession() {
	s.mu.Lock()
	if s.sentPlaceholder {
		s.mu.Unlock()
		return
	}
	s.sentPlaceholder = true
	s.mu.Unlock()

	if frame, err := s.framer.BuildSimple("READY2", "wifi"); err == nil {
		s.pump.SendNow(frame)
	} else if s.logger != nil {
		s.logger.Warn("failed to build READY2", "err", err)
	}
	if frame, err := s.framer.BuildMultiJSON("wifi", scanningPlaceholder()); err == nil {
		s.pump.SendNow(frame)
	} else if s.logger != nil {
		s.logger.Warn("failed to build placeholder", "err", err)
	}
}

func scanningPlaceholder() map[string]any {
	return map[string]any{"allAps": []any{}, "status": "scanning"}
}

// ReadInfo serves the info characteristic: lock posture, nonce counter,
// and device identifier.
func (s *WifiSetService) ReadInfo() []byte {
	s.touch()
	return s.auth.Info()
}

// ReadAccessPoint serves one access point per read for v1 phones; the
// separator-plus-EMPTY frame marks the end of the list. The reply is
// encrypted when the session is locked, like everything else.
func (s *WifiSetService) ReadAccessPoint() []byte {
	s.touch()

	msg := wire.SeparatorString + "EMPTY"
	s.mu.Lock()
	if len(s.apList) > 0 {
		msg = s.apList[0]
		s.apList = s.apList[1:]
	}
	s.mu.Unlock()

	out, err := s.auth.Encrypt(msg)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to encrypt access point read", "err", err)
		}
		return []byte(wire.SeparatorString + "EMPTY")
	}
	return out
}

// EndingSession reports whether the phone has announced the end of its
// session; the caller tears the connection down after the acknowledgment
// is delivered.
func (s *WifiSetService) EndingSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endingSession
}

// IdleFor returns how long ago the phone last wrote or read anything.
func (s *WifiSetService) IdleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

// Close stops the notification pump.
func (s *WifiSetService) Close() {
	s.pump.Stop()
}

func (s *WifiSetService) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// refreshScanCache scans purely to keep the v2 cache warm.
func (s *WifiSetService) refreshScanCache() {
	aps, err := s.mgr.Scan()
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("cache refresh scan failed", "err", err)
		}
		return
	}
	msgs := apMessages(aps)

	s.mu.Lock()
	s.scanCache = msgs
	s.scanCacheAt = time.Now()
	s.mu.Unlock()
}

func apMessages(aps []wifi.AccessPoint) []string {
	msgs := make([]string, 0, len(aps))
	for _, ap := range aps {
		msgs = append(msgs, ap.Msg())
	}
	return msgs
}
