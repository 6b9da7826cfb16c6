package service

import (
	"strings"
	"time"

	"github.com/btwifiset/btwifiset-go/pkg/log"
	"github.com/btwifiset/btwifiset-go/pkg/notify"
	"github.com/btwifiset/btwifiset-go/pkg/session"
	"github.com/btwifiset/btwifiset-go/pkg/wire"
)

// HandleWrite processes one characteristic write from the phone. Any
// write resets the idle clock, even one that fails authentication.
func (s *WifiSetService) HandleWrite(data []byte) {
	s.touch()

	res := s.auth.Decrypt(data)
	switch res.Kind {
	case session.ResultDropped:
		if s.logger != nil {
			s.logger.Debug("inbound frame dropped")
		}
		return

	case session.ResultResponse:
		// Lock-state responses go back on the crypto target; whether
		// they travel encrypted follows the current posture.
		s.logCommand("unknown", "crypto", res.Response)
		if err := s.framer.QueueSimple(res.Response, "crypto"); err != nil && s.logger != nil {
			s.logger.Error("failed to queue lock response", "err", err)
		}
		return
	}

	first, second := wire.SplitPayload(res.Payload)
	if first == "" {
		s.dispatchCommand(second)
		return
	}
	s.connectRequest(first, second)
}

// dispatchCommand handles the separator-prefixed command vocabulary.
func (s *WifiSetService) dispatchCommand(cmd string) {
	switch {
	case cmd == "ON":
		s.logCommand("ON", "wifi", "")
		s.radio(true)

	case cmd == "OFF":
		s.logCommand("OFF", "wifi", "")
		s.radio(false)

	case cmd == "DISCONN":
		s.logCommand("DISCONN", "wifi", "")
		if err := s.mgr.Disconnect(); err != nil && s.logger != nil {
			s.logger.Error("disconnect failed", "err", err)
		}

	case cmd == "AP2s":
		s.logCommand("AP2s", "wifi", "")
		s.handleAPList2()

	case cmd == "APs":
		s.logCommand("APs", "wifi", "")
		s.handleAPList1()

	case strings.HasPrefix(cmd, "DEL-"):
		ssid := cmd[len("DEL-"):]
		s.logCommand("DEL", "wifi", ssid)
		if err := s.mgr.Delete(ssid); err != nil && s.logger != nil {
			s.logger.Error("delete failed", "ssid", ssid, "err", err)
		}
		s.queueSimple("DELETED", "wifi")

	case cmd == "UnlockRequest":
		// The acknowledgment must go out encrypted; the pump disables
		// the cipher only after this exact frame is delivered.
		s.logCommand("UnlockRequest", "crypto", notify.UnlockingMessage)
		s.queueSimple(notify.UnlockingMessage, "crypto")

	case cmd == "CheckIn":
		s.logCommand("CheckIn", "crypto", "CheckedIn")
		s.queueSimple("CheckedIn", "crypto")

	case cmd == "infoIP":
		s.logCommand("infoIP", "wifi", "")
		s.queueJSON("wifi", s.mgr.IPAddresses(), false)

	case cmd == "infoMac":
		s.logCommand("infoMac", "wifi", "")
		s.queueJSON("wifi", s.mgr.MACAddresses(), false)

	case cmd == "infoAP":
		s.logCommand("infoAP", "wifi", "")
		s.queueJSON("wifi", s.mgr.ChannelInfo(), false)

	case cmd == "infoOther":
		s.logCommand("infoOther", "wifi", "")
		// Diagnostic extras travel in clear regardless of posture.
		if oth := s.mgr.OtherInfo(); oth != nil {
			s.queueJSON("wifi", oth, true)
		}

	case cmd == "infoAll":
		s.logCommand("infoAll", "wifi", "")
		s.queueJSON("wifi", s.mgr.IPAddresses(), false)
		s.queueJSON("wifi", s.mgr.MACAddresses(), false)
		s.queueJSON("wifi", s.mgr.ChannelInfo(), false)
		if oth := s.mgr.OtherInfo(); oth != nil {
			s.queueJSON("wifi", oth, true)
		}

	case cmd == "":
		// A blank command is usually a dropped stale frame upstream of
		// the dispatcher; nothing to do.
		if s.logger != nil {
			s.logger.Debug("blank command ignored")
		}

	default:
		if s.logger != nil {
			s.logger.Warn("unrecognized command", "cmd", cmd)
		}
	}
}

// connectRequest handles an SSID write: the end-of-session handshake or
// a real connection attempt.
func (s *WifiSetService) connectRequest(ssid, password string) {
	if ssid == endSessionSSID && password == endSessionPW {
		s.mu.Lock()
		s.endingSession = true
		s.mu.Unlock()
		s.logCommand("endBT", "wifi", "3111"+ssid)
		s.queueSimple("3111"+ssid, "wifi")
		return
	}

	if password == openNetworkPassword {
		password = ""
	}
	s.logCommand("ssid", "wifi", ssid)

	// Joining a network can take seconds; the result comes back through
	// the framer queue.
	go func() {
		msg, err := s.mgr.Connect(ssid, password)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("connection attempt failed", "ssid", ssid, "err", err)
			}
			msg = ""
		}
		if msg == "" {
			s.queueSimple("FAIL", "wifi")
			return
		}
		s.queueSimple(msg, "wifi")
	}()
}

// handleAPList2 serves the v2 scan flow: cached results when fresh,
// otherwise a placeholder now and a scan when the radio is free.
func (s *WifiSetService) handleAPList2() {
	s.framer.SetAppVersion(2)

	s.mu.Lock()
	cached := append([]string(nil), s.scanCache...)
	fresh := len(cached) > 0 && time.Since(s.scanCacheAt) < scanCacheTTL
	deferred := s.bleActive && !fresh
	if deferred {
		s.scanPending = true
	}
	ready2 := !s.sentReady2
	s.sentReady2 = true
	s.mu.Unlock()

	s.primeSession()
	if ready2 {
		s.queueSimple("READY2", "wifi")
	}

	if fresh {
		s.queueJSON("wifi", map[string]any{"allAps": cached}, false)
		return
	}
	if deferred {
		// Scanning while BLE is streaming makes the shared radio drop
		// the connection; the scan runs when notifications stop.
		if s.logger != nil {
			s.logger.Info("BLE active, deferring scan")
		}
		return
	}
	go s.scanAndNotify2()
}

func (s *WifiSetService) scanAndNotify2() {
	aps, err := s.mgr.Scan()
	if err != nil {
		if s.logger != nil {
			s.logger.Error("scan failed", "err", err)
		}
		s.queueSimple("ERROR:Scan failed", "wifi")
		s.queueJSON("wifi", map[string]any{"allAps": []any{}}, false)
		return
	}
	msgs := apMessages(aps)

	s.mu.Lock()
	s.scanCache = msgs
	s.scanCacheAt = time.Now()
	s.mu.Unlock()

	s.queueJSON("wifi", map[string]any{"allAps": msgs}, false)
}

// handleAPList1 serves the v1 scan flow: scan, stage the list for
// one-by-one reads, then announce READY.
func (s *WifiSetService) handleAPList1() {
	s.framer.SetAppVersion(1)

	go func() {
		aps, err := s.mgr.Scan()
		if err != nil {
			if s.logger != nil {
				s.logger.Error("scan failed", "err", err)
			}
			s.mu.Lock()
			s.apList = nil
			s.mu.Unlock()
			s.queueSimple("ERROR:Scan failed", "wifi")
			return
		}

		s.mu.Lock()
		s.apList = apMessages(aps)
		s.mu.Unlock()
		s.queueSimple("READY", "wifi")
	}()
}

func (s *WifiSetService) radio(on bool) {
	if err := s.mgr.SetRadio(on); err != nil && s.logger != nil {
		s.logger.Error("radio switch failed", "on", on, "err", err)
	}
}

func (s *WifiSetService) queueSimple(msg, target string) {
	if err := s.framer.QueueSimple(msg, target); err != nil && s.logger != nil {
		s.logger.Error("failed to queue notification", "target", target, "err", err)
	}
}

func (s *WifiSetService) queueJSON(target string, v any, neverEncrypt bool) {
	if err := s.framer.QueueJSON(target, v, neverEncrypt); err != nil && s.logger != nil {
		s.logger.Error("failed to queue JSON notification", "target", target, "err", err)
	}
}

func (s *WifiSetService) logCommand(command, target, response string) {
	s.mu.Lock()
	connID := s.connID
	s.mu.Unlock()

	s.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerService,
		Category:     log.CategoryMessage,
		Command: &log.CommandEvent{
			Command:  command,
			Target:   target,
			Response: response,
		},
	})
}
