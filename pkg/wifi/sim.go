package wifi

import (
	"fmt"
	"sort"
	"sync"
)

// SimNetwork seeds one network in the simulated manager.
type SimNetwork struct {
	SSID     string
	Signal   int
	Password string // empty means an open network
	Known    bool
}

// Simulated is an in-memory Manager for tests and the interactive
// console. Safe for concurrent use.
type Simulated struct {
	mu        sync.Mutex
	radioOn   bool
	networks  map[string]*SimNetwork
	connected string
}

// NewSimulated builds a simulated manager seeded with networks, radio on
// and nothing connected.
func NewSimulated(networks ...SimNetwork) *Simulated {
	s := &Simulated{radioOn: true, networks: make(map[string]*SimNetwork)}
	for i := range networks {
		n := networks[i]
		s.networks[n.SSID] = &n
	}
	return s
}

// Scan returns the seeded networks, sorted by descending signal so the
// list is deterministic.
func (s *Simulated) Scan() ([]AccessPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.radioOn {
		return nil, nil
	}
	aps := make([]AccessPoint, 0, len(s.networks))
	for _, n := range s.networks {
		aps = append(aps, AccessPoint{
			SSID:      n.SSID,
			Signal:    n.Signal,
			Locked:    n.Password != "",
			Known:     n.Known,
			Connected: n.SSID == s.connected,
		})
	}
	sort.Slice(aps, func(i, j int) bool {
		if aps[i].Signal != aps[j].Signal {
			return aps[i].Signal > aps[j].Signal
		}
		return aps[i].SSID < aps[j].SSID
	})
	return aps, nil
}

// Connect joins ssid if it is visible and the password matches (known
// networks reconnect without one). A failed attempt returns "" and
// leaves any existing connection in place.
func (s *Simulated) Connect(ssid, password string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.radioOn {
		return "", fmt.Errorf("wifi radio is off")
	}
	n, ok := s.networks[ssid]
	if !ok {
		return "", nil
	}
	if n.Password != "" && !n.Known && password != n.Password {
		return "", nil
	}

	s.connected = ssid
	n.Known = true
	ap := AccessPoint{SSID: n.SSID, Signal: n.Signal, Locked: n.Password != "", Known: true, Connected: true}
	return ap.Msg(), nil
}

// Disconnect leaves the current network.
func (s *Simulated) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = ""
	return nil
}

// Delete forgets a known network, disconnecting first if it is the
// current one.
func (s *Simulated) Delete(ssid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected == ssid {
		s.connected = ""
	}
	if n, ok := s.networks[ssid]; ok {
		n.Known = false
	}
	return nil
}

// SetRadio turns the radio on or off; turning it off drops the
// connection.
func (s *Simulated) SetRadio(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.radioOn = on
	if !on {
		s.connected = ""
	}
	return nil
}

// Connected returns the current network SSID, "" when disconnected.
func (s *Simulated) Connected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// IPAddresses reports simulated interface addresses.
func (s *Simulated) IPAddresses() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected == "" {
		return map[string]string{"ip": ""}
	}
	return map[string]string{"ip": "192.168.1.17"}
}

// MACAddresses reports simulated interface hardware addresses.
func (s *Simulated) MACAddresses() any {
	return map[string]string{"wlan0": "b8:27:eb:01:02:03"}
}

// ChannelInfo reports the simulated channel of the connected network.
func (s *Simulated) ChannelInfo() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected == "" {
		return map[string]any{"channel": 0}
	}
	return map[string]any{"channel": 6, "band": "2.4GHz", "ssid": s.connected}
}

// OtherInfo has nothing to report in the simulation.
func (s *Simulated) OtherInfo() any { return nil }

var _ Manager = (*Simulated)(nil)
