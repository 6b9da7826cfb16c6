package wifi

import "fmt"

// AccessPoint describes one visible network.
type AccessPoint struct {
	SSID      string
	Signal    int // 0 (none) to 4 (full)
	Locked    bool
	Known     bool
	Connected bool
}

// Msg renders the access point in the phone wire form
// "{signal}{locked}{known}{connected}{ssid}". An empty AccessPoint
// renders as "0000".
func (ap AccessPoint) Msg() string {
	return fmt.Sprintf("%d%d%d%d%s", ap.Signal, boolDigit(ap.Locked), boolDigit(ap.Known), boolDigit(ap.Connected), ap.SSID)
}

func boolDigit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Manager is what the service needs from the WiFi stack. Scan and
// Connect may block for seconds; the service runs them off the protocol
// goroutine.
type Manager interface {
	// Scan returns the currently visible access points.
	Scan() ([]AccessPoint, error)

	// Connect joins the network. The password may be empty for open or
	// already-known networks. On success it returns the connected access
	// point in Msg form; on failure it returns "" with a nil error (the
	// phone expects "FAIL", not an error). A non-nil error means the
	// attempt itself could not run.
	Connect(ssid, password string) (string, error)

	// Disconnect leaves the current network.
	Disconnect() error

	// Delete removes a known network.
	Delete(ssid string) error

	// SetRadio turns the WiFi radio on or off.
	SetRadio(on bool) error

	// IPAddresses, MACAddresses, ChannelInfo, and OtherInfo back the
	// info commands; each returns a JSON-encodable value, nil when
	// unavailable.
	IPAddresses() any
	MACAddresses() any
	ChannelInfo() any
	OtherInfo() any
}
