package wifi

import "testing"

func TestAccessPointMsg(t *testing.T) {
	tests := []struct {
		name string
		ap   AccessPoint
		want string
	}{
		{"empty", AccessPoint{}, "0000"},
		{"open visible", AccessPoint{SSID: "cafe", Signal: 3}, "3000cafe"},
		{"locked known", AccessPoint{SSID: "home", Signal: 4, Locked: true, Known: true}, "4110home"},
		{"connected", AccessPoint{SSID: "home", Signal: 4, Locked: true, Known: true, Connected: true}, "4111home"},
		{"unicode ssid", AccessPoint{SSID: "café ☕", Signal: 2, Locked: true}, "2100café ☕"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ap.Msg(); got != tt.want {
				t.Errorf("Msg() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSimulatedConnect(t *testing.T) {
	sim := NewSimulated(
		SimNetwork{SSID: "home", Signal: 4, Password: "secret"},
		SimNetwork{SSID: "cafe", Signal: 2},
	)

	if msg, err := sim.Connect("home", "wrong"); err != nil || msg != "" {
		t.Errorf("wrong password: got (%q, %v), want rejection", msg, err)
	}

	msg, err := sim.Connect("home", "secret")
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if msg != "4111home" {
		t.Errorf("connected msg = %q, want %q", msg, "4111home")
	}

	// Known networks reconnect without a password.
	if err := sim.Disconnect(); err != nil {
		t.Fatal(err)
	}
	if msg, _ := sim.Connect("home", ""); msg != "4111home" {
		t.Errorf("known reconnect msg = %q", msg)
	}

	if msg, _ := sim.Connect("nowhere", ""); msg != "" {
		t.Errorf("unknown ssid connected: %q", msg)
	}
}

func TestSimulatedScanOrder(t *testing.T) {
	sim := NewSimulated(
		SimNetwork{SSID: "weak", Signal: 1},
		SimNetwork{SSID: "strong", Signal: 4},
		SimNetwork{SSID: "mid", Signal: 2},
	)

	aps, err := sim.Scan()
	if err != nil {
		t.Fatal(err)
	}
	var ssids []string
	for _, ap := range aps {
		ssids = append(ssids, ap.SSID)
	}
	want := []string{"strong", "mid", "weak"}
	for i := range want {
		if ssids[i] != want[i] {
			t.Fatalf("scan order = %v, want %v", ssids, want)
		}
	}
}

func TestSimulatedDelete(t *testing.T) {
	sim := NewSimulated(SimNetwork{SSID: "home", Signal: 4, Password: "secret"})

	if _, err := sim.Connect("home", "secret"); err != nil {
		t.Fatal(err)
	}
	if err := sim.Delete("home"); err != nil {
		t.Fatal(err)
	}
	if sim.Connected() != "" {
		t.Error("deleting the connected network must disconnect")
	}
	// Forgotten networks need the password again.
	if msg, _ := sim.Connect("home", ""); msg != "" {
		t.Errorf("forgotten network reconnected without password: %q", msg)
	}
}

func TestSimulatedRadio(t *testing.T) {
	sim := NewSimulated(SimNetwork{SSID: "cafe", Signal: 2})

	if _, err := sim.Connect("cafe", ""); err != nil {
		t.Fatal(err)
	}
	if err := sim.SetRadio(false); err != nil {
		t.Fatal(err)
	}
	if sim.Connected() != "" {
		t.Error("radio off must disconnect")
	}
	if aps, _ := sim.Scan(); len(aps) != 0 {
		t.Error("radio off must scan empty")
	}
	if _, err := sim.Connect("cafe", ""); err == nil {
		t.Error("connect with radio off must error")
	}

	if err := sim.SetRadio(true); err != nil {
		t.Fatal(err)
	}
	if aps, _ := sim.Scan(); len(aps) != 1 {
		t.Error("radio on must scan again")
	}
}
