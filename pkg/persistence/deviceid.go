package persistence

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Default source locations for hardware identifiers.
const (
	defaultCPUInfoPath = "/proc/cpuinfo"
	defaultNetClassDir = "/sys/class/net"
)

// cpuIDPattern matches the identifying lines of /proc/cpuinfo on boards
// that expose them (Raspberry Pi and similar SBCs).
var cpuIDPattern = regexp.MustCompile(`(?m)^(Hardware|Revision|Serial)\s*:\s*(\S+)`)

// DeriveDeviceID returns the hardware-derived device identifier: the hex
// SHA-256 of a best-effort combination of CPU identifiers and network MAC
// addresses. When no identifier is discoverable it hashes a random value,
// so the result is stable across restarts only on real hardware.
//
// The identifier is shown by the phone app so a user can tell devices
// apart; it is not a secret.
func DeriveDeviceID() string {
	return deriveDeviceID(defaultCPUInfoPath, defaultNetClassDir)
}

// deriveDeviceID is the testable core of DeriveDeviceID.
func deriveDeviceID(cpuInfoPath, netClassDir string) string {
	var parts []string

	if id := cpuID(cpuInfoPath); id != "" {
		parts = append(parts, id)
	}
	if mac := macAddress(netClassDir); mac != "" {
		parts = append(parts, mac)
	}

	combined := strings.Join(parts, "")
	if combined == "" {
		// No identifier found - fall back to a random one.
		buf := make([]byte, 12)
		_, _ = rand.Read(buf)
		combined = hex.EncodeToString(buf)
	}

	sum := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(sum[:])
}

// cpuID concatenates the Hardware/Revision/Serial values of cpuinfo.
func cpuID(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var sb strings.Builder
	for _, m := range cpuIDPattern.FindAllStringSubmatch(string(data), -1) {
		sb.WriteString(m[2])
	}
	return sb.String()
}

// macAddress returns the first usable interface MAC address. The wireless
// interface is preferred (it always exists on a device doing WiFi
// provisioning); wlan0/eth0 are tried first as a shortcut, then all
// interfaces in sorted order.
func macAddress(netClassDir string) string {
	for _, name := range []string{"wlan0", "eth0"} {
		if addr := adapterAddress(filepath.Join(netClassDir, name)); addr != "" {
			return addr
		}
	}

	entries, err := os.ReadDir(netClassDir)
	if err != nil {
		return ""
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name() == "lo" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if addr := adapterAddress(filepath.Join(netClassDir, name)); addr != "" {
			return addr
		}
	}
	return ""
}

// adapterAddress reads an interface address file, rejecting the all-zero
// placeholder some drivers report.
func adapterAddress(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "address"))
	if err != nil {
		return ""
	}
	addr := strings.TrimSpace(string(data))
	if addr == "" || addr == "00:00:00:00:00:00" {
		return ""
	}
	return addr
}
