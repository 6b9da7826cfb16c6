package wire

import (
	"testing"
)

func TestSplitPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		first   string
		second  string
	}{
		{
			name:    "command",
			payload: []byte("\x1eAP2s"),
			first:   "",
			second:  "AP2s",
		},
		{
			name:    "ssid only",
			payload: []byte("MyNetwork"),
			first:   "MyNetwork",
			second:  "",
		},
		{
			name:    "ssid and password",
			payload: []byte("MyNetwork\x1esecret99"),
			first:   "MyNetwork",
			second:  "secret99",
		},
		{
			name:    "open network",
			payload: []byte("MyNetwork\x1eNONE"),
			first:   "MyNetwork",
			second:  "NONE",
		},
		{
			name:    "empty payload",
			payload: []byte{},
			first:   "",
			second:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, second := SplitPayload(tt.payload)
			if first != tt.first || second != tt.second {
				t.Errorf("SplitPayload() = (%q, %q), want (%q, %q)",
					first, second, tt.first, tt.second)
			}
		})
	}
}

func TestIsClearText(t *testing.T) {
	if !IsClearText([]byte("\x1eLockRequest")) {
		t.Error("separator-prefixed text should be clear text")
	}
	if IsClearText([]byte{0xFF, 0xFE, 0x01, 0x80, 0x80}) {
		t.Error("invalid UTF-8 should not be clear text")
	}
}

func TestMultipartPrefixRoundTrip(t *testing.T) {
	prefix := MultipartPrefix("wifi", 7, 2, 3)
	if prefix != "multiwifi:7|2|3|" {
		t.Fatalf("prefix = %q, want %q", prefix, "multiwifi:7|2|3|")
	}

	chunk, err := ParseMultipart(prefix + `{"allAps":[]}`)
	if err != nil {
		t.Fatalf("ParseMultipart failed: %v", err)
	}
	if chunk.Target != "wifi" || chunk.Seq != 7 || chunk.Part != 2 || chunk.Total != 3 {
		t.Errorf("chunk = %+v", chunk)
	}
	if chunk.Body != `{"allAps":[]}` {
		t.Errorf("body = %q", chunk.Body)
	}
}

func TestParseMultipartErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not multipart", "wifi:READY2"},
		{"missing colon", "multiwifi"},
		{"missing counters", "multiwifi:1|2"},
		{"non-numeric", "multiwifi:a|b|c|x"},
		{"zero part", "multiwifi:1|0|3|x"},
		{"part beyond total", "multiwifi:1|4|3|x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMultipart(tt.payload); err == nil {
				t.Errorf("ParseMultipart(%q) should fail", tt.payload)
			}
		})
	}
}
