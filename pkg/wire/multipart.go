package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotMultipart indicates a payload that does not carry a multipart prefix.
var ErrNotMultipart = errors.New("payload is not a multipart chunk")

// MultipartPrefix builds the chunk prefix "multi{target}:{seq}|{part}|{total}|".
// The part index is 1-based.
func MultipartPrefix(target string, seq, part, total int) string {
	return fmt.Sprintf("multi%s:%d|%d|%d|", target, seq, part, total)
}

// Chunk describes one parsed multipart chunk.
type Chunk struct {
	Target string
	Seq    int
	Part   int // 1-based
	Total  int
	Body   string
}

// ParseMultipart parses a clear chunk payload (separator already stripped)
// of the form "multi{target}:{seq}|{part}|{total}|{body}".
func ParseMultipart(payload string) (Chunk, error) {
	if !strings.HasPrefix(payload, "multi") {
		return Chunk{}, ErrNotMultipart
	}
	rest := payload[len("multi"):]

	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return Chunk{}, ErrNotMultipart
	}
	c := Chunk{Target: rest[:colon]}
	rest = rest[colon+1:]

	for i := 0; i < 3; i++ {
		bar := strings.IndexByte(rest, '|')
		if bar < 0 {
			return Chunk{}, fmt.Errorf("malformed multipart prefix: %q", payload)
		}
		n, err := strconv.Atoi(rest[:bar])
		if err != nil {
			return Chunk{}, fmt.Errorf("malformed multipart prefix: %w", err)
		}
		switch i {
		case 0:
			c.Seq = n
		case 1:
			c.Part = n
		case 2:
			c.Total = n
		}
		rest = rest[bar+1:]
	}

	if c.Part < 1 || c.Total < 1 || c.Part > c.Total {
		return Chunk{}, fmt.Errorf("multipart part %d/%d out of range", c.Part, c.Total)
	}

	c.Body = rest
	return c, nil
}
