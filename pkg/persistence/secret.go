package persistence

import (
	"bufio"
	"os"
	"strings"
)

// ReadPassword reads the shared password from the first line of the
// secret file, with trailing whitespace trimmed. It reports false when
// the file is missing, unreadable, or holds an empty first line - all of
// which mean "no password configured". This package never writes the
// secret file; only an operator with shell access changes the password.
func ReadPassword(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return "", false
	}

	pw := strings.TrimRight(scanner.Text(), " \t\r\n")
	if pw == "" {
		return "", false
	}
	return pw, true
}
