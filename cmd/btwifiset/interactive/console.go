// Package interactive provides a readline console that plays the role
// of the phone application against a running service. It is a
// development tool: writes are framed (and encrypted when the session
// is locked) exactly as the phone would send them, and notifications
// are decrypted and printed.
package interactive

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/btwifiset/btwifiset-go/pkg/crypt"
	"github.com/btwifiset/btwifiset-go/pkg/nonce"
	"github.com/btwifiset/btwifiset-go/pkg/service"
	"github.com/btwifiset/btwifiset-go/pkg/session"
	"github.com/btwifiset/btwifiset-go/pkg/wire"
)

// phoneIdentifier is the peer identifier this console stamps into its
// nonces.
const phoneIdentifier = 0xAAAA0001

// Console drives a WifiSetService the way the phone app does.
type Console struct {
	svc  *service.WifiSetService
	auth *session.Authenticator
	rl   *readline.Instance

	// suite mirrors the phone's key; nil when no password is configured.
	suite *crypt.Suite

	mu      sync.Mutex
	counter uint64 // phone counters are odd
}

// New creates the console. password is the shared secret the simulated
// phone knows; empty means it knows none.
func New(svc *service.WifiSetService, auth *session.Authenticator, password string) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "phone> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := &Console{svc: svc, auth: auth, rl: rl, counter: 1}
	if password != "" {
		c.suite = crypt.NewSuite(password)
	}
	return c, nil
}

// Notify is the BLE notify sink: it decodes frames the way the phone
// would and prints them above the prompt.
func (c *Console) Notify(frame []byte) {
	if len(frame) == 0 {
		return
	}
	if frame[0] != wire.CipherMarker {
		fmt.Fprintf(c.rl.Stdout(), "<< %q\n", frame)
		return
	}
	if c.suite == nil {
		fmt.Fprintf(c.rl.Stdout(), "<< [encrypted, no password] %d bytes\n", len(frame))
		return
	}
	for _, cipher := range []crypt.Cipher{crypt.CipherAEAD, crypt.CipherLegacyCBC} {
		if plaintext, err := c.suite.Decrypt(cipher, frame[1:], nil); err == nil {
			fmt.Fprintf(c.rl.Stdout(), "<< [%s] %q\n", cipher, plaintext)
			return
		}
	}
	fmt.Fprintf(c.rl.Stdout(), "<< [undecryptable] %d bytes\n", len(frame))
}

// Run starts the command loop and blocks until exit.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()
	connID := c.svc.StartNotify()
	fmt.Fprintf(c.rl.Stdout(), "notification session %s\n", connID)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "cmd":
			if len(args) != 1 {
				fmt.Fprintln(c.rl.Stdout(), "usage: cmd <word>")
				continue
			}
			c.write(wire.SeparatorString + args[0])

		case "lock":
			c.writeEncrypted(session.LockRequestPayload)

		case "unlock":
			c.write(wire.SeparatorString + "UnlockRequest")

		case "checkin":
			c.write(wire.SeparatorString + "CheckIn")

		case "scan":
			c.write(wire.SeparatorString + "AP2s")

		case "join", "j":
			if len(args) == 0 {
				fmt.Fprintln(c.rl.Stdout(), "usage: join <ssid> [password]")
				continue
			}
			password := ""
			if len(args) > 1 {
				password = args[1]
			}
			c.write(args[0] + wire.SeparatorString + password)

		case "end":
			c.write("#ssid-endBT#" + wire.SeparatorString + "#pw-endBT#")

		case "info":
			c.printInfo()

		case "read", "r":
			fmt.Fprintf(c.rl.Stdout(), "<< %q\n", c.svc.ReadAccessPoint())

		case "garble":
			// Deliberately undecryptable bytes, for exercising the
			// brute-force throttle.
			c.svc.HandleWrite([]byte{0xde, 0xad, 0xbe, 0xef, 0x99, 0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11})

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			c.svc.StopNotify()
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

// write sends a payload, encrypting it when the device is locked (the
// real phone tracks the posture the same way).
func (c *Console) write(payload string) {
	if c.auth.Locked() && c.suite != nil {
		c.writeEncrypted(payload)
		return
	}
	c.svc.HandleWrite([]byte(payload))
}

// writeEncrypted sends a payload under a fresh odd-counter phone nonce.
func (c *Console) writeEncrypted(payload string) {
	if c.suite == nil {
		fmt.Fprintln(c.rl.Stdout(), "no password configured; cannot encrypt")
		return
	}

	c.mu.Lock()
	var v nonce.Value
	binary.LittleEndian.PutUint64(v[0:8], c.counter)
	binary.LittleEndian.PutUint32(v[8:12], phoneIdentifier)
	c.counter += 2
	c.mu.Unlock()

	frame, err := c.suite.Encrypt(crypt.CipherAEAD, v, []byte(payload))
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "encrypt failed: %v\n", err)
		return
	}
	c.svc.HandleWrite(frame)
}

// printInfo reads and decodes the info characteristic.
func (c *Console) printInfo() {
	info := c.svc.ReadInfo()
	if string(info) == session.ResponseNoPassword {
		fmt.Fprintln(c.rl.Stdout(), "device has no password")
		return
	}

	rest := info
	locked := false
	if len(rest) > 4 && string(rest[:4]) == "LOCK" {
		locked = true
		rest = rest[4:]
	}
	n, err := nonce.FromBytes(rest)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "malformed info payload: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "locked=%v nonce=%d device=%x\n", locked, n.Counter(), rest[nonce.Size:])
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
Phone simulator commands:
  info               - read the lock/nonce/device-id characteristic
  scan               - request the network list (AP2s)
  read, r            - read one access point (v1 list)
  join <ssid> [pw]   - request a connection
  cmd <word>         - send a raw command (ON, OFF, DISCONN, APs, infoAll, ...)
  lock               - send the encrypted LockRequest
  unlock             - request unlock (Unlocking arrives encrypted)
  checkin            - send CheckIn
  garble             - send undecryptable bytes
  end                - end-of-session handshake
  quit, exit, q      - leave`)
}
