// Command btwifiset runs the BLE WiFi provisioning service.
//
// The service sits behind a GATT characteristic pair: phones write
// commands and connection requests, and read or subscribe to responses.
// This binary wires the protocol stack (session authentication, framing,
// pacing) to a WiFi manager and, in console mode, to an interactive
// phone simulator.
//
// Usage:
//
//	btwifiset [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-name string          Advertised Bluetooth device name
//	-timeout string       Idle shutdown in minutes, or "never"
//	-state string         State document path
//	-secret string        Password file path
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  CBOR protocol event capture file
//	-console              Interactive phone-simulator console
//
// Examples:
//
//	# Run with defaults and the interactive console
//	btwifiset -console
//
//	# Run against a config file, capturing protocol events
//	btwifiset -config /etc/btwifiset.yml -protocol-log /tmp/events.cbor
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btwifiset/btwifiset-go/cmd/btwifiset/interactive"
	"github.com/btwifiset/btwifiset-go/pkg/config"
	"github.com/btwifiset/btwifiset-go/pkg/log"
	"github.com/btwifiset/btwifiset-go/pkg/notify"
	"github.com/btwifiset/btwifiset-go/pkg/persistence"
	"github.com/btwifiset/btwifiset-go/pkg/service"
	"github.com/btwifiset/btwifiset-go/pkg/session"
	"github.com/btwifiset/btwifiset-go/pkg/wifi"
)

var flags struct {
	configFile  string
	deviceName  string
	timeout     string
	statePath   string
	secretPath  string
	logLevel    string
	protocolLog string
	console     bool
}

func init() {
	flag.StringVar(&flags.configFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flags.deviceName, "name", "", "Advertised Bluetooth device name")
	flag.StringVar(&flags.timeout, "timeout", "", `Idle shutdown in minutes, or "never"`)
	flag.StringVar(&flags.statePath, "state", "", "State document path")
	flag.StringVar(&flags.secretPath, "secret", "", "Password file path")
	flag.StringVar(&flags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&flags.protocolLog, "protocol-log", "", "CBOR protocol event capture file")
	flag.BoolVar(&flags.console, "console", false, "Interactive phone-simulator console")
}

func main() {
	flag.Parse()

	cfg, err := config.Load(flags.configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "btwifiset: %v\n", err)
		os.Exit(1)
	}
	applyOverrides(&cfg)

	logger := setupLogging(flags.logLevel)
	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func applyOverrides(cfg *config.Config) {
	if flags.deviceName != "" {
		cfg.DeviceName = flags.deviceName
	}
	if flags.timeout != "" {
		cfg.Timeout = flags.timeout
	}
	if flags.statePath != "" {
		cfg.StatePath = flags.statePath
	}
	if flags.secretPath != "" {
		cfg.SecretPath = flags.secretPath
	}
	if flags.protocolLog != "" {
		cfg.Log.File = flags.protocolLog
	}
}

func setupLogging(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func run(cfg config.Config, logger *slog.Logger) error {
	idle, err := cfg.IdleTimeout()
	if err != nil {
		return err
	}

	password, hasPassword := persistence.ReadPassword(cfg.SecretPath)
	deviceID := persistence.DeriveDeviceID()
	store := persistence.NewStateStore(cfg.StatePath)

	logger.Info("starting btwifiset",
		"device", cfg.DeviceName,
		"password", hasPassword,
		"state", cfg.StatePath)

	protocolLogger, closeLoggers, err := buildProtocolLogger(cfg.Log, logger)
	if err != nil {
		return err
	}
	defer closeLoggers()

	// The disconnect callback tears down the notification session; real
	// GATT link teardown belongs to the BLE layer hosting this service.
	var svc *service.WifiSetService
	auth, err := session.New(session.Config{
		Password: password,
		DeviceID: deviceID,
		Store:    store,
		Logger:   protocolLogger,
		Disconnect: func() {
			logger.Warn("disconnecting misbehaving peer")
			if svc != nil {
				svc.StopNotify()
			}
		},
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := auth.Close(); err != nil {
			logger.Error("failed to persist state on shutdown", "err", err)
		}
	}()

	mgr := wifi.NewSimulated(
		wifi.SimNetwork{SSID: "HomeNet", Signal: 4, Password: "hunter2", Known: true},
		wifi.SimNetwork{SSID: "Cafe Guest", Signal: 2},
		wifi.SimNetwork{SSID: "Neighbor 5G", Signal: 1, Password: "unknowable"},
	)

	send := notify.Sender(func(frame []byte) {
		logger.Debug("notify", "bytes", len(frame))
	})

	svc = service.New(service.Config{
		Auth:           auth,
		Manager:        mgr,
		Send:           func(frame []byte) { send(frame) },
		Logger:         logger,
		ProtocolLogger: protocolLogger,
	})
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if flags.console {
		console, err := interactive.New(svc, auth, password)
		if err != nil {
			return err
		}
		send = console.Notify
		go console.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	idleTicker := time.NewTicker(15 * time.Second)
	defer idleTicker.Stop()

	for {
		select {
		case sig := <-sigCh:
			logger.Info("shutting down", "signal", sig.String())
			return nil

		case <-ctx.Done():
			return nil

		case <-idleTicker.C:
			if idle > 0 && svc.IdleFor() > idle {
				logger.Info("idle timeout reached, shutting down", "idle", svc.IdleFor().Round(time.Second))
				return nil
			}
		}
	}
}

// buildProtocolLogger assembles the protocol event capture chain:
// optional CBOR file plus, at debug level, readable console events.
func buildProtocolLogger(cfg config.Log, logger *slog.Logger) (log.Logger, func(), error) {
	var loggers []log.Logger
	closers := func() {}

	if cfg.File != "" {
		fl, err := log.NewFileLogger(cfg.File)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open protocol log: %w", err)
		}
		loggers = append(loggers, fl)
		closers = func() {
			if err := fl.Close(); err != nil {
				logger.Error("failed to close protocol log", "err", err)
			}
		}
	}
	if cfg.Console && logger.Enabled(context.Background(), slog.LevelDebug) {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}

	switch len(loggers) {
	case 0:
		return log.NoopLogger{}, closers, nil
	case 1:
		return loggers[0], closers, nil
	default:
		return log.NewMultiLogger(loggers...), closers, nil
	}
}
