// Package app holds the wiring shared by the nt-host and nt-guest demo
// binaries: config/logger bootstrap and a relay-backed router.Transport.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nulltrace/core/config"
	"github.com/nulltrace/core/internal/logger"
	"github.com/nulltrace/core/relay"
	"github.com/nulltrace/core/router"
)

// LoadConfig loads configuration from configDir for the environment detected
// from NT_ENV/ENVIRONMENT, tolerating a missing config directory (the demo binaries run standalone, without a
// config/ tree, far more often than not).
func LoadConfig(configDir string) *config.Config {
	cfg, err := config.Load(config.LoaderOptions{
		ConfigDir:      configDir,
		SkipValidation: true,
	})
	if err != nil {
		cfg = &config.Config{}
	}
	for _, e := range config.ValidateConfiguration(cfg) {
		if e.Level == "error" {
			fmt.Fprintf(os.Stderr, "config: %s: %s\n", e.Field, e.Message)
		}
	}
	return cfg
}

// NewLogger builds a structured logger writing to out at the level named by
// cfg.Logging.Level.
func NewLogger(cfg *config.Config, out io.Writer) logger.Logger {
	l := logger.NewLogger(out, parseLevel(cfg.Logging.Level))
	return l
}

func parseLevel(level string) logger.Level {
	switch level {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}

// RelayTransport wraps a relay.Conn as a router.Transport and pumps incoming
// frames into r.Dispatch until the connection closes.
type RelayTransport struct {
	conn *relay.Conn
}

// DialRelay connects to a relay at url under selfCID's identity and wires
// incoming frames into r, using cfg.Relay's dial/read/write timeouts.
func DialRelay(ctx context.Context, url, selfCID string, r *router.Router, log logger.Logger, cfg *config.Config) (*RelayTransport, error) {
	t := &RelayTransport{}
	t.conn = relay.NewConnWithTimeouts(url+"?cid="+selfCID, func(f router.Frame) {
		if err := r.Dispatch(f); err != nil && log != nil {
			log.Warn("dispatch failed", logger.Error(err))
		}
	}, cfg.Relay.DialTimeout, cfg.Relay.ReadTimeout, cfg.Relay.WriteTimeout)
	if err := t.conn.Dial(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// Send implements router.Transport.
func (t *RelayTransport) Send(f router.Frame) error {
	return t.conn.Send(f)
}

// Close tears down the relay connection.
func (t *RelayTransport) Close() error {
	return t.conn.Close()
}

// DialTimeout is the default budget for the initial relay handshake.
const DialTimeout = 10 * time.Second
