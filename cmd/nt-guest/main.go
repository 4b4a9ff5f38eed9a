// Command nt-guest joins a NullTrace room from an invitation capsule printed
// by nt-host, then bridges plaintext chat lines between stdin/stdout and the
// encrypted group channel.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nulltrace/core/capsule"
	"github.com/nulltrace/core/cmd/internal/app"
	"github.com/nulltrace/core/internal/logger"
	"github.com/nulltrace/core/internal/metrics"
	"github.com/nulltrace/core/member"
	"github.com/nulltrace/core/mls"
	"github.com/nulltrace/core/router"
)

// defaultRelayURL is used when neither --relay nor config/NT_RELAY_URL name
// one.
const defaultRelayURL = "ws://localhost:8090/ws"

var (
	invite    string
	relayURL  string
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "nt-guest",
	Short: "Join a NullTrace room from an invitation capsule",
	RunE:  run,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().StringVar(&invite, "invite", "", "invitation capsule printed by nt-host (required; '-' reads stdin)")
	rootCmd.Flags().StringVar(&relayURL, "relay", "", "relay websocket URL to dial (default: config/NT_RELAY_URL, falling back to "+defaultRelayURL+")")
	rootCmd.Flags().StringVar(&configDir, "config", "config", "config directory")
	rootCmd.MarkFlagRequired("invite")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "nt-guest: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := app.LoadConfig(configDir)
	log := app.NewLogger(cfg, os.Stderr)

	effectiveRelayURL := relayURL
	if effectiveRelayURL == "" {
		effectiveRelayURL = cfg.Relay.URL
	}
	if effectiveRelayURL == "" {
		effectiveRelayURL = defaultRelayURL
	}

	raw := invite
	if raw == "-" {
		data, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && data == "" {
			return fmt.Errorf("read invite from stdin: %w", err)
		}
		raw = strings.TrimSpace(data)
	}

	inv, err := capsule.Parse(raw, cfg.Capsule.MaxBytes, cfg.Capsule.TTL)
	if err != nil {
		metrics.CapsulesRejected.WithLabelValues("parse_failed").Inc()
		return fmt.Errorf("parse invitation: %w", err)
	}

	if cfg.Metrics.Enabled {
		addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		go func() {
			if err := metrics.StartServer(addr); err != nil {
				log.Error("metrics server stopped", logger.Error(err))
			}
		}()
	}

	self, err := member.New()
	if err != nil {
		return fmt.Errorf("generate key material: %w", err)
	}

	h := &guestHandler{log: log}
	groupCfg := mls.Config{
		RekeyDebounce:         cfg.Group.RekeyDebounce,
		ExternalRekeyThrottle: cfg.Group.ExternalRekeyThrottle,
		GKRetryBaseDelay:      cfg.Group.GKRetryBaseDelay,
		GKRetryMaxAttempts:    cfg.Group.GKRetryMaxAttempts,
	}
	r := router.New(self, inv.Room, false, nil, h, log, groupCfg)
	r.HostCID = inv.CID
	r.SeedPeer(inv.CID, inv.IDPub, inv.XPub, inv.PQPub)

	ctx, cancel := context.WithTimeout(context.Background(), app.DialTimeout)
	defer cancel()
	transport, err := app.DialRelay(ctx, effectiveRelayURL, self.CID, r, log, cfg)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}
	defer transport.Close()
	r.SetTransport(transport)

	hello, err := r.HelloFrame()
	if err != nil {
		return fmt.Errorf("build hello frame: %w", err)
	}
	if err := transport.Send(hello); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}
	fmt.Printf("joined room %q as %s, waiting for approval...\n", inv.Room, self.CID)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		ok, err := r.Send(line)
		if err != nil {
			log.Error("send failed", logger.Error(err))
			continue
		}
		if !ok {
			fmt.Println("(no group key yet, message not sent)")
		}
	}
	return nil
}

type guestHandler struct {
	log logger.Logger
}

func (h *guestHandler) OnMessage(cid, plaintext string) {
	fmt.Printf("%s: %s\n", cid, plaintext)
}

func (h *guestHandler) OnPeerAnnounced(cid string) {
	h.log.Info("peer announced", logger.String("cid", cid))
}

func (h *guestHandler) OnPendingApproval(cid string) {
	// Only the initiator approves guests; a guest never sees this.
}

func (h *guestHandler) OnSignatureMismatch(cid string) {
	h.log.Warn("handshake transcript signature mismatch", logger.String("cid", cid))
}

func (h *guestHandler) OnReady() {
	fmt.Println("(group key installed)")
}

func (h *guestHandler) OnLeave(cid string) {
	fmt.Printf("(%s left)\n", cid)
}
