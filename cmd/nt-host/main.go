// Command nt-host hosts a NullTrace room: it mints an invitation capsule,
// admits guests as they announce themselves, and relays plaintext chat lines
// between stdin and the group.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/nulltrace/core/capsule"
	"github.com/nulltrace/core/cmd/internal/app"
	"github.com/nulltrace/core/internal/logger"
	"github.com/nulltrace/core/internal/metrics"
	"github.com/nulltrace/core/member"
	"github.com/nulltrace/core/mls"
	"github.com/nulltrace/core/relay"
	"github.com/nulltrace/core/router"
)

// defaultRelayURL is used when neither --relay nor config/NT_RELAY_URL name
// one.
const defaultRelayURL = "ws://localhost:8090/ws"

var (
	room       string
	relayURL   string
	listenAddr string
	configDir  string
	autoAdmit  bool
)

var rootCmd = &cobra.Command{
	Use:   "nt-host",
	Short: "Host a NullTrace room",
	Long: `nt-host creates a room, prints a signed invitation capsule for guests
to join with, and bridges plaintext chat lines between stdin/stdout and the
encrypted group channel.`,
	RunE: run,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().StringVar(&room, "room", "r1", "room identifier")
	rootCmd.Flags().StringVar(&relayURL, "relay", "", "relay websocket URL to dial (default: config/NT_RELAY_URL, falling back to "+defaultRelayURL+")")
	rootCmd.Flags().StringVar(&listenAddr, "listen", "", "if set, also serve a relay hub on this address (e.g. :8090)")
	rootCmd.Flags().StringVar(&configDir, "config", "config", "config directory")
	rootCmd.Flags().BoolVar(&autoAdmit, "auto-admit", true, "automatically approve every guest that says hello")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "nt-host: %v\n", err)
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

	if listenAddr != "" {
		hub := relay.NewHub()
		go func() {
			if err := http.ListenAndServe(listenAddr, hub.Handler()); err != nil {
				log.Error("relay hub stopped", logger.Error(err))
			}
		}()
		log.Info("serving relay hub", logger.String("addr", listenAddr))
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

	h := &hostHandler{log: log}
	groupCfg := mls.Config{
		RekeyDebounce:         cfg.Group.RekeyDebounce,
		ExternalRekeyThrottle: cfg.Group.ExternalRekeyThrottle,
		GKRetryBaseDelay:      cfg.Group.GKRetryBaseDelay,
		GKRetryMaxAttempts:    cfg.Group.GKRetryMaxAttempts,
	}
	r := router.New(self, room, true, nil, h, log, groupCfg)
	h.router = r

	ctx, cancel := context.WithTimeout(context.Background(), app.DialTimeout)
	defer cancel()
	transport, err := app.DialRelay(ctx, effectiveRelayURL, self.CID, r, log, cfg)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}
	defer transport.Close()
	r.SetTransport(transport)

	pqPub, err := self.PQPub()
	if err != nil {
		return fmt.Errorf("read pq public key: %w", err)
	}
	invite, err := capsule.Create(room, self.XPub(), pqPub, self.CID, self.IDKeyPair(), self.IDPub(), cfg.Capsule.TTL)
	if err != nil {
		return fmt.Errorf("create invitation: %w", err)
	}
	metrics.CapsulesIssued.Inc()

	fmt.Printf("room %q ready, cid=%s\ninvite:\n%s\n\n", room, self.CID, invite)

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

type hostHandler struct {
	log    logger.Logger
	router *router.Router
}

func (h *hostHandler) OnMessage(cid, plaintext string) {
	fmt.Printf("%s: %s\n", cid, plaintext)
}

func (h *hostHandler) OnPeerAnnounced(cid string) {
	h.log.Info("peer announced", logger.String("cid", cid))
}

func (h *hostHandler) OnPendingApproval(cid string) {
	h.log.Info("guest waiting for approval", logger.String("cid", cid))
	if !autoAdmit {
		return
	}
	if err := h.router.ApproveGuest(cid); err != nil {
		h.log.Error("approve guest failed", logger.String("cid", cid), logger.Error(err))
	}
}

func (h *hostHandler) OnSignatureMismatch(cid string) {
	h.log.Warn("handshake transcript signature mismatch", logger.String("cid", cid))
}

func (h *hostHandler) OnReady() {
	fmt.Println("(group key installed)")
}

func (h *hostHandler) OnLeave(cid string) {
	fmt.Printf("(%s left)\n", cid)
}
