// Command node runs one MPC node: it boots a NodeState, binds it to an
// Engine over an HTTP peer client, and serves the external interface
// described in SPEC_FULL.md section 6.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aukciszek/backend/config"
	"github.com/Aukciszek/backend/engine"
	"github.com/Aukciszek/backend/obs"
	"github.com/Aukciszek/backend/state"
	"github.com/Aukciszek/backend/transport"
)

var flags struct {
	nodeID     int
	prime      string
	parties    string
	listenAddr string
	jwtSecret  string
	tokenTTL   time.Duration
	trustedIPs string
	adminUser  string
	adminPass  string
	logLevel   string
}

func main() {
	root := &cobra.Command{
		Use:   "node",
		Short: "Runs one Aukciszek MPC node",
		RunE:  runNode,
	}

	root.Flags().IntVar(&flags.nodeID, "node-id", 0, "this node's 1-based id among its peers")
	root.Flags().StringVar(&flags.prime, "prime", config.EnvOrDefault("NODE_PRIME", ""), "shared field modulus p (decimal or 0x-hex)")
	root.Flags().StringVar(&flags.parties, "parties", config.EnvOrDefault("NODE_PARTIES", ""), "comma-separated peer base URLs, index i = party i+1")
	root.Flags().StringVar(&flags.listenAddr, "listen", config.EnvOrDefault("NODE_LISTEN", ":8080"), "address to listen on")
	root.Flags().StringVar(&flags.jwtSecret, "jwt-secret", config.EnvOrDefault("NODE_JWT_SECRET", ""), "HMAC secret for issuing/validating admin JWTs")
	root.Flags().DurationVar(&flags.tokenTTL, "token-ttl", 12*time.Hour, "admin JWT lifetime")
	root.Flags().StringVar(&flags.trustedIPs, "trusted-ips", config.EnvOrDefault("NODE_TRUSTED_IPS", ""), "comma-separated IPs allowed to call peer-facing endpoints")
	root.Flags().StringVar(&flags.adminUser, "admin-user", config.EnvOrDefault("NODE_ADMIN_USER", "admin"), "bootstrap admin username")
	root.Flags().StringVar(&flags.adminPass, "admin-pass", config.EnvOrDefault("NODE_ADMIN_PASS", ""), "bootstrap admin password")
	root.Flags().StringVar(&flags.logLevel, "log-level", config.EnvOrDefault("NODE_LOG_LEVEL", "info"), "debug, info, warn or error")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runNode(cmd *cobra.Command, args []string) error {
	prime, err := config.ParsePrime(flags.prime)
	if err != nil {
		return fmt.Errorf("--prime: %w", err)
	}

	cfg := &config.Config{
		NodeID:     flags.nodeID,
		Prime:      prime,
		Parties:    config.SplitList(flags.parties),
		ListenAddr: flags.listenAddr,
		JWTSecret:  []byte(flags.jwtSecret),
		TokenTTL:   flags.tokenTTL,
		TrustedIPs: config.SplitList(flags.trustedIPs),
		AdminUser:  flags.adminUser,
		AdminPass:  flags.adminPass,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := obs.New(obs.ParseLevel(flags.logLevel)).WithNode(cfg.NodeID)

	st := state.New()
	if err := st.Init(cfg.NodeID, cfg.Prime, cfg.Parties); err != nil {
		return fmt.Errorf("initializing node state: %w", err)
	}
	if err := st.ComputeA(); err != nil {
		return fmt.Errorf("computing degree-reduction matrix: %w", err)
	}

	peers := transport.NewHTTPPeerClient(cfg.Parties, cfg.NodeID)
	eng := engine.New(st, peers)

	users := transport.NewUserStore()
	if cfg.AdminPass != "" {
		if err := users.AddUser(cfg.AdminUser, cfg.AdminPass, true); err != nil {
			return fmt.Errorf("registering bootstrap admin: %w", err)
		}
	}

	srv := &transport.Server{
		State:   st,
		Engine:  eng,
		Auth:    transport.AuthConfig{Secret: cfg.JWTSecret, TokenTTL: cfg.TokenTTL},
		Trusted: transport.NewTrustedPeers(cfg.TrustedIPs),
		Users:   users,
		Log:     logger,
	}

	logger.Info("node listening", "addr", cfg.ListenAddr, "parties", len(cfg.Parties))
	return http.ListenAndServe(cfg.ListenAddr, srv.Routes())
}
