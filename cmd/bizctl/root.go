package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bizops/backend/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

// globals are the flags shared by every subcommand
type globals struct {
	server   string
	token    string
	logLevel string
	timeout  time.Duration

	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "bizctl",
		Short: "Operator client for the bizops API",
		Long: `bizctl talks to a running bizops server.

It can mint development tokens from the server's JWT secret, follow the
snapshot stream of a tenant and print the tenant's finance telemetry.

The token is read from --token or the BIZOPS_TOKEN environment variable.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(&logger.Config{
				Level:  g.logLevel,
				Format: "console",
				Output: "stderr",
			})
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			g.log = log
			if g.token == "" {
				g.token = os.Getenv("BIZOPS_TOKEN")
			}
			g.server = strings.TrimRight(g.server, "/")
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.log != nil {
				_ = logger.Sync(g.log)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.server, "server", envOr("BIZOPS_SERVER", "http://localhost:8080"), "Base URL of the bizops server")
	flags.StringVar(&g.token, "token", "", "Bearer token (default $BIZOPS_TOKEN)")
	flags.StringVar(&g.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.DurationVar(&g.timeout, "timeout", 10*time.Second, "Timeout for non-streaming requests")

	root.AddCommand(
		newTokenCmd(g),
		newWatchCmd(g),
		newTelemetryCmd(g),
	)
	return root
}

func (g *globals) requireToken() error {
	if g.token == "" {
		return fmt.Errorf("no token: pass --token or set BIZOPS_TOKEN (bizctl token mints one)")
	}
	return nil
}

func (g *globals) newRequest(method, path string) (*http.Request, error) {
	req, err := http.NewRequest(method, g.server+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("User-Agent", "bizctl/"+version)
	return req, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
