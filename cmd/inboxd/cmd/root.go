package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/civicinbox/inboxd/internal/backend"
	"github.com/civicinbox/inboxd/internal/config"
	"github.com/civicinbox/inboxd/internal/inbox"
	"github.com/civicinbox/inboxd/internal/status"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "inboxd",
	Short: "Local mirror of a civic message inbox",
	Long: `inboxd keeps a reconciled local mirror of a remote civic message inbox:
it diffs the server's listing against local state, fetches only what is
missing, and preserves read/archived flags across content reloads.

It can run one-shot (sync, list, search, deadlines) or as a daemon with
a scheduled refresh and an HTTP API (serve).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		// Human-readable logs on a terminal, JSON when piped or under a
		// process supervisor.
		if isatty.IsTerminal(os.Stderr.Fd()) {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		} else {
			logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		}
		slog.SetDefault(logger)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if err := os.MkdirAll(cfg.Data.DataDir, 0755); err != nil {
			return fmt.Errorf("create data directory %s: %w", cfg.Data.DataDir, err)
		}

		return nil
	},
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// newManager wires a Manager over the configured backend and status store.
// The caller owns closing the returned status store.
func newManager() (*inbox.Manager, *status.Store, error) {
	if cfg.Backend.BaseURL == "" {
		return nil, nil, fmt.Errorf("backend not configured; set [backend] base_url in %s", cfg.HomeDir+"/config.toml")
	}

	statuses, err := status.Open(cfg.DatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("open status store: %w", err)
	}

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Token, backend.WithLogger(logger))
	mgr := inbox.NewManager(client, inbox.NewStores(), &inbox.Options{
		PageSize:    cfg.Backend.PageSize,
		Concurrency: cfg.Refresh.Concurrency,
	}).WithLogger(logger).WithStatusStore(statuses)

	if err := mgr.Restore(); err != nil {
		statuses.Close()
		return nil, nil, fmt.Errorf("restore statuses: %w", err)
	}
	return mgr, statuses, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.inboxd/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
