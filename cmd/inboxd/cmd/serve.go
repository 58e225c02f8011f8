package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/civicinbox/inboxd/internal/agenda"
	"github.com/civicinbox/inboxd/internal/api"
	"github.com/civicinbox/inboxd/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run inboxd as a daemon with scheduled refresh",
	Long: `Run inboxd as a long-running daemon that keeps the local mirror fresh:

  - HTTP API server on the configured port (default: 8080)
  - Scheduled reconciliation passes per the [refresh] config section

Configure the schedule in config.toml:
  [refresh]
  schedule = "*/5 * * * *"   # every 5 minutes (cron format)
  enabled = true

Cron format: minute hour day-of-month month day-of-week
  Examples:
    */5 * * * *   = Every 5 minutes
    0 7 * * *     = 7:00 AM daily
    0 8,18 * * *  = 8 AM and 6 PM daily

Use Ctrl+C to stop the daemon gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	mgr, statuses, err := newManager()
	if err != nil {
		return err
	}
	defer statuses.Close()

	// Refresh callback for the scheduler
	refreshFunc := func(ctx context.Context) error {
		_, err := mgr.Refresh(ctx)
		return err
	}

	sched := scheduler.New(refreshFunc).WithLogger(logger)
	if cfg.Refresh.Enabled {
		if err := sched.Schedule(cfg.Refresh.Schedule); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sched.Start()

	// Initial pass so the API serves data immediately
	if err := sched.TriggerRefresh(); err != nil {
		logger.Warn("initial refresh not triggered", "error", err)
	}

	pag := agenda.NewPaginator(time.Local, nil)
	apiServer := api.NewServer(cfg, mgr, sched, pag, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	fmt.Printf("inboxd daemon started\n")
	fmt.Printf("  API server: http://%s\n", net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Server.APIPort)))
	fmt.Printf("  Data directory: %s\n", cfg.Data.DataDir)
	if cfg.Refresh.Enabled {
		fmt.Printf("  Refresh schedule: %s\n", cfg.Refresh.Schedule)
	} else {
		fmt.Println("  Scheduled refresh disabled; use POST /api/v1/refresh")
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
		fmt.Println("\nShutting down...")
	case err := <-serverErr:
		logger.Error("API server error", "error", err)
		fmt.Printf("\nAPI server error: %v\n", err)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", "error", err)
	}

	fmt.Println("Waiting for a running refresh to complete...")
	schedCtx := sched.Stop()

	select {
	case <-schedCtx.Done():
		fmt.Println("Shutdown complete.")
	case <-time.After(30 * time.Second):
		fmt.Println("Shutdown timed out after 30 seconds.")
	}

	return nil
}
