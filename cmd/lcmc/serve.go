package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rasto/lcmc-sub002/pkg/composite"
	"github.com/rasto/lcmc-sub002/pkg/events"
	"github.com/rasto/lcmc-sub002/pkg/log"
	"github.com/rasto/lcmc-sub002/pkg/manager"
	"github.com/rasto/lcmc-sub002/pkg/metrics"
	"github.com/rasto/lcmc-sub002/pkg/reconciler"
	"github.com/rasto/lcmc-sub002/pkg/status"
	"github.com/spf13/cobra"
)

// Session commands
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Run the console session",
}

var sessionServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep the session reconciled with the cluster status",
	Long: `Run the session in the foreground. The session journal is bootstrapped
as a single-node Raft log, the cluster status file is reloaded whenever it
changes, and every reload is reconciled into the placeholders. Prometheus
metrics are served on --metrics-addr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bindAddr, _ := cmd.Flags().GetString("bind-addr")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		interval, _ := cmd.Flags().GetDuration("reconcile-interval")
		statusFile, _ := cmd.Flags().GetString("status")

		mgr, err := openSessionWithRaft(cmd, bindAddr)
		if err != nil {
			return err
		}

		fmt.Println("✓ Session journal bootstrapped")

		collector := metrics.NewCollector(mgr)
		collector.Start()

		recon := reconciler.NewReconciler(mgr, interval)
		recon.Start()
		fmt.Println("✓ Reconciler started")

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		if statusFile != "" {
			go watchStatus(ctx, mgr, statusFile, interval)
		}
		go logEvents(ctx, mgr.GetEventBroker().Subscribe(
			events.EventActionFailed,
			events.EventPlaceholderReversed,
			events.EventResourcePurged,
		))

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		errCh := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %v", err)
			}
		}()

		fmt.Println()
		fmt.Println("Session is running. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		}

		cancel()
		recon.Stop()
		collector.Stop()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
		if err := mgr.Shutdown(); err != nil {
			return fmt.Errorf("failed to shutdown: %v", err)
		}

		fmt.Println("✓ Shutdown complete")
		return nil
	},
}

func openSessionWithRaft(cmd *cobra.Command, bindAddr string) (*manager.Manager, error) {
	nodeID, _ := cmd.Flags().GetString("node-id")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	dcHost, _ := cmd.Flags().GetString("dc-host")

	exec, err := executor(cmd)
	if err != nil {
		return nil, err
	}
	mgr, err := manager.NewManager(&manager.Config{
		NodeID:    nodeID,
		BindAddr:  bindAddr,
		DataDir:   dataDir,
		DCHost:    dcHost,
		Composite: composite.DefaultConfig(),
	}, exec)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %v", err)
	}
	if err := mgr.Bootstrap(); err != nil {
		mgr.Shutdown()
		return nil, fmt.Errorf("failed to bootstrap session journal: %v", err)
	}
	return mgr, nil
}

// watchStatus reloads path whenever its modification time changes
func watchStatus(ctx context.Context, mgr *manager.Manager, path string, interval time.Duration) {
	logger := log.WithComponent("status-watch")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastMod time.Time
	for {
		if info, err := os.Stat(path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Cannot stat cluster status")
		} else if info.ModTime().After(lastMod) {
			snap, err := status.LoadSnapshot(path)
			if err != nil {
				logger.Error().Err(err).Str("path", path).Msg("Failed to load cluster status")
			} else {
				lastMod = info.ModTime()
				mgr.UpdateStatus(snap)
				logger.Info().Str("path", path).Str("dc", snap.DCHost).Msg("Cluster status reloaded")
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// logEvents writes the events worth an operator's attention to the log
func logEvents(ctx context.Context, sub events.Subscriber) {
	logger := log.WithComponent("session")
	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			entry := logger.Info()
			if ev.Type == events.EventActionFailed {
				entry = logger.Warn()
			}
			for k, v := range ev.Metadata {
				entry = entry.Str(k, v)
			}
			entry.Str("event", string(ev.Type)).Msg(ev.Message)
		case <-ctx.Done():
			return
		}
	}
}

func init() {
	sessionCmd.AddCommand(sessionServeCmd)

	sessionServeCmd.Flags().String("bind-addr", "", "Raft address for the session journal (empty for in-memory)")
	sessionServeCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address for Prometheus metrics")
	sessionServeCmd.Flags().Duration("reconcile-interval", reconciler.DefaultInterval, "Reconciliation and status reload interval")
}
