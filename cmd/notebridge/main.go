// Command notebridge keeps a remote markdown note sink in step with live
// agent sessions: it watches the session store, derives summary and
// transcript documents, and flushes them through a durable write queue.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/agentworkforce/notebridge/internal/config"
	"github.com/agentworkforce/notebridge/internal/engine"
	"github.com/agentworkforce/notebridge/internal/httpapi"
	"github.com/agentworkforce/notebridge/internal/queue"
	"github.com/agentworkforce/notebridge/internal/sessions"
	"github.com/agentworkforce/notebridge/internal/sink"
	"github.com/agentworkforce/notebridge/internal/watch"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "notebridge",
		Short:         "Sync agent session notes to a remote note sink",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newStatusCmd(&configPath))
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg)
			return serve(cmd.Context(), cfg)
		},
	}
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the running daemon's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return printStatus(cmd.Context(), cfg)
		},
	}
}

func setupLogging(cfg config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if cfg.LogFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    20,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		})
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	q, err := queue.FromDSN(cfg.QueueDSNOrDefault())
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer func() {
		if err := q.Close(); err != nil {
			log.WithError(err).Warn("failed to close queue")
		}
	}()

	sinkClient := sink.NewHTTPClient(sink.HTTPClientOptions{
		BaseURL:   cfg.SinkURL,
		Token:     cfg.SinkToken,
		UserAgent: "notebridge/" + version,
	})
	store := sessions.NewStore(cfg.SessionsDir)

	eng, err := engine.New(engine.Options{
		Store:         store,
		Queue:         q,
		Sink:          sinkClient,
		FlushInterval: cfg.FlushInterval,
		PollInterval:  cfg.PollInterval,
		SyncDebounce:  cfg.SyncDebounce,
		SplitLimit:    cfg.SplitLimit,
	})
	if err != nil {
		return err
	}
	eng.Start(ctx)
	defer eng.Stop()

	watcher, err := watch.New(watch.Options{
		Root:       cfg.SessionsDir,
		Dispatcher: eng,
		Debounce:   cfg.WatchDebounce,
	})
	if err != nil {
		return fmt.Errorf("start session watch: %w", err)
	}
	watcher.Start(ctx)
	defer watcher.Stop()

	api := httpapi.NewServerWithConfig(eng, httpapi.ServerConfig{
		APIToken: cfg.APIToken,
	})
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("notebridge listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	return nil
}

func printStatus(ctx context.Context, cfg config.Config) error {
	url := "http://" + cfg.ListenAddr + "/v1/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIToken)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", cfg.ListenAddr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned %s", resp.Status)
	}

	var status engine.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "sink available:   %v\n", status.SinkAvailable)
	fmt.Fprintf(&b, "queue depth:      %d\n", status.QueueDepth)
	fmt.Fprintf(&b, "tracked sessions: %d\n", status.TrackedSessions)
	fmt.Fprintf(&b, "handler failures: %d\n", status.HandlerFailures)
	fmt.Fprintf(&b, "discarded writes: %d\n", status.DiscardedItems)
	fmt.Print(b.String())
	return nil
}
