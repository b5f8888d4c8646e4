package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/leadscout/api"
	"github.com/use-agent/leadscout/api/handler"
	"github.com/use-agent/leadscout/metrics"
	"github.com/use-agent/leadscout/models"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search API (one browser, one search at a time)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from LEADSCOUT_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg, err := loadConfig(os.Stdout)
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	slog.Info("leadscout starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"headless", cfg.Browser.Headless,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── 2. Browser and search stack (profile cache on) ──────────────
	p, err := newPipeline(cfg, os.Stderr, true)
	if err != nil {
		return err
	}
	defer p.Close()

	if cfg.Server.MetricsAddr != "" {
		sys, addr, err := metrics.NewPrometheusSystem("leadscout", cfg.Server.MetricsAddr)
		if err != nil {
			return fmt.Errorf("start metrics exporter: %w", err)
		}
		p.metrics.SetTelemetry(sys)
		slog.Info("prometheus metrics exporter listening", "addr", addr)
	}

	// ── 3. Job queue ─────────────────────────────────────────────────
	jobs := handler.NewJobs(p.aggregator, handler.JobsConfig{
		QueueSize:     cfg.Server.QueueSize,
		TTL:           cfg.Server.JobTTL,
		Timeout:       cfg.Server.JobTimeout,
		WebhookURL:    cfg.Webhook.URL,
		WebhookSecret: cfg.Webhook.Secret,
		OnComplete: func(ctx context.Context, out *models.SearchOutput) {
			if p.store == nil {
				return
			}
			if _, err := p.store.SaveOutput(context.WithoutCancel(ctx), out); err != nil {
				slog.Warn("failed to store leads", "query", out.Query, "error", err)
			}
		},
	})
	jobs.Start(ctx)

	// ── 4. Setup router ──────────────────────────────────────────────
	router := api.NewRouter(ctx, cfg, jobs, p.scraper, time.Now())

	// ── 5. Start HTTP server ─────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── 6. Graceful shutdown ─────────────────────────────────────────
	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// p.Close() runs via defer: saves sessions and kills Chrome.
	slog.Info("leadscout stopped")
	return nil
}
