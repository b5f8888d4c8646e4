package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/leadscout/config"
	"github.com/use-agent/leadscout/models"
	"github.com/use-agent/leadscout/report"
	"github.com/use-agent/leadscout/search"
)

var (
	searchPages      int
	searchCap        int
	searchOnlyPhones bool
	searchCSV        bool
	searchOutDir     string
	searchDB         string
	searchHeadless   bool
	searchProxy      string
	searchStats      bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a Google dork and enrich the Instagram profiles it finds",
	Example: `  leadscout search 'site:instagram.com "dentista" "São Paulo"'
  leadscout search --pages 5 --only-phones --csv 'site:instagram.com confeitaria'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.IntVarP(&searchPages, "pages", "p", 0, "result pages to scrape (default from LEADSCOUT_MAX_PAGES)")
	f.IntVar(&searchCap, "cap", 0, "unique profiles to fetch (default from LEADSCOUT_PROFILE_CAP)")
	f.BoolVar(&searchOnlyPhones, "only-phones", false, "keep only rows with phones in the output")
	f.BoolVar(&searchCSV, "csv", false, "also write a CSV next to the JSON")
	f.StringVarP(&searchOutDir, "out", "o", "", "output directory (default from LEADSCOUT_OUTPUT_DIR)")
	f.StringVar(&searchDB, "db", "", "SQLite lead store path")
	f.BoolVar(&searchHeadless, "headless", false, "run the browser headless (captchas cannot be solved)")
	f.StringVar(&searchProxy, "proxy", "", "proxy URL (http, https or socks5)")
	f.BoolVar(&searchStats, "stats", false, "print operation timings")
	rootCmd.AddCommand(searchCmd)
}

func applySearchFlags(cmd *cobra.Command, cfg *config.Config) {
	if searchOnlyPhones {
		cfg.Output.OnlyWithPhones = true
	}
	if searchCSV {
		cfg.Output.CSV = true
	}
	if searchOutDir != "" {
		cfg.Output.Dir = searchOutDir
	}
	if searchDB != "" {
		cfg.Output.DBPath = searchDB
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = searchHeadless
	}
	if searchProxy != "" {
		cfg.Browser.Proxy = searchProxy
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))

	// ── 1. Load configuration ───────────────────────────────────────
	cfg, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	applySearchFlags(cmd, cfg)
	if cfg.Browser.Proxy != "" {
		if err := config.ValidateProxy(cfg.Browser.Proxy); err != nil {
			return err
		}
	}
	return executeSearch(cmd, cfg, query)
}

// executeSearch runs one search with an already loaded configuration and
// reports to cmd's output.
func executeSearch(cmd *cobra.Command, cfg *config.Config, query string) error {
	if query == "" {
		return models.NewScrapeError(models.ErrCodeEmptyQuery, "search query must not be empty", nil)
	}

	// ── 2. Signal-aware context ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── 3. Browser and search stack ─────────────────────────────────
	p, err := newPipeline(cfg, os.Stderr, false)
	if err != nil {
		return err
	}
	defer p.Close()

	// ── 4. Run ──────────────────────────────────────────────────────
	out, runErr := p.aggregator.Run(ctx, search.Options{
		Query:      query,
		MaxPages:   searchPages,
		ProfileCap: searchCap,
	})
	if out == nil {
		return runErr
	}
	if runErr != nil {
		slog.Warn("search ended early, writing partial results", "error", runErr)
	}

	// ── 5. Persist ──────────────────────────────────────────────────
	if err := writeOutputs(ctx, cfg, p, out); err != nil {
		return errors.Join(runErr, err)
	}

	// ── 6. Report ───────────────────────────────────────────────────
	w := cmd.OutOrStdout()
	summary := report.Summarize(out.Results)
	fmt.Fprintln(w, report.RenderSummary(out, summary))
	if summary.ProfilesWithPhones > 0 {
		fmt.Fprintln(w, report.RenderPhones(out.Results))
	}
	if searchStats {
		fmt.Fprintln(w, report.RenderMetrics(p.metrics.Snapshot(), p.metrics.Elapsed()))
	}
	return runErr
}

// writeOutputs stores the run and writes the JSON and CSV files.
func writeOutputs(ctx context.Context, cfg *config.Config, p *pipeline, out *models.SearchOutput) error {
	if p.store != nil {
		// The store keeps every row; the phone filter only shapes the files.
		storeCtx := context.WithoutCancel(ctx)
		n, err := p.store.SaveOutput(storeCtx, out)
		if err != nil {
			return fmt.Errorf("save leads: %w", err)
		}
		slog.Info("leads stored", "new", n)
	}

	if cfg.Output.OnlyWithPhones {
		out = report.OnlyWithPhones(out)
	}
	if len(out.Results) == 0 {
		slog.Warn("no results to write")
		return nil
	}

	at := time.Now()
	path, err := report.WriteJSON(cfg.Output.Dir, out, at)
	if err != nil {
		return err
	}
	slog.Info("results saved", "path", path, "results", len(out.Results))

	if cfg.Output.CSV {
		csvPath, err := report.WriteCSVFile(cfg.Output.Dir, out, at)
		if err != nil {
			return err
		}
		slog.Info("csv saved", "path", csvPath)
	}
	return nil
}
