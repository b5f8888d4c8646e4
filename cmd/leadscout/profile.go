package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/use-agent/leadscout/config"
	"github.com/use-agent/leadscout/instagram"
	"github.com/use-agent/leadscout/models"
	"github.com/use-agent/leadscout/report"
	"github.com/use-agent/leadscout/scraper"
	"github.com/use-agent/leadscout/search"
)

var (
	profileDebug    bool
	profileDebugDir string
	profileJSON     bool
	profileHeadless bool
)

var profileCmd = &cobra.Command{
	Use:   "profile <url>",
	Short: "Scrape one Instagram profile in the browser and extract its phones",
	Example: `  leadscout profile https://www.instagram.com/docesdaana/
  leadscout profile --debug --debug-dir /tmp/dumps instagram.com/docesdaana`,
	Args: cobra.ExactArgs(1),
	RunE: runProfile,
}

func init() {
	f := profileCmd.Flags()
	f.BoolVar(&profileDebug, "debug", false, "log at debug level and dump HTML and a screenshot on failure")
	f.StringVar(&profileDebugDir, "debug-dir", "data/debug", "where --debug writes dumps")
	f.BoolVar(&profileJSON, "json", false, "print the enriched profile as JSON")
	f.BoolVar(&profileHeadless, "headless", false, "run the browser headless")
	rootCmd.AddCommand(profileCmd)
}

func runProfile(cmd *cobra.Command, args []string) error {
	// ── 1. Load configuration ───────────────────────────────────────
	if profileDebug {
		logLevel = "debug"
	}
	cfg, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = profileHeadless
	}
	return executeProfile(cmd, cfg, args[0])
}

// executeProfile fetches and enriches one profile with an already loaded
// configuration.
func executeProfile(cmd *cobra.Command, cfg *config.Config, rawURL string) error {
	ref, ok := instagram.ParseProfileURL(rawURL)
	if !ok {
		return models.NewScrapeError(models.ErrCodeInvalidInput, "not an Instagram profile URL: "+rawURL, nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── 2. Browser ───────────────────────────────────────────────────
	sc, err := scraper.NewScraper(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sc.SaveSessions(); err != nil {
			slog.Warn("failed to save sessions", "error", err)
		}
		sc.Close()
	}()
	if profileDebug {
		sc.SetDebugDir(profileDebugDir)
	}

	// ── 3. Fetch and enrich ──────────────────────────────────────────
	slog.Info("fetching profile", "username", ref.Username, "url", ref.NormalizedURL)
	p, err := sc.FetchProfile(ctx, ref.NormalizedURL)
	if err != nil {
		return err
	}
	if p == nil {
		return models.NewScrapeError(models.ErrCodeProfileParse, "no profile on page", nil)
	}
	if p.Username == "" {
		p.Username = ref.Username
	}
	if p.ProfileURL == "" {
		p.ProfileURL = ref.NormalizedURL
	}
	data := search.Enrichment(p)

	// ── 4. Report ───────────────────────────────────────────────────
	w := cmd.OutOrStdout()
	if profileJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	fmt.Fprintln(w, report.RenderProfile(data))
	return nil
}
