package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/use-agent/leadscout/config"
)

var (
	logLevel      string
	logFormat     string
	selectorsFile string
)

var rootCmd = &cobra.Command{
	Use:   "leadscout",
	Short: "Find Instagram leads through Google dorks and extract their phones",
	Long: `leadscout runs a Google dork query in a real browser, waits for you
to solve any captcha, visits the Instagram profiles it finds and pulls
Brazilian phone numbers out of their bios and links.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default from LEADSCOUT_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "text or json (default from LEADSCOUT_LOG_FORMAT)")
	rootCmd.PersistentFlags().StringVar(&selectorsFile, "selectors", "", "YAML file overriding result and captcha selectors")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment, applies the global flags, validates
// and installs the logger.
func loadConfig(logOut io.Writer) (*config.Config, error) {
	cfg := config.Load()
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if selectorsFile != "" {
		cfg.SelectorsFile = selectorsFile
	}
	initLogger(cfg.Log, logOut)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig, w io.Writer) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}
