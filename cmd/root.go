package cmd

import (
	"fmt"
	"os"

	"github.com/theirongolddev/curstat/internal/config"
	"github.com/theirongolddev/curstat/internal/cursorapi"
	"github.com/theirongolddev/curstat/internal/monitor"
	"github.com/theirongolddev/curstat/internal/notify"
	"github.com/theirongolddev/curstat/internal/token"
	"github.com/theirongolddev/curstat/internal/tui/theme"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagToken   string
	flagStateDB string
	flagBaseURL string
	flagQuiet   bool
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "curstat",
	Short: "Cursor usage statistics CLI",
	Long:  "Track your Cursor editor usage: premium requests, usage-based spend, and per-model costs.",
	RunE:  runStatus,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "Session token (overrides config and state db)")
	rootCmd.PersistentFlags().StringVar(&flagStateDB, "state-db", "", "Path to Cursor's state.vscdb")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "Dashboard API base URL")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Verbose logging")
}

// loadConfig reads the config file and applies the global flags on top.
func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil && !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Warning: %v (using defaults)\n", err)
	}
	if flagToken != "" {
		cfg.API.SessionToken = flagToken
	}
	if flagStateDB != "" {
		cfg.API.StateDBPath = flagStateDB
	}
	if flagBaseURL != "" {
		cfg.API.BaseURL = flagBaseURL
	}
	theme.SetActive(cfg.Appearance.Theme)
	return cfg
}

// newLogger builds the CLI logger. Quiet mode only reports errors.
func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	if flagQuiet {
		level = zerolog.ErrorLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// buildStack wires the credential provider, API client, and orchestrator
// from config. The unknown-model accumulator is shared so repeated polls
// report each new fragment once.
func buildStack(cfg config.Config, log zerolog.Logger) (*monitor.Orchestrator, *token.Provider, error) {
	var override cursorapi.SessionToken
	if cfg.API.SessionToken != "" {
		tok, err := token.ParseCookieValue(cfg.API.SessionToken)
		if err != nil {
			return nil, nil, err
		}
		override = tok
	}
	if cfg.API.UserID != "" {
		override.UserID = cfg.API.UserID
	}

	tokens := token.NewProvider(cfg.API.StateDBPath, override)
	api := cursorapi.NewClient(cfg.API.BaseURL)

	unknown := notify.NewUnknownModels(func(fragments []string) {
		log.Warn().Strs("descriptions", fragments).Msg("unrecognized billing models")
	})

	orch := monitor.NewOrchestrator(tokens, api, unknown, cfg.Billing.CycleDay, nil, log)
	return orch, tokens, nil
}
