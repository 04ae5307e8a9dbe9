// Package cmd implements the curstat CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/theirongolddev/curstat/internal/config"
	"github.com/theirongolddev/curstat/internal/token"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if _, err := os.Stat(config.ConfigPath()); err == nil {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [API]")
	if cfg.API.SessionToken != "" {
		fmt.Printf("    Session token: %s\n", maskSecret(cfg.API.SessionToken))
	} else {
		fmt.Println("    Session token: from editor state db")
	}
	statePath := cfg.API.StateDBPath
	if statePath == "" {
		statePath = token.DefaultStatePath()
	}
	fmt.Printf("    State db:      %s\n", statePath)
	if cfg.API.BaseURL != "" {
		fmt.Printf("    Base URL:      %s\n", cfg.API.BaseURL)
	}
	fmt.Println()

	fmt.Println("  [Billing]")
	fmt.Printf("    Cycle day: %d\n", cfg.Billing.CycleDay)
	fmt.Println()

	fmt.Println("  [Polling]")
	fmt.Printf("    Interval:          %ds\n", cfg.Polling.IntervalSec)
	fmt.Printf("    Failure threshold: %d\n", cfg.Polling.FailureThreshold)
	fmt.Printf("    Cooldown:          %ds\n", cfg.Polling.CooldownSec)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `curstat setup` to reconfigure.")
	return nil
}
