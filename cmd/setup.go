package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/theirongolddev/curstat/internal/config"
	"github.com/theirongolddev/curstat/internal/token"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	reader := bufio.NewReader(os.Stdin)

	cfg, _ := config.Load()

	fmt.Println()
	fmt.Println("  Welcome to curstat!")
	fmt.Println()

	statePath := cfg.API.StateDBPath
	if statePath == "" {
		statePath = token.DefaultStatePath()
	}
	if _, err := os.Stat(statePath); err == nil {
		fmt.Printf("  Found Cursor state database at %s\n", statePath)
		fmt.Println("  The session token will be read from it automatically.")
	} else {
		fmt.Println("  No Cursor state database found — a session token is needed.")
	}
	fmt.Println()

	// 1. Session token override
	fmt.Println("  1. Session token (optional override)")
	fmt.Println("     From cursor.com cookies: the WorkosCursorSessionToken value.")
	if cfg.API.SessionToken != "" {
		fmt.Printf("     Current: %s\n", maskSecret(cfg.API.SessionToken))
	}
	fmt.Print("     > ")
	raw, _ := reader.ReadString('\n')
	raw = strings.TrimSpace(raw)
	if raw != "" {
		if _, err := token.ParseCookieValue(raw); err != nil {
			return fmt.Errorf("that doesn't look like a session token: %w", err)
		}
		cfg.API.SessionToken = raw
	}
	fmt.Println()

	// 2. Poll interval
	fmt.Println("  2. Poll interval in seconds")
	fmt.Printf("     Current: %ds (minimum 10)\n", cfg.Polling.IntervalSec)
	fmt.Print("     > ")
	ivRaw, _ := reader.ReadString('\n')
	ivRaw = strings.TrimSpace(ivRaw)
	if ivRaw != "" {
		if n, err := strconv.Atoi(ivRaw); err == nil && n >= 10 {
			cfg.Polling.IntervalSec = n
		} else {
			fmt.Println("     Keeping current value.")
		}
	}
	fmt.Println()

	// 3. Billing cycle day
	fmt.Println("  3. Billing cycle day of month")
	fmt.Printf("     Current: %d (1-28)\n", cfg.Billing.CycleDay)
	fmt.Print("     > ")
	cdRaw, _ := reader.ReadString('\n')
	cdRaw = strings.TrimSpace(cdRaw)
	if cdRaw != "" {
		if n, err := strconv.Atoi(cdRaw); err == nil && n >= 1 && n <= 28 {
			cfg.Billing.CycleDay = n
		} else {
			fmt.Println("     Keeping current value.")
		}
	}
	fmt.Println()

	// 4. Theme
	fmt.Println("  4. Color theme")
	fmt.Println("     (1) Flexoki Dark [default]")
	fmt.Println("     (2) Catppuccin Mocha")
	fmt.Println("     (3) Gruvbox Dark")
	fmt.Println("     (4) Terminal (ANSI 16)")
	fmt.Print("     > ")
	themeChoice, _ := reader.ReadString('\n')
	themeChoice = strings.TrimSpace(themeChoice)
	switch themeChoice {
	case "2":
		cfg.Appearance.Theme = "catppuccin-mocha"
	case "3":
		cfg.Appearance.Theme = "gruvbox-dark"
	case "4":
		cfg.Appearance.Theme = "terminal"
	case "1":
		cfg.Appearance.Theme = "flexoki-dark"
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `curstat setup` anytime to reconfigure.")
	fmt.Println()

	return nil
}

func maskSecret(s string) string {
	if len(s) > 16 {
		return s[:8] + "..." + s[len(s)-4:]
	}
	if len(s) > 4 {
		return s[:4] + "..."
	}
	return "****"
}
