package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/theirongolddev/curstat/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Launch the interactive live usage monitor",
	RunE:  runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()
	log := newLogger()

	orch, tokens, err := buildStack(cfg, log)
	if err != nil {
		return err
	}

	// First-run setup when no credential is reachable anywhere.
	needSetup := false
	checkCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if _, err := tokens.Token(checkCtx); err != nil {
		needSetup = true
	}
	cancel()

	// Force TrueColor profile so all background styling produces ANSI codes
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(orch, tokens, cfg, needSetup)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithReportFocus())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("monitor error: %w", err)
	}

	return nil
}
