// Package tui provides the interactive Bubble Tea monitor for curstat.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/curstat/internal/cli"
	"github.com/theirongolddev/curstat/internal/config"
	"github.com/theirongolddev/curstat/internal/model"
	"github.com/theirongolddev/curstat/internal/monitor"
	"github.com/theirongolddev/curstat/internal/poll"
	"github.com/theirongolddev/curstat/internal/token"
	"github.com/theirongolddev/curstat/internal/tui/components"
	"github.com/theirongolddev/curstat/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// CycleDoneMsg is sent when a polling cycle completes.
type CycleDoneMsg struct {
	Bundle model.StatsBundle
	Err    error
}

// tickMsg drives the 1-second countdown and poll scheduling.
type tickMsg time.Time

// App is the root Bubble Tea model.
type App struct {
	orch   *monitor.Orchestrator
	ctrl   *poll.Controller
	tokens *token.Provider // for setup-form credential override, may be nil

	// Data
	bundle   model.StatsBundle
	loaded   bool
	fetching bool
	lastPoll time.Time
	lastErr  string

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	focused   bool

	// Per-tab state
	settings settingsState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals setupValues
	needSetup bool

	spinner spinner.Model
}

const (
	minTerminalWidth = 60
	maxContentWidth  = 120
	minContentHeight = 5
)

// loadConfigOrDefault loads config, returning defaults on error.
// This ensures the TUI can always start even if config is corrupted.
func loadConfigOrDefault() config.Config {
	cfg, err := config.Load()
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

// NewApp creates a new TUI app model.
func NewApp(orch *monitor.Orchestrator, tokens *token.Provider, cfg config.Config, needSetup bool) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#3AA99F")).Background(theme.Active.Surface)

	ctrl := poll.New(poll.Config{
		Interval:         cfg.Polling.Interval(),
		FailureThreshold: cfg.Polling.FailureThreshold,
		Cooldown:         cfg.Polling.Cooldown(),
	}, nil)

	app := App{
		orch:      orch,
		ctrl:      ctrl,
		tokens:    tokens,
		needSetup: needSetup,
		focused:   true,
		spinner:   sp,
	}
	if needSetup {
		app.setupForm = newSetupForm(&app.setupVals)
	}
	return app
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		a.spinner.Tick,
		tickCmd(),
	}

	if a.setupForm != nil {
		cmds = append(cmds, a.setupForm.Init())
	} else {
		// Kick the scheduler so the first poll starts immediately.
		cmds = append(cmds, func() tea.Msg { return tickMsg(time.Now()) })
	}

	return tea.Batch(cmds...)
}

// startPoll begins a cycle if none is running and the controller allows it.
func (a *App) startPoll() tea.Cmd {
	if a.fetching || !a.ctrl.TryBegin() {
		return nil
	}
	a.fetching = true
	return runCycleCmd(a.orch)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.FocusMsg:
		a.focused = true
		if a.ctrl.Resume() {
			// Data went stale while unfocused; at most one catch-up poll.
			return a, a.startPoll()
		}
		return a, nil

	case tea.BlurMsg:
		a.focused = false
		a.ctrl.Pause()
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || (a.needSetup && a.setupForm != nil) {
			return a, nil
		}
		if msg.Button == tea.MouseButtonLeft && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
		return a, nil

	case tea.KeyMsg:
		key := msg.String()

		if key == "ctrl+c" {
			return a, tea.Quit
		}

		// First-run setup wizard intercepts all keys
		if a.needSetup && a.setupForm != nil {
			return a.updateSetupForm(msg)
		}

		// Settings tab has its own keybindings (text input)
		if a.activeTab == 2 && a.settings.editing {
			return a.updateSettingsInput(msg)
		}

		if key == "?" {
			a.showHelp = !a.showHelp
			return a, nil
		}
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}

		// Settings tab navigation (non-editing mode)
		if a.activeTab == 2 {
			switch key {
			case "j", "down":
				if a.settings.cursor < settingsFieldCount-1 {
					a.settings.cursor++
				}
				return a, nil
			case "k", "up":
				if a.settings.cursor > 0 {
					a.settings.cursor--
				}
				return a, nil
			case "enter":
				return a.settingsStartEdit()
			}
		}

		switch key {
		case "q":
			return a, tea.Quit
		case "r":
			// Coalesced refresh: if a cycle is running the request folds
			// into one follow-up poll.
			if a.ctrl.RequestPoll() {
				return a, a.startPoll()
			}
			return a, nil
		case "o":
			a.activeTab = 0
		case "b":
			a.activeTab = 1
		case "x":
			a.activeTab = 2
		case "left":
			a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		case "right":
			a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		}
		return a, nil

	case CycleDoneMsg:
		a.fetching = false
		pending := a.ctrl.Finish(msg.Err != nil)

		a.lastPoll = time.Now()
		if msg.Err != nil {
			a.lastErr = msg.Err.Error()
		} else {
			a.lastErr = ""
			a.bundle = msg.Bundle
			a.loaded = true
		}

		if pending {
			return a, a.startPoll()
		}
		return a, nil

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}

		// Schedule the next poll once the interval (or cooldown) elapses.
		// TryBegin refuses during cooldown and while paused, so ticking
		// every second costs nothing beyond the countdown redraw.
		if !a.needSetup && !a.fetching && a.focused &&
			(a.lastPoll.IsZero() || time.Since(a.lastPoll) >= a.ctrl.NextDelay()) {
			if cmd := a.startPoll(); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}

		return a, tea.Batch(cmds...)
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}

	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	if a.setupForm.State == huh.StateCompleted {
		_ = a.saveSetupConfig()
		a.needSetup = false
		a.setupForm = nil
		return a, a.startPoll()
	}

	if a.setupForm.State == huh.StateAborted {
		return a, tea.Quit
	}

	return a, cmd
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}

	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}

	if a.needSetup && a.setupForm != nil {
		return a.setupForm.View()
	}

	if !a.loaded {
		return a.viewLoading()
	}

	if a.showHelp {
		return a.viewHelp()
	}

	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}

	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  curstat needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)

	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active
	w := a.width
	h := a.height

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)

	logoStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)

	subtitleStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	spinnerStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface)

	warnStyle := lipgloss.NewStyle().
		Foreground(t.Orange).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ curstat"))
	b.WriteString(subtitleStyle.Render(" · Cursor Usage Monitor"))
	b.WriteString("\n\n")
	b.WriteString(spinnerStyle.Render(a.spinner.View()))
	b.WriteString(subtitleStyle.Render(" Fetching usage data..."))

	if a.lastErr != "" {
		b.WriteString("\n\n")
		b.WriteString(warnStyle.Render(truncStr(a.lastErr, 60)))
		if remaining, ok := a.ctrl.CooldownRemaining(); ok {
			b.WriteString("\n")
			b.WriteString(subtitleStyle.Render("retrying in " + cli.FormatDuration(remaining)))
		}
	}

	card := cardStyle.Render(b.String())

	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active
	h := a.height
	w := a.width

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)

	keyStyle := lipgloss.NewStyle().
		Foreground(t.Cyan).
		Background(t.Surface).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	dimStyle := lipgloss.NewStyle().
		Foreground(t.TextDim).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")

	bindings := []struct{ key, desc string }{
		{"o b x", "Jump to tab"},
		{"← →", "Previous / Next tab"},
		{"j k", "Navigate settings"},
		{"Enter", "Edit / Confirm"},
		{"Esc", "Cancel edit"},
		{"r", "Refresh now"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	}
	for _, bind := range bindings {
		fmt.Fprintf(&b, "  %s  %s\n",
			keyStyle.Render(fmt.Sprintf("%-6s", bind.key)),
			descStyle.Render(bind.desc))
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	card := cardStyle.Render(b.String())

	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// pollStateLabel describes the polling engine for the status bar.
func (a App) pollStateLabel() (label string, degraded bool) {
	if !a.focused {
		return "paused", false
	}
	if a.fetching {
		return "refreshing...", false
	}
	if remaining, ok := a.ctrl.CooldownRemaining(); ok {
		return "cooldown " + cli.FormatDuration(remaining), true
	}
	if a.lastErr != "" {
		return "error, retrying", true
	}
	if !a.lastPoll.IsZero() {
		next := time.Until(a.lastPoll.Add(a.ctrl.NextDelay()))
		if next > 0 {
			return "next poll " + cli.FormatDuration(next), false
		}
	}
	return "", false
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w)

	updatedAt := ""
	if !a.lastPoll.IsZero() {
		updatedAt = a.lastPoll.Format("15:04:05")
	}
	state, degraded := a.pollStateLabel()
	statusBar := components.RenderStatusBar(w, updatedAt, state, degraded)

	// Keep the premium quota visible while on other tabs.
	quotaStrip := ""
	if a.activeTab != 0 && a.loaded && a.bundle.Premium.Limit > 0 {
		pct := float64(a.bundle.Premium.Current) / float64(a.bundle.Premium.Limit)
		label := fmt.Sprintf(" Premium %d/%d", a.bundle.Premium.Current, a.bundle.Premium.Limit)
		quotaStrip = lipgloss.NewStyle().Width(w).Background(t.Surface).
			Render(components.CompactQuotaBar(label, pct, w-2))
	}

	headerH := lipgloss.Height(header)
	statusH := lipgloss.Height(statusBar)
	contentH := h - headerH - statusH
	if quotaStrip != "" {
		contentH -= lipgloss.Height(quotaStrip)
	}
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var content string
	switch a.activeTab {
	case 0:
		content = a.renderOverviewTab(cw)
	case 1:
		content = a.renderBreakdownTab(cw)
	case 2:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	var output string
	if quotaStrip != "" {
		output = lipgloss.JoinVertical(lipgloss.Left, header, content, quotaStrip, statusBar)
	} else {
		output = lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	}

	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// ─── Helpers ────────────────────────────────────────────────────

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runCycleCmd runs one polling cycle in a background goroutine.
func runCycleCmd(orch *monitor.Orchestrator) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
		defer cancel()
		bundle, err := orch.RunCycle(ctx)
		return CycleDoneMsg{Bundle: bundle, Err: err}
	}
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 1 // leading space
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)

		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW

		// Two columns between tabs.
		if i < len(components.Tabs)-1 {
			pos += 2
		}
	}
	return -1
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	padding := strings.Repeat("\n", h-len(lines))
	return s + padding
}
