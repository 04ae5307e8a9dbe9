package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/curstat/internal/config"
	"github.com/theirongolddev/curstat/internal/token"
	"github.com/theirongolddev/curstat/internal/tui/components"
	"github.com/theirongolddev/curstat/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	settingsFieldToken = iota
	settingsFieldTheme
	settingsFieldInterval
	settingsFieldCycleDay
	settingsFieldCount // sentinel
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool  // flash "saved" message briefly
	saveErr error // non-nil if last save failed
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 2048
	ti.Width = 50
	return ti
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd) {
	cfg := loadConfigOrDefault()
	a.settings.editing = true
	a.settings.saved = false

	ti := newSettingsInput()

	switch a.settings.cursor {
	case settingsFieldToken:
		ti.Placeholder = "WorkosCursorSessionToken cookie value"
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '*'
		if cfg.API.SessionToken != "" {
			ti.SetValue(cfg.API.SessionToken)
		}
	case settingsFieldTheme:
		ti.Placeholder = "flexoki-dark, catppuccin-mocha, gruvbox-dark, terminal"
		ti.SetValue(cfg.Appearance.Theme)
	case settingsFieldInterval:
		ti.Placeholder = "60 (seconds, minimum 10)"
		ti.SetValue(strconv.Itoa(cfg.Polling.IntervalSec))
	case settingsFieldCycleDay:
		ti.Placeholder = "3 (day of month, 1-28)"
		ti.SetValue(strconv.Itoa(cfg.Billing.CycleDay))
	}

	ti.Focus()
	a.settings.input = ti
	return a, ti.Cursor.BlinkCmd()
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "enter":
		a.settingsSave()
		a.settings.editing = false
		a.settings.saved = a.settings.saveErr == nil
		return a, nil
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

func (a *App) settingsSave() {
	cfg := loadConfigOrDefault()
	val := strings.TrimSpace(a.settings.input.Value())

	switch a.settings.cursor {
	case settingsFieldToken:
		cfg.API.SessionToken = val
		if a.tokens != nil && val != "" {
			if tok, err := token.ParseCookieValue(val); err == nil {
				a.tokens.SetOverride(tok)
			}
		}
	case settingsFieldTheme:
		for _, t := range theme.All {
			if t.Name == val {
				cfg.Appearance.Theme = val
				theme.SetActive(val)
				break
			}
		}
	case settingsFieldInterval:
		if n, err := strconv.Atoi(val); err == nil && n >= 10 {
			cfg.Polling.IntervalSec = n
			a.ctrl.SetInterval(cfg.Polling.Interval())
		}
	case settingsFieldCycleDay:
		if n, err := strconv.Atoi(val); err == nil && n >= 1 && n <= 28 {
			cfg.Billing.CycleDay = n
		}
	}

	a.settings.saveErr = config.Save(cfg)
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active
	cfg := loadConfigOrDefault()

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	type field struct {
		label string
		value string
	}

	tokenDisplay := "(from editor state db)"
	if cfg.API.SessionToken != "" {
		tokenDisplay = maskToken(cfg.API.SessionToken)
	}

	fields := []field{
		{"Session Token", tokenDisplay},
		{"Theme", cfg.Appearance.Theme},
		{"Poll Interval", fmt.Sprintf("%ds", cfg.Polling.IntervalSec)},
		{"Billing Cycle Day", strconv.Itoa(cfg.Billing.CycleDay)},
	}

	var formBody strings.Builder
	for i, f := range fields {
		// Show text input if currently editing this field
		if a.settings.editing && i == a.settings.cursor {
			formBody.WriteString(markerStyle.Render("▸ "))
			formBody.WriteString(accentStyle.Render(fmt.Sprintf("%-18s ", f.label)))
			formBody.WriteString(a.settings.input.View())
			formBody.WriteString("\n")
			continue
		}

		if i == a.settings.cursor {
			marker := markerStyle.Render("▸ ")
			label := selectedLabelStyle.Render(fmt.Sprintf("%-18s ", f.label+":"))
			value := selectedStyle.Render(f.value)
			formBody.WriteString(marker)
			formBody.WriteString(label)
			formBody.WriteString(value)
			usedWidth := lipgloss.Width(marker) + lipgloss.Width(label) + lipgloss.Width(value)
			innerW := components.CardInnerWidth(cw)
			padLen := innerW - usedWidth
			if padLen > 0 {
				formBody.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", padLen)))
			}
		} else {
			formBody.WriteString(lipgloss.NewStyle().Background(t.Surface).Render("  "))
			formBody.WriteString(labelStyle.Render(fmt.Sprintf("%-18s ", f.label+":")))
			formBody.WriteString(valueStyle.Render(f.value))
		}
		formBody.WriteString("\n")
	}

	if a.settings.saveErr != nil {
		warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		formBody.WriteString("\n")
		formBody.WriteString(warnStyle.Render(fmt.Sprintf("Save failed: %s", a.settings.saveErr)))
	} else if a.settings.saved {
		formBody.WriteString("\n")
		formBody.WriteString(greenStyle.Render("Saved!"))
	}

	formBody.WriteString("\n")
	formBody.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit  [Esc] cancel"))

	// General info card
	var infoBody strings.Builder
	infoBody.WriteString(labelStyle.Render("Config file:   ") + valueStyle.Render(config.ConfigPath()) + "\n")
	infoBody.WriteString(labelStyle.Render("History db:    ") + valueStyle.Render(config.HistoryPath()) + "\n")
	infoBody.WriteString(labelStyle.Render("State db:      ") + valueStyle.Render(statePathDisplay(cfg)))

	var b strings.Builder
	b.WriteString(components.ContentCard("Settings", formBody.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("General", infoBody.String(), cw))

	return b.String()
}

func maskToken(tok string) string {
	if len(tok) > 16 {
		return tok[:8] + "..." + tok[len(tok)-4:]
	}
	return "****"
}

func statePathDisplay(cfg config.Config) string {
	if cfg.API.StateDBPath != "" {
		return cfg.API.StateDBPath
	}
	return token.DefaultStatePath()
}
