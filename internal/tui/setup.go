package tui

import (
	"errors"
	"strings"

	"github.com/theirongolddev/curstat/internal/config"
	"github.com/theirongolddev/curstat/internal/token"
	"github.com/theirongolddev/curstat/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// setupValues holds the first-run form answers.
type setupValues struct {
	sessionToken string
	themeName    string
}

// newSetupForm builds the first-run wizard shown when no credential can be
// found in the editor's state database.
func newSetupForm(vals *setupValues) *huh.Form {
	vals.themeName = theme.Active.Name

	themeOpts := make([]huh.Option[string], len(theme.All))
	for i, t := range theme.All {
		themeOpts[i] = huh.NewOption(t.Name, t.Name)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("◈ curstat setup").
				Description("No Cursor credential was found automatically.\nPaste your WorkosCursorSessionToken cookie value below."),

			huh.NewInput().
				Title("Session token").
				Description("From cursor.com cookies, or Cursor's state database.").
				EchoMode(huh.EchoModePassword).
				Value(&vals.sessionToken).
				Validate(validateSessionToken),

			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.themeName),
		),
	)
}

func validateSessionToken(v string) error {
	if strings.TrimSpace(v) == "" {
		return errors.New("token is required")
	}
	if _, err := token.ParseCookieValue(v); err != nil {
		return errors.New("not a valid session token")
	}
	return nil
}

func (a *App) saveSetupConfig() error {
	cfg := loadConfigOrDefault()

	raw := strings.TrimSpace(a.setupVals.sessionToken)
	cfg.API.SessionToken = raw
	if a.setupVals.themeName != "" {
		cfg.Appearance.Theme = a.setupVals.themeName
		theme.SetActive(cfg.Appearance.Theme)
	}

	if err := config.Save(cfg); err != nil {
		return err
	}
	if a.tokens != nil {
		if tok, err := token.ParseCookieValue(raw); err == nil {
			a.tokens.SetOverride(tok)
		}
	}
	return nil
}
