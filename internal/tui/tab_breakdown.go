package tui

import (
	"strings"

	"github.com/theirongolddev/curstat/internal/cli"
	"github.com/theirongolddev/curstat/internal/model"
	"github.com/theirongolddev/curstat/internal/tui/components"
	"github.com/theirongolddev/curstat/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderBreakdownTab(cw int) string {
	t := theme.Active
	active := a.bundle.Active()
	var out strings.Builder

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	unknownStyle := lipgloss.NewStyle().Foreground(t.Yellow).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	title := "Usage Items · " + cli.FormatPeriod(a.bundle.ActivePeriod)

	if len(active.Items) == 0 {
		out.WriteString(components.ContentCard(title,
			dimStyle.Render("No billable usage this period."), cw))
		return out.String()
	}

	rows := cli.ItemRows(active.Items)
	modelW := 0
	for _, r := range rows {
		if len(r.Model) > modelW {
			modelW = len(r.Model)
		}
	}

	var body strings.Builder
	for i, r := range rows {
		nameStyle := valueStyle
		if active.Items[i].ModelName == model.UnknownModel {
			nameStyle = unknownStyle
		}
		body.WriteString(nameStyle.Render(padRight(r.Model, modelW)))
		body.WriteString(labelStyle.Render("  " + r.Requests + " req  "))
		body.WriteString(dimStyle.Render("@ " + r.UnitCost + "  "))
		body.WriteString(valueStyle.Render(r.Total))
		body.WriteString("\n")
	}

	body.WriteString(dimStyle.Render(strings.Repeat("─", components.CardInnerWidth(cw))))
	body.WriteString("\n")
	body.WriteString(labelStyle.Render(padRight("Total", modelW)))
	body.WriteString(valueStyle.Render("  " + cli.FormatCents(active.ActualTotalCents())))
	if active.MidMonthPaymentCents > 0 {
		body.WriteString("\n")
		body.WriteString(labelStyle.Render(padRight("Mid-month paid", modelW)))
		body.WriteString(valueStyle.Render("  " + cli.FormatCents(active.MidMonthPaymentCents)))
	}

	out.WriteString(components.ContentCard(title, body.String(), cw))
	return out.String()
}

func padRight(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}
