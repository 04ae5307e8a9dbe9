package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/curstat/internal/cli"
	"github.com/theirongolddev/curstat/internal/model"
	"github.com/theirongolddev/curstat/internal/tui/components"
	"github.com/theirongolddev/curstat/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	b := a.bundle
	active := b.Active()
	var out strings.Builder

	// Row 1: Metric cards
	premiumValue := cli.FormatNumber(int64(b.Premium.Current))
	premiumDelta := "no limit"
	if b.Premium.Limit > 0 {
		premiumValue = fmt.Sprintf("%s / %s",
			cli.FormatNumber(int64(b.Premium.Current)),
			cli.FormatNumber(int64(b.Premium.Limit)))
		premiumDelta = b.PremiumRemaining + "% left"
	}

	spendDelta := ""
	if b.MidMonthDollars > 0 {
		spendDelta = cli.FormatCost(b.MidMonthDollars) + " already paid"
	}

	limitValue := "off"
	limitDelta := ""
	if b.UsageBased.Enabled {
		if b.UsageBased.LimitDollars != nil {
			limitValue = cli.FormatCost(*b.UsageBased.LimitDollars)
			limitDelta = fmt.Sprintf("%.1f%% used", b.UsageBasedPct)
		} else {
			limitValue = "no cap"
		}
	}

	cards := []struct{ Label, Value, Delta string }{
		{"Premium Requests", premiumValue, premiumDelta},
		{"Spend", cli.FormatCost(b.ActualDollars), spendDelta},
		{"Usage-Based Limit", limitValue, limitDelta},
	}
	out.WriteString(components.MetricCardRow(cards, cw))
	out.WriteString("\n")

	// Row 2: Quota bars
	innerW := components.CardInnerWidth(cw)
	labelW := 12
	barW := innerW - labelW - 14
	if barW < 10 {
		barW = 10
	}

	var bars strings.Builder
	if b.Premium.Limit > 0 {
		resetAt := b.Premium.PeriodStart.AddDate(0, 1, 0)
		bars.WriteString(components.QuotaBar("Premium",
			float64(b.PremiumPercent)/100, resetAt, labelW, barW))
	} else {
		bars.WriteString(components.QuotaBar("Premium", 0, b.Premium.PeriodStart, labelW, barW))
	}
	if b.UsageBased.Enabled && b.UsageBased.LimitDollars != nil {
		bars.WriteString("\n")
		bars.WriteString(components.QuotaBar("Usage-based",
			b.UsageBasedPct/100, resetTime(b), labelW, barW))
	}
	out.WriteString(components.ContentCard("Quota", bars.String(), cw))
	out.WriteString("\n")

	// Row 3: Billing period card
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)

	var period strings.Builder
	period.WriteString(labelStyle.Render("Period:  "))
	period.WriteString(valueStyle.Render(cli.FormatPeriod(b.ActivePeriod)))
	if b.ActiveFallback {
		period.WriteString(labelStyle.Render("  (previous cycle, current is empty)"))
	}
	period.WriteString("\n")
	period.WriteString(labelStyle.Render("Items:   "))
	period.WriteString(valueStyle.Render(cli.FormatNumber(int64(len(active.Items)))))
	if active.MidMonthPaymentCents > 0 {
		period.WriteString("\n")
		period.WriteString(labelStyle.Render("Paid:    "))
		period.WriteString(valueStyle.Render(cli.FormatCents(active.MidMonthPaymentCents)))
	}
	if active.HasUnpaidMidMonthInvoice {
		period.WriteString("\n")
		period.WriteString(warnStyle.Render("Unpaid mid-month invoice"))
	}
	out.WriteString(components.ContentCard("Billing", period.String(), cw))

	// Degraded-state banner
	if a.lastErr != "" {
		out.WriteString("\n")
		out.WriteString(components.ContentCard("",
			warnStyle.Render("Last poll failed: "+truncStr(a.lastErr, innerW-20)), cw))
	}

	return out.String()
}

// resetTime returns the usage-based period rollover, approximated by the
// premium window start.
func resetTime(b model.StatsBundle) time.Time {
	if b.Premium.PeriodStart.IsZero() {
		return time.Time{}
	}
	return b.Premium.PeriodStart.AddDate(0, 1, 0)
}
