// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/curstat/internal/model"
)

// FormatCost formats a USD cost value.
func FormatCost(cost float64) string {
	if cost >= 1000 {
		return "$" + FormatNumber(int64(math.Round(cost)))
	}
	if cost >= 100 {
		return fmt.Sprintf("$%.0f", cost)
	}
	return fmt.Sprintf("$%.2f", cost)
}

// FormatCents formats a cent amount as dollars.
func FormatCents(cents int) string {
	if cents < 0 {
		return "-" + FormatCents(-cents)
	}
	return FormatCost(float64(cents) / 100)
}

// FormatUnitCost formats a fractional per-request cost in cents, e.g.
// 4 cents -> "$0.04", 3.5 cents -> "$0.035". Trailing zeros are trimmed
// so uniform costs stay compact.
func FormatUnitCost(cents float64) string {
	s := strconv.FormatFloat(cents/100, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" {
		s = "0"
	}
	return "$" + s
}

// FormatDuration formats a duration into a compact human-readable form.
// e.g., 62m5s -> "1h 2m", 2m5s -> "2m 5s", 45s -> "45s"
func FormatDuration(d time.Duration) string {
	secs := int64(d.Seconds())
	if secs <= 0 {
		return "0s"
	}

	hours := secs / 3600
	mins := (secs % 3600) / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	if mins > 0 {
		return fmt.Sprintf("%dm %ds", mins, secs%60)
	}
	return fmt.Sprintf("%ds", secs)
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPeriod renders a billing period as "August 2026".
func FormatPeriod(p model.BillingPeriod) string {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Sprintf("%d/%d", p.Month, p.Year)
	}
	return fmt.Sprintf("%s %d", time.Month(p.Month).String(), p.Year)
}

// ItemRow is one invoice line prepared for display: counts, costs, and
// model names formatted and padded to a shared width.
type ItemRow struct {
	Model    string
	Requests string
	UnitCost string
	Total    string
}

// ItemRows formats invoice items for tabular display. Count and cost
// strings within the batch are padded to equal width so columns line up;
// parsing itself never pads.
func ItemRows(items []model.UsageLineItem) []ItemRow {
	rows := make([]ItemRow, len(items))
	countW, unitW := 0, 0

	for i, it := range items {
		name := it.ModelName
		if it.IsDiscounted {
			name += " (discounted)"
		}
		if it.IsTokenBased {
			name += " (token-based)"
		}
		rows[i] = ItemRow{
			Model:    name,
			Requests: FormatNumber(int64(it.RequestCount)),
			UnitCost: FormatUnitCost(it.UnitCostCents),
			Total:    FormatCents(it.TotalCostCents),
		}
		if len(rows[i].Requests) > countW {
			countW = len(rows[i].Requests)
		}
		if len(rows[i].UnitCost) > unitW {
			unitW = len(rows[i].UnitCost)
		}
	}

	for i := range rows {
		rows[i].Requests = fmt.Sprintf("%*s", countW, rows[i].Requests)
		rows[i].UnitCost = fmt.Sprintf("%*s", unitW, rows[i].UnitCost)
	}
	return rows
}
