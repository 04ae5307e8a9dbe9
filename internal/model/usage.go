// Package model defines the value types shared across curstat.
package model

import "time"

// UnknownModel is the sentinel model name for lines whose model could not
// be resolved from the invoice description.
const UnknownModel = "unknown-model"

// ToolCallsModel is the synthetic model name for tool-call billing lines.
const ToolCallsModel = "tool-calls"

// UsageLineItem is one parsed, billable invoice line.
type UsageLineItem struct {
	ModelName      string
	RequestCount   int
	UnitCostCents  float64 // TotalCostCents / RequestCount
	TotalCostCents int
	IsDiscounted   bool
	IsTokenBased   bool
}

// MonthlyUsage aggregates one calendar month of invoice data.
// Items preserve provider response order; mid-month payment credits are
// folded into MidMonthPaymentCents and never appear in Items.
type MonthlyUsage struct {
	Month int // 1..12
	Year  int

	Items                    []UsageLineItem
	MidMonthPaymentCents     int
	HasUnpaidMidMonthInvoice bool
}

// ActualTotalCents sums the positive item costs. Credits and mid-month
// payment lines never contribute here.
func (m MonthlyUsage) ActualTotalCents() int {
	total := 0
	for _, it := range m.Items {
		if it.TotalCostCents > 0 {
			total += it.TotalCostCents
		}
	}
	return total
}

// PremiumUsage is the current/limit pair for the premium request quota.
// A Limit of 0 means unknown or unbounded; never divide by it unguarded.
type PremiumUsage struct {
	Current     int
	Limit       int
	PeriodStart time.Time
}

// UsageBasedStatus reports whether usage-based pricing is enabled and the
// configured monthly spending limit in dollars, when present.
type UsageBasedStatus struct {
	Enabled      bool
	LimitDollars *float64
}

// BillingPeriod identifies one usage-based billing period.
type BillingPeriod struct {
	Month int
	Year  int
}

// StatsBundle is the fully computed, immutable result of one polling cycle,
// handed to display sinks as-is.
type StatsBundle struct {
	FetchedAt time.Time

	Premium          PremiumUsage
	PremiumPercent   int    // unclamped, can exceed 100
	PremiumRemaining string // clamped remaining percent, smart-formatted

	UsageBased      UsageBasedStatus
	UsageBasedPct   float64 // unclamped, fractional
	ActivePeriod    BillingPeriod
	ActiveFallback  bool // true when the previous period was shown instead
	Current         MonthlyUsage
	Previous        MonthlyUsage
	ActualDollars   float64 // active period spend, dollars
	MidMonthDollars float64 // active period mid-month payments, dollars

	// Degraded display state. When Err is non-empty the numeric fields hold
	// the last good data or zero values.
	Err        string
	InCooldown bool
	RetryIn    time.Duration
}

// Active returns the usage for the active billing period.
func (b StatsBundle) Active() MonthlyUsage {
	if b.ActiveFallback {
		return b.Previous
	}
	return b.Current
}
