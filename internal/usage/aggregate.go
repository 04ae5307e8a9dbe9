// Package usage turns raw invoice data into monthly usage aggregates and
// computes quota/spend percentages.
package usage

import (
	"github.com/theirongolddev/curstat/internal/billing"
	"github.com/theirongolddev/curstat/internal/model"
)

// RawItem is one untyped invoice line as returned by the dashboard API.
// Cents is nil when the provider omitted the amount.
type RawItem struct {
	Description string
	Cents       *int
}

// RawInvoice is the untyped monthly invoice payload.
type RawInvoice struct {
	Items                    []RawItem
	HasUnpaidMidMonthInvoice bool
}

// Aggregate runs every raw line through the billing parser and builds the
// MonthlyUsage for the given period. Item order follows the provider
// response; mid-month credits are summed, never overwritten. Unresolvable
// model fragments are forwarded to unknown, which may be nil. The transform
// is pure: identical input yields identical output.
func Aggregate(period model.BillingPeriod, inv RawInvoice, unknown func(string)) model.MonthlyUsage {
	out := model.MonthlyUsage{
		Month:                    period.Month,
		Year:                     period.Year,
		HasUnpaidMidMonthInvoice: inv.HasUnpaidMidMonthInvoice,
	}

	for _, raw := range inv.Items {
		res := billing.Parse(raw.Description, raw.Cents)
		switch res.Kind {
		case billing.Credit:
			out.MidMonthPaymentCents += res.CreditCents
		case billing.Item:
			out.Items = append(out.Items, res.Item)
			if res.UnknownFragment != "" && unknown != nil {
				unknown(res.UnknownFragment)
			}
		}
	}

	return out
}
