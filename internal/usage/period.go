package usage

import (
	"time"

	"github.com/theirongolddev/curstat/internal/model"
)

// DefaultCycleDay is the day of month on which a usage-based billing
// period starts.
const DefaultCycleDay = 3

// CurrentPeriod returns the usage-based billing period that contains now.
// The period is this calendar month once the cycle day has been reached,
// otherwise it is still last month's period.
func CurrentPeriod(now time.Time, cycleDay int) model.BillingPeriod {
	if cycleDay < 1 || cycleDay > 28 {
		cycleDay = DefaultCycleDay
	}

	p := model.BillingPeriod{Month: int(now.Month()), Year: now.Year()}
	if now.Day() < cycleDay {
		p = PreviousPeriod(p)
	}
	return p
}

// PreviousPeriod returns the period immediately before p.
func PreviousPeriod(p model.BillingPeriod) model.BillingPeriod {
	if p.Month == 1 {
		return model.BillingPeriod{Month: 12, Year: p.Year - 1}
	}
	return model.BillingPeriod{Month: p.Month - 1, Year: p.Year}
}
