package usage

import (
	"math"
	"strconv"
	"strings"

	"github.com/theirongolddev/curstat/internal/model"
)

// formatTolerance is the floating tolerance at which a decimal rendering
// is considered to reproduce the source value exactly.
const formatTolerance = 1e-10

// PremiumUtilization returns the premium quota utilization as a rounded
// whole percent. A limit of zero or less means unknown and yields 0.
// The result is deliberately unclamped: utilization can exceed 100.
func PremiumUtilization(current, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(current) / float64(limit)))
}

// RemainingPercent returns the remaining share of the premium quota as a
// string, clamped to [0, 100] and rendered with the fewest decimals that
// reproduce the value within tolerance, up to maxDecimals.
func RemainingPercent(current, limit, maxDecimals int) string {
	if limit <= 0 {
		return "0"
	}

	v := 100 - 100*float64(current)/float64(limit)
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return formatSmart(v, maxDecimals)
}

// UsageBasedUtilization returns the usage-based spend utilization as an
// unclamped fractional percent. Disabled billing or an absent limit yields
// 0; callers decide display rounding.
func UsageBasedUtilization(actualTotalCents int, status model.UsageBasedStatus) float64 {
	if !status.Enabled || status.LimitDollars == nil || *status.LimitDollars <= 0 {
		return 0
	}
	return 100 * (float64(actualTotalCents) / 100) / *status.LimitDollars
}

// formatSmart renders v with the shortest decimal representation that is
// exact within tolerance: integers get no decimal point, otherwise
// precision grows from 1 up to maxDecimals until rounding reproduces v,
// falling back to maxDecimals with trailing zeros stripped.
func formatSmart(v float64, maxDecimals int) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}

	for prec := 1; prec <= maxDecimals; prec++ {
		s := strconv.FormatFloat(v, 'f', prec, 64)
		parsed, err := strconv.ParseFloat(s, 64)
		if err == nil && math.Abs(parsed-v) < formatTolerance {
			return stripZeros(s)
		}
	}

	return stripZeros(strconv.FormatFloat(v, 'f', maxDecimals, 64))
}

func stripZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
