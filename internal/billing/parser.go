// Package billing parses raw invoice line items into typed usage records.
package billing

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/theirongolddev/curstat/internal/model"
)

// midMonthMarker identifies credit lines for mid-month usage payments.
const midMonthMarker = "mid-month usage paid"

// ResultKind classifies what a raw invoice line turned out to be.
type ResultKind int

const (
	// Skip means the line is not billable and produces nothing.
	Skip ResultKind = iota
	// Credit means the line is a mid-month payment credit.
	Credit
	// Item means the line parsed into a usage line item.
	Item
)

// LineResult is the outcome of parsing one raw invoice line.
type LineResult struct {
	Kind        ResultKind
	CreditCents int // set for Credit: absolute credit amount
	Item        model.UsageLineItem

	// UnknownFragment carries the cleaned description fragment when the
	// model could not be resolved. Consumers feed it to the unknown-model
	// notification sink; it never aborts parsing.
	UnknownFragment string
}

// Line shapes, tried in order.
var (
	// "499 token-based usage calls to claude-3-7-sonnet-thinking, totalling: $49.90"
	reTokenBased = regexp.MustCompile(`^(\d+) token-based usage calls to (.+?), totalling: \$`)

	// Generic leading-integer form: "N <free text>".
	reLeadingCount = regexp.MustCompile(`^(\d+)\s+(.+)$`)

	// "2 extra fast premium requests (gpt-4-32k)"
	reExtraFastQualifier = regexp.MustCompile(`extra fast premium requests? \(([^)]+)\)`)
)

// modelRule pairs a description pattern with an extractor for the core
// model name. Rules are evaluated in priority order; first match wins.
type modelRule struct {
	pattern *regexp.Regexp
	extract func(match []string) string
}

func coreGroup(match []string) string { return strings.ToLower(match[1]) }

// modelRules is the curated table of known model-name shapes. Each pattern
// tolerates an optional "discounted " prefix and common tier suffixes.
var modelRules = []modelRule{
	{regexp.MustCompile(`(?i)(?:discounted )?(claude-\d+(?:[.-]\d+)?-(?:sonnet|opus|haiku)(?:-thinking)?(?:-max)?)`), coreGroup},
	{regexp.MustCompile(`(?i)(?:discounted )?(gpt-\d+(?:\.\d+)?(?:o)?(?:-(?:mini|turbo|preview|32k))?(?:-max)?)`), coreGroup},
	{regexp.MustCompile(`(?i)(?:discounted )?\b(o\d(?:-(?:mini|pro|preview))?)\b`), coreGroup},
	{regexp.MustCompile(`(?i)(?:discounted )?(gemini-\d+(?:\.\d+)?-(?:pro|flash)(?:-(?:thinking|preview|exp))?(?:-max)?)`), coreGroup},
	{regexp.MustCompile(`(?i)(?:discounted )?(deepseek-(?:v\d+(?:\.\d+)?|r\d+))`), coreGroup},
	{regexp.MustCompile(`(?i)(?:discounted )?(grok-\d+(?:-mini)?(?:-fast)?(?:-max)?)`), coreGroup},
	{regexp.MustCompile(`(?i)(cursor-(?:small|fast))`), coreGroup},
}

// Filler words stripped when building the unknown-model fragment.
var fragmentFiller = map[string]bool{
	"request": true, "requests": true, "call": true, "calls": true,
	"fast": true, "premium": true, "discounted": true, "usage": true,
	"beyond": true, "limit": true, "extra": true, "to": true, "per": true,
	"the": true, "month": true,
}

// Parse converts one raw invoice line into a LineResult.
//
// Rules, in order: lines without a cents value are skipped; mid-month
// payment lines become credits; the token-based and generic leading-count
// shapes are tried next; a resolved request count of zero is skipped so
// nothing downstream divides by it. A zero cents value is still billable —
// only absence skips.
func Parse(description string, cents *int) LineResult {
	if cents == nil {
		return LineResult{Kind: Skip}
	}

	if strings.Contains(strings.ToLower(description), midMonthMarker) {
		amount := *cents
		if amount < 0 {
			amount = -amount
		}
		return LineResult{Kind: Credit, CreditCents: amount}
	}

	if m := reTokenBased.FindStringSubmatch(description); m != nil {
		count, err := strconv.Atoi(m[1])
		if err != nil || count == 0 {
			return LineResult{Kind: Skip}
		}
		return LineResult{Kind: Item, Item: newItem(m[2], count, *cents, description, true)}
	}

	m := reLeadingCount.FindStringSubmatch(description)
	if m == nil {
		return LineResult{Kind: Skip}
	}
	rest := m[2]
	lower := strings.ToLower(rest)
	if !strings.Contains(lower, "request") && !strings.Contains(lower, "call") {
		return LineResult{Kind: Skip}
	}

	count, err := strconv.Atoi(m[1])
	if err != nil || count == 0 {
		return LineResult{Kind: Skip}
	}

	name, fragment := resolveModelName(rest)
	return LineResult{
		Kind:            Item,
		Item:            newItem(name, count, *cents, description, false),
		UnknownFragment: fragment,
	}
}

func newItem(name string, count, cents int, description string, tokenBased bool) model.UsageLineItem {
	return model.UsageLineItem{
		ModelName:      name,
		RequestCount:   count,
		UnitCostCents:  float64(cents) / float64(count),
		TotalCostCents: cents,
		IsDiscounted:   strings.Contains(strings.ToLower(description), "discounted"),
		IsTokenBased:   tokenBased,
	}
}

// resolveModelName derives the model name from the free text after the
// request count. The second return value is a non-empty cleaned fragment
// when the name could not be resolved.
func resolveModelName(text string) (name, fragment string) {
	lower := strings.ToLower(text)

	if strings.Contains(lower, "tool call") {
		return model.ToolCallsModel, ""
	}

	for _, rule := range modelRules {
		if m := rule.pattern.FindStringSubmatch(text); m != nil {
			return rule.extract(m), ""
		}
	}

	if m := reExtraFastQualifier.FindStringSubmatch(lower); m != nil {
		return strings.TrimSpace(m[1]), ""
	}

	return model.UnknownModel, cleanFragment(text)
}

// cleanFragment strips counts and billing filler so the notification only
// carries the part that looks like a model name.
func cleanFragment(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,:;()*")
		if f == "" || fragmentFiller[f] || isNumeric(f) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// CostsConsistent reports whether unit cost times request count reproduces
// the line total within relative floating tolerance.
func CostsConsistent(it model.UsageLineItem) bool {
	product := it.UnitCostCents * float64(it.RequestCount)
	diff := math.Abs(product - float64(it.TotalCostCents))
	if it.TotalCostCents == 0 {
		return diff < 1e-9
	}
	return diff/math.Abs(float64(it.TotalCostCents)) < 1e-9
}
