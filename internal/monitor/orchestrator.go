// Package monitor ties fetching, parsing, aggregation, and percentage
// computation into polling cycles, and hosts the long-running daemon
// runtime around them.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/theirongolddev/curstat/internal/cursorapi"
	"github.com/theirongolddev/curstat/internal/model"
	"github.com/theirongolddev/curstat/internal/notify"
	"github.com/theirongolddev/curstat/internal/usage"
)

// TokenSource supplies the session credential. Refresh is called at most
// once per cycle, after an auth failure.
type TokenSource interface {
	Token(ctx context.Context) (cursorapi.SessionToken, error)
	Refresh(ctx context.Context) (cursorapi.SessionToken, error)
}

// Fetcher is the dashboard API surface the orchestrator consumes.
type Fetcher interface {
	FetchMonthlyInvoice(ctx context.Context, tok cursorapi.SessionToken, period model.BillingPeriod) (usage.RawInvoice, error)
	FetchPremiumUsage(ctx context.Context, tok cursorapi.SessionToken) (model.PremiumUsage, error)
	FetchUsageBasedStatus(ctx context.Context, tok cursorapi.SessionToken) (model.UsageBasedStatus, error)
}

// maxRemainingDecimals bounds the precision of the remaining-percent string.
const maxRemainingDecimals = 3

// Orchestrator runs one polling cycle at a time: credential, fetches,
// aggregation, percentages. It never decides when to poll; that belongs to
// the cooldown controller.
type Orchestrator struct {
	tokens   TokenSource
	api      Fetcher
	unknown  *notify.UnknownModels
	cycleDay int
	now      func() time.Time
	log      zerolog.Logger
}

// NewOrchestrator wires an orchestrator. unknown may be nil; now defaults
// to time.Now.
func NewOrchestrator(tokens TokenSource, api Fetcher, unknown *notify.UnknownModels, cycleDay int, now func() time.Time, log zerolog.Logger) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		tokens:   tokens,
		api:      api,
		unknown:  unknown,
		cycleDay: cycleDay,
		now:      now,
		log:      log,
	}
}

// RunCycle performs one full cycle and returns the computed bundle. An
// auth failure triggers exactly one credential refresh and one retry;
// every other error, or a second failure, surfaces as a cycle failure.
func (o *Orchestrator) RunCycle(ctx context.Context) (model.StatsBundle, error) {
	tok, err := o.tokens.Token(ctx)
	if err != nil {
		return model.StatsBundle{}, err
	}

	bundle, err := o.fetchAndCompute(ctx, tok)
	if errors.Is(err, cursorapi.ErrUnauthorized) {
		o.log.Warn().Msg("session token rejected, refreshing credential")
		tok, err = o.tokens.Refresh(ctx)
		if err != nil {
			return model.StatsBundle{}, err
		}
		bundle, err = o.fetchAndCompute(ctx, tok)
	}
	if err != nil {
		return model.StatsBundle{}, err
	}

	if o.unknown != nil {
		o.unknown.Flush()
	}
	return bundle, nil
}

// fetchAndCompute issues all fetches for one cycle concurrently, waits for
// every one of them, and assembles the bundle.
func (o *Orchestrator) fetchAndCompute(ctx context.Context, tok cursorapi.SessionToken) (model.StatsBundle, error) {
	now := o.now()
	curPeriod := usage.CurrentPeriod(now, o.cycleDay)
	prevPeriod := usage.PreviousPeriod(curPeriod)

	var (
		wg sync.WaitGroup

		curInv, prevInv   usage.RawInvoice
		premium           model.PremiumUsage
		usageBased        model.UsageBasedStatus
		curErr, prevErr   error
		premErr, limitErr error
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		curInv, curErr = o.api.FetchMonthlyInvoice(ctx, tok, curPeriod)
	}()
	go func() {
		defer wg.Done()
		prevInv, prevErr = o.api.FetchMonthlyInvoice(ctx, tok, prevPeriod)
	}()
	go func() {
		defer wg.Done()
		premium, premErr = o.api.FetchPremiumUsage(ctx, tok)
	}()
	go func() {
		defer wg.Done()
		usageBased, limitErr = o.api.FetchUsageBasedStatus(ctx, tok)
	}()
	wg.Wait()

	if err := firstError(curErr, prevErr, premErr, limitErr); err != nil {
		return model.StatsBundle{}, err
	}

	observe := func(string) {}
	if o.unknown != nil {
		observe = o.unknown.Observe
	}

	current := usage.Aggregate(curPeriod, curInv, observe)
	previous := usage.Aggregate(prevPeriod, prevInv, observe)

	active := current
	activePeriod := curPeriod
	fallback := false
	if len(current.Items) == 0 && len(previous.Items) > 0 {
		active = previous
		activePeriod = prevPeriod
		fallback = true
		o.log.Debug().
			Int("month", prevPeriod.Month).
			Int("year", prevPeriod.Year).
			Msg("current period empty, showing previous period")
	}

	return model.StatsBundle{
		FetchedAt:        now,
		Premium:          premium,
		PremiumPercent:   usage.PremiumUtilization(premium.Current, premium.Limit),
		PremiumRemaining: usage.RemainingPercent(premium.Current, premium.Limit, maxRemainingDecimals),
		UsageBased:       usageBased,
		UsageBasedPct:    usage.UsageBasedUtilization(active.ActualTotalCents(), usageBased),
		ActivePeriod:     activePeriod,
		ActiveFallback:   fallback,
		Current:          current,
		Previous:         previous,
		ActualDollars:    float64(active.ActualTotalCents()) / 100,
		MidMonthDollars:  float64(active.MidMonthPaymentCents) / 100,
	}, nil
}

// firstError returns the auth error if any fetch saw one (so the retry
// path triggers), otherwise the first non-nil error.
func firstError(errs ...error) error {
	for _, err := range errs {
		if errors.Is(err, cursorapi.ErrUnauthorized) {
			return err
		}
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
