package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/theirongolddev/curstat/internal/cursorapi"
	"github.com/theirongolddev/curstat/internal/model"
	"github.com/theirongolddev/curstat/internal/notify"
	"github.com/theirongolddev/curstat/internal/usage"
)

var fixedNow = time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

type fakeTokens struct {
	mu       sync.Mutex
	tokens   int
	refreshs int
	fail     bool
}

func (f *fakeTokens) Token(context.Context) (cursorapi.SessionToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens++
	if f.fail {
		return cursorapi.SessionToken{}, errors.New("no token")
	}
	return cursorapi.SessionToken{UserID: "user_01", Secret: "old"}, nil
}

func (f *fakeTokens) Refresh(context.Context) (cursorapi.SessionToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshs++
	return cursorapi.SessionToken{UserID: "user_01", Secret: "fresh"}, nil
}

type fakeAPI struct {
	mu sync.Mutex

	invoices map[model.BillingPeriod]usage.RawInvoice
	premium  model.PremiumUsage
	status   model.UsageBasedStatus

	// rejectSecret makes every fetch fail with ErrUnauthorized while the
	// presented token secret matches.
	rejectSecret string
	err          error

	invoiceCalls int
}

func (f *fakeAPI) check(tok cursorapi.SessionToken) error {
	if f.err != nil {
		return f.err
	}
	if f.rejectSecret != "" && tok.Secret == f.rejectSecret {
		return cursorapi.ErrUnauthorized
	}
	return nil
}

func (f *fakeAPI) FetchMonthlyInvoice(_ context.Context, tok cursorapi.SessionToken, period model.BillingPeriod) (usage.RawInvoice, error) {
	f.mu.Lock()
	f.invoiceCalls++
	f.mu.Unlock()
	if err := f.check(tok); err != nil {
		return usage.RawInvoice{}, err
	}
	return f.invoices[period], nil
}

func (f *fakeAPI) FetchPremiumUsage(_ context.Context, tok cursorapi.SessionToken) (model.PremiumUsage, error) {
	if err := f.check(tok); err != nil {
		return model.PremiumUsage{}, err
	}
	return f.premium, nil
}

func (f *fakeAPI) FetchUsageBasedStatus(_ context.Context, tok cursorapi.SessionToken) (model.UsageBasedStatus, error) {
	if err := f.check(tok); err != nil {
		return model.UsageBasedStatus{}, err
	}
	return f.status, nil
}

func intp(n int) *int           { return &n }
func floatp(f float64) *float64 { return &f }

func newTestOrchestrator(api *fakeAPI, tokens *fakeTokens, unknown *notify.UnknownModels) *Orchestrator {
	return NewOrchestrator(tokens, api, unknown, usage.DefaultCycleDay, func() time.Time { return fixedNow }, zerolog.Nop())
}

func workingAPI() *fakeAPI {
	return &fakeAPI{
		invoices: map[model.BillingPeriod]usage.RawInvoice{
			{Month: 8, Year: 2026}: {Items: []usage.RawItem{
				{Description: "10 gpt-4o requests", Cents: intp(500)},
				{Description: "Mid-month usage paid: $1.00", Cents: intp(-100)},
			}},
			{Month: 7, Year: 2026}: {Items: []usage.RawItem{
				{Description: "4 claude-3.5-sonnet requests", Cents: intp(400)},
			}},
		},
		premium: model.PremiumUsage{Current: 250, Limit: 500, PeriodStart: fixedNow},
		status:  model.UsageBasedStatus{Enabled: true, LimitDollars: floatp(20)},
	}
}

func TestRunCycle_Success(t *testing.T) {
	api := workingAPI()
	b, err := newTestOrchestrator(api, &fakeTokens{}, nil).RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.ActivePeriod != (model.BillingPeriod{Month: 8, Year: 2026}) {
		t.Errorf("ActivePeriod = %+v, want 8/2026", b.ActivePeriod)
	}
	if b.ActiveFallback {
		t.Error("ActiveFallback = true, want false when current period has items")
	}
	if b.PremiumPercent != 50 {
		t.Errorf("PremiumPercent = %d, want 50", b.PremiumPercent)
	}
	if b.PremiumRemaining != "50" {
		t.Errorf("PremiumRemaining = %q, want 50", b.PremiumRemaining)
	}
	// $5.00 spend against a $20 limit.
	if b.UsageBasedPct != 25 {
		t.Errorf("UsageBasedPct = %v, want 25", b.UsageBasedPct)
	}
	if b.ActualDollars != 5 {
		t.Errorf("ActualDollars = %v, want 5", b.ActualDollars)
	}
	if b.MidMonthDollars != 1 {
		t.Errorf("MidMonthDollars = %v, want 1", b.MidMonthDollars)
	}
}

func TestRunCycle_FallsBackToPreviousPeriod(t *testing.T) {
	api := workingAPI()
	api.invoices[model.BillingPeriod{Month: 8, Year: 2026}] = usage.RawInvoice{}

	b, err := newTestOrchestrator(api, &fakeTokens{}, nil).RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.ActiveFallback {
		t.Fatal("ActiveFallback = false, want true for empty current period")
	}
	if b.ActivePeriod != (model.BillingPeriod{Month: 7, Year: 2026}) {
		t.Errorf("ActivePeriod = %+v, want 7/2026", b.ActivePeriod)
	}
	if b.ActualDollars != 4 {
		t.Errorf("ActualDollars = %v, want 4 (previous period)", b.ActualDollars)
	}
}

func TestRunCycle_AuthRetryOnce(t *testing.T) {
	api := workingAPI()
	api.rejectSecret = "old"
	tokens := &fakeTokens{}

	b, err := newTestOrchestrator(api, tokens, nil).RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error after refresh: %v", err)
	}
	if tokens.refreshs != 1 {
		t.Errorf("refreshes = %d, want 1", tokens.refreshs)
	}
	if b.PremiumPercent != 50 {
		t.Errorf("PremiumPercent = %d, want 50 after retry", b.PremiumPercent)
	}
}

func TestRunCycle_SecondAuthFailureSurfaces(t *testing.T) {
	api := workingAPI()
	// Every token is rejected, including the refreshed one.
	api.err = cursorapi.ErrUnauthorized
	tokens := &fakeTokens{}

	_, err := newTestOrchestrator(api, tokens, nil).RunCycle(context.Background())
	if !errors.Is(err, cursorapi.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if tokens.refreshs != 1 {
		t.Errorf("refreshes = %d, want exactly 1 (no second retry)", tokens.refreshs)
	}
}

func TestRunCycle_NonAuthErrorNotRetried(t *testing.T) {
	api := workingAPI()
	api.err = errors.New("connection refused")
	tokens := &fakeTokens{}

	_, err := newTestOrchestrator(api, tokens, nil).RunCycle(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if tokens.refreshs != 0 {
		t.Errorf("refreshes = %d, want 0 for non-auth failure", tokens.refreshs)
	}
}

func TestRunCycle_UnknownModelsBatched(t *testing.T) {
	api := workingAPI()
	api.invoices[model.BillingPeriod{Month: 8, Year: 2026}] = usage.RawInvoice{Items: []usage.RawItem{
		{Description: "3 fancy-model-x requests", Cents: intp(300)},
		{Description: "2 fancy-model-x requests beyond limit", Cents: intp(200)},
	}}

	var batches [][]string
	unknown := notify.NewUnknownModels(func(batch []string) {
		batches = append(batches, batch)
	})

	o := newTestOrchestrator(api, &fakeTokens{}, unknown)
	if _, err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(batches) != 1 {
		t.Fatalf("sink fired %d times, want 1", len(batches))
	}
	if len(batches[0]) != 1 || batches[0][0] != "fancy-model-x" {
		t.Errorf("batch = %v, want [fancy-model-x]", batches[0])
	}
}
