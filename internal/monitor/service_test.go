package monitor

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/theirongolddev/curstat/internal/cursorapi"
	"github.com/theirongolddev/curstat/internal/model"
)

func newTestService(api *fakeAPI) *Service {
	orch := newTestOrchestrator(api, &fakeTokens{}, nil)
	return NewService(Config{
		Interval:         time.Minute,
		FailureThreshold: 3,
		Cooldown:         10 * time.Minute,
	}, orch, nil, zerolog.Nop())
}

func TestPollOnce_RecordsBundle(t *testing.T) {
	svc := newTestService(workingAPI())
	svc.pollOnce(context.Background())

	b, ok := svc.LastBundle()
	if !ok {
		t.Fatal("LastBundle reported no data after a successful poll")
	}
	if b.PremiumPercent != 50 {
		t.Errorf("PremiumPercent = %d, want 50", b.PremiumPercent)
	}

	st := svc.snapshotStatus()
	if st.PollCount != 1 {
		t.Errorf("PollCount = %d, want 1", st.PollCount)
	}
	if st.LastError != "" {
		t.Errorf("LastError = %q, want empty", st.LastError)
	}
	if st.EventCount != 1 {
		t.Errorf("EventCount = %d, want 1 snapshot event", st.EventCount)
	}
	if st.Summary.SpendUSD != 5 {
		t.Errorf("Summary.SpendUSD = %v, want 5", st.Summary.SpendUSD)
	}
}

func TestPollOnce_FailureEntersCooldownAfterThreshold(t *testing.T) {
	api := workingAPI()
	api.err = cursorapi.ErrRateLimited
	svc := newTestService(api)

	for i := 0; i < 3; i++ {
		svc.pollOnce(context.Background())
	}

	st := svc.snapshotStatus()
	if st.ConsecutiveFailures != 3 {
		t.Errorf("ConsecutiveFailures = %d, want 3", st.ConsecutiveFailures)
	}
	if !st.InCooldown {
		t.Error("InCooldown = false, want true after three consecutive failures")
	}
	if st.LastError == "" {
		t.Error("LastError is empty, want rate-limit message")
	}

	// In cooldown TryBegin refuses, so the fourth call is a no-op.
	svc.pollOnce(context.Background())
	if got := svc.snapshotStatus().PollCount; got != 3 {
		t.Errorf("PollCount = %d, want 3 while cooling down", got)
	}
}

func TestPollOnce_SuccessEmitsDeltaEvent(t *testing.T) {
	api := workingAPI()
	svc := newTestService(api)

	svc.pollOnce(context.Background())
	api.premium.Current = 260
	svc.pollOnce(context.Background())

	svc.mu.RLock()
	events := append([]Event(nil), svc.events...)
	svc.mu.RUnlock()

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != "snapshot" {
		t.Errorf("events[0].Type = %q, want snapshot", events[0].Type)
	}
	if events[1].Type != "usage_delta" {
		t.Errorf("events[1].Type = %q, want usage_delta", events[1].Type)
	}
	if events[1].Delta.PremiumCurrent != 10 {
		t.Errorf("Delta.PremiumCurrent = %d, want 10", events[1].Delta.PremiumCurrent)
	}
}

func TestPollOnce_UnchangedSnapshotEmitsNoEvent(t *testing.T) {
	svc := newTestService(workingAPI())

	svc.pollOnce(context.Background())
	svc.pollOnce(context.Background())

	if got := svc.snapshotStatus().EventCount; got != 1 {
		t.Errorf("EventCount = %d, want 1 for identical consecutive polls", got)
	}
}

func TestHandleStatus_ServesJSON(t *testing.T) {
	svc := newTestService(workingAPI())
	svc.pollOnce(context.Background())

	rec := httptest.NewRecorder()
	svc.handleStatus(rec, httptest.NewRequest("GET", "/v1/status", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var st Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if st.Summary.PremiumPercent != 50 {
		t.Errorf("Summary.PremiumPercent = %d, want 50", st.Summary.PremiumPercent)
	}
	if st.PollIntervalSec != 60 {
		t.Errorf("PollIntervalSec = %d, want 60", st.PollIntervalSec)
	}
}

func TestSnapshotFromBundle(t *testing.T) {
	b := model.StatsBundle{
		FetchedAt:        fixedNow,
		Premium:          model.PremiumUsage{Current: 250, Limit: 500},
		PremiumPercent:   50,
		PremiumRemaining: "50",
		UsageBasedPct:    25,
		ActivePeriod:     model.BillingPeriod{Month: 8, Year: 2026},
		ActiveFallback:   true,
		Previous: model.MonthlyUsage{
			Month: 7, Year: 2026,
			Items:                    []model.UsageLineItem{{ModelName: "gpt-4o"}},
			HasUnpaidMidMonthInvoice: true,
		},
		ActualDollars: 5,
	}

	snap := snapshotFromBundle(b)
	if snap.Items != 1 {
		t.Errorf("Items = %d, want 1 from the fallback period", snap.Items)
	}
	if !snap.PeriodFallback {
		t.Error("PeriodFallback = false, want true")
	}
	if !snap.UnpaidInvoice {
		t.Error("UnpaidInvoice = false, want true")
	}
	if snap.ActiveMonth != 8 || snap.ActiveYear != 2026 {
		t.Errorf("active period = %d/%d, want 8/2026", snap.ActiveMonth, snap.ActiveYear)
	}
}
