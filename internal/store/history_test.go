package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/curstat/internal/model"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("opening history: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func sampleBundle(at time.Time, current int) model.StatsBundle {
	return model.StatsBundle{
		FetchedAt:        at,
		Premium:          model.PremiumUsage{Current: current, Limit: 500},
		PremiumPercent:   current * 100 / 500,
		PremiumRemaining: "50",
		UsageBasedPct:    12.5,
		ActivePeriod:     model.BillingPeriod{Month: 8, Year: 2026},
		Current: model.MonthlyUsage{
			Month: 8, Year: 2026,
			Items:                []model.UsageLineItem{{ModelName: "gpt-4o", RequestCount: 5, TotalCostCents: 250}},
			MidMonthPaymentCents: 1000,
		},
	}
}

func TestHistory_SaveAndRecent(t *testing.T) {
	h := openTestHistory(t)
	at := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	if err := h.Save(sampleBundle(at, 100)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := h.Save(sampleBundle(at.Add(time.Minute), 120)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	snaps, err := h.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("len(Recent) = %d, want 2", len(snaps))
	}

	// Newest first.
	if snaps[0].PremiumCurrent != 120 || snaps[1].PremiumCurrent != 100 {
		t.Errorf("order = [%d, %d], want [120, 100]", snaps[0].PremiumCurrent, snaps[1].PremiumCurrent)
	}
	if snaps[1].ActualTotalCents != 250 {
		t.Errorf("ActualTotalCents = %d, want 250", snaps[1].ActualTotalCents)
	}
	if snaps[1].MidMonthCents != 1000 {
		t.Errorf("MidMonthCents = %d, want 1000", snaps[1].MidMonthCents)
	}
	if !snaps[1].FetchedAt.Equal(at) {
		t.Errorf("FetchedAt = %v, want %v", snaps[1].FetchedAt, at)
	}
}

func TestHistory_Prune(t *testing.T) {
	h := openTestHistory(t)
	at := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 5; i++ {
		if err := h.Save(sampleBundle(at.Add(time.Duration(i)*time.Minute), i)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	if err := h.Prune(2); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	count, err := h.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("Count = %d, want 2", count)
	}

	snaps, _ := h.Recent(10)
	if len(snaps) != 2 || snaps[0].PremiumCurrent != 4 {
		t.Errorf("kept snapshots = %+v, want the 2 newest", snaps)
	}
}
