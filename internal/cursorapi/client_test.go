package cursorapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/curstat/internal/model"
)

var testToken = SessionToken{UserID: "user_01", Secret: "jwt-secret"}

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL), srv
}

func TestFetchMonthlyInvoice(t *testing.T) {
	var gotCookie, gotPath string
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{
			"items": [
				{"description": "5 gpt-4o requests", "cents": 250},
				{"description": "pending line"}
			],
			"hasUnpaidMidMonthInvoice": true
		}`))
	})
	defer srv.Close()

	inv, err := c.FetchMonthlyInvoice(context.Background(), testToken, model.BillingPeriod{Month: 8, Year: 2026})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/dashboard/get-monthly-invoice" {
		t.Errorf("path = %q, want /dashboard/get-monthly-invoice", gotPath)
	}
	if !strings.Contains(gotCookie, "WorkosCursorSessionToken=user_01%3A%3Ajwt-secret") {
		t.Errorf("cookie = %q, want session token cookie", gotCookie)
	}

	if len(inv.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(inv.Items))
	}
	if inv.Items[0].Cents == nil || *inv.Items[0].Cents != 250 {
		t.Errorf("Items[0].Cents = %v, want 250", inv.Items[0].Cents)
	}
	if inv.Items[1].Cents != nil {
		t.Errorf("Items[1].Cents = %v, want nil (absent)", *inv.Items[1].Cents)
	}
	if !inv.HasUnpaidMidMonthInvoice {
		t.Error("HasUnpaidMidMonthInvoice = false, want true")
	}
}

func TestFetchPremiumUsage(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user") != "user_01" {
			t.Errorf("user query = %q, want user_01", r.URL.Query().Get("user"))
		}
		_, _ = w.Write([]byte(`{
			"gpt-4": {"numRequests": 321, "maxRequestUsage": 500},
			"gpt-3.5-turbo": {"numRequests": 9},
			"startOfMonth": "2026-08-03T00:00:00Z"
		}`))
	})
	defer srv.Close()

	got, err := c.FetchPremiumUsage(context.Background(), testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Current != 321 || got.Limit != 500 {
		t.Errorf("quota = %d/%d, want 321/500", got.Current, got.Limit)
	}
	want := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	if !got.PeriodStart.Equal(want) {
		t.Errorf("PeriodStart = %v, want %v", got.PeriodStart, want)
	}
}

func TestFetchPremiumUsage_UnboundedLimit(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"gpt-4": {"numRequests": 42}}`))
	})
	defer srv.Close()

	got, err := c.FetchPremiumUsage(context.Background(), testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Limit != 0 {
		t.Errorf("Limit = %d, want 0 for absent cap", got.Limit)
	}
}

func TestFetchPremiumUsage_MissingQuotaIsBadResponse(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"startOfMonth": "2026-08-03T00:00:00Z"}`))
	})
	defer srv.Close()

	_, err := c.FetchPremiumUsage(context.Background(), testToken)
	if !errors.Is(err, ErrBadResponse) {
		t.Fatalf("err = %v, want ErrBadResponse", err)
	}
}

func TestFetchUsageBasedStatus(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"hardLimit": 50, "noUsageBasedAllowed": false}`))
	})
	defer srv.Close()

	got, err := c.FetchUsageBasedStatus(context.Background(), testToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Enabled {
		t.Error("Enabled = false, want true")
	}
	if got.LimitDollars == nil || *got.LimitDollars != 50 {
		t.Errorf("LimitDollars = %v, want 50", got.LimitDollars)
	}
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tt := range tests {
		c, srv := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		})

		_, err := c.FetchPremiumUsage(context.Background(), testToken)
		srv.Close()
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.want)
		}
	}
}

func TestInvalidTokenFailsWithoutRequest(t *testing.T) {
	called := false
	c, srv := newTestClient(func(http.ResponseWriter, *http.Request) { called = true })
	defer srv.Close()

	_, err := c.FetchPremiumUsage(context.Background(), SessionToken{})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if called {
		t.Error("request was sent despite invalid token")
	}
}
