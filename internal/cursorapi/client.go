// Package cursorapi provides a client for the Cursor dashboard billing API.
package cursorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/theirongolddev/curstat/internal/model"
	"github.com/theirongolddev/curstat/internal/usage"
)

const (
	// DefaultBaseURL is the production dashboard API root.
	DefaultBaseURL = "https://cursor.com/api"

	requestTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB

	premiumQuotaKey  = "gpt-4"
	sessionCookieKey = "WorkosCursorSessionToken"
)

var (
	// ErrUnauthorized indicates the session token is expired or invalid.
	ErrUnauthorized = errors.New("cursorapi: unauthorized (session token expired or invalid)")
	// ErrRateLimited indicates the API rate limit was hit.
	ErrRateLimited = errors.New("cursorapi: rate limited")
	// ErrBadResponse indicates the response body was missing expected fields.
	ErrBadResponse = errors.New("cursorapi: malformed response")
)

// Client fetches billing and quota data from the dashboard API. Outbound
// requests are paced by a shared limiter so an aggressive poll interval
// cannot hammer the API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client for the given API root. An empty baseURL uses
// the production endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
}

// FetchMonthlyInvoice returns the raw invoice lines for one billing period.
func (c *Client) FetchMonthlyInvoice(ctx context.Context, tok SessionToken, period model.BillingPeriod) (usage.RawInvoice, error) {
	body, err := c.post(ctx, tok, "/dashboard/get-monthly-invoice", invoiceRequest{
		Month: period.Month,
		Year:  period.Year,
	})
	if err != nil {
		return usage.RawInvoice{}, err
	}

	var raw invoiceResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return usage.RawInvoice{}, fmt.Errorf("%w: monthly invoice: %v", ErrBadResponse, err)
	}

	inv := usage.RawInvoice{HasUnpaidMidMonthInvoice: raw.HasUnpaidMidMonthInvoice}
	for _, it := range raw.Items {
		inv.Items = append(inv.Items, usage.RawItem{Description: it.Description, Cents: it.Cents})
	}
	return inv, nil
}

// FetchPremiumUsage returns the premium request quota snapshot.
func (c *Client) FetchPremiumUsage(ctx context.Context, tok SessionToken) (model.PremiumUsage, error) {
	body, err := c.get(ctx, tok, "/usage?user="+tok.UserID)
	if err != nil {
		return model.PremiumUsage{}, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return model.PremiumUsage{}, fmt.Errorf("%w: usage: %v", ErrBadResponse, err)
	}

	quotaRaw, ok := fields[premiumQuotaKey]
	if !ok {
		return model.PremiumUsage{}, fmt.Errorf("%w: usage missing %q quota", ErrBadResponse, premiumQuotaKey)
	}
	var quota premiumQuota
	if err := json.Unmarshal(quotaRaw, &quota); err != nil {
		return model.PremiumUsage{}, fmt.Errorf("%w: premium quota: %v", ErrBadResponse, err)
	}

	out := model.PremiumUsage{Current: quota.NumRequests}
	if quota.MaxRequestUsage != nil {
		out.Limit = *quota.MaxRequestUsage
	}
	if startRaw, ok := fields["startOfMonth"]; ok {
		var start string
		if err := json.Unmarshal(startRaw, &start); err == nil {
			if ts, err := time.Parse(time.RFC3339, start); err == nil {
				out.PeriodStart = ts
			}
		}
	}
	return out, nil
}

// FetchUsageBasedStatus returns whether usage-based pricing is enabled and
// its spending limit.
func (c *Client) FetchUsageBasedStatus(ctx context.Context, tok SessionToken) (model.UsageBasedStatus, error) {
	body, err := c.post(ctx, tok, "/dashboard/get-hard-limit", struct{}{})
	if err != nil {
		return model.UsageBasedStatus{}, err
	}

	var raw hardLimitResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.UsageBasedStatus{}, fmt.Errorf("%w: hard limit: %v", ErrBadResponse, err)
	}

	return model.UsageBasedStatus{
		Enabled:      !raw.NoUsageBasedAllowed,
		LimitDollars: raw.HardLimit,
	}, nil
}

func (c *Client) get(ctx context.Context, tok SessionToken, path string) ([]byte, error) {
	return c.do(ctx, tok, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, tok SessionToken, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("cursorapi: encoding request: %w", err)
	}
	return c.do(ctx, tok, http.MethodPost, path, body)
}

// do performs an authenticated request and returns the response body.
func (c *Client) do(ctx context.Context, tok SessionToken, method, path string, body []byte) ([]byte, error) {
	if !tok.Valid() {
		return nil, ErrUnauthorized
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("cursorapi: waiting for rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("cursorapi: creating request: %w", err)
	}

	req.Header.Set("Cookie", sessionCookieKey+"="+tok.cookieValue())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "github.com/theirongolddev/curstat/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cursorapi: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cursorapi: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("cursorapi: reading response: %w", err)
	}
	return data, nil
}
