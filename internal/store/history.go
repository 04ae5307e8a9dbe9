// Package store persists one snapshot row per successful polling cycle.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/theirongolddev/curstat/internal/model"
)

// History is the SQLite-backed snapshot log.
type History struct {
	db *sql.DB
}

// Snapshot is one persisted cycle result.
type Snapshot struct {
	ID               int64     `json:"id"`
	FetchedAt        time.Time `json:"fetched_at"`
	PremiumCurrent   int       `json:"premium_current"`
	PremiumLimit     int       `json:"premium_limit"`
	PremiumPercent   int       `json:"premium_percent"`
	PremiumRemaining string    `json:"premium_remaining"`
	UsageBasedPct    float64   `json:"usage_based_pct"`
	ActualTotalCents int       `json:"actual_total_cents"`
	MidMonthCents    int       `json:"mid_month_cents"`
	ActiveMonth      int       `json:"active_month"`
	ActiveYear       int       `json:"active_year"`
	ItemCount        int       `json:"item_count"`
	UnpaidInvoice    bool      `json:"unpaid_invoice"`
}

// Open opens or creates the history database at the given path.
func Open(dbPath string) (*History, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &History{db: db}, nil
}

// Close closes the history database.
func (h *History) Close() error {
	return h.db.Close()
}

// Save appends a snapshot row for a successful cycle bundle.
func (h *History) Save(b model.StatsBundle) error {
	active := b.Active()
	unpaid := 0
	if active.HasUnpaidMidMonthInvoice {
		unpaid = 1
	}

	_, err := h.db.Exec(`INSERT INTO snapshots
		(fetched_at, premium_current, premium_limit, premium_percent, premium_remaining,
		 usage_based_pct, actual_total_cents, mid_month_cents,
		 active_month, active_year, item_count, unpaid_invoice)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.FetchedAt.UTC().Format(time.RFC3339),
		b.Premium.Current, b.Premium.Limit, b.PremiumPercent, b.PremiumRemaining,
		b.UsageBasedPct, active.ActualTotalCents(), active.MidMonthPaymentCents,
		b.ActivePeriod.Month, b.ActivePeriod.Year, len(active.Items), unpaid,
	)
	return err
}

// Recent returns up to n snapshots, newest first.
func (h *History) Recent(n int) ([]Snapshot, error) {
	if n <= 0 {
		n = 100
	}

	rows, err := h.db.Query(`SELECT
		id, fetched_at, premium_current, premium_limit, premium_percent, premium_remaining,
		usage_based_pct, actual_total_cents, mid_month_cents,
		active_month, active_year, item_count, unpaid_invoice
		FROM snapshots ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var fetched string
		var unpaid int
		err := rows.Scan(
			&s.ID, &fetched, &s.PremiumCurrent, &s.PremiumLimit, &s.PremiumPercent, &s.PremiumRemaining,
			&s.UsageBasedPct, &s.ActualTotalCents, &s.MidMonthCents,
			&s.ActiveMonth, &s.ActiveYear, &s.ItemCount, &unpaid,
		)
		if err != nil {
			return nil, err
		}
		s.FetchedAt, _ = time.Parse(time.RFC3339, fetched)
		s.UnpaidInvoice = unpaid != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

// Prune deletes everything but the newest keep rows.
func (h *History) Prune(keep int) error {
	if keep <= 0 {
		return nil
	}
	_, err := h.db.Exec(`DELETE FROM snapshots WHERE id NOT IN
		(SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`, keep)
	return err
}

// Count returns the number of stored snapshots.
func (h *History) Count() (int, error) {
	var count int
	err := h.db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&count)
	return count, err
}
