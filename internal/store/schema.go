package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    fetched_at          TEXT NOT NULL,
    premium_current     INTEGER NOT NULL,
    premium_limit       INTEGER NOT NULL,
    premium_percent     INTEGER NOT NULL,
    premium_remaining   TEXT NOT NULL,
    usage_based_pct     REAL NOT NULL,
    actual_total_cents  INTEGER NOT NULL,
    mid_month_cents     INTEGER NOT NULL,
    active_month        INTEGER NOT NULL,
    active_year         INTEGER NOT NULL,
    item_count          INTEGER NOT NULL,
    unpaid_invoice      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_snapshots_fetched ON snapshots(fetched_at);
`
