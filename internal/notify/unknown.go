// Package notify accumulates unresolved model-name fragments and reports
// them once, batched, instead of spamming per line.
package notify

import (
	"sort"
	"strings"
	"sync"
)

// UnknownModels collects fragments the billing parser could not resolve.
// Fragments are deduplicated by fuzzy containment: two fragments are
// duplicates if either contains the other, case-insensitively. Flush fires
// the sink at most once per process lifetime.
type UnknownModels struct {
	sink func(fragments []string)

	mu      sync.Mutex
	seen    []string
	flushed bool
}

// NewUnknownModels returns an accumulator feeding the given sink. A nil
// sink makes Flush a no-op.
func NewUnknownModels(sink func(fragments []string)) *UnknownModels {
	return &UnknownModels{sink: sink}
}

// Observe records a fragment unless a duplicate was already seen.
func (u *UnknownModels) Observe(fragment string) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	lower := strings.ToLower(fragment)
	for _, s := range u.seen {
		existing := strings.ToLower(s)
		if strings.Contains(existing, lower) || strings.Contains(lower, existing) {
			return
		}
	}
	u.seen = append(u.seen, fragment)
}

// Fragments returns the deduplicated fragments seen so far, sorted.
func (u *UnknownModels) Fragments() []string {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := make([]string, len(u.seen))
	copy(out, u.seen)
	sort.Strings(out)
	return out
}

// Flush fires the sink with everything collected. Only the first call with
// a non-empty batch does anything; later observations stay queryable via
// Fragments but are never re-notified.
func (u *UnknownModels) Flush() {
	u.mu.Lock()
	if u.flushed || len(u.seen) == 0 || u.sink == nil {
		u.mu.Unlock()
		return
	}
	u.flushed = true
	batch := make([]string, len(u.seen))
	copy(batch, u.seen)
	u.mu.Unlock()

	sort.Strings(batch)
	u.sink(batch)
}
