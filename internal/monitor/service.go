package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/theirongolddev/curstat/internal/model"
	"github.com/theirongolddev/curstat/internal/poll"
	"github.com/theirongolddev/curstat/internal/store"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Interval         time.Duration
	FailureThreshold int
	Cooldown         time.Duration
	Addr             string
	EventsBuffer     int
	HistoryKeep      int
}

// Snapshot is a compact usage state for status/event payloads.
type Snapshot struct {
	At               time.Time `json:"at"`
	PremiumCurrent   int       `json:"premium_current"`
	PremiumLimit     int       `json:"premium_limit"`
	PremiumPercent   int       `json:"premium_percent"`
	PremiumRemaining string    `json:"premium_remaining"`
	UsageBasedPct    float64   `json:"usage_based_pct"`
	SpendUSD         float64   `json:"spend_usd"`
	MidMonthUSD      float64   `json:"mid_month_usd"`
	ActiveMonth      int       `json:"active_month"`
	ActiveYear       int       `json:"active_year"`
	Items            int       `json:"items"`
	PeriodFallback   bool      `json:"period_fallback"`
	UnpaidInvoice    bool      `json:"unpaid_invoice"`
}

// Delta captures snapshot deltas between polls.
type Delta struct {
	PremiumCurrent int     `json:"premium_current"`
	SpendUSD       float64 `json:"spend_usd"`
}

func (d Delta) isZero() bool {
	return d.PremiumCurrent == 0 && d.SpendUSD == 0
}

// Event is emitted on snapshot updates, cycle failures, and cooldown
// transitions.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
	Error     string    `json:"error,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt           time.Time `json:"started_at"`
	LastPollAt          time.Time `json:"last_poll_at"`
	PollIntervalSec     int       `json:"poll_interval_sec"`
	PollCount           int64     `json:"poll_count"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	InCooldown          bool      `json:"in_cooldown"`
	CooldownRemainSec   int       `json:"cooldown_remaining_sec,omitempty"`
	Summary             Snapshot  `json:"summary"`
	LastError           string    `json:"last_error,omitempty"`
	EventCount          int       `json:"event_count"`
	SubscriberCount     int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API. One polling cycle runs
// at a time; the timer is rearmed only after the cycle finishes.
type Service struct {
	cfg     Config
	orch    *Orchestrator
	ctrl    *poll.Controller
	history *store.History // optional
	log     zerolog.Logger

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasBundle   bool
	bundle      model.StatsBundle
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// NewService returns a daemon service. history may be nil to disable
// persistence.
func NewService(cfg Config, orch *Orchestrator, history *store.History, log zerolog.Logger) *Service {
	if cfg.Interval < 10*time.Second {
		cfg.Interval = time.Minute
	}
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown < cfg.Interval {
		cfg.Cooldown = 10 * time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.HistoryKeep < 1 {
		cfg.HistoryKeep = 1000
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8788"
	}

	return &Service{
		cfg:  cfg,
		orch: orch,
		ctrl: poll.New(poll.Config{
			Interval:         cfg.Interval,
			FailureThreshold: cfg.FailureThreshold,
			Cooldown:         cfg.Cooldown,
		}, nil),
		history:   history,
		log:       log,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/history", s.handleHistory)
	mux.HandleFunc("/v1/stream", s.handleStream)

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed initial data so status is useful immediately.
	s.pollOnce(ctx)

	timer := time.NewTimer(s.ctrl.NextDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-timer.C:
			s.pollOnce(ctx)
			timer.Reset(s.ctrl.NextDelay())
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// pollOnce runs one cycle if the controller allows it. A coalesced poll
// request that arrived mid-cycle triggers exactly one follow-up cycle.
func (s *Service) pollOnce(ctx context.Context) {
	for {
		if !s.ctrl.TryBegin() {
			if remaining, ok := s.ctrl.CooldownRemaining(); ok {
				s.log.Info().Dur("retry_in", remaining).Msg("polling suspended, in cooldown")
			}
			return
		}

		bundle, err := s.orch.RunCycle(ctx)
		pending := s.ctrl.Finish(err != nil)

		if err != nil {
			s.recordFailure(err)
		} else {
			s.recordSuccess(bundle)
		}

		if !pending {
			return
		}
	}
}

func (s *Service) recordSuccess(bundle model.StatsBundle) {
	now := time.Now()
	snap := snapshotFromBundle(bundle)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.bundle
	prevExists := s.hasBundle

	s.hasBundle = true
	s.bundle = bundle
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: "snapshot", Timestamp: now, Snapshot: snap}
		publish = true
	} else {
		delta := diffBundles(prev, bundle)
		if !delta.isZero() {
			s.nextEventID++
			ev = Event{ID: s.nextEventID, Type: "usage_delta", Timestamp: now, Snapshot: snap, Delta: delta}
			publish = true
		}
	}
	s.mu.Unlock()

	if s.history != nil {
		if err := s.history.Save(bundle); err != nil {
			s.log.Warn().Err(err).Msg("saving snapshot history")
		} else if err := s.history.Prune(s.cfg.HistoryKeep); err != nil {
			s.log.Warn().Err(err).Msg("pruning snapshot history")
		}
	}

	s.log.Info().
		Int("premium_pct", bundle.PremiumPercent).
		Float64("usage_based_pct", bundle.UsageBasedPct).
		Bool("period_fallback", bundle.ActiveFallback).
		Msg("cycle complete")

	if publish {
		s.publishEvent(ev)
	}
}

func (s *Service) recordFailure(err error) {
	now := time.Now()
	state := s.ctrl.Snapshot()

	s.mu.Lock()
	s.lastError = err.Error()
	s.lastPollAt = now
	s.pollCount++
	snap := snapshotFromBundle(s.bundle)
	s.nextEventID++
	ev := Event{ID: s.nextEventID, Type: "cycle_error", Timestamp: now, Snapshot: snap, Error: err.Error()}
	s.mu.Unlock()

	s.log.Error().Err(err).
		Int("consecutive_failures", state.ConsecutiveFailures).
		Bool("in_cooldown", state.InCooldown()).
		Msg("cycle failed")

	s.publishEvent(ev)
}

// LastBundle returns the most recent successful bundle, if any.
func (s *Service) LastBundle() (model.StatsBundle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bundle, s.hasBundle
}

func snapshotFromBundle(b model.StatsBundle) Snapshot {
	active := b.Active()
	return Snapshot{
		At:               b.FetchedAt,
		PremiumCurrent:   b.Premium.Current,
		PremiumLimit:     b.Premium.Limit,
		PremiumPercent:   b.PremiumPercent,
		PremiumRemaining: b.PremiumRemaining,
		UsageBasedPct:    b.UsageBasedPct,
		SpendUSD:         b.ActualDollars,
		MidMonthUSD:      b.MidMonthDollars,
		ActiveMonth:      b.ActivePeriod.Month,
		ActiveYear:       b.ActivePeriod.Year,
		Items:            len(active.Items),
		PeriodFallback:   b.ActiveFallback,
		UnpaidInvoice:    active.HasUnpaidMidMonthInvoice,
	}
}

func diffBundles(prev, curr model.StatsBundle) Delta {
	return Delta{
		PremiumCurrent: curr.Premium.Current - prev.Premium.Current,
		SpendUSD:       curr.ActualDollars - prev.ActualDollars,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	state := s.ctrl.Snapshot()
	remaining, inCooldown := s.ctrl.CooldownRemaining()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:           s.startedAt,
		LastPollAt:          s.lastPollAt,
		PollIntervalSec:     int(s.cfg.Interval.Seconds()),
		PollCount:           s.pollCount,
		ConsecutiveFailures: state.ConsecutiveFailures,
		InCooldown:          inCooldown,
		CooldownRemainSec:   int(remaining.Seconds()),
		Summary:             snapshotFromBundle(s.bundle),
		LastError:           s.lastError,
		EventCount:          len(s.events),
		SubscriberCount:     len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}

	n := 100
	if q := r.URL.Query().Get("n"); q != "" {
		if _, err := fmt.Sscanf(q, "%d", &n); err != nil || n < 1 {
			n = 100
		}
	}

	snaps, err := s.history.Recent(n)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snaps)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
