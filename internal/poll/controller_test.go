package poll

import (
	"testing"
	"time"
)

var testCfg = Config{
	Interval:         time.Minute,
	FailureThreshold: 3,
	Cooldown:         10 * time.Minute,
}

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) now() time.Time { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestNext_CooldownStartsOnThirdFailure(t *testing.T) {
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	s := State{}

	s = Next(s, EventFailure, testCfg, now)
	if s.InCooldown() {
		t.Fatal("cooldown after 1 failure, want none")
	}
	s = Next(s, EventFailure, testCfg, now)
	if s.InCooldown() {
		t.Fatal("cooldown after 2 failures, want none")
	}
	s = Next(s, EventFailure, testCfg, now)
	if !s.InCooldown() {
		t.Fatal("no cooldown after 3 failures, want cooldown")
	}
	if !s.CooldownStartedAt.Equal(now) {
		t.Errorf("CooldownStartedAt = %v, want %v", s.CooldownStartedAt, now)
	}
}

func TestNext_SuccessResetsCounter(t *testing.T) {
	now := time.Now()
	s := State{}

	s = Next(s, EventFailure, testCfg, now)
	s = Next(s, EventFailure, testCfg, now)
	s = Next(s, EventSuccess, testCfg, now)
	if s.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0 after success", s.ConsecutiveFailures)
	}

	// Two more failures must not trip the threshold.
	s = Next(s, EventFailure, testCfg, now)
	s = Next(s, EventFailure, testCfg, now)
	if s.InCooldown() {
		t.Error("cooldown entered with only 2 failures since reset")
	}
}

func TestNext_SuccessClearsCooldownImmediately(t *testing.T) {
	now := time.Now()
	s := State{ConsecutiveFailures: 3, CooldownStartedAt: now}

	s = Next(s, EventSuccess, testCfg, now.Add(time.Minute))
	if s.InCooldown() {
		t.Error("cooldown not cleared by success")
	}
	if s.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", s.ConsecutiveFailures)
	}
}

func TestNext_TickExpiresCooldown(t *testing.T) {
	start := time.Now()
	s := State{ConsecutiveFailures: 3, CooldownStartedAt: start}

	s = Next(s, EventTick, testCfg, start.Add(testCfg.Cooldown-time.Second))
	if !s.InCooldown() {
		t.Fatal("cooldown expired early")
	}

	s = Next(s, EventTick, testCfg, start.Add(testCfg.Cooldown))
	if s.InCooldown() {
		t.Fatal("cooldown did not expire after its duration")
	}
	if s.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0 after expiry", s.ConsecutiveFailures)
	}
}

func TestController_SingleFlight(t *testing.T) {
	clk := newFakeClock()
	c := New(testCfg, clk.now)

	if !c.TryBegin() {
		t.Fatal("first TryBegin = false, want true")
	}
	if c.TryBegin() {
		t.Fatal("second TryBegin = true while cycle in flight")
	}
	c.Finish(false)
	if !c.TryBegin() {
		t.Fatal("TryBegin after Finish = false, want true")
	}
}

func TestController_CooldownBlocksAndRecovers(t *testing.T) {
	clk := newFakeClock()
	c := New(testCfg, clk.now)

	for i := 0; i < testCfg.FailureThreshold; i++ {
		if !c.TryBegin() {
			t.Fatalf("TryBegin %d = false, want true", i)
		}
		c.Finish(true)
	}

	if !c.Snapshot().InCooldown() {
		t.Fatal("not in cooldown after threshold failures")
	}
	if c.TryBegin() {
		t.Fatal("TryBegin = true during cooldown")
	}

	remaining, ok := c.CooldownRemaining()
	if !ok || remaining != testCfg.Cooldown {
		t.Fatalf("CooldownRemaining = %v/%v, want %v/true", remaining, ok, testCfg.Cooldown)
	}
	if c.NextDelay() != testCfg.Cooldown {
		t.Errorf("NextDelay = %v, want cooldown remainder %v", c.NextDelay(), testCfg.Cooldown)
	}

	clk.advance(testCfg.Cooldown)
	if !c.TryBegin() {
		t.Fatal("TryBegin = false after cooldown elapsed")
	}
	c.Finish(false)
	if c.NextDelay() != testCfg.Interval {
		t.Errorf("NextDelay = %v, want normal interval %v", c.NextDelay(), testCfg.Interval)
	}
}

func TestController_PauseSuppressesPolling(t *testing.T) {
	clk := newFakeClock()
	c := New(testCfg, clk.now)

	c.Pause()
	if c.TryBegin() {
		t.Fatal("TryBegin = true while paused")
	}
	if !c.Resume() {
		t.Fatal("Resume = false while active, want immediate poll")
	}
	if !c.TryBegin() {
		t.Fatal("TryBegin = false after resume")
	}
	c.Finish(false)
}

func TestController_ResumeDuringCooldownKeepsCountdown(t *testing.T) {
	clk := newFakeClock()
	c := New(testCfg, clk.now)

	for i := 0; i < testCfg.FailureThreshold; i++ {
		c.TryBegin()
		c.Finish(true)
	}

	c.Pause()
	clk.advance(time.Minute)
	if c.Resume() {
		t.Fatal("Resume = true during cooldown, want countdown instead of poll")
	}
}

func TestController_RequestPollCoalesces(t *testing.T) {
	clk := newFakeClock()
	c := New(testCfg, clk.now)

	if !c.RequestPoll() {
		t.Fatal("RequestPoll = false while idle, want immediate start")
	}

	c.TryBegin()
	if c.RequestPoll() {
		t.Fatal("RequestPoll = true mid-cycle, want coalesced")
	}
	if c.RequestPoll() {
		t.Fatal("second mid-cycle RequestPoll = true, want coalesced")
	}

	if pending := c.Finish(false); !pending {
		t.Fatal("Finish pending = false, want coalesced poll request")
	}
	if pending := c.Finish(false); pending {
		t.Fatal("pending poll not cleared after consumption")
	}
}
