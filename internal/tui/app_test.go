package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/theirongolddev/curstat/internal/config"
)

func newTestApp() App {
	return NewApp(nil, nil, config.DefaultConfig(), false)
}

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestBlurPausesAndFocusResumesPolling(t *testing.T) {
	a := newTestApp()

	m, _ := a.Update(tea.BlurMsg{})
	a = m.(App)
	if a.focused {
		t.Fatal("focused = true after blur")
	}
	if a.ctrl.TryBegin() {
		t.Fatal("TryBegin succeeded while paused")
	}

	m, cmd := a.Update(tea.FocusMsg{})
	a = m.(App)
	if !a.focused {
		t.Fatal("focused = false after focus")
	}
	if cmd == nil {
		t.Fatal("refocus did not start a catch-up poll")
	}
	if !a.fetching {
		t.Fatal("fetching = false after refocus poll started")
	}
}

func TestRefreshDuringCycleCoalesces(t *testing.T) {
	a := newTestApp()

	// Start a cycle.
	m, cmd := a.Update(keyMsg('r'))
	a = m.(App)
	if cmd == nil || !a.fetching {
		t.Fatal("refresh did not start a cycle")
	}

	// A second refresh while in flight must not spawn another cycle.
	m, cmd = a.Update(keyMsg('r'))
	a = m.(App)
	if cmd != nil {
		t.Fatal("refresh during cycle started a second cycle")
	}

	// Completion consumes the coalesced request as one follow-up poll.
	m, cmd = a.Update(CycleDoneMsg{})
	a = m.(App)
	if cmd == nil || !a.fetching {
		t.Fatal("pending refresh did not trigger a follow-up poll")
	}

	// And only one: the next completion goes idle.
	m, cmd = a.Update(CycleDoneMsg{})
	a = m.(App)
	if cmd != nil || a.fetching {
		t.Fatal("follow-up poll left another pending cycle")
	}
}

func TestTabKeysSwitchTabs(t *testing.T) {
	a := newTestApp()

	for _, tc := range []struct {
		key  rune
		want int
	}{
		{'b', 1}, {'o', 0}, {'x', 2},
	} {
		m, _ := a.Update(keyMsg(tc.key))
		a = m.(App)
		if a.activeTab != tc.want {
			t.Fatalf("key %q: activeTab = %d, want %d", tc.key, a.activeTab, tc.want)
		}
	}
}
