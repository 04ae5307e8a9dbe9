package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/curstat/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestCardRowPadsToTallest(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Quota", "250 / 500", 22)
	tallCard := ContentCard("Billing", "Aug 2026\nItems: 4\nPaid: $20\nSpend: $35\nUnpaid: no", 22)

	shortLines := len(strings.Split(shortCard, "\n"))
	tallLines := len(strings.Split(tallCard, "\n"))

	if shortLines >= tallLines {
		t.Fatal("test setup error: short card should be shorter than tall card")
	}

	joined := CardRow([]string{tallCard, shortCard})
	lines := strings.Split(joined, "\n")

	if len(lines) != tallLines {
		t.Fatalf("joined height = %d, want %d (tallest card)", len(lines), tallLines)
	}

	// Padding below the short card must still carry background styling,
	// otherwise it renders as unstyled black cells.
	for i := shortLines; i < len(lines); i++ {
		if !strings.Contains(lines[i], "\x1b[") {
			t.Errorf("line %d has no ANSI codes", i)
		}
	}
}

func TestLayoutRowDistributesWidth(t *testing.T) {
	widths := LayoutRow(100, 3)
	if len(widths) != 3 {
		t.Fatalf("len(widths) = %d, want 3", len(widths))
	}

	total := 0
	for _, w := range widths {
		total += w
	}
	if total != 100 {
		t.Fatalf("total width = %d, want 100", total)
	}
	// First items absorb the remainder.
	if widths[0] != 34 || widths[1] != 33 || widths[2] != 33 {
		t.Fatalf("widths = %v, want [34 33 33]", widths)
	}
}

func TestTabVisualWidth(t *testing.T) {
	overview := Tabs[0]
	settings := Tabs[len(Tabs)-1]

	if got := TabVisualWidth(overview, true); got != len(overview.Name) {
		t.Fatalf("active width = %d, want %d", got, len(overview.Name))
	}
	if got := TabVisualWidth(overview, false); got != len(overview.Name)+2 {
		t.Fatalf("inactive width = %d, want %d", got, len(overview.Name)+2)
	}
	// Settings has its shortcut appended after the name.
	if got := TabVisualWidth(settings, false); got != len(settings.Name)+3 {
		t.Fatalf("inactive settings width = %d, want %d", got, len(settings.Name)+3)
	}
}
