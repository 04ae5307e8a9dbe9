package notify

import (
	"reflect"
	"testing"
)

func TestObserve_FuzzyContainmentDedupe(t *testing.T) {
	u := NewUnknownModels(nil)

	u.Observe("fancy-model")
	u.Observe("Fancy-Model")         // case-insensitive duplicate
	u.Observe("fancy-model-preview") // contains an existing fragment
	u.Observe("model")               // contained by an existing fragment
	u.Observe("other-model-x")

	got := u.Fragments()
	want := []string{"fancy-model", "other-model-x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Fragments() = %v, want %v", got, want)
	}
}

func TestObserve_IgnoresEmpty(t *testing.T) {
	u := NewUnknownModels(nil)
	u.Observe("")
	u.Observe("   ")
	if got := u.Fragments(); len(got) != 0 {
		t.Errorf("Fragments() = %v, want empty", got)
	}
}

func TestFlush_FiresAtMostOnce(t *testing.T) {
	var calls [][]string
	u := NewUnknownModels(func(batch []string) {
		calls = append(calls, batch)
	})

	u.Flush() // nothing collected yet, must not fire
	if len(calls) != 0 {
		t.Fatalf("Flush fired with empty batch: %v", calls)
	}

	u.Observe("mystery-model")
	u.Observe("another-model")
	u.Flush()
	u.Observe("late-model")
	u.Flush()

	if len(calls) != 1 {
		t.Fatalf("sink fired %d times, want 1", len(calls))
	}
	want := []string{"another-model", "mystery-model"}
	if !reflect.DeepEqual(calls[0], want) {
		t.Errorf("batch = %v, want %v", calls[0], want)
	}
}
