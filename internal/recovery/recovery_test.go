package recovery

import (
	"errors"
	"testing"
	"time"
)

func TestTrackerMarkAndRetryBudget(t *testing.T) {
	tr := NewTracker(ManualSkip, 2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	loadErr := errors.New("404")

	f := tr.Mark("v1", 1, ReasonLoad, loadErr, now)
	if f.Attempts != 1 || f.Reason != ReasonLoad || !errors.Is(f.Err, loadErr) {
		t.Fatalf("unexpected failure %+v", f)
	}
	if !tr.Failed("v1") {
		t.Fatal("expected v1 to be failed")
	}

	for attempt := 1; attempt <= 2; attempt++ {
		if !tr.BeginRetry("v1") {
			t.Fatalf("retry %d should be allowed", attempt)
		}
		if tr.Failed("v1") {
			t.Fatal("BeginRetry should clear the failure")
		}
		f = tr.Mark("v1", 1, ReasonLoad, loadErr, now)
		if f.Attempts != attempt+1 {
			t.Fatalf("Attempts = %d, want %d", f.Attempts, attempt+1)
		}
	}

	if tr.BeginRetry("v1") {
		t.Fatal("retry budget should be spent")
	}
	if tr.BeginRetry("unknown") {
		t.Fatal("retry of an item without failure should be rejected")
	}
}

func TestTrackerFailuresOrderedByIndex(t *testing.T) {
	tr := NewTracker(AutoAdvance, 0)
	now := time.Now()
	tr.Mark("c", 4, ReasonPlayback, nil, now)
	tr.Mark("a", 0, ReasonLoad, nil, now)
	tr.Mark("b", 2, ReasonLoad, nil, now)

	got := tr.Failures()
	if len(got) != 3 || got[0].ItemID != "a" || got[1].ItemID != "b" || got[2].ItemID != "c" {
		t.Fatalf("Failures() = %+v", got)
	}

	tr.Clear("b")
	if _, ok := tr.Get("b"); ok {
		t.Fatal("Clear should remove the failure")
	}
	if tr.Policy() != AutoAdvance {
		t.Fatalf("Policy() = %s", tr.Policy())
	}
}
