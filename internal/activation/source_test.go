package activation

import (
	"testing"
	"time"

	"github.com/friendsincode/grimnir_reels/internal/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestTimerSourceProposesOncePerBinding(t *testing.T) {
	var proposals []int
	src := NewTimerSource(func(i int) { proposals = append(proposals, i) })

	if src.Complete(0) {
		t.Fatal("completion before SetActive should be ignored")
	}

	src.SetActive(0)
	if !src.Complete(0) {
		t.Fatal("first completion should propose")
	}
	if src.Complete(0) {
		t.Fatal("second completion for the same binding should be ignored")
	}

	src.SetActive(1)
	if src.Complete(0) {
		t.Fatal("stale completion for a previous index should be ignored")
	}
	src.Complete(1)

	if len(proposals) != 2 || proposals[0] != 1 || proposals[1] != 2 {
		t.Fatalf("proposals = %v, want [1 2]", proposals)
	}

	src.Close()
	src.SetActive(2)
	if src.Complete(2) {
		t.Fatal("closed source should not propose")
	}
}

func TestSourcesIgnoreNilSink(t *testing.T) {
	clk := clock.NewFake(epoch)
	sources := map[string]Source{
		"timer":      NewTimerSource(nil),
		"visibility": NewVisibilitySource(clk, VisibilityConfig{}, 0, nil),
	}

	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			src.SetActive(3)
			switch s := src.(type) {
			case *TimerSource:
				if !s.Complete(3) {
					t.Fatal("completion should still be accepted")
				}
			case *VisibilitySource:
				s.Observe(4, 1)
			}
			src.Close()
			if clk.Pending() != 0 {
				t.Fatalf("Pending() = %d after Close", clk.Pending())
			}
		})
	}
}

func TestVisibilitySourceProposesOnThresholdCrossing(t *testing.T) {
	clk := clock.NewFake(epoch)
	var proposals []int
	src := NewVisibilitySource(clk, VisibilityConfig{}, 0, func(i int) { proposals = append(proposals, i) })

	src.Observe(0, 1.0)
	src.Observe(1, 0.4)
	src.Observe(1, 0.69)
	if len(proposals) != 0 {
		t.Fatalf("proposed below threshold: %v", proposals)
	}

	src.Observe(1, 0.75)
	src.Observe(1, 0.9)
	if len(proposals) != 1 || proposals[0] != 1 {
		t.Fatalf("proposals = %v, want [1]", proposals)
	}
}

func TestVisibilitySourceBuffersWhileScrolling(t *testing.T) {
	clk := clock.NewFake(epoch)
	var proposals []int
	src := NewVisibilitySource(clk, VisibilityConfig{SettleDelay: 300 * time.Millisecond}, 0, func(i int) {
		proposals = append(proposals, i)
	})

	src.ScrollStart()
	for i := 1; i <= 4; i++ {
		src.Observe(i-1, 0.1)
		src.Observe(i, 0.95)
		src.ScrollEvent()
		clk.Advance(100 * time.Millisecond)
	}
	if !src.Scrolling() {
		t.Fatal("source should still be scrolling")
	}
	if len(proposals) != 0 {
		t.Fatalf("proposed during fling: %v", proposals)
	}

	clk.Advance(300 * time.Millisecond)
	if src.Scrolling() {
		t.Fatal("scrolling should clear after settle delay")
	}
	if len(proposals) != 1 || proposals[0] != 4 {
		t.Fatalf("proposals = %v, want [4]", proposals)
	}
}

func TestVisibilitySourceSettleOnActiveIsSilent(t *testing.T) {
	clk := clock.NewFake(epoch)
	proposed := false
	src := NewVisibilitySource(clk, VisibilityConfig{}, 2, func(int) { proposed = true })

	src.ScrollStart()
	src.Observe(2, 0.8)
	clk.Advance(time.Second)

	if proposed {
		t.Fatal("settling back on the active index should not propose")
	}
}

func TestVisibilitySourceCloseStopsSettleTimer(t *testing.T) {
	clk := clock.NewFake(epoch)
	proposed := false
	src := NewVisibilitySource(clk, VisibilityConfig{}, 0, func(int) { proposed = true })

	src.ScrollStart()
	src.Observe(3, 1)
	src.Close()

	if clk.Pending() != 0 {
		t.Fatalf("Pending() = %d after Close", clk.Pending())
	}
	clk.Advance(time.Second)
	src.Observe(4, 1)
	if proposed {
		t.Fatal("closed source proposed")
	}
}
