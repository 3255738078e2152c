package progress

import (
	"testing"
	"time"

	"github.com/friendsincode/grimnir_reels/internal/clock"
	"github.com/friendsincode/grimnir_reels/internal/models"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCountdownCompletesExactlyOnce(t *testing.T) {
	clk := clock.NewFake(epoch)
	completed := 0
	var last float64

	c := NewCountdown(clk, 3*time.Second, 50*time.Millisecond, Callbacks{
		OnTick:     func(pct float64) { last = pct },
		OnComplete: func() { completed++ },
	})
	c.Start()

	clk.Advance(1500 * time.Millisecond)
	if got := c.Progress(); got < 49.9 || got > 50.1 {
		t.Fatalf("Progress() at 1.5s = %v, want 50", got)
	}
	if completed != 0 {
		t.Fatal("completed early")
	}

	clk.Advance(1500 * time.Millisecond)
	if completed != 1 {
		t.Fatalf("completed = %d at 3s, want 1", completed)
	}
	if last != 100 {
		t.Fatalf("last tick = %v, want 100", last)
	}

	c.Complete()
	clk.Advance(10 * time.Second)
	if completed != 1 {
		t.Fatalf("completed = %d, want exactly 1", completed)
	}
	if clk.Pending() != 0 {
		t.Fatalf("Pending() = %d after completion", clk.Pending())
	}
}

func TestCountdownPauseKeepsElapsed(t *testing.T) {
	clk := clock.NewFake(epoch)
	completed := false
	c := NewCountdown(clk, time.Second, 50*time.Millisecond, Callbacks{OnComplete: func() { completed = true }})
	c.Start()

	clk.Advance(400 * time.Millisecond)
	c.Pause()
	clk.Advance(5 * time.Second)

	if completed {
		t.Fatal("paused countdown completed")
	}
	if got := c.Elapsed(); got != 400*time.Millisecond {
		t.Fatalf("Elapsed() = %v, want 400ms", got)
	}
	if clk.Pending() != 0 {
		t.Fatalf("paused countdown left %d timers", clk.Pending())
	}

	c.Resume()
	clk.Advance(599 * time.Millisecond)
	if completed {
		t.Fatal("completed before remaining time elapsed")
	}
	clk.Advance(time.Millisecond)
	if !completed {
		t.Fatal("expected completion after resume")
	}
}

func TestCountdownCancelStopsCallbacks(t *testing.T) {
	clk := clock.NewFake(epoch)
	ticks := 0
	completed := false
	c := NewCountdown(clk, time.Second, 50*time.Millisecond, Callbacks{
		OnTick:     func(float64) { ticks++ },
		OnComplete: func() { completed = true },
	})
	c.Start()
	clk.Advance(100 * time.Millisecond)
	seen := ticks

	c.Cancel()
	clk.Advance(2 * time.Second)

	if ticks != seen || completed {
		t.Fatalf("callbacks fired after Cancel: ticks %d -> %d, completed %v", seen, ticks, completed)
	}
	c.Resume()
	c.Restart()
	c.Complete()
	if completed || clk.Pending() != 0 {
		t.Fatal("cancelled countdown came back to life")
	}
}

func TestCountdownSetDurationReschedules(t *testing.T) {
	clk := clock.NewFake(epoch)
	var doneAt time.Duration
	c := NewCountdown(clk, 6*time.Second, 50*time.Millisecond, Callbacks{
		OnComplete: func() { doneAt = clk.Now().Sub(epoch) },
	})
	c.Start()
	clk.Advance(time.Second)

	c.SetDuration(2 * time.Second)
	clk.Advance(5 * time.Second)

	if doneAt != 2*time.Second {
		t.Fatalf("completed at %v, want 2s", doneAt)
	}
}

func TestCountdownRestart(t *testing.T) {
	clk := clock.NewFake(epoch)
	completed := 0
	c := NewCountdown(clk, time.Second, 50*time.Millisecond, Callbacks{OnComplete: func() { completed++ }})
	c.Start()
	clk.Advance(time.Second)
	c.Restart()
	clk.Advance(time.Second)

	if completed != 2 {
		t.Fatalf("completed = %d, want 2", completed)
	}
}

func TestDurationsFor(t *testing.T) {
	d := DefaultDurations()

	tests := []struct {
		name    string
		item    models.MediaItem
		decoded time.Duration
		want    time.Duration
	}{
		{"image", models.MediaItem{Kind: models.KindImage, DurationHintMS: 9000}, 0, 3 * time.Second},
		{"text card", models.MediaItem{Kind: models.KindTextCard}, 0, 3 * time.Second},
		{"video decoded", models.MediaItem{Kind: models.KindVideo, DurationHintMS: 9000}, 12 * time.Second, 12 * time.Second},
		{"video hint", models.MediaItem{Kind: models.KindVideo, DurationHintMS: 9000}, 0, 9 * time.Second},
		{"audio fallback", models.MediaItem{Kind: models.KindAudio}, 0, 6 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.For(tt.item, tt.decoded); got != tt.want {
				t.Fatalf("For() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := (Durations{}).WithDefaults(); got != DefaultDurations() {
		t.Fatalf("WithDefaults() = %+v", got)
	}
}
