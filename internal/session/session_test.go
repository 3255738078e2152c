package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/friendsincode/grimnir_reels/internal/clock"
	"github.com/friendsincode/grimnir_reels/internal/events"
	"github.com/friendsincode/grimnir_reels/internal/models"
	"github.com/friendsincode/grimnir_reels/internal/player"
	"github.com/rs/zerolog"
)

type recorder struct {
	mu     sync.Mutex
	counts map[events.EventType]int
	last   map[events.EventType]events.Payload
}

func newRecorder() *recorder {
	return &recorder{counts: map[events.EventType]int{}, last: map[events.EventType]events.Payload{}}
}

func (r *recorder) Publish(eventType events.EventType, payload events.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[eventType]++
	r.last[eventType] = payload
}

func (r *recorder) count(eventType events.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[eventType]
}

func (r *recorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.counts {
		n += c
	}
	return n
}

type harness struct {
	clk      *clock.Fake
	elements []*player.SimElement
	events   *recorder
}

func newHarness(n int) *harness {
	h := &harness{
		clk:    clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		events: newRecorder(),
	}
	for i := 0; i < n; i++ {
		h.elements = append(h.elements, player.NewSimElement())
	}
	return h
}

func (h *harness) open(t *testing.T, cfg Config) *Session {
	t.Helper()
	cfg.Clock = h.clk
	cfg.Publisher = h.events
	cfg.Logger = zerolog.Nop()
	cfg.Elements = func(_ string, index int, _ models.MediaItem) player.Element {
		return h.elements[index]
	}
	s, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func (h *harness) playingElements() int {
	n := 0
	for _, el := range h.elements {
		if el.Playing() {
			n++
		}
	}
	return n
}

func images(ids ...string) []models.MediaItem {
	out := make([]models.MediaItem, len(ids))
	for i, id := range ids {
		out[i] = models.MediaItem{ID: id, Kind: models.KindImage, SourceURL: "https://cdn.example/" + id + ".jpg"}
	}
	return out
}

func videos(ids ...string) []models.MediaItem {
	out := make([]models.MediaItem, len(ids))
	for i, id := range ids {
		out[i] = models.MediaItem{ID: id, Kind: models.KindVideo, SourceURL: "https://cdn.example/" + id + ".mp4"}
	}
	return out
}

func TestOpenValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"empty queue", Config{Surface: models.SurfaceStory}, ErrEmptyQueue},
		{"bad surface", Config{Surface: "carousel", Items: images("a")}, ErrInvalidSurface},
		{"duplicate ids", Config{Surface: models.SurfaceFeed, Items: images("a", "a")}, ErrDuplicateItem},
		{"invalid item", Config{Surface: models.SurfaceFeed, Items: []models.MediaItem{{ID: "x", Kind: "gif"}}}, models.ErrInvalidMediaItem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.cfg)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Open error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpenClampsInitialIndex(t *testing.T) {
	h := newHarness(3)
	s := h.open(t, Config{Surface: models.SurfaceStory, Items: images("a", "b", "c"), InitialIndex: 7})
	defer s.Close()

	if got := s.ActiveIndex(); got != 2 {
		t.Fatalf("ActiveIndex = %d, want 2", got)
	}
	if !h.elements[2].Playing() {
		t.Fatal("clamped item should be playing")
	}
}

// Three images with no input: the story closes after three timer steps.
func TestStoryAutoAdvancesAndCloses(t *testing.T) {
	h := newHarness(3)
	var advances []int
	closes := 0
	s := h.open(t, Config{
		Surface: models.SurfaceStory,
		Items:   images("a", "b", "c"),
		Hooks: Hooks{
			OnAdvance: func(index int) { advances = append(advances, index) },
			OnClose:   func() { closes++ },
		},
	})

	h.clk.Advance(2999 * time.Millisecond)
	if got := s.ActiveIndex(); got != 0 {
		t.Fatalf("ActiveIndex at 2999ms = %d, want 0", got)
	}
	h.clk.Advance(time.Millisecond)
	if got := s.ActiveIndex(); got != 1 {
		t.Fatalf("ActiveIndex at 3000ms = %d, want 1", got)
	}

	h.clk.Advance(5999 * time.Millisecond)
	if s.State() != models.SessionActive || s.ActiveIndex() != 2 {
		t.Fatalf("at 8999ms state=%s index=%d", s.State(), s.ActiveIndex())
	}
	h.clk.Advance(time.Millisecond)

	if s.State() != models.SessionClosed {
		t.Fatalf("state at 9000ms = %s, want closed", s.State())
	}
	if len(advances) != 2 || advances[0] != 1 || advances[1] != 2 {
		t.Fatalf("advances = %v, want [1 2]", advances)
	}
	if closes != 1 {
		t.Fatalf("OnClose calls = %d, want 1", closes)
	}
	if got := h.events.count(events.EventSessionAdvanced); got != 2 {
		t.Fatalf("session.advanced events = %d, want 2", got)
	}
	if p := h.clk.Pending(); p != 0 {
		t.Fatalf("pending timers after close = %d", p)
	}
}

// A video that fails to load is marked errored and the story moves on after
// the fallback duration.
func TestStoryLoadErrorAdvancesOnFallback(t *testing.T) {
	h := newHarness(3)
	h.elements[1].FailPlay(errors.New("404 not found"))
	items := []models.MediaItem{
		images("a")[0],
		videos("b")[0],
		images("c")[0],
	}
	s := h.open(t, Config{Surface: models.SurfaceStory, Items: items})
	defer s.Close()

	h.clk.Advance(3 * time.Second)
	snap := s.Snapshot()
	if snap.ActiveIndex != 1 {
		t.Fatalf("ActiveIndex = %d, want 1", snap.ActiveIndex)
	}
	if snap.Items[1].State != models.PlaybackErrored || !snap.Items[1].Errored || snap.Items[1].FailureReason != "load" {
		t.Fatalf("item 1 snapshot = %+v", snap.Items[1])
	}
	if got := h.events.count(events.EventItemErrored); got != 1 {
		t.Fatalf("item.errored events = %d, want 1", got)
	}

	h.clk.Advance(5999 * time.Millisecond)
	if got := s.ActiveIndex(); got != 1 {
		t.Fatalf("ActiveIndex before fallback = %d, want 1", got)
	}
	h.clk.Advance(time.Millisecond)
	if got := s.ActiveIndex(); got != 2 {
		t.Fatalf("ActiveIndex after fallback = %d, want 2", got)
	}
	if failures := s.Failures(); len(failures) != 1 || failures[0].ItemID != "b" {
		t.Fatalf("failures = %+v", failures)
	}
}

// Rapid scrolling through the feed activates only the item that settles.
func TestFeedRapidScrollActivatesSettledItemOnce(t *testing.T) {
	h := newHarness(5)
	var advances []int
	s := h.open(t, Config{
		Surface: models.SurfaceFeed,
		Items:   videos("m0", "m1", "m2", "m3", "m4"),
		Hooks:   Hooks{OnAdvance: func(index int) { advances = append(advances, index) }},
	})
	defer s.Close()

	s.ReportVisibility(0, 1.0)
	s.ScrollStart()
	for i := 1; i < 5; i++ {
		h.clk.Advance(100 * time.Millisecond)
		s.ReportVisibility(i-1, 0.1)
		ratio := 0.8
		if i == 4 {
			ratio = 0.9
		}
		s.ReportVisibility(i, ratio)
		s.ScrollEvent()
		if got := s.ActiveIndex(); got != 0 {
			t.Fatalf("activated %d while scrolling", got)
		}
	}

	h.clk.Advance(299 * time.Millisecond)
	if got := s.ActiveIndex(); got != 0 {
		t.Fatalf("activated %d before settle", got)
	}
	h.clk.Advance(time.Millisecond)

	if got := s.ActiveIndex(); got != 4 {
		t.Fatalf("ActiveIndex = %d, want 4", got)
	}
	if len(advances) != 1 || advances[0] != 4 {
		t.Fatalf("advances = %v, want [4]", advances)
	}
	// One activation on open, one for the settled item.
	if got := h.events.count(events.EventItemActivated); got != 2 {
		t.Fatalf("item.activated events = %d, want 2", got)
	}
	if h.elements[0].Playing() || !h.elements[4].Playing() {
		t.Fatal("only the settled item should be playing")
	}
}

func TestFeedVisibilityWithoutScrollActivatesOnCrossing(t *testing.T) {
	h := newHarness(3)
	s := h.open(t, Config{Surface: models.SurfaceFeed, Items: videos("m0", "m1", "m2")})
	defer s.Close()

	s.ReportVisibility(1, 0.5)
	if got := s.ActiveIndex(); got != 0 {
		t.Fatalf("ActiveIndex = %d below threshold", got)
	}
	s.ReportVisibility(1, 0.75)
	if got := s.ActiveIndex(); got != 1 {
		t.Fatalf("ActiveIndex = %d, want 1", got)
	}
	if s.ReportVisibility(9, 1) {
		t.Fatal("out of range visibility should be rejected")
	}
}

// A mute toggle carries over to the next activation.
func TestMuteToggleCarriesToNextItem(t *testing.T) {
	h := newHarness(3)
	var toggles []bool
	s := h.open(t, Config{
		Surface: models.SurfaceStory,
		Items:   videos("v0", "v1", "v2"),
		Muted:   true,
		Hooks:   Hooks{OnMuteToggle: func(muted bool) { toggles = append(toggles, muted) }},
	})
	defer s.Close()

	s.Advance()
	if got := s.ToggleMute(); got {
		t.Fatal("ToggleMute should return the new muted value false")
	}
	if h.elements[1].Muted() {
		t.Fatal("active element should follow the unmuted policy")
	}

	s.Advance()
	if got := s.ActiveIndex(); got != 2 {
		t.Fatalf("ActiveIndex = %d, want 2", got)
	}
	if !h.elements[2].Muted() {
		t.Fatal("new item should start muted")
	}
	h.clk.Advance(player.DefaultUnmuteDelay)
	if h.elements[2].Muted() {
		t.Fatal("new item should unmute after the delay")
	}
	if snap := s.Snapshot(); snap.Muted {
		t.Fatal("snapshot should report unmuted policy")
	}
	if len(toggles) != 1 || toggles[0] {
		t.Fatalf("OnMuteToggle calls = %v", toggles)
	}
	if h.elements[1].Playing() {
		t.Fatal("previous item should be paused")
	}
}

func TestAtMostOnePlaying(t *testing.T) {
	h := newHarness(4)
	s := h.open(t, Config{Surface: models.SurfaceStory, Items: videos("a", "b", "c", "d")})
	defer s.Close()

	steps := []struct {
		name string
		do   func()
	}{
		{"advance", func() { s.Advance() }},
		{"select 3", func() { s.Select(3) }},
		{"retreat", func() { s.Retreat() }},
		{"tap left", func() { s.Tap(0.1) }},
		{"tick", func() { h.clk.Advance(250 * time.Millisecond) }},
		{"key right", func() { s.HandleKey(KeyArrowRight) }},
		{"select 0", func() { s.Select(0) }},
		{"pause", func() { s.Pause() }},
		{"resume", func() { s.Resume() }},
		{"fallback", func() { h.clk.Advance(6 * time.Second) }},
	}

	for _, step := range steps {
		step.do()
		if playing := s.Playing(); len(playing) > 1 {
			t.Fatalf("after %s: playing = %v", step.name, playing)
		}
		if n := h.playingElements(); n > 1 {
			t.Fatalf("after %s: %d elements playing", step.name, n)
		}
	}
}

func TestRequestActivateActiveIsNoop(t *testing.T) {
	h := newHarness(3)
	s := h.open(t, Config{Surface: models.SurfaceStory, Items: images("a", "b", "c"), InitialIndex: 1})
	defer s.Close()

	before := h.events.total()
	if s.RequestActivate(1) {
		t.Fatal("RequestActivate(active) should report no change")
	}
	if h.elements[1].Plays() != 1 {
		t.Fatalf("plays = %d, want 1", h.elements[1].Plays())
	}
	if after := h.events.total(); after != before {
		t.Fatalf("events published = %d, want none", after-before)
	}
	if s.Snapshot().UserInteracted {
		t.Fatal("a no-op request should not count as interaction")
	}
	if !s.RequestActivate(-4) || s.ActiveIndex() != 0 {
		t.Fatalf("negative index should clamp to 0, got %d", s.ActiveIndex())
	}
}

func TestRetreatAtFirstStays(t *testing.T) {
	h := newHarness(2)
	s := h.open(t, Config{Surface: models.SurfaceStory, Items: images("a", "b")})
	defer s.Close()

	if s.Retreat() {
		t.Fatal("Retreat at 0 should report no change")
	}
	if s.ActiveIndex() != 0 || s.State() != models.SessionActive {
		t.Fatalf("index=%d state=%s", s.ActiveIndex(), s.State())
	}
	if h.elements[0].Plays() != 1 {
		t.Fatal("Retreat at 0 should not restart the item")
	}
}

func TestAdvancePastLast(t *testing.T) {
	tests := []struct {
		name      string
		surface   models.Surface
		wantState models.SessionState
		wantClose int
	}{
		{"story closes once", models.SurfaceStory, models.SessionClosed, 1},
		{"feed stays on last", models.SurfaceFeed, models.SessionActive, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(2)
			closes := 0
			s := h.open(t, Config{
				Surface:      tt.surface,
				Items:        images("a", "b"),
				InitialIndex: 1,
				Hooks:        Hooks{OnClose: func() { closes++ }},
			})
			defer s.Close()

			s.Advance()
			s.Advance()
			if s.State() != tt.wantState {
				t.Fatalf("state = %s, want %s", s.State(), tt.wantState)
			}
			if tt.wantState == models.SessionClosed {
				s.Close()
			}
			if closes != tt.wantClose {
				t.Fatalf("OnClose calls = %d, want %d", closes, tt.wantClose)
			}
			if got := h.events.count(events.EventSessionClosed); got != tt.wantClose {
				t.Fatalf("session.closed events = %d, want %d", got, tt.wantClose)
			}
		})
	}
}

func TestCloseCancelsEveryTimer(t *testing.T) {
	h := newHarness(3)
	s := h.open(t, Config{Surface: models.SurfaceFeed, Items: videos("a", "b", "c"), Muted: false})

	// Leave a settle timer, an unmute timer and a countdown pending.
	s.SetMuted(false)
	s.Select(1)
	s.ScrollStart()
	if h.clk.Pending() == 0 {
		t.Fatal("expected pending timers before close")
	}

	s.Close()
	if p := h.clk.Pending(); p != 0 {
		t.Fatalf("pending timers after close = %d", p)
	}

	published := h.events.total()
	h.clk.Advance(time.Minute)
	if h.events.total() != published {
		t.Fatal("events published after close")
	}
	if s.Advance() || s.TogglePause() || s.ReportVisibility(2, 1) || s.Like("a") {
		t.Fatal("operations after close should be rejected")
	}
	if h.playingElements() != 0 {
		t.Fatal("elements still playing after close")
	}
	s.Close()
	if got := h.events.count(events.EventSessionClosed); got != 1 {
		t.Fatalf("session.closed events = %d, want 1", got)
	}
}

func TestFeedErrorWaitsForRetry(t *testing.T) {
	h := newHarness(2)
	h.elements[0].FailPlay(errors.New("decode error"))
	s := h.open(t, Config{Surface: models.SurfaceFeed, Items: videos("a", "b")})
	defer s.Close()

	h.clk.Advance(time.Minute)
	if s.ActiveIndex() != 0 {
		t.Fatalf("feed should not auto-advance past an error, index=%d", s.ActiveIndex())
	}
	if h.clk.Pending() != 0 {
		t.Fatalf("errored feed item left %d timers", h.clk.Pending())
	}

	if !s.Retry(0) {
		t.Fatal("first retry should be allowed")
	}
	if !s.Retry(0) {
		t.Fatal("second retry should be allowed")
	}
	if s.Retry(0) {
		t.Fatal("retry budget should be spent")
	}
	if s.Retry(1) {
		t.Fatal("retry of a healthy item should be rejected")
	}
	if f := s.Failures(); len(f) != 1 || f[0].Attempts != 3 {
		t.Fatalf("failures = %+v", f)
	}
}

func TestRetryRecovers(t *testing.T) {
	h := newHarness(2)
	h.elements[0].FailPlay(errors.New("network"))
	s := h.open(t, Config{Surface: models.SurfaceFeed, Items: videos("a", "b")})
	defer s.Close()

	s.Select(1)
	h.elements[0].FailPlay(nil)
	if !s.Retry(0) {
		t.Fatal("Retry should succeed")
	}
	if s.ActiveIndex() != 0 || !h.elements[0].Playing() {
		t.Fatalf("retried item not playing, index=%d", s.ActiveIndex())
	}
	if len(s.Failures()) != 0 {
		t.Fatalf("failures = %+v", s.Failures())
	}
}

func TestFailedItemShowsErroredOnReturn(t *testing.T) {
	h := newHarness(2)
	s := h.open(t, Config{Surface: models.SurfaceFeed, Items: videos("a", "b")})
	defer s.Close()

	if !s.ReportError("a", fmt.Errorf("stalled: %w", player.ErrLoad)) {
		t.Fatal("ReportError should be accepted")
	}
	if s.ReportError("a", nil) {
		t.Fatal("second report for a failed item should be ignored")
	}
	s.Select(1)
	s.Select(0)

	snap := s.Snapshot()
	if snap.Items[0].State != models.PlaybackErrored || snap.Items[0].FailureReason != "load" {
		t.Fatalf("item 0 = %+v", snap.Items[0])
	}
	if h.elements[0].Plays() != 1 {
		t.Fatalf("failed item replayed without retry, plays=%d", h.elements[0].Plays())
	}
}

func TestFeedVideoLoops(t *testing.T) {
	h := newHarness(1)
	item := videos("loop")[0]
	item.DurationHintMS = 1000
	s := h.open(t, Config{Surface: models.SurfaceFeed, Items: []models.MediaItem{item}})
	defer s.Close()

	h.clk.Advance(time.Second)
	if got := h.elements[0].Plays(); got != 2 {
		t.Fatalf("plays after one loop = %d, want 2", got)
	}
	h.clk.Advance(time.Second)
	if got := h.elements[0].Plays(); got != 3 {
		t.Fatalf("plays after two loops = %d, want 3", got)
	}
	if s.Snapshot().Items[0].State != models.PlaybackPlaying {
		t.Fatal("looping item should be playing")
	}
}

func TestAutoplayRejectionHoldsUntilResume(t *testing.T) {
	h := newHarness(2)
	h.elements[0].FailPlay(fmt.Errorf("host: %w", player.ErrPlaybackRejected))
	item := videos("a")[0]
	item.DurationHintMS = 2000
	s := h.open(t, Config{Surface: models.SurfaceStory, Items: []models.MediaItem{item, images("b")[0]}})
	defer s.Close()

	h.clk.Advance(10 * time.Second)
	snap := s.Snapshot()
	if snap.ActiveIndex != 0 || !snap.Paused || snap.Items[0].Errored {
		t.Fatalf("snapshot = %+v", snap)
	}

	h.elements[0].FailPlay(nil)
	if !s.Resume() {
		t.Fatal("Resume should restart the held item")
	}
	h.clk.Advance(2 * time.Second)
	if got := s.ActiveIndex(); got != 1 {
		t.Fatalf("ActiveIndex = %d, want 1", got)
	}
}

func TestResumeAfterRejectionUnmutes(t *testing.T) {
	h := newHarness(2)
	h.elements[0].FailPlay(fmt.Errorf("host: %w", player.ErrPlaybackRejected))
	s := h.open(t, Config{Surface: models.SurfaceStory, Items: videos("a", "b")})
	defer s.Close()

	h.elements[0].FailPlay(nil)
	if !s.Resume() {
		t.Fatal("Resume should restart the held item")
	}
	if !h.elements[0].Muted() {
		t.Fatal("resumed item should start muted")
	}
	h.clk.Advance(player.DefaultUnmuteDelay)
	if s.Snapshot().Muted {
		t.Fatal("policy should stay unmuted")
	}
	if h.elements[0].Muted() || !h.elements[0].Playing() {
		t.Fatalf("element muted=%v playing=%v, want unmuted and playing", h.elements[0].Muted(), h.elements[0].Playing())
	}
}

func TestHoldDuringUnmuteDelayUnmutesOnRelease(t *testing.T) {
	h := newHarness(3)
	s := h.open(t, Config{Surface: models.SurfaceStory, Items: videos("a", "b", "c")})
	defer s.Close()

	s.Advance()
	s.HoldStart()
	h.clk.Advance(250 * time.Millisecond)
	if !h.elements[1].Muted() {
		t.Fatal("held item should stay muted")
	}
	s.HoldEnd()
	h.clk.Advance(time.Second)

	if s.Snapshot().Muted {
		t.Fatal("policy should stay unmuted")
	}
	if h.elements[1].Muted() || !h.elements[1].Playing() {
		t.Fatalf("element muted=%v playing=%v, want unmuted and playing", h.elements[1].Muted(), h.elements[1].Playing())
	}
}

func TestKeyAdvanceRacingCountdownAdvancesOnce(t *testing.T) {
	h := newHarness(3)
	var advances []int
	s := h.open(t, Config{
		Surface: models.SurfaceStory,
		Items:   images("a", "b", "c"),
		Hooks:   Hooks{OnAdvance: func(index int) { advances = append(advances, index) }},
	})
	defer s.Close()

	h.clk.Advance(2999 * time.Millisecond)
	s.HandleKey(KeyArrowRight)
	h.clk.Advance(time.Millisecond)

	if got := s.ActiveIndex(); got != 1 {
		t.Fatalf("ActiveIndex = %d, want 1", got)
	}
	if len(advances) != 1 || advances[0] != 1 {
		t.Fatalf("advances = %v, want [1]", advances)
	}
	if got := h.events.count(events.EventSessionAdvanced); got != 1 {
		t.Fatalf("session.advanced events = %d, want 1", got)
	}
}

func TestReportsAdjustCountdown(t *testing.T) {
	t.Run("loaded duration replaces fallback", func(t *testing.T) {
		h := newHarness(2)
		s := h.open(t, Config{Surface: models.SurfaceStory, Items: videos("a", "b")})
		defer s.Close()

		if !s.ReportLoaded("a", 2*time.Second, 1080, 1920) {
			t.Fatal("ReportLoaded rejected")
		}
		h.clk.Advance(2 * time.Second)
		if got := s.ActiveIndex(); got != 1 {
			t.Fatalf("ActiveIndex = %d, want 1", got)
		}
	})

	t.Run("ended completes immediately", func(t *testing.T) {
		h := newHarness(2)
		s := h.open(t, Config{Surface: models.SurfaceStory, Items: videos("a", "b")})
		defer s.Close()

		s.ReportEnded("a")
		if got := s.ActiveIndex(); got != 1 {
			t.Fatalf("ActiveIndex = %d, want 1", got)
		}
		if s.ReportEnded("a") {
			t.Fatal("ended for an inactive item should be ignored")
		}
	})

	t.Run("buffering holds progress", func(t *testing.T) {
		h := newHarness(2)
		s := h.open(t, Config{Surface: models.SurfaceStory, Items: images("a", "b")})
		defer s.Close()

		s.ReportBuffering("a", true)
		h.clk.Advance(5 * time.Second)
		if got := s.ActiveIndex(); got != 0 {
			t.Fatalf("advanced while buffering to %d", got)
		}
		s.ReportBuffering("a", false)
		h.clk.Advance(3 * time.Second)
		if got := s.ActiveIndex(); got != 1 {
			t.Fatalf("ActiveIndex = %d, want 1", got)
		}
	})
}

func TestHandleKey(t *testing.T) {
	tests := []struct {
		key     string
		handled bool
		check   func(t *testing.T, s *Session)
	}{
		{KeyArrowRight, true, func(t *testing.T, s *Session) {
			if s.ActiveIndex() != 2 {
				t.Fatalf("index = %d", s.ActiveIndex())
			}
		}},
		{KeyArrowLeft, true, func(t *testing.T, s *Session) {
			if s.ActiveIndex() != 0 {
				t.Fatalf("index = %d", s.ActiveIndex())
			}
		}},
		{KeySpace, true, func(t *testing.T, s *Session) {
			if !s.Snapshot().Paused {
				t.Fatal("space should pause")
			}
		}},
		{KeyMute, true, func(t *testing.T, s *Session) {
			if !s.Snapshot().Muted {
				t.Fatal("m should toggle mute on")
			}
		}},
		{KeyEscape, true, func(t *testing.T, s *Session) {
			if s.State() != models.SessionClosed {
				t.Fatal("escape should close")
			}
		}},
		{"q", false, func(t *testing.T, s *Session) {}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			h := newHarness(3)
			s := h.open(t, Config{Surface: models.SurfaceStory, Items: images("a", "b", "c"), InitialIndex: 1})
			defer s.Close()

			if got := s.HandleKey(tt.key); got != tt.handled {
				t.Fatalf("HandleKey(%q) = %v, want %v", tt.key, got, tt.handled)
			}
			tt.check(t, s)
		})
	}
}

func TestTapZones(t *testing.T) {
	h := newHarness(3)
	s := h.open(t, Config{Surface: models.SurfaceStory, Items: images("a", "b", "c")})
	defer s.Close()

	s.Tap(0.9)
	if s.ActiveIndex() != 1 {
		t.Fatalf("right tap index = %d", s.ActiveIndex())
	}
	s.Tap(0.2)
	if s.ActiveIndex() != 0 {
		t.Fatalf("left tap index = %d", s.ActiveIndex())
	}

	s.HoldStart()
	h.clk.Advance(10 * time.Second)
	if s.ActiveIndex() != 0 {
		t.Fatal("advanced while held")
	}
	s.HoldEnd()
	h.clk.Advance(3 * time.Second)
	if s.ActiveIndex() != 1 {
		t.Fatalf("index after hold = %d", s.ActiveIndex())
	}
}

func TestFeedAutoUnmuteOnView(t *testing.T) {
	tests := []struct {
		name       string
		width      int
		height     int
		wantMuted  bool
		autoUnmute bool
	}{
		{"portrait unmutes", 1080, 1920, false, true},
		{"landscape stays muted", 1920, 1080, true, true},
		{"disabled stays muted", 1080, 1920, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(1)
			h.elements[0].SetDimensions(tt.width, tt.height)
			s := h.open(t, Config{
				Surface:  models.SurfaceFeed,
				Items:    videos("a"),
				Defaults: Defaults{AutoUnmuteOnView: tt.autoUnmute, PortraitHeuristic: true},
			})
			defer s.Close()

			h.clk.Advance(player.DefaultUnmuteDelay)
			if got := h.elements[0].Muted(); got != tt.wantMuted {
				t.Fatalf("muted = %v, want %v", got, tt.wantMuted)
			}
		})
	}
}

func TestEngagementHooks(t *testing.T) {
	h := newHarness(2)
	var liked, shared []string
	var comments []string
	s := h.open(t, Config{
		Surface: models.SurfaceFeed,
		Items:   images("a", "b"),
		Hooks: Hooks{
			OnLike:    func(id string) { liked = append(liked, id) },
			OnShare:   func(id string) { shared = append(shared, id) },
			OnComment: func(id, text string) { comments = append(comments, id+":"+text) },
		},
	})
	defer s.Close()

	if !s.Like("b") || !s.Share("a") || !s.Comment("a", "nice") {
		t.Fatal("engagement rejected")
	}
	if s.Like("missing") {
		t.Fatal("unknown item accepted")
	}
	if len(liked) != 1 || liked[0] != "b" || len(shared) != 1 || len(comments) != 1 || comments[0] != "a:nice" {
		t.Fatalf("liked=%v shared=%v comments=%v", liked, shared, comments)
	}
	if p := h.events.count(events.EventItemCommented); p != 1 {
		t.Fatalf("item.commented events = %d", p)
	}
}

func TestHooksMayReenterSession(t *testing.T) {
	h := newHarness(3)
	var s *Session
	s = h.open(t, Config{
		Surface: models.SurfaceStory,
		Items:   images("a", "b", "c"),
		Hooks: Hooks{OnAdvance: func(index int) {
			if index == 1 {
				s.Advance()
			}
		}},
	})
	defer s.Close()

	s.Advance()
	if got := s.ActiveIndex(); got != 2 {
		t.Fatalf("ActiveIndex = %d, want 2", got)
	}
}
