/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package session drives one ordered queue of media items on the story or
// feed surface.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/friendsincode/grimnir_reels/internal/activation"
	"github.com/friendsincode/grimnir_reels/internal/audio"
	"github.com/friendsincode/grimnir_reels/internal/clock"
	"github.com/friendsincode/grimnir_reels/internal/events"
	"github.com/friendsincode/grimnir_reels/internal/models"
	"github.com/friendsincode/grimnir_reels/internal/player"
	"github.com/friendsincode/grimnir_reels/internal/progress"
	"github.com/friendsincode/grimnir_reels/internal/recovery"
	"github.com/friendsincode/grimnir_reels/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrEmptyQueue is returned when a session is opened without items.
	ErrEmptyQueue = errors.New("queue is empty")

	// ErrInvalidSurface is returned for an unknown surface.
	ErrInvalidSurface = errors.New("invalid surface")

	// ErrDuplicateItem is returned when two queue items share an ID.
	ErrDuplicateItem = errors.New("duplicate item id")
)

// Navigation triggers, used for metrics and event payloads.
const (
	triggerOpen       = "open"
	triggerTimer      = "timer"
	triggerVisibility = "visibility"
	triggerUser       = "user"
	triggerKey        = "key"
	triggerTap        = "tap"
	triggerRetry      = "retry"
)

// ElementFactory creates the media element for one queue item. Returning nil
// selects a no-op element.
type ElementFactory func(sessionID string, index int, item models.MediaItem) player.Element

// Defaults tunes playback behaviour shared by sessions.
type Defaults struct {
	Durations   progress.Durations
	Visibility  activation.VisibilityConfig
	UnmuteDelay time.Duration
	MaxRetries  int

	// AutoUnmuteOnView lets feed items unmute without a prior user gesture.
	AutoUnmuteOnView bool
	// PortraitHeuristic limits AutoUnmuteOnView to elements taller than wide.
	PortraitHeuristic bool
}

// DefaultPlayback returns the standard playback defaults.
func DefaultPlayback() Defaults {
	return Defaults{
		Durations:   progress.DefaultDurations(),
		Visibility:  activation.VisibilityConfig{Threshold: activation.DefaultThreshold, SettleDelay: activation.DefaultSettleDelay},
		UnmuteDelay: player.DefaultUnmuteDelay,
		MaxRetries:  recovery.DefaultMaxRetries,
	}
}

func (d Defaults) withDefaults() Defaults {
	d.Durations = d.Durations.WithDefaults()
	if d.UnmuteDelay <= 0 {
		d.UnmuteDelay = player.DefaultUnmuteDelay
	}
	if d.MaxRetries <= 0 {
		d.MaxRetries = recovery.DefaultMaxRetries
	}
	return d
}

// Config describes a session to open.
type Config struct {
	ID           string
	Surface      models.Surface
	Items        []models.MediaItem
	InitialIndex int
	Muted        bool
	Defaults     Defaults
	Elements     ElementFactory
	Hooks        Hooks
	Clock        clock.Clock
	Publisher    events.Publisher
	Logger       zerolog.Logger
}

// ItemSnapshot is the externally visible state of one queue item.
type ItemSnapshot struct {
	ID            string               `json:"id"`
	Kind          models.MediaKind     `json:"kind"`
	State         models.PlaybackState `json:"state"`
	Errored       bool                 `json:"errored"`
	FailureReason string               `json:"failure_reason,omitempty"`
}

// Snapshot is a consistent view of a session.
type Snapshot struct {
	ID             string              `json:"id"`
	Surface        models.Surface      `json:"surface"`
	State          models.SessionState `json:"state"`
	ActiveIndex    int                 `json:"active_index"`
	Muted          bool                `json:"muted"`
	Volume         float64             `json:"volume"`
	UserInteracted bool                `json:"user_interacted"`
	Scrolling      bool                `json:"scrolling"`
	Paused         bool                `json:"paused"`
	Progress       float64             `json:"progress"`
	Items          []ItemSnapshot      `json:"items"`
}

// Session is one playback session. All mutation is serialized by a single
// mutex; timer callbacks re-enter through it and drop themselves when their
// activation token is stale.
type Session struct {
	id       string
	surface  models.Surface
	items    []models.MediaItem
	index    map[string]int
	defaults Defaults
	clk      clock.Clock
	pub      events.Publisher
	hooks    Hooks
	logger   zerolog.Logger
	ctx      context.Context

	policy   *audio.Policy
	registry *player.Registry
	tracker  *recovery.Tracker
	source   activation.Source
	timerSrc *activation.TimerSource
	visSrc   *activation.VisibilitySource

	mu             sync.Mutex
	state          models.SessionState
	nav            navigator
	countdown      *progress.Countdown
	token          uint64
	userInteracted bool
	paused         bool
	blocked        bool
	buffering      bool
	decoded        map[string]time.Duration
	dims           map[string][2]int
	reported       []models.PlaybackState
	pending        []func()
}

// Open validates the queue, binds a controller to every item and activates
// the initial index.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	if !cfg.Surface.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSurface, cfg.Surface)
	}
	if len(cfg.Items) == 0 {
		return nil, ErrEmptyQueue
	}

	items := append([]models.MediaItem(nil), cfg.Items...)
	index := make(map[string]int, len(items))
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if _, dup := index[item.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, item.ID)
		}
		index[item.ID] = i
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = events.Discard
	}

	s := &Session{
		id:       id,
		surface:  cfg.Surface,
		items:    items,
		index:    index,
		defaults: cfg.Defaults.withDefaults(),
		clk:      clk,
		pub:      pub,
		hooks:    cfg.Hooks,
		logger:   cfg.Logger.With().Str("component", "session").Str("session_id", id).Str("surface", string(cfg.Surface)).Logger(),
		ctx:      context.WithoutCancel(ctx),
		policy:   audio.NewPolicy(cfg.Muted),
		state:    models.SessionOpening,
		decoded:  make(map[string]time.Duration),
		dims:     make(map[string][2]int),
		reported: make([]models.PlaybackState, len(items)),
	}

	controllers := make([]*player.MediaController, len(items))
	for i, item := range items {
		var el player.Element
		if cfg.Elements != nil {
			el = cfg.Elements(id, i, item)
		}
		controllers[i] = player.NewMediaController(player.ControllerConfig{
			Index:            i,
			Item:             item,
			Element:          el,
			Policy:           s.policy,
			Clock:            clk,
			Logger:           s.logger,
			OnUnmuteRejected: s.onUnmuteRejected,
		})
		s.reported[i] = models.PlaybackIdle
	}
	s.registry = player.NewRegistry(controllers)
	s.nav = newNavigator(len(items), cfg.InitialIndex)

	if cfg.Surface == models.SurfaceStory {
		s.tracker = recovery.NewTracker(recovery.AutoAdvance, s.defaults.MaxRetries)
		s.timerSrc = activation.NewTimerSource(s.onTimerProposal)
		s.source = s.timerSrc
	} else {
		s.tracker = recovery.NewTracker(recovery.ManualSkip, s.defaults.MaxRetries)
		s.visSrc = activation.NewVisibilitySource(clk, s.defaults.Visibility, s.nav.active, s.onVisibilityProposal)
		s.source = s.visSrc
	}

	telemetry.SessionsOpenedTotal.WithLabelValues(string(cfg.Surface)).Inc()
	telemetry.SessionsActive.Inc()

	s.mu.Lock()
	s.state = models.SessionActive
	s.publishLocked(events.EventSessionOpened, events.Payload{
		"items":        len(items),
		"active_index": s.nav.active,
		"muted":        cfg.Muted,
	})
	s.activateLocked(s.nav.active, triggerOpen)
	s.unlock()

	s.logger.Info().Int("items", len(items)).Int("initial_index", s.nav.active).Msg("session opened")
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Surface returns the surface the session drives.
func (s *Session) Surface() models.Surface { return s.surface }

// State returns the lifecycle state.
func (s *Session) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveIndex returns the index of the active item.
func (s *Session) ActiveIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.active
}

// Items returns a copy of the queue.
func (s *Session) Items() []models.MediaItem {
	return append([]models.MediaItem(nil), s.items...)
}

// Failures returns the recorded item failures.
func (s *Session) Failures() []recovery.Failure {
	return s.tracker.Failures()
}

// Playing returns the indexes currently playing or loading.
func (s *Session) Playing() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Playing()
}

// Close stops every timer, pauses every element and resets the audio policy.
// It is synchronous and idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	s.closeLocked("closed")
	s.unlock()
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	audioState := s.policy.State()
	snap := Snapshot{
		ID:             s.id,
		Surface:        s.surface,
		State:          s.state,
		ActiveIndex:    s.nav.active,
		Muted:          audioState.Muted,
		Volume:         audioState.Volume,
		UserInteracted: s.userInteracted,
		Paused:         s.paused || s.blocked,
		Items:          make([]ItemSnapshot, len(s.items)),
	}
	if s.visSrc != nil {
		snap.Scrolling = s.visSrc.Scrolling()
	}
	if s.countdown != nil {
		snap.Progress = s.countdown.Progress()
	}
	for i, item := range s.items {
		is := ItemSnapshot{
			ID:    item.ID,
			Kind:  item.Kind,
			State: s.registry.Get(i).State(),
		}
		if f, ok := s.tracker.Get(item.ID); ok {
			is.Errored = true
			is.FailureReason = string(f.Reason)
		}
		snap.Items[i] = is
	}
	return snap
}

// lockActive takes the session lock when the session is active. On false the
// lock is not held.
func (s *Session) lockActive() bool {
	s.mu.Lock()
	if s.state != models.SessionActive {
		s.mu.Unlock()
		return false
	}
	return true
}

// unlock releases the session lock and then runs the hooks, publications and
// deferred component calls queued while it was held.
func (s *Session) unlock() {
	if s.state == models.SessionActive {
		s.syncStatesLocked()
	}
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

func (s *Session) deferLocked(fn func()) {
	s.pending = append(s.pending, fn)
}

func (s *Session) publishLocked(eventType events.EventType, payload events.Payload) {
	payload["session_id"] = s.id
	pub := s.pub
	s.deferLocked(func() { pub.Publish(eventType, payload) })
}

func (s *Session) syncStatesLocked() {
	for i, item := range s.items {
		st := s.registry.Get(i).State()
		if st == s.reported[i] {
			continue
		}
		s.reported[i] = st
		itemID := item.ID
		if hook := s.hooks.OnStateChange; hook != nil {
			s.deferLocked(func() { hook(itemID, st) })
		}
		s.publishLocked(events.EventItemState, events.Payload{
			"index":   i,
			"item_id": itemID,
			"state":   string(st),
		})
	}
}

func (s *Session) staleLocked(token uint64) bool {
	return s.state != models.SessionActive || token != s.token
}

// activateLocked makes index the active item. It pauses every other
// controller first, replaces the countdown and rebinds the activation source.
func (s *Session) activateLocked(index int, trigger string) {
	s.token++
	token := s.token
	if s.countdown != nil {
		s.countdown.Cancel()
		s.countdown = nil
	}

	prev := s.nav.active
	s.nav.active = index
	s.paused, s.blocked, s.buffering = false, false, false
	s.registry.PauseAllExcept(index)

	item := s.items[index]
	ctrl := s.registry.Get(index)
	s.countdown = progress.NewCountdown(s.clk, s.defaults.Durations.For(item, s.decoded[item.ID]), s.defaults.Durations.Tick, progress.Callbacks{
		OnTick:     func(pct float64) { s.onTick(token, pct) },
		OnComplete: func() { s.onComplete(token) },
	})
	s.source.SetActive(index)

	telemetry.ActivationsTotal.WithLabelValues(string(s.surface), string(item.Kind)).Inc()
	s.publishLocked(events.EventItemActivated, events.Payload{
		"index":   index,
		"item_id": item.ID,
		"kind":    string(item.Kind),
		"trigger": trigger,
	})
	if trigger != triggerOpen && index != prev {
		telemetry.AdvancesTotal.WithLabelValues(string(s.surface), trigger).Inc()
		s.publishLocked(events.EventSessionAdvanced, events.Payload{
			"from":    prev,
			"to":      index,
			"trigger": trigger,
		})
		if hook := s.hooks.OnAdvance; hook != nil {
			s.deferLocked(func() { hook(index) })
		}
	}

	s.logger.Debug().Int("index", index).Str("item_id", item.ID).Str("trigger", trigger).Msg("activating item")

	if s.tracker.Failed(item.ID) {
		ctrl.MarkErrored()
		s.applyFailurePolicyLocked(item)
		return
	}

	err := ctrl.Activate(s.ctx, player.ActivateOptions{
		UserInteracted: s.userInteracted,
		AutoUnmute:     s.autoUnmuteLocked(index),
		UnmuteDelay:    s.defaults.UnmuteDelay,
	})
	switch {
	case err == nil:
		s.countdown.Start()
	case errors.Is(err, player.ErrPlaybackRejected):
		s.blocked = true
		telemetry.AutoplayRejectionsTotal.Inc()
	default:
		s.failLocked(index, recovery.ReasonLoad, err)
	}
}

func (s *Session) autoUnmuteLocked(index int) bool {
	if s.surface != models.SurfaceFeed || !s.defaults.AutoUnmuteOnView {
		return false
	}
	if !s.defaults.PortraitHeuristic {
		return true
	}
	item := s.items[index]
	if d, ok := s.dims[item.ID]; ok {
		return d[1] > d[0]
	}
	w, h, ok := s.registry.Get(index).Dimensions()
	return ok && h > w
}

// failLocked records a failure for index. The queue keeps going: story items
// run out the fallback duration, feed items wait for a retry or a skip.
func (s *Session) failLocked(index int, reason recovery.Reason, err error) {
	item := s.items[index]
	s.registry.Get(index).MarkErrored()
	f := s.tracker.Mark(item.ID, index, reason, err, s.clk.Now())

	telemetry.ItemErrorsTotal.WithLabelValues(string(s.surface), string(reason)).Inc()
	s.logger.Warn().
		Err(err).
		Str("item_id", item.ID).
		Str("reason", string(reason)).
		Int("attempts", f.Attempts).
		Msg("item failed")

	payload := events.Payload{
		"index":    index,
		"item_id":  item.ID,
		"reason":   string(reason),
		"attempts": f.Attempts,
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	s.publishLocked(events.EventItemErrored, payload)

	if index == s.nav.active {
		s.blocked, s.buffering = false, false
		s.applyFailurePolicyLocked(item)
	}
}

func (s *Session) applyFailurePolicyLocked(item models.MediaItem) {
	if s.countdown == nil {
		return
	}
	if s.tracker.Policy() == recovery.ManualSkip {
		s.countdown.Cancel()
		return
	}
	if item.Kind.HasMedia() {
		s.countdown.SetDuration(s.defaults.Durations.MediaFallback)
	}
	if !s.paused {
		s.countdown.Start()
		s.countdown.Resume()
	}
}

func (s *Session) onTick(token uint64, pct float64) {
	s.mu.Lock()
	if s.staleLocked(token) {
		s.mu.Unlock()
		return
	}
	index := s.nav.active
	if hook := s.hooks.OnProgress; hook != nil {
		s.deferLocked(func() { hook(index, pct) })
	}
	s.unlock()
}

func (s *Session) onComplete(token uint64) {
	s.mu.Lock()
	if s.staleLocked(token) {
		s.mu.Unlock()
		return
	}
	defer s.unlock()

	index := s.nav.active
	item := s.items[index]
	ctrl := s.registry.Get(index)

	if s.surface == models.SurfaceFeed {
		if item.Kind.HasMedia() && ctrl.State() != models.PlaybackErrored {
			s.loopLocked(index)
		}
		return
	}

	if ctrl.State() == models.PlaybackPlaying {
		ctrl.MarkCompleted()
	}
	src := s.timerSrc
	s.deferLocked(func() { src.Complete(index) })
}

// loopLocked restarts a completed feed video in place.
func (s *Session) loopLocked(index int) {
	ctrl := s.registry.Get(index)
	ctrl.MarkCompleted()
	err := ctrl.Restart(s.ctx)
	switch {
	case err == nil:
		s.countdown.Restart()
	case errors.Is(err, player.ErrPlaybackRejected):
		s.blocked = true
		telemetry.AutoplayRejectionsTotal.Inc()
	default:
		s.failLocked(index, recovery.ReasonPlayback, err)
	}
}

func (s *Session) onTimerProposal(next int) {
	s.mu.Lock()
	if s.state != models.SessionActive || next != s.nav.active+1 {
		s.mu.Unlock()
		return
	}
	s.advanceLocked(triggerTimer)
	s.unlock()
}

func (s *Session) onVisibilityProposal(index int) {
	s.mu.Lock()
	if s.state != models.SessionActive || index < 0 || index >= len(s.items) || index == s.nav.active {
		s.mu.Unlock()
		return
	}
	s.activateLocked(index, triggerVisibility)
	s.unlock()
}

func (s *Session) onUnmuteRejected(itemID string) {
	telemetry.AutoplayRejectionsTotal.Inc()
	s.logger.Debug().Str("item_id", itemID).Msg("unmute refused, continuing muted")
}

func (s *Session) closeLocked(reason string) bool {
	if s.state == models.SessionClosing || s.state == models.SessionClosed {
		return false
	}
	s.state = models.SessionClosing
	s.token++

	if s.countdown != nil {
		s.countdown.Cancel()
		s.countdown = nil
	}
	s.source.Close()
	s.registry.DeactivateAll()
	s.policy.Reset()
	s.syncStatesLocked()

	s.state = models.SessionClosed
	telemetry.SessionsActive.Dec()
	s.publishLocked(events.EventSessionClosed, events.Payload{
		"reason":       reason,
		"active_index": s.nav.active,
	})
	if hook := s.hooks.OnClose; hook != nil {
		s.deferLocked(hook)
	}
	s.logger.Info().Str("reason", reason).Msg("session closed")
	return true
}
