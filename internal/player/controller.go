package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/friendsincode/grimnir_reels/internal/audio"
	"github.com/friendsincode/grimnir_reels/internal/clock"
	"github.com/friendsincode/grimnir_reels/internal/models"
	"github.com/rs/zerolog"
)

// DefaultUnmuteDelay is how long a freshly started item stays muted before the
// controller tries to apply an unmuted policy.
const DefaultUnmuteDelay = 200 * time.Millisecond

// ControllerConfig wires a MediaController to its element and session services.
type ControllerConfig struct {
	Index   int
	Item    models.MediaItem
	Element Element
	Policy  *audio.Policy
	Clock   clock.Clock
	Logger  zerolog.Logger

	// OnUnmuteRejected is called, without locks held, when the delayed unmute
	// was refused and the element fell back to muted playback.
	OnUnmuteRejected func(itemID string)
}

// ActivateOptions controls the autoplay handshake for one activation.
type ActivateOptions struct {
	UserInteracted bool
	AutoUnmute     bool
	UnmuteDelay    time.Duration
}

// MediaController owns playback of one queue item.
type MediaController struct {
	index      int
	item       models.MediaItem
	el         Element
	policy     *audio.Policy
	clk        clock.Clock
	onRejected func(string)
	logger     zerolog.Logger

	mu          sync.Mutex
	state       models.PlaybackState
	unsubscribe func()
	unmute      clock.Timer
	unmuteDelay time.Duration
	gen         uint64

	// forcedMute is set while the element is muted by the autoplay handshake
	// rather than by the policy.
	forcedMute bool
}

// NewMediaController creates an idle controller.
func NewMediaController(cfg ControllerConfig) *MediaController {
	el := cfg.Element
	if el == nil {
		el = StaticElement{}
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &MediaController{
		index:      cfg.Index,
		item:       cfg.Item,
		el:         el,
		policy:     cfg.Policy,
		clk:        clk,
		onRejected: cfg.OnUnmuteRejected,
		logger:     cfg.Logger.With().Str("component", "player").Str("item_id", cfg.Item.ID).Logger(),
		state:      models.PlaybackIdle,
	}
}

// Index returns the queue position this controller is bound to.
func (c *MediaController) Index() int { return c.index }

// Item returns the bound media item.
func (c *MediaController) Item() models.MediaItem { return c.item }

// Element returns the underlying media element.
func (c *MediaController) Element() Element { return c.el }

// State returns the current playback state.
func (c *MediaController) State() models.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dimensions reports the element's decoded size when it knows it.
func (c *MediaController) Dimensions() (int, int, bool) {
	if dr, ok := c.el.(DimensionReporter); ok {
		return dr.Dimensions()
	}
	return 0, 0, false
}

// Activate starts the item muted and, when allowed, schedules the unmute.
//
// A nil error means the item is playing. An error wrapping ErrPlaybackRejected
// leaves the item paused and is not a failure. Any other error wraps ErrLoad
// and leaves the item errored.
func (c *MediaController) Activate(ctx context.Context, opts ActivateOptions) error {
	c.mu.Lock()
	c.cancelUnmuteLocked()
	c.transitionLocked(models.PlaybackLoading)

	state := c.policyState()
	c.el.SetVolume(state.Volume)
	c.el.SetMuted(true)
	c.forcedMute = !state.Muted
	c.unmuteDelay = opts.UnmuteDelay
	c.el.Seek(0)

	err := c.el.Play(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrPlaybackRejected):
		c.transitionLocked(models.PlaybackPaused)
		c.mu.Unlock()
		c.logger.Debug().Msg("autoplay rejected, holding muted")
		return fmt.Errorf("activate %s: %w", c.item.ID, err)
	default:
		c.transitionLocked(models.PlaybackErrored)
		c.mu.Unlock()
		c.logger.Warn().Err(err).Msg("media failed to start")
		if errors.Is(err, ErrLoad) {
			return fmt.Errorf("activate %s: %w", c.item.ID, err)
		}
		return fmt.Errorf("activate %s: %w: %v", c.item.ID, ErrLoad, err)
	}

	c.transitionLocked(models.PlaybackPlaying)
	c.subscribeLocked()

	if !state.Muted && (opts.UserInteracted || opts.AutoUnmute) {
		c.scheduleUnmuteLocked()
	}
	c.mu.Unlock()
	return nil
}

// Deactivate pauses the element and detaches it from the audio policy. The
// element itself is kept for a later activation.
func (c *MediaController) Deactivate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelUnmuteLocked()
	c.unsubscribeLocked()
	c.el.Pause()
	if c.state == models.PlaybackPlaying || c.state == models.PlaybackLoading {
		c.transitionLocked(models.PlaybackPaused)
	}
	if c.state != models.PlaybackIdle {
		c.transitionLocked(models.PlaybackIdle)
	}
}

// Pause holds playback of an active item.
func (c *MediaController) Pause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != models.PlaybackPlaying {
		return false
	}
	c.el.Pause()
	return c.transitionLocked(models.PlaybackPaused)
}

// Resume continues a paused item. A rejection keeps it paused. Resume is a
// user gesture, so an element still muted by the autoplay handshake gets its
// delayed unmute again when the policy is unmuted.
func (c *MediaController) Resume(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != models.PlaybackPaused {
		return nil
	}
	if err := c.el.Play(ctx); err != nil {
		return fmt.Errorf("resume %s: %w", c.item.ID, err)
	}
	c.transitionLocked(models.PlaybackPlaying)
	c.subscribeLocked()

	if c.forcedMute && c.unmute == nil && !c.policyState().Muted {
		c.scheduleUnmuteLocked()
	}
	return nil
}

// Restart seeks to the start and plays again, used when feed videos loop.
func (c *MediaController) Restart(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == models.PlaybackIdle || c.state == models.PlaybackErrored {
		return nil
	}
	c.transitionLocked(models.PlaybackLoading)
	c.el.Seek(0)
	if err := c.el.Play(ctx); err != nil {
		c.transitionLocked(models.PlaybackPaused)
		return fmt.Errorf("restart %s: %w", c.item.ID, err)
	}
	c.transitionLocked(models.PlaybackPlaying)
	return nil
}

// MarkErrored records a load or playback failure reported by the element.
func (c *MediaController) MarkErrored() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelUnmuteLocked()
	c.el.Pause()
	return c.transitionLocked(models.PlaybackErrored)
}

// MarkCompleted records that the item reached its end.
func (c *MediaController) MarkCompleted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transitionLocked(models.PlaybackCompleted)
}

// MarkPaused forces the paused state, for rejections that arrive after Play
// had already reported success.
func (c *MediaController) MarkPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelUnmuteLocked()
	c.el.SetMuted(true)
	c.forcedMute = !c.policyState().Muted
	return c.transitionLocked(models.PlaybackPaused)
}

func (c *MediaController) policyState() audio.State {
	if c.policy == nil {
		return audio.State{Muted: true, Volume: 1}
	}
	return c.policy.State()
}

func (c *MediaController) scheduleUnmuteLocked() {
	delay := c.unmuteDelay
	if delay <= 0 {
		delay = DefaultUnmuteDelay
	}
	gen := c.gen
	c.unmute = c.clk.AfterFunc(delay, func() { c.applyUnmute(gen) })
}

func (c *MediaController) applyUnmute(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.unmute = nil
	if c.state != models.PlaybackPlaying {
		// Resume schedules the unmute again while forcedMute is still set.
		c.mu.Unlock()
		return
	}
	if c.policyState().Muted {
		c.forcedMute = false
		c.mu.Unlock()
		return
	}

	c.el.SetMuted(false)
	err := c.el.Play(context.Background())
	if err == nil {
		c.forcedMute = false
		c.mu.Unlock()
		c.logger.Debug().Msg("unmuted")
		return
	}
	c.el.SetMuted(true)
	c.mu.Unlock()

	c.logger.Debug().Err(err).Msg("unmute rejected, staying muted")
	if c.onRejected != nil {
		c.onRejected(c.item.ID)
	}
}

// onPolicy applies mute and volume changes made while this item is active.
func (c *MediaController) onPolicy(state audio.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unsubscribe == nil {
		return
	}
	c.cancelUnmuteLocked()
	c.forcedMute = false
	c.el.SetVolume(state.Volume)
	c.el.SetMuted(state.Muted)
}

func (c *MediaController) subscribeLocked() {
	if c.policy == nil || c.unsubscribe != nil {
		return
	}
	c.unsubscribe = c.policy.Subscribe(c.onPolicy)
}

func (c *MediaController) unsubscribeLocked() {
	if c.unsubscribe == nil {
		return
	}
	c.unsubscribe()
	c.unsubscribe = nil
}

func (c *MediaController) cancelUnmuteLocked() {
	c.gen++
	if c.unmute != nil {
		c.unmute.Stop()
		c.unmute = nil
	}
}

func (c *MediaController) transitionLocked(to models.PlaybackState) bool {
	from := c.state
	if from == to {
		return false
	}
	if !isValidTransition(from, to) {
		c.logger.Debug().
			Str("from", string(from)).
			Str("to", string(to)).
			Msg("ignoring invalid playback transition")
		return false
	}
	c.state = to
	c.logger.Debug().
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("playback transition")
	return true
}
