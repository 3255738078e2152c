/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package progress tracks elapsed time for the active item and signals completion.
package progress

import (
	"sync"
	"time"

	"github.com/friendsincode/grimnir_reels/internal/clock"
)

// Countdown is a pausable, cancellable progress timer. It ticks at a fixed
// interval reporting 0-100 progress and calls OnComplete exactly once when the
// elapsed time reaches the duration. After Cancel returns no callback fires.
type Countdown struct {
	clk        clock.Clock
	interval   time.Duration
	onTick     func(pct float64)
	onComplete func()

	mu        sync.Mutex
	duration  time.Duration
	elapsed   time.Duration
	resumedAt time.Time
	started   bool
	running   bool
	done      bool
	cancelled bool
	pending   clock.Timer
	gen       uint64
}

// Callbacks receives countdown notifications. Either field may be nil.
type Callbacks struct {
	OnTick     func(pct float64)
	OnComplete func()
}

// NewCountdown creates a stopped countdown. Call Start to begin.
func NewCountdown(clk clock.Clock, duration, interval time.Duration, cb Callbacks) *Countdown {
	if interval <= 0 {
		interval = DefaultTick
	}
	if duration <= 0 {
		duration = DefaultMediaFallback
	}
	return &Countdown{
		clk:        clk,
		interval:   interval,
		duration:   duration,
		onTick:     cb.OnTick,
		onComplete: cb.OnComplete,
	}
}

// Start begins counting. Calling Start on a started countdown is a no-op.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started || c.cancelled {
		return
	}
	c.started = true
	c.running = true
	c.resumedAt = c.clk.Now()
	c.scheduleLocked()
}

// Pause freezes elapsed time.
func (c *Countdown) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	c.elapsed += c.clk.Now().Sub(c.resumedAt)
	c.running = false
	c.stopLocked()
}

// Resume continues a paused countdown without resetting elapsed time.
func (c *Countdown) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || c.running || c.done || c.cancelled {
		return
	}
	c.running = true
	c.resumedAt = c.clk.Now()
	c.scheduleLocked()
}

// Cancel stops the countdown permanently.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelled = true
	c.running = false
	c.stopLocked()
}

// Restart resets elapsed time and starts counting again, e.g. when a feed
// video loops.
func (c *Countdown) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancelled {
		return
	}
	c.stopLocked()
	c.elapsed = 0
	c.done = false
	c.started = true
	c.running = true
	c.resumedAt = c.clk.Now()
	c.scheduleLocked()
}

// SetDuration replaces the total duration, e.g. once media is decoded or when
// falling back after an error. A running countdown is rescheduled.
func (c *Countdown) SetDuration(d time.Duration) {
	if d <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done || c.cancelled {
		return
	}
	c.duration = d
	if c.running {
		c.elapsed += c.clk.Now().Sub(c.resumedAt)
		c.resumedAt = c.clk.Now()
		c.stopLocked()
		c.scheduleLocked()
	}
}

// Complete forces completion, e.g. when the media element reports it ended.
func (c *Countdown) Complete() {
	c.mu.Lock()
	if c.done || c.cancelled || !c.started {
		c.mu.Unlock()
		return
	}
	c.finishLocked()
	onTick, onComplete := c.onTick, c.onComplete
	c.mu.Unlock()

	if onTick != nil {
		onTick(100)
	}
	if onComplete != nil {
		onComplete()
	}
}

// Duration returns the current total duration.
func (c *Countdown) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// Elapsed returns the elapsed time, capped at the duration.
func (c *Countdown) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsedLocked()
}

// Progress returns completion in percent, 0-100.
func (c *Countdown) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progressLocked()
}

// Running reports whether the countdown is currently counting.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Done reports whether the countdown completed.
func (c *Countdown) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Countdown) tick(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || !c.running || c.done || c.cancelled {
		c.mu.Unlock()
		return
	}
	c.pending = nil

	if c.elapsedLocked() >= c.duration {
		c.finishLocked()
		onTick, onComplete := c.onTick, c.onComplete
		c.mu.Unlock()

		if onTick != nil {
			onTick(100)
		}
		if onComplete != nil {
			onComplete()
		}
		return
	}

	pct := c.progressLocked()
	c.scheduleLocked()
	onTick := c.onTick
	c.mu.Unlock()

	if onTick != nil {
		onTick(pct)
	}
}

func (c *Countdown) finishLocked() {
	c.elapsed = c.duration
	c.done = true
	c.running = false
	c.stopLocked()
}

func (c *Countdown) scheduleLocked() {
	delay := c.interval
	if remaining := c.duration - c.elapsedLocked(); remaining < delay {
		delay = remaining
	}
	if delay < 0 {
		delay = 0
	}
	gen := c.gen
	c.pending = c.clk.AfterFunc(delay, func() { c.tick(gen) })
}

func (c *Countdown) stopLocked() {
	c.gen++
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

func (c *Countdown) elapsedLocked() time.Duration {
	elapsed := c.elapsed
	if c.running {
		elapsed += c.clk.Now().Sub(c.resumedAt)
	}
	if elapsed > c.duration {
		elapsed = c.duration
	}
	return elapsed
}

func (c *Countdown) progressLocked() float64 {
	if c.duration <= 0 {
		return 0
	}
	return float64(c.elapsedLocked()) / float64(c.duration) * 100
}
