/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package activation

import (
	"sync"
	"time"

	"github.com/friendsincode/grimnir_reels/internal/clock"
)

// Visibility defaults.
const (
	DefaultThreshold   = 0.7
	DefaultSettleDelay = 300 * time.Millisecond
	MinSettleDelay     = 150 * time.Millisecond
	MaxSettleDelay     = 500 * time.Millisecond
)

// VisibilityConfig tunes a VisibilitySource.
type VisibilityConfig struct {
	Threshold   float64
	SettleDelay time.Duration
}

// VisibilitySource proposes the feed item whose viewport intersection ratio
// crosses the threshold. While the user is scrolling, crossings are buffered
// and only the index that settles once scrolling stops is proposed.
type VisibilitySource struct {
	clk       clock.Clock
	threshold float64
	settle    time.Duration
	sink      Sink

	mu        sync.Mutex
	ratios    map[int]float64
	active    int
	scrolling bool
	timer     clock.Timer
	gen       uint64
	closed    bool
}

// NewVisibilitySource creates a visibility-driven source starting with active
// as the current index.
func NewVisibilitySource(clk clock.Clock, cfg VisibilityConfig, active int, sink Sink) *VisibilitySource {
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	return &VisibilitySource{
		clk:       clk,
		threshold: cfg.Threshold,
		settle:    cfg.SettleDelay,
		sink:      sink,
		ratios:    make(map[int]float64),
		active:    active,
	}
}

// Observe records the intersection ratio for index, as an intersection
// observer callback would.
func (s *VisibilitySource) Observe(index int, ratio float64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	prev := s.ratios[index]
	s.ratios[index] = ratio

	crossed := prev < s.threshold && ratio >= s.threshold
	if s.scrolling || !crossed || index == s.active {
		s.mu.Unlock()
		return
	}
	deliver := s.proposeLocked(index)
	s.mu.Unlock()

	deliver()
}

// ScrollStart marks the beginning of a touch or wheel gesture.
func (s *VisibilitySource) ScrollStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.scrolling = true
	s.armLocked()
}

// ScrollEvent reports continued scrolling and pushes the settle deadline out.
func (s *VisibilitySource) ScrollEvent() {
	s.ScrollStart()
}

// Scrolling reports whether proposals are currently being buffered.
func (s *VisibilitySource) Scrolling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrolling
}

// SetActive implements Source.
func (s *VisibilitySource) SetActive(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = index
}

// Close implements Source.
func (s *VisibilitySource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.scrolling = false
	s.stopLocked()
}

func (s *VisibilitySource) armLocked() {
	s.stopLocked()
	gen := s.gen
	s.timer = s.clk.AfterFunc(s.settle, func() { s.settled(gen) })
}

func (s *VisibilitySource) stopLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *VisibilitySource) settled(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.scrolling = false

	best, ok := s.bestLocked()
	if !ok || best == s.active {
		s.mu.Unlock()
		return
	}
	deliver := s.proposeLocked(best)
	s.mu.Unlock()

	deliver()
}

// bestLocked returns the most visible index at or above the threshold. Ties
// go to the lower index.
func (s *VisibilitySource) bestLocked() (int, bool) {
	best, bestRatio, found := 0, 0.0, false
	for index, ratio := range s.ratios {
		if ratio < s.threshold {
			continue
		}
		if !found || ratio > bestRatio || (ratio == bestRatio && index < best) {
			best, bestRatio, found = index, ratio, true
		}
	}
	return best, found
}

func (s *VisibilitySource) proposeLocked(index int) func() {
	s.active = index
	sink := s.sink
	if sink == nil {
		return func() {}
	}
	return func() { sink(index) }
}
