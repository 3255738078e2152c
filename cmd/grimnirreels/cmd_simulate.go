/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/grimnir_reels/internal/clock"
	"github.com/friendsincode/grimnir_reels/internal/content"
	"github.com/friendsincode/grimnir_reels/internal/events"
	"github.com/friendsincode/grimnir_reels/internal/logging"
	"github.com/friendsincode/grimnir_reels/internal/models"
	"github.com/friendsincode/grimnir_reels/internal/player"
	"github.com/friendsincode/grimnir_reels/internal/progress"
	"github.com/friendsincode/grimnir_reels/internal/session"
)

// Simulate flags
var (
	simulateFile          string
	simulateCollection    string
	simulateSurface       string
	simulateFail          []string
	simulateMuted         bool
	simulateStatic        time.Duration
	simulateMediaFallback time.Duration
	simulateFor           time.Duration
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play a collection headlessly and print session events",
	Long: `Opens a playback session over a collection from a YAML content file using
simulated media elements and the real clock, and prints every session event.

Stories run until the last item completes. Feeds never complete on their own;
use --for to bound them, or interrupt with Ctrl-C.

Examples:
  grimnirreels simulate --file content.yaml --collection spring-launch
  grimnirreels simulate --file content.yaml --collection spring-launch --fail s2
  grimnirreels simulate --file content.yaml --collection moments --surface feed --for 20s`,
	RunE: runSimulateCmd,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simulateFile, "file", "", "Path to YAML content file (required)")
	simulateCmd.Flags().StringVar(&simulateCollection, "collection", "", "Collection ID to play (required)")
	simulateCmd.Flags().StringVar(&simulateSurface, "surface", "", "story or feed (default: the collection's surface)")
	simulateCmd.Flags().StringSliceVar(&simulateFail, "fail", nil, "Item IDs whose media fails to load")
	simulateCmd.Flags().BoolVar(&simulateMuted, "muted", true, "Start muted")
	simulateCmd.Flags().DurationVar(&simulateStatic, "static", progress.DefaultStatic, "Duration of image and text-card items")
	simulateCmd.Flags().DurationVar(&simulateMediaFallback, "media-fallback", progress.DefaultMediaFallback, "Duration of media items without a known length")
	simulateCmd.Flags().DurationVar(&simulateFor, "for", 0, "Stop after this long (0 = until the session closes)")
	simulateCmd.MarkFlagRequired("file")
	simulateCmd.MarkFlagRequired("collection")
}

type simulateOptions struct {
	File          string
	Collection    string
	Surface       models.Surface
	Fail          []string
	Muted         bool
	Static        time.Duration
	MediaFallback time.Duration
	For           time.Duration
}

func runSimulateCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logging.SetupWithWriter("development", os.Stderr)
	return runSimulation(ctx, cmd.OutOrStdout(), log, simulateOptions{
		File:          simulateFile,
		Collection:    simulateCollection,
		Surface:       models.Surface(simulateSurface),
		Fail:          simulateFail,
		Muted:         simulateMuted,
		Static:        simulateStatic,
		MediaFallback: simulateMediaFallback,
		For:           simulateFor,
	})
}

// runSimulation plays one session to completion, interruption or opts.For,
// writing one line per event to out.
func runSimulation(ctx context.Context, out io.Writer, log zerolog.Logger, opts simulateOptions) error {
	f, err := content.LoadFile(opts.File)
	if err != nil {
		return err
	}
	repo := content.NewFileRepository(f)

	surface := opts.Surface
	if surface == "" {
		c, ok := repo.Collection(opts.Collection)
		if !ok {
			return fmt.Errorf("collection %q: %w", opts.Collection, content.ErrCollectionNotFound)
		}
		surface = c.Surface
		if surface == "" {
			surface = models.SurfaceStory
		}
	}

	failing := make(map[string]bool, len(opts.Fail))
	for _, id := range opts.Fail {
		failing[id] = true
	}

	defaults := session.DefaultPlayback()
	defaults.Durations.Static = opts.Static
	defaults.Durations.MediaFallback = opts.MediaFallback

	bus := events.NewBus()
	feed, unsubscribe := subscribeAll(bus)
	defer unsubscribe()

	var closeOnce sync.Once
	closed := make(chan struct{})

	manager := session.NewManager(repo, defaults, clock.Real(), bus, log)
	defer manager.CloseAll()

	s, err := manager.Open(ctx, session.OpenRequest{
		CollectionID: opts.Collection,
		Surface:      surface,
		Muted:        opts.Muted,
		Elements: func(_ string, _ int, item models.MediaItem) player.Element {
			el := player.NewSimElement()
			el.SetDimensions(1080, 1920)
			if failing[item.ID] {
				el.FailPlay(fmt.Errorf("%w: simulated failure for %s", player.ErrLoad, item.ID))
			}
			return el
		},
		Hooks: session.Hooks{OnClose: func() { closeOnce.Do(func() { close(closed) }) }},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "session %s: %d items on %s\n", s.ID(), len(s.Items()), surface)

	var deadline <-chan time.Time
	if opts.For > 0 {
		timer := time.NewTimer(opts.For)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case evt := <-feed:
			printEvent(out, evt)
		case <-closed:
			drain(out, feed)
			return nil
		case <-deadline:
			s.Close()
		case <-ctx.Done():
			s.Close()
			drain(out, feed)
			return nil
		}
	}
}

type printedEvent struct {
	at        time.Time
	eventType events.EventType
	payload   events.Payload
}

// subscribeAll merges every session event type into one channel.
func subscribeAll(bus *events.Bus) (<-chan printedEvent, func()) {
	out := make(chan printedEvent, 256)
	done := make(chan struct{})
	var wg sync.WaitGroup

	for _, eventType := range events.SessionEvents {
		sub := bus.Subscribe(eventType)
		wg.Add(1)
		go func(eventType events.EventType, sub events.Subscriber) {
			defer wg.Done()
			defer bus.Unsubscribe(eventType, sub)
			for {
				select {
				case <-done:
					return
				case payload := <-sub:
					select {
					case out <- printedEvent{at: time.Now(), eventType: eventType, payload: payload}:
					case <-done:
						return
					}
				}
			}
		}(eventType, sub)
	}

	return out, func() {
		close(done)
		wg.Wait()
	}
}

// drain prints events that were published before the session closed.
func drain(out io.Writer, feed <-chan printedEvent) {
	grace := time.After(50 * time.Millisecond)
	for {
		select {
		case evt := <-feed:
			printEvent(out, evt)
		case <-grace:
			return
		}
	}
}

func printEvent(out io.Writer, evt printedEvent) {
	payload := make(events.Payload, len(evt.payload))
	for k, v := range evt.payload {
		if k != "session_id" {
			payload[k] = v
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", payload))
	}
	fmt.Fprintf(out, "%s  %-20s %s\n", evt.at.Format("15:04:05.000"), evt.eventType, data)
}
