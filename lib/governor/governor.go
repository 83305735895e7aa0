// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package governor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bureau-foundation/clockgov/lib/clock"
	"github.com/bureau-foundation/clockgov/lib/config"
	"github.com/bureau-foundation/clockgov/lib/device"
)

// PinRecorder is told about every clock lock the governor applies and
// every reset that removes one. *ledger.Ledger implements it.
type PinRecorder interface {
	Pin(device, mhz int) error
	Unpin(device int) error
}

// Options configures a Governor.
type Options struct {
	// Controller issues device queries and commands. Required.
	Controller device.Controller

	// Config supplies thresholds, timing and the governed set. It must
	// already have passed Validate. Required.
	Config *config.Config

	// Clock drives the poll interval and the verify delay. Defaults to
	// the real clock.
	Clock clock.Clock

	// Logger receives per-device decisions and failures. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Pins, when set, records applied locks so they can be undone
	// after a crash.
	Pins PinRecorder
}

// Governor runs the control loop over a fixed set of devices.
type Governor struct {
	controller  device.Controller
	validator   *Validator
	clock       clock.Clock
	logger      *slog.Logger
	pins        PinRecorder
	low         int
	high        int
	interval    time.Duration
	verifyDelay time.Duration

	// devices is ordered by index and never modified after New.
	devices []*deviceState

	restoreOnce sync.Once
	restoreErr  error
}

// deviceState is the governor's record of one device. mu is held for
// the whole decide, lock and update sequence and by the reset pass.
type deviceState struct {
	mu        sync.Mutex
	index     int
	lowClock  int
	highClock int
	mode      Mode
}

// New builds a Governor from opts. It does not touch any device.
func New(opts Options) (*Governor, error) {
	if opts.Controller == nil {
		return nil, errors.New("governor: Controller is required")
	}
	if opts.Config == nil {
		return nil, errors.New("governor: Config is required")
	}
	if len(opts.Config.Devices) == 0 {
		return nil, errors.New("governor: no devices to govern")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	governor := &Governor{
		controller:  opts.Controller,
		validator:   NewValidator(opts.Controller),
		clock:       opts.Clock,
		logger:      opts.Logger,
		pins:        opts.Pins,
		low:         opts.Config.LowUsageThreshold,
		high:        opts.Config.HighUsageThreshold,
		interval:    opts.Config.CheckInterval(),
		verifyDelay: opts.Config.VerifyDelay(),
	}
	for _, entry := range opts.Config.Devices {
		governor.devices = append(governor.devices, &deviceState{
			index:     entry.Index,
			lowClock:  entry.LowClockMHz,
			highClock: entry.HighClockMHz,
		})
	}
	sort.Slice(governor.devices, func(i, j int) bool {
		return governor.devices[i].index < governor.devices[j].index
	})
	return governor, nil
}

// Mode returns the current mode of the device at index, or ModeUnset
// for a device that is not governed.
func (g *Governor) Mode(index int) Mode {
	for _, state := range g.devices {
		if state.index == index {
			state.mu.Lock()
			defer state.mu.Unlock()
			return state.mode
		}
	}
	return ModeUnset
}

// Run executes a cycle immediately and then one per interval until ctx
// is cancelled. Cancellation is observed between cycles and before
// each device's work starts; work already in progress completes.
func (g *Governor) Run(ctx context.Context) {
	g.logger.Info("governor started",
		"devices", len(g.devices),
		"low_usage_threshold", g.low,
		"high_usage_threshold", g.high,
		"check_interval", g.interval,
	)
	for {
		g.RunCycle(ctx)

		select {
		case <-ctx.Done():
			g.logger.Info("governor stopping")
			return
		case <-g.clock.After(g.interval):
		}
	}
}

// RunCycle processes every governed device once, in parallel, and
// returns when all of them are done. A failure on one device never
// affects the others.
func (g *Governor) RunCycle(ctx context.Context) {
	var wg sync.WaitGroup
	for _, state := range g.devices {
		state := state
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.governDevice(ctx, state)
		}()
	}
	wg.Wait()
}

func (g *Governor) governDevice(ctx context.Context, state *deviceState) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	// Once started, a device's work is not interrupted by shutdown.
	ctx = context.WithoutCancel(ctx)
	logger := g.logger.With("device", state.index)

	sample := g.controller.Utilization(ctx, state.index)
	utilization, ok := sample.Get()
	if !ok {
		logger.Warn("utilization unreadable, skipping device this cycle", "error", sample.Err())
		return
	}
	current := g.controller.CurrentClock(ctx, state.index)

	target, act := Decide(utilization, g.low, g.high)
	if !act {
		logger.Debug("utilization within dead band",
			"utilization", utilization,
			"current_mhz", current.String(),
			"mode", state.mode.String(),
		)
		return
	}
	if target == state.mode {
		logger.Debug("already in target mode",
			"utilization", utilization,
			"mode", target.String(),
			"current_mhz", current.String(),
		)
		return
	}

	requested := state.lowClock
	if target == ModeHigh {
		requested = state.highClock
	}

	if err := g.validator.Validate(ctx, state.index, requested); err != nil {
		logger.Warn("skipping clock change",
			"utilization", utilization,
			"requested_mhz", requested,
			"error", err,
		)
		return
	}

	if err := g.controller.LockClock(ctx, state.index, requested); err != nil {
		logger.Error("locking clock failed",
			"utilization", utilization,
			"requested_mhz", requested,
			"mode", state.mode.String(),
			"error", err,
		)
		return
	}

	previous := state.mode
	state.mode = target
	logger.Info("clock locked",
		"utilization", utilization,
		"previous_mode", previous.String(),
		"mode", target.String(),
		"previous_mhz", current.String(),
		"requested_mhz", requested,
	)
	if g.pins != nil {
		if err := g.pins.Pin(state.index, requested); err != nil {
			logger.Error("recording clock lock in ledger failed", "error", err)
		}
	}

	g.verify(ctx, logger, state.index, requested)
}

// verify waits the verify delay once and compares the device's clock
// with the value just locked. A mismatch is only reported; the next
// cycle decides again from a fresh sample.
func (g *Governor) verify(ctx context.Context, logger *slog.Logger, index, requested int) {
	g.clock.Sleep(g.verifyDelay)

	reading := g.controller.CurrentClock(ctx, index)
	actual, ok := reading.Get()
	switch {
	case !ok:
		logger.Warn("could not verify clock lock", "requested_mhz", requested, "error", reading.Err())
	case actual != requested:
		logger.Warn("clock differs from locked value",
			"requested_mhz", requested,
			"current_mhz", actual,
		)
	}
}

// Restore resets every governed device exactly once per Governor, in
// index order, no matter how many times it is called. Each device is
// reset under its own lock, after any in-progress work on it finishes.
// A successful reset clears the device's mode and its ledger pin.
// The returned error joins every failed reset.
func (g *Governor) Restore(ctx context.Context) error {
	g.restoreOnce.Do(func() {
		ctx = context.WithoutCancel(ctx)
		var errs []error
		for _, state := range g.devices {
			if err := g.resetDevice(ctx, state); err != nil {
				errs = append(errs, err)
			}
		}
		g.restoreErr = errors.Join(errs...)
	})
	return g.restoreErr
}

func (g *Governor) resetDevice(ctx context.Context, state *deviceState) error {
	state.mu.Lock()
	defer state.mu.Unlock()

	logger := g.logger.With("device", state.index)
	if err := g.controller.ResetClock(ctx, state.index); err != nil {
		logger.Error("resetting clock failed", "mode", state.mode.String(), "error", err)
		return fmt.Errorf("resetting device %d: %w", state.index, err)
	}

	logger.Info("clock reset to default", "previous_mode", state.mode.String())
	state.mode = ModeUnset
	if g.pins != nil {
		if err := g.pins.Unpin(state.index); err != nil {
			logger.Error("clearing ledger pin failed", "error", err)
		}
	}
	return nil
}
