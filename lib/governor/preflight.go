// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package governor

import (
	"context"
	"errors"
	"fmt"
)

// Preflight verifies that the governed set can be governed before any
// clock is touched: the control tool answers, persistence mode can be
// enabled, every index is below the reported device count, and both
// configured clocks of every device are in its supported set. Any
// returned error is fatal to startup. Index and clock problems are
// collected and returned together.
func (g *Governor) Preflight(ctx context.Context) error {
	count, err := g.controller.DeviceCount(ctx)
	if err != nil {
		return fmt.Errorf("device interface unavailable: %w", err)
	}
	if err := g.controller.EnablePersistence(ctx); err != nil {
		return fmt.Errorf("enabling persistence mode: %w", err)
	}

	var errs []error
	for _, state := range g.devices {
		if state.index >= count {
			errs = append(errs, fmt.Errorf("device %d: index out of range, %d device(s) reported", state.index, count))
			continue
		}
		if err := g.validator.Validate(ctx, state.index, state.lowClock); err != nil {
			errs = append(errs, fmt.Errorf("low clock: %w", err))
		}
		if err := g.validator.Validate(ctx, state.index, state.highClock); err != nil {
			errs = append(errs, fmt.Errorf("high clock: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	g.logger.Info("preflight passed", "device_count", count, "governed", len(g.devices))
	return nil
}
