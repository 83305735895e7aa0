// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package governor

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/bureau-foundation/clockgov/lib/device"
)

// InvalidClockError reports a clock value the device does not support.
type InvalidClockError struct {
	Device    int
	Requested int

	// Supported is the device's supported set in ascending order.
	Supported []int
}

func (e *InvalidClockError) Error() string {
	values := make([]string, len(e.Supported))
	for i, mhz := range e.Supported {
		values[i] = strconv.Itoa(mhz)
	}
	return fmt.Sprintf("device %d: clock %d MHz is not supported (supported: %s)",
		e.Device, e.Requested, strings.Join(values, ", "))
}

// Validator checks requested clocks against each device's supported
// set. The set is queried once per device and cached for the life of
// the Validator; a failed query is not cached and is retried on the
// next call. Safe for concurrent use.
type Validator struct {
	controller device.Controller

	mu        sync.Mutex
	supported map[int][]int
}

// NewValidator returns a Validator that queries controller.
func NewValidator(controller device.Controller) *Validator {
	return &Validator{
		controller: controller,
		supported:  make(map[int][]int),
	}
}

// Supported returns the device's supported clocks in ascending order.
// The returned slice must not be modified.
func (v *Validator) Supported(ctx context.Context, index int) ([]int, error) {
	v.mu.Lock()
	cached, ok := v.supported[index]
	v.mu.Unlock()
	if ok {
		return cached, nil
	}

	clocks, err := v.controller.SupportedClocks(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("querying supported clocks of device %d: %w", index, err)
	}
	if len(clocks) == 0 {
		return nil, fmt.Errorf("device %d reports no supported clocks", index)
	}
	clocks = slices.Clone(clocks)
	slices.Sort(clocks)
	clocks = slices.Compact(clocks)

	v.mu.Lock()
	v.supported[index] = clocks
	v.mu.Unlock()
	return clocks, nil
}

// Validate returns nil when mhz is in the device's supported set, an
// *InvalidClockError when it is not, and a query error when the set
// cannot be read.
func (v *Validator) Validate(ctx context.Context, index, mhz int) error {
	supported, err := v.Supported(ctx, index)
	if err != nil {
		return err
	}
	if _, found := slices.BinarySearch(supported, mhz); !found {
		return &InvalidClockError{Device: index, Requested: mhz, Supported: supported}
	}
	return nil
}
