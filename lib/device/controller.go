// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"context"
	"fmt"
	"strings"
)

// Controller queries and controls the clocks of accelerator devices
// addressed by their integer index. Every call may block on an
// external process; none of them panic on tool failure.
type Controller interface {
	// DeviceCount returns the number of devices the tool reports. An
	// error means the tool itself is unavailable.
	DeviceCount(ctx context.Context) (int, error)

	// Utilization samples the device's utilization in percent (0-100).
	Utilization(ctx context.Context, index int) Reading

	// CurrentClock samples the device's current graphics clock in MHz.
	CurrentClock(ctx context.Context, index int) Reading

	// SupportedClocks returns the graphics clocks, in MHz, that the
	// device accepts for a lock. Order is unspecified.
	SupportedClocks(ctx context.Context, index int) ([]int, error)

	// LockClock pins the device's graphics clock to mhz.
	LockClock(ctx context.Context, index int, mhz int) error

	// ResetClock removes any clock lock and restores the driver's
	// default clock management.
	ResetClock(ctx context.Context, index int) error

	// EnablePersistence turns on driver persistence mode so clock
	// settings survive between client invocations.
	EnablePersistence(ctx context.Context) error
}

// CommandError reports a failed invocation of the control tool.
type CommandError struct {
	// Command is the full argv that was run.
	Command []string

	// Output is the trimmed combined output of the command, if any.
	Output string

	// Err is the underlying exec or exit error.
	Err error
}

func (e *CommandError) Error() string {
	message := fmt.Sprintf("%s: %v", strings.Join(e.Command, " "), e.Err)
	if e.Output != "" {
		message += ": " + e.Output
	}
	return message
}

func (e *CommandError) Unwrap() error { return e.Err }
