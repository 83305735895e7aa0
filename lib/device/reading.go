// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnreadable is wrapped by the error of every unreadable Reading.
var ErrUnreadable = errors.New("unreadable")

// Reading is a single integer sample from a device, or the reason it
// could not be read. The zero Reading is unreadable.
type Reading struct {
	value int
	err   error
	valid bool
}

// Value returns a readable Reading holding v.
func Value(v int) Reading {
	return Reading{value: v, valid: true}
}

// Unreadable returns a Reading that records why the sample could not
// be taken. The returned Reading's Err wraps both ErrUnreadable and
// reason.
func Unreadable(reason error) Reading {
	if reason == nil {
		return Reading{err: ErrUnreadable}
	}
	return Reading{err: fmt.Errorf("%w: %w", ErrUnreadable, reason)}
}

// Get returns the sampled value and whether the Reading is readable.
func (r Reading) Get() (int, bool) {
	return r.value, r.valid
}

// Err returns nil for a readable Reading and an error wrapping
// ErrUnreadable otherwise.
func (r Reading) Err() error {
	if r.valid {
		return nil
	}
	if r.err == nil {
		return ErrUnreadable
	}
	return r.err
}

func (r Reading) String() string {
	if !r.valid {
		return "unreadable"
	}
	return strconv.Itoa(r.value)
}
