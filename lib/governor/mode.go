// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package governor

// Mode is the governance mode of one device.
type Mode int

const (
	// ModeUnset means the governor has not successfully locked the
	// device since startup or since its last reset.
	ModeUnset Mode = iota

	// ModeLow means the device is locked at its low clock.
	ModeLow

	// ModeHigh means the device is locked at its high clock.
	ModeHigh
)

func (m Mode) String() string {
	switch m {
	case ModeUnset:
		return "unset"
	case ModeLow:
		return "low"
	case ModeHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Decide maps a utilization sample to a target mode. The second result
// is false when utilization lies within [low, high], where no
// transition is made.
func Decide(utilization, low, high int) (Mode, bool) {
	switch {
	case utilization < low:
		return ModeLow, true
	case utilization > high:
		return ModeHigh, true
	default:
		return ModeUnset, false
	}
}
