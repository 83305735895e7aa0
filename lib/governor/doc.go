// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package governor implements the adaptive clock control loop.
//
// Each cycle samples utilization of every governed device and applies
// hysteresis: a device below the low threshold is locked at its low
// clock, a device above the high threshold at its high clock, and a
// device inside the dead band (both bounds inclusive) is left alone.
// Decisions are level-triggered. Every cycle recomputes from a fresh
// sample, so a failed lock is retried on the next cycle without any
// retry bookkeeping.
//
// Requested clocks are checked against the device's supported set by
// [Validator] before any lock is issued. [Governor.Preflight] applies
// the same check to every configured clock at startup, where a
// rejection is fatal.
//
// [Governor.Restore] resets every governed device exactly once. It is
// serialized per device with the loop, so a reset never interleaves
// with a lock of the same device.
package governor
