// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction so the governor
// loop can be driven deterministically in tests.
//
// Production code holds a Clock field set to Real(). Tests use Fake()
// and step time explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	g := governor.New(governor.Options{Clock: c, ...})
//	go g.Run(ctx)
//	c.WaitForTimers(1)          // loop is parked on its interval wait
//	c.Advance(5 * time.Second)  // release it for the next cycle
//
// WaitForTimers removes the race between a goroutine registering a
// wait and the test advancing the clock.
package clock
