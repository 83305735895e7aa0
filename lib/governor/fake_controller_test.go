// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package governor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bureau-foundation/clockgov/lib/device"
)

// fakeController is an in-memory device.Controller. Each device has a
// utilization reading, a current clock and a supported set. LockClock
// moves the current clock to the requested value unless holdClock is
// set. Every command is appended to calls.
type fakeController struct {
	mu sync.Mutex

	count          int
	countErr       error
	persistenceErr error

	utilization map[int]device.Reading
	clocks      map[int]int
	supported   map[int][]int
	supportErr  map[int]error
	lockErr     map[int]error
	resetErr    map[int]error
	holdClock   bool

	// lockEntered and lockRelease, when non-nil, make LockClock signal
	// entry and then block until released.
	lockEntered chan int
	lockRelease chan struct{}

	calls          []string
	locks          []lockCall
	resets         []int
	supportQueries map[int]int
}

type lockCall struct {
	device int
	mhz    int
}

func newFakeController(count int) *fakeController {
	return &fakeController{
		count:          count,
		utilization:    make(map[int]device.Reading),
		clocks:         make(map[int]int),
		supported:      make(map[int][]int),
		supportErr:     make(map[int]error),
		lockErr:        make(map[int]error),
		resetErr:       make(map[int]error),
		supportQueries: make(map[int]int),
	}
}

func (f *fakeController) setUtilization(index, percent int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.utilization[index] = device.Value(percent)
}

func (f *fakeController) setUnreadable(index int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.utilization[index] = device.Unreadable(errors.New("[N/A]"))
}

func (f *fakeController) lockCalls() []lockCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]lockCall(nil), f.locks...)
}

func (f *fakeController) resetCalls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.resets...)
}

func (f *fakeController) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeController) DeviceCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "count")
	return f.count, f.countErr
}

func (f *fakeController) Utilization(ctx context.Context, index int) device.Reading {
	f.mu.Lock()
	defer f.mu.Unlock()
	reading, ok := f.utilization[index]
	if !ok {
		return device.Unreadable(fmt.Errorf("device %d has no utilization", index))
	}
	return reading
}

func (f *fakeController) CurrentClock(ctx context.Context, index int) device.Reading {
	f.mu.Lock()
	defer f.mu.Unlock()
	mhz, ok := f.clocks[index]
	if !ok {
		return device.Unreadable(nil)
	}
	return device.Value(mhz)
}

func (f *fakeController) SupportedClocks(ctx context.Context, index int) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.supportQueries[index]++
	if err := f.supportErr[index]; err != nil {
		return nil, err
	}
	return append([]int(nil), f.supported[index]...), nil
}

func (f *fakeController) LockClock(ctx context.Context, index int, mhz int) error {
	if f.lockEntered != nil {
		f.lockEntered <- index
		<-f.lockRelease
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("lock %d %d", index, mhz))
	f.locks = append(f.locks, lockCall{device: index, mhz: mhz})
	if err := f.lockErr[index]; err != nil {
		return err
	}
	if !f.holdClock {
		f.clocks[index] = mhz
	}
	return nil
}

func (f *fakeController) ResetClock(ctx context.Context, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("reset %d", index))
	f.resets = append(f.resets, index)
	return f.resetErr[index]
}

func (f *fakeController) EnablePersistence(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "persistence")
	return f.persistenceErr
}

// fakePins is an in-memory PinRecorder.
type fakePins struct {
	mu   sync.Mutex
	pins map[int]int
}

func (p *fakePins) Pin(device, mhz int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pins == nil {
		p.pins = make(map[int]int)
	}
	p.pins[device] = mhz
	return nil
}

func (p *fakePins) Unpin(device int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pins, device)
	return nil
}

func (p *fakePins) get(device int) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	mhz, ok := p.pins[device]
	return mhz, ok
}
