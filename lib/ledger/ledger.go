// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/clockgov/lib/clock"
)

const (
	fileName      = "ledger.cbor"
	lockFileName  = "clockgov.lock"
	corruptSuffix = ".corrupt"
)

// ErrLocked is returned by Open when another process holds the state
// directory lock.
var ErrLocked = errors.New("another clock governor holds the state directory lock")

// Ledger is the open, locked override ledger of one governor process.
// It is safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	path     string
	clock    clock.Clock
	lockFile *os.File
	previous State
	state    State

	discarded error
}

// Open creates the state directory if needed, takes the exclusive
// lock, and loads pins left by a previous run. The returned ledger
// starts with those pins so they stay recorded until they are reset.
// An unreadable ledger file is moved aside to ledger.cbor.corrupt and
// the ledger starts empty; [Ledger.Discarded] reports why.
func Open(directory string, clk clock.Clock, configDigest string) (*Ledger, error) {
	if err := os.MkdirAll(directory, 0700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	lockFile, err := os.OpenFile(filepath.Join(directory, lockFileName), os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		lockFile.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w (%s)", ErrLocked, directory)
		}
		return nil, fmt.Errorf("locking state directory: %w", err)
	}

	ledger := &Ledger{
		path:     filepath.Join(directory, fileName),
		clock:    clk,
		lockFile: lockFile,
	}

	previous, err := Read(ledger.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		ledger.discarded = err
		if renameErr := os.Rename(ledger.path, ledger.path+corruptSuffix); renameErr != nil {
			ledger.discarded = errors.Join(err, fmt.Errorf("keeping unreadable ledger: %w", renameErr))
		}
	}
	ledger.previous = previous
	ledger.state = State{
		PID:          os.Getpid(),
		ConfigDigest: configDigest,
		Pins:         append([]Pin(nil), previous.Pins...),
	}

	if err := ledger.writeLocked(); err != nil {
		ledger.releaseLock()
		return nil, err
	}
	return ledger, nil
}

// Discarded returns the error that made the previous ledger file
// unreadable at Open, or nil. Pins it held are lost, so those devices
// may still be locked.
func (l *Ledger) Discarded() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.discarded
}

// Previous returns the ledger content found on disk at Open.
func (l *Ledger) Previous() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.previous
}

// Pinned returns the currently recorded pins ordered by device.
func (l *Ledger) Pinned() []Pin {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Pin(nil), l.state.Pins...)
}

// Pin records that device is locked at mhz, replacing any earlier pin
// for the same device.
func (l *Ledger) Pin(device, mhz int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pin := Pin{Device: device, MHz: mhz, Since: l.clock.Now().UTC()}
	replaced := false
	for i := range l.state.Pins {
		if l.state.Pins[i].Device == device {
			l.state.Pins[i] = pin
			replaced = true
		}
	}
	if !replaced {
		l.state.Pins = append(l.state.Pins, pin)
		sort.Slice(l.state.Pins, func(i, j int) bool {
			return l.state.Pins[i].Device < l.state.Pins[j].Device
		})
	}
	return l.writeLocked()
}

// Unpin records that device no longer has a clock lock. Unpinning a
// device that is not pinned does not rewrite the file.
func (l *Ledger) Unpin(device int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.state.Pins[:0]
	for _, pin := range l.state.Pins {
		if pin.Device != device {
			remaining = append(remaining, pin)
		}
	}
	if len(remaining) == len(l.state.Pins) {
		return nil
	}
	l.state.Pins = remaining
	return l.writeLocked()
}

// Close releases the lock. The ledger file is removed when no pins
// remain; otherwise it is left for the next start to recover.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var err error
	if len(l.state.Pins) == 0 {
		err = Clear(l.path)
	}
	return errors.Join(err, l.releaseLock())
}

func (l *Ledger) writeLocked() error {
	return Write(l.path, l.state)
}

func (l *Ledger) releaseLock() error {
	if l.lockFile == nil {
		return nil
	}
	unix.Flock(int(l.lockFile.Fd()), unix.LOCK_UN)
	err := l.lockFile.Close()
	l.lockFile = nil
	return err
}
