// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/clockgov/lib/codec"
)

// State is the on-disk ledger content.
type State struct {
	// PID is the process that last wrote the ledger.
	PID int `cbor:"pid"`

	// ConfigDigest is the digest of the configuration that process ran
	// with.
	ConfigDigest string `cbor:"config_digest"`

	// Pins lists devices with an applied clock lock, ordered by device.
	Pins []Pin `cbor:"pins"`
}

// Pin is one device whose clock the governor has locked.
type Pin struct {
	Device int       `cbor:"device"`
	MHz    int       `cbor:"mhz"`
	Since  time.Time `cbor:"since"`
}

// Write atomically replaces the ledger file at path with state. The
// parent directory must exist. The file is created with mode 0600.
func Write(path string, state State) error {
	data, err := codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating temporary ledger file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary ledger file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary ledger file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary ledger file: %w", err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming ledger file into place: %w", err)
	}

	// The rename is only durable once the directory entry is flushed.
	parentDirectory, err := os.Open(filepath.Dir(path))
	if err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}
	return nil
}

// Read parses the ledger file at path. A missing file returns an error
// wrapping os.ErrNotExist.
func Read(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}
	var state State
	if err := codec.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("parsing ledger file %s: %w", path, err)
	}
	return state, nil
}

// Clear removes the ledger file. Idempotent.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing ledger file: %w", err)
	}
	return nil
}
