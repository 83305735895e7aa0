// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger records which devices currently have a clock lock
// applied by the governor, so that a lock left behind by a crashed or
// SIGKILLed governor can be undone by the next start.
//
// The ledger file (ledger.cbor in the state directory) is rewritten
// after every pin and unpin. Writes are atomic: the new content goes to
// a temporary file that is fsynced and renamed into place, so a reader
// never sees a partial file.
//
// Opening a ledger takes an exclusive flock on clockgov.lock in the same
// directory. A second governor on the same host fails with [ErrLocked]
// instead of fighting the first over the same devices.
//
// Typical lifecycle:
//
//  1. Open: acquire the lock, load pins left by the previous run.
//  2. Reset every stale pin, calling Unpin for each success.
//  3. Pin/Unpin as the governor locks and resets clocks.
//  4. Close: release the lock; the file is removed once no pins remain.
package ledger
