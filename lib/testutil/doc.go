// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// safety valve so individual tests never call time.After directly.
// They are the only place tests use real wall-clock timeouts; all
// governor timing runs on lib/clock's fake clock.
//
// [WriteFile] and [Symlink] build synthetic sysfs/procfs trees under a
// test's temporary directory.
//
// All helpers fail the test with t.Fatalf rather than returning errors.
package testutil
