// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the clockgov binary:
// fatal error reporting to stderr for errors that surface before (or
// instead of) the structured logger, and the process exit that
// follows.
package process
