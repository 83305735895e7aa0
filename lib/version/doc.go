// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the clockgov
// binary. Values are injected at build time via -ldflags:
//
//	go build -ldflags "-X github.com/bureau-foundation/clockgov/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version
