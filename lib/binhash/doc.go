// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash identifies the device control tool by content. The
// governor logs the resolved path and BLAKE3 digest of nvidia-smi at
// startup, so a driver upgrade that swaps the tool underneath a
// long-running host shows up in the logs even when the path does not
// change.
package binhash
