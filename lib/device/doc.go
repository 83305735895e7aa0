// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package device defines the boundary between the clock governor and
// the hardware control tool.
//
// [Controller] is the capability the governor consumes: utilization
// and clock queries, the supported-clock list, and the privileged
// lock/reset/persistence commands. The production implementation is
// hwinfo/nvidia.SMI; tests substitute an in-memory fake.
//
// Queries that can fail per sample return a [Reading] rather than a
// sentinel integer, so a real reading of 0 is never confused with a
// sample the tool could not produce.
package device
