// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hwinfo holds the static GPU inventory type and the sysfs
// readers shared by vendor subpackages. [CardDevices] lists DRM cards,
// [ReadPCIDevice] reads the PCI function behind one, and
// [NormalizePCISlot] gives sysfs and nvidia-smi addresses a common
// form so the two sources can be joined.
//
// # Subpackages
//
//   - hwinfo/nvidia: static enumeration from sysfs and
//     /proc/driver/nvidia/, plus the nvidia-smi adapter that implements
//     device.Controller for the clock governor.
package hwinfo
