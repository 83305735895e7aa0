// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"fmt"
	"strconv"
	"strings"
)

// GPUInfo is the static identity of one GPU as read from sysfs and the
// driver's procfs entries.
type GPUInfo struct {
	// Vendor is the GPU vendor name mapped from the PCI vendor ID.
	Vendor string

	// ModelName is the marketing name, e.g. "NVIDIA GeForce RTX 4090".
	// Empty when the driver does not provide one.
	ModelName string

	// PCIDeviceID is the PCI device ID, e.g. "0x2684".
	PCIDeviceID string

	// PCISlot is the PCI slot address, e.g. "0000:01:00.0". Stable
	// across reboots; the join key against nvidia-smi's pci.bus_id.
	PCISlot string

	// UniqueID is the GPU UUID on NVIDIA.
	UniqueID string

	// VBIOSVersion is the firmware version string.
	VBIOSVersion string

	// PCIeLinkWidth is the negotiated PCIe link width. Zero if unknown.
	PCIeLinkWidth int

	// Driver is the kernel driver bound to the device.
	Driver string
}

// GPUProber enumerates GPUs of one vendor.
type GPUProber interface {
	// Enumerate returns static information for every GPU the vendor's
	// driver manages. Returns nil, not an error, when there are none.
	Enumerate() []GPUInfo
}

// NormalizePCISlot converts a PCI address to sysfs form: lowercase,
// four-digit domain. nvidia-smi reports "00000000:01:00.0" where sysfs
// uses "0000:01:00.0". Addresses that do not parse are returned
// lowercased and otherwise unchanged.
func NormalizePCISlot(address string) string {
	address = strings.ToLower(strings.TrimSpace(address))
	domain, rest, found := strings.Cut(address, ":")
	if !found || strings.Count(rest, ":") != 1 {
		return address
	}
	value, err := strconv.ParseUint(domain, 16, 32)
	if err != nil {
		return address
	}
	return fmt.Sprintf("%04x:%s", value, rest)
}
