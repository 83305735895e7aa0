// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package nvidia talks to NVIDIA GPUs for the clock governor.
//
// [SMI] implements device.Controller by running nvidia-smi and parsing
// its CSV query output. All text-parsing fragility lives in this
// package; callers see typed readings and errors. Privileged commands
// (persistence mode, clock lock and reset) are prefixed with the
// configured escalation command when the process is not root.
//
// [Prober] reads static identity (model, UUID, VBIOS, PCI slot, link
// width) from sysfs (/sys/class/drm/card*) and, with the proprietary
// driver, from /proc/driver/nvidia/gpus/. It needs no privileges and
// no nvidia-smi, and is joined with SMI inventory by PCI slot for
// startup logging and the probe command.
//
// NVML would avoid the process-per-query cost but requires cgo or a
// dlopen shim; nvidia-smi is present wherever the driver is.
package nvidia

import (
	"path/filepath"

	"github.com/bureau-foundation/clockgov/lib/hwinfo"
)

// Prober implements hwinfo.GPUProber for cards bound to the nvidia or
// nouveau driver. Only proprietary-driver cards can be clock-governed,
// but nouveau cards are listed so the probe command can explain why a
// visible GPU is missing from nvidia-smi.
type Prober struct {
	sysRoot  string
	procRoot string
}

// NewProber returns a Prober over the live /sys and /proc.
func NewProber() *Prober {
	return &Prober{sysRoot: "/sys", procRoot: "/proc"}
}

var _ hwinfo.GPUProber = (*Prober)(nil)

// Enumerate lists NVIDIA cards in card-number order. Returns nil when
// there are none or sysfs is unavailable.
func (p *Prober) Enumerate() []hwinfo.GPUInfo {
	paths, err := hwinfo.CardDevices(p.sysRoot)
	if err != nil {
		return nil
	}

	var gpus []hwinfo.GPUInfo
	for _, path := range paths {
		pci := hwinfo.ReadPCIDevice(path)
		if pci.Driver != "nvidia" && pci.Driver != "nouveau" {
			continue
		}
		gpu := hwinfo.GPUInfo{
			Vendor:        pci.Vendor(),
			PCISlot:       pci.Slot,
			PCIeLinkWidth: pci.LinkWidth,
			Driver:        pci.Driver,
		}
		if pci.DeviceID != "" {
			gpu.PCIDeviceID = "0x" + pci.DeviceID
		}
		if pci.Driver == "nvidia" && pci.Slot != "" {
			p.readDriverInformation(&gpu)
		}
		gpus = append(gpus, gpu)
	}
	return gpus
}

// readDriverInformation fills model, UUID and VBIOS from the
// proprietary driver's per-GPU information file:
//
//	Model:           NVIDIA GeForce RTX 4090
//	GPU UUID:        GPU-xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx
//	Video BIOS:      95.02.3c.80.b8
func (p *Prober) readDriverInformation(gpu *hwinfo.GPUInfo) {
	path := filepath.Join(p.procRoot, "driver", "nvidia", "gpus", gpu.PCISlot, "information")
	fields := hwinfo.ReadKeyValues(path, ":")
	gpu.ModelName = fields["Model"]
	gpu.UniqueID = fields["GPU UUID"]
	gpu.VBIOSVersion = fields["Video BIOS"]
}

// BySlot indexes gpus by normalized PCI slot.
func BySlot(gpus []hwinfo.GPUInfo) map[string]hwinfo.GPUInfo {
	index := make(map[string]hwinfo.GPUInfo, len(gpus))
	for _, gpu := range gpus {
		index[hwinfo.NormalizePCISlot(gpu.PCISlot)] = gpu
	}
	return index
}
