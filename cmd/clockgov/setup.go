// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/bureau-foundation/clockgov/lib/config"
	"github.com/bureau-foundation/clockgov/lib/device"
	"github.com/bureau-foundation/clockgov/lib/hwinfo"
	"github.com/bureau-foundation/clockgov/lib/hwinfo/nvidia"
	"github.com/bureau-foundation/clockgov/lib/ledger"
)

// loadConfig reads the file named by --config, falling back to
// CLOCKGOV_CONFIG, and validates it.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newController(cfg *config.Config) *nvidia.SMI {
	return nvidia.NewSMI(cfg.Tool.NvidiaSMI, cfg.Tool.Escalate, nvidia.ExecRunner{Timeout: cfg.CommandTimeout()})
}

// recoverStalePins resets every device still pinned in the ledger.
// Resets already started are not interrupted by shutdown. Failures are
// logged and the pin stays recorded for the next attempt. Returns the
// number of pins that could not be reset.
func recoverStalePins(ctx context.Context, controller device.Controller, book *ledger.Ledger, logger *slog.Logger) int {
	ctx = context.WithoutCancel(ctx)
	failed := 0
	for _, pin := range book.Pinned() {
		pinLogger := logger.With("device", pin.Device, "pinned_mhz", pin.MHz, "pinned_since", pin.Since)
		if err := controller.ResetClock(ctx, pin.Device); err != nil {
			pinLogger.Error("resetting stale clock lock failed", "error", err)
			failed++
			continue
		}
		if err := book.Unpin(pin.Device); err != nil {
			pinLogger.Error("clearing stale ledger pin failed", "error", err)
		}
		pinLogger.Info("reset stale clock lock from previous run")
	}
	return failed
}

// logInventory logs the identity of each governed device, joining the
// nvidia-smi inventory to sysfs by PCI slot. Inventory is informational
// and a failure here is only logged.
func logInventory(ctx context.Context, smi *nvidia.SMI, prober hwinfo.GPUProber, cfg *config.Config, logger *slog.Logger) {
	rows, err := smi.Inventory(ctx)
	if err != nil {
		logger.Warn("reading device inventory failed", "error", err)
		return
	}
	slots := nvidia.BySlot(prober.Enumerate())
	governed := make(map[int]bool, len(cfg.Devices))
	for _, entry := range cfg.Devices {
		governed[entry.Index] = true
	}

	for _, row := range rows {
		if !governed[row.Index] {
			continue
		}
		slot := hwinfo.NormalizePCISlot(row.PCIBusID)
		attributes := []any{
			"device", row.Index,
			"name", row.Name,
			"pci_slot", slot,
			"max_mhz", row.MaxClock.String(),
		}
		if info, ok := slots[slot]; ok {
			attributes = append(attributes,
				"vendor", info.Vendor,
				"model", info.ModelName,
				"pci_device_id", info.PCIDeviceID,
				"driver", info.Driver,
				"uuid", info.UniqueID,
				"vbios", info.VBIOSVersion,
				"pcie_link_width", info.PCIeLinkWidth,
			)
		}
		logger.Info("governed device", attributes...)
	}
}

// probeConfig returns the configuration probe uses for the tool
// settings: the configured file when one is named, otherwise defaults.
func probeConfig(path string) (*config.Config, error) {
	if path == "" && os.Getenv(config.EnvironmentVariable) == "" {
		return config.Default(), nil
	}
	return loadConfig(path)
}
