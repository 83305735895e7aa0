// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/bureau-foundation/clockgov/lib/config"
	"github.com/bureau-foundation/clockgov/lib/hwinfo"
	"github.com/bureau-foundation/clockgov/lib/hwinfo/nvidia"
)

// probeRow is one device line of the probe table.
type probeRow struct {
	inventory nvidia.InventoryRow
	info      hwinfo.GPUInfo
	supported []int
	// supportErr is set when the supported clocks could not be read.
	supportErr error
	// governed is the configured clock pair, nil when not governed.
	governed *config.DeviceConfig
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	governedStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("10"))
)

// runProbe prints every GPU with its live readings, supported clock
// range and configured clock pair, to help choose low and high clocks.
func runProbe(ctx context.Context, opts options, stdout io.Writer) error {
	cfg, err := probeConfig(opts.configPath)
	if err != nil {
		return err
	}
	smi := newController(cfg)

	inventory, err := smi.Inventory(ctx)
	if err != nil {
		return fmt.Errorf("device interface unavailable: %w", err)
	}
	slots := nvidia.BySlot(nvidia.NewProber().Enumerate())

	rows := make([]probeRow, 0, len(inventory))
	for _, entry := range inventory {
		row := probeRow{
			inventory: entry,
			info:      slots[hwinfo.NormalizePCISlot(entry.PCIBusID)],
		}
		row.supported, row.supportErr = smi.SupportedClocks(ctx, entry.Index)
		for i := range cfg.Devices {
			if cfg.Devices[i].Index == entry.Index {
				row.governed = &cfg.Devices[i]
			}
		}
		rows = append(rows, row)
	}

	fmt.Fprintln(stdout, renderProbe(rows))
	return nil
}

func renderProbe(rows []probeRow) string {
	governedRows := make(map[int]bool)
	data := make([][]string, 0, len(rows))
	for i, row := range rows {
		pair := "-"
		if row.governed != nil {
			pair = fmt.Sprintf("%d / %d", row.governed.LowClockMHz, row.governed.HighClockMHz)
			governedRows[i] = true
		}
		data = append(data, []string{
			strconv.Itoa(row.inventory.Index),
			row.inventory.Name,
			hwinfo.NormalizePCISlot(row.inventory.PCIBusID),
			valueOr(row.info.Driver, "-"),
			row.inventory.Utilization.String(),
			row.inventory.Clock.String(),
			row.inventory.MaxClock.String(),
			supportedRange(row.supported, row.supportErr),
			pair,
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("GPU", "NAME", "PCI SLOT", "DRIVER", "UTIL %", "CLOCK MHz", "MAX MHz", "SUPPORTED MHz", "LOW / HIGH").
		Rows(data...).
		StyleFunc(func(row, column int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case governedRows[row]:
				return governedStyle
			default:
				return cellStyle
			}
		}).
		String()
}

// supportedRange summarizes an ascending clock list as "min-max (n)".
func supportedRange(clocks []int, err error) string {
	if err != nil || len(clocks) == 0 {
		return "unavailable"
	}
	return fmt.Sprintf("%d-%d (%d)", clocks[0], clocks[len(clocks)-1], len(clocks))
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
