// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package nvidia

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/clockgov/lib/device"
)

const csvFormat = "--format=csv,noheader,nounits"

// failurePhrases are printed by nvidia-smi on failures it does not
// always reflect in its exit status.
var failurePhrases = []string{
	"Insufficient Permissions",
	"is not supported",
	"Unable to determine",
}

// SMI implements device.Controller over the nvidia-smi command.
type SMI struct {
	binary   string
	escalate []string
	runner   Runner
}

var _ device.Controller = (*SMI)(nil)

// NewSMI returns an SMI that invokes binary through runner. escalate is
// prepended to privileged commands unless the process already runs as
// root.
func NewSMI(binary string, escalate []string, runner Runner) *SMI {
	return newSMI(binary, escalate, runner, unix.Geteuid())
}

func newSMI(binary string, escalate []string, runner Runner, euid int) *SMI {
	smi := &SMI{binary: binary, runner: runner}
	if euid != 0 {
		smi.escalate = append([]string(nil), escalate...)
	}
	return smi
}

// DeviceCount returns the number of GPUs nvidia-smi reports.
func (s *SMI) DeviceCount(ctx context.Context) (int, error) {
	output, err := s.run(ctx, false, "--query-gpu=count", csvFormat)
	if err != nil {
		return 0, err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	count, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || count < 0 {
		return 0, fmt.Errorf("unexpected device count output %q", line)
	}
	return count, nil
}

// Utilization returns the GPU utilization percent.
func (s *SMI) Utilization(ctx context.Context, index int) device.Reading {
	return s.queryReading(ctx, index, "utilization.gpu", 100)
}

// CurrentClock returns the current graphics clock in MHz.
func (s *SMI) CurrentClock(ctx context.Context, index int) device.Reading {
	return s.queryReading(ctx, index, "clocks.gr", -1)
}

// SupportedClocks returns the distinct supported graphics clocks in
// ascending order.
func (s *SMI) SupportedClocks(ctx context.Context, index int) ([]int, error) {
	output, err := s.run(ctx, false, "-i", strconv.Itoa(index), "--query-supported-clocks=graphics", csvFormat)
	if err != nil {
		return nil, err
	}
	clocks, err := parseSupportedClocks(output)
	if err != nil {
		return nil, fmt.Errorf("device %d: %w", index, err)
	}
	return clocks, nil
}

// LockClock pins the graphics clock by locking both ends of the GPU
// clock range to mhz.
func (s *SMI) LockClock(ctx context.Context, index int, mhz int) error {
	_, err := s.run(ctx, true, "-i", strconv.Itoa(index), "-lgc", fmt.Sprintf("%d,%d", mhz, mhz))
	return err
}

// ResetClock removes the GPU clock lock.
func (s *SMI) ResetClock(ctx context.Context, index int) error {
	_, err := s.run(ctx, true, "-i", strconv.Itoa(index), "-rgc")
	return err
}

// EnablePersistence enables persistence mode on every GPU.
func (s *SMI) EnablePersistence(ctx context.Context) error {
	_, err := s.run(ctx, true, "-pm", "1")
	return err
}

// InventoryRow is one line of the probe inventory.
type InventoryRow struct {
	Index       int
	Name        string
	PCIBusID    string
	Utilization device.Reading
	Clock       device.Reading
	MaxClock    device.Reading
}

// Inventory lists every GPU with its current utilization and clocks.
func (s *SMI) Inventory(ctx context.Context) ([]InventoryRow, error) {
	output, err := s.run(ctx, false,
		"--query-gpu=index,name,pci.bus_id,utilization.gpu,clocks.gr,clocks.max.gr", csvFormat)
	if err != nil {
		return nil, err
	}
	return parseInventory(output)
}

func (s *SMI) queryReading(ctx context.Context, index int, field string, maximum int) device.Reading {
	output, err := s.run(ctx, false, "-i", strconv.Itoa(index), "--query-gpu="+field, csvFormat)
	if err != nil {
		return device.Unreadable(err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	return parseReading(line, maximum)
}

// run invokes nvidia-smi with args, escalated when privileged, and
// returns its trimmed stdout. Stderr is never parsed; it is scanned for
// failure phrases along with stdout and carried in the error.
func (s *SMI) run(ctx context.Context, privileged bool, args ...string) (string, error) {
	var argv []string
	if privileged {
		argv = append(argv, s.escalate...)
	}
	argv = append(argv, s.binary)
	argv = append(argv, args...)

	rawStdout, rawStderr, err := s.runner.Run(ctx, argv)
	stdout := strings.TrimSpace(string(rawStdout))
	stderr := strings.TrimSpace(string(rawStderr))
	if err == nil {
		for _, phrase := range failurePhrases {
			if strings.Contains(stdout, phrase) || strings.Contains(stderr, phrase) {
				err = errors.New("tool reported failure")
				break
			}
		}
	}
	if err != nil {
		return "", &device.CommandError{Command: argv, Output: commandOutput(stderr, stdout), Err: err}
	}
	return stdout, nil
}

// commandOutput joins the non-empty streams for an error message,
// stderr first. nvidia-smi prints some failures on stdout.
func commandOutput(stderr, stdout string) string {
	switch {
	case stderr == "":
		return stdout
	case stdout == "":
		return stderr
	default:
		return stderr + "\n" + stdout
	}
}

// parseReading converts one CSV field to a Reading. nvidia-smi prints
// bracketed placeholders such as "[N/A]" or "[Not Supported]" for
// values it cannot produce. maximum < 0 means no upper bound.
func parseReading(field string, maximum int) device.Reading {
	field = strings.TrimSpace(field)
	if field == "" {
		return device.Unreadable(errors.New("empty output"))
	}
	if strings.HasPrefix(field, "[") {
		return device.Unreadable(fmt.Errorf("tool reported %s", field))
	}
	value, err := strconv.Atoi(field)
	if err != nil {
		return device.Unreadable(fmt.Errorf("parsing %q: %w", field, err))
	}
	if value < 0 || (maximum >= 0 && value > maximum) {
		return device.Unreadable(fmt.Errorf("value %d out of range", value))
	}
	return device.Value(value)
}

func parseSupportedClocks(output string) ([]int, error) {
	seen := make(map[int]bool)
	for _, line := range strings.Split(output, "\n") {
		reading := parseReading(line, -1)
		if value, ok := reading.Get(); ok && value > 0 {
			seen[value] = true
		}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("no supported clocks reported (output %q)", output)
	}

	clocks := make([]int, 0, len(seen))
	for value := range seen {
		clocks = append(clocks, value)
	}
	sort.Ints(clocks)
	return clocks, nil
}

func parseInventory(output string) ([]InventoryRow, error) {
	var rows []InventoryRow
	for lineNumber, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 6 {
			return nil, fmt.Errorf("inventory line %d: expected 6 fields, got %d: %q", lineNumber+1, len(fields), line)
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		index, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("inventory line %d: parsing index %q: %w", lineNumber+1, fields[0], err)
		}
		rows = append(rows, InventoryRow{
			Index:       index,
			Name:        fields[1],
			PCIBusID:    fields[2],
			Utilization: parseReading(fields[3], 100),
			Clock:       parseReading(fields[4], -1),
			MaxClock:    parseReading(fields[5], -1),
		})
	}
	return rows, nil
}
