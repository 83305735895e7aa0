// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PCIDevice is what sysfs exposes about the PCI function behind a DRM
// card. Fields the kernel does not provide are left zero.
type PCIDevice struct {
	// Path is the sysfs device directory, e.g.
	// /sys/class/drm/card0/device.
	Path string

	// Driver is the basename of the bound kernel driver.
	Driver string

	// VendorID and DeviceID are lowercase hex without a prefix.
	VendorID string
	DeviceID string

	// Slot is the PCI address from PCI_SLOT_NAME.
	Slot string

	// LinkWidth is the negotiated PCIe link width.
	LinkWidth int
}

// Vendor maps the vendor ID to a name, or "0x<id>" when unknown.
func (d PCIDevice) Vendor() string {
	switch d.VendorID {
	case "":
		return ""
	case "10de":
		return "NVIDIA"
	case "1002":
		return "AMD"
	case "8086":
		return "Intel"
	default:
		return "0x" + d.VendorID
	}
}

// CardDevices returns the device directory of every DRM card under
// sysRoot/class/drm, in card-number order. Connector entries
// (card0-DP-1) and render nodes are excluded.
func CardDevices(sysRoot string) ([]string, error) {
	base := filepath.Join(sysRoot, "class", "drm")
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, err
	}

	type card struct {
		number int
		path   string
	}
	var cards []card
	for _, entry := range entries {
		number, ok := cardNumber(entry.Name())
		if !ok {
			continue
		}
		cards = append(cards, card{number, filepath.Join(base, entry.Name(), "device")})
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].number < cards[j].number })

	paths := make([]string, len(cards))
	for i, c := range cards {
		paths[i] = c.path
	}
	return paths, nil
}

// cardNumber parses "cardN" names. Anything else, including "card"
// alone, is rejected.
func cardNumber(name string) (int, bool) {
	digits, found := strings.CutPrefix(name, "card")
	if !found || digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	number, err := strconv.Atoi(digits)
	return number, err == nil
}

// ReadPCIDevice collects the driver, IDs, slot and link width of the
// device directory at path. Unreadable attributes are left empty.
func ReadPCIDevice(path string) PCIDevice {
	device := PCIDevice{Path: path}
	if link, err := os.Readlink(filepath.Join(path, "driver")); err == nil {
		device.Driver = filepath.Base(link)
	}

	// uevent holds KEY=VALUE lines such as PCI_ID=10DE:2684 and
	// PCI_SLOT_NAME=0000:01:00.0.
	for key, value := range ReadKeyValues(filepath.Join(path, "uevent"), "=") {
		switch key {
		case "PCI_ID":
			if vendor, id, ok := strings.Cut(value, ":"); ok {
				device.VendorID = strings.ToLower(vendor)
				device.DeviceID = strings.ToLower(id)
			}
		case "PCI_SLOT_NAME":
			device.Slot = value
		}
	}

	if data, err := os.ReadFile(filepath.Join(path, "current_link_width")); err == nil {
		if width, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
			device.LinkWidth = width
		}
	}
	return device
}

// ReadKeyValues parses a file of "key<separator>value" lines with both
// sides trimmed. Lines without the separator are skipped. A missing
// file yields an empty map.
func ReadKeyValues(path, separator string) map[string]string {
	values := make(map[string]string)
	file, err := os.Open(path)
	if err != nil {
		return values
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), separator)
		if !found {
			continue
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return values
}
