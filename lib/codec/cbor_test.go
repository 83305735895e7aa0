// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

type pinRecord struct {
	Device int `cbor:"device"`
	MHz    int `cbor:"mhz"`
}

func TestMarshalDeterministicMapOrder(t *testing.T) {
	first := map[string]int{"zeta": 1, "alpha": 2, "mid": 3}
	second := map[string]int{"mid": 3, "alpha": 2, "zeta": 1}

	firstBytes, err := Marshal(first)
	if err != nil {
		t.Fatalf("Marshal(first): %v", err)
	}
	secondBytes, err := Marshal(second)
	if err != nil {
		t.Fatalf("Marshal(second): %v", err)
	}
	if !bytes.Equal(firstBytes, secondBytes) {
		t.Errorf("encodings differ:\n%x\n%x", firstBytes, secondBytes)
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	data, err := Marshal(map[string]any{"device": 2, "mhz": 544, "future": "field"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var record pinRecord
	if err := Unmarshal(data, &record); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if record.Device != 2 || record.MHz != 544 {
		t.Errorf("record = %+v, want {Device:2 MHz:544}", record)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	var record pinRecord
	if err := Unmarshal([]byte{0xff, 0x00}, &record); err == nil {
		t.Error("Unmarshal(garbage) succeeded, want error")
	}
}
