// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
low_usage_threshold: 10
high_usage_threshold: 50
check_interval_seconds: 5
devices:
  - index: 1
    low_clock_mhz: 544
    high_clock_mhz: 1328
  - index: 0
    low_clock_mhz: 135
    high_clock_mhz: 1328
`

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.VerifyDelaySeconds != 1 {
		t.Errorf("VerifyDelaySeconds = %d, want 1", cfg.VerifyDelaySeconds)
	}
	if cfg.StateDir != "/run/clockgov" {
		t.Errorf("StateDir = %q, want /run/clockgov", cfg.StateDir)
	}
	if cfg.Tool.NvidiaSMI != "nvidia-smi" {
		t.Errorf("Tool.NvidiaSMI = %q, want nvidia-smi", cfg.Tool.NvidiaSMI)
	}
	if cfg.CommandTimeout() != 10*time.Second {
		t.Errorf("CommandTimeout() = %v, want 10s", cfg.CommandTimeout())
	}
}

func TestParseYAML(t *testing.T) {
	cfg, err := Parse([]byte(validYAML), ".yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.LowUsageThreshold != 10 || cfg.HighUsageThreshold != 50 {
		t.Errorf("thresholds = (%d, %d), want (10, 50)", cfg.LowUsageThreshold, cfg.HighUsageThreshold)
	}
	if cfg.CheckInterval() != 5*time.Second {
		t.Errorf("CheckInterval() = %v, want 5s", cfg.CheckInterval())
	}
	// Defaults survive for fields the file omits.
	if cfg.VerifyDelay() != time.Second {
		t.Errorf("VerifyDelay() = %v, want 1s", cfg.VerifyDelay())
	}
	indices := cfg.DeviceIndices()
	if len(indices) != 2 || indices[0] != 0 || indices[1] != 1 {
		t.Errorf("DeviceIndices() = %v, want [0 1]", indices)
	}
	if len(cfg.Digest()) != 64 {
		t.Errorf("Digest() = %q, want 64 hex characters", cfg.Digest())
	}
}

func TestParseJSONC(t *testing.T) {
	content := `{
  // governor thresholds
  "low_usage_threshold": 10,
  "high_usage_threshold": 50,
  "check_interval_seconds": 2,
  "verify_delay_seconds": 0,
  "tool": {"escalate": ["sudo", "-n"]},
  "devices": [
    /* trailing commas are tolerated */
    {"index": 0, "low_clock_mhz": 135, "high_clock_mhz": 1328},
  ],
}`
	cfg, err := Parse([]byte(content), ".jsonc")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.VerifyDelay() != 0 {
		t.Errorf("VerifyDelay() = %v, want 0 (explicitly set)", cfg.VerifyDelay())
	}
	if got := strings.Join(cfg.Tool.Escalate, " "); got != "sudo -n" {
		t.Errorf("Tool.Escalate = %q, want sudo -n", got)
	}
	if cfg.Tool.NvidiaSMI != "nvidia-smi" {
		t.Errorf("Tool.NvidiaSMI = %q, want default nvidia-smi", cfg.Tool.NvidiaSMI)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	if _, err := Parse([]byte(validYAML+"low_usage_treshold: 5\n"), ".yaml"); err == nil {
		t.Error("Parse accepted misspelled YAML key")
	}
	if _, err := Parse([]byte(`{"low_usage_treshold": 5}`), ".json"); err == nil {
		t.Error("Parse accepted misspelled JSON key")
	}
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse(nil, ".yaml")
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Errorf("Parse(empty) error = %v, want empty-file error", err)
	}
}

func TestDigestTracksContent(t *testing.T) {
	first, err := Parse([]byte(validYAML), ".yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	second, err := Parse([]byte(validYAML+"# comment\n"), ".yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if first.Digest() == second.Digest() {
		t.Error("Digest() identical for different file contents")
	}
	if (&Config{}).Digest() != "" {
		t.Error("Digest() of in-code Config should be empty")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.LowUsageThreshold = 10
		cfg.HighUsageThreshold = 50
		cfg.CheckIntervalSeconds = 5
		cfg.Devices = []DeviceConfig{{Index: 0, LowClockMHz: 135, HighClockMHz: 1328}}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"thresholds equal", func(c *Config) { c.HighUsageThreshold = 10 }, "must be less than"},
		{"thresholds inverted", func(c *Config) { c.LowUsageThreshold = 60 }, "must be less than"},
		{"threshold above 100", func(c *Config) { c.HighUsageThreshold = 101 }, "within 0-100"},
		{"zero interval", func(c *Config) { c.CheckIntervalSeconds = 0 }, "check_interval_seconds"},
		{"negative verify delay", func(c *Config) { c.VerifyDelaySeconds = -1 }, "verify_delay_seconds"},
		{"no devices", func(c *Config) { c.Devices = nil }, "at least one device"},
		{"missing low clock", func(c *Config) { c.Devices[0].LowClockMHz = 0 }, "device 0: low_clock_mhz is required"},
		{"missing high clock", func(c *Config) { c.Devices[0].HighClockMHz = 0 }, "device 0: high_clock_mhz is required"},
		{"negative index", func(c *Config) { c.Devices[0].Index = -1 }, "index must not be negative"},
		{"duplicate index", func(c *Config) { c.Devices = append(c.Devices, c.Devices[0]) }, "more than once"},
		{"no tool", func(c *Config) { c.Tool.NvidiaSMI = "" }, "tool.nvidia_smi"},
		{"no state dir", func(c *Config) { c.StateDir = "" }, "state_dir"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid()
			test.mutate(cfg)
			err := cfg.Validate()
			if test.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, test.wantErr)
			}
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.CheckIntervalSeconds = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want errors")
	}
	for _, want := range []string{"must be less than", "check_interval_seconds", "at least one device"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() = %q, missing %q", err, want)
		}
	}
}

func TestLoadRequiresEnvironmentVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() succeeded without CLOCKGOV_CONFIG")
	}
	if !strings.HasPrefix(err.Error(), "CLOCKGOV_CONFIG environment variable not set") {
		t.Errorf("Load() error = %q", err)
	}
}

func TestLoadFromEnvironmentVariable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clockgov.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Devices) != 2 {
		t.Errorf("len(Devices) = %d, want 2", len(cfg.Devices))
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("LoadFile(absent) error = %v, want not-exist", err)
	}
}

func TestStateDirExpansion(t *testing.T) {
	t.Setenv("CLOCKGOV_TEST_RUNTIME", "/tmp/runtime")
	content := validYAML + "state_dir: ${CLOCKGOV_TEST_RUNTIME}/clockgov\ntool:\n  nvidia_smi: ${CLOCKGOV_TEST_UNSET:-/usr/bin/nvidia-smi}\n"

	cfg, err := Parse([]byte(content), ".yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.StateDir != "/tmp/runtime/clockgov" {
		t.Errorf("StateDir = %q, want /tmp/runtime/clockgov", cfg.StateDir)
	}
	if cfg.Tool.NvidiaSMI != "/usr/bin/nvidia-smi" {
		t.Errorf("Tool.NvidiaSMI = %q, want /usr/bin/nvidia-smi", cfg.Tool.NvidiaSMI)
	}
}
