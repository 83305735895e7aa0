// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "CLOCKGOV_CONFIG"

// Config is the governor's complete static configuration.
type Config struct {
	// LowUsageThreshold is the utilization percent strictly below which
	// a device is dropped to its low clock.
	LowUsageThreshold int `yaml:"low_usage_threshold" json:"low_usage_threshold"`

	// HighUsageThreshold is the utilization percent strictly above
	// which a device is raised to its high clock. Must exceed
	// LowUsageThreshold; the span between them is the dead band.
	HighUsageThreshold int `yaml:"high_usage_threshold" json:"high_usage_threshold"`

	// CheckIntervalSeconds is the pause between polling cycles.
	CheckIntervalSeconds int `yaml:"check_interval_seconds" json:"check_interval_seconds"`

	// VerifyDelaySeconds is how long to wait after a clock lock before
	// re-reading the clock to confirm it took effect. Zero compares
	// immediately.
	// Default: 1
	VerifyDelaySeconds int `yaml:"verify_delay_seconds" json:"verify_delay_seconds"`

	// StateDir holds the override ledger and the single-instance lock.
	// Default: /run/clockgov
	StateDir string `yaml:"state_dir" json:"state_dir"`

	// Tool configures the device control tool.
	Tool ToolConfig `yaml:"tool" json:"tool"`

	// Devices is the governed set.
	Devices []DeviceConfig `yaml:"devices" json:"devices"`

	digest string
}

// ToolConfig configures how nvidia-smi is invoked.
type ToolConfig struct {
	// NvidiaSMI is the nvidia-smi binary name or path.
	// Default: nvidia-smi
	NvidiaSMI string `yaml:"nvidia_smi" json:"nvidia_smi"`

	// Escalate is prepended to privileged commands (persistence mode,
	// clock lock and reset) when the governor is not running as root,
	// for example [sudo, -n].
	Escalate []string `yaml:"escalate" json:"escalate"`

	// CommandTimeoutSeconds bounds every tool invocation. Zero
	// disables the bound.
	// Default: 10
	CommandTimeoutSeconds int `yaml:"command_timeout_seconds" json:"command_timeout_seconds"`
}

// DeviceConfig is one governed device and its clock pair.
type DeviceConfig struct {
	// Index is the device index as reported by the control tool.
	Index int `yaml:"index" json:"index"`

	// LowClockMHz is the graphics clock applied below the low threshold.
	LowClockMHz int `yaml:"low_clock_mhz" json:"low_clock_mhz"`

	// HighClockMHz is the graphics clock applied above the high threshold.
	HighClockMHz int `yaml:"high_clock_mhz" json:"high_clock_mhz"`
}

// Default returns a Config with every optional field populated. The
// thresholds, interval and device list have no defaults and must come
// from the file.
func Default() *Config {
	return &Config{
		VerifyDelaySeconds: 1,
		StateDir:           "/run/clockgov",
		Tool: ToolConfig{
			NvidiaSMI:             "nvidia-smi",
			CommandTimeoutSeconds: 10,
		},
	}
}

// Load loads configuration from the file named by CLOCKGOV_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your clockgov.yaml, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path. The result is not validated;
// call Validate before use.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes configuration bytes. extension selects the syntax:
// ".json" and ".jsonc" are treated as JSON with comments, anything else
// as YAML.
func Parse(data []byte, extension string) (*Config, error) {
	digest := blake3.Sum256(data)

	cfg := Default()
	var err error
	switch strings.ToLower(extension) {
	case ".json", ".jsonc":
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		decoder.DisallowUnknownFields()
		err = decoder.Decode(cfg)
	default:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		err = decoder.Decode(cfg)
	}
	if errors.Is(err, io.EOF) {
		return nil, errors.New("config file is empty")
	}
	if err != nil {
		return nil, err
	}

	cfg.expandVariables()
	cfg.digest = hex.EncodeToString(digest[:])
	return cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if c.LowUsageThreshold < 0 || c.LowUsageThreshold > 100 {
		errs = append(errs, fmt.Errorf("low_usage_threshold must be within 0-100, got %d", c.LowUsageThreshold))
	}
	if c.HighUsageThreshold < 0 || c.HighUsageThreshold > 100 {
		errs = append(errs, fmt.Errorf("high_usage_threshold must be within 0-100, got %d", c.HighUsageThreshold))
	}
	if c.LowUsageThreshold >= c.HighUsageThreshold {
		errs = append(errs, fmt.Errorf("low_usage_threshold (%d) must be less than high_usage_threshold (%d)",
			c.LowUsageThreshold, c.HighUsageThreshold))
	}
	if c.CheckIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("check_interval_seconds must be positive, got %d", c.CheckIntervalSeconds))
	}
	if c.VerifyDelaySeconds < 0 {
		errs = append(errs, fmt.Errorf("verify_delay_seconds must not be negative, got %d", c.VerifyDelaySeconds))
	}
	if c.StateDir == "" {
		errs = append(errs, errors.New("state_dir is required"))
	}
	if c.Tool.NvidiaSMI == "" {
		errs = append(errs, errors.New("tool.nvidia_smi is required"))
	}
	if c.Tool.CommandTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("tool.command_timeout_seconds must not be negative, got %d", c.Tool.CommandTimeoutSeconds))
	}

	if len(c.Devices) == 0 {
		errs = append(errs, errors.New("devices: at least one device must be governed"))
	}
	seen := make(map[int]bool, len(c.Devices))
	for position, device := range c.Devices {
		if device.Index < 0 {
			errs = append(errs, fmt.Errorf("devices[%d]: index must not be negative, got %d", position, device.Index))
			continue
		}
		if seen[device.Index] {
			errs = append(errs, fmt.Errorf("devices[%d]: device %d is listed more than once", position, device.Index))
		}
		seen[device.Index] = true
		if device.LowClockMHz <= 0 {
			errs = append(errs, fmt.Errorf("device %d: low_clock_mhz is required", device.Index))
		}
		if device.HighClockMHz <= 0 {
			errs = append(errs, fmt.Errorf("device %d: high_clock_mhz is required", device.Index))
		}
	}

	return errors.Join(errs...)
}

// CheckInterval returns the pause between polling cycles.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

// VerifyDelay returns the pause between a clock lock and its
// confirmation read.
func (c *Config) VerifyDelay() time.Duration {
	return time.Duration(c.VerifyDelaySeconds) * time.Second
}

// CommandTimeout returns the per-invocation bound on the control tool,
// or zero when unbounded.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Tool.CommandTimeoutSeconds) * time.Second
}

// DeviceIndices returns the governed device indices in ascending order.
func (c *Config) DeviceIndices() []int {
	indices := make([]int, 0, len(c.Devices))
	for _, device := range c.Devices {
		indices = append(indices, device.Index)
	}
	sort.Ints(indices)
	return indices
}

// Digest returns the hex BLAKE3-256 digest of the raw file the Config
// was parsed from, or "" for a Config built in code.
func (c *Config) Digest() string {
	return c.digest
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func (c *Config) expandVariables() {
	c.StateDir = expandVars(c.StateDir)
	c.Tool.NvidiaSMI = expandVars(c.Tool.NvidiaSMI)
}

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}
