// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the clock governor's configuration.
//
// Configuration is loaded from a single file named by either the
// CLOCKGOV_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no discovery and no fallback path.
//
// The file is YAML. Files ending in .json or .jsonc are accepted too:
// comments and trailing commas are stripped before decoding. Unknown
// keys are rejected so a misspelled threshold fails at startup rather
// than silently taking its default.
//
// ${VAR} and ${VAR:-default} patterns are expanded in the state_dir
// and tool.nvidia_smi fields after loading.
//
// A loaded Config is never modified afterwards; the governor receives
// it by pointer and only reads it.
package config
