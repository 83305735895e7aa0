// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"bytes"
	"strings"
	"testing"
)

func TestInfoMarksDirtyBuilds(t *testing.T) {
	originalCommit, originalDirty := GitCommit, GitDirty
	t.Cleanup(func() { GitCommit, GitDirty = originalCommit, originalDirty })

	GitCommit = "abc1234"
	GitDirty = "true"
	if got := Info(); !strings.Contains(got, "abc1234-dirty") {
		t.Errorf("Info() = %q, want it to contain abc1234-dirty", got)
	}

	GitDirty = "false"
	if got := Info(); strings.Contains(got, "-dirty") {
		t.Errorf("Info() = %q, want no -dirty suffix", got)
	}
}

func TestFprintNamesBinary(t *testing.T) {
	var buffer bytes.Buffer
	Fprint(&buffer, "clockgov")
	if got := buffer.String(); !strings.HasPrefix(got, "clockgov "+Version) {
		t.Errorf("Fprint output = %q, want prefix %q", got, "clockgov "+Version)
	}
}
