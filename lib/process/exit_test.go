// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

type usageError struct{}

func (usageError) Error() string { return "bad usage" }
func (usageError) ExitCode() int { return 2 }

func TestReport(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantOutput string
	}{
		{"plain", errors.New("device tool unavailable"), 1, "error: device tool unavailable\n"},
		{"exit coder", usageError{}, 2, "error: bad usage\n"},
		{"wrapped exit coder", fmt.Errorf("parsing flags: %w", usageError{}), 2, "error: parsing flags: bad usage\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buffer bytes.Buffer
			code := report(&buffer, test.err)
			if code != test.wantCode {
				t.Errorf("report() = %d, want %d", code, test.wantCode)
			}
			if got := buffer.String(); got != test.wantOutput {
				t.Errorf("output = %q, want %q", got, test.wantOutput)
			}
		})
	}
}
