// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitCoder is implemented by errors that carry a specific process exit
// status.
type ExitCoder interface {
	ExitCode() int
}

// Fatal writes "error: err" to stderr and exits with the error's exit
// code, or 1 when it does not carry one.
func Fatal(err error) {
	os.Exit(report(os.Stderr, err))
}

// report writes the fatal message and returns the exit status Fatal
// would use.
func report(w io.Writer, err error) int {
	fmt.Fprintf(w, "error: %v\n", err)
	var coder ExitCoder
	if errors.As(err, &coder) && coder.ExitCode() != 0 {
		return coder.ExitCode()
	}
	return 1
}
