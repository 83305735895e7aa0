// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// newLogger returns the process logger at the named level and installs
// it as the slog default. Output is text when stderr is a terminal and
// JSON otherwise, so journald and log shippers get structured records.
func newLogger(level string) (*slog.Logger, error) {
	return buildLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level)
}

func buildLogger(w io.Writer, terminal bool, level string) (*slog.Logger, error) {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}

	options := &slog.HandlerOptions{Level: parsed}
	var handler slog.Handler
	if terminal {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}
