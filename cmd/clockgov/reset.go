// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/clockgov/lib/clock"
	"github.com/bureau-foundation/clockgov/lib/governor"
	"github.com/bureau-foundation/clockgov/lib/ledger"
)

// runReset resets every configured device and every device still
// pinned in the ledger. It refuses to run while a governor holds the
// state directory, which would immediately lock the clocks again.
func runReset(ctx context.Context, opts options, logger *slog.Logger) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	book, err := ledger.Open(cfg.StateDir, clock.Real(), cfg.Digest())
	if errors.Is(err, ledger.ErrLocked) {
		return fmt.Errorf("%w: stop the running governor first; it resets its devices on exit", err)
	}
	if err != nil {
		return fmt.Errorf("opening override ledger: %w", err)
	}
	defer book.Close()

	smi := newController(cfg)
	gov, err := governor.New(governor.Options{
		Controller: smi,
		Config:     cfg,
		Logger:     logger,
		Pins:       book,
	})
	if err != nil {
		return err
	}

	restoreErr := gov.Restore(ctx)
	var staleErr error
	if failed := recoverStalePins(ctx, smi, book, logger); failed > 0 {
		staleErr = fmt.Errorf("%d stale clock lock(s) could not be reset", failed)
	}
	return errors.Join(restoreErr, staleErr)
}
