// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/clockgov/lib/binhash"
	"github.com/bureau-foundation/clockgov/lib/clock"
	"github.com/bureau-foundation/clockgov/lib/governor"
	"github.com/bureau-foundation/clockgov/lib/hwinfo/nvidia"
	"github.com/bureau-foundation/clockgov/lib/ledger"
	"github.com/bureau-foundation/clockgov/lib/version"
)

// runGovernor governs until ctx is cancelled (or for one cycle with
// --once) and resets every governed device before returning. Startup
// failures are returned before any clock is changed.
func runGovernor(ctx context.Context, opts options, logger *slog.Logger) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	logger.Info("clockgov starting",
		"version", version.Info(),
		"config_digest", cfg.Digest(),
		"devices", cfg.DeviceIndices(),
		"state_dir", cfg.StateDir,
	)

	book, err := ledger.Open(cfg.StateDir, clock.Real(), cfg.Digest())
	if err != nil {
		return fmt.Errorf("opening override ledger: %w", err)
	}
	defer func() {
		if err := book.Close(); err != nil {
			logger.Error("closing override ledger failed", "error", err)
		}
	}()
	if err := book.Discarded(); err != nil {
		logger.Warn("previous override ledger was unreadable; clocks it recorded may still be locked",
			"error", err)
	}
	if previous := book.Previous(); previous.PID != 0 && previous.ConfigDigest != cfg.Digest() {
		logger.Info("configuration changed since previous run",
			"previous_pid", previous.PID,
			"previous_config_digest", previous.ConfigDigest,
		)
	}

	if tool, err := binhash.Identify(cfg.Tool.NvidiaSMI); err != nil {
		logger.Warn("identifying device tool failed", "tool", cfg.Tool.NvidiaSMI, "error", err)
	} else {
		logger.Info("device tool", "path", tool.Path, "digest", tool.Digest)
	}

	smi := newController(cfg)
	gov, err := governor.New(governor.Options{
		Controller: smi,
		Config:     cfg,
		Clock:      clock.Real(),
		Logger:     logger,
		Pins:       book,
	})
	if err != nil {
		return err
	}
	if err := gov.Preflight(ctx); err != nil {
		return err
	}

	if failed := recoverStalePins(ctx, smi, book, logger); failed > 0 {
		logger.Warn("some stale clock locks could not be reset", "count", failed)
	}
	logInventory(ctx, smi, nvidia.NewProber(), cfg, logger)

	// From here on devices may be locked, so every exit path resets them.
	defer func() {
		if err := gov.Restore(ctx); err != nil {
			logger.Error("restoring default clocks incomplete", "error", err)
			return
		}
		logger.Info("default clocks restored")
	}()

	if opts.once {
		gov.RunCycle(ctx)
		return nil
	}
	gov.Run(ctx)
	return nil
}
