// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Clockgov is an adaptive GPU clock governor. It polls the utilization
// of each configured NVIDIA GPU and locks the graphics clock to a low
// setpoint while the device is idle and a high setpoint while it is
// busy, with a dead band between the two thresholds so the clock does
// not flap.
//
// Commands:
//
//	clockgov [run]   govern until SIGINT/SIGTERM, then reset every device
//	clockgov probe   list GPUs with utilization, clocks and supported range
//	clockgov reset   reset configured devices and any stale ledger pins
//	clockgov version print build information
//
// On startup run:
//  1. Loads and validates the configuration (--config or CLOCKGOV_CONFIG).
//  2. Takes the state directory lock so only one governor runs.
//  3. Checks the device tool, enables persistence mode, and validates
//     every configured clock against the device's supported set.
//  4. Resets clocks left locked by a previous run that did not exit
//     cleanly.
//  5. Polls every check interval until signalled.
//
// Every governed device is reset when run exits, whether by signal or
// by error.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/clockgov/lib/process"
	"github.com/bureau-foundation/clockgov/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		process.Fatal(err)
	}
}

// options are the flags shared by every command.
type options struct {
	configPath string
	logLevel   string
	once       bool
}

func run(args []string, stdout io.Writer) error {
	var (
		opts        options
		showVersion bool
		showHelp    bool
	)

	flagSet := pflag.NewFlagSet("clockgov", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "path to the configuration file (default: $CLOCKGOV_CONFIG)")
	flagSet.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flagSet.BoolVar(&opts.once, "once", false, "run a single governance cycle, reset every device and exit")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolVarP(&showHelp, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		return fmt.Errorf("%w (see clockgov --help)", err)
	}
	if showHelp {
		printHelp(stdout, flagSet)
		return nil
	}
	if showVersion {
		version.Fprint(stdout, "clockgov")
		return nil
	}

	command := "run"
	if rest := flagSet.Args(); len(rest) > 0 {
		command = rest[0]
		if len(rest) > 1 {
			return fmt.Errorf("unexpected argument %q after %s", rest[1], command)
		}
	}

	switch command {
	case "version":
		version.Fprint(stdout, "clockgov")
		return nil
	case "help":
		printHelp(stdout, flagSet)
		return nil
	}

	logger, err := newLogger(opts.logLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "run":
		return runGovernor(ctx, opts, logger)
	case "probe":
		return runProbe(ctx, opts, stdout)
	case "reset":
		return runReset(ctx, opts, logger)
	default:
		return fmt.Errorf("unknown command %q (see clockgov --help)", command)
	}
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `clockgov adjusts GPU graphics clocks to utilization.

Usage:
  clockgov [flags] [run|probe|reset|version]

Commands:
  run      govern clocks until SIGINT/SIGTERM (default)
  probe    list GPUs, their clocks and supported clock range
  reset    reset configured devices and stale ledger pins, then exit
  version  print build information

Flags:
%s`, flagSet.FlagUsages())
}
