// Package main implements the main entry point for the chip8go emulator
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/retroenv/chip8go/internal/cli"
	"github.com/retroenv/chip8go/internal/config"
	"github.com/retroenv/chip8go/internal/disasm"
	"github.com/retroenv/chip8go/internal/emulator"
	"github.com/retroenv/chip8go/internal/host/terminal"
	"github.com/retroenv/chip8go/internal/host/window"
	"github.com/retroenv/chip8go/internal/machine"
	"github.com/retroenv/chip8go/internal/options"
	"github.com/retroenv/chip8go/internal/rom"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

// defaultCycleBudget is the number of cycles the headless host runs when no
// budget is given, ten emulated seconds at the default speed.
const defaultCycleBudget = 10 * options.DefaultCyclesPerSecond

func main() {
	ctx := app.Context()

	opts, err := cli.ParseFlags()
	if err != nil {
		logger := config.CreateLogger(opts)
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			printBanner(logger, opts)
			usageErr.ShowUsage()
		} else {
			logger.Fatal(err.Error())
		}
		os.Exit(1)
	}

	logger := config.CreateLogger(opts)
	printBanner(logger, opts)

	if err := run(ctx, logger, opts); err != nil {
		// Handle context cancellation (Ctrl+C) gracefully
		if errors.Is(err, context.Canceled) {
			logger.Info("Operation cancelled")
			return
		}
		logger.Error("Emulation failed", log.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *log.Logger, opts options.Program) error {
	image, err := rom.FromFile(opts.ROM)
	if err != nil {
		return fmt.Errorf("loading ROM: %w", err)
	}

	if opts.List {
		return disasm.Listing(os.Stdout, image, machine.EntryAddress)
	}

	console := machine.New(machine.Options{})
	if err := console.Load(image); err != nil {
		return fmt.Errorf("loading program: %w", err)
	}

	emu := emulator.New(logger, console, options.NewEmulator(opts))
	for _, addr := range opts.Breakpoints {
		emu.SetBreakpoint(addr)
	}

	logger.Debug("Starting emulation",
		log.String("rom", opts.ROM),
		log.String("host", opts.Host),
		log.Int("cyclesPerSecond", opts.CyclesPerSecond))

	switch opts.Host {
	case options.HostWindow:
		return window.Run(ctx, console, emu, opts.Debug)
	case options.HostNone:
		return runHeadless(ctx, console, emu, opts.CycleBudget)
	default:
		return terminal.New(logger, console, emu).Run(ctx)
	}
}

// runHeadless runs the emulator without a front end for a fixed cycle budget
// and prints the final display to stdout.
func runHeadless(ctx context.Context, console *machine.Console, emu *emulator.Emulator, budget int) error {
	if budget <= 0 {
		budget = defaultCycleBudget
	}
	if err := emu.RunCycles(ctx, budget); err != nil {
		return err
	}

	dumpDisplay(os.Stdout, console.Display())
	return nil
}

// dumpDisplay prints the display as text, one character per pixel.
func dumpDisplay(w io.Writer, display [machine.DisplaySize]byte) {
	line := make([]byte, machine.DisplayWidth)
	for y := range machine.DisplayHeight {
		for x := range machine.DisplayWidth {
			c := byte('.')
			if display[y*machine.DisplayPitch+x/8]&(0x80>>(x%8)) != 0 {
				c = '#'
			}
			line[x] = c
		}
		_, _ = fmt.Fprintln(w, string(line))
	}
}

// printBanner prints application version information
func printBanner(logger *log.Logger, opts options.Program) {
	if opts.Quiet {
		return
	}

	versionString := version
	if commit != "" {
		if len(commit) > 7 {
			commit = commit[:7]
		}
		versionString += fmt.Sprintf(" (%s)", commit)
	}

	logger.Info("chip8go", log.String("version", versionString))

	if date != "" && !strings.Contains(date, "unknown") {
		logger.Info("Build", log.String("date", date))
	}
}
