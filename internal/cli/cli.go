// Package cli handles command line interface logic
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/retroenv/chip8go/internal/machine"
	"github.com/retroenv/chip8go/internal/options"
)

// ParseFlags parses command line flags and returns the program options.
func ParseFlags() (options.Program, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	var opts options.Program
	breakpoints := readOptionFlags(flags, &opts)

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if err != nil || len(args) == 0 {
		return opts, &UsageError{flags: flags}
	}

	if err := validateArgs(args); err != nil {
		return opts, err
	}

	if err := normalizeOptions(&opts, *breakpoints); err != nil {
		return opts, err
	}

	opts.ROM = args[0]
	return opts, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage() {
	fmt.Printf("usage: chip8go [options] <ROM file to run>\n\n")
	e.flags.PrintDefaults()
	fmt.Println()
}

// validateArgs checks if arguments are in correct order
func validateArgs(args []string) error {
	for i, arg := range args {
		if i > 0 && arg[0] == '-' {
			return &UsageError{
				msg: fmt.Sprintf("Potential argument %s found after the ROM file, please pass the ROM file as last argument", arg),
			}
		}
	}
	return nil
}

// normalizeOptions normalizes and validates option values
func normalizeOptions(opts *options.Program, breakpoints string) error {
	opts.Host = strings.ToLower(opts.Host)

	validHosts := []string{options.HostTerminal, options.HostWindow, options.HostNone}
	found := false
	for _, valid := range validHosts {
		if opts.Host == valid {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("unsupported host: %s. Valid options: %s",
			opts.Host, strings.Join(validHosts, ", "))
	}

	parsed, err := parseBreakpoints(breakpoints)
	if err != nil {
		return err
	}
	opts.Breakpoints = parsed
	return nil
}

// parseBreakpoints parses a comma separated list of hexadecimal addresses.
func parseBreakpoints(list string) ([]uint16, error) {
	if list == "" {
		return nil, nil
	}

	var addresses []uint16
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), "0x")
		value, err := strconv.ParseUint(part, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("parsing breakpoint address %s: %w", part, err)
		}
		addresses = append(addresses, uint16(value)&machine.AddrMask)
	}
	return addresses, nil
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program) *string {
	flags.StringVar(&opts.Host, "host", options.HostTerminal, "front end to run the emulator with (terminal/window/none)")
	flags.BoolVar(&opts.List, "list", false, "print a disassembly listing of the ROM instead of running it")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
	flags.IntVar(&opts.CyclesPerSecond, "cps", options.DefaultCyclesPerSecond, "instruction cycles to execute per second")
	flags.IntVar(&opts.CycleBudget, "cycles", 0, "number of cycles to run with the none host before stopping")
	flags.Uint64Var(&opts.Seed, "seed", 0, "random number generator seed, 0 picks one from the clock")
	flags.BoolVar(&opts.Quirks.ShiftSourceY, "quirk-shift", false, "8XY6/8XYE shift Vy instead of Vx")
	flags.BoolVar(&opts.Quirks.ClipSprites, "quirk-clip", false, "clip sprites at the bottom display edge instead of wrapping")
	flags.BoolVar(&opts.Quirks.IndexOverflowFlag, "quirk-index", false, "FX1E sets VF when the index register overflows")

	return flags.String("break", "", "comma separated list of hexadecimal breakpoint addresses")
}
