// Package emulator contains the fetch-execute driver that runs a CHIP-8
// program on a console: instruction stepping, emulation speed, timer pacing
// and breakpoints.
package emulator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/retroenv/chip8go/internal/decoder"
	"github.com/retroenv/chip8go/internal/disasm"
	"github.com/retroenv/chip8go/internal/engine"
	"github.com/retroenv/chip8go/internal/machine"
	"github.com/retroenv/chip8go/internal/options"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
)

const (
	// opcodeSize is the size of a CHIP-8 instruction in bytes.
	opcodeSize = 2
	// timerInterval is the tick period of the delay and sound timers.
	timerInterval = time.Second / 60
	// timerTicksPerSecond is the timer frequency in Hz.
	timerTicksPerSecond = 60
)

// Machine is the part of the console the emulator drives.
type Machine interface {
	machine.State

	// TickTimers decrements the delay and sound timers by up to n ticks.
	TickTimers(n int)
}

// BreakpointError reports that execution stopped because the program counter
// reached a breakpoint.
type BreakpointError struct {
	Addr uint16
}

func (e *BreakpointError) Error() string {
	return fmt.Sprintf("breakpoint at %04x", e.Addr)
}

// Emulator fetches, decodes and executes instructions on a machine.
type Emulator struct {
	logger  *log.Logger
	machine Machine
	decoder *decoder.Decoder
	engine  *engine.Engine

	breakpoints     set.Set[uint16]
	cyclesPerSecond int
	cycleTime       time.Duration
	trace           bool
}

// New creates an emulator for the given machine. A zero seed in the options
// picks one from the clock.
func New(logger *log.Logger, mach Machine, opts options.Emulator) *Emulator {
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	cyclesPerSecond := opts.CyclesPerSecond
	if cyclesPerSecond <= 0 {
		cyclesPerSecond = options.DefaultCyclesPerSecond
	}

	return &Emulator{
		logger:          logger,
		machine:         mach,
		decoder:         decoder.New(opts.Quirks),
		engine:          engine.New(rand.New(rand.NewPCG(seed, seed))),
		breakpoints:     set.New[uint16](),
		cyclesPerSecond: cyclesPerSecond,
		cycleTime:       time.Second / time.Duration(cyclesPerSecond),
		trace:           opts.Trace,
	}
}

// SetBreakpoint stops a running emulator when the program counter reaches
// addr.
func (e *Emulator) SetBreakpoint(addr uint16) {
	e.breakpoints.Add(addr & machine.AddrMask)
}

// Step fetches and executes a single instruction. The program counter keeps
// pointing at the instruction while it executes and is advanced afterwards
// unless the instruction redirected it. Step does not check breakpoints,
// callers use it to step over one.
func (e *Emulator) Step(ctx context.Context) error {
	pc := e.machine.PC()
	opcode := uint16(e.machine.ReadMem(pc))<<8 | uint16(e.machine.ReadMem(pc+1))

	program, err := e.decoder.Decode(opcode)
	if err != nil {
		return fmt.Errorf("decoding opcode at %04x: %w", pc, err)
	}

	if e.trace {
		e.logger.Debug("executing",
			log.Hex("pc", pc),
			log.Hex("opcode", opcode),
			log.String("instruction", disasm.Format(opcode)))
	}

	redirected, err := e.engine.Run(ctx, program, e.machine)
	if err != nil {
		return fmt.Errorf("executing opcode at %04x: %w", pc, err)
	}

	if !redirected {
		e.machine.SetPC(pc + opcodeSize)
	}
	return nil
}

// Run executes instructions at the configured speed until the context is
// cancelled, a breakpoint is reached or an error surfaces. Timer ticks are
// derived from the wall clock between cycles. The breakpoint check is
// skipped for the first cycle so that a stopped emulator can resume from
// the breakpoint address.
func (e *Emulator) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cycleTime)
	defer ticker.Stop()

	lastTick := time.Now()

	for cycle := 0; ; cycle++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		pc := e.machine.PC()
		if cycle > 0 && e.breakpoints.Contains(pc) {
			return &BreakpointError{Addr: pc}
		}

		if err := e.Step(ctx); err != nil {
			return err
		}

		now := time.Now()
		if ticks := int(now.Sub(lastTick) / timerInterval); ticks > 0 {
			e.machine.TickTimers(ticks)
			lastTick = lastTick.Add(time.Duration(ticks) * timerInterval)
		}
	}
}

// RunCycles executes up to n instructions without wall clock pacing, ticking
// the timers once per speed dependent cycle count. It keeps headless runs
// deterministic.
func (e *Emulator) RunCycles(ctx context.Context, n int) error {
	cyclesPerTick := e.cyclesPerSecond / timerTicksPerSecond
	if cyclesPerTick == 0 {
		cyclesPerTick = 1
	}

	for cycle := range n {
		if err := ctx.Err(); err != nil {
			return err
		}

		pc := e.machine.PC()
		if cycle > 0 && e.breakpoints.Contains(pc) {
			return &BreakpointError{Addr: pc}
		}

		if err := e.Step(ctx); err != nil {
			return err
		}

		if (cycle+1)%cyclesPerTick == 0 {
			e.machine.TickTimers(1)
		}
	}
	return nil
}
