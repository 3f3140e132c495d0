// Package options contains the program options.
package options

// Host front ends selectable on the command line.
const (
	HostTerminal = "terminal"
	HostWindow   = "window"
	HostNone     = "none"
)

// DefaultCyclesPerSecond is the default emulation speed. Most classic ROMs
// are tuned for roughly 700 instructions per second.
const DefaultCyclesPerSecond = 700

// Program options of the emulator.
type Program struct {
	ROM string // path of the ROM file to run

	Host  string // front end: terminal, window or none
	List  bool   // print a disassembly listing instead of running
	Debug bool
	Quiet bool

	CyclesPerSecond int      // emulation speed
	CycleBudget     int      // number of cycles to run with the none host
	Seed            uint64   // random number seed, 0 picks one from the clock
	Breakpoints     []uint16 // addresses that stop execution

	Quirks Quirks
}

// Emulator defines options to control the emulator core.
type Emulator struct {
	CyclesPerSecond int
	Seed            uint64
	Trace           bool // log every executed instruction
	Quirks          Quirks
}

// NewEmulator returns emulator options derived from the program options.
func NewEmulator(opts Program) Emulator {
	return Emulator{
		CyclesPerSecond: opts.CyclesPerSecond,
		Seed:            opts.Seed,
		Trace:           opts.Debug,
		Quirks:          opts.Quirks,
	}
}

// Quirks selects between disputed interpreter behaviors. The zero value
// matches the majority of modern interpreters and ROMs.
type Quirks struct {
	// ShiftSourceY makes 8XY6/8XYE read the value to shift from Vy instead
	// of shifting Vx in place, matching the original COSMAC VIP interpreter.
	ShiftSourceY bool

	// ClipSprites discards sprite rows past the bottom display edge instead
	// of wrapping them to the top.
	ClipSprites bool

	// IndexOverflowFlag makes FX1E set VF when the index register overflows
	// past 0FFF, matching the Amiga interpreter.
	IndexOverflowFlag bool
}
