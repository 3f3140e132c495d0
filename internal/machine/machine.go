// Package machine defines the machine state contract of the CHIP-8 virtual
// machine and provides Console, the standard implementation. The state
// interface is the only channel between the execution core and the outside
// world; hosts own a Console and feed it input while the emulator mutates it.
package machine

import "context"

// Machine geometry and well-known addresses.
const (
	// MemorySize is the size of the address space in bytes.
	MemorySize = 4096
	// AddrMask constrains addresses to the 12 bits CHIP-8 can express.
	AddrMask = 0x0FFF
	// EntryAddress is the address programs are loaded at and start executing from.
	EntryAddress = 0x200
	// DisplayWidth is the display width in pixels.
	DisplayWidth = 64
	// DisplayHeight is the display height in pixels.
	DisplayHeight = 32
	// DisplayPitch is the number of display bytes per row, 8 pixels packed
	// per byte with the leftmost pixel in the most significant bit.
	DisplayPitch = DisplayWidth / 8
	// DisplaySize is the size of the packed display buffer in bytes.
	DisplaySize = DisplayPitch * DisplayHeight
	// RegisterCount is the number of general purpose registers.
	RegisterCount = 16
	// FlagRegister is the register used as flag output by arithmetic and draw
	// instructions.
	FlagRegister = 0xF
	// KeyCount is the number of keypad keys.
	KeyCount = 16
	// GlyphSize is the height of a built-in hexadecimal glyph in bytes.
	GlyphSize = 5
)

// State is the machine state the execution engine operates on. Register and
// key parameters are masked by the implementation where the instruction set
// guarantees a valid range; passing an out of range register index is a
// programming error and panics.
type State interface {
	// Register returns the value of general purpose register r.
	Register(r uint8) uint8
	// SetRegister sets general purpose register r to v.
	SetRegister(r uint8, v uint8)
	// PC returns the program counter.
	PC() uint16
	// SetPC sets the program counter, masked to 12 bits.
	SetPC(addr uint16)
	// Index returns the index register.
	Index() uint16
	// SetIndex sets the index register, masked to 12 bits.
	SetIndex(v uint16)
	// Push pushes a return address onto the call stack.
	Push(addr uint16)
	// Pop removes and returns the top of the call stack. Popping an empty
	// stack panics.
	Pop() uint16
	// ReadMem returns the memory byte at addr, masked to 12 bits.
	ReadMem(addr uint16) byte
	// WriteMem sets the memory byte at addr, masked to 12 bits.
	WriteMem(addr uint16, v byte)
	// ClearDisplay switches all pixels off.
	ClearDisplay()
	// XORLine XOR-composites 8 horizontally consecutive pixels onto the
	// display, most significant bit leftmost, starting at pixel (x, y). It
	// reports whether any lit pixel was switched off. Coordinates wrap at the
	// display edges.
	XORLine(x uint8, y uint8, bits byte) bool
	// KeyPressed reports whether keypad key (low nibble of key) is pressed.
	KeyPressed(key uint8) bool
	// WaitKey blocks until a keypad key is pressed and returns its value.
	// Cancelling the context aborts the wait.
	WaitKey(ctx context.Context) (uint8, error)
	// DelayTimer returns the delay timer value.
	DelayTimer() uint8
	// SetDelayTimer sets the delay timer.
	SetDelayTimer(v uint8)
	// SetSoundTimer sets the sound timer.
	SetSoundTimer(v uint8)
	// GlyphAddr returns the address of the built-in glyph for hexadecimal
	// digit (low nibble of digit).
	GlyphAddr(digit uint8) uint16
}
