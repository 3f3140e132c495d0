package machine

import (
	"context"
	"fmt"
	"sync"
)

// Options configures a Console.
type Options struct {
	// GlyphBase is the memory address the built-in font is copied to.
	// The default of 0x000 matches most interpreters.
	GlyphBase uint16
}

// Console is the standard machine state implementation. Registers, memory,
// program counter and call stack are only touched by the emulator goroutine.
// Display, keypad and timers are shared with the host and guarded by
// dedicated mutexes.
type Console struct {
	memory    [MemorySize]byte
	registers [RegisterCount]uint8
	pc        uint16
	index     uint16
	stack     []uint16
	glyphBase uint16

	displayMu sync.Mutex
	display   [DisplaySize]byte

	keyMu   sync.Mutex
	keys    [KeyCount]bool
	waiters []chan uint8

	timerMu    sync.Mutex
	delayTimer uint8
	soundTimer uint8
}

// Compile-time check to ensure Console implements State.
var _ State = (*Console)(nil)

// New creates a console with the font table in place and the program counter
// at the entry address.
func New(opts Options) *Console {
	c := &Console{
		pc:        EntryAddress,
		glyphBase: opts.GlyphBase & AddrMask,
	}
	for i, b := range font {
		c.WriteMem(c.glyphBase+uint16(i), b)
	}
	return c
}

// Load copies a program image to the entry address. It returns an error if
// the image does not fit into the memory above the entry address.
func (c *Console) Load(data []byte) error {
	if len(data) > MemorySize-EntryAddress {
		return fmt.Errorf("program image of %d bytes exceeds the %d byte limit",
			len(data), MemorySize-EntryAddress)
	}

	copy(c.memory[EntryAddress:], data)
	return nil
}

// Register returns the value of general purpose register r.
func (c *Console) Register(r uint8) uint8 {
	if r >= RegisterCount {
		panic(fmt.Sprintf("machine: register %d out of range", r))
	}
	return c.registers[r]
}

// SetRegister sets general purpose register r to v.
func (c *Console) SetRegister(r uint8, v uint8) {
	if r >= RegisterCount {
		panic(fmt.Sprintf("machine: register %d out of range", r))
	}
	c.registers[r] = v
}

// PC returns the program counter.
func (c *Console) PC() uint16 {
	return c.pc
}

// SetPC sets the program counter, masked to 12 bits.
func (c *Console) SetPC(addr uint16) {
	c.pc = addr & AddrMask
}

// Index returns the index register.
func (c *Console) Index() uint16 {
	return c.index
}

// SetIndex sets the index register, masked to 12 bits.
func (c *Console) SetIndex(v uint16) {
	c.index = v & AddrMask
}

// Push pushes a return address onto the call stack. The stack has no depth
// limit.
func (c *Console) Push(addr uint16) {
	c.stack = append(c.stack, addr&AddrMask)
}

// Pop removes and returns the top of the call stack. Popping an empty stack
// panics.
func (c *Console) Pop() uint16 {
	if len(c.stack) == 0 {
		panic("machine: call stack underflow")
	}
	addr := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return addr
}

// StackDepth returns the number of return addresses on the call stack.
func (c *Console) StackDepth() int {
	return len(c.stack)
}

// ReadMem returns the memory byte at addr, masked to 12 bits.
func (c *Console) ReadMem(addr uint16) byte {
	return c.memory[addr&AddrMask]
}

// WriteMem sets the memory byte at addr, masked to 12 bits.
func (c *Console) WriteMem(addr uint16, v byte) {
	c.memory[addr&AddrMask] = v
}

// ClearDisplay switches all pixels off.
func (c *Console) ClearDisplay() {
	c.displayMu.Lock()
	defer c.displayMu.Unlock()

	c.display = [DisplaySize]byte{}
}

// XORLine XOR-composites 8 horizontally consecutive pixels onto the display,
// most significant bit leftmost, starting at pixel (x, y). It reports whether
// any lit pixel was switched off. Coordinates wrap at the display edges and
// pixels spilling over the right edge wrap within the same row.
func (c *Console) XORLine(x uint8, y uint8, bits byte) bool {
	x %= DisplayWidth
	y %= DisplayHeight

	c.displayMu.Lock()
	defer c.displayMu.Unlock()

	row := int(y) * DisplayPitch
	shift := int(x % 8)
	first := int(x / 8)

	part := bits >> shift
	old := c.display[row+first]
	c.display[row+first] = old ^ part
	collision := old&part != 0

	if shift > 0 {
		second := (first + 1) % DisplayPitch
		part = bits << (8 - shift)
		old = c.display[row+second]
		c.display[row+second] = old ^ part
		collision = collision || old&part != 0
	}
	return collision
}

// Display returns a copy of the packed display buffer, 8 pixels per byte
// with the leftmost pixel in the most significant bit, DisplayPitch bytes
// per row.
func (c *Console) Display() [DisplaySize]byte {
	c.displayMu.Lock()
	defer c.displayMu.Unlock()

	return c.display
}

// KeyPressed reports whether keypad key (low nibble of key) is pressed.
func (c *Console) KeyPressed(key uint8) bool {
	key &= 0x0F

	c.keyMu.Lock()
	defer c.keyMu.Unlock()

	return c.keys[key]
}

// PressKey marks a keypad key as pressed and wakes up any instruction
// waiting for a key. Repeated presses without a release in between do not
// count as new key events.
func (c *Console) PressKey(key uint8) {
	key &= 0x0F

	c.keyMu.Lock()
	if c.keys[key] {
		c.keyMu.Unlock()
		return
	}
	c.keys[key] = true
	waiters := c.waiters
	c.waiters = nil
	c.keyMu.Unlock()

	for _, waiter := range waiters {
		waiter <- key
	}
}

// ReleaseKey marks a keypad key as released.
func (c *Console) ReleaseKey(key uint8) {
	key &= 0x0F

	c.keyMu.Lock()
	defer c.keyMu.Unlock()

	c.keys[key] = false
}

// WaitKey blocks until the next key press and returns the pressed key.
// Cancelling the context aborts the wait.
func (c *Console) WaitKey(ctx context.Context) (uint8, error) {
	waiter := make(chan uint8, 1)

	c.keyMu.Lock()
	c.waiters = append(c.waiters, waiter)
	c.keyMu.Unlock()

	select {
	case key := <-waiter:
		return key, nil

	case <-ctx.Done():
		return 0, fmt.Errorf("waiting for key press: %w", ctx.Err())
	}
}

// DelayTimer returns the delay timer value.
func (c *Console) DelayTimer() uint8 {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	return c.delayTimer
}

// SetDelayTimer sets the delay timer.
func (c *Console) SetDelayTimer(v uint8) {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	c.delayTimer = v
}

// SetSoundTimer sets the sound timer.
func (c *Console) SetSoundTimer(v uint8) {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	c.soundTimer = v
}

// SoundActive reports whether the sound timer is running. Hosts use it to
// signal the beep state without producing audio.
func (c *Console) SoundActive() bool {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	return c.soundTimer > 0
}

// TickTimers decrements both timers by up to n ticks, stopping at zero.
func (c *Console) TickTimers(n int) {
	if n <= 0 {
		return
	}

	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	c.delayTimer = decrement(c.delayTimer, n)
	c.soundTimer = decrement(c.soundTimer, n)
}

// GlyphAddr returns the address of the built-in glyph for hexadecimal digit
// (low nibble of digit).
func (c *Console) GlyphAddr(digit uint8) uint16 {
	return (c.glyphBase + uint16(digit&0x0F)*GlyphSize) & AddrMask
}

func decrement(timer uint8, n int) uint8 {
	if n >= int(timer) {
		return 0
	}
	return timer - uint8(n)
}
