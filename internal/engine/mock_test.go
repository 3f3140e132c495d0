package engine

import (
	"context"

	"github.com/retroenv/chip8go/internal/machine"
)

// Compile-time check to ensure mockState implements machine.State.
var _ machine.State = (*mockState)(nil)

// drawnLine records a single XORLine invocation.
type drawnLine struct {
	x    uint8
	y    uint8
	bits byte
}

// mockState is a minimal machine state for testing that records display and
// key interactions.
type mockState struct {
	registers [machine.RegisterCount]uint8
	pc        uint16
	index     uint16
	stack     []uint16
	memory    [machine.MemorySize]byte
	delay     uint8
	sound     uint8

	keys       [machine.KeyCount]bool
	waitKey    uint8
	waitKeyErr error

	cleared   bool
	lines     []drawnLine
	collision bool
	glyphBase uint16
}

func newMockState() *mockState {
	return &mockState{
		pc: machine.EntryAddress,
	}
}

func (m *mockState) Register(r uint8) uint8 {
	return m.registers[r]
}

func (m *mockState) SetRegister(r uint8, v uint8) {
	m.registers[r] = v
}

func (m *mockState) PC() uint16 {
	return m.pc
}

func (m *mockState) SetPC(addr uint16) {
	m.pc = addr & machine.AddrMask
}

func (m *mockState) Index() uint16 {
	return m.index
}

func (m *mockState) SetIndex(v uint16) {
	m.index = v & machine.AddrMask
}

func (m *mockState) Push(addr uint16) {
	m.stack = append(m.stack, addr)
}

func (m *mockState) Pop() uint16 {
	if len(m.stack) == 0 {
		panic("pop on empty call stack")
	}
	addr := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return addr
}

func (m *mockState) ReadMem(addr uint16) byte {
	return m.memory[addr&machine.AddrMask]
}

func (m *mockState) WriteMem(addr uint16, v byte) {
	m.memory[addr&machine.AddrMask] = v
}

func (m *mockState) ClearDisplay() {
	m.cleared = true
}

func (m *mockState) XORLine(x uint8, y uint8, bits byte) bool {
	m.lines = append(m.lines, drawnLine{x: x, y: y, bits: bits})
	return m.collision
}

func (m *mockState) KeyPressed(key uint8) bool {
	return m.keys[key&0x0F]
}

func (m *mockState) WaitKey(_ context.Context) (uint8, error) {
	if m.waitKeyErr != nil {
		return 0, m.waitKeyErr
	}
	return m.waitKey, nil
}

func (m *mockState) DelayTimer() uint8 {
	return m.delay
}

func (m *mockState) SetDelayTimer(v uint8) {
	m.delay = v
}

func (m *mockState) SetSoundTimer(v uint8) {
	m.sound = v
}

func (m *mockState) GlyphAddr(digit uint8) uint16 {
	return m.glyphBase + uint16(digit&0x0F)*machine.GlyphSize
}
