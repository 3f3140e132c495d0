package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/retroenv/chip8go/internal/il"
	"github.com/retroenv/retrogolib/assert"
)

func newTestEngine() *Engine {
	return New(rand.New(rand.NewPCG(1, 2)))
}

// run executes a program that is expected to succeed and returns whether it
// redirected the program counter.
func run(t *testing.T, st *mockState, program il.Program) bool {
	t.Helper()

	redirected, err := newTestEngine().Run(context.Background(), program, st)
	assert.NoError(t, err)
	return redirected
}

func TestRunLoadStore(t *testing.T) {
	st := newMockState()

	redirected := run(t, st, il.Program{il.PushByte{V: 0x42}, il.StoreReg{Reg: 3}})

	assert.False(t, redirected)
	assert.Equal(t, 0x42, st.registers[3])
}

func TestRunAddCarry(t *testing.T) {
	tests := []struct {
		name string
		a    uint8
		b    uint8
		sum  uint8
		flag uint8
	}{
		{"no carry", 200, 55, 255, 0},
		{"carry to zero", 200, 56, 0, 1},
		{"both max", 255, 255, 254, 1},
		{"zero", 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newMockState()

			run(t, st, il.Program{il.PushByte{V: tt.a}, il.PushByte{V: tt.b},
				il.AddCarry{}, il.StoreReg{Reg: 0}, il.StoreReg{Reg: 0xF}})

			assert.Equal(t, tt.sum, st.registers[0])
			assert.Equal(t, tt.flag, st.registers[0xF])
		})
	}
}

func TestRunAddCarryIntoFlagRegister(t *testing.T) {
	st := newMockState()

	// when the destination is VF the flag write comes last and wins
	run(t, st, il.Program{il.PushByte{V: 200}, il.PushByte{V: 56},
		il.AddCarry{}, il.StoreReg{Reg: 0xF}, il.StoreReg{Reg: 0xF}})

	assert.Equal(t, 1, st.registers[0xF])
}

func TestRunSubBorrow(t *testing.T) {
	tests := []struct {
		name       string
		minuend    uint8
		subtrahend uint8
		diff       uint8
		flag       uint8
	}{
		{"no borrow", 10, 5, 5, 1},
		{"borrow", 5, 10, 251, 0},
		{"equal", 5, 5, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newMockState()

			run(t, st, il.Program{il.PushByte{V: tt.minuend}, il.PushByte{V: tt.subtrahend},
				il.SubBorrow{}, il.StoreReg{Reg: 0}, il.StoreReg{Reg: 0xF}})

			assert.Equal(t, tt.diff, st.registers[0])
			assert.Equal(t, tt.flag, st.registers[0xF])
		})
	}
}

func TestRunAddLeavesFlagAlone(t *testing.T) {
	st := newMockState()
	st.registers[0xF] = 7

	run(t, st, il.Program{il.PushByte{V: 200}, il.PushByte{V: 100},
		il.Add{}, il.StoreReg{Reg: 0}})

	assert.Equal(t, 44, st.registers[0])
	assert.Equal(t, 7, st.registers[0xF])
}

func TestRunShifts(t *testing.T) {
	st := newMockState()
	run(t, st, il.Program{il.PushByte{V: 0x05}, il.ShiftRight{},
		il.StoreReg{Reg: 0}, il.StoreReg{Reg: 0xF}})
	assert.Equal(t, 0x02, st.registers[0])
	assert.Equal(t, 1, st.registers[0xF])

	st = newMockState()
	run(t, st, il.Program{il.PushByte{V: 0x81}, il.ShiftLeft{},
		il.StoreReg{Reg: 0}, il.StoreReg{Reg: 0xF}})
	assert.Equal(t, 0x02, st.registers[0])
	assert.Equal(t, 1, st.registers[0xF])

	st = newMockState()
	run(t, st, il.Program{il.PushByte{V: 0x41}, il.ShiftLeft{},
		il.StoreReg{Reg: 0}, il.StoreReg{Reg: 0xF}})
	assert.Equal(t, 0x82, st.registers[0])
	assert.Equal(t, 0, st.registers[0xF])
}

func TestRunLogic(t *testing.T) {
	st := newMockState()
	run(t, st, il.Program{il.PushByte{V: 0xF0}, il.PushByte{V: 0x0F},
		il.Or{}, il.StoreReg{Reg: 0}})
	assert.Equal(t, 0xFF, st.registers[0])

	st = newMockState()
	run(t, st, il.Program{il.PushByte{V: 0xF0}, il.PushByte{V: 0x3C},
		il.And{}, il.StoreReg{Reg: 0}})
	assert.Equal(t, 0x30, st.registers[0])

	st = newMockState()
	run(t, st, il.Program{il.PushByte{V: 0xFF}, il.PushByte{V: 0x0F},
		il.Xor{}, il.StoreReg{Reg: 0}})
	assert.Equal(t, 0xF0, st.registers[0])
}

func TestRunEqual(t *testing.T) {
	st := newMockState()
	run(t, st, il.Program{il.PushByte{V: 5}, il.PushByte{V: 5}, il.Equal{}, il.StoreFlag{}})
	assert.Equal(t, 1, st.registers[0xF])

	st = newMockState()
	run(t, st, il.Program{il.PushByte{V: 5}, il.PushByte{V: 6}, il.Equal{}, il.StoreFlag{}})
	assert.Equal(t, 0, st.registers[0xF])

	st = newMockState()
	run(t, st, il.Program{il.PushAddr{Addr: 0x123}, il.PushAddr{Addr: 0x123},
		il.Equal{}, il.StoreFlag{}})
	assert.Equal(t, 1, st.registers[0xF])

	st = newMockState()
	run(t, st, il.Program{il.PushByte{V: 1}, il.PushByte{V: 2}, il.Equal{},
		il.Not{}, il.StoreFlag{}})
	assert.Equal(t, 1, st.registers[0xF])
}

func TestRunEqualTagMismatch(t *testing.T) {
	defer func() {
		assert.NotNil(t, recover())
	}()

	_, _ = newTestEngine().Run(context.Background(),
		il.Program{il.PushByte{V: 1}, il.PushAddr{Addr: 1}, il.Equal{}}, newMockState())
}

func TestRunJump(t *testing.T) {
	st := newMockState()

	redirected := run(t, st, il.Program{il.PushAddr{Addr: 0x400}, il.Jump{}})

	assert.True(t, redirected)
	assert.Equal(t, 0x400, st.pc)
}

func TestRunCallReturn(t *testing.T) {
	st := newMockState()
	st.pc = 0x250

	redirected := run(t, st, il.Program{il.PushAddr{Addr: 0x400}, il.Call{}})
	assert.True(t, redirected)
	assert.Equal(t, 0x400, st.pc)
	assert.Len(t, st.stack, 1)
	assert.Equal(t, 0x252, st.stack[0], "call pushes the address after the call instruction")

	redirected = run(t, st, il.Program{il.Return{}})
	assert.True(t, redirected)
	assert.Equal(t, 0x252, st.pc)
	assert.Equal(t, 0, len(st.stack))
}

func TestRunReturnUnderflow(t *testing.T) {
	defer func() {
		assert.NotNil(t, recover())
	}()

	_, _ = newTestEngine().Run(context.Background(), il.Program{il.Return{}}, newMockState())
}

func TestRunSkipIf(t *testing.T) {
	st := newMockState()
	redirected := run(t, st, il.Program{il.PushByte{V: 3}, il.PushByte{V: 3},
		il.Equal{}, il.SkipIf{}})
	assert.True(t, redirected)
	assert.Equal(t, 0x204, st.pc, "taken skip jumps over the next instruction")

	st = newMockState()
	redirected = run(t, st, il.Program{il.PushByte{V: 3}, il.PushByte{V: 4},
		il.Equal{}, il.SkipIf{}})
	assert.True(t, redirected)
	assert.Equal(t, 0x202, st.pc, "untaken skip advances to the next instruction")
}

func TestRunKeySkip(t *testing.T) {
	st := newMockState()
	st.keys[5] = true
	run(t, st, il.Program{il.PushByte{V: 5}, il.KeyPressed{}, il.SkipIf{}})
	assert.Equal(t, 0x204, st.pc)

	st = newMockState()
	run(t, st, il.Program{il.PushByte{V: 6}, il.KeyPressed{}, il.Not{}, il.SkipIf{}})
	assert.Equal(t, 0x204, st.pc)
}

func TestRunIndex(t *testing.T) {
	st := newMockState()
	run(t, st, il.Program{il.PushAddr{Addr: 0x300}, il.SetIndex{}})
	assert.Equal(t, 0x300, st.index)

	st = newMockState()
	st.index = 0xFFE
	st.registers[1] = 4
	run(t, st, il.Program{il.PushIndex{}, il.PushReg{Reg: 1}, il.AddAddr{}, il.SetIndex{}})
	assert.Equal(t, 0x002, st.index, "index addition wraps to 12 bits")
}

func TestRunIndexOverflowFlag(t *testing.T) {
	st := newMockState()
	st.index = 0xFFE
	st.registers[1] = 4
	run(t, st, il.Program{il.PushIndex{}, il.PushReg{Reg: 1}, il.AddAddrCarry{},
		il.SetIndex{}, il.StoreReg{Reg: 0xF}})
	assert.Equal(t, 0x002, st.index)
	assert.Equal(t, 1, st.registers[0xF])

	st = newMockState()
	st.index = 0x100
	st.registers[1] = 4
	run(t, st, il.Program{il.PushIndex{}, il.PushReg{Reg: 1}, il.AddAddrCarry{},
		il.SetIndex{}, il.StoreReg{Reg: 0xF}})
	assert.Equal(t, 0x104, st.index)
	assert.Equal(t, 0, st.registers[0xF])
}

func TestRunRand(t *testing.T) {
	st := newMockState()
	for range 10 {
		run(t, st, il.Program{il.Rand{Mask: 0x0F}, il.StoreReg{Reg: 0}})
		assert.Equal(t, 0, st.registers[0]&0xF0, "random byte honors the mask")
	}

	run(t, st, il.Program{il.Rand{Mask: 0x00}, il.StoreReg{Reg: 0}})
	assert.Equal(t, 0, st.registers[0])
}

func TestRunRandDeterminism(t *testing.T) {
	first := New(rand.New(rand.NewPCG(7, 9)))
	second := New(rand.New(rand.NewPCG(7, 9)))

	for range 5 {
		a := newMockState()
		b := newMockState()
		_, err := first.Run(context.Background(),
			il.Program{il.Rand{Mask: 0xFF}, il.StoreReg{Reg: 0}}, a)
		assert.NoError(t, err)
		_, err = second.Run(context.Background(),
			il.Program{il.Rand{Mask: 0xFF}, il.StoreReg{Reg: 0}}, b)
		assert.NoError(t, err)

		assert.Equal(t, a.registers[0], b.registers[0])
	}
}

func TestRunTimers(t *testing.T) {
	st := newMockState()
	run(t, st, il.Program{il.PushByte{V: 60}, il.SetDelay{}})
	assert.Equal(t, 60, st.delay)

	run(t, st, il.Program{il.PushByte{V: 30}, il.SetSound{}})
	assert.Equal(t, 30, st.sound)

	st.delay = 42
	run(t, st, il.Program{il.PushDelay{}, il.StoreReg{Reg: 2}})
	assert.Equal(t, 42, st.registers[2])
}

func TestRunClear(t *testing.T) {
	st := newMockState()

	run(t, st, il.Program{il.Clear{}})

	assert.True(t, st.cleared)
}

func TestRunSprite(t *testing.T) {
	st := newMockState()
	st.index = 0x300
	st.memory[0x300] = 0xAA
	st.memory[0x301] = 0x55

	run(t, st, il.Program{il.PushByte{V: 10}, il.PushByte{V: 20},
		il.Sprite{Rows: 2}, il.StoreFlag{}})

	assert.Len(t, st.lines, 2)
	assert.Equal(t, drawnLine{x: 10, y: 20, bits: 0xAA}, st.lines[0])
	assert.Equal(t, drawnLine{x: 10, y: 21, bits: 0x55}, st.lines[1])
	assert.Equal(t, 0, st.registers[0xF])
}

func TestRunSpriteWrap(t *testing.T) {
	st := newMockState()

	// start coordinates wrap, rows past the bottom edge wrap to the top
	run(t, st, il.Program{il.PushByte{V: 70}, il.PushByte{V: 30},
		il.Sprite{Rows: 4}, il.StoreFlag{}})

	assert.Len(t, st.lines, 4)
	assert.Equal(t, drawnLine{x: 6, y: 30}, st.lines[0])
	assert.Equal(t, drawnLine{x: 6, y: 31}, st.lines[1])
	assert.Equal(t, drawnLine{x: 6, y: 0}, st.lines[2])
	assert.Equal(t, drawnLine{x: 6, y: 1}, st.lines[3])
}

func TestRunSpriteClip(t *testing.T) {
	st := newMockState()

	run(t, st, il.Program{il.PushByte{V: 0}, il.PushByte{V: 30},
		il.Sprite{Rows: 4, Clip: true}, il.StoreFlag{}})

	assert.Len(t, st.lines, 2)
	assert.Equal(t, drawnLine{x: 0, y: 30}, st.lines[0])
	assert.Equal(t, drawnLine{x: 0, y: 31}, st.lines[1])
}

func TestRunSpriteCollision(t *testing.T) {
	st := newMockState()
	st.collision = true

	run(t, st, il.Program{il.PushByte{V: 0}, il.PushByte{V: 0},
		il.Sprite{Rows: 1}, il.StoreFlag{}})

	assert.Equal(t, 1, st.registers[0xF])
}

func TestRunWaitKey(t *testing.T) {
	st := newMockState()
	st.waitKey = 0xB

	run(t, st, il.Program{il.WaitKey{}, il.StoreReg{Reg: 5}})

	assert.Equal(t, 0xB, st.registers[5])
}

func TestRunWaitKeyAborted(t *testing.T) {
	errAborted := errors.New("aborted") //nolint:err113 // test error
	st := newMockState()
	st.waitKeyErr = errAborted

	_, err := newTestEngine().Run(context.Background(),
		il.Program{il.WaitKey{}, il.StoreReg{Reg: 5}}, st)

	assert.True(t, errors.Is(err, errAborted))
}

func TestRunGlyphAddr(t *testing.T) {
	st := newMockState()

	run(t, st, il.Program{il.PushByte{V: 0x2B}, il.GlyphAddr{}, il.SetIndex{}})

	assert.Equal(t, 0xB*5, st.index, "glyph lookup uses the low nibble")
}

func TestRunBCD(t *testing.T) {
	st := newMockState()
	st.index = 0x300

	run(t, st, il.Program{il.PushByte{V: 255}, il.BCD{}})

	assert.Equal(t, 2, st.memory[0x300])
	assert.Equal(t, 5, st.memory[0x301])
	assert.Equal(t, 5, st.memory[0x302])
	assert.Equal(t, 0x300, st.index, "digit write leaves the index register alone")

	st.index = 0x310
	run(t, st, il.Program{il.PushByte{V: 7}, il.BCD{}})
	assert.Equal(t, 0, st.memory[0x310])
	assert.Equal(t, 0, st.memory[0x311])
	assert.Equal(t, 7, st.memory[0x312])
}

func TestRunStoreLoadRegs(t *testing.T) {
	st := newMockState()
	st.registers[0] = 0xA0
	st.registers[1] = 0xA1
	st.registers[2] = 0xA2
	st.index = 0x400

	run(t, st, il.Program{il.StoreRegs{X: 2}})

	assert.Equal(t, 0xA0, st.memory[0x400])
	assert.Equal(t, 0xA1, st.memory[0x401])
	assert.Equal(t, 0xA2, st.memory[0x402])
	assert.Equal(t, 0x403, st.index, "index register ends past the stored range")

	st = newMockState()
	st.memory[0x500] = 1
	st.memory[0x501] = 2
	st.memory[0x502] = 3
	st.index = 0x500

	run(t, st, il.Program{il.LoadRegs{X: 2}})

	assert.Equal(t, 1, st.registers[0])
	assert.Equal(t, 2, st.registers[1])
	assert.Equal(t, 3, st.registers[2])
	assert.Equal(t, 0x503, st.index)
}

func TestRunLeftoverOperand(t *testing.T) {
	defer func() {
		assert.NotNil(t, recover())
	}()

	_, _ = newTestEngine().Run(context.Background(),
		il.Program{il.PushByte{V: 1}}, newMockState())
}
