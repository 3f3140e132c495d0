// Package engine executes IL micro-programs against the machine state.
// Every micro-program runs on a fresh operand stack; a stack discipline
// violation is a decoder or engine bug and panics.
package engine

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/retroenv/chip8go/internal/il"
	"github.com/retroenv/chip8go/internal/machine"
)

// Engine executes micro-programs. The random number generator is the only
// state it owns, a fixed seed makes runs reproducible.
type Engine struct {
	rng *rand.Rand
}

// New returns an engine drawing random numbers from rng.
func New(rng *rand.Rand) *Engine {
	return &Engine{
		rng: rng,
	}
}

// Run executes a micro-program. The program counter keeps pointing at the
// current instruction while the program runs; Run reports whether an
// operation redirected it, in which case the caller must not advance it.
// The returned error is non-nil only when a blocking key wait is aborted by
// the context.
func (e *Engine) Run(ctx context.Context, program il.Program, st machine.State) (bool, error) {
	var stack il.Stack
	redirected := false

	for _, op := range program {
		redirect, err := e.exec(ctx, op, &stack, st)
		if err != nil {
			return false, err
		}
		redirected = redirected || redirect
	}

	if stack.Len() != 0 {
		panic(fmt.Sprintf("engine: %d values left on the operand stack", stack.Len()))
	}
	return redirected, nil
}

// exec executes a single operation and reports whether it redirected the
// program counter.
//
//nolint:cyclop,funlen // one case per IL operation
func (e *Engine) exec(ctx context.Context, op il.Op, stack *il.Stack, st machine.State) (bool, error) {
	switch op := op.(type) {
	case il.PushByte:
		stack.PushByte(op.V)

	case il.PushAddr:
		stack.PushAddr(op.Addr)

	case il.PushReg:
		stack.PushByte(st.Register(op.Reg))

	case il.PushIndex:
		stack.PushAddr(st.Index())

	case il.PushDelay:
		stack.PushByte(st.DelayTimer())

	case il.StoreReg:
		st.SetRegister(op.Reg, stack.PopByte())

	case il.StoreFlag:
		st.SetRegister(machine.FlagRegister, flagByte(stack.PopBool()))

	case il.SetIndex:
		st.SetIndex(stack.PopAddr())

	case il.SetDelay:
		st.SetDelayTimer(stack.PopByte())

	case il.SetSound:
		st.SetSoundTimer(stack.PopByte())

	case il.Equal:
		stack.PushBool(equalValues(stack.PopValue(), stack.PopValue()))

	case il.Not:
		stack.PushBool(!stack.PopBool())

	case il.Or:
		stack.PushByte(stack.PopByte() | stack.PopByte())

	case il.And:
		stack.PushByte(stack.PopByte() & stack.PopByte())

	case il.Xor:
		stack.PushByte(stack.PopByte() ^ stack.PopByte())

	case il.Add:
		stack.PushByte(stack.PopByte() + stack.PopByte())

	case il.AddCarry:
		sum := uint16(stack.PopByte()) + uint16(stack.PopByte())
		stack.PushByte(flagByte(sum > 0xFF))
		stack.PushByte(uint8(sum))

	case il.SubBorrow:
		subtrahend := stack.PopByte()
		minuend := stack.PopByte()
		stack.PushByte(flagByte(minuend >= subtrahend))
		stack.PushByte(minuend - subtrahend)

	case il.ShiftRight:
		v := stack.PopByte()
		stack.PushByte(v & 1)
		stack.PushByte(v >> 1)

	case il.ShiftLeft:
		v := stack.PopByte()
		stack.PushByte(v >> 7)
		stack.PushByte(v << 1)

	case il.AddAddr:
		v := stack.PopByte()
		stack.PushAddr(stack.PopAddr() + uint16(v))

	case il.AddAddrCarry:
		v := stack.PopByte()
		sum := stack.PopAddr() + uint16(v)
		stack.PushByte(flagByte(sum > il.AddrMask))
		stack.PushAddr(sum)

	case il.Rand:
		stack.PushByte(uint8(e.rng.UintN(256)) & op.Mask)

	case il.Jump:
		st.SetPC(stack.PopAddr())
		return true, nil

	case il.Call:
		target := stack.PopAddr()
		st.Push(st.PC() + 2)
		st.SetPC(target)
		return true, nil

	case il.Return:
		st.SetPC(st.Pop())
		return true, nil

	case il.SkipIf:
		pc := st.PC()
		if stack.PopBool() {
			st.SetPC(pc + 4)
		} else {
			st.SetPC(pc + 2)
		}
		return true, nil

	case il.Clear:
		st.ClearDisplay()

	case il.Sprite:
		drawSprite(op, stack, st)

	case il.KeyPressed:
		stack.PushBool(st.KeyPressed(stack.PopByte()))

	case il.WaitKey:
		key, err := st.WaitKey(ctx)
		if err != nil {
			return false, err
		}
		stack.PushByte(key)

	case il.GlyphAddr:
		stack.PushAddr(st.GlyphAddr(stack.PopByte()))

	case il.BCD:
		v := stack.PopByte()
		index := st.Index()
		st.WriteMem(index, v/100)
		st.WriteMem(index+1, v/10%10)
		st.WriteMem(index+2, v%10)

	case il.StoreRegs:
		index := st.Index()
		for r := uint8(0); r <= op.X; r++ {
			st.WriteMem(index, st.Register(r))
			index++
		}
		st.SetIndex(index)

	case il.LoadRegs:
		index := st.Index()
		for r := uint8(0); r <= op.X; r++ {
			st.SetRegister(r, st.ReadMem(index))
			index++
		}
		st.SetIndex(index)

	default:
		panic(fmt.Sprintf("engine: unknown operation %T", op))
	}

	return false, nil
}

// drawSprite reads the sprite rows at the index register and XOR-composites
// them onto the display, 8 pixels per row. The start coordinates wrap at the
// display edges; rows past the bottom edge wrap to the top or, when clipping
// is requested, are discarded.
func drawSprite(op il.Sprite, stack *il.Stack, st machine.State) {
	y := stack.PopByte() % machine.DisplayHeight
	x := stack.PopByte() % machine.DisplayWidth
	index := st.Index()

	collision := false
	for row := uint8(0); row < op.Rows; row++ {
		line := y + row
		if line >= machine.DisplayHeight {
			if op.Clip {
				break
			}
			line %= machine.DisplayHeight
		}

		bits := st.ReadMem(index + uint16(row))
		if st.XORLine(x, line, bits) {
			collision = true
		}
	}

	stack.PushBool(collision)
}

// equalValues compares two operand stack values which must carry the same
// tag.
func equalValues(a, b il.Value) bool {
	switch a := a.(type) {
	case il.Byte:
		if b, ok := b.(il.Byte); ok {
			return a == b
		}
	case il.Addr:
		if b, ok := b.(il.Addr); ok {
			return a == b
		}
	case il.Bool:
		if b, ok := b.(il.Bool); ok {
			return a == b
		}
	}
	panic(fmt.Sprintf("engine: comparing mismatched operand tags %T and %T", a, b))
}

func flagByte(flag bool) uint8 {
	if flag {
		return 1
	}
	return 0
}
