// Package decoder translates CHIP-8 opcodes into IL micro-programs.
// Decoding is a pure function of the 16-bit opcode and the configured
// quirks; operand extraction and quirk resolution happen here so that the
// execution engine stays free of per-opcode special cases.
package decoder

import (
	"errors"
	"fmt"

	"github.com/retroenv/chip8go/internal/il"
	"github.com/retroenv/chip8go/internal/options"
)

// Decoding errors, both halt execution when they surface. Unsupported
// opcodes are recognized Super-CHIP extensions that are deliberately not
// implemented.
var (
	ErrIllegalOpcode     = errors.New("illegal opcode")
	ErrUnsupportedOpcode = errors.New("unsupported opcode")
)

// flagRegister receives carry, borrow and shift bits.
const flagRegister = 0xF

// Decoder translates opcodes into micro-programs. It holds no mutable state
// and is safe for concurrent use.
type Decoder struct {
	quirks options.Quirks
}

// New returns a decoder for the given quirk configuration.
func New(quirks options.Quirks) *Decoder {
	return &Decoder{
		quirks: quirks,
	}
}

// Decode translates a single opcode into its micro-program.
func (d *Decoder) Decode(opcode uint16) (il.Program, error) {
	x := registerX(opcode)
	y := registerY(opcode)
	kk := uint8(opcode & 0x00FF)
	nnn := opcode & 0x0FFF

	switch opcode & 0xF000 {
	case 0x0000:
		return d.decodeSystem(opcode)

	case 0x1000: // JP addr
		return il.Program{il.PushAddr{Addr: nnn}, il.Jump{}}, nil

	case 0x2000: // CALL addr
		return il.Program{il.PushAddr{Addr: nnn}, il.Call{}}, nil

	case 0x3000: // SE Vx, byte
		return il.Program{il.PushReg{Reg: x}, il.PushByte{V: kk}, il.Equal{}, il.SkipIf{}}, nil

	case 0x4000: // SNE Vx, byte
		return il.Program{il.PushReg{Reg: x}, il.PushByte{V: kk}, il.Equal{}, il.Not{}, il.SkipIf{}}, nil

	case 0x5000: // SE Vx, Vy
		if opcode&0x000F != 0 {
			return nil, illegal(opcode)
		}
		return il.Program{il.PushReg{Reg: x}, il.PushReg{Reg: y}, il.Equal{}, il.SkipIf{}}, nil

	case 0x6000: // LD Vx, byte
		return il.Program{il.PushByte{V: kk}, il.StoreReg{Reg: x}}, nil

	case 0x7000: // ADD Vx, byte
		return il.Program{il.PushReg{Reg: x}, il.PushByte{V: kk}, il.Add{}, il.StoreReg{Reg: x}}, nil

	case 0x8000:
		return d.decodeArithmetic(opcode)

	case 0x9000: // SNE Vx, Vy
		if opcode&0x000F != 0 {
			return nil, illegal(opcode)
		}
		return il.Program{il.PushReg{Reg: x}, il.PushReg{Reg: y}, il.Equal{}, il.Not{}, il.SkipIf{}}, nil

	case 0xA000: // LD I, addr
		return il.Program{il.PushAddr{Addr: nnn}, il.SetIndex{}}, nil

	case 0xB000: // JP V0, addr
		return il.Program{il.PushAddr{Addr: nnn}, il.PushReg{Reg: 0}, il.AddAddr{}, il.Jump{}}, nil

	case 0xC000: // RND Vx, byte
		return il.Program{il.Rand{Mask: kk}, il.StoreReg{Reg: x}}, nil

	case 0xD000: // DRW Vx, Vy, nibble
		rows := uint8(opcode & 0x000F)
		if rows == 0 {
			rows = 16
		}
		return il.Program{
			il.PushReg{Reg: x},
			il.PushReg{Reg: y},
			il.Sprite{Rows: rows, Clip: d.quirks.ClipSprites},
			il.StoreFlag{},
		}, nil

	case 0xE000:
		return d.decodeKey(opcode)

	case 0xF000:
		return d.decodeMisc(opcode)
	}

	return nil, illegal(opcode)
}

// decodeSystem translates the 0nnn group. Machine code calls into
// interpreter memory are not part of the portable instruction set and are
// treated as illegal.
func (d *Decoder) decodeSystem(opcode uint16) (il.Program, error) {
	switch opcode {
	case 0x00E0: // CLS
		return il.Program{il.Clear{}}, nil

	case 0x00EE: // RET
		return il.Program{il.Return{}}, nil

	case 0x00FB, 0x00FC, 0x00FD, 0x00FE, 0x00FF: // Super-CHIP
		return nil, unsupported(opcode)
	}

	if opcode&0xFFF0 == 0x00C0 { // Super-CHIP SCD nibble
		return nil, unsupported(opcode)
	}
	return nil, illegal(opcode)
}

// decodeArithmetic translates the 8xyn register operation group. The
// arithmetic operations push their flag below the result so that the flag
// register write comes last and wins when x is 15.
func (d *Decoder) decodeArithmetic(opcode uint16) (il.Program, error) {
	x := registerX(opcode)
	y := registerY(opcode)

	switch opcode & 0x000F {
	case 0x0: // LD Vx, Vy
		return il.Program{il.PushReg{Reg: y}, il.StoreReg{Reg: x}}, nil

	case 0x1: // OR Vx, Vy
		return il.Program{il.PushReg{Reg: x}, il.PushReg{Reg: y}, il.Or{}, il.StoreReg{Reg: x}}, nil

	case 0x2: // AND Vx, Vy
		return il.Program{il.PushReg{Reg: x}, il.PushReg{Reg: y}, il.And{}, il.StoreReg{Reg: x}}, nil

	case 0x3: // XOR Vx, Vy
		return il.Program{il.PushReg{Reg: x}, il.PushReg{Reg: y}, il.Xor{}, il.StoreReg{Reg: x}}, nil

	case 0x4: // ADD Vx, Vy
		return il.Program{il.PushReg{Reg: x}, il.PushReg{Reg: y}, il.AddCarry{},
			il.StoreReg{Reg: x}, il.StoreReg{Reg: flagRegister}}, nil

	case 0x5: // SUB Vx, Vy
		return il.Program{il.PushReg{Reg: x}, il.PushReg{Reg: y}, il.SubBorrow{},
			il.StoreReg{Reg: x}, il.StoreReg{Reg: flagRegister}}, nil

	case 0x6: // SHR Vx
		return il.Program{il.PushReg{Reg: d.shiftSource(x, y)}, il.ShiftRight{},
			il.StoreReg{Reg: x}, il.StoreReg{Reg: flagRegister}}, nil

	case 0x7: // SUBN Vx, Vy
		return il.Program{il.PushReg{Reg: y}, il.PushReg{Reg: x}, il.SubBorrow{},
			il.StoreReg{Reg: x}, il.StoreReg{Reg: flagRegister}}, nil

	case 0xE: // SHL Vx
		return il.Program{il.PushReg{Reg: d.shiftSource(x, y)}, il.ShiftLeft{},
			il.StoreReg{Reg: x}, il.StoreReg{Reg: flagRegister}}, nil
	}

	return nil, illegal(opcode)
}

// decodeKey translates the Exkk key skip group.
func (d *Decoder) decodeKey(opcode uint16) (il.Program, error) {
	x := registerX(opcode)

	switch opcode & 0x00FF {
	case 0x9E: // SKP Vx
		return il.Program{il.PushReg{Reg: x}, il.KeyPressed{}, il.SkipIf{}}, nil

	case 0xA1: // SKNP Vx
		return il.Program{il.PushReg{Reg: x}, il.KeyPressed{}, il.Not{}, il.SkipIf{}}, nil
	}

	return nil, illegal(opcode)
}

// decodeMisc translates the Fxkk timer, memory and input group.
func (d *Decoder) decodeMisc(opcode uint16) (il.Program, error) {
	x := registerX(opcode)

	switch opcode & 0x00FF {
	case 0x07: // LD Vx, DT
		return il.Program{il.PushDelay{}, il.StoreReg{Reg: x}}, nil

	case 0x0A: // LD Vx, K
		return il.Program{il.WaitKey{}, il.StoreReg{Reg: x}}, nil

	case 0x15: // LD DT, Vx
		return il.Program{il.PushReg{Reg: x}, il.SetDelay{}}, nil

	case 0x18: // LD ST, Vx
		return il.Program{il.PushReg{Reg: x}, il.SetSound{}}, nil

	case 0x1E: // ADD I, Vx
		if d.quirks.IndexOverflowFlag {
			return il.Program{il.PushIndex{}, il.PushReg{Reg: x}, il.AddAddrCarry{},
				il.SetIndex{}, il.StoreReg{Reg: flagRegister}}, nil
		}
		return il.Program{il.PushIndex{}, il.PushReg{Reg: x}, il.AddAddr{}, il.SetIndex{}}, nil

	case 0x29: // LD F, Vx
		return il.Program{il.PushReg{Reg: x}, il.GlyphAddr{}, il.SetIndex{}}, nil

	case 0x33: // LD B, Vx
		return il.Program{il.PushReg{Reg: x}, il.BCD{}}, nil

	case 0x55: // LD [I], Vx
		return il.Program{il.StoreRegs{X: x}}, nil

	case 0x65: // LD Vx, [I]
		return il.Program{il.LoadRegs{X: x}}, nil

	case 0x30, 0x75, 0x85: // Super-CHIP
		return nil, unsupported(opcode)
	}

	return nil, illegal(opcode)
}

// shiftSource resolves which register the shift instructions read from.
func (d *Decoder) shiftSource(x, y uint8) uint8 {
	if d.quirks.ShiftSourceY {
		return y
	}
	return x
}

func illegal(opcode uint16) error {
	return fmt.Errorf("opcode %04x: %w", opcode, ErrIllegalOpcode)
}

func unsupported(opcode uint16) error {
	return fmt.Errorf("opcode %04x: %w", opcode, ErrUnsupportedOpcode)
}

// registerX extracts the X register nibble from an opcode.
func registerX(opcode uint16) uint8 {
	return uint8((opcode & 0x0F00) >> 8)
}

// registerY extracts the Y register nibble from an opcode.
func registerY(opcode uint16) uint8 {
	return uint8((opcode & 0x00F0) >> 4)
}
