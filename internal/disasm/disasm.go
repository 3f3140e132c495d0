// Package disasm formats CHIP-8 opcodes as assembler text and produces ROM
// listings. Instruction recognition is driven by the instruction set catalog
// of retrogolib, formatting follows the common Vx/Vy assembler notation.
package disasm

import (
	"fmt"
	"io"

	"github.com/retroenv/retrogolib/arch/cpu/chip8"
)

// opcodeSize is the size of a CHIP-8 instruction in bytes.
const opcodeSize = 2

// Lookup returns the catalog instruction matching the opcode.
func Lookup(opcode uint16) (*chip8.Instruction, bool) {
	firstNibble := (opcode & 0xF000) >> 12
	for _, op := range chip8.Opcodes[int(firstNibble)] {
		if op.Info.Mask&opcode == op.Info.Value {
			if op.Instruction == nil {
				break
			}
			return op.Instruction, true
		}
	}
	return nil, false
}

// Format returns the assembler representation of an opcode, for example
// "jp $234". Opcodes outside the instruction set are rendered as a data
// word.
func Format(opcode uint16) string {
	ins, ok := Lookup(opcode)
	if !ok {
		return fmt.Sprintf(".word $%04X", opcode)
	}

	params := formatParams(ins.Name, opcode)
	if params == "" {
		return ins.Name
	}
	return fmt.Sprintf("%s %s", ins.Name, params)
}

// Listing writes a disassembly of a program image loaded at base, one line
// per instruction word with its address and hex value.
func Listing(w io.Writer, data []byte, base uint16) error {
	for i := 0; i+1 < len(data); i += opcodeSize {
		opcode := uint16(data[i])<<8 | uint16(data[i+1])
		line := fmt.Sprintf("%04X: %04X  %s\n", base+uint16(i), opcode, Format(opcode))
		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("writing listing: %w", err)
		}
	}

	if len(data)%opcodeSize != 0 {
		i := len(data) - 1
		line := fmt.Sprintf("%04X: %02X    .byte $%02X\n", base+uint16(i), data[i], data[i])
		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("writing listing: %w", err)
		}
	}
	return nil
}

// formatParams returns the parameter string for an instruction. Instructions
// with an empty parameter list format as the bare mnemonic.
func formatParams(name string, opcode uint16) string {
	switch name {
	case chip8.JpInst.Name:
		return jumpParams(opcode)
	case chip8.CallInst.Name:
		return fmt.Sprintf("$%03X", opcode&0x0FFF)
	case chip8.SeInst.Name, chip8.SneInst.Name:
		return compareParams(opcode)
	case chip8.LdInst.Name:
		return loadParams(opcode)
	case chip8.AddInst.Name:
		return addParams(opcode)
	case chip8.OrInst.Name, chip8.AndInst.Name, chip8.XorInst.Name, chip8.SubInst.Name, chip8.SubnInst.Name:
		return registerPairParams(opcode)
	case chip8.ShrInst.Name, chip8.ShlInst.Name, chip8.SkpInst.Name, chip8.SknpInst.Name:
		return fmt.Sprintf("V%X", registerX(opcode))
	case chip8.RndInst.Name:
		return fmt.Sprintf("V%X, $%02X", registerX(opcode), opcode&0x00FF)
	case chip8.DrwInst.Name:
		return fmt.Sprintf("V%X, V%X, $%X", registerX(opcode), registerY(opcode), opcode&0x000F)
	}
	return ""
}

// jumpParams formats jp $addr and jp V0, $addr.
func jumpParams(opcode uint16) string {
	if opcode&0xF000 == 0xB000 {
		return fmt.Sprintf("V0, $%03X", opcode&0x0FFF)
	}
	return fmt.Sprintf("$%03X", opcode&0x0FFF)
}

// compareParams formats the se/sne variants against a byte or a register.
func compareParams(opcode uint16) string {
	switch opcode & 0xF000 {
	case 0x3000, 0x4000:
		return fmt.Sprintf("V%X, $%02X", registerX(opcode), opcode&0x00FF)
	case 0x5000, 0x9000:
		return registerPairParams(opcode)
	}
	return ""
}

// loadParams formats the ld family, including the timer, key, font, BCD and
// memory block transfer forms.
func loadParams(opcode uint16) string {
	x := registerX(opcode)

	switch opcode & 0xF000 {
	case 0x6000:
		return fmt.Sprintf("V%X, $%02X", x, opcode&0x00FF)
	case 0x8000:
		return registerPairParams(opcode)
	case 0xA000:
		return fmt.Sprintf("I, $%03X", opcode&0x0FFF)
	case 0xF000:
	default:
		return ""
	}

	switch opcode & 0x00FF {
	case 0x07:
		return fmt.Sprintf("V%X, DT", x)
	case 0x0A:
		return fmt.Sprintf("V%X, K", x)
	case 0x15:
		return fmt.Sprintf("DT, V%X", x)
	case 0x18:
		return fmt.Sprintf("ST, V%X", x)
	case 0x29:
		return fmt.Sprintf("F, V%X", x)
	case 0x33:
		return fmt.Sprintf("B, V%X", x)
	case 0x55:
		return fmt.Sprintf("[I], V%X", x)
	case 0x65:
		return fmt.Sprintf("V%X, [I]", x)
	}
	return ""
}

// addParams formats add with a byte, register or index register target.
func addParams(opcode uint16) string {
	switch opcode & 0xF000 {
	case 0x7000:
		return fmt.Sprintf("V%X, $%02X", registerX(opcode), opcode&0x00FF)
	case 0x8000:
		return registerPairParams(opcode)
	case 0xF000:
		return fmt.Sprintf("I, V%X", registerX(opcode))
	}
	return ""
}

func registerPairParams(opcode uint16) string {
	return fmt.Sprintf("V%X, V%X", registerX(opcode), registerY(opcode))
}

func registerX(opcode uint16) uint16 {
	return (opcode & 0x0F00) >> 8
}

func registerY(opcode uint16) uint16 {
	return (opcode & 0x00F0) >> 4
}
