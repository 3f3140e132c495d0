// Package il defines the intermediate language that CHIP-8 opcodes decode
// into. Every opcode becomes a short micro-program of primitive operations
// that the engine executes against a typed operand stack and the machine
// state. All per-opcode decisions happen in the decoder; the operations
// themselves are generic.
package il

// Op is a single IL operation. The concrete types below form a closed set;
// the engine matches them exhaustively and treats any unknown operation as a
// fatal programming error.
type Op interface {
	isOp()
}

// Program is the ordered micro-program a single opcode decodes into. It is
// stateless once produced and discarded after execution.
type Program []Op

// PushByte pushes the immediate value V.
type PushByte struct {
	V uint8
}

// PushAddr pushes the immediate address Addr, masked to 12 bits.
type PushAddr struct {
	Addr uint16
}

// PushReg pushes the contents of register Reg.
type PushReg struct {
	Reg uint8
}

// PushIndex pushes the index register as an address.
type PushIndex struct{}

// PushDelay pushes the delay timer value.
type PushDelay struct{}

// StoreReg pops a byte into register Reg.
type StoreReg struct {
	Reg uint8
}

// StoreFlag pops a boolean and stores 1 (true) or 0 (false) into register 15.
type StoreFlag struct{}

// SetIndex pops an address into the index register.
type SetIndex struct{}

// SetDelay pops a byte into the delay timer.
type SetDelay struct{}

// SetSound pops a byte into the sound timer.
type SetSound struct{}

// Equal pops two values of the same tag and pushes whether they are equal.
type Equal struct{}

// Not pops a boolean and pushes its negation.
type Not struct{}

// Or pops two bytes and pushes their bitwise OR.
type Or struct{}

// And pops two bytes and pushes their bitwise AND.
type And struct{}

// Xor pops two bytes and pushes their bitwise XOR.
type Xor struct{}

// Add pops two bytes and pushes their sum modulo 256. No carry is recorded;
// opcodes using it never touch the flag register.
type Add struct{}

// AddCarry pops two bytes and pushes the carry (1 on overflow past 255, else
// 0) followed by the sum modulo 256, leaving the sum on top.
type AddCarry struct{}

// SubBorrow pops the subtrahend, then the minuend, and pushes the no-borrow
// flag (1 when minuend >= subtrahend, else 0) followed by the difference
// modulo 256, leaving the difference on top.
type SubBorrow struct{}

// ShiftRight pops a byte and pushes its least significant bit followed by
// the byte shifted right once, leaving the shifted value on top.
type ShiftRight struct{}

// ShiftLeft pops a byte and pushes its most significant bit (as 0 or 1)
// followed by the byte shifted left once, leaving the shifted value on top.
type ShiftLeft struct{}

// AddAddr pops a byte, then an address, and pushes their sum modulo 4096.
type AddAddr struct{}

// AddAddrCarry behaves like AddAddr but additionally records whether the sum
// exceeded 12 bits: it pushes the overflow flag (1 or 0) followed by the
// wrapped address, leaving the address on top.
type AddAddrCarry struct{}

// Rand pushes a random byte masked with Mask.
type Rand struct {
	Mask uint8
}

// Jump pops an address into the program counter. Counts as a redirect.
type Jump struct{}

// Call pops a target address, pushes the address of the next instruction
// onto the call stack, and jumps to the target. Counts as a redirect.
type Call struct{}

// Return pops the call stack into the program counter. Counts as a redirect.
type Return struct{}

// SkipIf pops a boolean and advances the program counter past the next
// instruction (by 4) when it is true, or to the next instruction (by 2) when
// it is false. Always counts as a redirect.
type SkipIf struct{}

// Clear clears the display.
type Clear struct{}

// Sprite pops the y coordinate, then the x coordinate, reads Rows sprite
// bytes starting at the index register, XOR-composites them onto the
// display, and pushes whether any set pixel was cleared. Start coordinates
// wrap at the display edges. Rows extending past the bottom edge wrap to the
// top, or are discarded when Clip is set.
type Sprite struct {
	Rows uint8
	Clip bool
}

// KeyPressed pops a byte and pushes whether the keypad key with that value
// (low nibble) is currently pressed.
type KeyPressed struct{}

// WaitKey blocks until a key is pressed and pushes its value.
type WaitKey struct{}

// GlyphAddr pops a byte and pushes the address of the glyph bitmap for its
// low nibble.
type GlyphAddr struct{}

// BCD pops a byte and writes its hundreds, tens and units digits to the
// three memory cells starting at the index register, which is unchanged.
type BCD struct{}

// StoreRegs copies registers 0 through X inclusive to memory starting at the
// index register, incrementing it after each byte.
type StoreRegs struct {
	X uint8
}

// LoadRegs copies memory starting at the index register into registers 0
// through X inclusive, incrementing the index register after each byte.
type LoadRegs struct {
	X uint8
}

func (PushByte) isOp()     {}
func (PushAddr) isOp()     {}
func (PushReg) isOp()      {}
func (PushIndex) isOp()    {}
func (PushDelay) isOp()    {}
func (StoreReg) isOp()     {}
func (StoreFlag) isOp()    {}
func (SetIndex) isOp()     {}
func (SetDelay) isOp()     {}
func (SetSound) isOp()     {}
func (Equal) isOp()        {}
func (Not) isOp()          {}
func (Or) isOp()           {}
func (And) isOp()          {}
func (Xor) isOp()          {}
func (Add) isOp()          {}
func (AddCarry) isOp()     {}
func (SubBorrow) isOp()    {}
func (ShiftRight) isOp()   {}
func (ShiftLeft) isOp()    {}
func (AddAddr) isOp()      {}
func (AddAddrCarry) isOp() {}
func (Rand) isOp()         {}
func (Jump) isOp()         {}
func (Call) isOp()         {}
func (Return) isOp()       {}
func (SkipIf) isOp()       {}
func (Clear) isOp()        {}
func (Sprite) isOp()       {}
func (KeyPressed) isOp()   {}
func (WaitKey) isOp()      {}
func (GlyphAddr) isOp()    {}
func (BCD) isOp()          {}
func (StoreRegs) isOp()    {}
func (LoadRegs) isOp()     {}
