package il

import "fmt"

// AddrMask constrains addresses to the 12 bits CHIP-8 can express.
const AddrMask = 0x0FFF

// Value is an entry on the operand stack, a closed sum over the three tags
// the engine computes with. Popping a value under the wrong tag is an
// interpreter bug, never something a ROM can cause, and panics.
type Value interface {
	isValue()
}

// Bool is a truth value produced by comparisons and key queries.
type Bool bool

// Addr is a 12-bit memory address.
type Addr uint16

// Byte is an 8-bit quantity: register contents, immediates, memory bytes.
type Byte uint8

func (Bool) isValue() {}
func (Addr) isValue() {}
func (Byte) isValue() {}

// Stack is the transient operand stack for a single micro-program. It starts
// empty and must be empty again when the program finishes.
type Stack struct {
	values []Value
}

// Len returns the number of values on the stack.
func (s *Stack) Len() int {
	return len(s.values)
}

// PushBool pushes a truth value.
func (s *Stack) PushBool(b bool) {
	s.values = append(s.values, Bool(b))
}

// PushAddr pushes an address, masked to 12 bits.
func (s *Stack) PushAddr(a uint16) {
	s.values = append(s.values, Addr(a&AddrMask))
}

// PushByte pushes a byte.
func (s *Stack) PushByte(b uint8) {
	s.values = append(s.values, Byte(b))
}

// PopBool pops the top value, which must be a boolean.
func (s *Stack) PopBool() bool {
	v := s.pop()
	b, ok := v.(Bool)
	if !ok {
		panic(fmt.Sprintf("il: popped %T from operand stack, expected il.Bool", v))
	}
	return bool(b)
}

// PopAddr pops the top value, which must be an address.
func (s *Stack) PopAddr() uint16 {
	v := s.pop()
	a, ok := v.(Addr)
	if !ok {
		panic(fmt.Sprintf("il: popped %T from operand stack, expected il.Addr", v))
	}
	return uint16(a)
}

// PopByte pops the top value, which must be a byte.
func (s *Stack) PopByte() uint8 {
	v := s.pop()
	b, ok := v.(Byte)
	if !ok {
		panic(fmt.Sprintf("il: popped %T from operand stack, expected il.Byte", v))
	}
	return uint8(b)
}

// PopValue pops the top value regardless of tag.
func (s *Stack) PopValue() Value {
	return s.pop()
}

func (s *Stack) pop() Value {
	if len(s.values) == 0 {
		panic("il: operand stack underflow")
	}
	v := s.values[len(s.values)-1]
	s.values = s.values[:len(s.values)-1]
	return v
}
