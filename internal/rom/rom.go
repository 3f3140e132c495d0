// Package rom handles CHIP-8 program image loading.
package rom

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/retroenv/chip8go/internal/machine"
)

// MaxSize is the largest program image that fits into console memory
// below the entry address.
const MaxSize = machine.MemorySize - machine.EntryAddress

// ErrTooLarge is returned for program images that do not fit into memory.
var ErrTooLarge = errors.New("program image does not fit into memory")

// FromFile reads a program image from disk.
func FromFile(name string) ([]byte, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", name, err)
	}
	defer func() { _ = file.Close() }()

	data, err := FromReader(file)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", name, err)
	}
	return data, nil
}

// FromReader reads a program image from a reader.
func FromReader(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("image exceeds %d bytes: %w", MaxSize, ErrTooLarge)
	}
	return data, nil
}
