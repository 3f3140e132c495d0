// Package terminal implements a raw terminal front end. The display is
// rendered with ANSI escape codes, two vertically stacked pixels per
// character cell, while keyboard input is read from raw stdin.
package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/retroenv/chip8go/internal/emulator"
	"github.com/retroenv/chip8go/internal/machine"
	"github.com/retroenv/retrogolib/log"
	"golang.org/x/term"
)

const (
	// frameTime is the period between display redraws.
	frameTime = time.Second / 60
	// keyReleaseDelay releases a key this long after its last press event.
	// Terminals only report key presses, not releases.
	keyReleaseDelay = 100 * time.Millisecond

	keyEscape = 0x1B
	keyCtrlC  = 0x03
)

// Host renders the console display to a raw terminal and feeds keyboard
// input into the console keypad.
type Host struct {
	logger  *log.Logger
	console *machine.Console
	emu     *emulator.Emulator
	out     io.Writer

	keyMap    map[byte]uint8
	pressed   map[uint8]time.Time
	last      [machine.DisplaySize]byte
	lastSound bool
	drawn     bool
}

// New creates a terminal host for the given console and emulator.
func New(logger *log.Logger, console *machine.Console, emu *emulator.Emulator) *Host {
	return &Host{
		logger:  logger,
		console: console,
		emu:     emu,
		out:     os.Stdout,
		keyMap:  defaultKeyMap(),
		pressed: map[uint8]time.Time{},
	}
}

// Run drives the emulator on its own goroutine and renders the display until
// the context is cancelled, a quit key is pressed or the emulator stops.
func (h *Host) Run(ctx context.Context) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("entering raw terminal mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
		_, _ = fmt.Fprint(h.out, showCursor)
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The blocking stdin read can not be interrupted portably, the reader
	// goroutine ends with the process.
	input := make(chan byte, 16)
	go readInput(input)

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.emu.Run(ctx)
	}()

	_, _ = fmt.Fprint(h.out, hideCursor+clearScreen)

	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return <-errCh

		case err := <-errCh:
			return err

		case b := <-input:
			if quit := h.handleKey(b); quit {
				cancel()
			}

		case <-ticker.C:
			h.releaseStaleKeys()
			h.draw()
		}
	}
}

// handleKey routes a raw input byte to the keypad and reports whether it was
// a quit key.
func (h *Host) handleKey(b byte) bool {
	if b == keyEscape || b == keyCtrlC {
		return true
	}

	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	key, ok := h.keyMap[b]
	if !ok {
		return false
	}

	h.console.PressKey(key)
	h.pressed[key] = time.Now()
	return false
}

// releaseStaleKeys releases keys that have not seen a press event recently.
func (h *Host) releaseStaleKeys() {
	now := time.Now()
	for key, pressedAt := range h.pressed {
		if now.Sub(pressedAt) > keyReleaseDelay {
			h.console.ReleaseKey(key)
			delete(h.pressed, key)
		}
	}
}

// draw renders the display if it changed since the last frame.
func (h *Host) draw() {
	display := h.console.Display()
	sound := h.console.SoundActive()
	if h.drawn && display == h.last && sound == h.lastSound {
		return
	}

	if _, err := io.WriteString(h.out, renderFrame(&display, sound)); err != nil {
		h.logger.Error("Rendering frame failed", log.Err(err))
	}
	h.last = display
	h.lastSound = sound
	h.drawn = true
}

// defaultKeyMap maps the left hand side of a QWERTY keyboard onto the
// 4x4 CHIP-8 keypad.
func defaultKeyMap() map[byte]uint8 {
	return map[byte]uint8{
		'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
		'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
		'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
		'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
	}
}

// readInput reads single bytes from stdin into the key channel. Input
// arriving faster than it is consumed is dropped.
func readInput(keys chan<- byte) {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n > 0 {
			select {
			case keys <- buf[0]:
			default:
			}
		}
	}
}
