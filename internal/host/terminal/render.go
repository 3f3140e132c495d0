package terminal

import (
	"strings"

	"github.com/retroenv/chip8go/internal/machine"
)

// ANSI escape sequences used for rendering.
const (
	hideCursor  = "\x1b[?25l"
	showCursor  = "\x1b[?25h"
	clearScreen = "\x1b[2J"
	cursorHome  = "\x1b[H"
)

// renderFrame renders the packed display buffer as half block characters,
// each character cell covering two vertically stacked pixels. Lines use
// explicit carriage returns as the terminal is in raw mode.
func renderFrame(display *[machine.DisplaySize]byte, sound bool) string {
	var sb strings.Builder
	sb.Grow(machine.DisplayWidth*machine.DisplayHeight*2 + 64)
	sb.WriteString(cursorHome)

	for y := 0; y < machine.DisplayHeight; y += 2 {
		for x := range machine.DisplayWidth {
			top := pixelSet(display, x, y)
			bottom := pixelSet(display, x, y+1)

			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteByte(' ')
			}
		}
		sb.WriteString("\r\n")
	}

	sb.WriteString("esc or ctrl-c quits")
	if sound {
		sb.WriteString("  beep")
	} else {
		sb.WriteString("      ")
	}
	return sb.String()
}

// pixelSet returns whether the pixel at x, y is set. Pixels are packed
// 8 per byte with the leftmost pixel in the most significant bit.
func pixelSet(display *[machine.DisplaySize]byte, x, y int) bool {
	return display[y*machine.DisplayPitch+x/8]&(0x80>>(x%8)) != 0
}
