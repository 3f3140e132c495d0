// Package window implements a windowed front end based on ebiten.
package window

import (
	"context"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/retroenv/chip8go/internal/emulator"
	"github.com/retroenv/chip8go/internal/machine"
)

// windowScale is the window size in pixels per display pixel.
const windowScale = 10

// keypadKeys maps the CHIP-8 keypad onto the left hand side of a QWERTY
// keyboard, mirroring the terminal host layout.
var keypadKeys = [machine.KeyCount]ebiten.Key{
	0x0: ebiten.KeyX,
	0x1: ebiten.KeyDigit1,
	0x2: ebiten.KeyDigit2,
	0x3: ebiten.KeyDigit3,
	0x4: ebiten.KeyQ,
	0x5: ebiten.KeyW,
	0x6: ebiten.KeyE,
	0x7: ebiten.KeyA,
	0x8: ebiten.KeyS,
	0x9: ebiten.KeyD,
	0xA: ebiten.KeyZ,
	0xB: ebiten.KeyC,
	0xC: ebiten.KeyDigit4,
	0xD: ebiten.KeyR,
	0xE: ebiten.KeyF,
	0xF: ebiten.KeyV,
}

// Game implements the ebiten game loop on top of a console. The emulator
// runs on its own goroutine, the game loop only feeds input and renders
// display snapshots.
type Game struct {
	console *machine.Console
	frame   *ebiten.Image
	pixels  []byte
	debug   bool

	ctx   context.Context
	errCh <-chan error
	err   error
}

// Update feeds the keyboard state into the console keypad and stops the
// game when the emulator stops or the context is cancelled.
func (g *Game) Update() error {
	select {
	case <-g.ctx.Done():
		return ebiten.Termination
	case err := <-g.errCh:
		g.err = err
		return ebiten.Termination
	default:
	}

	for key, keyboardKey := range keypadKeys {
		if inpututil.IsKeyJustPressed(keyboardKey) {
			g.console.PressKey(uint8(key))
		}
		if inpututil.IsKeyJustReleased(keyboardKey) {
			g.console.ReleaseKey(uint8(key))
		}
	}
	return nil
}

// Draw blits the current display snapshot into the window, scaled up to the
// logical screen size.
func (g *Game) Draw(screen *ebiten.Image) {
	display := g.console.Display()
	g.pixels = appendPixels(g.pixels[:0], &display)
	g.frame.WritePixels(g.pixels)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(windowScale, windowScale)
	screen.DrawImage(g.frame, op)

	if g.debug {
		msg := fmt.Sprintf("fps %.0f", ebiten.ActualFPS())
		if g.console.SoundActive() {
			msg += "  beep"
		}
		ebitenutil.DebugPrintAt(screen, msg, 2, 2)
	}
}

// Layout reports the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return machine.DisplayWidth * windowScale, machine.DisplayHeight * windowScale
}

// Run opens the window and drives the emulator until the window is closed,
// the context is cancelled or the emulator stops. Debug mode overlays the
// frame rate and the beep state.
func Run(ctx context.Context, console *machine.Console, emu *emulator.Emulator, debug bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- emu.Run(ctx)
	}()

	game := &Game{
		console: console,
		frame:   ebiten.NewImage(machine.DisplayWidth, machine.DisplayHeight),
		debug:   debug,
		ctx:     ctx,
		errCh:   errCh,
	}

	ebiten.SetWindowTitle("chip8go")
	ebiten.SetWindowSize(machine.DisplayWidth*windowScale, machine.DisplayHeight*windowScale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(game); err != nil {
		return fmt.Errorf("running game loop: %w", err)
	}

	if game.err == nil {
		cancel()
		game.err = <-errCh
	}
	return game.err
}

// appendPixels converts the packed 1-bit display into RGBA pixel data.
func appendPixels(dst []byte, display *[machine.DisplaySize]byte) []byte {
	for _, packed := range display {
		for bit := range 8 {
			v := byte(0)
			if packed&(0x80>>bit) != 0 {
				v = 0xFF
			}
			dst = append(dst, v, v, v, 0xFF)
		}
	}
	return dst
}
