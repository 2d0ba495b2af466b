package game

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/golangdaddy/roadchain/pkg/race"
)

// KeyboardMouse samples arrow keys, WASD and the cursor once per frame
type KeyboardMouse struct {
	width, height int
	pointer       pointerTracker
}

// NewKeyboardMouse creates an input source for a screen of w x h pixels
func NewKeyboardMouse(w, h int) *KeyboardMouse {
	return &KeyboardMouse{width: w, height: h}
}

// Poll implements race.InputSource
func (km *KeyboardMouse) Poll() race.Input {
	in := keyInput(ebiten.IsKeyPressed)
	x, y := ebiten.CursorPosition()
	if km.pointer.update(x, y, in.Left || in.Right || in.Accelerate || in.Brake) {
		p := NormalizePointer(x, y, km.width, km.height)
		in.Pointer = &p
	}
	return in
}

// keyInput reads the steering keys through pressed
func keyInput(pressed func(ebiten.Key) bool) race.Input {
	return race.Input{
		Accelerate: pressed(ebiten.KeyArrowUp) || pressed(ebiten.KeyW),
		Brake:      pressed(ebiten.KeyArrowDown) || pressed(ebiten.KeyS),
		Left:       pressed(ebiten.KeyArrowLeft) || pressed(ebiten.KeyA),
		Right:      pressed(ebiten.KeyArrowRight) || pressed(ebiten.KeyD),
	}
}

// NormalizePointer maps a cursor position to 0..1 on both axes
func NormalizePointer(x, y, w, h int) race.Pointer {
	norm := func(v, size int) float64 {
		if size <= 0 {
			return 0.5
		}
		f := float64(v) / float64(size)
		if f < 0 {
			return 0
		}
		if f > 1 {
			return 1
		}
		return f
	}
	return race.Pointer{X: norm(x, w), Y: norm(y, h)}
}

// pointerTracker hands steering to the mouse once the cursor moves and back
// to the keyboard as soon as a key is pressed
type pointerTracker struct {
	lastX, lastY int
	seen         bool
	active       bool
}

func (pt *pointerTracker) update(x, y int, keys bool) bool {
	moved := pt.seen && (x != pt.lastX || y != pt.lastY)
	pt.lastX, pt.lastY, pt.seen = x, y, true
	switch {
	case keys:
		pt.active = false
	case moved:
		pt.active = true
	}
	return pt.active
}
