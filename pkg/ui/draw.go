package ui

import (
	"image/color"
	"sync"

	"github.com/hajimehoshi/bitmapfont/v4"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
)

// glyphHeight is the height of the bitmap font at scale 1
const glyphHeight = 16.0

var (
	face      = text.NewGoXFace(bitmapfont.Face)
	pixel     *ebiten.Image
	pixelOnce sync.Once
)

// whitePixel is scaled and tinted to draw every solid shape
func whitePixel() *ebiten.Image {
	pixelOnce.Do(func() {
		pixel = ebiten.NewImage(1, 1)
		pixel.Fill(color.White)
	})
	return pixel
}

// Pal is the shared palette of the screens
var Pal = struct {
	Background, Panel, PanelHi, Border, Text, Dim, Gold, Accent, Good, Bad color.RGBA
}{
	Background: color.RGBA{15, 20, 35, 255},
	Panel:      color.RGBA{40, 40, 60, 255},
	PanelHi:    color.RGBA{60, 100, 140, 255},
	Border:     color.RGBA{80, 80, 100, 255},
	Text:       color.RGBA{255, 255, 255, 255},
	Dim:        color.RGBA{150, 150, 150, 255},
	Gold:       color.RGBA{255, 200, 50, 255},
	Accent:     color.RGBA{150, 200, 255, 255},
	Good:       color.RGBA{100, 255, 100, 255},
	Bad:        color.RGBA{255, 100, 100, 255},
}

// FillRect draws a solid rectangle without allocating an image
func FillRect(screen *ebiten.Image, x, y, w, h float64, clr color.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(w, h)
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	screen.DrawImage(whitePixel(), op)
}

// StrokeRect draws a rectangle outline of the given thickness
func StrokeRect(screen *ebiten.Image, x, y, w, h, t float64, clr color.Color) {
	FillRect(screen, x, y, w, t, clr)
	FillRect(screen, x, y+h-t, w, t, clr)
	FillRect(screen, x, y, t, h, clr)
	FillRect(screen, x+w-t, y, t, h, clr)
}

// TextWidth returns the width of str drawn at the given pixel size
func TextWidth(str string, size float64) float64 {
	return text.Advance(str, face) * size / glyphHeight
}

// DrawText draws str centred on (centerX, centerY) at the given pixel size
func DrawText(screen *ebiten.Image, str string, centerX, centerY, size float64, clr color.Color) {
	scale := size / glyphHeight
	DrawTextAt(screen, str, centerX-TextWidth(str, size)/2, centerY-glyphHeight*scale/2, size, clr)
}

// DrawTextAt draws str with its top left corner at (x, y)
func DrawTextAt(screen *ebiten.Image, str string, x, y, size float64, clr color.Color) {
	scale := size / glyphHeight
	op := &text.DrawOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(screen, str, face, op)
}

// drawButton draws a bordered button with a centred label
func drawButton(screen *ebiten.Image, label string, x, y, width, height float64, selected bool) {
	bg, fg := Pal.Panel, Pal.Text
	if selected {
		bg, fg = Pal.PanelHi, color.RGBA{200, 240, 255, 255}
	}
	FillRect(screen, x, y, width, height, bg)
	StrokeRect(screen, x, y, width, height, 2, Pal.Border)
	DrawText(screen, label, x+width/2, y+height/2, glyphHeight, fg)
}

// Menu is a vertical list of options navigated with the arrow keys
type Menu struct {
	Options  []string
	Selected int
}

// Move changes the selection by delta, wrapping around
func (m *Menu) Move(delta int) {
	n := len(m.Options)
	if n == 0 {
		return
	}
	m.Selected = ((m.Selected+delta)%n + n) % n
}

// Current returns the selected option
func (m *Menu) Current() string {
	if m.Selected < 0 || m.Selected >= len(m.Options) {
		return ""
	}
	return m.Options[m.Selected]
}
