package game

import (
	"cmp"
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/golangdaddy/roadchain/log"
	"github.com/golangdaddy/roadchain/pkg/background"
	"github.com/golangdaddy/roadchain/pkg/challenge"
	"github.com/golangdaddy/roadchain/pkg/race"
	"github.com/golangdaddy/roadchain/pkg/road"
	"github.com/golangdaddy/roadchain/pkg/ui"
)

// GaugeMaxSpeed is the full scale of the speed gauge in km/h
const GaugeMaxSpeed = 250.0

// roadHalfWidth is half the paved width in world units
const roadHalfWidth = 6.0

// GameplayScreen renders a running race. It is the race.Surface of every
// session the host starts and drives the session with one Step per Update.
type GameplayScreen struct {
	proj    Projection
	input   race.InputSource
	session *race.Session
	onStop  func()
	logger  *log.Logger

	entities map[int64]race.Entity
	snap     race.Snapshot

	challenge *challenge.DailyChallenge
	verge     *ebiten.Image
	vergeSeed int64
	carSprite *ebiten.Image
	spriteOne sync.Once
}

// NewGameplayScreen creates the race view for a screen of w x h pixels.
// onStop is called when the player leaves the race with Escape.
func NewGameplayScreen(w, h int, input race.InputSource, onStop func()) *GameplayScreen {
	return &GameplayScreen{
		proj:     DefaultProjection(w, h),
		input:    input,
		onStop:   onStop,
		logger:   log.Default().Named("gameplay"),
		entities: make(map[int64]race.Entity),
	}
}

// Begin attaches a freshly started session. The verge is seeded from the day
// of today; daily marks a challenge attempt.
func (gs *GameplayScreen) Begin(s *race.Session, today challenge.DailyChallenge, daily bool) {
	clear(gs.entities)
	for _, e := range s.Snapshot().Entities {
		gs.entities[e.ID] = e
	}
	gs.session = s
	gs.snap = s.Snapshot()
	gs.challenge = nil
	if daily {
		gs.challenge = &today
	}
	gs.loadVerge(challenge.Seed(today.Date))
}

// AddEntity implements race.Surface
func (gs *GameplayScreen) AddEntity(e race.Entity) error {
	gs.entities[e.ID] = e
	return nil
}

// RemoveEntity implements race.Surface
func (gs *GameplayScreen) RemoveEntity(e race.Entity) error {
	delete(gs.entities, e.ID)
	return nil
}

// Present implements race.Surface
func (gs *GameplayScreen) Present(s race.Snapshot) error {
	gs.snap = s
	for _, e := range s.Entities {
		if _, ok := gs.entities[e.ID]; ok {
			gs.entities[e.ID] = e
		}
	}
	return nil
}

// Update advances the race by one frame
func (gs *GameplayScreen) Update() error {
	if gs.session == nil {
		return nil
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		if gs.onStop != nil {
			gs.onStop()
		}
		return nil
	}
	gs.session.Step(gs.input.Poll())
	return nil
}

// Draw renders the road, the entities, the car and the HUD
func (gs *GameplayScreen) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{135, 206, 235, 255}) // sky
	gs.drawVerge(screen)
	gs.drawRoad(screen)
	gs.drawMarkings(screen)
	gs.drawEntities(screen)
	gs.drawCar(screen)
	gs.drawHUD(screen)
}

func (gs *GameplayScreen) loadVerge(seed int64) {
	if gs.verge != nil && gs.vergeSeed == seed {
		return
	}
	w := int(gs.proj.Width)
	h := int(gs.proj.Height - gs.proj.HorizonY)
	gs.verge = background.Texture(background.NewGenerator(w, h).Verge(seed))
	gs.vergeSeed = seed
}

func (gs *GameplayScreen) drawVerge(screen *ebiten.Image) {
	if gs.verge == nil {
		ui.FillRect(screen, 0, gs.proj.HorizonY, gs.proj.Width, gs.proj.Height-gs.proj.HorizonY, color.RGBA{30, 100, 30, 255})
		return
	}
	h := float64(gs.verge.Bounds().Dy())
	offset := math.Mod(-gs.snap.CarZ*4, h)
	for y := gs.proj.HorizonY + offset - h; y < gs.proj.Height; y += h {
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(0, y)
		screen.DrawImage(gs.verge, op)
	}
	// the verge scrolls under the sky line
	ui.FillRect(screen, 0, 0, gs.proj.Width, gs.proj.HorizonY, color.RGBA{135, 206, 235, 255})
}

// drawRoad paints the asphalt row by row so it narrows to the horizon
func (gs *GameplayScreen) drawRoad(screen *ebiten.Image) {
	p := gs.proj
	asphalt := color.RGBA{64, 64, 64, 255}
	shoulder := color.RGBA{200, 200, 200, 255}
	for y := p.HorizonY; y < p.Height; y += 2 {
		s := p.RowScale(y)
		half := roadHalfWidth * p.PixelsPerX * s
		ui.FillRect(screen, p.Width/2-half, y, half*2, 2, asphalt)
		edge := math.Max(1, 3*s)
		ui.FillRect(screen, p.Width/2-half, y, edge, 2, shoulder)
		ui.FillRect(screen, p.Width/2+half-edge, y, edge, 2, shoulder)
	}
}

// drawMarkings draws the dashed lines between the lanes
func (gs *GameplayScreen) drawMarkings(screen *ebiten.Image) {
	white := color.RGBA{255, 255, 255, 255}
	for _, z := range gs.snap.Markings {
		for _, lx := range laneDividers() {
			x0, y0, s0 := gs.proj.Project(lx, z, gs.snap.CarZ)
			_, y1, _ := gs.proj.Project(lx, z-4, gs.snap.CarZ)
			if !gs.proj.Visible(y0) && !gs.proj.Visible(y1) {
				continue
			}
			w := math.Max(1, 3*s0)
			ui.FillRect(screen, x0-w/2, y1, w, y0-y1, white)
		}
	}
}

// laneDividers are the world X positions halfway between adjacent lanes
func laneDividers() []float64 {
	out := make([]float64, 0, len(road.Lanes)-1)
	for i := 1; i < len(road.Lanes); i++ {
		out = append(out, (road.Lanes[i-1]+road.Lanes[i])/2)
	}
	return out
}

func (gs *GameplayScreen) drawEntities(screen *ebiten.Image) {
	// far first so near objects overlap them
	ordered := make([]race.Entity, 0, len(gs.entities))
	for _, e := range gs.entities {
		ordered = append(ordered, e)
	}
	slices.SortFunc(ordered, func(a, b race.Entity) int { return cmp.Compare(a.Z, b.Z) })
	for _, e := range ordered {
		x, y, s := gs.proj.Project(e.X, e.Z, gs.snap.CarZ)
		if !gs.proj.Visible(y) {
			continue
		}
		switch e.Kind {
		case race.KindObstacle:
			gs.drawObstacle(screen, e, x, y, s)
		case race.KindBonusBox:
			size := 36 * s
			ui.FillRect(screen, x-size/2, y-size, size, size, color.RGBA{255, 200, 50, 255})
			ui.StrokeRect(screen, x-size/2, y-size, size, size, math.Max(1, 2*s), color.RGBA{160, 110, 20, 255})
		case race.KindGoldenKey:
			w := 30 * s * math.Max(0.15, math.Abs(math.Cos(e.Rotation)))
			h := 30 * s
			ui.FillRect(screen, x-w/2, y-h*1.6, w, h, color.RGBA{255, 215, 0, 255})
		}
	}
}

var obstacleColors = [race.ObstacleVariants]color.RGBA{
	{230, 90, 20, 255}, // cone
	{200, 30, 30, 255}, // barrier
	{120, 80, 40, 255}, // crate
}

func (gs *GameplayScreen) drawObstacle(screen *ebiten.Image, e race.Entity, x, y, s float64) {
	clr := obstacleColors[e.Variant%race.ObstacleVariants]
	switch e.Variant % race.ObstacleVariants {
	case 0:
		w, h := 24*s, 40*s
		for i := 0.0; i < h; i++ {
			row := w * (i + 1) / h
			ui.FillRect(screen, x-row/2, y-h+i, row, 1, clr)
		}
	case 1:
		w, h := 70*s, 24*s
		ui.FillRect(screen, x-w/2, y-h, w, h, clr)
		ui.FillRect(screen, x-w/2, y-h*0.6, w, h*0.25, color.RGBA{255, 255, 255, 255})
	default:
		size := 40 * s
		ui.FillRect(screen, x-size/2, y-size, size, size, clr)
		ui.StrokeRect(screen, x-size/2, y-size, size, size, math.Max(1, 2*s), color.RGBA{60, 40, 20, 255})
	}
}

func (gs *GameplayScreen) drawCar(screen *ebiten.Image) {
	gs.spriteOne.Do(func() {
		gs.carSprite = ebiten.NewImageFromImage(carSprite())
	})
	x, y, _ := gs.proj.Project(road.WorldX(gs.snap.CarLateral), gs.snap.CarZ, gs.snap.CarZ)
	b := gs.carSprite.Bounds()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(x-float64(b.Dx())/2, y-float64(b.Dy()))
	if gs.snap.Invisibility.Active {
		// blink while the window is running out
		alpha := float32(0.45)
		if gs.snap.Invisibility.RemainingMs < 3000 && (gs.snap.Frame/8)%2 == 0 {
			alpha = 0.15
		}
		op.ColorScale.ScaleAlpha(alpha)
	}
	screen.DrawImage(gs.carSprite, op)
}

// carSprite draws the top down player car
func carSprite() *image.RGBA {
	const w, h = 40, 64
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill := func(x0, y0, x1, y1 int, c color.RGBA) {
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				img.SetRGBA(x, y, c)
			}
		}
	}
	fill(5, 10, 35, 54, color.RGBA{220, 20, 20, 255})    // body
	fill(8, 15, 32, 35, color.RGBA{180, 15, 15, 255})    // roof
	fill(10, 16, 30, 22, color.RGBA{100, 180, 220, 255}) // windshield
	fill(13, 22, 27, 28, color.RGBA{100, 180, 220, 255})
	wheel := color.RGBA{40, 40, 40, 255}
	fill(2, 12, 8, 20, wheel)
	fill(32, 12, 38, 20, wheel)
	fill(2, 44, 8, 52, wheel)
	fill(32, 44, 38, 52, wheel)
	fill(8, 12, 32, 14, color.RGBA{255, 100, 100, 255}) // highlight
	border := color.RGBA{0, 0, 0, 255}
	fill(0, 10, w, 11, border)
	fill(0, 53, w, 54, border)
	fill(5, 10, 6, 54, border)
	fill(34, 10, 35, 54, border)
	headlight := color.RGBA{255, 255, 100, 255}
	fill(10, 8, 14, 11, headlight)
	fill(26, 8, 30, 11, headlight)
	taillight := color.RGBA{255, 0, 0, 255}
	fill(10, 53, 14, 56, taillight)
	fill(26, 53, 30, 56, taillight)
	return img
}

func (gs *GameplayScreen) drawHUD(screen *ebiten.Image) {
	snap := gs.snap
	gs.drawSpeedometer(screen, float64(snap.DisplaySpeed))

	x := gs.proj.Width - 220
	ui.FillRect(screen, x, 20, 200, 120, color.RGBA{20, 20, 30, 200})
	ui.StrokeRect(screen, x, 20, 200, 120, 2, ui.Pal.Border)
	ui.DrawTextAt(screen, fmt.Sprintf("SCORE    %d", snap.Score), x+14, 30, 16, ui.Pal.Gold)
	ui.DrawTextAt(screen, fmt.Sprintf("DISTANCE %dm", snap.Distance), x+14, 56, 16, ui.Pal.Text)
	ui.DrawTextAt(screen, fmt.Sprintf("AVOIDED  %d", snap.ObstaclesAvoided), x+14, 82, 16, ui.Pal.Text)
	ui.DrawTextAt(screen, fmt.Sprintf("KEYS     %d", snap.KeysCollected), x+14, 108, 16, ui.Pal.Text)

	if snap.Invisibility.Active {
		gs.drawInvisibility(screen, snap.Invisibility)
	}
	if gs.challenge != nil {
		ch := gs.challenge
		line := fmt.Sprintf("%s: %d %s", ch.Title, ch.Target, ch.Unit)
		ui.DrawText(screen, line, gs.proj.Width/2, 20, 16, ui.Pal.Accent)
	}
	if snap.Notice != "" {
		ui.DrawText(screen, snap.Notice, gs.proj.Width/2, gs.proj.Height/3, 32, ui.Pal.Gold)
	}
	ui.DrawText(screen, "Esc: End Race", gs.proj.Width/2, gs.proj.Height-14, 16, ui.Pal.Dim)
}

func (gs *GameplayScreen) drawInvisibility(screen *ebiten.Image, inv race.Invisibility) {
	x, y, w := gs.proj.Width/2-100, 44.0, 200.0
	ui.DrawText(screen, fmt.Sprintf("INVISIBLE %.1fs", float64(inv.RemainingMs)/1000), gs.proj.Width/2, y, 16, ui.Pal.Accent)
	ui.FillRect(screen, x, y+14, w, 6, ui.Pal.Panel)
	window := race.DefaultParams().InvisibilityWindow.Milliseconds()
	frac := math.Min(1, float64(inv.RemainingMs)/float64(window))
	ui.FillRect(screen, x, y+14, w*frac, 6, ui.Pal.Accent)
}

// drawSpeedometer displays the current speed in km/h
func (gs *GameplayScreen) drawSpeedometer(screen *ebiten.Image, kmh float64) {
	x, y := 20.0, 20.0
	width, height := 180.0, 120.0
	ui.FillRect(screen, x, y, width, height, color.RGBA{20, 20, 30, 200})
	ui.StrokeRect(screen, x, y, width, height, 2, color.RGBA{100, 100, 120, 255})

	ui.DrawText(screen, fmt.Sprintf("%.0f", kmh), x+width/2, y+45, 48, speedColor(kmh))
	ui.DrawText(screen, "KM/H", x+width/2, y+80, 24, color.RGBA{200, 200, 200, 255})
	drawSpeedGauge(screen, x+10, y+height-25, width-20, 15, kmh)
}

// speedColor is green at cruising speed, yellow when fast and red when very fast
func speedColor(kmh float64) color.RGBA {
	switch {
	case kmh < 80:
		return color.RGBA{100, 255, 100, 255}
	case kmh < 130:
		return color.RGBA{255, 255, 100, 255}
	default:
		return color.RGBA{255, 100, 100, 255}
	}
}

// gaugeColor blends green to yellow to red over the gauge
func gaugeColor(frac float64) color.RGBA {
	if frac < 0.5 {
		r := frac / 0.5
		return color.RGBA{uint8(100 + r*155), 255, 100, 255}
	}
	r := (frac - 0.5) / 0.5
	return color.RGBA{255, uint8(255 - r*155), uint8(100 - r*100), 255}
}

func drawSpeedGauge(screen *ebiten.Image, x, y, width, height, kmh float64) {
	frac := math.Max(0, math.Min(kmh/GaugeMaxSpeed, 1.0))
	ui.FillRect(screen, x, y, width, height, color.RGBA{40, 40, 40, 255})
	if frac > 0 {
		ui.FillRect(screen, x, y, width*frac, height, gaugeColor(frac))
	}
	ui.StrokeRect(screen, x, y, width, height, 1, color.RGBA{150, 150, 150, 255})
}
