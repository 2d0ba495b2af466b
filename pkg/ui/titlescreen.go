package ui

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/golangdaddy/roadchain/pkg/challenge"
)

const (
	OptionFreeRun    = "Free Run"
	OptionDaily      = "Daily Challenge"
	OptionGarage     = "Garage"
	OptionAutoSubmit = "Auto-Submit"
	OptionQuit       = "Quit"
)

// MenuModel is what the main menu shows
type MenuModel struct {
	Wallet             string
	Car                string
	HighScore          int
	Challenge          challenge.DailyChallenge
	ChallengeCompleted bool
	AutoSubmit         bool
	// Message is the reason the last action was refused
	Message string
}

// MenuActions are invoked when an option is chosen
type MenuActions struct {
	FreeRun          func()
	DailyChallenge   func()
	Garage           func()
	ToggleAutoSubmit func()
	Quit             func()
}

// TitleScreen is the main menu
type TitleScreen struct {
	startTime time.Time
	model     func() MenuModel
	actions   MenuActions
	menu      Menu
}

// NewTitleScreen creates a new title screen. model is read every frame.
func NewTitleScreen(model func() MenuModel, actions MenuActions) *TitleScreen {
	return &TitleScreen{
		startTime: time.Now(),
		model:     model,
		actions:   actions,
		menu: Menu{Options: []string{
			OptionFreeRun, OptionDaily, OptionGarage, OptionAutoSubmit, OptionQuit,
		}},
	}
}

// Update handles input for the title screen
func (ts *TitleScreen) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) || inpututil.IsKeyJustPressed(ebiten.KeyW) {
		ts.menu.Move(-1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) || inpututil.IsKeyJustPressed(ebiten.KeyS) {
		ts.menu.Move(1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		ts.choose(ts.menu.Current())
	}
	return nil
}

func (ts *TitleScreen) choose(option string) {
	var fn func()
	switch option {
	case OptionFreeRun:
		fn = ts.actions.FreeRun
	case OptionDaily:
		fn = ts.actions.DailyChallenge
	case OptionGarage:
		fn = ts.actions.Garage
	case OptionAutoSubmit:
		fn = ts.actions.ToggleAutoSubmit
	case OptionQuit:
		fn = ts.actions.Quit
	}
	if fn != nil {
		fn()
	}
}

// Draw renders the title screen
func (ts *TitleScreen) Draw(screen *ebiten.Image) {
	width, height := screen.Bounds().Dx(), screen.Bounds().Dy()
	screen.Fill(Pal.Background)
	elapsed := time.Since(ts.startTime).Seconds()
	m := ts.model()
	centerX := float64(width) / 2

	// pulsing title
	pulse := 1.0 + 0.1*math.Sin(elapsed*2.0)
	brightness := math.Min(1.0, 1.0+0.2*math.Sin(elapsed*1.5))
	titleColor := color.RGBA{uint8(255 * brightness), uint8(200 * brightness), uint8(50 * brightness), 255}
	DrawText(screen, "ROADCHAIN", centerX, 70, 64*pulse, titleColor)
	DrawText(screen, "On-Chain Highway Racing", centerX, 125, 24, color.RGBA{180, 180, 200, 255})

	// decorative lines
	lineColor := color.RGBA{50, 60, 80, 100}
	FillRect(screen, 0, float64(height)/6+60, float64(width), 2, lineColor)
	FillRect(screen, 0, float64(height)*5/6+20, float64(width), 2, lineColor)

	// options
	buttonW, buttonH := 260.0, 40.0
	y := 190.0
	for i, opt := range ts.menu.Options {
		label := opt
		if opt == OptionAutoSubmit {
			label = fmt.Sprintf("%s: %s", opt, onOff(m.AutoSubmit))
		}
		if opt == OptionDaily && m.ChallengeCompleted {
			label = opt + " (done)"
		}
		drawButton(screen, label, 60, y+float64(i)*(buttonH+12), buttonW, buttonH, i == ts.menu.Selected)
	}

	ts.drawChallenge(screen, m, float64(width)-440, 190)

	info := fmt.Sprintf("Wallet: %s   Car: %s   Best: %d", shortAddress(m.Wallet), orNone(m.Car), m.HighScore)
	DrawText(screen, info, centerX, float64(height)-60, 16, Pal.Dim)
	if m.Message != "" {
		DrawText(screen, m.Message, centerX, float64(height)-30, 16, Pal.Bad)
	}
}

func (ts *TitleScreen) drawChallenge(screen *ebiten.Image, m MenuModel, x, y float64) {
	w, h := 380.0, 200.0
	FillRect(screen, x, y, w, h, color.RGBA{20, 20, 30, 200})
	StrokeRect(screen, x, y, w, h, 2, Pal.Border)

	ch := m.Challenge
	DrawTextAt(screen, "TODAY'S CHALLENGE", x+16, y+14, 16, Pal.Accent)
	DrawTextAt(screen, ch.Title, x+16, y+44, 24, Pal.Gold)
	DrawTextAt(screen, fmt.Sprintf("Reach %d %s", ch.Target, ch.Unit), x+16, y+84, 16, Pal.Text)
	DrawTextAt(screen, fmt.Sprintf("Difficulty: %s", ch.Difficulty), x+16, y+110, 16, difficultyColor(ch.Difficulty))
	DrawTextAt(screen, fmt.Sprintf("Reward: %d RACE", ch.Reward), x+16, y+136, 16, Pal.Text)
	status, clr := "Not completed", Pal.Dim
	if m.ChallengeCompleted {
		status, clr = "Completed today", Pal.Good
	}
	DrawTextAt(screen, status, x+16, y+166, 16, clr)
}

func difficultyColor(d challenge.Difficulty) color.Color {
	switch d {
	case challenge.Easy:
		return Pal.Good
	case challenge.Medium:
		return Pal.Gold
	default:
		return Pal.Bad
	}
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// shortAddress abbreviates a wallet address to 0x1234...abcd
func shortAddress(addr string) string {
	if addr == "" {
		return "not connected"
	}
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
