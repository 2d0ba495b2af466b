package ui

import (
	"context"
	"image/color"
	"math"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/golangdaddy/roadchain/pkg/models"
)

// GarageLoader fetches the garage of the connected wallet
type GarageLoader func(ctx context.Context) (*models.Garage, error)

type loadResult struct {
	garage *models.Garage
	err    error
}

// LoadingScreen is shown while the cars of the wallet are read from the chain
type LoadingScreen struct {
	startTime time.Time
	load      GarageLoader
	done      chan loadResult
	cancel    context.CancelFunc
	err       error
	onLoaded  func(*models.Garage)
}

// NewLoadingScreen starts loading in the background. onLoaded is called from
// Update once the garage is available.
func NewLoadingScreen(ctx context.Context, load GarageLoader, onLoaded func(*models.Garage)) *LoadingScreen {
	ls := &LoadingScreen{
		startTime: time.Now(),
		load:      load,
		onLoaded:  onLoaded,
	}
	ls.start(ctx)
	return ls
}

func (ls *LoadingScreen) start(ctx context.Context) {
	ctx, ls.cancel = context.WithTimeout(ctx, 30*time.Second)
	ls.err = nil
	ls.done = make(chan loadResult, 1)
	go func(done chan<- loadResult) {
		g, err := ls.load(ctx)
		done <- loadResult{garage: g, err: err}
	}(ls.done)
}

// Update handles input for the loading screen
func (ls *LoadingScreen) Update() error {
	if ls.err != nil {
		if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeySpace) {
			ls.start(context.Background())
		}
		return nil
	}
	select {
	case res := <-ls.done:
		ls.cancel()
		if res.err != nil {
			ls.err = res.err
			return nil
		}
		if ls.onLoaded != nil {
			ls.onLoaded(res.garage)
		}
	default:
	}
	return nil
}

// Draw renders the loading screen
func (ls *LoadingScreen) Draw(screen *ebiten.Image) {
	width, height := screen.Bounds().Dx(), screen.Bounds().Dy()
	screen.Fill(Pal.Background)
	centerX := float64(width) / 2

	DrawText(screen, "ROADCHAIN", centerX, float64(height)/4, 96, Pal.Gold)

	if ls.err != nil {
		DrawText(screen, "Could not load your garage", centerX, float64(height)/2, 24, Pal.Bad)
		DrawText(screen, ls.err.Error(), centerX, float64(height)/2+40, 16, Pal.Dim)
		DrawText(screen, "Enter: Retry", centerX, float64(height)-50, 20, Pal.Dim)
		return
	}

	elapsed := time.Since(ls.startTime).Seconds()
	dots := strings.Repeat(".", int(elapsed*2)%4)
	DrawText(screen, "Loading garage"+dots, centerX, float64(height)/2, 24, Pal.Text)

	// sweeping progress bar
	barW, barH := 300.0, 8.0
	barX := centerX - barW/2
	barY := float64(height)/2 + 40
	FillRect(screen, barX, barY, barW, barH, Pal.Panel)
	pos := (math.Sin(elapsed*3) + 1) / 2
	FillRect(screen, barX+pos*(barW-60), barY, 60, barH, color.RGBA{60, 100, 140, 255})
}
