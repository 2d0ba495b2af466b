package ui

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/golangdaddy/roadchain/pkg/models"
	"github.com/golangdaddy/roadchain/pkg/models/car"
)

// GarageScreen lists the cars of the connected wallet and selects the one to race with
type GarageScreen struct {
	garage   *models.Garage
	selected int
	message  string
	onSelect func(*car.CarProfile)
	onBack   func()
}

// NewGarageScreen creates a new garage selection screen
func NewGarageScreen(garage *models.Garage, onSelect func(*car.CarProfile), onBack func()) *GarageScreen {
	selected := garage.ActiveCar
	if selected < 0 {
		selected = 0
	}
	return &GarageScreen{
		garage:   garage,
		selected: selected,
		onSelect: onSelect,
		onBack:   onBack,
	}
}

// Update handles input for the garage screen
func (gs *GarageScreen) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		if gs.onBack != nil {
			gs.onBack()
		}
		return nil
	}
	n := gs.garage.GetCarCount()
	if n == 0 {
		return nil
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) {
		gs.selected = (gs.selected - 1 + n) % n
		gs.message = ""
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		gs.selected = (gs.selected + 1) % n
		gs.message = ""
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		gs.choose()
	}
	return nil
}

func (gs *GarageScreen) choose() {
	if err := gs.garage.SetActiveCar(gs.selected); err != nil {
		if errors.Is(err, models.ErrCarStaked) {
			gs.message = "This car is staked and cannot race"
		} else {
			gs.message = err.Error()
		}
		return
	}
	if gs.onSelect != nil {
		gs.onSelect(gs.garage.GetActiveCar())
	}
}

// Draw renders the garage screen
func (gs *GarageScreen) Draw(screen *ebiten.Image) {
	width, height := screen.Bounds().Dx(), screen.Bounds().Dy()
	screen.Fill(Pal.Background)
	centerX := float64(width) / 2

	DrawText(screen, "SELECT CAR", centerX, 50, 48, Pal.Gold)

	cars := gs.garage.GetAllCars()
	if len(cars) == 0 {
		DrawText(screen, "No cars in this wallet", centerX, float64(height)/2, 24, Pal.Text)
		DrawText(screen, "Esc: Back", centerX, float64(height)-50, 20, Pal.Dim)
		return
	}

	startY := 110.0
	spacing := 70.0
	buttonW, buttonH := 640.0, 56.0
	buttonX := centerX - buttonW/2
	for i, c := range cars {
		y := startY + float64(i)*spacing
		drawButton(screen, formatCarInfo(c, i == gs.garage.ActiveCar), buttonX, y, buttonW, buttonH, i == gs.selected)
		if c.IsStaked {
			FillRect(screen, buttonX, y, buttonW, buttonH, color.RGBA{0, 0, 0, 120})
			DrawTextAt(screen, "STAKED", buttonX+buttonW-80, y+8, 16, Pal.Bad)
		}
	}

	if c := gs.garage.GetCar(gs.selected); c != nil {
		gs.drawStats(screen, c, buttonX, float64(height)-130)
	}
	if gs.message != "" {
		DrawText(screen, gs.message, centerX, float64(height)-70, 16, Pal.Bad)
	}
	DrawText(screen, "Arrow Keys: Navigate | Enter: Select | Esc: Back", centerX, float64(height)-40, 16, Pal.Dim)
}

func (gs *GarageScreen) drawStats(screen *ebiten.Image, c *car.CarProfile, x, y float64) {
	perf := c.Performance()
	line := fmt.Sprintf("Speed x%.2f  Handling x%.2f  Accel x%.2f  Top x%.1f",
		perf.SpeedBonus, perf.HandlingBonus, perf.AccelerationBonus, perf.MaxSpeed)
	DrawTextAt(screen, line, x, y, 16, Pal.Accent)
}

// formatCarInfo formats one garage entry
func formatCarInfo(c *car.CarProfile, active bool) string {
	mark := ""
	if active {
		mark = "> "
	}
	return fmt.Sprintf("%s#%d %s | SPD %d HND %d ACC %d | %s", mark, c.ID, c.Name, c.Speed, c.Handling, c.Acceleration, c.Tier)
}
