// Package game hosts the ebiten window: it owns the race lifecycle and swaps
// between the menu, garage, race and results screens.
package game

import (
	"context"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/golangdaddy/roadchain/log"
	"github.com/golangdaddy/roadchain/pkg/chain"
	"github.com/golangdaddy/roadchain/pkg/lifecycle"
	"github.com/golangdaddy/roadchain/pkg/models"
	"github.com/golangdaddy/roadchain/pkg/models/car"
	"github.com/golangdaddy/roadchain/pkg/race"
	"github.com/golangdaddy/roadchain/pkg/ui"
)

const (
	ScreenWidth  = 1024
	ScreenHeight = 600
)

// Screen represents a UI screen interface
type Screen interface {
	Update() error
	Draw(screen *ebiten.Image)
}

// Store is everything the host persists
type Store interface {
	lifecycle.Store
	Settings
}

// Deps are the collaborators of the game host
type Deps struct {
	Wallet   chain.Wallet
	Registry chain.CarRegistry
	Results  chain.ResultChannel
	Store    Store
	// TournamentID makes every free run count for this tournament
	TournamentID string
}

// Game implements the ebiten.Game interface and manages the overall game state
type Game struct {
	ctx      context.Context
	deps     Deps
	garage   *models.Garage
	ctrl     *lifecycle.Controller
	gameplay *GameplayScreen
	logger   *log.Logger

	currentScreen Screen
	menu          ui.MenuModel
	autoSubmitDef bool
	quit          bool
}

// NewGame creates the host and starts loading the garage. opts are passed to
// the lifecycle controller.
func NewGame(ctx context.Context, deps Deps, autoSubmit bool, opts ...lifecycle.Option) *Game {
	g := &Game{
		ctx:           ctx,
		deps:          deps,
		garage:        models.NewGarage(""),
		logger:        log.Default().Named("game"),
		autoSubmitDef: autoSubmit,
	}
	g.gameplay = NewGameplayScreen(ScreenWidth, ScreenHeight, NewKeyboardMouse(ScreenWidth, ScreenHeight), g.stopRace)

	ctrlOpts := []lifecycle.Option{
		lifecycle.WithContext(ctx),
		lifecycle.WithAutoSubmit(autoSubmit),
		lifecycle.WithNavigator(g),
		lifecycle.WithSessionOptions(race.WithSurface(g.gameplay)),
		lifecycle.WithGameOverHandler(g.onGameOver),
	}
	g.ctrl = lifecycle.NewController(deps.Wallet, g.garage, deps.Store, deps.Results, append(ctrlOpts, opts...)...)
	g.currentScreen = ui.NewLoadingScreen(ctx, g.loadGarage, func(*models.Garage) { g.showMenu("") })
	return g
}

// Controller exposes the race lifecycle
func (g *Game) Controller() *lifecycle.Controller {
	return g.ctrl
}

func (g *Game) loadGarage(ctx context.Context) (*models.Garage, error) {
	if err := FillGarage(ctx, g.garage, g.deps.Wallet, g.deps.Registry, g.deps.Store); err != nil {
		return nil, err
	}
	g.logger.Info("garage loaded", log.String("owner", g.garage.Owner), log.Int("cars", g.garage.GetCarCount()))
	return g.garage, nil
}

// Update handles game logic updates
func (g *Game) Update() error {
	if g.quit {
		return ebiten.Termination
	}
	g.ctrl.Poll()
	if g.currentScreen != nil {
		return g.currentScreen.Update()
	}
	return nil
}

// Draw renders the current screen
func (g *Game) Draw(screen *ebiten.Image) {
	if g.currentScreen != nil {
		g.currentScreen.Draw(screen)
	}
}

// Layout returns the game's screen dimensions
func (g *Game) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	return ScreenWidth, ScreenHeight
}

// Close abandons a running race
func (g *Game) Close() {
	g.ctrl.Teardown()
}

// showMenu refreshes the menu model and shows the title screen
func (g *Game) showMenu(message string) {
	g.refreshMenu(message)
	g.currentScreen = ui.NewTitleScreen(func() ui.MenuModel { return g.menu }, ui.MenuActions{
		FreeRun:          func() { g.startRace(lifecycle.StartOptions{TournamentID: g.deps.TournamentID}) },
		DailyChallenge:   func() { g.startRace(lifecycle.StartOptions{DailyChallenge: true}) },
		Garage:           g.showGarage,
		ToggleAutoSubmit: g.toggleAutoSubmit,
		Quit:             func() { g.quit = true },
	})
}

func (g *Game) refreshMenu(message string) {
	ctx := g.ctx
	m := ui.MenuModel{Challenge: g.ctrl.Today(), Message: message}
	if g.deps.Wallet != nil && g.deps.Wallet.IsConnected() {
		m.Wallet = g.deps.Wallet.Address()
	}
	if c := g.garage.GetActiveCar(); c != nil {
		m.Car = c.Name
	}
	var err error
	if m.HighScore, err = g.deps.Store.HighScore(ctx); err != nil {
		g.logger.Warn("could not read high score", log.ErrorField(err))
	}
	if m.ChallengeCompleted, err = g.ctrl.Tracker().IsCompletedToday(ctx); err != nil {
		g.logger.Warn("could not read challenge completion", log.ErrorField(err))
	}
	if m.AutoSubmit, err = g.deps.Store.AutoSubmit(ctx, g.autoSubmitDef); err != nil {
		g.logger.Warn("could not read auto submit setting", log.ErrorField(err))
	}
	g.menu = m
}

func (g *Game) startRace(opts lifecycle.StartOptions) {
	s, err := g.ctrl.Start(opts)
	if err != nil {
		g.refreshMenu(err.Error())
		return
	}
	g.gameplay.Begin(s, g.ctrl.Today(), opts.DailyChallenge)
	g.currentScreen = g.gameplay
}

func (g *Game) stopRace() {
	if !g.ctrl.Stop() {
		g.showMenu("")
	}
}

func (g *Game) onGameOver(lifecycle.GameOver) {
	g.currentScreen = ui.NewGameOverScreen(g.ctrl, g.raceAgain)
}

func (g *Game) raceAgain() {
	opts := g.ctrl.StartOptions()
	if err := g.ctrl.ReturnToMenu(); err != nil {
		g.logger.Warn("race again", log.ErrorField(err))
		return
	}
	g.startRace(opts)
}

func (g *Game) showGarage() {
	g.currentScreen = ui.NewGarageScreen(g.garage, g.selectCar, func() { g.showMenu("") })
}

func (g *Game) selectCar(c *car.CarProfile) {
	// the session of the previous car is released
	g.ctrl.Teardown()
	if err := g.deps.Store.SetLastSelectedCar(g.ctx, c.ID); err != nil {
		g.logger.Warn("could not store selected car", log.ErrorField(err))
	}
	g.showMenu("")
}

func (g *Game) toggleAutoSubmit() {
	on := !g.menu.AutoSubmit
	if err := g.deps.Store.SetAutoSubmit(g.ctx, on); err != nil {
		g.refreshMenu(err.Error())
		return
	}
	g.refreshMenu("")
}

// OnTournamentCompleted implements lifecycle.Navigator
func (g *Game) OnTournamentCompleted(id string) {
	g.logger.Info("tournament run recorded", log.String("tournament", id))
}

// OnNavigateToTournaments implements lifecycle.Navigator
func (g *Game) OnNavigateToTournaments() {
	g.showMenu("Tournament result recorded")
}

// OnNavigateToMenu implements lifecycle.Navigator
func (g *Game) OnNavigateToMenu() {
	g.showMenu("")
}
