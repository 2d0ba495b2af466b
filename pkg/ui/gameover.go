package ui

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/golangdaddy/roadchain/pkg/lifecycle"
	"github.com/golangdaddy/roadchain/pkg/submission"
)

// GameOverScreen shows the settled race and drives its submission
type GameOverScreen struct {
	ctrl        *lifecycle.Controller
	message     string
	onRaceAgain func()
}

// NewGameOverScreen creates the results screen for the last settled race
func NewGameOverScreen(ctrl *lifecycle.Controller, onRaceAgain func()) *GameOverScreen {
	gs := &GameOverScreen{ctrl: ctrl, onRaceAgain: onRaceAgain}
	if over, ok := ctrl.GameOver(); ok && over.SubmitSkipped != nil {
		gs.message = skipMessage(over.SubmitSkipped)
	}
	return gs
}

// Update handles input for the results screen
func (gs *GameOverScreen) Update() error {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyS):
		if err := gs.ctrl.Submit(); err != nil {
			gs.message = skipMessage(err)
		} else {
			gs.message = ""
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		if gs.onRaceAgain != nil {
			gs.onRaceAgain()
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyM),
		inpututil.IsKeyJustPressed(ebiten.KeyEnter),
		inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		if err := gs.ctrl.ReturnToMenu(); err != nil {
			gs.message = err.Error()
		}
	}
	return nil
}

// Draw renders the results screen
func (gs *GameOverScreen) Draw(screen *ebiten.Image) {
	width, height := screen.Bounds().Dx(), screen.Bounds().Dy()
	screen.Fill(Pal.Background)
	centerX := float64(width) / 2

	over, ok := gs.ctrl.GameOver()
	if !ok {
		DrawText(screen, "No race results", centerX, float64(height)/2, 24, Pal.Text)
		return
	}
	res := over.Result

	DrawText(screen, "GAME OVER", centerX, 50, 48, Pal.Bad)
	if over.IsNewHighScore {
		DrawText(screen, "NEW HIGH SCORE!", centerX, 95, 24, Pal.Gold)
	}

	panelW, panelH := 420.0, 230.0
	panelX := centerX - panelW/2
	panelY := 120.0
	FillRect(screen, panelX, panelY, panelW, panelH, color.RGBA{20, 20, 30, 200})
	StrokeRect(screen, panelX, panelY, panelW, panelH, 2, Pal.Border)

	lines := []string{
		fmt.Sprintf("Score:          %d", res.Score),
		fmt.Sprintf("High score:     %d", over.HighScore),
		fmt.Sprintf("Distance:       %dm", res.Distance),
		fmt.Sprintf("Avoided:        %d", res.ObstaclesAvoided),
		fmt.Sprintf("Bonus boxes:    %d", res.BonusBoxesCollected),
		fmt.Sprintf("Golden keys:    %d", res.KeysCollected),
		fmt.Sprintf("Top speed:      %d km/h", res.TopSpeed),
		fmt.Sprintf("Lap time:       %s", res.LapTime.Round(100*time.Millisecond)),
	}
	for i, l := range lines {
		DrawTextAt(screen, l, panelX+20, panelY+14+float64(i)*26, 16, Pal.Text)
	}

	y := panelY + panelH + 20
	if over.Challenge != nil {
		ch := over.Challenge
		p := over.Progress
		clr := Pal.Dim
		status := fmt.Sprintf("%s: %d / %d %s (%.0f%%)", ch.Title, p.Current, p.Target, ch.Unit, p.Percent)
		if over.ChallengeCompleted {
			clr = Pal.Good
			status = fmt.Sprintf("%s completed! Reward: %d RACE", ch.Title, ch.Reward)
		}
		DrawText(screen, status, centerX, y, 16, clr)
		barW := 300.0
		FillRect(screen, centerX-barW/2, y+16, barW, 6, Pal.Panel)
		FillRect(screen, centerX-barW/2, y+16, barW*p.Percent/100, 6, clr)
		y += 40
	}
	if over.TournamentID != "" {
		DrawText(screen, "Tournament run: "+over.TournamentID, centerX, y, 16, Pal.Accent)
		y += 26
	}

	if b := gs.ctrl.Bridge(); b != nil {
		cat, _ := b.Failure()
		status, clr := SubmissionStatus(b.State(), cat, b.TxHash())
		DrawText(screen, status, centerX, y, 16, clr)
		y += 26
	}
	if at, pending := gs.ctrl.AutoReturnPending(); pending {
		left := time.Until(at).Round(time.Second)
		if left < 0 {
			left = 0
		}
		DrawText(screen, fmt.Sprintf("Returning in %s", left), centerX, y, 16, Pal.Dim)
	}
	if gs.message != "" {
		DrawText(screen, gs.message, centerX, float64(height)-70, 16, Pal.Bad)
	}
	DrawText(screen, "S: Submit | R: Race Again | M: Menu", centerX, float64(height)-40, 16, Pal.Dim)
}

// SubmissionStatus is the line shown for the state of the result submission
func SubmissionStatus(state submission.State, cat submission.Category, txHash string) (string, color.Color) {
	switch state {
	case submission.StateWaitingWallet:
		return "Waiting for wallet approval...", Pal.Gold
	case submission.StateConfirming:
		return "Confirming " + shortAddress(txHash) + "...", Pal.Gold
	case submission.StateSuccess:
		return "Result recorded on chain: " + shortAddress(txHash), Pal.Good
	case submission.StateError:
		return cat.Message(), Pal.Bad
	default:
		return "Result not submitted", Pal.Dim
	}
}

// skipMessage explains why a result was not submitted
func skipMessage(err error) string {
	switch {
	case errors.Is(err, submission.ErrRunTooShort):
		return "Run too short to submit"
	case errors.Is(err, submission.ErrAutoSubmitDisabled):
		return "Auto-submit is off. Press S to submit"
	case errors.Is(err, submission.ErrSubmissionInFlight):
		return "Submission already in progress"
	case errors.Is(err, submission.ErrAlreadySubmitted):
		return "Result already submitted"
	case errors.Is(err, lifecycle.ErrWalletNotConnected), errors.Is(err, submission.ErrNoWallet):
		return "Connect a wallet to submit"
	default:
		return err.Error()
	}
}
