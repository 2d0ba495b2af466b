package simulate

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/golangdaddy/roadchain/log"
	"github.com/golangdaddy/roadchain/pkg/cmd/util"
	"github.com/golangdaddy/roadchain/pkg/config"
	"github.com/golangdaddy/roadchain/pkg/game"
	"github.com/golangdaddy/roadchain/pkg/lifecycle"
	"github.com/golangdaddy/roadchain/pkg/models"
	"github.com/golangdaddy/roadchain/pkg/race"
	"github.com/golangdaddy/roadchain/pkg/submission"
)

type options struct {
	maxFrames  int
	cruise     float64
	daily      bool
	tournament string
	realtime   bool
	carID      uint64
}

var opts options

func NewSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "plays a headless race with the autopilot",
		Long: `Plays one race without a window. The autopilot steers around obstacles
and collects pickups. With a fixed --seed the race is reproducible.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return simulate(cmd.Context(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&opts.maxFrames, "max-frames", 60*180,
		"stop the race after this many frames")
	cmd.Flags().Float64Var(&opts.cruise, "cruise", 1.6,
		"speed multiplier the autopilot holds")
	cmd.Flags().BoolVar(&opts.daily, "daily", false,
		"count the race as today's challenge attempt")
	cmd.Flags().StringVar(&opts.tournament, "tournament", "",
		"count the race for this tournament")
	cmd.Flags().BoolVar(&opts.realtime, "realtime", false,
		"run at 60 frames per second on the wall clock")
	cmd.Flags().Uint64Var(&opts.carID, "car", 0,
		"token id of the car to race (default: last selected)")
	return cmd
}

// steppedClock advances one frame every time the autopilot is asked for input
type steppedClock struct {
	t     time.Time
	input race.InputSource
}

func (c *steppedClock) now() time.Time { return c.t }

func (c *steppedClock) Poll() race.Input {
	c.t = c.t.Add(race.FrameInterval)
	return c.input.Poll()
}

func simulate(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := util.Setup(ctx)
	if err != nil {
		return err
	}
	defer env.Close(context.Background())

	garage := models.NewGarage("")
	if err := game.FillGarage(ctx, garage, env.Chain, env.Chain, env.Store); err != nil {
		return err
	}
	if opts.carID != 0 {
		_, idx := garage.FindCarByID(opts.carID)
		if err := garage.SetActiveCar(idx); err != nil {
			return fmt.Errorf("car %d: %w", opts.carID, err)
		}
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	params := race.DefaultParams()
	if config.SnapshotInterval > 0 {
		params.SnapshotInterval = config.SnapshotInterval
	}

	clock := &steppedClock{t: time.Now()}
	ctrlOpts := []lifecycle.Option{
		lifecycle.WithContext(ctx),
		lifecycle.WithAutoSubmit(config.AutoSubmit),
		lifecycle.WithSessionOptions(race.WithParams(params), race.WithRand(rand.New(rand.NewSource(seed)))),
		lifecycle.WithBridgeOptions(env.BridgeOptions()...),
	}
	if !opts.realtime {
		ctrlOpts = append(ctrlOpts, lifecycle.WithClock(clock.now))
	}
	ctrl := lifecycle.NewController(env.Chain, garage, env.Store, env.Chain, ctrlOpts...)
	defer ctrl.Teardown()

	s, err := ctrl.Start(lifecycle.StartOptions{DailyChallenge: opts.daily, TournamentID: opts.tournament})
	if err != nil {
		return err
	}
	pilot := race.NewAutopilot(s, opts.cruise)
	log.Info("simulating race",
		log.Int64("seed", seed),
		log.String("car", garage.GetActiveCar().Name),
		log.Bool("realtime", opts.realtime))

	if opts.realtime {
		runCtx, cancel := context.WithTimeout(ctx, time.Duration(opts.maxFrames)*race.FrameInterval)
		defer cancel()
		if _, err := race.Run(runCtx, s, pilot, race.FrameInterval); err != nil && runCtx.Err() == nil {
			return err
		}
	} else {
		clock.input = pilot
		frames := race.RunFrames(s, clock, opts.maxFrames)
		log.Debug("simulation finished", log.Int("frames", frames))
		ctrl.Stop()
	}

	over, ok := ctrl.GameOver()
	if !ok {
		return lifecycle.ErrNotGameOver
	}
	if b := ctrl.Bridge(); b != nil && b.State() != submission.StateIdle {
		waitCtx, cancel := context.WithTimeout(ctx, config.ConfirmDelay+10*time.Second)
		defer cancel()
		if err := b.Wait(waitCtx); err != nil {
			log.Warn("submission still pending", log.ErrorField(err))
		}
	}
	ctrl.Poll()
	printGameOver(out, over, ctrl.Bridge())
	return nil
}

func printGameOver(out io.Writer, over lifecycle.GameOver, b *submission.Bridge) {
	res := over.Result
	fmt.Fprintf(out, "race %s ended by %s after %s\n", res.SessionID, res.Reason, res.LapTime.Round(time.Millisecond))
	fmt.Fprintf(out, "  score      %d (high score %d%s)\n", res.Score, over.HighScore, newHigh(over.IsNewHighScore))
	fmt.Fprintf(out, "  distance   %dm\n", res.Distance)
	fmt.Fprintf(out, "  avoided    %d\n", res.ObstaclesAvoided)
	fmt.Fprintf(out, "  bonus      %d\n", res.BonusBoxesCollected)
	fmt.Fprintf(out, "  keys       %d\n", res.KeysCollected)
	fmt.Fprintf(out, "  top speed  %d km/h\n", res.TopSpeed)
	if over.Challenge != nil {
		p := over.Progress
		fmt.Fprintf(out, "  challenge  %s %d/%d %s completed=%t\n", over.Challenge.Title, p.Current, p.Target, over.Challenge.Unit, over.ChallengeCompleted)
		if over.ChallengeCompleted {
			fmt.Fprintf(out, "  reward     %s base units\n", over.Reward.String())
		}
	}
	switch {
	case b == nil:
	case b.State() == submission.StateSuccess:
		fmt.Fprintf(out, "  submitted  %s\n", b.TxHash())
	case b.State() == submission.StateError:
		cat, err := b.Failure()
		fmt.Fprintf(out, "  submission failed: %s (%v)\n", cat.Message(), err)
	case over.SubmitSkipped != nil:
		fmt.Fprintf(out, "  not submitted: %v\n", over.SubmitSkipped)
	}
}

func newHigh(b bool) string {
	if b {
		return ", new"
	}
	return ""
}
