package play

import (
	"context"
	"math/rand"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cobra"

	"github.com/golangdaddy/roadchain/log"
	"github.com/golangdaddy/roadchain/pkg/cmd/util"
	"github.com/golangdaddy/roadchain/pkg/config"
	"github.com/golangdaddy/roadchain/pkg/game"
	"github.com/golangdaddy/roadchain/pkg/lifecycle"
	"github.com/golangdaddy/roadchain/pkg/race"
	"github.com/golangdaddy/roadchain/pkg/submission"
)

var tournamentID string

func NewPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "opens the game window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startGame(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&tournamentID, "tournament", "",
		"count free runs for this tournament")
	return cmd
}

func startGame(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := util.Setup(ctx)
	if err != nil {
		return err
	}
	defer env.Close(context.Background())

	params := race.DefaultParams()
	if config.SnapshotInterval > 0 {
		params.SnapshotInterval = config.SnapshotInterval
	}
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	g := game.NewGame(ctx, game.Deps{
		Wallet:       env.Chain,
		Registry:     env.Chain,
		Results:      env.Chain,
		Store:        env.Store,
		TournamentID: tournamentID,
	}, config.AutoSubmit,
		lifecycle.WithAutoReturnDelay(config.AutoReturnDelay),
		lifecycle.WithSessionOptions(race.WithParams(params), race.WithRand(rand.New(rand.NewSource(seed)))),
		lifecycle.WithBridgeOptions(append(env.BridgeOptions(),
			submission.WithLogger(log.Default().Named("submission")))...),
	)
	defer g.Close()

	ebiten.SetWindowSize(game.ScreenWidth, game.ScreenHeight)
	ebiten.SetWindowTitle("Roadchain")
	log.Info("starting game", log.String("player", config.PlayerAddress), log.Int64("seed", seed))
	if err := ebiten.RunGame(g); err != nil {
		log.Error("game stopped", log.ErrorField(err))
		return err
	}
	return nil
}
