package game

import (
	"context"
	"fmt"

	"github.com/golangdaddy/roadchain/log"
	"github.com/golangdaddy/roadchain/pkg/chain"
	"github.com/golangdaddy/roadchain/pkg/models"
)

// Settings are the persisted player preferences the host reads and writes
type Settings interface {
	HighScore(ctx context.Context) (int, error)
	AutoSubmit(ctx context.Context, def bool) (bool, error)
	SetAutoSubmit(ctx context.Context, on bool) error
	LastSelectedCar(ctx context.Context) (uint64, bool, error)
	SetLastSelectedCar(ctx context.Context, id uint64) error
}

// FillGarage loads the cars of the garage owner from the registry and
// restores the car selected last time when it can still race
func FillGarage(ctx context.Context, g *models.Garage, wallet chain.Wallet, registry chain.CarRegistry, settings Settings) error {
	if wallet == nil || !wallet.IsConnected() {
		return chain.ErrWalletNotConnected
	}
	g.Owner = wallet.Address()
	cars, err := registry.ListOwnedCars(ctx, g.Owner)
	if err != nil {
		return fmt.Errorf("list cars of %s: %w", g.Owner, err)
	}
	g.Load(cars)

	id, ok, err := settings.LastSelectedCar(ctx)
	if err != nil {
		log.Default().Named("garage").Warn("could not read last selected car", log.ErrorField(err))
		return nil
	}
	if !ok {
		return nil
	}
	if _, idx := g.FindCarByID(id); idx >= 0 {
		// a staked car keeps the default selection
		_ = g.SetActiveCar(idx)
	}
	return nil
}
