package models

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/golangdaddy/roadchain/pkg/models/car"
)

var (
	ErrInvalidCarIndex = errors.New("invalid car index")
	ErrCarStaked       = errors.New("car is staked and cannot race")
)

// Garage holds the cars owned by the connected wallet
type Garage struct {
	Owner     string            // wallet address the cars were loaded for
	Cars      []*car.CarProfile // cars in registry order
	ActiveCar int               // index of the selected car (-1 if none)
}

// NewGarage creates an empty garage for the given owner
func NewGarage(owner string) *Garage {
	return &Garage{
		Owner:     owner,
		Cars:      make([]*car.CarProfile, 0),
		ActiveCar: -1,
	}
}

// Load replaces the garage content with the given cars. The first car that
// is not staked becomes the active car.
func (g *Garage) Load(cars []*car.CarProfile) {
	g.Cars = lo.Filter(cars, func(c *car.CarProfile, _ int) bool { return c != nil })
	g.ActiveCar = -1
	for i, c := range g.Cars {
		if !c.IsStaked {
			g.ActiveCar = i
			break
		}
	}
}

// GetCar retrieves a car by index
// Returns nil if the index is invalid
func (g *Garage) GetCar(index int) *car.CarProfile {
	if index < 0 || index >= len(g.Cars) {
		return nil
	}
	return g.Cars[index]
}

// GetActiveCar returns the currently selected car
// Returns nil if no car is selected
func (g *Garage) GetActiveCar() *car.CarProfile {
	return g.GetCar(g.ActiveCar)
}

// SetActiveCar selects the car at index. Staked cars cannot be selected.
func (g *Garage) SetActiveCar(index int) error {
	c := g.GetCar(index)
	if c == nil {
		return ErrInvalidCarIndex
	}
	if c.IsStaked {
		return fmt.Errorf("%s: %w", c.Name, ErrCarStaked)
	}
	g.ActiveCar = index
	return nil
}

// FindCarByID returns the car with the given token id and its index, or nil and -1
func (g *Garage) FindCarByID(id uint64) (*car.CarProfile, int) {
	c, idx, ok := lo.FindIndexOf(g.Cars, func(c *car.CarProfile) bool { return c.ID == id })
	if !ok {
		return nil, -1
	}
	return c, idx
}

// GetAllCars returns all cars in the garage
func (g *Garage) GetAllCars() []*car.CarProfile {
	return g.Cars
}

// RaceableCars returns the cars that are not staked
func (g *Garage) RaceableCars() []*car.CarProfile {
	return lo.Reject(g.Cars, func(c *car.CarProfile, _ int) bool { return c.IsStaked })
}

// GetCarCount returns the number of cars in the garage
func (g *Garage) GetCarCount() int {
	return len(g.Cars)
}

// String returns a string representation of the garage
func (g *Garage) String() string {
	activeStr := "none"
	if c := g.GetActiveCar(); c != nil {
		activeStr = c.Name
	}
	return fmt.Sprintf("Garage %s: %d cars (%d raceable), Active: %s",
		g.Owner, len(g.Cars), len(g.RaceableCars()), activeStr)
}
