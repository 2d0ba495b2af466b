package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golangdaddy/roadchain/pkg/models/car"
)

func sampleCars() []*car.CarProfile {
	staked := car.NewCarProfile(1, "Racing Beast", 90, 85, 88, 4)
	staked.IsStaked = true
	return []*car.CarProfile{
		staked,
		car.NewCarProfile(2, "Starter Coupe", 40, 40, 40, 1),
		car.NewCarProfile(3, "Sport GT", 70, 60, 65, 3),
	}
}

func TestGarage_LoadSelectsFirstRaceable(t *testing.T) {
	g := NewGarage("0xabc")
	g.Load(sampleCars())

	require.NotNil(t, g.GetActiveCar())
	assert.Equal(t, uint64(2), g.GetActiveCar().ID)
	assert.Len(t, g.RaceableCars(), 2)
}

func TestGarage_SetActiveCar(t *testing.T) {
	g := NewGarage("0xabc")
	g.Load(sampleCars())

	err := g.SetActiveCar(0)
	assert.True(t, errors.Is(err, ErrCarStaked))
	assert.Equal(t, 1, g.ActiveCar, "selection unchanged after rejected staked car")

	assert.ErrorIs(t, g.SetActiveCar(5), ErrInvalidCarIndex)

	require.NoError(t, g.SetActiveCar(2))
	assert.Equal(t, "Sport GT", g.GetActiveCar().Name)

	c, idx := g.FindCarByID(3)
	require.NotNil(t, c)
	assert.Equal(t, 2, idx)
}

func TestGarage_AllStaked(t *testing.T) {
	c := car.NewCarProfile(1, "Sport", 1, 1, 1, 1)
	c.IsStaked = true
	g := NewGarage("0xabc")
	g.Load([]*car.CarProfile{c, nil})

	assert.Nil(t, g.GetActiveCar())
	assert.Equal(t, 1, g.GetCarCount())
}

func TestHistory_CappedNewestFirst(t *testing.T) {
	h := NewHistory(0)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		h.Add(NewGameHistoryEntry(i, i*10, i, 0, time.Second, "Sport", base.Add(time.Duration(i)*time.Minute), false))
	}

	assert.Equal(t, DefaultHistoryCapacity, h.Len())
	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, 59, latest.Score)
	assert.Equal(t, 10, h.Entries[h.Len()-1].Score)
	assert.Equal(t, 59, h.BestScore())
	assert.NotEqual(t, h.Entries[0].ID, h.Entries[1].ID)
}
