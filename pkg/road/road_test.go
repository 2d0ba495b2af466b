package road

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomLaneStaysOnLanes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	seen := map[float64]bool{}
	for i := 0; i < 200; i++ {
		seen[RandomLane(rng)] = true
	}
	assert.Len(t, seen, 4)
	for x := range seen {
		assert.Contains(t, Lanes[:], x)
	}
}

func TestWorldX(t *testing.T) {
	assert.Equal(t, 4.5, WorldX(1))
	assert.Equal(t, -4.5, WorldX(-1))
	assert.Equal(t, 0.0, WorldX(0))
}

func TestMarkingsRecycle(t *testing.T) {
	m := NewMarkings(5, 10, 0)
	// markings at 0, -10, -20, -30, -40
	assert.Equal(t, 0, m.Recycle(0))

	// car moved to -25: 0 is 25 behind (> 20), -10 is 15 behind
	assert.Equal(t, 1, m.Recycle(-25))
	zs := []float64{}
	for _, mk := range m.All() {
		zs = append(zs, mk.Z)
	}
	assert.ElementsMatch(t, []float64{-50, -10, -20, -30, -40}, zs)
}
