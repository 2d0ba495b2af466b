package road

import "math/rand"

// Lanes holds the world X centre of each of the four lanes, left to right
var Lanes = [4]float64{-4.5, -1.5, 1.5, 4.5}

// LateralScale maps a normalized lateral position in [-1, 1] to world X
const LateralScale = 4.5

const (
	DefaultMarkingCount   = 30
	DefaultMarkingSpacing = 10.0
	// markings this far behind the car are moved back to the front
	MarkingRecycleMargin = 20.0
)

// WorldX converts a normalized lateral position into world X
func WorldX(lateral float64) float64 {
	return lateral * LateralScale
}

// RandomLane picks a lane uniformly
func RandomLane(rng *rand.Rand) float64 {
	return Lanes[rng.Intn(len(Lanes))]
}

// Marking is one dashed centre line piece of the road
type Marking struct {
	Z float64
}

// Markings is the ring of road markings that scrolls with the car. Forward
// is -Z, so a marking is behind the car once its Z is larger than the car's.
type Markings struct {
	items   []Marking
	spacing float64
}

// NewMarkings lays count markings out ahead of startZ
func NewMarkings(count int, spacing, startZ float64) *Markings {
	m := &Markings{
		items:   make([]Marking, count),
		spacing: spacing,
	}
	for i := range m.items {
		m.items[i].Z = startZ - float64(i)*spacing
	}
	return m
}

// Recycle moves markings that fell behind the car in front of the farthest
// one and returns how many were moved
func (m *Markings) Recycle(carZ float64) int {
	if len(m.items) == 0 {
		return 0
	}
	moved := 0
	for i := range m.items {
		if m.items[i].Z > carZ+MarkingRecycleMargin {
			m.items[i].Z = m.farthest() - m.spacing
			moved++
		}
	}
	return moved
}

func (m *Markings) farthest() float64 {
	min := m.items[0].Z
	for _, it := range m.items[1:] {
		if it.Z < min {
			min = it.Z
		}
	}
	return min
}

// All returns a copy of the markings
func (m *Markings) All() []Marking {
	out := make([]Marking, len(m.items))
	copy(out, m.items)
	return out
}
