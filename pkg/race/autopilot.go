package race

import "github.com/golangdaddy/roadchain/pkg/road"

// lookAhead is how far in front of the car the autopilot reacts to obstacles
const lookAhead = 40.0

// Autopilot is an InputSource that steers around obstacles and towards
// pickups using the latest published snapshot. It is deterministic for a
// given session seed.
type Autopilot struct {
	session *Session
	// Cruise is the speed multiplier the autopilot tries to hold
	Cruise float64
}

// NewAutopilot creates an autopilot for s
func NewAutopilot(s *Session, cruise float64) *Autopilot {
	return &Autopilot{session: s, Cruise: cruise}
}

// Poll implements InputSource
func (a *Autopilot) Poll() Input {
	s := a.session
	in := Input{
		Accelerate: s.speedMultiplier < a.Cruise,
		Brake:      s.speedMultiplier > a.Cruise+s.params.BaseAccelerationRate,
	}

	carX := road.WorldX(s.carLateral)
	lane := nearestLane(carX)
	blocked := func(x float64) bool {
		for _, o := range s.obstacles {
			dz := s.carZ - o.Z
			if dz > -s.params.ObstacleHitZ && dz < lookAhead && o.X == x {
				return true
			}
		}
		return false
	}

	target := lane
	if blocked(lane) {
		best := -1.0
		for i, x := range road.Lanes {
			if blocked(x) {
				continue
			}
			d := abs(x - carX)
			if best < 0 || d < best {
				best = d
				target = road.Lanes[i]
			}
		}
	} else {
		// drift to a reachable pickup when the lane there is clear
		for _, list := range [][]*Entity{s.keys, s.bonusBoxes} {
			for _, e := range list {
				dz := s.carZ - e.Z
				if dz > 0 && dz < lookAhead && !blocked(e.X) {
					target = e.X
				}
			}
		}
	}

	diff := target - carX
	if abs(diff) > s.params.LateralEpsilon*road.LateralScale {
		in.Left = diff < 0
		in.Right = diff > 0
	}
	return in
}

func nearestLane(x float64) float64 {
	best := road.Lanes[0]
	for _, l := range road.Lanes[1:] {
		if abs(l-x) < abs(best-x) {
			best = l
		}
	}
	return best
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
