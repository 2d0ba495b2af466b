package race

// Pointer is a cursor position normalized to the screen, 0..1 on both axes
// with 0,0 at the top left
type Pointer struct {
	X, Y float64
}

// Input is the control state sampled once per frame
type Input struct {
	Accelerate bool
	Brake      bool
	Left       bool
	Right      bool
	Pointer    *Pointer // set when the mouse steers
}

// InputSource yields the input for the next frame
type InputSource interface {
	Poll() Input
}

// applyInput updates speed and lateral position from one frame of input.
// The speed multiplier stays in [min, max speed for car] and the lateral
// position in [-1, 1].
func (s *Session) applyInput(in Input) {
	p := s.params
	accel := p.BaseAccelerationRate * s.perf.AccelerationBonus
	move := p.BaseMoveSpeed * s.perf.HandlingBonus
	ease := p.BaseEaseSpeed * s.perf.HandlingBonus

	if in.Accelerate {
		s.speedMultiplier += accel
	}
	if in.Brake {
		s.speedMultiplier -= accel
	}

	if in.Left || in.Right {
		if in.Left {
			s.carLateral -= move
		}
		if in.Right {
			s.carLateral += move
		}
		s.carLateral = clamp(s.carLateral, -1, 1)
		// keys own the position; keep the target with it so easing does not pull back
		s.targetLateral = s.carLateral
	} else if in.Pointer != nil {
		s.targetLateral = clamp(in.Pointer.X*2-1, -1, 1)
		y := clamp(in.Pointer.Y, 0, 1)
		s.speedMultiplier = s.perf.MaxSpeed - y*(s.perf.MaxSpeed-p.MinSpeedMultiplier)
	}

	s.speedMultiplier = clamp(s.speedMultiplier, p.MinSpeedMultiplier, s.perf.MaxSpeed)

	diff := s.targetLateral - s.carLateral
	if diff > p.LateralEpsilon || diff < -p.LateralEpsilon {
		step := ease
		if diff < 0 {
			step = -ease
		}
		// never overshoot the target
		if (diff > 0 && step > diff) || (diff < 0 && step < diff) {
			step = diff
		}
		s.carLateral = clamp(s.carLateral+step, -1, 1)
	}
}
