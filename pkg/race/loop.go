package race

import (
	"context"
	"time"
)

// FrameInterval is one display refresh at 60 Hz
const FrameInterval = time.Second / 60

// Run drives s without a renderer, one Step per tick, until the session leaves
// running or ctx is done. It returns the finished result when the session ended.
func Run(ctx context.Context, s *Session, input InputSource, interval time.Duration) (Result, error) {
	if interval <= 0 {
		interval = FrameInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if !s.Step(input.Poll()) {
			break
		}
		if s.Status() != StatusRunning {
			break
		}
		select {
		case <-ctx.Done():
			s.Stop()
			res, _ := s.Result()
			return res, ctx.Err()
		case <-ticker.C:
		}
	}
	res, ok := s.Result()
	if !ok {
		return Result{}, ErrNotRunning
	}
	return res, nil
}

// RunFrames steps s at most n times without waiting between frames and
// returns the number of frames executed, including the one that ended the
// race. It is used by simulations that advance the clock themselves.
func RunFrames(s *Session, input InputSource, n int) int {
	steps := 0
	for steps < n {
		if !s.Step(input.Poll()) {
			break
		}
		steps++
		if s.Status() != StatusRunning {
			break
		}
	}
	return steps
}
