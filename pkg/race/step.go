package race

import (
	"fmt"
	"math"
	"time"

	"github.com/golangdaddy/roadchain/log"
	"github.com/golangdaddy/roadchain/pkg/road"
)

// keySpin is the cosmetic rotation applied to golden keys per frame
const keySpin = 0.05

// Step advances the session by one frame. It reports false and does nothing
// when the session is not running, which also covers a frame callback that
// fires after teardown.
func (s *Session) Step(in Input) bool {
	if s.tornDown || s.status != StatusRunning {
		return false
	}
	p := s.params
	now := s.now()
	dt := now.Sub(s.lastFrameAt)
	s.lastFrameAt = now
	s.frame++

	// 1. controls
	s.applyInput(in)

	// 2. forward motion with the global difficulty ramp
	s.baseGameSpeed += p.GameSpeedRamp
	s.carZ -= s.currentGameSpeed() * p.MotionScale
	if ds := s.DisplaySpeed(); ds > s.topSpeed {
		s.topSpeed = ds
	}

	// 3. distance follows the wall clock, not the integrated speed
	elapsed := now.Sub(s.startedAt)
	s.distance = int(math.Floor(elapsed.Seconds() * p.DistancePerSecond))

	// 4. road markings
	s.markings.Recycle(s.carZ)

	// 5. invisibility countdown
	s.tickInvisibility(dt)

	// 6. obstacles spawn per frame with a ratcheting probability
	s.spawn.ObstacleSpawnRate = math.Min(s.spawn.ObstacleSpawnRate+p.ObstacleSpawnRateStep, p.ObstacleSpawnRateMax)
	if s.rng.Float64() < s.spawn.ObstacleSpawnRate {
		s.SpawnObstacle(s.carZ)
	}

	// 7. bonus boxes spawn on score thresholds
	if s.score >= s.spawn.NextBonusThreshold {
		s.SpawnBonusBox(s.carZ)
		s.spawn.NextBonusThreshold += p.BonusThresholdStep
	}

	// 8. golden keys spawn on elapsed time
	if elapsed.Seconds() >= s.spawn.NextKeySpawnTime {
		s.SpawnGoldenKey(s.carZ)
		s.spawn.NextKeySpawnTime += s.spawn.KeySpawnInterval
		s.spawn.KeySpawnInterval += p.KeySpawnIntervalStep.Seconds()
	}

	// 9. cosmetic key spin
	for _, k := range s.keys {
		k.Rotation = math.Mod(k.Rotation+keySpin, 2*math.Pi)
	}

	// 10-12. sweeps
	crashed := s.sweepObstacles()
	if !crashed {
		s.sweepBonusBoxes(now)
		s.sweepKeys()
	}

	// spawned entities join only after the sweeps
	s.attachPending()

	// 13. render
	if crashed {
		s.end(EndCollision)
		s.present(s.Snapshot())
		return true
	}
	snap := s.Snapshot()
	s.present(snap)
	s.publish(snap, false)
	return true
}

// currentGameSpeed is the forward motion per frame
func (s *Session) currentGameSpeed() float64 {
	return s.baseGameSpeed * s.speedMultiplier * s.perf.SpeedBonus
}

// DisplaySpeed is the speed shown to the player in km/h
func (s *Session) DisplaySpeed() int {
	return int(s.speedMultiplier * s.perf.SpeedBonus * s.params.DisplaySpeedFactor)
}

func (s *Session) tickInvisibility(dt time.Duration) {
	if !s.invisibility.Active {
		return
	}
	s.invisibility.RemainingMs -= int(dt.Milliseconds())
	if s.invisibility.RemainingMs <= 0 {
		s.invisibility = Invisibility{}
		s.logger.Debug("invisibility expired", log.String("session", s.id))
	}
}

// activateInvisibility starts a fresh window; a running window is reset, not extended
func (s *Session) activateInvisibility() {
	s.invisibility = Invisibility{
		Active:      true,
		RemainingMs: int(s.params.InvisibilityWindow.Milliseconds()),
	}
}

// sweepObstacles recycles passed obstacles, scoring them as avoided, and
// reports a collision unless the car is invisible
func (s *Session) sweepObstacles() bool {
	p := s.params
	carX := road.WorldX(s.carLateral)
	crashed := false
	kept := s.obstacles[:0]
	for _, o := range s.obstacles {
		if o.behind(s.carZ, p.RecycleMargin) {
			s.score += p.AvoidScore
			s.obstaclesAvoided++
			s.detach(o)
			continue
		}
		if !s.invisibility.Active && o.within(carX, s.carZ, p.ObstacleHitX, p.ObstacleHitZ) {
			crashed = true
		}
		kept = append(kept, o)
	}
	s.obstacles = kept
	return crashed
}

func (s *Session) sweepBonusBoxes(now time.Time) {
	p := s.params
	carX := road.WorldX(s.carLateral)
	kept := s.bonusBoxes[:0]
	for _, b := range s.bonusBoxes {
		switch {
		case b.behind(s.carZ, p.RecycleMargin):
			s.detach(b)
		case b.within(carX, s.carZ, p.PickupHitX, p.PickupHitZ):
			b.Collected = true
			s.score += p.BonusScore
			s.bonusBoxesCollected++
			s.notify(fmt.Sprintf("+%d BONUS", p.BonusScore), now)
			s.detach(b)
		default:
			kept = append(kept, b)
		}
	}
	s.bonusBoxes = kept
}

func (s *Session) sweepKeys() {
	p := s.params
	carX := road.WorldX(s.carLateral)
	kept := s.keys[:0]
	for _, k := range s.keys {
		switch {
		case k.behind(s.carZ, p.RecycleMargin):
			s.detach(k)
		case k.within(carX, s.carZ, p.PickupHitX, p.PickupHitZ):
			k.Collected = true
			s.keysCollected++
			s.activateInvisibility()
			s.notify("INVISIBLE", s.lastFrameAt)
			s.detach(k)
		default:
			kept = append(kept, k)
		}
	}
	s.keys = kept
}

func (s *Session) notify(text string, now time.Time) {
	s.notice = text
	s.noticeUntil = now.Add(s.params.NoticeDuration)
}

func (s *Session) present(snap Snapshot) {
	if err := s.surface.Present(snap); err != nil {
		s.logger.Warn("present failed", log.String("session", s.id), log.ErrorField(err))
	}
}
