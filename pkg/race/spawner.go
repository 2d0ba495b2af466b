package race

import (
	"github.com/golangdaddy/roadchain/log"
	"github.com/golangdaddy/roadchain/pkg/road"
)

// SpawnObstacle queues an obstacle 200-600 units ahead of refZ
func (s *Session) SpawnObstacle(refZ float64) *Entity {
	e := s.spawn1(KindObstacle, refZ, s.params.ObstacleAhead)
	if e != nil {
		e.Variant = s.rng.Intn(ObstacleVariants)
	}
	return e
}

// SpawnBonusBox queues a bonus box 100-300 units ahead of refZ
func (s *Session) SpawnBonusBox(refZ float64) *Entity {
	return s.spawn1(KindBonusBox, refZ, s.params.BonusAhead)
}

// SpawnGoldenKey queues a golden key 200-600 units ahead of refZ
func (s *Session) SpawnGoldenKey(refZ float64) *Entity {
	return s.spawn1(KindGoldenKey, refZ, s.params.KeyAhead)
}

// spawn1 creates one entity on a random lane. New entities wait in pending
// until the collision sweeps of the current frame are done.
func (s *Session) spawn1(kind Kind, refZ float64, ahead [2]float64) *Entity {
	if s.tornDown {
		return nil
	}
	s.nextID++
	e := &Entity{
		ID:   s.nextID,
		Kind: kind,
		X:    road.RandomLane(s.rng),
		Z:    refZ - (ahead[0] + s.rng.Float64()*(ahead[1]-ahead[0])),
	}
	s.pending = append(s.pending, e)
	return e
}

// attachPending moves queued entities into the active lists and onto the surface
func (s *Session) attachPending() {
	for _, e := range s.pending {
		switch e.Kind {
		case KindObstacle:
			s.obstacles = append(s.obstacles, e)
		case KindBonusBox:
			s.bonusBoxes = append(s.bonusBoxes, e)
		case KindGoldenKey:
			s.keys = append(s.keys, e)
		}
		if err := s.surface.AddEntity(*e); err != nil {
			s.logger.Warn("could not add entity to surface",
				log.Int64("entity", e.ID), log.String("kind", e.Kind.String()), log.ErrorField(err))
		}
	}
	s.pending = s.pending[:0]
}
