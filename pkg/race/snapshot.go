package race

import "time"

// Snapshot is an immutable copy of the session for the presentation layer
type Snapshot struct {
	SessionID           string
	Frame               uint64
	Status              Status
	Score               int
	Distance            int
	ObstaclesAvoided    int
	BonusBoxesCollected int
	KeysCollected       int
	SpeedMultiplier     float64
	DisplaySpeed        int
	TopSpeed            int
	CarLateral          float64
	TargetLateral       float64
	CarZ                float64
	Invisibility        Invisibility
	Spawn               SpawnState
	Entities            []Entity
	Markings            []float64
	Notice              string
	Elapsed             time.Duration
}

// Snapshot copies the current state
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID:           s.id,
		Frame:               s.frame,
		Status:              s.status,
		Score:               s.score,
		Distance:            s.distance,
		ObstaclesAvoided:    s.obstaclesAvoided,
		BonusBoxesCollected: s.bonusBoxesCollected,
		KeysCollected:       s.keysCollected,
		SpeedMultiplier:     s.speedMultiplier,
		DisplaySpeed:        s.DisplaySpeed(),
		TopSpeed:            s.topSpeed,
		CarLateral:          s.carLateral,
		TargetLateral:       s.targetLateral,
		CarZ:                s.carZ,
		Invisibility:        s.invisibility,
		Spawn:               s.spawn,
		Entities:            make([]Entity, 0, len(s.obstacles)+len(s.bonusBoxes)+len(s.keys)),
		Elapsed:             s.lastFrameAt.Sub(s.startedAt),
	}
	for _, list := range [][]*Entity{s.obstacles, s.bonusBoxes, s.keys} {
		for _, e := range list {
			snap.Entities = append(snap.Entities, *e)
		}
	}
	if s.markings != nil {
		for _, m := range s.markings.All() {
			snap.Markings = append(snap.Markings, m.Z)
		}
	}
	if s.notice != "" && s.lastFrameAt.Before(s.noticeUntil) {
		snap.Notice = s.notice
	}
	return snap
}

// Count returns the number of active entities of a kind
func (snap Snapshot) Count(kind Kind) int {
	n := 0
	for _, e := range snap.Entities {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// changed reports whether the player-visible state differs in a way that
// should reach subscribers before the next periodic snapshot
func (snap Snapshot) changed(prev Snapshot) bool {
	return snap.Status != prev.Status ||
		snap.Score != prev.Score ||
		snap.ObstaclesAvoided != prev.ObstaclesAvoided ||
		snap.BonusBoxesCollected != prev.BonusBoxesCollected ||
		snap.KeysCollected != prev.KeysCollected ||
		snap.Invisibility.Active != prev.Invisibility.Active ||
		snap.Notice != prev.Notice
}

// publish hands the snapshot to subscribers every SnapshotInterval frames or
// when something meaningful changed
func (s *Session) publish(snap Snapshot, force bool) {
	interval := uint64(s.params.SnapshotInterval)
	periodic := interval > 0 && snap.Frame%interval == 0
	if !force && !periodic && !snap.changed(s.published) {
		return
	}
	s.published = snap
	for _, fn := range s.subscribers {
		fn(snap)
	}
}
