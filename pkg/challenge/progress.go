package challenge

import "time"

// Stats is what a finished race contributes towards a challenge
type Stats struct {
	Score          int
	Distance       int
	SurvivalTime   time.Duration
	TopSpeed       int // peak display speed in km/h
	KeysCollected  int
	BonusCollected int
}

// Progress reports how far a race got towards the challenge target
type Progress struct {
	Current   int
	Target    int
	Percent   float64
	Completed bool
}

// Evaluate measures stats against the type specific target
func Evaluate(ch DailyChallenge, s Stats) Progress {
	var current int
	switch ch.Type {
	case TypeScore:
		current = s.Score
	case TypeDistance:
		current = s.Distance
	case TypeSurvival:
		current = int(s.SurvivalTime / time.Second)
	case TypeSpeed:
		current = s.TopSpeed
	case TypeKeys:
		current = s.KeysCollected
	case TypeBonus:
		current = s.BonusCollected
	}

	p := Progress{Current: current, Target: ch.Target}
	if ch.Target > 0 {
		p.Percent = float64(current) / float64(ch.Target) * 100
		if p.Percent > 100 {
			p.Percent = 100
		}
	}
	p.Completed = ch.Target > 0 && current >= ch.Target
	return p
}
