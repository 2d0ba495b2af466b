// Package challenge derives the daily challenge from the calendar date. Every
// client computes the same challenge for the same day without asking a server.
package challenge

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the date string the challenge seed is hashed from
const DateLayout = "Mon Jan 02 2006"

type Type string

const (
	TypeScore    Type = "score"
	TypeDistance Type = "distance"
	TypeSurvival Type = "survival"
	TypeSpeed    Type = "speed"
	TypeKeys     Type = "keys"
	TypeBonus    Type = "bonus"
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// tiers is the number of target/reward steps per family
const tiers = 7

type family struct {
	kind    Type
	unit    string
	targets [tiers]int
	rewards [tiers]int
	titles  [tiers]string
}

// families are indexed by seed modulo len(families); keep the order stable,
// changing it changes every past and future challenge
var families = [...]family{
	{
		kind:    TypeScore,
		unit:    "points",
		targets: [tiers]int{500, 1000, 1500, 2500, 4000, 6000, 8000},
		rewards: [tiers]int{10, 20, 30, 50, 75, 100, 150},
		titles:  [tiers]string{"Score Rookie", "Score Hunter", "Point Collector", "Score Master", "High Roller", "Score Legend", "Score God"},
	},
	{
		kind:    TypeDistance,
		unit:    "m",
		targets: [tiers]int{1000, 2000, 3500, 5000, 7500, 10000, 15000},
		rewards: [tiers]int{10, 20, 30, 45, 70, 100, 150},
		titles:  [tiers]string{"Sunday Drive", "Road Tripper", "Long Hauler", "Mile Muncher", "Highway Star", "Marathon Driver", "Endless Road"},
	},
	{
		kind:    TypeSurvival,
		unit:    "s",
		targets: [tiers]int{30, 60, 90, 120, 180, 240, 300},
		rewards: [tiers]int{10, 20, 35, 50, 75, 110, 150},
		titles:  [tiers]string{"Stay Alive", "Hang On", "Survivor", "Iron Nerves", "Untouchable", "Immortal", "Last One Standing"},
	},
	{
		kind:    TypeSpeed,
		unit:    "km/h",
		targets: [tiers]int{100, 120, 140, 160, 180, 200, 220},
		rewards: [tiers]int{10, 15, 25, 40, 60, 90, 130},
		titles:  [tiers]string{"Warm Up", "Pick Up The Pace", "Speed Demon", "Redline", "Sound Barrier", "Light Speed", "Warp Drive"},
	},
	{
		kind:    TypeKeys,
		unit:    "keys",
		targets: [tiers]int{1, 2, 3, 4, 5, 6, 8},
		rewards: [tiers]int{15, 25, 40, 55, 75, 100, 150},
		titles:  [tiers]string{"First Key", "Key Finder", "Locksmith", "Key Keeper", "Key Master", "Golden Hoard", "Vault Breaker"},
	},
	{
		kind:    TypeBonus,
		unit:    "boxes",
		targets: [tiers]int{3, 5, 8, 12, 16, 20, 25},
		rewards: [tiers]int{10, 20, 30, 45, 65, 90, 120},
		titles:  [tiers]string{"Box Opener", "Collector", "Treasure Seeker", "Bonus Hunter", "Loot Goblin", "Box Hoarder", "Bonus Baron"},
	},
}

var tierDifficulty = [tiers]Difficulty{Easy, Easy, Medium, Medium, Medium, Hard, Hard}

// DailyChallenge is the objective of one calendar day
type DailyChallenge struct {
	Date       string     `json:"date"`
	Type       Type       `json:"type"`
	Title      string     `json:"title"`
	Target     int        `json:"target"`
	Reward     int        `json:"reward"`
	Difficulty Difficulty `json:"difficulty"`
	Unit       string     `json:"unit"`
}

// DateKey formats t the way challenge seeds and completion flags are keyed
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ForDay returns the challenge of the local calendar day of t
func ForDay(t time.Time) DailyChallenge {
	return Generate(DateKey(t))
}

// Generate maps a date string to its challenge. It is a pure function.
func Generate(date string) DailyChallenge {
	seed := Seed(date)
	f := families[seed%int64(len(families))]
	tier := (seed >> 3) % tiers

	return DailyChallenge{
		Date:       date,
		Type:       f.kind,
		Title:      f.titles[tier],
		Target:     f.targets[tier],
		Reward:     f.rewards[tier],
		Difficulty: tierDifficulty[tier],
		Unit:       f.unit,
	}
}

// Seed hashes the date string with a 32 bit rolling hash (h*31 + c) and
// returns its absolute value
func Seed(date string) int64 {
	var h int32
	for _, r := range date {
		h = (h << 5) - h + int32(r)
	}
	seed := int64(h)
	if seed < 0 {
		seed = -seed
	}
	return seed
}

// RewardBaseUnits converts a whole token reward into 18-decimal base units
func RewardBaseUnits(reward int) decimal.Decimal {
	return decimal.NewFromInt(int64(reward)).Shift(18)
}
