package car

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Tier is the balance class of a car, derived once from its name when the
// profile is loaded
type Tier int

const (
	TierUnknown Tier = iota
	TierStarter
	TierSport
	TierRacingBeast
	TierHybrid
)

func (t Tier) String() string {
	switch t {
	case TierStarter:
		return "starter"
	case TierSport:
		return "sport"
	case TierRacingBeast:
		return "racing-beast"
	case TierHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// tierKeywords is checked from the strongest tier down so that a name like
// "Hybrid Racing Gen" lands in the hybrid tier
var tierKeywords = []struct {
	tier     Tier
	keywords []string
}{
	{TierHybrid, []string{"hybrid", "gen"}},
	{TierRacingBeast, []string{"racing", "beast"}},
	{TierSport, []string{"sport"}},
	{TierStarter, []string{"starter"}},
}

// ClassifyTier maps a car name to its tier when the name contains one of the
// tier keywords anywhere, so "NextGen" is hybrid. Names without a keyword are
// TierUnknown and fall back to rarity when stats are derived.
func ClassifyTier(name string) Tier {
	lower := strings.ToLower(name)
	for _, tk := range tierKeywords {
		if lo.SomeBy(tk.keywords, func(k string) bool { return strings.Contains(lower, k) }) {
			return tk.tier
		}
	}
	return TierUnknown
}

// CarProfile is the read-only view of an NFT car as reported by the car registry
type CarProfile struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	Speed        int    `json:"speed"`        // 0-100
	Handling     int    `json:"handling"`     // 0-100
	Acceleration int    `json:"acceleration"` // 0-100
	Rarity       int    `json:"rarity"`       // 1-5
	IsStaked     bool   `json:"is_staked"`
	BirthTime    int64  `json:"birth_time"` // unix seconds
	Tier         Tier   `json:"tier"`
}

// NewCarProfile creates a profile and classifies its tier
func NewCarProfile(id uint64, name string, speed, handling, acceleration, rarity int) *CarProfile {
	return &CarProfile{
		ID:           id,
		Name:         name,
		Speed:        clampStat(speed),
		Handling:     clampStat(handling),
		Acceleration: clampStat(acceleration),
		Rarity:       rarity,
		BirthTime:    time.Now().Unix(),
		Tier:         ClassifyTier(name),
	}
}

func (c *CarProfile) String() string {
	return fmt.Sprintf("#%d %s (%s, rarity %d)", c.ID, c.Name, c.Tier, c.Rarity)
}

// Performance holds the session-scoped multipliers derived from a profile
type Performance struct {
	SpeedBonus        float64
	HandlingBonus     float64
	AccelerationBonus float64
	MaxSpeed          float64 // cap for the speed multiplier
}

// tierMaxSpeed is the speed cap for each named tier
var tierMaxSpeed = map[Tier]float64{
	TierStarter:     2.0,
	TierSport:       3.0,
	TierRacingBeast: 3.5,
	TierHybrid:      4.0,
}

// rarityMaxSpeed is the fallback cap, indexed by rarity 1-5
var rarityMaxSpeed = [...]float64{2.0, 2.0, 3.0, 3.5, 4.0}

// MaxSpeedForCar returns the speed multiplier cap. The tier wins over rarity.
func (c *CarProfile) MaxSpeedForCar() float64 {
	if max, ok := tierMaxSpeed[c.Tier]; ok {
		return max
	}
	r := c.Rarity
	if r < 1 {
		r = 1
	}
	if r > len(rarityMaxSpeed) {
		r = len(rarityMaxSpeed)
	}
	return rarityMaxSpeed[r-1]
}

// Performance computes the multipliers used for one race session
func (c *CarProfile) Performance() Performance {
	return Performance{
		SpeedBonus:        0.8 + 0.4*(float64(clampStat(c.Speed))/100),
		HandlingBonus:     0.7 + 0.6*(float64(clampStat(c.Handling))/100),
		AccelerationBonus: 0.8 + 0.4*(float64(clampStat(c.Acceleration))/100),
		MaxSpeed:          c.MaxSpeedForCar(),
	}
}

func clampStat(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
