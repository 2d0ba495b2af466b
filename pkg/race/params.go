package race

import "time"

// Params holds the tuning of a race session
type Params struct {
	// motion
	InitialSpeedMultiplier float64
	MinSpeedMultiplier     float64
	BaseAccelerationRate   float64 // speed multiplier change per frame, scaled by acceleration bonus
	BaseMoveSpeed          float64 // lateral change per frame for key steering, scaled by handling bonus
	BaseEaseSpeed          float64 // lateral easing per frame towards the target, scaled by handling bonus
	LateralEpsilon         float64

	// world
	BaseGameSpeed      float64
	GameSpeedRamp      float64 // added to the base game speed every frame
	MotionScale        float64
	DistancePerSecond  float64
	DisplaySpeedFactor float64 // km/h per unit of speed multiplier x speed bonus
	RecycleMargin      float64 // entities further than this behind the car are recycled

	// spawning
	ObstacleSpawnRate     float64
	ObstacleSpawnRateStep float64
	ObstacleSpawnRateMax  float64
	BonusThreshold        int
	BonusThresholdStep    int
	FirstKeyAt            time.Duration
	KeySpawnInterval      time.Duration
	KeySpawnIntervalStep  time.Duration
	ObstacleAhead         [2]float64 // min, max distance ahead of the car
	BonusAhead            [2]float64
	KeyAhead              [2]float64

	// collisions
	ObstacleHitZ float64
	ObstacleHitX float64
	PickupHitZ   float64
	PickupHitX   float64

	// scoring and power-ups
	AvoidScore         int
	BonusScore         int
	InvisibilityWindow time.Duration
	NoticeDuration     time.Duration

	// presentation
	SnapshotInterval int // frames between periodic snapshots
	MarkingCount     int
	MarkingSpacing   float64
}

// DefaultParams returns the standard tuning
func DefaultParams() Params {
	return Params{
		InitialSpeedMultiplier: 1.0,
		MinSpeedMultiplier:     0.2,
		BaseAccelerationRate:   0.02,
		BaseMoveSpeed:          0.05,
		BaseEaseSpeed:          0.1,
		LateralEpsilon:         0.01,

		BaseGameSpeed:      0.5,
		GameSpeedRamp:      0.0001,
		MotionScale:        1.0,
		DistancePerSecond:  25,
		DisplaySpeedFactor: 50,
		RecycleMargin:      10,

		ObstacleSpawnRate:     0.02,
		ObstacleSpawnRateStep: 0.00001,
		ObstacleSpawnRateMax:  0.05,
		BonusThreshold:        100,
		BonusThresholdStep:    150,
		FirstKeyAt:            20 * time.Second,
		KeySpawnInterval:      30 * time.Second,
		KeySpawnIntervalStep:  5 * time.Second,
		ObstacleAhead:         [2]float64{200, 600},
		BonusAhead:            [2]float64{100, 300},
		KeyAhead:              [2]float64{200, 600},

		ObstacleHitZ: 2.0,
		ObstacleHitX: 1.5,
		PickupHitZ:   3.0,
		PickupHitX:   2.0,

		AvoidScore:         5,
		BonusScore:         30,
		InvisibilityWindow: 15 * time.Second,
		NoticeDuration:     1500 * time.Millisecond,

		SnapshotInterval: 6,
		MarkingCount:     30,
		MarkingSpacing:   10,
	}
}
