package race

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golangdaddy/roadchain/pkg/models/car"
	"github.com/golangdaddy/roadchain/pkg/road"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingSurface struct {
	added    []Entity
	removed  []Entity
	presents int
}

func (r *recordingSurface) AddEntity(e Entity) error {
	r.added = append(r.added, e)
	return nil
}

func (r *recordingSurface) RemoveEntity(e Entity) error {
	r.removed = append(r.removed, e)
	return nil
}

func (r *recordingSurface) Present(Snapshot) error {
	r.presents++
	return nil
}

func beast() *car.CarProfile {
	return car.NewCarProfile(7, "Racing Beast", 90, 85, 88, 4)
}

// quietParams disables random obstacle spawns so a test controls every entity
func quietParams() Params {
	p := DefaultParams()
	p.ObstacleSpawnRate = 0
	p.ObstacleSpawnRateStep = 0
	return p
}

func newTestSession(t *testing.T, opts ...Option) (*Session, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	base := []Option{
		WithParams(quietParams()),
		WithRand(rand.New(rand.NewSource(1))),
		WithClock(clock.now),
	}
	s := NewSession(beast(), append(base, opts...)...)
	require.NoError(t, s.Start())
	return s, clock
}

// frame advances the clock by one 60 Hz frame and steps once
func frame(s *Session, clock *fakeClock, in Input) bool {
	clock.advance(16 * time.Millisecond)
	return s.Step(in)
}

func TestStart_Gates(t *testing.T) {
	s := NewSession(nil)
	assert.ErrorIs(t, s.Start(), ErrNoCar)

	staked := beast()
	staked.IsStaked = true
	s = NewSession(staked)
	assert.ErrorIs(t, s.Start(), ErrCarStaked)
	assert.Equal(t, StatusMenu, s.Status())

	s = NewSession(beast())
	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrAlreadyRunning)

	s.Teardown()
	assert.ErrorIs(t, s.Start(), ErrTornDown)
}

func TestStart_ResetsCounters(t *testing.T) {
	s, clock := newTestSession(t)
	s.score = 400
	s.obstacles = append(s.obstacles, &Entity{ID: 99, Kind: KindObstacle, Z: -300})
	s.spawn.NextBonusThreshold = 700
	s.Stop()

	clock.advance(time.Minute)
	require.NoError(t, s.Start())
	assert.Equal(t, 0, s.Score())
	assert.Empty(t, s.obstacles)
	assert.Equal(t, 100, s.spawn.NextBonusThreshold)
	assert.Equal(t, 20.0, s.spawn.NextKeySpawnTime)
	assert.Equal(t, 30.0, s.spawn.KeySpawnInterval)
	assert.Equal(t, clock.now(), s.startedAt)
	assert.Equal(t, 1.0, s.speedMultiplier)
}

func TestStep_AdvancesCar(t *testing.T) {
	s, clock := newTestSession(t)
	require.True(t, frame(s, clock, Input{}))

	// base 0.5 + ramp 0.0001, multiplier 1, speed bonus 1.16
	assert.InDelta(t, -0.580116, s.carZ, 1e-9)
	assert.InDelta(t, 0.5001, s.baseGameSpeed, 1e-12)
	assert.Equal(t, uint64(1), s.frame)
	assert.Equal(t, 58, s.topSpeed)
}

func TestStep_DistanceFollowsWallClock(t *testing.T) {
	s, clock := newTestSession(t)
	s.speedMultiplier = 0.2
	clock.advance(4 * time.Second)
	require.True(t, s.Step(Input{Brake: true}))
	assert.Equal(t, 100, s.distance)

	clock.advance(2*time.Second + 30*time.Millisecond)
	require.True(t, s.Step(Input{}))
	assert.Equal(t, 150, s.distance)
}

func TestStep_ObstaclesBehindAreAvoided(t *testing.T) {
	surface := &recordingSurface{}
	s, clock := newTestSession(t, WithSurface(surface))
	for i, z := range []float64{11, 12, 20} {
		s.obstacles = append(s.obstacles, &Entity{ID: int64(100 + i), Kind: KindObstacle, X: road.Lanes[i], Z: z})
	}
	ahead := &Entity{ID: 200, Kind: KindObstacle, X: road.Lanes[3], Z: -100}
	s.obstacles = append(s.obstacles, ahead)

	require.True(t, frame(s, clock, Input{}))
	assert.Equal(t, 3, s.obstaclesAvoided)
	assert.Equal(t, 15, s.Score())
	require.Len(t, s.obstacles, 1)
	assert.Equal(t, int64(200), s.obstacles[0].ID)
	assert.Len(t, surface.removed, 3)
	assert.Equal(t, StatusRunning, s.Status())
}

func TestStep_BonusBoxCollected(t *testing.T) {
	s, clock := newTestSession(t)
	s.bonusBoxes = append(s.bonusBoxes, &Entity{ID: 1, Kind: KindBonusBox, X: 0, Z: -0.5})

	require.True(t, frame(s, clock, Input{}))
	assert.Equal(t, 30, s.Score())
	assert.Equal(t, 1, s.bonusBoxesCollected)
	assert.Empty(t, s.bonusBoxes)
	assert.Equal(t, "+30 BONUS", s.Snapshot().Notice)

	clock.advance(2 * time.Second)
	require.True(t, s.Step(Input{}))
	assert.Empty(t, s.Snapshot().Notice)
}

func TestStep_PassedPickupsAreDroppedWithoutScore(t *testing.T) {
	s, clock := newTestSession(t)
	s.bonusBoxes = append(s.bonusBoxes, &Entity{ID: 1, Kind: KindBonusBox, Z: 15})
	s.keys = append(s.keys, &Entity{ID: 2, Kind: KindGoldenKey, Z: 15})

	require.True(t, frame(s, clock, Input{}))
	assert.Empty(t, s.bonusBoxes)
	assert.Empty(t, s.keys)
	assert.Equal(t, 0, s.Score())
	assert.Equal(t, 0, s.keysCollected)
}

func TestStep_Collision(t *testing.T) {
	tests := []struct {
		name      string
		invisible bool
		want      Status
	}{
		{name: "vulnerable", invisible: false, want: StatusGameOver},
		{name: "invisible", invisible: true, want: StatusRunning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var results []Result
			s, clock := newTestSession(t, WithEndHandler(func(r Result) { results = append(results, r) }))
			if tt.invisible {
				s.activateInvisibility()
			}
			s.obstacles = append(s.obstacles, &Entity{ID: 1, Kind: KindObstacle, X: 0, Z: -0.5})

			frame(s, clock, Input{})
			assert.Equal(t, tt.want, s.Status())
			if tt.want == StatusGameOver {
				require.Len(t, results, 1)
				assert.Equal(t, EndCollision, results[0].Reason)
			} else {
				assert.Empty(t, results)
			}
		})
	}
}

func TestEnd_Idempotent(t *testing.T) {
	calls := 0
	s, clock := newTestSession(t, WithEndHandler(func(Result) { calls++ }))
	s.obstacles = append(s.obstacles, &Entity{ID: 1, Kind: KindObstacle, X: 0, Z: -0.5})

	frame(s, clock, Input{})
	assert.False(t, s.Stop())
	assert.False(t, s.end(EndCollision))
	assert.False(t, frame(s, clock, Input{}))
	assert.Equal(t, 1, calls)

	res, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, EndCollision, res.Reason)
	assert.Equal(t, 16*time.Millisecond, res.LapTime)
}

func TestGoldenKey_ResetsInvisibilityWindow(t *testing.T) {
	s, clock := newTestSession(t)
	s.invisibility = Invisibility{Active: true, RemainingMs: 2000}
	s.keys = append(s.keys, &Entity{ID: 1, Kind: KindGoldenKey, X: 0, Z: -0.5})

	require.True(t, frame(s, clock, Input{}))
	assert.Equal(t, Invisibility{Active: true, RemainingMs: 15000}, s.invisibility)
	assert.Equal(t, 1, s.keysCollected)
	assert.Empty(t, s.keys)
}

func TestInvisibility_Expires(t *testing.T) {
	s, clock := newTestSession(t)
	s.invisibility = Invisibility{Active: true, RemainingMs: 20}

	require.True(t, frame(s, clock, Input{}))
	assert.Equal(t, Invisibility{Active: true, RemainingMs: 4}, s.invisibility)
	require.True(t, frame(s, clock, Input{}))
	assert.Equal(t, Invisibility{}, s.invisibility)
}

func TestSpawn_BonusOnScoreThreshold(t *testing.T) {
	surface := &recordingSurface{}
	s, clock := newTestSession(t, WithSurface(surface))
	s.score = 100

	require.True(t, frame(s, clock, Input{}))
	assert.Equal(t, 250, s.spawn.NextBonusThreshold)
	require.Len(t, s.bonusBoxes, 1)
	b := s.bonusBoxes[0]
	assert.LessOrEqual(t, b.Z, s.carZ-100)
	assert.GreaterOrEqual(t, b.Z, s.carZ-300)
	require.Len(t, surface.added, 1)
	assert.Equal(t, KindBonusBox, surface.added[0].Kind)

	require.True(t, frame(s, clock, Input{}))
	assert.Len(t, s.bonusBoxes, 1)
}

func TestSpawn_KeysOnElapsedTime(t *testing.T) {
	s, clock := newTestSession(t)

	clock.advance(19 * time.Second)
	require.True(t, s.Step(Input{}))
	assert.Empty(t, s.keys)

	clock.advance(time.Second)
	require.True(t, s.Step(Input{}))
	require.Len(t, s.keys, 1)
	assert.Equal(t, 50.0, s.spawn.NextKeySpawnTime)
	assert.Equal(t, 35.0, s.spawn.KeySpawnInterval)

	clock.advance(30 * time.Second)
	require.True(t, s.Step(Input{}))
	assert.Equal(t, 85.0, s.spawn.NextKeySpawnTime)
	assert.Equal(t, 40.0, s.spawn.KeySpawnInterval)
}

func TestSpawn_ObstacleRateRatchetsToCap(t *testing.T) {
	p := DefaultParams()
	p.ObstacleSpawnRateStep = 0.01
	s, clock := newTestSession(t, WithParams(p))
	for i := 0; i < 5; i++ {
		if !frame(s, clock, Input{}) || s.Status() != StatusRunning {
			break
		}
	}
	assert.Equal(t, 0.05, s.spawn.ObstacleSpawnRate)
}

func TestSpawn_Ranges(t *testing.T) {
	s, _ := newTestSession(t)
	tests := []struct {
		kind     Kind
		spawn    func(float64) *Entity
		min, max float64
	}{
		{KindObstacle, s.SpawnObstacle, 200, 600},
		{KindBonusBox, s.SpawnBonusBox, 100, 300},
		{KindGoldenKey, s.SpawnGoldenKey, 200, 600},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			for i := 0; i < 500; i++ {
				e := tt.spawn(-50)
				require.NotNil(t, e)
				assert.Equal(t, tt.kind, e.Kind)
				assert.Contains(t, road.Lanes[:], e.X)
				assert.LessOrEqual(t, e.Z, -50-tt.min)
				assert.GreaterOrEqual(t, e.Z, -50-tt.max)
				if tt.kind == KindObstacle {
					assert.GreaterOrEqual(t, e.Variant, 0)
					assert.Less(t, e.Variant, ObstacleVariants)
				}
			}
		})
	}
}

func TestSpawn_NotCollidingInSpawnFrame(t *testing.T) {
	s, clock := newTestSession(t)
	// an entity queued on the car itself must not be swept this frame
	s.pending = append(s.pending, &Entity{ID: 1, Kind: KindObstacle, X: 0, Z: -0.5})

	require.True(t, frame(s, clock, Input{}))
	assert.Equal(t, StatusRunning, s.Status())
	assert.Len(t, s.obstacles, 1)
}

func TestTeardown(t *testing.T) {
	surface := &recordingSurface{}
	s, clock := newTestSession(t, WithSurface(surface))
	s.obstacles = append(s.obstacles, &Entity{ID: 1, Kind: KindObstacle, Z: -300})
	s.keys = append(s.keys, &Entity{ID: 2, Kind: KindGoldenKey, Z: -300})

	s.Teardown()
	assert.True(t, s.TornDown())
	assert.Len(t, surface.removed, 2)
	assert.False(t, frame(s, clock, Input{}))
	assert.Nil(t, s.SpawnObstacle(0))
	assert.Nil(t, s.SpawnGoldenKey(0))
	assert.Zero(t, surface.presents)

	s.Teardown()
	assert.Len(t, surface.removed, 2)
}

func TestInput_Bounds(t *testing.T) {
	s, _ := newTestSession(t)
	max := s.Performance().MaxSpeed

	for i := 0; i < 500; i++ {
		s.applyInput(Input{Accelerate: true, Right: true})
	}
	assert.Equal(t, max, s.speedMultiplier)
	assert.Equal(t, 1.0, s.carLateral)

	for i := 0; i < 500; i++ {
		s.applyInput(Input{Brake: true, Left: true})
	}
	assert.Equal(t, 0.2, s.speedMultiplier)
	assert.Equal(t, -1.0, s.carLateral)
}

func TestInput_PointerEasesWithoutOvershoot(t *testing.T) {
	s, _ := newTestSession(t)
	ease := s.params.BaseEaseSpeed * s.perf.HandlingBonus

	s.applyInput(Input{Pointer: &Pointer{X: 0.6, Y: 0}})
	assert.InDelta(t, 0.2, s.targetLateral, 1e-9)
	assert.InDelta(t, ease, s.carLateral, 1e-9)
	assert.Equal(t, s.perf.MaxSpeed, s.speedMultiplier)

	s.applyInput(Input{Pointer: &Pointer{X: 0.6, Y: 1}})
	assert.InDelta(t, 0.2, s.carLateral, 1e-9)
	assert.InDelta(t, 0.2, s.speedMultiplier, 1e-9)

	s.applyInput(Input{Pointer: &Pointer{X: 0.6, Y: 0.5}})
	assert.InDelta(t, 0.2, s.carLateral, 1e-9)
	assert.InDelta(t, (s.perf.MaxSpeed+0.2)/2, s.speedMultiplier, 1e-9)
}

func TestInput_KeysOverridePointerTarget(t *testing.T) {
	s, _ := newTestSession(t)
	s.targetLateral = 1
	s.applyInput(Input{Left: true})
	move := s.params.BaseMoveSpeed * s.perf.HandlingBonus
	assert.InDelta(t, -move, s.carLateral, 1e-9)
	assert.Equal(t, s.carLateral, s.targetLateral)
}

func TestStep_InvariantsOverRandomPlay(t *testing.T) {
	s, clock := newTestSession(t, WithParams(DefaultParams()), WithRand(rand.New(rand.NewSource(42))))
	inputs := rand.New(rand.NewSource(7))
	max := s.Performance().MaxSpeed
	last := 0

	for i := 0; i < 20000 && s.Status() == StatusRunning; i++ {
		in := Input{
			Accelerate: inputs.Intn(3) == 0,
			Brake:      inputs.Intn(4) == 0,
			Left:       inputs.Intn(5) == 0,
			Right:      inputs.Intn(5) == 0,
		}
		if inputs.Intn(10) == 0 {
			in.Pointer = &Pointer{X: inputs.Float64(), Y: inputs.Float64()}
		}
		frame(s, clock, in)

		require.GreaterOrEqual(t, s.speedMultiplier, 0.2)
		require.LessOrEqual(t, s.speedMultiplier, max)
		require.GreaterOrEqual(t, s.carLateral, -1.0)
		require.LessOrEqual(t, s.carLateral, 1.0)
		require.GreaterOrEqual(t, s.Score(), last)
		last = s.Score()
	}
}

func TestSnapshot_PublishedPeriodicallyAndOnChange(t *testing.T) {
	var frames []uint64
	s, clock := newTestSession(t)
	s.Subscribe(func(snap Snapshot) { frames = append(frames, snap.Frame) })

	for i := 0; i < 12; i++ {
		frame(s, clock, Input{})
	}
	assert.Equal(t, []uint64{1, 6, 12}, frames)

	s.bonusBoxes = append(s.bonusBoxes, &Entity{ID: 1, Kind: KindBonusBox, X: 0, Z: s.carZ - 0.5})
	frame(s, clock, Input{})
	assert.Equal(t, uint64(13), frames[len(frames)-1])

	s.Stop()
	assert.Equal(t, StatusGameOver, s.published.Status)
}

func TestSnapshot_IsACopy(t *testing.T) {
	s, _ := newTestSession(t)
	e := &Entity{ID: 1, Kind: KindObstacle, Z: -300}
	s.obstacles = append(s.obstacles, e)

	snap := s.Snapshot()
	e.Z = -10
	require.Len(t, snap.Entities, 1)
	assert.Equal(t, -300.0, snap.Entities[0].Z)
	assert.Equal(t, 1, snap.Count(KindObstacle))
	assert.Len(t, snap.Markings, road.DefaultMarkingCount)
}

func TestAutopilot_AvoidsBlockedLane(t *testing.T) {
	s, _ := newTestSession(t)
	s.obstacles = append(s.obstacles, &Entity{ID: 1, Kind: KindObstacle, X: -1.5, Z: -20})

	in := NewAutopilot(s, 1.5).Poll()
	assert.True(t, in.Right)
	assert.False(t, in.Left)
	assert.True(t, in.Accelerate)
}

func TestRunFrames_StopsAtGameOver(t *testing.T) {
	s, _ := newTestSession(t)
	s.obstacles = append(s.obstacles, &Entity{ID: 1, Kind: KindObstacle, X: 0, Z: -0.5})

	n := RunFrames(s, NewAutopilot(s, 1), 100)
	assert.Equal(t, 1, n, "the crashing frame is counted")
	assert.Equal(t, StatusGameOver, s.Status())

	assert.Zero(t, RunFrames(s, NewAutopilot(s, 1), 100), "nothing runs after game over")
}

func TestRunFrames_CountsEveryFrame(t *testing.T) {
	s, _ := newTestSession(t)

	n := RunFrames(s, NewAutopilot(s, 1), 25)
	assert.Equal(t, 25, n)
	assert.Equal(t, StatusRunning, s.Status())
}

func TestRun_CancelledContextStopsSession(t *testing.T) {
	s := NewSession(beast(), WithParams(quietParams()))
	require.NoError(t, s.Start())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, s, NewAutopilot(s, 1), time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, EndManual, res.Reason)
	assert.Equal(t, StatusGameOver, s.Status())
}

func TestRun_NotStarted(t *testing.T) {
	s := NewSession(beast())
	_, err := Run(context.Background(), s, NewAutopilot(s, 1), time.Millisecond)
	assert.ErrorIs(t, err, ErrNotRunning)
}
