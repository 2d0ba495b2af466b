package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golangdaddy/roadchain/pkg/chain"
	"github.com/golangdaddy/roadchain/pkg/chain/devnet"
	"github.com/golangdaddy/roadchain/pkg/challenge"
	"github.com/golangdaddy/roadchain/pkg/models"
	"github.com/golangdaddy/roadchain/pkg/race"
	"github.com/golangdaddy/roadchain/pkg/store"
	"github.com/golangdaddy/roadchain/pkg/submission"
)

const player = "0x00000000000000000000000000000000000000bb"

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingNavigator struct {
	completed   []string
	tournaments int
	menus       int
}

func (n *recordingNavigator) OnTournamentCompleted(id string) { n.completed = append(n.completed, id) }
func (n *recordingNavigator) OnNavigateToTournaments()        { n.tournaments++ }
func (n *recordingNavigator) OnNavigateToMenu()               { n.menus++ }

type fixture struct {
	ctrl  *Controller
	clock *fakeClock
	chain *devnet.Chain
	store *store.SQLiteStore
	nav   *recordingNavigator
	overs []GameOver
}

// quietParams keeps the road empty so runs end only when a test says so
func quietParams() race.Params {
	p := race.DefaultParams()
	p.ObstacleSpawnRate = 0
	p.ObstacleSpawnRateStep = 0
	return p
}

// crashParams puts an obstacle on every frame close enough to hit in the next
func crashParams() race.Params {
	p := race.DefaultParams()
	p.ObstacleSpawnRate = 1
	p.ObstacleSpawnRateMax = 1
	p.ObstacleAhead = [2]float64{0, 0}
	p.ObstacleHitX = 10
	return p
}

func newFixture(t *testing.T, autoSubmit bool, params race.Params) *fixture {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	f := &fixture{
		clock: &fakeClock{t: time.Date(2024, 1, 2, 18, 0, 0, 0, time.UTC)},
		chain: devnet.New(player),
		store: st,
		nav:   &recordingNavigator{},
	}
	f.chain.Mint(player, devnet.DefaultFleet()...)
	cars, err := f.chain.ListOwnedCars(context.Background(), player)
	require.NoError(t, err)
	garage := models.NewGarage(player)
	garage.Load(cars)
	_, idx := garage.FindCarByID(3)
	require.NoError(t, garage.SetActiveCar(idx))

	f.ctrl = NewController(f.chain, garage, st, f.chain,
		WithClock(f.clock.now),
		WithNavigator(f.nav),
		WithAutoSubmit(autoSubmit),
		WithSessionOptions(race.WithParams(params)),
		WithGameOverHandler(func(g GameOver) { f.overs = append(f.overs, g) }),
	)
	return f
}

// drive steps the session n frames, advancing the clock by dt before each
func (f *fixture) drive(s *race.Session, n int, dt time.Duration, in race.Input) {
	for i := 0; i < n && s.Status() == race.StatusRunning; i++ {
		f.clock.advance(dt)
		s.Step(in)
	}
}

func (f *fixture) waitSubmission(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.ctrl.Bridge().Wait(ctx))
}

func (f *fixture) history(t *testing.T) *models.History {
	t.Helper()
	h, err := f.store.History(context.Background())
	require.NoError(t, err)
	return h
}

func TestStart_Gates(t *testing.T) {
	f := newFixture(t, false, quietParams())

	f.chain.Connect(false)
	_, err := f.ctrl.Start(StartOptions{})
	assert.ErrorIs(t, err, ErrWalletNotConnected)
	f.chain.Connect(true)

	f.ctrl.Garage().GetActiveCar().IsStaked = true
	_, err = f.ctrl.Start(StartOptions{})
	assert.ErrorIs(t, err, ErrCarStaked)
	f.ctrl.Garage().GetActiveCar().IsStaked = false

	f.ctrl.Garage().ActiveCar = -1
	_, err = f.ctrl.Start(StartOptions{})
	assert.ErrorIs(t, err, ErrNoCarSelected)
	assert.Equal(t, StateMenu, f.ctrl.State())
	assert.Nil(t, f.ctrl.Session())

	_, idx := f.ctrl.Garage().FindCarByID(3)
	f.ctrl.Garage().ActiveCar = idx
	s, err := f.ctrl.Start(StartOptions{})
	require.NoError(t, err)
	assert.Equal(t, race.StatusRunning, s.Status())
	assert.Equal(t, StateRunning, f.ctrl.State())

	_, err = f.ctrl.Start(StartOptions{})
	assert.ErrorIs(t, err, ErrNotInMenu)
}

func TestStart_ChallengeAlreadyCompleted(t *testing.T) {
	f := newFixture(t, false, quietParams())
	require.NoError(t, f.store.SetCompletedChallengeDate(context.Background(), challenge.DateKey(f.clock.now())))

	_, err := f.ctrl.Start(StartOptions{DailyChallenge: true})
	assert.ErrorIs(t, err, ErrChallengeCompleted)
	assert.Equal(t, StateMenu, f.ctrl.State())

	_, err = f.ctrl.Start(StartOptions{})
	assert.NoError(t, err)
}

func TestGameOver_Idempotent(t *testing.T) {
	f := newFixture(t, true, quietParams())
	s, err := f.ctrl.Start(StartOptions{})
	require.NoError(t, err)
	f.drive(s, 60, 250*time.Millisecond, race.Input{})

	assert.True(t, f.ctrl.Stop())
	assert.False(t, f.ctrl.Stop())
	res, ok := s.Result()
	require.True(t, ok)
	f.ctrl.settle(res)
	f.waitSubmission(t)

	assert.Equal(t, StateGameOver, f.ctrl.State())
	assert.Equal(t, 1, f.history(t).Len())
	assert.Len(t, f.overs, 1)
	assert.Equal(t, 1, f.ctrl.Bridge().Attempts())
	assert.Len(t, f.chain.Submissions(), 1)

	assert.ErrorIs(t, f.ctrl.Submit(), submission.ErrAlreadySubmitted)
	assert.Len(t, f.chain.Submissions(), 1)
}

func TestGameOver_ShortRunIsNotSubmitted(t *testing.T) {
	f := newFixture(t, true, crashParams())
	s, err := f.ctrl.Start(StartOptions{})
	require.NoError(t, err)

	f.drive(s, 10, 1500*time.Millisecond, race.Input{})
	require.Equal(t, race.StatusGameOver, s.Status())

	over, ok := f.ctrl.GameOver()
	require.True(t, ok)
	assert.Equal(t, race.EndCollision, over.Result.Reason)
	assert.Equal(t, 3*time.Second, over.Result.LapTime)
	assert.ErrorIs(t, over.SubmitSkipped, submission.ErrRunTooShort)
	assert.Zero(t, f.ctrl.Bridge().Attempts())
	assert.Empty(t, f.chain.Submissions())
	assert.Equal(t, 1, f.history(t).Len())

	assert.ErrorIs(t, f.ctrl.Submit(), submission.ErrRunTooShort)
	assert.Empty(t, f.chain.Submissions())
}

func TestGameOver_HighScore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, quietParams())
	require.NoError(t, f.store.SetHighScore(ctx, 1000))

	s, err := f.ctrl.Start(StartOptions{})
	require.NoError(t, err)
	f.drive(s, 10, 100*time.Millisecond, race.Input{})
	f.ctrl.Stop()

	over, _ := f.ctrl.GameOver()
	assert.False(t, over.IsNewHighScore)
	assert.Equal(t, 1000, over.HighScore)
	assert.ErrorIs(t, over.SubmitSkipped, submission.ErrAutoSubmitDisabled)

	require.NoError(t, f.store.SetHighScore(ctx, -1))
	require.NoError(t, f.ctrl.ReturnToMenu())
	s, err = f.ctrl.Start(StartOptions{})
	require.NoError(t, err)
	f.drive(s, 10, 100*time.Millisecond, race.Input{})
	f.ctrl.Stop()

	over, _ = f.ctrl.GameOver()
	assert.True(t, over.IsNewHighScore)
	best, err := f.store.HighScore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, best)

	h := f.history(t)
	require.Equal(t, 2, h.Len())
	assert.True(t, h.Entries[0].IsNewHighScore)
	assert.Equal(t, "Racing Beast", h.Entries[0].CarUsed)
}

func TestDailyChallenge_CompletedAndAutoReturn(t *testing.T) {
	f := newFixture(t, true, quietParams())
	today := f.ctrl.Today()
	require.Equal(t, challenge.TypeSpeed, today.Type)
	require.Equal(t, 120, today.Target)

	s, err := f.ctrl.Start(StartOptions{DailyChallenge: true})
	require.NoError(t, err)
	f.drive(s, 60, 250*time.Millisecond, race.Input{Accelerate: true})
	f.ctrl.Stop()

	over, ok := f.ctrl.GameOver()
	require.True(t, ok)
	require.NotNil(t, over.Challenge)
	assert.True(t, over.Progress.Completed)
	assert.True(t, over.ChallengeCompleted)
	assert.True(t, over.Reward.Equal(challenge.RewardBaseUnits(15)))
	done, err := f.ctrl.Tracker().IsCompletedToday(context.Background())
	require.NoError(t, err)
	assert.True(t, done)

	f.waitSubmission(t)
	f.ctrl.Poll()
	at, pending := f.ctrl.AutoReturnPending()
	require.True(t, pending)
	assert.Equal(t, f.clock.now().Add(DefaultAutoReturnDelay), at)

	f.clock.advance(time.Second)
	f.ctrl.Poll()
	assert.Equal(t, StateGameOver, f.ctrl.State())

	f.clock.advance(2 * time.Second)
	f.ctrl.Poll()
	assert.Equal(t, StateMenu, f.ctrl.State())
	assert.Equal(t, 1, f.nav.menus)

	subs := f.chain.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "daily:"+today.Date, subs[0].ChallengeOrTournamentID)
	assert.True(t, f.chain.Balance(player).Equal(challenge.RewardBaseUnits(15)))

	_, err = f.ctrl.Start(StartOptions{DailyChallenge: true})
	assert.ErrorIs(t, err, ErrChallengeCompleted)
}

func TestDailyChallenge_NotMetReportsProgress(t *testing.T) {
	f := newFixture(t, true, quietParams())
	s, err := f.ctrl.Start(StartOptions{DailyChallenge: true})
	require.NoError(t, err)
	f.drive(s, 60, 250*time.Millisecond, race.Input{Brake: true})
	f.ctrl.Stop()

	over, _ := f.ctrl.GameOver()
	assert.False(t, over.ChallengeCompleted)
	assert.Equal(t, over.Result.TopSpeed, over.Progress.Current)
	assert.Less(t, over.Progress.Current, 120)
	assert.Less(t, over.Progress.Percent, 100.0)

	f.waitSubmission(t)
	f.ctrl.Poll()
	_, pending := f.ctrl.AutoReturnPending()
	assert.False(t, pending)
	assert.Equal(t, StateGameOver, f.ctrl.State())
}

func TestDailyChallenge_CompletionKeepsStartDateAcrossMidnight(t *testing.T) {
	f := newFixture(t, false, quietParams())
	f.clock.t = time.Date(2024, 1, 2, 23, 59, 30, 0, time.UTC)
	started := f.ctrl.Today()
	require.Equal(t, "Tue Jan 02 2024", started.Date)

	s, err := f.ctrl.Start(StartOptions{DailyChallenge: true})
	require.NoError(t, err)
	f.drive(s, 320, 250*time.Millisecond, race.Input{Accelerate: true})
	f.ctrl.Stop()
	require.Equal(t, "Wed Jan 03 2024", challenge.DateKey(f.clock.now()))

	over, ok := f.ctrl.GameOver()
	require.True(t, ok)
	require.NotNil(t, over.Challenge)
	assert.Equal(t, started.Date, over.Challenge.Date)
	assert.True(t, over.ChallengeCompleted)

	date, err := f.store.CompletedChallengeDate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Tue Jan 02 2024", date)

	done, err := f.ctrl.Tracker().IsCompletedToday(context.Background())
	require.NoError(t, err)
	assert.False(t, done, "the new day's challenge was never attempted")

	require.NoError(t, f.ctrl.ReturnToMenu())
	_, err = f.ctrl.Start(StartOptions{DailyChallenge: true})
	assert.NoError(t, err)
}

func TestTournament_NavigatesToLobby(t *testing.T) {
	f := newFixture(t, true, quietParams())
	s, err := f.ctrl.Start(StartOptions{TournamentID: "spring-cup"})
	require.NoError(t, err)
	f.drive(s, 60, 250*time.Millisecond, race.Input{})
	f.ctrl.Stop()

	f.waitSubmission(t)
	f.ctrl.Poll()
	assert.Equal(t, []string{"spring-cup"}, f.nav.completed)

	f.clock.advance(DefaultAutoReturnDelay)
	f.ctrl.Poll()
	assert.Equal(t, 1, f.nav.tournaments)
	assert.Zero(t, f.nav.menus)
	assert.Equal(t, StateMenu, f.ctrl.State())

	subs := f.chain.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "tournament:spring-cup", subs[0].ChallengeOrTournamentID)
}

func TestSubmission_FailureKeepsHistoryAndRetries(t *testing.T) {
	f := newFixture(t, true, quietParams())
	f.chain.FailNextConfirm(chain.ErrUserRejected)
	s, err := f.ctrl.Start(StartOptions{})
	require.NoError(t, err)
	f.drive(s, 60, 250*time.Millisecond, race.Input{})
	f.ctrl.Stop()

	f.waitSubmission(t)
	f.ctrl.Poll()
	assert.Equal(t, submission.StateError, f.ctrl.Bridge().State())
	cat, _ := f.ctrl.Bridge().Failure()
	assert.Equal(t, submission.CategoryCancelledByUser, cat)
	assert.Equal(t, 1, f.history(t).Len())
	assert.Equal(t, StateGameOver, f.ctrl.State())

	require.NoError(t, f.ctrl.Submit())
	f.waitSubmission(t)
	assert.Equal(t, submission.StateSuccess, f.ctrl.Bridge().State())
	assert.Len(t, f.chain.Submissions(), 1)
	assert.Equal(t, 1, f.history(t).Len())
}

func TestReturnToMenu(t *testing.T) {
	f := newFixture(t, false, quietParams())
	assert.ErrorIs(t, f.ctrl.ReturnToMenu(), ErrNotGameOver)

	s, err := f.ctrl.Start(StartOptions{})
	require.NoError(t, err)
	f.ctrl.Stop()
	require.NoError(t, f.ctrl.ReturnToMenu())
	assert.Equal(t, StateMenu, f.ctrl.State())
	assert.Equal(t, race.StatusMenu, s.Status())
	assert.Equal(t, 1, f.nav.menus)
}

func TestTeardown_AbandonsRunningRace(t *testing.T) {
	f := newFixture(t, true, quietParams())
	s, err := f.ctrl.Start(StartOptions{})
	require.NoError(t, err)
	f.drive(s, 5, 16*time.Millisecond, race.Input{})

	f.ctrl.Teardown()
	assert.Equal(t, StateMenu, f.ctrl.State())
	assert.True(t, s.TornDown())
	assert.False(t, s.Step(race.Input{}))
	assert.Zero(t, f.history(t).Len())
	assert.Empty(t, f.overs)

	f.ctrl.Teardown()
	_, err = f.ctrl.Start(StartOptions{})
	assert.NoError(t, err)
}
