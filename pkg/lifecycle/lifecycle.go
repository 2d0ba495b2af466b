// Package lifecycle moves the game between the menu, a running race and the
// game-over screen, and settles a finished race: high score, history, daily
// challenge completion and result submission.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/golangdaddy/roadchain/log"
	"github.com/golangdaddy/roadchain/pkg/chain"
	"github.com/golangdaddy/roadchain/pkg/challenge"
	"github.com/golangdaddy/roadchain/pkg/models"
	"github.com/golangdaddy/roadchain/pkg/race"
	"github.com/golangdaddy/roadchain/pkg/submission"
)

// State of the game
type State string

const (
	StateMenu     State = "menu"
	StateRunning  State = "running"
	StateGameOver State = "gameOver"
)

const (
	evStart  = "start"
	evEnd    = "end"
	evReturn = "return"
)

// DefaultAutoReturnDelay is the pause before leaving the game-over screen
// after a confirmed submission
const DefaultAutoReturnDelay = 3 * time.Second

// Store is the durable state the lifecycle reads and writes
type Store interface {
	challenge.CompletionStore
	HighScore(ctx context.Context) (int, error)
	SetHighScore(ctx context.Context, score int) error
	AppendHistory(ctx context.Context, e models.GameHistoryEntry) error
	AutoSubmit(ctx context.Context, def bool) (bool, error)
}

// Navigator performs navigation on behalf of the lifecycle
type Navigator interface {
	OnTournamentCompleted(id string)
	OnNavigateToTournaments()
	OnNavigateToMenu()
}

// StartOptions flag what a run counts for
type StartOptions struct {
	DailyChallenge bool
	TournamentID   string
}

// GameOver is the settled outcome of one race
type GameOver struct {
	Result         race.Result
	Entry          models.GameHistoryEntry
	HighScore      int
	IsNewHighScore bool
	TournamentID   string

	// set for daily challenge attempts
	Challenge          *challenge.DailyChallenge
	Progress           challenge.Progress
	ChallengeCompleted bool
	Reward             decimal.Decimal

	// why the result was not submitted automatically, nil when it was
	SubmitSkipped error
}

// Controller owns the active race session and the state machine around it.
// It is driven from the game loop and is not safe for concurrent use.
type Controller struct {
	fsm     *fsm.FSM
	ctx     context.Context
	wallet  chain.Wallet
	garage  *models.Garage
	store   Store
	tracker *challenge.Tracker
	channel chain.ResultChannel
	nav     Navigator
	now     func() time.Time
	logger  *log.Logger

	sessionOpts     []race.Option
	bridgeOpts      []submission.Option
	autoSubmit      bool
	autoReturnDelay time.Duration
	onGameOver      func(GameOver)

	session  *race.Session
	opts     StartOptions
	today    challenge.DailyChallenge
	gameOver *GameOver
	bridge   *submission.Bridge
	returnAt time.Time

	started   metric.Int64Counter
	ended     metric.Int64Counter
	completed metric.Int64Counter
}

type Option func(*Controller)

func WithContext(ctx context.Context) Option {
	return func(c *Controller) {
		c.ctx = ctx
	}
}

func WithNavigator(n Navigator) Option {
	return func(c *Controller) {
		c.nav = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithSessionOptions are applied to every race session
func WithSessionOptions(opts ...race.Option) Option {
	return func(c *Controller) {
		c.sessionOpts = append(c.sessionOpts, opts...)
	}
}

// WithBridgeOptions are applied to the submission bridge of every episode
func WithBridgeOptions(opts ...submission.Option) Option {
	return func(c *Controller) {
		c.bridgeOpts = append(c.bridgeOpts, opts...)
	}
}

// WithAutoSubmit is the auto-submission default used until the player
// changes the setting
func WithAutoSubmit(on bool) Option {
	return func(c *Controller) {
		c.autoSubmit = on
	}
}

func WithAutoReturnDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.autoReturnDelay = d
	}
}

// WithGameOverHandler is called once per race after it was settled
func WithGameOverHandler(fn func(GameOver)) Option {
	return func(c *Controller) {
		c.onGameOver = fn
	}
}

// NewController creates a controller in the menu state
func NewController(wallet chain.Wallet, garage *models.Garage, store Store, channel chain.ResultChannel, opts ...Option) *Controller {
	c := &Controller{
		ctx:             context.Background(),
		wallet:          wallet,
		garage:          garage,
		store:           store,
		channel:         channel,
		nav:             nopNavigator{},
		now:             time.Now,
		logger:          log.Default().Named("lifecycle"),
		autoReturnDelay: DefaultAutoReturnDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tracker = challenge.NewTracker(store, challenge.WithClock(c.now))
	c.fsm = fsm.NewFSM(
		string(StateMenu),
		fsm.Events{
			{Name: evStart, Src: []string{string(StateMenu)}, Dst: string(StateRunning)},
			{Name: evEnd, Src: []string{string(StateRunning)}, Dst: string(StateGameOver)},
			{Name: evReturn, Src: []string{string(StateGameOver), string(StateRunning)}, Dst: string(StateMenu)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				c.logger.Debug("lifecycle state",
					log.String("from", e.Src), log.String("to", e.Dst), log.String("event", e.Event))
			},
		},
	)
	c.setupMetrics()
	return c
}

func (c *Controller) setupMetrics() {
	meter := otel.GetMeterProvider().Meter("roadchain.lifecycle")
	register := func(name, desc string) metric.Int64Counter {
		ctr, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit("{count}"))
		if err != nil {
			c.logger.Error("failed to register metric", log.String("metric", name), log.ErrorField(err))
		}
		return ctr
	}
	c.started = register("roadchain.race.started", "Number of started races")
	c.ended = register("roadchain.race.ended", "Number of finished races")
	c.completed = register("roadchain.challenge.completed", "Number of completed daily challenges")
}

func (c *Controller) State() State                    { return State(c.fsm.Current()) }
func (c *Controller) Session() *race.Session          { return c.session }
func (c *Controller) Bridge() *submission.Bridge      { return c.bridge }
func (c *Controller) Garage() *models.Garage          { return c.garage }
func (c *Controller) Tracker() *challenge.Tracker     { return c.tracker }
func (c *Controller) StartOptions() StartOptions      { return c.opts }
func (c *Controller) Today() challenge.DailyChallenge { return c.tracker.Today() }

// GameOver returns the settled outcome of the last race
func (c *Controller) GameOver() (GameOver, bool) {
	if c.gameOver == nil {
		return GameOver{}, false
	}
	return *c.gameOver, true
}

// CanStart runs the start gates without changing anything
func (c *Controller) CanStart(opts StartOptions) error {
	if c.State() != StateMenu {
		return ErrNotInMenu
	}
	if c.wallet == nil || !c.wallet.IsConnected() {
		return ErrWalletNotConnected
	}
	profile := c.garage.GetActiveCar()
	if profile == nil {
		return ErrNoCarSelected
	}
	if profile.IsStaked {
		return fmt.Errorf("%s: %w", profile.Name, ErrCarStaked)
	}
	if opts.DailyChallenge {
		done, err := c.tracker.IsCompletedToday(c.ctx)
		if err != nil {
			return err
		}
		if done {
			return ErrChallengeCompleted
		}
	}
	return nil
}

// Start begins a race with the active car. A failed gate leaves the
// controller untouched.
func (c *Controller) Start(opts StartOptions) (*race.Session, error) {
	if err := c.CanStart(opts); err != nil {
		return nil, err
	}
	profile := c.garage.GetActiveCar()

	if c.session != nil {
		c.session.Teardown()
	}
	sessionOpts := append([]race.Option{race.WithClock(c.now)}, c.sessionOpts...)
	sessionOpts = append(sessionOpts, race.WithEndHandler(c.settle))
	s := race.NewSession(profile, sessionOpts...)
	if err := s.Start(); err != nil {
		return nil, err
	}
	if err := c.fsm.Event(c.ctx, evStart); err != nil {
		s.Teardown()
		return nil, fmt.Errorf("start race: %w", err)
	}

	c.session = s
	c.opts = opts
	c.today = c.tracker.Today()
	c.gameOver = nil
	c.bridge = nil
	c.returnAt = time.Time{}
	c.count(c.started, attribute.Bool("daily", opts.DailyChallenge), attribute.Bool("tournament", opts.TournamentID != ""))
	c.logger.Info("race started",
		log.String("session", s.ID()),
		log.String("car", profile.Name),
		log.Bool("daily", opts.DailyChallenge),
		log.String("tournament", opts.TournamentID))
	return s, nil
}

// Stop ends the running race on request of the player
func (c *Controller) Stop() bool {
	if c.session == nil {
		return false
	}
	return c.session.Stop()
}

// settle runs once when the session ends. A second call for the same
// episode finds the state machine already in gameOver and does nothing.
func (c *Controller) settle(res race.Result) {
	if c.State() != StateRunning {
		return
	}
	if err := c.fsm.Event(c.ctx, evEnd); err != nil {
		c.logger.Error("end race", log.ErrorField(err))
		return
	}
	ctx := c.ctx
	over := &GameOver{Result: res, TournamentID: c.opts.TournamentID}

	best, err := c.store.HighScore(ctx)
	if err != nil {
		c.logger.Error("could not read high score", log.ErrorField(err))
	}
	over.HighScore = best
	if res.Score > best {
		over.IsNewHighScore = true
		over.HighScore = res.Score
		if err := c.store.SetHighScore(ctx, res.Score); err != nil {
			c.logger.Error("could not store high score", log.ErrorField(err))
		}
	}

	carName := ""
	if res.Car != nil {
		carName = res.Car.Name
	}
	over.Entry = models.NewGameHistoryEntry(res.Score, res.Distance, res.ObstaclesAvoided,
		res.BonusBoxesCollected, res.LapTime, carName, res.EndedAt, over.IsNewHighScore)
	if err := c.store.AppendHistory(ctx, over.Entry); err != nil {
		c.logger.Error("could not store history entry", log.ErrorField(err))
	}

	if c.opts.DailyChallenge {
		c.settleChallenge(ctx, over)
	}

	c.gameOver = over
	c.bridge = submission.NewBridge(c.channel, c.bridgeOpts...)
	c.count(c.ended, attribute.String("reason", string(res.Reason)))
	c.logger.Info("race settled",
		log.String("session", res.SessionID),
		log.Int("score", res.Score),
		log.Bool("newHighScore", over.IsNewHighScore),
		log.Bool("challengeCompleted", over.ChallengeCompleted))

	c.autoSubmitResult(ctx)
	if c.onGameOver != nil {
		c.onGameOver(*c.gameOver)
	}
}

func (c *Controller) settleChallenge(ctx context.Context, over *GameOver) {
	ch := c.today
	res := over.Result
	over.Challenge = &ch
	over.Progress = challenge.Evaluate(ch, challenge.Stats{
		Score:          res.Score,
		Distance:       res.Distance,
		SurvivalTime:   res.LapTime,
		TopSpeed:       res.TopSpeed,
		KeysCollected:  res.KeysCollected,
		BonusCollected: res.BonusBoxesCollected,
	})
	if !over.Progress.Completed {
		return
	}
	newly, err := c.tracker.MarkCompleted(ctx, ch.Date)
	if err != nil {
		c.logger.Error("could not store challenge completion", log.ErrorField(err))
		return
	}
	if !newly {
		return
	}
	over.ChallengeCompleted = true
	over.Reward = challenge.RewardBaseUnits(ch.Reward)
	c.count(c.completed, attribute.String("type", string(ch.Type)))
	c.logger.Info("daily challenge completed",
		log.String("date", ch.Date),
		log.String("title", ch.Title),
		log.Int("reward", ch.Reward))
}

func (c *Controller) autoSubmitResult(ctx context.Context) {
	on, err := c.store.AutoSubmit(ctx, c.autoSubmit)
	if err != nil {
		c.logger.Warn("could not read auto submit setting", log.ErrorField(err))
	}
	if !on {
		c.gameOver.SubmitSkipped = submission.ErrAutoSubmitDisabled
		return
	}
	if err := c.Submit(); err != nil {
		c.gameOver.SubmitSkipped = err
		c.logger.Info("result not submitted", log.ErrorField(err))
	}
}

// request packages the settled race for the result channel
func (c *Controller) request() submission.Request {
	over := c.gameOver
	res := over.Result
	req := submission.Request{
		Player:           c.wallet.Address(),
		Score:            res.Score,
		Distance:         res.Distance,
		ObstaclesAvoided: res.ObstaclesAvoided,
		BonusCollected:   res.BonusBoxesCollected,
		LapTime:          res.LapTime,
		Reward:           decimal.Zero,
	}
	if res.Car != nil {
		req.CarID = res.Car.ID
	}
	switch {
	case over.TournamentID != "":
		req.ChallengeOrTournamentID = "tournament:" + over.TournamentID
	case over.ChallengeCompleted:
		req.ChallengeOrTournamentID = "daily:" + over.Challenge.Date
		req.Reward = over.Reward
	}
	return req
}

// Submit sends the finished race to the result channel. Only one
// submission per game over is accepted; a failed one may be retried.
func (c *Controller) Submit() error {
	if c.State() != StateGameOver || c.gameOver == nil || c.bridge == nil {
		return ErrNotGameOver
	}
	if !c.wallet.IsConnected() {
		return ErrWalletNotConnected
	}
	return c.bridge.Submit(c.ctx, c.request())
}

// Poll handles submission outcomes and the automatic return. It is called
// once per frame.
func (c *Controller) Poll() {
	if c.State() != StateGameOver {
		return
	}
	if c.bridge != nil {
		c.drainOutcomes()
	}
	if !c.returnAt.IsZero() && !c.now().Before(c.returnAt) {
		c.returnAt = time.Time{}
		tournament := c.gameOver != nil && c.gameOver.TournamentID != ""
		if err := c.leave(); err != nil {
			c.logger.Error("auto return", log.ErrorField(err))
			return
		}
		if tournament {
			c.nav.OnNavigateToTournaments()
		} else {
			c.nav.OnNavigateToMenu()
		}
	}
}

func (c *Controller) drainOutcomes() {
	for {
		select {
		case o := <-c.bridge.Outcomes():
			c.onOutcome(o)
		default:
			return
		}
	}
}

func (c *Controller) onOutcome(o submission.Outcome) {
	if o.State != submission.StateSuccess || c.gameOver == nil {
		return
	}
	switch {
	case c.gameOver.TournamentID != "":
		c.nav.OnTournamentCompleted(c.gameOver.TournamentID)
		c.returnAt = c.now().Add(c.autoReturnDelay)
	case c.gameOver.ChallengeCompleted:
		// leave so the completed challenge cannot be replayed from this screen
		c.returnAt = c.now().Add(c.autoReturnDelay)
	}
}

// ReturnToMenu leaves the game-over screen on request of the player
func (c *Controller) ReturnToMenu() error {
	if c.State() != StateGameOver {
		return ErrNotGameOver
	}
	c.returnAt = time.Time{}
	if err := c.leave(); err != nil {
		return err
	}
	c.nav.OnNavigateToMenu()
	return nil
}

// AutoReturnPending reports when the automatic return will happen
func (c *Controller) AutoReturnPending() (time.Time, bool) {
	return c.returnAt, !c.returnAt.IsZero()
}

func (c *Controller) leave() error {
	if err := c.fsm.Event(c.ctx, evReturn); err != nil {
		return fmt.Errorf("return to menu: %w", err)
	}
	if c.session != nil {
		c.session.Reset()
	}
	return nil
}

// Teardown releases the session when the player navigates away or changes
// car. A running race is abandoned without being recorded; a submission in
// flight finishes in the background.
func (c *Controller) Teardown() {
	if c.session != nil {
		c.session.Teardown()
		c.session = nil
	}
	c.returnAt = time.Time{}
	if c.State() != StateMenu {
		if err := c.fsm.Event(c.ctx, evReturn); err != nil {
			var noTransition fsm.NoTransitionError
			if !errors.As(err, &noTransition) {
				c.logger.Warn("teardown", log.ErrorField(err))
			}
		}
	}
}

func (c *Controller) count(ctr metric.Int64Counter, attrs ...attribute.KeyValue) {
	if ctr == nil {
		return
	}
	ctr.Add(c.ctx, 1, metric.WithAttributes(attrs...))
}

type nopNavigator struct{}

func (nopNavigator) OnTournamentCompleted(string) {}
func (nopNavigator) OnNavigateToTournaments()     {}
func (nopNavigator) OnNavigateToMenu()            {}
