// Package submission packages a finished race into an on-chain result and
// follows the transaction until it is confirmed or failed.
package submission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/golangdaddy/roadchain/log"
	"github.com/golangdaddy/roadchain/pkg/chain"
)

// State of a submission
type State string

const (
	StateIdle          State = "idle"
	StateWaitingWallet State = "waitingWallet"
	StateConfirming    State = "confirming"
	StateSuccess       State = "success"
	StateError         State = "error"
)

const (
	evRequest   = "request"
	evAccepted  = "submissionAccepted"
	evConfirmed = "confirmed"
	evFailed    = "failed"
)

// DefaultMinLapTime is the shortest run that may be submitted
const DefaultMinLapTime = 10 * time.Second

// Request is a finished race ready for submission
type Request struct {
	Player           string
	CarID            uint64
	Score            int
	Distance         int
	ObstaclesAvoided int
	BonusCollected   int
	LapTime          time.Duration
	// ChallengeOrTournamentID scopes the result, empty for a free run
	ChallengeOrTournamentID string
	Reward                  decimal.Decimal
}

func (r Request) payload() chain.ResultSubmission {
	return chain.ResultSubmission{
		Player:                  r.Player,
		CarID:                   r.CarID,
		Score:                   r.Score,
		Distance:                r.Distance,
		ObstaclesAvoided:        r.ObstaclesAvoided,
		BonusCollected:          r.BonusCollected,
		ChallengeOrTournamentID: r.ChallengeOrTournamentID,
		Reward:                  r.Reward,
	}
}

// Outcome is reported for every state change after a request
type Outcome struct {
	State    State
	TxHash   string
	Category Category
	Err      error
}

// Publisher receives confirmed results, for example a results stream
type Publisher interface {
	PublishResult(ctx context.Context, txHash string, r chain.ResultSubmission) error
}

// Bridge drives the submission of one game-over episode. At most one
// transaction is in flight and none is started once one has succeeded. A
// failed submission may be retried.
type Bridge struct {
	mu         sync.Mutex
	fsm        *fsm.FSM
	channel    chain.ResultChannel
	publisher  Publisher
	minLapTime time.Duration
	timeout    time.Duration
	logger     *log.Logger
	outcomes   chan Outcome
	attempts   int
	txHash     string
	lastErr    error
	category   Category
	done       chan struct{}

	submitted metric.Int64Counter
	failures  metric.Int64Counter
}

type Option func(*Bridge)

// WithMinLapTime sets the anti abuse threshold
func WithMinLapTime(d time.Duration) Option {
	return func(b *Bridge) {
		b.minLapTime = d
	}
}

// WithTimeout bounds the wallet and confirmation round trip
func WithTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		b.timeout = d
	}
}

func WithPublisher(p Publisher) Option {
	return func(b *Bridge) {
		b.publisher = p
	}
}

func WithLogger(l *log.Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

// NewBridge creates a bridge in the idle state
func NewBridge(channel chain.ResultChannel, opts ...Option) *Bridge {
	b := &Bridge{
		channel:    channel,
		minLapTime: DefaultMinLapTime,
		timeout:    2 * time.Minute,
		logger:     log.Default().Named("submission"),
		outcomes:   make(chan Outcome, 8),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.fsm = fsm.NewFSM(
		string(StateIdle),
		fsm.Events{
			{Name: evRequest, Src: []string{string(StateIdle), string(StateError)}, Dst: string(StateWaitingWallet)},
			{Name: evAccepted, Src: []string{string(StateWaitingWallet)}, Dst: string(StateConfirming)},
			{Name: evConfirmed, Src: []string{string(StateConfirming)}, Dst: string(StateSuccess)},
			{Name: evFailed, Src: []string{string(StateWaitingWallet), string(StateConfirming)}, Dst: string(StateError)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				b.logger.Debug("submission state",
					log.String("from", e.Src), log.String("to", e.Dst), log.String("event", e.Event))
			},
		},
	)
	b.setupMetrics()
	return b
}

func (b *Bridge) setupMetrics() {
	meter := otel.GetMeterProvider().Meter("roadchain.submission")
	var err error
	if b.submitted, err = meter.Int64Counter("roadchain.submission.confirmed",
		metric.WithDescription("Number of confirmed result submissions"),
		metric.WithUnit("{count}")); err != nil {
		b.logger.Error("failed to register metric", log.ErrorField(err))
	}
	if b.failures, err = meter.Int64Counter("roadchain.submission.failed",
		metric.WithDescription("Number of failed result submissions"),
		metric.WithUnit("{count}")); err != nil {
		b.logger.Error("failed to register metric", log.ErrorField(err))
	}
}

// State returns the current state
func (b *Bridge) State() State {
	return State(b.fsm.Current())
}

// Outcomes delivers every state change caused by a request
func (b *Bridge) Outcomes() <-chan Outcome {
	return b.outcomes
}

func (b *Bridge) TxHash() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.txHash
}

// Failure returns the category and cause of the last failure
func (b *Bridge) Failure() (Category, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.category, b.lastErr
}

// Attempts returns how many requests reached the wallet
func (b *Bridge) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Eligible tells whether req could be submitted at all
func (b *Bridge) Eligible(req Request) error {
	if req.LapTime < b.minLapTime {
		return fmt.Errorf("%w: %s < %s", ErrRunTooShort, req.LapTime, b.minLapTime)
	}
	if req.Player == "" {
		return ErrNoWallet
	}
	return nil
}

// Submit starts the submission of req. The wallet and confirmation round
// trip runs in the background and reports through Outcomes. Gating failures
// are returned directly and leave the state untouched.
func (b *Bridge) Submit(ctx context.Context, req Request) error {
	if err := b.Eligible(req); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.State() {
	case StateWaitingWallet, StateConfirming:
		return ErrSubmissionInFlight
	case StateSuccess:
		return ErrAlreadySubmitted
	}
	if err := b.fsm.Event(ctx, evRequest); err != nil {
		return fmt.Errorf("submission request: %w", err)
	}
	b.attempts++
	b.lastErr = nil
	b.category = CategoryNone
	b.done = make(chan struct{})
	b.emit(Outcome{State: StateWaitingWallet})

	go b.run(context.WithoutCancel(ctx), req, b.done)
	return nil
}

// Wait blocks until the current round trip finished or ctx is done
func (b *Bridge) Wait(ctx context.Context) error {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bridge) run(ctx context.Context, req Request, done chan struct{}) {
	defer close(done)
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	payload := req.payload()
	tx, err := b.channel.SubmitResult(ctx, payload)
	if err != nil {
		b.fail(ctx, err)
		return
	}
	if !b.transition(ctx, evAccepted, Outcome{State: StateConfirming, TxHash: tx.Hash()}, tx.Hash()) {
		return
	}
	if err := tx.Wait(ctx); err != nil {
		b.fail(ctx, err)
		return
	}
	if !b.transition(ctx, evConfirmed, Outcome{State: StateSuccess, TxHash: tx.Hash()}, tx.Hash()) {
		return
	}
	if b.submitted != nil {
		b.submitted.Add(ctx, 1, metric.WithAttributes(attribute.Bool("scoped", req.ChallengeOrTournamentID != "")))
	}
	b.logger.Info("result confirmed",
		log.String("tx", tx.Hash()),
		log.String("player", req.Player),
		log.Int("score", req.Score))
	if b.publisher != nil {
		if err := b.publisher.PublishResult(ctx, tx.Hash(), payload); err != nil {
			b.logger.Warn("could not publish confirmed result", log.ErrorField(err))
		}
	}
}

func (b *Bridge) transition(ctx context.Context, event string, o Outcome, hash string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fsm.Event(ctx, event); err != nil {
		b.logger.Error("submission transition rejected", log.String("event", event), log.ErrorField(err))
		return false
	}
	b.txHash = hash
	b.emit(o)
	return true
}

func (b *Bridge) fail(ctx context.Context, err error) {
	cat := Classify(err)
	b.mu.Lock()
	defer b.mu.Unlock()
	if ferr := b.fsm.Event(ctx, evFailed); ferr != nil {
		var inv fsm.InvalidEventError
		if !errors.As(ferr, &inv) {
			b.logger.Error("submission transition rejected", log.ErrorField(ferr))
		}
		return
	}
	b.lastErr = err
	b.category = cat
	if b.failures != nil {
		b.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("category", cat.String())))
	}
	b.logger.Warn("submission failed", log.String("category", cat.String()), log.ErrorField(err))
	b.emit(Outcome{State: StateError, Category: cat, Err: err, TxHash: b.txHash})
}

// emit never blocks the round trip; a reader that fell behind only misses
// intermediate states
func (b *Bridge) emit(o Outcome) {
	select {
	case b.outcomes <- o:
	default:
		b.logger.Debug("outcome dropped", log.String("state", string(o.State)))
	}
}
