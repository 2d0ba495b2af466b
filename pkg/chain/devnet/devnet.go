// Package devnet is an in-memory chain used for local play and tests. It
// implements the wallet, the car registry and the result channel.
package devnet

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/golangdaddy/roadchain/log"
	"github.com/golangdaddy/roadchain/pkg/chain"
	"github.com/golangdaddy/roadchain/pkg/models/car"
)

// Chain is the in-memory devnet
type Chain struct {
	mu           sync.Mutex
	address      string
	connected    bool
	cars         map[uint64]*car.CarProfile
	owners       map[uint64]string
	balances     map[string]decimal.Decimal
	submissions  []chain.ResultSubmission
	confirmDelay time.Duration
	submitErr    error
	confirmErr   error
	logger       *log.Logger
}

type Option func(*Chain)

// WithConfirmDelay sets how long a transaction takes to confirm
func WithConfirmDelay(d time.Duration) Option {
	return func(c *Chain) {
		c.confirmDelay = d
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Chain) {
		c.logger = l
	}
}

// New creates a devnet with a connected wallet for address
func New(address string, opts ...Option) *Chain {
	c := &Chain{
		address:   address,
		connected: address != "",
		cars:      map[uint64]*car.CarProfile{},
		owners:    map[uint64]string{},
		balances:  map[string]decimal.Decimal{},
		logger:    log.Default().Named("devnet"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultFleet returns the cars every new devnet player starts with
func DefaultFleet() []*car.CarProfile {
	staked := car.NewCarProfile(5, "Hybrid Gen-2 Prototype", 95, 90, 92, 5)
	staked.IsStaked = true
	return []*car.CarProfile{
		car.NewCarProfile(1, "Starter Hatch", 45, 55, 50, 1),
		car.NewCarProfile(2, "Sport Coupe", 70, 65, 68, 2),
		car.NewCarProfile(3, "Racing Beast", 90, 85, 88, 4),
		car.NewCarProfile(4, "Midnight Runner", 60, 80, 75, 3),
		staked,
	}
}

// Mint gives cars to owner
func (c *Chain) Mint(owner string, cars ...*car.CarProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range cars {
		c.cars[p.ID] = p
		c.owners[p.ID] = owner
	}
}

// Connect connects or disconnects the wallet
func (c *Chain) Connect(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = connected
}

// FailNextSubmit makes the next SubmitResult return err
func (c *Chain) FailNextSubmit(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitErr = err
}

// FailNextConfirm makes the next transaction revert with err
func (c *Chain) FailNextConfirm(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirmErr = err
}

func (c *Chain) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address
}

func (c *Chain) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ListOwnedCars returns the cars of owner ordered by id
func (c *Chain) ListOwnedCars(_ context.Context, owner string) ([]*car.CarProfile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := lo.Filter(lo.Keys(c.owners), func(id uint64, _ int) bool {
		return strings.EqualFold(c.owners[id], owner)
	})
	slices.Sort(ids)
	return lo.Map(ids, func(id uint64, _ int) *car.CarProfile { return c.cars[id] }), nil
}

func (c *Chain) GetCarDetails(_ context.Context, id uint64) (*car.CarProfile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.cars[id]
	if !ok {
		return nil, fmt.Errorf("car %d: %w", id, chain.ErrCarNotFound)
	}
	return p, nil
}

// SubmitResult records r and returns a handle that confirms after the
// configured delay
func (c *Chain) SubmitResult(ctx context.Context, r chain.ResultSubmission) (chain.TxHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, chain.ErrWalletNotConnected
	}
	if err := c.submitErr; err != nil {
		c.submitErr = nil
		return nil, err
	}
	tx := &tx{
		chain:  c,
		hash:   "0x" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		result: r,
		delay:  c.confirmDelay,
		err:    c.confirmErr,
	}
	c.confirmErr = nil
	c.logger.Debug("result submitted",
		log.String("tx", tx.hash),
		log.String("player", r.Player),
		log.Int("score", r.Score))
	return tx, nil
}

// Submissions returns the confirmed results
func (c *Chain) Submissions() []chain.ResultSubmission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chain.ResultSubmission(nil), c.submissions...)
}

// Balance returns the reward tokens of address in base units
func (c *Chain) Balance(address string) decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[strings.ToLower(address)]
}

func (c *Chain) confirm(t *tx) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submissions = append(c.submissions, t.result)
	key := strings.ToLower(t.result.Player)
	c.balances[key] = c.balances[key].Add(t.result.Reward)
}

type tx struct {
	chain  *Chain
	hash   string
	result chain.ResultSubmission
	delay  time.Duration
	err    error
	once   sync.Once
}

func (t *tx) Hash() string { return t.hash }

func (t *tx) Wait(ctx context.Context) error {
	if t.delay > 0 {
		timer := time.NewTimer(t.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if t.err != nil {
		return fmt.Errorf("transaction %s reverted: %w", t.hash, t.err)
	}
	t.once.Do(func() { t.chain.confirm(t) })
	return nil
}
