// Package race runs a single race session: spawning, steering, collisions and
// scoring, one Step per displayed frame.
package race

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/golangdaddy/roadchain/log"
	"github.com/golangdaddy/roadchain/pkg/models/car"
	"github.com/golangdaddy/roadchain/pkg/road"
)

// Status of a session
type Status int

const (
	StatusMenu Status = iota
	StatusRunning
	StatusGameOver
)

func (s Status) String() string {
	switch s {
	case StatusMenu:
		return "menu"
	case StatusRunning:
		return "running"
	case StatusGameOver:
		return "gameOver"
	default:
		return "unknown"
	}
}

// EndReason tells why a running session stopped
type EndReason string

const (
	EndCollision EndReason = "collision"
	EndManual    EndReason = "manual"
)

// Invisibility is the golden key power-up window
type Invisibility struct {
	Active      bool
	RemainingMs int
}

// SpawnState holds the ratcheting difficulty counters
type SpawnState struct {
	ObstacleSpawnRate  float64
	NextBonusThreshold int
	NextKeySpawnTime   float64 // seconds since session start
	KeySpawnInterval   float64 // seconds
}

// Result is handed to the end handler once per session episode
type Result struct {
	SessionID           string
	Reason              EndReason
	Car                 *car.CarProfile
	Score               int
	Distance            int
	ObstaclesAvoided    int
	BonusBoxesCollected int
	KeysCollected       int
	TopSpeed            int // peak display speed in km/h
	LapTime             time.Duration
	StartedAt           time.Time
	EndedAt             time.Time
}

// Session is the single owner of the live race state. Only Step mutates the
// car and the score while the session is running.
type Session struct {
	id      string
	params  Params
	profile *car.CarProfile
	perf    car.Performance
	rng     *rand.Rand
	now     func() time.Time
	surface Surface
	logger  *log.Logger
	onEnd   func(Result)

	status   Status
	ended    bool
	tornDown bool

	startedAt   time.Time
	lastFrameAt time.Time
	endedAt     time.Time
	endReason   EndReason
	frame       uint64

	score               int
	obstaclesAvoided    int
	bonusBoxesCollected int
	keysCollected       int
	distance            int
	topSpeed            int

	speedMultiplier float64
	carLateral      float64
	targetLateral   float64
	carZ            float64
	baseGameSpeed   float64

	invisibility Invisibility
	spawn        SpawnState

	obstacles  []*Entity
	bonusBoxes []*Entity
	keys       []*Entity
	pending    []*Entity
	nextID     int64
	markings   *road.Markings

	notice      string
	noticeUntil time.Time

	subscribers []func(Snapshot)
	published   Snapshot
}

type Option func(*Session)

func WithParams(p Params) Option {
	return func(s *Session) {
		s.params = p
	}
}

func WithRand(rng *rand.Rand) Option {
	return func(s *Session) {
		s.rng = rng
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

func WithSurface(surface Surface) Option {
	return func(s *Session) {
		s.surface = surface
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithEndHandler registers the callback invoked exactly once when a running
// session ends
func WithEndHandler(fn func(Result)) Option {
	return func(s *Session) {
		s.onEnd = fn
	}
}

// NewSession creates a session in the menu state for the given car
func NewSession(profile *car.CarProfile, opts ...Option) *Session {
	s := &Session{
		id:      uuid.New().String(),
		params:  DefaultParams(),
		profile: profile,
		now:     time.Now,
		surface: NopSurface{},
		logger:  log.Default().Named("race"),
		status:  StatusMenu,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if profile != nil {
		s.perf = profile.Performance()
	}
	return s
}

func (s *Session) ID() string                   { return s.id }
func (s *Session) Status() Status               { return s.status }
func (s *Session) Car() *car.CarProfile         { return s.profile }
func (s *Session) Performance() car.Performance { return s.perf }
func (s *Session) Score() int                   { return s.score }
func (s *Session) TornDown() bool               { return s.tornDown }

// Subscribe registers fn for periodic and on-change snapshots
func (s *Session) Subscribe(fn func(Snapshot)) {
	s.subscribers = append(s.subscribers, fn)
}

// Start resets every counter, entity list and spawn threshold and moves the
// session to running. The car must be set and must not be staked.
func (s *Session) Start() error {
	if s.tornDown {
		return ErrTornDown
	}
	if s.profile == nil {
		return ErrNoCar
	}
	if s.profile.IsStaked {
		return ErrCarStaked
	}
	if s.status == StatusRunning {
		return ErrAlreadyRunning
	}

	s.clearEntities()
	now := s.now()
	p := s.params

	s.id = uuid.New().String()
	s.perf = s.profile.Performance()
	s.startedAt = now
	s.lastFrameAt = now
	s.endedAt = time.Time{}
	s.endReason = ""
	s.frame = 0
	s.ended = false

	s.score = 0
	s.obstaclesAvoided = 0
	s.bonusBoxesCollected = 0
	s.keysCollected = 0
	s.distance = 0
	s.topSpeed = 0

	s.speedMultiplier = clamp(p.InitialSpeedMultiplier, p.MinSpeedMultiplier, s.perf.MaxSpeed)
	s.carLateral = 0
	s.targetLateral = 0
	s.carZ = 0
	s.baseGameSpeed = p.BaseGameSpeed

	s.invisibility = Invisibility{}
	s.spawn = SpawnState{
		ObstacleSpawnRate:  p.ObstacleSpawnRate,
		NextBonusThreshold: p.BonusThreshold,
		NextKeySpawnTime:   p.FirstKeyAt.Seconds(),
		KeySpawnInterval:   p.KeySpawnInterval.Seconds(),
	}
	s.markings = road.NewMarkings(p.MarkingCount, p.MarkingSpacing, 0)
	s.notice = ""

	s.status = StatusRunning
	s.published = Snapshot{}
	s.logger.Info("race started",
		log.String("session", s.id),
		log.String("car", s.profile.Name),
		log.Float64("maxSpeed", s.perf.MaxSpeed))
	return nil
}

// Stop ends a running session on request of the player
func (s *Session) Stop() bool {
	return s.end(EndManual)
}

// end is the single exit from running. Redundant calls are no-ops so a late
// collision or stop can never record a second result.
func (s *Session) end(reason EndReason) bool {
	if s.ended || s.status != StatusRunning {
		return false
	}
	s.ended = true
	s.status = StatusGameOver
	s.endReason = reason
	s.endedAt = s.now()

	res := s.result()
	s.logger.Info("race ended",
		log.String("session", s.id),
		log.String("reason", string(reason)),
		log.Int("score", res.Score),
		log.Duration("lapTime", res.LapTime))
	s.publish(s.Snapshot(), true)
	if s.onEnd != nil {
		s.onEnd(res)
	}
	return true
}

func (s *Session) result() Result {
	return Result{
		SessionID:           s.id,
		Reason:              s.endReason,
		Car:                 s.profile,
		Score:               s.score,
		Distance:            s.distance,
		ObstaclesAvoided:    s.obstaclesAvoided,
		BonusBoxesCollected: s.bonusBoxesCollected,
		KeysCollected:       s.keysCollected,
		TopSpeed:            s.topSpeed,
		LapTime:             s.endedAt.Sub(s.startedAt),
		StartedAt:           s.startedAt,
		EndedAt:             s.endedAt,
	}
}

// Result returns the outcome of the last finished episode
func (s *Session) Result() (Result, bool) {
	if !s.ended {
		return Result{}, false
	}
	return s.result(), true
}

// Reset returns a finished session to the menu and drops its entities
func (s *Session) Reset() {
	if s.tornDown {
		return
	}
	s.clearEntities()
	s.status = StatusMenu
}

// Teardown stops the session for good and releases every entity. Any later
// Step is a no-op.
func (s *Session) Teardown() {
	if s.tornDown {
		return
	}
	s.clearEntities()
	s.tornDown = true
	s.status = StatusMenu
	s.subscribers = nil
	s.logger.Debug("race torn down", log.String("session", s.id))
}

func (s *Session) clearEntities() {
	for _, list := range [][]*Entity{s.obstacles, s.bonusBoxes, s.keys} {
		for _, e := range list {
			s.detach(e)
		}
	}
	s.obstacles = nil
	s.bonusBoxes = nil
	s.keys = nil
	s.pending = nil
}

// detach removes e from the surface; a disposed renderer is not an error
// worth surfacing
func (s *Session) detach(e *Entity) {
	if err := s.surface.RemoveEntity(*e); err != nil {
		s.logger.Warn("could not remove entity from surface",
			log.Int64("entity", e.ID), log.ErrorField(err))
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
