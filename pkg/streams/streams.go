// Package streams publishes confirmed race results to a data stream. The
// client is constructed once by the application root and handed to the
// submission bridge; nothing in it is global.
package streams

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/zalando/go-keyring"

	"github.com/golangdaddy/roadchain/log"
	"github.com/golangdaddy/roadchain/pkg/chain"
)

var (
	ErrNotInitialized = errors.New("stream client not initialized")
	ErrNoCredentials  = errors.New("no stream credentials in keyring")
	ErrNotConfigured  = errors.New("no stream server configured")
)

// RaceResultSchema names the schema confirmed results are encoded with
const RaceResultSchema = "race_result"

// schemas holds the field layout of every schema the client writes. The
// schema id is derived from this text so all clients agree on it.
var schemas = map[string]string{
	RaceResultSchema: "uint64 timestamp,address player,uint256 carId,uint256 score,uint256 distance," +
		"uint256 obstaclesAvoided,uint256 bonusCollected,string scope,bytes32 txHash",
}

// SchemaCache persists schema ids between runs
type SchemaCache interface {
	SchemaIDs(ctx context.Context) (map[string]string, error)
	SetSchemaIDs(ctx context.Context, ids map[string]string) error
}

// Sink is the transport a ready client publishes to
type Sink interface {
	Publish(subject string, data []byte) error
	Close()
}

// Dialer opens a sink with the credentials read from the keyring
type Dialer func(url, token string) (Sink, error)

// Message is the payload of one published result
type Message struct {
	SchemaID         string    `json:"schemaId"`
	Timestamp        time.Time `json:"timestamp"`
	TxHash           string    `json:"txHash"`
	Player           string    `json:"player"`
	CarID            uint64    `json:"carId"`
	Score            int       `json:"score"`
	Distance         int       `json:"distance"`
	ObstaclesAvoided int       `json:"obstaclesAvoided"`
	BonusCollected   int       `json:"bonusCollected"`
	Scope            string    `json:"scope,omitempty"`
	Reward           string    `json:"reward"`
}

// Client has the lifecycle Initialize, UpgradeWithCredentials, IsReady.
// Publishing before the client is ready is a no-op.
type Client struct {
	mu        sync.Mutex
	cache     SchemaCache
	dial      Dialer
	url       string
	subject   string
	service   string
	account   string
	now       func() time.Time
	logger    *log.Logger
	schemaIDs map[string]string
	sink      Sink
}

type Option func(*Client)

func WithSchemaCache(c SchemaCache) Option {
	return func(cl *Client) {
		cl.cache = c
	}
}

func WithDialer(d Dialer) Option {
	return func(cl *Client) {
		cl.dial = d
	}
}

// WithServer sets the stream server url and subject
func WithServer(url, subject string) Option {
	return func(cl *Client) {
		cl.url = url
		cl.subject = subject
	}
}

// WithKeyring sets where UpgradeWithCredentials looks for the token
func WithKeyring(service, account string) Option {
	return func(cl *Client) {
		cl.service = service
		cl.account = account
	}
}

func WithClock(now func() time.Time) Option {
	return func(cl *Client) {
		cl.now = now
	}
}

func WithLogger(l *log.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		dial:    NATSDialer,
		subject: "roadchain.results",
		service: "roadchain",
		account: "streams",
		now:     time.Now,
		logger:  log.Default().Named("streams"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SchemaID derives the id of a schema from its definition
func SchemaID(definition string) string {
	sum := sha256.Sum256([]byte(definition))
	return "0x" + hex.EncodeToString(sum[:])
}

// Initialize loads the schema id cache and registers missing schemas
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := map[string]string{}
	if c.cache != nil {
		cached, err := c.cache.SchemaIDs(ctx)
		if err != nil {
			return fmt.Errorf("load schema ids: %w", err)
		}
		for k, v := range cached {
			ids[k] = v
		}
	}
	dirty := false
	for name, def := range schemas {
		id := SchemaID(def)
		if ids[name] != id {
			ids[name] = id
			dirty = true
		}
	}
	if dirty && c.cache != nil {
		if err := c.cache.SetSchemaIDs(ctx, ids); err != nil {
			return fmt.Errorf("store schema ids: %w", err)
		}
	}
	c.schemaIDs = ids
	c.logger.Debug("stream schemas ready", log.Int("schemas", len(ids)))
	return nil
}

// UpgradeWithCredentials reads the stream token from the keyring and opens
// the sink
func (c *Client) UpgradeWithCredentials(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.schemaIDs == nil {
		return ErrNotInitialized
	}
	if c.url == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	token, err := keyring.Get(c.service, c.account)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNoCredentials
	}
	if err != nil {
		return fmt.Errorf("read stream credentials: %w", err)
	}
	sink, err := c.dial(c.url, token)
	if err != nil {
		return fmt.Errorf("connect stream: %w", err)
	}
	if c.sink != nil {
		c.sink.Close()
	}
	c.sink = sink
	c.logger.Info("stream ready", log.String("url", c.url), log.String("subject", c.subject))
	return nil
}

// IsReady reports whether results are published
func (c *Client) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schemaIDs != nil && c.sink != nil
}

// PublishResult implements submission.Publisher
func (c *Client) PublishResult(_ context.Context, txHash string, r chain.ResultSubmission) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.schemaIDs == nil || c.sink == nil {
		c.logger.Debug("stream not ready, result not published", log.String("tx", txHash))
		return nil
	}
	data, err := json.Marshal(Message{
		SchemaID:         c.schemaIDs[RaceResultSchema],
		Timestamp:        c.now().UTC(),
		TxHash:           txHash,
		Player:           r.Player,
		CarID:            r.CarID,
		Score:            r.Score,
		Distance:         r.Distance,
		ObstaclesAvoided: r.ObstaclesAvoided,
		BonusCollected:   r.BonusCollected,
		Scope:            r.ChallengeOrTournamentID,
		Reward:           r.Reward.String(),
	})
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := c.sink.Publish(c.subject, data); err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	return nil
}

// Close releases the sink
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sink != nil {
		c.sink.Close()
		c.sink = nil
	}
}

type natsSink struct {
	conn *nats.Conn
}

// NATSDialer connects to a NATS server authenticating with token
func NATSDialer(url, token string) (Sink, error) {
	conn, err := nats.Connect(url,
		nats.Name("roadchain"),
		nats.Token(token),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second))
	if err != nil {
		return nil, err
	}
	return &natsSink{conn: conn}, nil
}

func (s *natsSink) Publish(subject string, data []byte) error {
	return s.conn.Publish(subject, data)
}

func (s *natsSink) Close() {
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
	}
}
