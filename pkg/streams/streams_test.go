package streams

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/golangdaddy/roadchain/pkg/chain"
)

type memCache struct {
	ids    map[string]string
	writes int
}

func (m *memCache) SchemaIDs(context.Context) (map[string]string, error) {
	out := map[string]string{}
	for k, v := range m.ids {
		out[k] = v
	}
	return out, nil
}

func (m *memCache) SetSchemaIDs(_ context.Context, ids map[string]string) error {
	m.ids = ids
	m.writes++
	return nil
}

type fakeSink struct {
	subjects []string
	payloads [][]byte
	closed   bool
}

func (f *fakeSink) Publish(subject string, data []byte) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeSink) Close() { f.closed = true }

func newTestClient(cache SchemaCache, sink *fakeSink, token *string) *Client {
	return NewClient(
		WithSchemaCache(cache),
		WithServer("nats://localhost:4222", "results.test"),
		WithKeyring("roadchain-test", "streams"),
		WithClock(func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }),
		WithDialer(func(_ string, tok string) (Sink, error) {
			*token = tok
			return sink, nil
		}),
	)
}

func TestLifecycle(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	cache := &memCache{}
	sink := &fakeSink{}
	var token string
	c := newTestClient(cache, sink, &token)

	assert.False(t, c.IsReady())
	assert.ErrorIs(t, c.UpgradeWithCredentials(ctx), ErrNotInitialized)

	require.NoError(t, c.Initialize(ctx))
	assert.Equal(t, SchemaID(schemas[RaceResultSchema]), cache.ids[RaceResultSchema])
	assert.False(t, c.IsReady())

	assert.ErrorIs(t, c.UpgradeWithCredentials(ctx), ErrNoCredentials)

	require.NoError(t, keyring.Set("roadchain-test", "streams", "s3cret"))
	require.NoError(t, c.UpgradeWithCredentials(ctx))
	assert.True(t, c.IsReady())
	assert.Equal(t, "s3cret", token)

	c.Close()
	assert.True(t, sink.closed)
	assert.False(t, c.IsReady())
}

func TestInitialize_UsesCache(t *testing.T) {
	ctx := context.Background()
	cache := &memCache{ids: map[string]string{RaceResultSchema: SchemaID(schemas[RaceResultSchema])}}
	c := NewClient(WithSchemaCache(cache))

	require.NoError(t, c.Initialize(ctx))
	assert.Zero(t, cache.writes)

	cache.ids[RaceResultSchema] = "0xstale"
	require.NoError(t, c.Initialize(ctx))
	assert.Equal(t, 1, cache.writes)
}

func TestPublishResult(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	sink := &fakeSink{}
	var token string
	c := newTestClient(&memCache{}, sink, &token)
	r := chain.ResultSubmission{
		Player: "0xabc", CarID: 3, Score: 120, Distance: 800,
		ObstaclesAvoided: 18, BonusCollected: 1, ChallengeOrTournamentID: "daily:Mon Jan 01 2024",
		Reward: decimal.New(100, 18),
	}

	// not ready yet: silently skipped
	require.NoError(t, c.PublishResult(ctx, "0x01", r))
	assert.Empty(t, sink.payloads)

	require.NoError(t, c.Initialize(ctx))
	require.NoError(t, keyring.Set("roadchain-test", "streams", "tok"))
	require.NoError(t, c.UpgradeWithCredentials(ctx))
	require.NoError(t, c.PublishResult(ctx, "0x02", r))

	require.Len(t, sink.payloads, 1)
	assert.Equal(t, "results.test", sink.subjects[0])
	var msg Message
	require.NoError(t, json.Unmarshal(sink.payloads[0], &msg))
	assert.Equal(t, "0x02", msg.TxHash)
	assert.Equal(t, 120, msg.Score)
	assert.Equal(t, "100000000000000000000", msg.Reward)
	assert.Equal(t, SchemaID(schemas[RaceResultSchema]), msg.SchemaID)
}

func TestUpgrade_Errors(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	c := NewClient()
	require.NoError(t, c.Initialize(ctx))
	assert.ErrorIs(t, c.UpgradeWithCredentials(ctx), ErrNotConfigured)

	require.NoError(t, keyring.Set("roadchain", "streams", "tok"))
	boom := errors.New("connection refused")
	c = NewClient(WithServer("nats://nowhere:4222", "x"),
		WithDialer(func(string, string) (Sink, error) { return nil, boom }))
	require.NoError(t, c.Initialize(ctx))
	assert.ErrorIs(t, c.UpgradeWithCredentials(ctx), boom)
	assert.False(t, c.IsReady())
}
