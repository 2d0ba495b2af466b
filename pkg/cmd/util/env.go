// Package util builds the collaborators shared by the roadchain commands.
package util

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/golangdaddy/roadchain/log"
	"github.com/golangdaddy/roadchain/pkg/chain/devnet"
	"github.com/golangdaddy/roadchain/pkg/config"
	"github.com/golangdaddy/roadchain/pkg/store"
	"github.com/golangdaddy/roadchain/pkg/streams"
	"github.com/golangdaddy/roadchain/pkg/submission"
	"github.com/golangdaddy/roadchain/pkg/telemetry"
)

// Env holds the opened store, the devnet chain and the results stream
type Env struct {
	Store     *store.SQLiteStore
	Chain     *devnet.Chain
	Streams   *streams.Client
	telemetry *telemetry.Telemetry
}

// InitLogging configures the default logger from the resolved flags
func InitLogging() error {
	if err := log.InitLogger(config.LogLevel, config.LogFormat); err != nil {
		return fmt.Errorf("invalid log level %q: %w", config.LogLevel, err)
	}
	return nil
}

// OpenStore opens the durable store configured with --db
func OpenStore() (*store.SQLiteStore, error) {
	st, err := store.Open(config.DB)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", config.DB, err)
	}
	return st, nil
}

// Setup opens everything a race needs. Stream failures only disable
// publishing.
func Setup(ctx context.Context) (*Env, error) {
	if err := InitLogging(); err != nil {
		return nil, err
	}
	env := &Env{}
	if config.Metrics {
		t, err := telemetry.SetupStdout(os.Stdout)
		if err != nil {
			return nil, err
		}
		env.telemetry = t
	}

	st, err := OpenStore()
	if err != nil {
		return nil, err
	}
	env.Store = st

	env.Chain = devnet.New(config.PlayerAddress, devnet.WithConfirmDelay(config.ConfirmDelay))
	env.Chain.Mint(config.PlayerAddress, devnet.DefaultFleet()...)

	env.Streams = streams.NewClient(
		streams.WithSchemaCache(st),
		streams.WithServer(config.NatsURL, config.NatsSubject),
		streams.WithKeyring(config.KeyringService, config.KeyringAccount),
	)
	if err := env.Streams.Initialize(ctx); err != nil {
		log.Warn("stream schemas not initialized", log.ErrorField(err))
		return env, nil
	}
	if err := env.Streams.UpgradeWithCredentials(ctx); err != nil {
		if errors.Is(err, streams.ErrNotConfigured) {
			log.Debug("no stream server configured")
		} else {
			log.Warn("results will not be streamed", log.ErrorField(err))
		}
	}
	return env, nil
}

// BridgeOptions configure the submission bridge from the resolved flags
func (e *Env) BridgeOptions() []submission.Option {
	return []submission.Option{
		submission.WithMinLapTime(config.MinSubmissionLapTime),
		submission.WithPublisher(e.Streams),
	}
}

// Close releases the stream and the store and flushes metrics
func (e *Env) Close(ctx context.Context) {
	if e.Streams != nil {
		e.Streams.Close()
	}
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			log.Warn("close store", log.ErrorField(err))
		}
	}
	if err := e.telemetry.Shutdown(ctx); err != nil {
		log.Warn("flush metrics", log.ErrorField(err))
	}
	//nolint:errcheck // stderr sync fails on some terminals
	log.Sync()
}
