package config

import "time"

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                   string        // path of the sqlite file for local persistence
	LogLevel             string        // sets the log level (zap log level values)
	LogFormat            string        // text vs json
	AutoSubmit           bool          // submit results on-chain automatically after each race
	PlayerAddress        string        // wallet address used by the devnet wallet
	MinSubmissionLapTime time.Duration // runs shorter than this are not submitted
	AutoReturnDelay      time.Duration // delay before returning to the menu after a confirmed submission
	ConfirmDelay         time.Duration // simulated confirmation time of the devnet chain
	SnapshotInterval     int           // frames between presentation snapshots
	NatsURL              string        // NATS server for the results stream (empty disables publishing)
	NatsSubject          string        // subject confirmed results are published to
	KeyringService       string        // keyring service holding the stream credentials
	KeyringAccount       string        // keyring account holding the stream credentials
	Seed                 int64         // RNG seed, 0 means time based
	Metrics              bool          // export otel metrics to stdout when the command ends
)
