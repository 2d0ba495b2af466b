// Package chain declares the blockchain collaborators the game talks to.
// The engine only reads cars and hands finished results to a ResultChannel.
package chain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/golangdaddy/roadchain/pkg/models/car"
)

var (
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrUserRejected       = errors.New("user rejected the request")
	ErrInsufficientFunds  = errors.New("insufficient funds for gas")
	ErrAlreadyHasAsset    = errors.New("already has asset")
	ErrCarNotFound        = errors.New("car not found")
)

// Wallet is the connected account
type Wallet interface {
	Address() string
	IsConnected() bool
}

// CarRegistry reads the NFT cars of an owner
type CarRegistry interface {
	ListOwnedCars(ctx context.Context, owner string) ([]*car.CarProfile, error)
	GetCarDetails(ctx context.Context, id uint64) (*car.CarProfile, error)
}

// ResultSubmission is the payload of one on-chain race result
type ResultSubmission struct {
	Player           string
	CarID            uint64
	Score            int
	Distance         int
	ObstaclesAvoided int
	BonusCollected   int
	// ChallengeOrTournamentID scopes the result, empty for a free run
	ChallengeOrTournamentID string
	// Reward in token base units, zero when no challenge was completed
	Reward decimal.Decimal
}

// TxHandle is a submitted transaction whose confirmation is observed later
type TxHandle interface {
	Hash() string
	// Wait blocks until the transaction is confirmed or failed
	Wait(ctx context.Context) error
}

// ResultChannel accepts race results for on-chain submission
type ResultChannel interface {
	SubmitResult(ctx context.Context, r ResultSubmission) (TxHandle, error)
}
