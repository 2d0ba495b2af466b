package lifecycle

import "errors"

var (
	ErrWalletNotConnected = errors.New("connect your wallet to race")
	ErrNoCarSelected      = errors.New("select a car to race")
	ErrCarStaked          = errors.New("staked cars cannot race")
	ErrChallengeCompleted = errors.New("today's challenge is already completed")
	ErrNotInMenu          = errors.New("a race is already in progress")
	ErrNotGameOver        = errors.New("no finished race")
)
