package race

import "errors"

var (
	ErrNoCar          = errors.New("no car selected")
	ErrCarStaked      = errors.New("car is staked")
	ErrAlreadyRunning = errors.New("session already running")
	ErrTornDown       = errors.New("session torn down")
	ErrNotRunning     = errors.New("session not running")
)
