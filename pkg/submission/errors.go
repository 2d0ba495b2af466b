package submission

import (
	"errors"
	"strings"

	"github.com/golangdaddy/roadchain/pkg/chain"
)

var (
	ErrRunTooShort        = errors.New("run too short for submission")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrAlreadySubmitted   = errors.New("result already submitted")
	ErrAutoSubmitDisabled = errors.New("auto submit disabled")
	ErrNoWallet           = errors.New("no wallet connected")
)

// Category groups submission failures into what the player is told
type Category int

const (
	CategoryNone Category = iota
	CategoryCancelledByUser
	CategoryInsufficientFunds
	CategoryAlreadyHasAsset
	CategoryGenericFailure
)

func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryCancelledByUser:
		return "cancelled-by-user"
	case CategoryInsufficientFunds:
		return "insufficient-funds"
	case CategoryAlreadyHasAsset:
		return "already-has-asset"
	default:
		return "generic-failure"
	}
}

// Message is the user facing text for the category
func (c Category) Message() string {
	switch c {
	case CategoryNone:
		return ""
	case CategoryCancelledByUser:
		return "Transaction cancelled in wallet."
	case CategoryInsufficientFunds:
		return "Insufficient funds to pay for gas."
	case CategoryAlreadyHasAsset:
		return "This reward was already claimed."
	default:
		return "Submission failed. You can retry from the results screen."
	}
}

// wallet providers report the same failures with different wordings
var categoryPhrases = []struct {
	category Category
	phrases  []string
}{
	{CategoryCancelledByUser, []string{"user rejected", "user denied", "rejected by user", "cancelled", "canceled"}},
	{CategoryInsufficientFunds, []string{"insufficient funds"}},
	{CategoryAlreadyHasAsset, []string{"already has", "already claimed", "already minted"}},
}

// Classify maps an error from the result channel to a Category
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, chain.ErrUserRejected):
		return CategoryCancelledByUser
	case errors.Is(err, chain.ErrInsufficientFunds):
		return CategoryInsufficientFunds
	case errors.Is(err, chain.ErrAlreadyHasAsset):
		return CategoryAlreadyHasAsset
	}
	msg := strings.ToLower(err.Error())
	for _, cp := range categoryPhrases {
		for _, p := range cp.phrases {
			if strings.Contains(msg, p) {
				return cp.category
			}
		}
	}
	return CategoryGenericFailure
}
