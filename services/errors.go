// services/errors.go
package services

import (
	"errors"
	"fmt"
)

// Kind groups engine errors the way the adapters report them.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindBusinessRule
	KindExternalService
	KindInputInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindBusinessRule:
		return "business_rule"
	case KindExternalService:
		return "external_service"
	case KindInputInvalid:
		return "input_invalid"
	default:
		return "internal"
	}
}

var (
	ErrAccountNotFound = errors.New("rewards: account not found")

	ErrNoGemsAvailable       = errors.New("rewards: no gems to claim")
	ErrDailyLimitReached     = errors.New("rewards: daily gem claim limit reached")
	ErrNoReferralDataToday   = errors.New("rewards: no referrals recorded today")
	ErrThresholdNotMet       = errors.New("rewards: referral threshold not met")
	ErrVoucherAlreadyClaimed = errors.New("rewards: voucher already claimed today")
	ErrAlreadyVerified       = errors.New("rewards: account already verified")
	ErrNotQualified          = errors.New("rewards: task requirements not met")
	ErrDuplicateImpression   = errors.New("rewards: ad impression already rewarded")
	ErrNegativeBalance       = errors.New("rewards: update would make a counter negative")

	ErrVerificationUnavailable = errors.New("rewards: verification service unavailable")

	ErrInputInvalid = errors.New("rewards: invalid input")
	ErrUnknownTask  = fmt.Errorf("%w: unknown task", ErrInputInvalid)
	ErrUnknownTier  = fmt.Errorf("%w: unknown voucher type", ErrInputInvalid)
)

// NotQualifiedError carries the observed value and the required threshold.
type NotQualifiedError struct {
	TaskID   string
	Observed float64
	Required float64
}

func (e *NotQualifiedError) Error() string {
	return fmt.Sprintf("rewards: task %s not qualified: balance %s, required %s",
		e.TaskID, formatAmount(e.Observed), formatAmount(e.Required))
}

// UserMessage is the text shown in the mini-app.
func (e *NotQualifiedError) UserMessage() string {
	return fmt.Sprintf("Your balance is %s, but at least %s is required to complete this task.",
		formatAmount(e.Observed), formatAmount(e.Required))
}

func (e *NotQualifiedError) Unwrap() error {
	return ErrNotQualified
}

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrAccountNotFound):
		return KindNotFound
	case errors.Is(err, ErrInputInvalid):
		return KindInputInvalid
	case errors.Is(err, ErrVerificationUnavailable):
		return KindExternalService
	case errors.Is(err, ErrNoGemsAvailable),
		errors.Is(err, ErrDailyLimitReached),
		errors.Is(err, ErrNoReferralDataToday),
		errors.Is(err, ErrThresholdNotMet),
		errors.Is(err, ErrVoucherAlreadyClaimed),
		errors.Is(err, ErrAlreadyVerified),
		errors.Is(err, ErrNotQualified),
		errors.Is(err, ErrDuplicateImpression),
		errors.Is(err, ErrNegativeBalance):
		return KindBusinessRule
	default:
		return KindInternal
	}
}

func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
