package incentive

import (
	"github.com/pkg/errors"
)

var (
	ErrUnauthorized       = errors.New("caller is not the owner")
	ErrIncentiveTimeout   = errors.New("incentive timeout")
	ErrAlreadyClaimed     = errors.New("incentive already claimed")
	ErrIncorrectLength    = errors.New("incorrect deposit data length")
	ErrDepositRejected    = errors.New("deposit rejected")
	ErrDistributorFailure = errors.New("reward distributor failure")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrLengthMismatch     = errors.New("addresses and amounts length mismatch")
)

// kindError tags a collaborator failure with one of the package error kinds.
// errors.Is matches both the kind and the collaborator's own error chain.
type kindError struct {
	kind  error
	cause error
}

func withKind(kind, cause error) error {
	return &kindError{kind: kind, cause: cause}
}

func (e *kindError) Error() string {
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *kindError) Is(target error) bool {
	return target == e.kind
}

func (e *kindError) Unwrap() error {
	return e.cause
}

// Reason returns a short label for err, used as a metric label and in logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrIncentiveTimeout):
		return "incentive_timeout"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrIncorrectLength):
		return "incorrect_length"
	case errors.Is(err, ErrDepositRejected):
		return "deposit_rejected"
	case errors.Is(err, ErrDistributorFailure):
		return "distributor_failure"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, ErrLengthMismatch):
		return "length_mismatch"
	default:
		return "error"
	}
}
