package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/calehh/hac-dao/crypto"
)

// Error kinds. Every failure returned by a Client carries exactly one.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUserDeclined = errors.New("user declined to sign")
	ErrLedgerRevert = errors.New("ledger rejected transaction")
	ErrNetwork      = errors.New("ledger unreachable")
)

var (
	ErrNoSigner     = errors.New("no member key configured")
	ErrMayStillLand = errors.New("stopped waiting for confirmation, the transaction may still be committed")
)

type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Reason is the message shown to users: the revert reason when the ledger
// gave one, otherwise the cause text.
func (e *Error) Reason() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return ExtractReason(e.Err.Error())
}

func NewError(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func Validationf(op, format string, args ...any) *Error {
	return &Error{Op: op, Kind: ErrValidation, Err: fmt.Errorf(format, args...)}
}

func revertError(op, log string) *Error {
	return &Error{Op: op, Kind: ErrLedgerRevert, Err: errors.New(log)}
}

// Classify wraps a transport or signer failure with its kind. Errors that
// already carry a kind are returned unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	switch {
	case errors.Is(err, crypto.ErrDeclined):
		return NewError(op, ErrUserDeclined, err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(op, ErrNetwork, fmt.Errorf("%w: %w", ErrMayStillLand, err))
	default:
		return NewError(op, ErrNetwork, err)
	}
}

// Kind returns the kind carried by err, or nil.
func Kind(err error) error {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return nil
}

func Reason(err error) string {
	if err == nil {
		return ""
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Reason()
	}
	return ExtractReason(err.Error())
}
