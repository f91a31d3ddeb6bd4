// Package errs defines the error kinds shared by every domain package.
//
// Domain sentinels wrap exactly one kind so that transport layers can map
// failures without knowing every domain error:
//
//	var ErrSoldOut = errs.New(errs.ErrSoldOut, "listing sold out")
package errs

import "github.com/go-faster/errors"

var (
	// ErrNotFound is returned when a referenced order, listing or profile is absent.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when the actor is not the buyer or seller of the entity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidState is returned when an operation is not legal for the current status.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidRequest is returned for business-rule violations at input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrConflict is returned when the write would duplicate an existing record.
	ErrConflict = errors.New("conflict")
	// ErrSoldOut is returned when no stock remains.
	ErrSoldOut = errors.New("sold out")
	// ErrExpired is returned when a listing is past its end time.
	ErrExpired = errors.New("expired")
	// ErrSignatureInvalid is returned for callbacks that fail authentication.
	ErrSignatureInvalid = errors.New("signature invalid")
	// ErrUnavailable is returned when an external collaborator cannot be reached.
	ErrUnavailable = errors.New("unavailable")
)

// Error is a domain error of a given kind. Its message is shown to callers
// as is; errors.Is matches both the error itself and its kind.
type Error struct {
	Kind error
	Msg  string
}

// New returns a domain error of the given kind.
func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }
