package usecase

import (
	"errors"
	"fmt"
)

// Kind classifies a usecase failure. The set is closed; transports map each
// Kind to their own status codes.
type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth"
	default:
		return "unexpected"
	}
}

// Error is returned by every usecase operation. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	ErrUserAlreadyExists  = &Error{Kind: KindConflict, Message: "User already exists with this email"}
	ErrUserNotFound       = &Error{Kind: KindNotFound, Message: "User not found"}
	ErrInvalidCredentials = &Error{Kind: KindAuth, Message: "Invalid email or password"}
	ErrInvalidOTP         = &Error{Kind: KindAuth, Message: "Invalid or expired OTP"}
)

func validationError(err error) error {
	return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
}

func unexpectedError(op string, err error) error {
	return &Error{Kind: KindUnexpected, Message: "Internal Server Error", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf returns the Kind of err. Errors not produced by this package are unexpected.
func KindOf(err error) Kind {
	var uerr *Error
	if errors.As(err, &uerr) {
		return uerr.Kind
	}
	return KindUnexpected
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var uerr *Error
	if errors.As(err, &uerr) && uerr.Kind != KindUnexpected {
		return uerr.Message
	}
	return "Internal Server Error"
}
