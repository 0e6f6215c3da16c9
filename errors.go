package photoshare

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrAcquisitionFailure    = errors.New("acquisition failure")
	ErrBudgetUnreachable     = errors.New("budget unreachable")
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	ErrHostRejection         = errors.New("host rejection")
	// ErrUserCancelled is returned by hosts when the user dismisses a share
	// dialog or a confirmation gate. It is never reported as a failure.
	ErrUserCancelled = errors.New("user cancelled")
)

// Gallery link errors.
var (
	ErrGalleryNotFound = errors.New("gallery not found")
	ErrGalleryExpired  = errors.New("gallery expired")
	ErrGalleryExists   = errors.New("gallery already exists")
)

// Error is a classified pipeline failure.
type Error struct {
	Kind    error
	Op      string
	PhotoID string
	Err     error
}

// NewError classifies err under kind.
func NewError(kind error, op, photoID string, err error) *Error {
	return &Error{Kind: kind, Op: op, PhotoID: photoID, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.PhotoID != "" {
		msg = fmt.Sprintf("%s (photo %s)", msg, e.PhotoID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the error kind sentinel err matches, or nil.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrUserCancelled,
		ErrCapabilityUnavailable,
		ErrBudgetUnreachable,
		ErrAcquisitionFailure,
		ErrHostRejection,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsCancelled reports whether err is a user cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrUserCancelled)
}
