package services

import "errors"

var (
	ErrProfileMissing = errors.New("profile missing")
	ErrInvalidData    = errors.New("invalid data")
	ErrIOFailure      = errors.New("io failure")
)

// StoreError carries a human-readable message for one of the store error kinds.
// errors.Is matches it against ErrProfileMissing, ErrInvalidData or ErrIOFailure.
type StoreError struct {
	Kind    error
	Message string
}

func (err *StoreError) Error() string {
	if err.Message == "" {
		return err.Kind.Error()
	}
	return err.Message
}

func (err *StoreError) Unwrap() error {
	return err.Kind
}

func newStoreError(kind error, message string) *StoreError {
	return &StoreError{Kind: kind, Message: message}
}
