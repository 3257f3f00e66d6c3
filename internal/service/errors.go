package service

import (
	"errors"
	"fmt"
)

// ValidationError rejects a request before any store call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

var (
	ErrEmptyContent         = &ValidationError{Reason: "message content cannot be empty"}
	ErrNoOpenConversation   = &ValidationError{Reason: "no conversation is open"}
	ErrInvalidPartner       = &ValidationError{Reason: "partner must be another user"}
	ErrMissingUser          = &ValidationError{Reason: "user id cannot be empty"}
	ErrMissingUsername      = &ValidationError{Reason: "username cannot be empty"}
	ErrInvalidStatus        = &ValidationError{Reason: "unknown presence status"}
	ErrEmptyUpdate          = &ValidationError{Reason: "nothing to update"}
	ErrConversationSwitched = errors.New("conversation switched while the request was in flight")
)

// StoreError reports a failure of the message store collaborator. It is never
// swallowed by this package.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsStore reports whether err is (or wraps) a *StoreError.
func IsStore(err error) bool {
	var s *StoreError
	return errors.As(err, &s)
}
