package leads

import (
	"errors"
	"fmt"
)

var (
	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")

	// ErrPhoneChannelNotStored is returned when a phone-call intent reaches the store
	ErrPhoneChannelNotStored = errors.New("leads: phone contact method is redirect-only")

	// ErrInvalidStatus is returned for an unknown lead status
	ErrInvalidStatus = errors.New("leads: invalid status")
)

// ValidationError names the first field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StoreError wraps a persistence failure. The lead must not be assumed to exist.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("leads: %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
