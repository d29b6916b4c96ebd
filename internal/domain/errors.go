package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound         = errors.New("domain: not found")
	ErrConflict         = errors.New("domain: conflict")
	ErrUnauthorized     = errors.New("domain: unauthorized")
	ErrInvalidReference = errors.New("domain: invalid reference")
	ErrValidation       = errors.New("domain: validation failed")
	ErrRemoteFailure    = errors.New("domain: remote failure")
)

// RemoteReason classifies why a remote store call failed.
type RemoteReason string

const (
	ReasonNetwork   RemoteReason = "network"
	ReasonRejected  RemoteReason = "rejected"
	ReasonMalformed RemoteReason = "malformed"
)

// RemoteError is returned for every failed remote store call. It matches
// ErrRemoteFailure under errors.Is regardless of Reason.
type RemoteError struct {
	Op         string
	Reason     RemoteReason
	StatusCode int // transport status when the store answered, 0 otherwise
	Err        error
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("remote %s: %s", e.Op, e.Reason)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRemoteFailure}
	}
	return []error{ErrRemoteFailure, e.Err}
}

// NewRemoteError builds a RemoteError.
func NewRemoteError(op string, reason RemoteReason, statusCode int, err error) *RemoteError {
	return &RemoteError{Op: op, Reason: reason, StatusCode: statusCode, Err: err}
}

// RemoteReasonOf extracts the failure reason from err. Errors that are not a
// RemoteError report ReasonNetwork, since the store never answered.
func RemoteReasonOf(err error) RemoteReason {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ReasonNetwork
}
