// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"fmt"
	"time"
)

// Error codes surfaced to clients. Everything below the admission controller
// is normalized into one of these before crossing the HTTP boundary.
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeInvalidTarget        = "INVALID_TARGET"
	CodeInvalidRound         = "INVALID_ROUND"
	CodeContestNotFound      = "CONTEST_NOT_FOUND"
	CodeContestClosed        = "CONTEST_CLOSED"
	CodeVerificationRequired = "VERIFICATION_REQUIRED"
	CodeInvalidSession       = "INVALID_SESSION"
	CodeRateLimited          = "RATE_LIMITED"
	CodeDuplicateIdentity    = "DUPLICATE_IDENTITY"
	CodeAlreadyPlayed        = "ALREADY_PLAYED"
	CodeTransient            = "TRANSIENT"
)

// ValidationError covers malformed or out-of-range request fields.
// Terminal; never retried.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// EligibilityError covers requests that are well-formed but not admissible:
// closed phase, wrong round, unknown target. Terminal; never retried.
type EligibilityError struct {
	Code    string
	Message string
}

func (e *EligibilityError) Error() string {
	return e.Message
}

// RateLimitError is terminal for this attempt; the client may retry after
// RetryAfter.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return "rate limit exceeded"
}

// DuplicateIdentityError means this identity already holds a committed
// participation for the contest round. This is a correct terminal outcome,
// not a conflict; it is never retried.
type DuplicateIdentityError struct {
	Tier string
}

func (e *DuplicateIdentityError) Error() string {
	return "identity already participated"
}

// Code returns the wire vocabulary for the duplicate, which differs by
// identity tier to match existing client expectations.
func (e *DuplicateIdentityError) Code() string {
	if e.Tier == TierPhone {
		return CodeAlreadyPlayed
	}
	return CodeDuplicateIdentity
}

// TransientError means the commit could not complete within the bounded
// retry budget. No partial state is left; an identical resubmission is safe.
type TransientError struct {
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient store failure after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}
