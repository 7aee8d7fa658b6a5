// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package admission

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/lib/pq"

	"github.com/eventloophq/turnstile/models"
)

// RetryPolicy bounds the commit retry loop. Delays grow exponentially from
// InitialBackoff to MaxBackoff with jitter applied by backoff/v5.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    5,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     250 * time.Millisecond,
	}
}

// The retry loop is an explicit state machine so the attempt/backoff
// transitions stay testable: Attempt runs the transaction, Backoff waits a
// jittered delay, Exhausted converts the last error into a TransientError.
type retryPhase int

const (
	phaseAttempt retryPhase = iota
	phaseBackoff
	phaseExhausted
)

// run invokes attempt until it succeeds, fails terminally, or the budget is
// spent. Only errors classified retryable (serialization failures, lock
// contention) trigger another attempt; everything else returns unchanged.
// Context cancellation counts as transient: the transaction is all-or-
// nothing, so the caller may safely resubmit.
func (p RetryPolicy) run(ctx context.Context, attempt func(context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialBackoff
	bo.MaxInterval = p.MaxBackoff

	var lastErr error
	attempts := 0
	phase := phaseAttempt

	for {
		switch phase {
		case phaseAttempt:
			attempts++
			lastErr = attempt(ctx)

			switch {
			case lastErr == nil:
				return nil
			case errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded):
				phase = phaseExhausted
			case !retryable(lastErr):
				return lastErr
			case attempts >= p.MaxAttempts:
				phase = phaseExhausted
			default:
				phase = phaseBackoff
			}

		case phaseBackoff:
			timer := time.NewTimer(bo.NextBackOff())
			select {
			case <-ctx.Done():
				timer.Stop()
				lastErr = ctx.Err()
				phase = phaseExhausted
			case <-timer.C:
				phase = phaseAttempt
			}

		case phaseExhausted:
			return &models.TransientError{Attempts: attempts, Err: lastErr}
		}
	}
}

// retryable reports whether err is a store conflict worth another attempt.
// Postgres signals these via SQLSTATE; SQLite surfaces lock contention as
// busy/locked errors with no structured code.
func retryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
			return true
		}
		return false
	}

	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// uniqueViolation reports whether err is a unique-constraint failure, which
// on the ledger insert means a concurrent commit for the same identity won.
func uniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
