// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package admission is the core of Turnstile: it decides whether a submission
is admitted and guarantees each identity is counted at most once per
contest round.

# Pipeline

	Engine.Submit → validate → rate limit → resolve identity → commit

Validation and eligibility checks run before any shared state is touched.
The commit is a single transaction that read-checks the ledger key, inserts
the participation record, bumps the aggregate counters, writes the token
mapping, and consumes the session token when verified.

# Concurrency

The ledger's (contest_id, round, identity_key) primary key is the duplicate
guard. Under serializable isolation a losing concurrent transaction aborts
with a serialization failure (retried) or a unique violation (reported as a
duplicate, which is the correct terminal outcome). Counter contention is
optionally spread across tally shards; reads sum the shards.

# Retry

Conflicted transactions are retried by an explicit bounded state machine
(Attempt → Backoff → Exhausted) with jittered exponential delays. A spent
budget surfaces as TransientError with the attempt count; no partial state
is ever visible, so clients may resubmit the identical request.
*/
package admission
