// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the request, response, and domain types shared across
the Turnstile API, plus the error taxonomy.

# Domain Types

  - Contest: organizer-owned configuration (kind, phase, round, target bounds)
  - Target: a member of a contest's valid target set
  - Participation: one immutable ledger entry per (contest, round, identity)
  - Identity: the canonical identity key resolved for a submission

# Error Taxonomy

Failures below the admission controller are normalized into exactly one of:

  - ValidationError: malformed fields → 400, never retried
  - EligibilityError: closed phase, bad round/target → 400, never retried
  - RateLimitError: → 429 with a retry-after hint
  - DuplicateIdentityError: → 403, terminal and correct, never retried
  - TransientError: retry budget exhausted → 503, safe to resubmit

DuplicateIdentityError.Code() returns DUPLICATE_IDENTITY for device-tier
contests and ALREADY_PLAYED for phone-verified contests; existing clients
expect both vocabularies.
*/
package models
