// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package identity resolves the canonical identity key for a submission.

Two tiers exist, selected by contest configuration:

  - Anonymous: key = device id as asserted by the client. Weak and spoofable
    by design; duplicate detection on this tier is best-effort.
  - Verified: key = HMAC hash of the phone number, admitted only with a
    valid session token issued by the external verification collaborator,
    scoped to the contest and bound to the phone.

The resolver never stores identity keys on its own; they exist only inside
ledger entries written by the commit transaction.
*/
package identity
