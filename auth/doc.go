// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides token generation and key validation for Turnstile.

# Token Types

  - Record IDs: random hex via GenerateID
  - Access tokens: 32-hex participant tokens via GenerateAccessToken
  - Admin keys: deterministic HMAC of the contest ID via GenerateAdminKey,
    verified with constant-time comparison

# Hashing

  - HashPhone: full HMAC-SHA256 hex digest, used as the strong-tier
    identity key
  - HashIP: truncated salted hash for privacy-preserving client keys

Salts come from configuration (cliparse) and must be kept secret; rotating a
salt invalidates all previously issued admin keys and phone identity keys.
*/
package auth
