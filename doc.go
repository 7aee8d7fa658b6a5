// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Turnstile API server.

Turnstile is a participation admission engine for QR-code contests
(audience votes, pub quizzes, event check-ins): it decides whether a
submission is admitted and guarantees each identity is counted at most
once per contest round, even under concurrent and repeated submission.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=postgres://... go run main.go

Or with flags:

	go run main.go -p 3380 -d "postgres://..." -t postgres

# Configuration

Required settings:

  - DATABASE_URL (-d): PostgreSQL connection string (or SQLite path)
  - ADMIN_KEY_SALT (--admin-salt): Secret for admin key HMAC
  - PHONE_HASH_SALT (--phone-salt): Secret for hashing verified phone numbers

Optional settings:

  - PORT (-p): Server port (default: 3380)
  - DATABASE_TYPE (-t): sqlite or postgres (default: postgres)
  - RATE_LIMIT / RATE_WINDOW: Submission limiter (default: 10 per minute)
  - REDIS_ADDR (--redis): Shared rate-limit state for multi-instance setups

# Architecture

The server uses a handler-based architecture with dependency injection:

  - admission: Admission pipeline and duplicate-guarded commit
  - identity: Identity resolution (device tier, verified phone tier)
  - ratelimit: Fixed-window submission limiter (memory or Redis store)
  - tokenmap: Access-token to record resolution with backfill
  - realtime: Counter delta fan-out for live dashboards
  - handlers: HTTP request handlers
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, per-IP throttling, JSON helpers
  - models: Request/response types and the error taxonomy
  - auth: Token generation, admin keys, identity hashing
  - db: Schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
