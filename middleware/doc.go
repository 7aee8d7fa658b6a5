// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helpers for the Turnstile API.

# Helpers

  - WithLogging: request start/completion logging via slog
  - JSONResponse / ErrorResponse: JSON writing with consistent shapes
  - ParseJSONBody: request body decoding
  - CORS: cross-origin support for contest frontends
  - GetClientIP: client IP extraction behind proxies

# IPLimiter

IPLimiter is a coarse per-IP token bucket (golang.org/x/time/rate) used on
the organizer routes. Submission traffic is rate limited separately by the
ratelimit package, which exposes windowed retry-after semantics to clients.
*/
package middleware
