// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP handlers for the Turnstile API.

The submission handler is a thin shell around admission.Engine: it parses
the wire request, derives the rate-limit client key, and maps the engine's
error taxonomy onto HTTP statuses. Organizer endpoints (contest lifecycle)
talk to the database directly and authenticate with the X-Admin-Key header.
The live handler streams counter deltas over Server-Sent Events.

Handlers use dependency injection, receiving what they need at construction
rather than relying on globals.
*/
package handlers
