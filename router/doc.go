// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router wires the Turnstile HTTP API using Go 1.22+ method routing.

Routes split into organizer operations (contest lifecycle, authenticated by
X-Admin-Key and throttled per IP), public participant operations
(submissions, tallies, token resolution), and the SSE live feed.
*/
package router
