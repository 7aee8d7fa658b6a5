// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ratelimit provides the per-key fixed-window admission gate used on
the submission path.

The Limiter is independent of business state and takes an explicit Store
rather than holding hidden globals:

	store := ratelimit.NewMemoryStore()
	limiter := ratelimit.New(store, 10, time.Minute)
	res, err := limiter.Allow(ctx, "submit:c1:device-abc")

Two stores exist:

  - MemoryStore: mutex-guarded window counters with TTL sweeping. Per
    process; under horizontal scaling each instance admits its own quota,
    which is a documented best-effort tradeoff, not a defect.
  - RedisStore: a Lua INCR+PEXPIRE script keeps counting atomic across
    instances when shared state is wanted.

Denials carry RetryAfter, the time until the window rolls over.
*/
package ratelimit
