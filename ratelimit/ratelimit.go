// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of one admission check.
type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Store holds windowed request counters. Incr atomically increments the
// counter for key, starting a fresh window when none is active, and returns
// the post-increment count plus the time remaining in the window.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)
}

// Limiter is a fixed-window admission gate over an injectable Store.
// With the memory store, counters are per-process and therefore best-effort
// across independently scaled instances; the Redis store shares state.
type Limiter struct {
	store  Store
	limit  int64
	window time.Duration
}

// New creates a limiter allowing limit requests per key per window.
func New(store Store, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: int64(limit), window: window}
}

// Allow records one request against key and reports whether it is admitted.
// Once the window count exceeds the limit, requests are denied until the
// window rolls over; RetryAfter tells the caller when that happens.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	count, remaining, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return Result{}, err
	}

	if count > l.limit {
		return Result{Allowed: false, RetryAfter: remaining}, nil
	}
	return Result{Allowed: true, Remaining: l.limit - count}, nil
}

// MemoryStore is the in-process Store: a mutex-guarded map of window
// counters with periodic expiry sweeps. Counts are lost on restart and not
// shared between instances; that is an accepted tradeoff for this tier.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	stop    chan struct{}
}

type windowEntry struct {
	count  int64
	start  time.Time
	window time.Duration
}

// NewMemoryStore creates a memory store and starts its expiry sweeper.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*windowEntry),
		stop:    make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Incr implements Store. The mutex makes concurrent increments on the same
// key lose-free: the limit can never be exceeded by more than one request
// due to a race.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || now.Sub(e.start) >= window {
		s.entries[key] = &windowEntry{count: 1, start: now, window: window}
		return 1, window, nil
	}

	e.count++
	return e.count, e.start.Add(window).Sub(now), nil
}

// Close stops the expiry sweeper.
func (s *MemoryStore) Close() {
	close(s.stop)
}

// sweepSlack keeps just-expired entries around briefly so an Incr racing
// the sweep still sees its window roll over in one place.
const sweepSlack = time.Minute

// sweep drops entries whose own window ended more than sweepSlack ago.
// An entry mid-window is never evicted, whatever its window length.
func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.evictExpired(now)
		}
	}
}

func (s *MemoryStore) evictExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if now.Sub(e.start) > e.window+sweepSlack {
			delete(s.entries, key)
		}
	}
}
