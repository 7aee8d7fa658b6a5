// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"sync"
)

// Delta is one counter movement on a live feed.
type Delta struct {
	ContestID string `json:"contest_id"`
	TargetID  string `json:"target_id"`
	Delta     int64  `json:"delta"`
	Count     int64  `json:"count"`
}

// Hub fans counter deltas out to live-dashboard subscribers. Publishing is
// fire-and-forget: a slow or absent subscriber never blocks the publisher,
// and a dropped delta is harmless because the tally table remains the
// source of truth.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// Subscription receives deltas for one contest on C until Close is called.
type Subscription struct {
	C chan Delta

	hub       *Hub
	contestID string
	once      sync.Once
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers a listener for a contest's deltas. The channel is
// buffered; deltas beyond the buffer are dropped for that subscriber.
func (h *Hub) Subscribe(contestID string) *Subscription {
	sub := &Subscription{
		C:         make(chan Delta, 16),
		hub:       h,
		contestID: contestID,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[contestID] == nil {
		h.subs[contestID] = make(map[*Subscription]struct{})
	}
	h.subs[contestID][sub] = struct{}{}

	return sub
}

// Close removes the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()

		delete(s.hub.subs[s.contestID], s)
		if len(s.hub.subs[s.contestID]) == 0 {
			delete(s.hub.subs, s.contestID)
		}
		close(s.C)
	})
}

// Subscribers reports the number of active subscriptions for a contest.
func (h *Hub) Subscribers(contestID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[contestID])
}

// Publish delivers d to every subscriber of its contest without blocking.
func (h *Hub) Publish(d Delta) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[d.ContestID] {
		select {
		case sub.C <- d:
		default:
			// Subscriber is behind; drop rather than block the commit path
		}
	}
}
