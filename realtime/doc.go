// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package realtime provides best-effort fan-out of tally deltas to live
dashboards.

The Hub is decoupled from commit atomicity: deltas are published after the
transaction commits, delivery is non-blocking, and slow subscribers have
deltas dropped. Dashboards that miss a delta converge on the next tally
read; the database counters are always the source of truth.
*/
package realtime
