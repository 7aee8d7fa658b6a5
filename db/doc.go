// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation for the Turnstile engine.

# Schema

Tables:

  - contest: organizer-owned configuration (kind, status, round, bounds)
  - contest_target: valid target set per contest
  - participation: the ledger; PRIMARY KEY (contest_id, round, identity_key)
    is the duplicate guard
  - participation_target: accepted targets per ledger entry
  - tally: aggregate counters keyed (contest_id, round, target_id, shard)
  - token_mapping: write-once index from access token to record id
  - session_token: phone-verification tokens consumed by the engine

# Portability

The same schema runs on PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite):
timestamps are bound explicitly instead of defaulting to NOW(), booleans are
stored as integers, and counter updates use ON CONFLICT ... DO UPDATE.

# Key Constraints

  - participation (contest_id, round, identity_key) primary key: at most one
    committed participation per identity per round
  - participation.id unique: record ids are globally unique
  - token_mapping.token primary key: a token maps to exactly one record
*/
package db
