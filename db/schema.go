// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the engine.
// Safe to call multiple times - uses IF NOT EXISTS.
// The SQL is kept portable between PostgreSQL and SQLite: timestamps are
// always bound explicitly, and upserts use ON CONFLICT.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Contests (organizer-owned configuration, read-only to the engine)
CREATE TABLE IF NOT EXISTS contest (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    kind TEXT NOT NULL DEFAULT 'vote' CHECK (kind IN ('vote', 'quiz', 'checkin')),
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'open', 'closed')),
    current_round INTEGER NOT NULL DEFAULT 1,
    max_targets INTEGER NOT NULL DEFAULT 3,
    verify_phone INTEGER NOT NULL DEFAULT 0,
    tally_shards INTEGER NOT NULL DEFAULT 1,
    closed_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contest_status ON contest(status);

-- Valid target set per contest
CREATE TABLE IF NOT EXISTS contest_target (
    contest_id TEXT NOT NULL REFERENCES contest(id) ON DELETE CASCADE,
    id TEXT NOT NULL,
    label TEXT NOT NULL,
    PRIMARY KEY (contest_id, id)
);

-- Participation ledger: exactly one committed row per (contest, round, identity).
-- The primary key is the duplicate guard; rows are immutable after insert.
CREATE TABLE IF NOT EXISTS participation (
    contest_id TEXT NOT NULL REFERENCES contest(id) ON DELETE CASCADE,
    round INTEGER NOT NULL,
    identity_key TEXT NOT NULL,
    id TEXT NOT NULL UNIQUE,
    tier TEXT NOT NULL,
    access_token TEXT NOT NULL,
    weight INTEGER NOT NULL DEFAULT 1,
    committed_at TIMESTAMP NOT NULL,
    PRIMARY KEY (contest_id, round, identity_key)
);

CREATE INDEX IF NOT EXISTS idx_participation_contest ON participation(contest_id, round);
CREATE INDEX IF NOT EXISTS idx_participation_access_token ON participation(access_token);

-- Accepted targets per ledger entry
CREATE TABLE IF NOT EXISTS participation_target (
    record_id TEXT NOT NULL REFERENCES participation(id) ON DELETE CASCADE,
    target_id TEXT NOT NULL,
    PRIMARY KEY (record_id, target_id)
);

CREATE INDEX IF NOT EXISTS idx_participation_target ON participation_target(target_id);

-- Aggregate counters, optionally sharded to spread write conflicts.
-- The counter value for a target is SUM(count) across its shards.
CREATE TABLE IF NOT EXISTS tally (
    contest_id TEXT NOT NULL REFERENCES contest(id) ON DELETE CASCADE,
    round INTEGER NOT NULL,
    target_id TEXT NOT NULL,
    shard INTEGER NOT NULL DEFAULT 0,
    count INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (contest_id, round, target_id, shard)
);

-- Token-indexed lookup mappings. Write-once: a token never repoints.
CREATE TABLE IF NOT EXISTS token_mapping (
    token TEXT PRIMARY KEY,
    record_id TEXT NOT NULL,
    contest_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

-- Session tokens issued by the external phone-verification collaborator.
-- The engine only reads and consumes them.
CREATE TABLE IF NOT EXISTS session_token (
    token TEXT PRIMARY KEY,
    contest_id TEXT NOT NULL,
    phone_hash TEXT NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    consumed_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_token_contest ON session_token(contest_id);
`
