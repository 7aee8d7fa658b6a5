// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tokenmap

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a token resolves to no record.
var ErrNotFound = errors.New("token not found")

// RecordRef identifies the ledger entry owned by a token.
type RecordRef struct {
	RecordID    string
	ContestID   string
	Round       int
	Tier        string
	IdentityKey string
}

// Resolver maps opaque access tokens to their owning ledger entries.
//
// Lookup is two-tier: the token_mapping table is consulted first; on a miss
// the participation table itself is queried by its indexed access_token
// column, which covers records created before proactive mapping existed.
// A fallback hit writes the mapping back, so the fallback query runs at
// most once per token. Mappings are write-once: a token never repoints.
type Resolver struct {
	db *sql.DB
}

func NewResolver(db *sql.DB) *Resolver {
	return &Resolver{db: db}
}

// ValidFormat reports whether token matches the fixed 32-hex wire format.
// Malformed tokens are rejected here, before any store access.
func ValidFormat(token string) bool {
	if len(token) != 32 {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// ResolveToken resolves token to its owning record, or ErrNotFound.
func (r *Resolver) ResolveToken(ctx context.Context, token string) (*RecordRef, error) {
	if !ValidFormat(token) {
		return nil, ErrNotFound
	}

	ref, err := r.lookupDirect(ctx, token)
	if err == nil {
		return ref, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	return r.lookupFallbackAndBackfill(ctx, token)
}

// lookupDirect is the tier-1 path: a single read through token_mapping.
func (r *Resolver) lookupDirect(ctx context.Context, token string) (*RecordRef, error) {
	var ref RecordRef
	err := r.db.QueryRowContext(ctx, `
		SELECT p.id, p.contest_id, p.round, p.tier, p.identity_key
		FROM token_mapping m
		JOIN participation p ON p.id = m.record_id
		WHERE m.token = $1
	`, token).Scan(&ref.RecordID, &ref.ContestID, &ref.Round, &ref.Tier, &ref.IdentityKey)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// lookupFallbackAndBackfill is the tier-2 path: an indexed query against
// the ledger itself, followed by a write-once backfill of the mapping so
// the next lookup takes tier 1.
func (r *Resolver) lookupFallbackAndBackfill(ctx context.Context, token string) (*RecordRef, error) {
	var ref RecordRef
	err := r.db.QueryRowContext(ctx, `
		SELECT id, contest_id, round, tier, identity_key
		FROM participation
		WHERE access_token = $1
		LIMIT 1
	`, token).Scan(&ref.RecordID, &ref.ContestID, &ref.Round, &ref.Tier, &ref.IdentityKey)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// ON CONFLICT DO NOTHING keeps the mapping write-once even if two
	// fallback lookups race: the first insert wins, and both point at the
	// same record anyway.
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO token_mapping (token, record_id, contest_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token) DO NOTHING
	`, token, ref.RecordID, ref.ContestID, time.Now())
	if err != nil {
		// The lookup itself succeeded; a failed backfill only means the
		// next lookup repeats the fallback query.
		return &ref, nil
	}

	return &ref, nil
}
