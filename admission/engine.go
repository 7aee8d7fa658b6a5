// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package admission

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/eventloophq/turnstile/auth"
	"github.com/eventloophq/turnstile/identity"
	"github.com/eventloophq/turnstile/models"
	"github.com/eventloophq/turnstile/ratelimit"
	"github.com/eventloophq/turnstile/realtime"
)

// Engine decides, for each incoming submission, whether it is admitted, and
// commits admitted submissions exactly once. All dependencies are injected;
// the engine holds no hidden global state.
type Engine struct {
	db      *sql.DB
	limiter *ratelimit.Limiter
	ids     *identity.Resolver
	hub     *realtime.Hub

	// Retry governs the bounded retry of the commit transaction. Exposed so
	// tests can tighten the budget.
	Retry RetryPolicy
}

func NewEngine(db *sql.DB, limiter *ratelimit.Limiter, ids *identity.Resolver, hub *realtime.Hub) *Engine {
	return &Engine{
		db:      db,
		limiter: limiter,
		ids:     ids,
		hub:     hub,
		Retry:   DefaultRetryPolicy(),
	}
}

// Result is an accepted submission.
type Result struct {
	RecordID    string
	AccessToken string
	Votes       int
	NewCounts   map[string]int64
}

// Submit runs the full admission pipeline for one request: validation, rate
// limiting, identity resolution, then the duplicate-guarded commit. Errors
// are always one of the models taxonomy types. clientKey scopes the rate
// limit (device id, falling back to a hashed client IP at the handler).
//
// On acceptance the tally deltas are published to the live feed; publishing
// is fire-and-forget and never affects the returned decision.
func (e *Engine) Submit(ctx context.Context, req models.SubmitRequest, clientKey string) (*Result, error) {
	// Cheap rejection path: validate everything before touching shared state
	if len(req.TargetIDs) == 0 {
		return nil, &models.ValidationError{Code: models.CodeInvalidRequest, Message: "targetIds cannot be empty"}
	}

	contest, targetSet, err := e.loadContest(ctx, req.ContestID)
	if err != nil {
		return nil, err
	}

	if err := validate(contest, targetSet, req); err != nil {
		return nil, err
	}

	if err := e.checkRate(ctx, contest.ID, clientKey); err != nil {
		return nil, err
	}

	ident, err := e.ids.Resolve(ctx, contest, req.IdentityID, req.Phone, req.SessionToken)
	if err != nil {
		return nil, err
	}

	res, err := e.commit(ctx, contest, ident, req.TargetIDs, req.SessionToken)
	if err != nil {
		return nil, err
	}

	if e.hub != nil {
		for _, targetID := range req.TargetIDs {
			e.hub.Publish(realtime.Delta{
				ContestID: contest.ID,
				TargetID:  targetID,
				Delta:     1,
				Count:     res.NewCounts[targetID],
			})
		}
	}

	slog.Info("submission accepted",
		"contest_id", contest.ID,
		"round", contest.CurrentRound,
		"record_id", res.RecordID,
		"tier", ident.Tier,
		"votes", res.Votes,
	)

	return res, nil
}

// loadContest reads the contest configuration and its valid target set.
// The kind tag is validated exhaustively here; an unknown kind means the
// configuration is corrupt and nothing downstream may trust it.
func (e *Engine) loadContest(ctx context.Context, contestID string) (*models.Contest, map[string]bool, error) {
	if contestID == "" {
		return nil, nil, &models.ValidationError{Code: models.CodeInvalidRequest, Message: "contestId is required"}
	}

	var c models.Contest
	var verifyPhone int
	err := e.db.QueryRowContext(ctx, `
		SELECT id, title, kind, status, current_round, max_targets, verify_phone, tally_shards, created_at
		FROM contest WHERE id = $1
	`, contestID).Scan(
		&c.ID, &c.Title, &c.Kind, &c.Status, &c.CurrentRound,
		&c.MaxTargets, &verifyPhone, &c.TallyShards, &c.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil, &models.EligibilityError{Code: models.CodeContestNotFound, Message: "contest not found"}
	}
	if err != nil {
		return nil, nil, err
	}
	c.VerifyPhone = verifyPhone != 0

	switch c.Kind {
	case models.KindVote, models.KindQuiz, models.KindCheckin:
	default:
		return nil, nil, fmt.Errorf("contest %s has unknown kind %q", c.ID, c.Kind)
	}

	rows, err := e.db.QueryContext(ctx, `SELECT id FROM contest_target WHERE contest_id = $1`, contestID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	targetSet := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, nil, err
		}
		targetSet[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return &c, targetSet, nil
}

func validate(c *models.Contest, targetSet map[string]bool, req models.SubmitRequest) error {
	if c.Status != models.StatusOpen {
		return &models.EligibilityError{Code: models.CodeContestClosed, Message: "contest is not open"}
	}
	if req.Round != c.CurrentRound {
		return &models.EligibilityError{Code: models.CodeInvalidRound, Message: "round is not the currently open round"}
	}
	if len(req.TargetIDs) > c.MaxTargets {
		return &models.ValidationError{
			Code:    models.CodeInvalidRequest,
			Message: fmt.Sprintf("at most %d targets per submission", c.MaxTargets),
		}
	}

	seen := make(map[string]bool, len(req.TargetIDs))
	for _, targetID := range req.TargetIDs {
		if seen[targetID] {
			return &models.ValidationError{Code: models.CodeInvalidRequest, Message: "duplicate target: " + targetID}
		}
		seen[targetID] = true

		if !targetSet[targetID] {
			return &models.EligibilityError{Code: models.CodeInvalidTarget, Message: "invalid target: " + targetID}
		}
	}

	return nil
}

// checkRate consults the limiter. A limiter store failure admits the
// request: the gate is best-effort and must not take the submission path
// down with it.
func (e *Engine) checkRate(ctx context.Context, contestID, clientKey string) error {
	if e.limiter == nil {
		return nil
	}

	res, err := e.limiter.Allow(ctx, "submit:"+contestID+":"+clientKey)
	if err != nil {
		slog.Warn("rate limiter unavailable, admitting", "error", err)
		return nil
	}
	if !res.Allowed {
		return &models.RateLimitError{RetryAfter: res.RetryAfter}
	}
	return nil
}

// commit is the Duplicate Guard + Tally Mutator: one transaction that
// read-checks the ledger key, inserts the participation, and bumps the
// counters. Write conflicts are retried with bounded attempts; a duplicate
// is terminal and never retried.
func (e *Engine) commit(ctx context.Context, c *models.Contest, ident models.Identity, targetIDs []string, sessionToken string) (*Result, error) {
	var res *Result
	err := e.Retry.run(ctx, func(ctx context.Context) error {
		r, err := e.tryCommit(ctx, c, ident, targetIDs, sessionToken)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) tryCommit(ctx context.Context, c *models.Contest, ident models.Identity, targetIDs []string, sessionToken string) (*Result, error) {
	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Duplicate guard: the ledger key is checked inside the transaction, so
	// two concurrent submissions for the same identity cannot both pass
	var existing string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM participation
		WHERE contest_id = $1 AND round = $2 AND identity_key = $3
	`, c.ID, c.CurrentRound, ident.Key).Scan(&existing)

	if err == nil {
		return nil, &models.DuplicateIdentityError{Tier: ident.Tier}
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	recordID, err := auth.GenerateID(16)
	if err != nil {
		return nil, err
	}
	accessToken, err := auth.GenerateAccessToken()
	if err != nil {
		return nil, err
	}

	const weight = 1
	now := time.Now()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO participation (contest_id, round, identity_key, id, tier, access_token, weight, committed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.CurrentRound, ident.Key, recordID, ident.Tier, accessToken, weight, now)

	if err != nil {
		if uniqueViolation(err) {
			// A concurrent transaction for the same identity committed
			// first; that outcome is correct, not a conflict
			return nil, &models.DuplicateIdentityError{Tier: ident.Tier}
		}
		return nil, err
	}

	for _, targetID := range targetIDs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO participation_target (record_id, target_id)
			VALUES ($1, $2)
		`, recordID, targetID)
		if err != nil {
			return nil, err
		}

		shard := 0
		if c.TallyShards > 1 {
			shard = rand.IntN(c.TallyShards)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO tally (contest_id, round, target_id, shard, count)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (contest_id, round, target_id, shard)
			DO UPDATE SET count = tally.count + excluded.count
		`, c.ID, c.CurrentRound, targetID, shard, weight)
		if err != nil {
			return nil, err
		}
	}

	newCounts := make(map[string]int64, len(targetIDs))
	for _, targetID := range targetIDs {
		var count int64
		err = tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(count), 0) FROM tally
			WHERE contest_id = $1 AND round = $2 AND target_id = $3
		`, c.ID, c.CurrentRound, targetID).Scan(&count)
		if err != nil {
			return nil, err
		}
		newCounts[targetID] = count
	}

	// Tier-1 mapping is created proactively with the record
	_, err = tx.ExecContext(ctx, `
		INSERT INTO token_mapping (token, record_id, contest_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, accessToken, recordID, c.ID, now)
	if err != nil {
		return nil, err
	}

	// A verified-tier session token admits exactly one commit
	if ident.Tier == models.TierPhone && sessionToken != "" {
		_, err = tx.ExecContext(ctx, `
			UPDATE session_token SET consumed_at = $1
			WHERE token = $2 AND consumed_at IS NULL
		`, now, sessionToken)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Result{
		RecordID:    recordID,
		AccessToken: accessToken,
		Votes:       len(targetIDs) * weight,
		NewCounts:   newCounts,
	}, nil
}
