// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package identity

import (
	"context"
	"crypto/hmac"
	"database/sql"
	"time"

	"github.com/eventloophq/turnstile/auth"
	"github.com/eventloophq/turnstile/models"
)

// Resolver derives the canonical identity key for a submission. The tier is
// chosen by the contest configuration, not by the shape of the request: a
// phone-verified contest rejects anonymous submissions outright.
type Resolver struct {
	db   *sql.DB
	salt string
}

func NewResolver(db *sql.DB, phoneHashSalt string) *Resolver {
	return &Resolver{db: db, salt: phoneHashSalt}
}

// Resolve returns the identity for one submission.
//
// Anonymous tier: the key is the client-asserted device id. This is
// unauthenticated and spoofable; a documented limitation, not a bug.
//
// Verified tier: phone and sessionToken are required; the token must exist
// for this contest, be unexpired, unconsumed, and bound to the phone. The
// key is then the salted phone hash.
func (r *Resolver) Resolve(ctx context.Context, contest *models.Contest, deviceID, phone, sessionToken string) (models.Identity, error) {
	if !contest.VerifyPhone {
		if deviceID == "" {
			return models.Identity{}, &models.ValidationError{
				Code:    models.CodeInvalidRequest,
				Message: "identityId is required",
			}
		}
		return models.Identity{Key: deviceID, Tier: models.TierDevice}, nil
	}

	if phone == "" || sessionToken == "" {
		return models.Identity{}, &models.ValidationError{
			Code:    models.CodeVerificationRequired,
			Message: "phone and sessionToken are required for this contest",
		}
	}

	var phoneHash string
	var expiresAt time.Time
	var consumedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT phone_hash, expires_at, consumed_at
		FROM session_token
		WHERE token = $1 AND contest_id = $2
	`, sessionToken, contest.ID).Scan(&phoneHash, &expiresAt, &consumedAt)

	if err == sql.ErrNoRows {
		return models.Identity{}, invalidSession()
	}
	if err != nil {
		return models.Identity{}, err
	}

	if consumedAt.Valid || time.Now().After(expiresAt) {
		return models.Identity{}, invalidSession()
	}

	key := auth.HashPhone(phone, r.salt)
	if !hmac.Equal([]byte(key), []byte(phoneHash)) {
		return models.Identity{}, invalidSession()
	}

	return models.Identity{Key: key, Tier: models.TierPhone}, nil
}

func invalidSession() error {
	return &models.ValidationError{
		Code:    models.CodeInvalidSession,
		Message: "session token is invalid, expired, or not bound to this phone",
	}
}
