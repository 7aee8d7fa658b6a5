// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eventloophq/turnstile/auth"
	"github.com/eventloophq/turnstile/cliparse"
	"github.com/eventloophq/turnstile/db"
)

var dbSeq atomic.Int64

// SetupTestDB creates a fresh in-memory SQLite database with the full
// schema. Each call gets its own database, so tests are isolated and can
// run in parallel. The pool is pinned to one connection: the in-memory
// database lives exactly as long as that connection, and concurrent
// transactions serialize instead of failing with SQLITE_BUSY.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:turnstile_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3380,
		DatabaseURL:   ":memory:",
		DatabaseType:  "sqlite",
		AdminKeySalt:  "test-admin-salt",
		PhoneHashSalt: "test-phone-salt",
		RateLimit:     1000,
		RateWindow:    time.Minute,
	}
}

// CreateTestContest creates a contest and returns its ID and admin key.
// status should be "draft", "open", or "closed". Defaults: kind vote,
// 3 max targets, no phone verification, 1 tally shard, round 1.
func CreateTestContest(t *testing.T, conn *sql.DB, cfg cliparse.Config, status string) (contestID, adminKey string) {
	t.Helper()

	contestID, _ = auth.GenerateID(16)
	adminKey = auth.GenerateAdminKey(contestID, cfg.AdminKeySalt)

	var closedAt *time.Time
	if status == "closed" {
		now := time.Now()
		closedAt = &now
	}

	_, err := conn.Exec(`
		INSERT INTO contest (id, title, kind, status, current_round, max_targets, verify_phone, tally_shards, closed_at, created_at)
		VALUES ($1, 'Test Contest', 'vote', $2, 1, 3, 0, 1, $3, $4)
	`, contestID, status, closedAt, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test contest: %v", err)
	}

	return contestID, adminKey
}

// CreateVerifiedContest creates an open quiz contest that requires phone
// verification.
func CreateVerifiedContest(t *testing.T, conn *sql.DB, cfg cliparse.Config) (contestID, adminKey string) {
	t.Helper()

	contestID, _ = auth.GenerateID(16)
	adminKey = auth.GenerateAdminKey(contestID, cfg.AdminKeySalt)

	_, err := conn.Exec(`
		INSERT INTO contest (id, title, kind, status, current_round, max_targets, verify_phone, tally_shards, created_at)
		VALUES ($1, 'Verified Contest', 'quiz', 'open', 1, 1, 1, 1, $2)
	`, contestID, time.Now())
	if err != nil {
		t.Fatalf("Failed to create verified contest: %v", err)
	}

	return contestID, adminKey
}

// AddTestTarget adds a target to a contest and returns its ID
func AddTestTarget(t *testing.T, conn *sql.DB, contestID, targetID, label string) string {
	t.Helper()

	_, err := conn.Exec(`
		INSERT INTO contest_target (contest_id, id, label)
		VALUES ($1, $2, $3)
	`, contestID, targetID, label)
	if err != nil {
		t.Fatalf("Failed to create test target: %v", err)
	}

	return targetID
}

// CreateTestSessionToken inserts a verification token bound to phone,
// expiring in one hour.
func CreateTestSessionToken(t *testing.T, conn *sql.DB, cfg cliparse.Config, contestID, phone string) string {
	t.Helper()

	token, _ := auth.GenerateID(16)
	_, err := conn.Exec(`
		INSERT INTO session_token (token, contest_id, phone_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, token, contestID, auth.HashPhone(phone, cfg.PhoneHashSalt), time.Now().Add(time.Hour), time.Now())
	if err != nil {
		t.Fatalf("Failed to create session token: %v", err)
	}

	return token
}

// InsertTestParticipation writes a ledger entry with its targets and tally
// increments directly, bypassing the engine. Returns the record ID.
func InsertTestParticipation(t *testing.T, conn *sql.DB, contestID string, round int, identityKey, accessToken string, targets []string) string {
	t.Helper()

	recordID, _ := auth.GenerateID(16)
	_, err := conn.Exec(`
		INSERT INTO participation (contest_id, round, identity_key, id, tier, access_token, weight, committed_at)
		VALUES ($1, $2, $3, $4, 'device', $5, 1, $6)
	`, contestID, round, identityKey, recordID, accessToken, time.Now())
	if err != nil {
		t.Fatalf("Failed to insert participation: %v", err)
	}

	for _, targetID := range targets {
		_, err := conn.Exec(`
			INSERT INTO participation_target (record_id, target_id)
			VALUES ($1, $2)
		`, recordID, targetID)
		if err != nil {
			t.Fatalf("Failed to insert participation target: %v", err)
		}

		_, err = conn.Exec(`
			INSERT INTO tally (contest_id, round, target_id, shard, count)
			VALUES ($1, $2, $3, 0, 1)
			ON CONFLICT (contest_id, round, target_id, shard)
			DO UPDATE SET count = tally.count + 1
		`, contestID, round, targetID)
		if err != nil {
			t.Fatalf("Failed to bump tally: %v", err)
		}
	}

	return recordID
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
