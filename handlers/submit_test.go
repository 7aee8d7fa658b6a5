package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eventloophq/turnstile/admission"
	"github.com/eventloophq/turnstile/identity"
	"github.com/eventloophq/turnstile/models"
	"github.com/eventloophq/turnstile/ratelimit"
	"github.com/eventloophq/turnstile/testutil"
)

func newSubmissionHandler(t *testing.T, conn *sql.DB, limiter *ratelimit.Limiter) *SubmissionHandler {
	t.Helper()
	cfg := testutil.GetTestConfig()
	engine := admission.NewEngine(conn, limiter, identity.NewResolver(conn, cfg.PhoneHashSalt), nil)
	return NewSubmissionHandler(engine, cfg)
}

func postSubmission(handler *SubmissionHandler, contestID string, body models.SubmitRequest) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/contests/"+contestID+"/submissions", body, nil)
	req.SetPathValue("id", contestID)
	w := httptest.NewRecorder()
	handler.Submit(w, req)
	return w
}

func TestSubmitEndpoint(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()
	cfg := testutil.GetTestConfig()

	contestID, _ := testutil.CreateTestContest(t, conn, cfg, "open")
	testutil.AddTestTarget(t, conn, contestID, "A", "Target A")
	testutil.AddTestTarget(t, conn, contestID, "B", "Target B")

	handler := newSubmissionHandler(t, conn, nil)

	w := postSubmission(handler, contestID, models.SubmitRequest{
		IdentityID: "device-1",
		TargetIDs:  []string{"A", "B"},
		Round:      1,
	})
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.SubmitResponse
	testutil.AssertJSON(t, w, &resp)

	if !resp.Success {
		t.Error("Expected success=true")
	}
	if resp.VotesSubmitted != 2 {
		t.Errorf("Expected 2 votes submitted, got %d", resp.VotesSubmitted)
	}
	if len(resp.AccessToken) != 32 {
		t.Errorf("Expected 32-hex access token, got %q", resp.AccessToken)
	}
}

func TestSubmitEndpointDuplicate(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()
	cfg := testutil.GetTestConfig()

	contestID, _ := testutil.CreateTestContest(t, conn, cfg, "open")
	testutil.AddTestTarget(t, conn, contestID, "A", "Target A")

	handler := newSubmissionHandler(t, conn, nil)

	body := models.SubmitRequest{IdentityID: "device-1", TargetIDs: []string{"A"}, Round: 1}
	testutil.AssertStatus(t, postSubmission(handler, contestID, body), http.StatusOK)

	w := postSubmission(handler, contestID, body)
	testutil.AssertStatus(t, w, http.StatusForbidden)

	var resp models.SubmitResponse
	testutil.AssertJSON(t, w, &resp)

	if resp.Success {
		t.Error("Expected success=false for duplicate")
	}
	if resp.ErrorCode != models.CodeDuplicateIdentity {
		t.Errorf("Expected DUPLICATE_IDENTITY, got %s", resp.ErrorCode)
	}
}

func TestSubmitEndpointStatusMapping(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()
	cfg := testutil.GetTestConfig()

	contestID, _ := testutil.CreateTestContest(t, conn, cfg, "open")
	testutil.AddTestTarget(t, conn, contestID, "A", "Target A")
	closedID, _ := testutil.CreateTestContest(t, conn, cfg, "closed")

	handler := newSubmissionHandler(t, conn, nil)

	tests := []struct {
		name      string
		contestID string
		body      models.SubmitRequest
		status    int
		code      string
	}{
		{
			"unknown contest is 404",
			"nonexistent",
			models.SubmitRequest{IdentityID: "d", TargetIDs: []string{"A"}, Round: 1},
			http.StatusNotFound,
			models.CodeContestNotFound,
		},
		{
			"closed contest is 400",
			closedID,
			models.SubmitRequest{IdentityID: "d", TargetIDs: []string{"A"}, Round: 1},
			http.StatusBadRequest,
			models.CodeContestClosed,
		},
		{
			"unknown target is 400",
			contestID,
			models.SubmitRequest{IdentityID: "d", TargetIDs: []string{"Z"}, Round: 1},
			http.StatusBadRequest,
			models.CodeInvalidTarget,
		},
		{
			"wrong round is 400",
			contestID,
			models.SubmitRequest{IdentityID: "d", TargetIDs: []string{"A"}, Round: 7},
			http.StatusBadRequest,
			models.CodeInvalidRound,
		},
		{
			"empty targets is 400",
			contestID,
			models.SubmitRequest{IdentityID: "d", Round: 1},
			http.StatusBadRequest,
			models.CodeInvalidRequest,
		},
		{
			"body contest mismatch is 400",
			contestID,
			models.SubmitRequest{ContestID: "other", IdentityID: "d", TargetIDs: []string{"A"}, Round: 1},
			http.StatusBadRequest,
			models.CodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postSubmission(handler, tt.contestID, tt.body)
			testutil.AssertStatus(t, w, tt.status)

			var resp models.SubmitResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.ErrorCode != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, resp.ErrorCode)
			}
		})
	}
}

func TestSubmitEndpointRateLimited(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()
	cfg := testutil.GetTestConfig()

	contestID, _ := testutil.CreateTestContest(t, conn, cfg, "open")
	testutil.AddTestTarget(t, conn, contestID, "A", "Target A")

	store := ratelimit.NewMemoryStore()
	defer store.Close()
	handler := newSubmissionHandler(t, conn, ratelimit.New(store, 1, time.Minute))

	// Both requests share a device, so the second exceeds the window limit
	headers := map[string]string{"X-Device-ID": "shared-device"}

	req := testutil.MakeRequest("POST", "/contests/"+contestID+"/submissions",
		models.SubmitRequest{IdentityID: "v1", TargetIDs: []string{"A"}, Round: 1}, headers)
	req.SetPathValue("id", contestID)
	w := httptest.NewRecorder()
	handler.Submit(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	req = testutil.MakeRequest("POST", "/contests/"+contestID+"/submissions",
		models.SubmitRequest{IdentityID: "v2", TargetIDs: []string{"A"}, Round: 1}, headers)
	req.SetPathValue("id", contestID)
	w = httptest.NewRecorder()
	handler.Submit(w, req)

	testutil.AssertStatus(t, w, http.StatusTooManyRequests)
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}

	var resp models.SubmitResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.ErrorCode != models.CodeRateLimited {
		t.Errorf("Expected RATE_LIMITED, got %s", resp.ErrorCode)
	}
	if resp.RetryAfterMs <= 0 {
		t.Errorf("Expected positive retryAfterMs, got %d", resp.RetryAfterMs)
	}
}

func TestSubmitEndpointVerifiedDuplicate(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()
	cfg := testutil.GetTestConfig()

	contestID, _ := testutil.CreateVerifiedContest(t, conn, cfg)
	testutil.AddTestTarget(t, conn, contestID, "A", "Answer A")

	handler := newSubmissionHandler(t, conn, nil)
	phone := "+15551230001"

	token := testutil.CreateTestSessionToken(t, conn, cfg, contestID, phone)
	w := postSubmission(handler, contestID, models.SubmitRequest{
		TargetIDs: []string{"A"}, Round: 1, Phone: phone, SessionToken: token,
	})
	testutil.AssertStatus(t, w, http.StatusOK)

	token = testutil.CreateTestSessionToken(t, conn, cfg, contestID, phone)
	w = postSubmission(handler, contestID, models.SubmitRequest{
		TargetIDs: []string{"A"}, Round: 1, Phone: phone, SessionToken: token,
	})
	testutil.AssertStatus(t, w, http.StatusForbidden)

	var resp models.SubmitResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.ErrorCode != models.CodeAlreadyPlayed {
		t.Errorf("Expected ALREADY_PLAYED, got %s", resp.ErrorCode)
	}
}
