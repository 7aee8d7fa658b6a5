package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eventloophq/turnstile/models"
	"github.com/eventloophq/turnstile/testutil"
	"github.com/eventloophq/turnstile/tokenmap"
)

func resolveToken(handler *TokenHandler, contestID, token string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("GET", "/participations/resolve?contest_id="+contestID+"&token="+token, nil, nil)
	w := httptest.NewRecorder()
	handler.ResolveToken(w, req)
	return w
}

func TestResolveTokenEndpoint(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()
	cfg := testutil.GetTestConfig()

	contestID, _ := testutil.CreateTestContest(t, conn, cfg, "open")
	testutil.AddTestTarget(t, conn, contestID, "A", "Target A")

	token := "a000000000000000000000000000beef"
	testutil.InsertTestParticipation(t, conn, contestID, 1, "device-12345", token, []string{"A"})

	handler := NewTokenHandler(tokenmap.NewResolver(conn))

	w := resolveToken(handler, contestID, token)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.ResolveTokenResponse
	testutil.AssertJSON(t, w, &resp)

	if !resp.Exists {
		t.Fatal("Expected exists=true")
	}
	if resp.Round != 1 {
		t.Errorf("Expected round 1, got %d", resp.Round)
	}
	if resp.Tier != models.TierDevice {
		t.Errorf("Expected device tier, got %s", resp.Tier)
	}
	if resp.MaskedIdentity == "device-12345" {
		t.Error("Identity key must not be exposed unmasked")
	}
	if resp.MaskedIdentity != "de****45" {
		t.Errorf("Unexpected mask: %s", resp.MaskedIdentity)
	}
}

func TestResolveTokenMisses(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()
	cfg := testutil.GetTestConfig()

	contestID, _ := testutil.CreateTestContest(t, conn, cfg, "open")
	otherID, _ := testutil.CreateTestContest(t, conn, cfg, "open")
	testutil.AddTestTarget(t, conn, contestID, "A", "Target A")

	token := "a000000000000000000000000000beef"
	testutil.InsertTestParticipation(t, conn, contestID, 1, "v1", token, []string{"A"})

	handler := NewTokenHandler(tokenmap.NewResolver(conn))

	tests := []struct {
		name      string
		contestID string
		token     string
	}{
		{"unknown token", contestID, "a0000000000000000000000000000bad"},
		{"malformed token", contestID, "not-a-token"},
		{"wrong contest", otherID, token},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := resolveToken(handler, tt.contestID, tt.token)
			testutil.AssertStatus(t, w, http.StatusOK)

			var resp models.ResolveTokenResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.Exists {
				t.Error("Expected exists=false")
			}
			if resp.RecordID != "" || resp.MaskedIdentity != "" {
				t.Error("Miss response must carry no record details")
			}
		})
	}

	// Missing params are client errors
	w := resolveToken(handler, "", token)
	testutil.AssertStatus(t, w, http.StatusBadRequest)
	w = resolveToken(handler, contestID, "")
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}
