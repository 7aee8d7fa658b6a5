package tokenmap

import (
	"context"
	"testing"

	"github.com/eventloophq/turnstile/testutil"
)

func TestValidFormat(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{"deadbeefdeadbeefdeadbeefdeadbeef", true},
		{"0123456789abcdef0123456789abcdef", true},
		{"not-hex", false},
		{"", false},
		{"deadbeef", false}, // too short
		{"deadbeefdeadbeefdeadbeefdeadbeef00", false},              // too long
		{"DEADBEEFDEADBEEFDEADBEEFDEADBEEF", false},                // uppercase
		{"deadbeefdeadbeefdeadbeefdeadbeeg", false},                // non-hex char
		{"deadbeefdeadbeefdeadbeefdeadbee ", false},                // trailing space
		{"../../../../../../../etc/passwd", false},                 // traversal junk
		{"deadbeefdeadbeef deadbeefdeadbee", false},                // embedded space
		{"деадбеефдеадбеефдеадбеефдеадбееф", false},                // non-ASCII
	}

	for _, tt := range tests {
		if got := ValidFormat(tt.token); got != tt.want {
			t.Errorf("ValidFormat(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
}

// TestMalformedTokenNoStoreAccess verifies format rejection happens before
// any database call: a resolver with no database must not panic.
func TestMalformedTokenNoStoreAccess(t *testing.T) {
	resolver := NewResolver(nil)

	_, err := resolver.ResolveToken(context.Background(), "not-hex")
	if err != ErrNotFound {
		t.Errorf("Expected ErrNotFound for malformed token, got %v", err)
	}
}

func TestDirectLookup(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()
	cfg := testutil.GetTestConfig()

	contestID, _ := testutil.CreateTestContest(t, conn, cfg, "open")
	testutil.AddTestTarget(t, conn, contestID, "A", "Option A")

	token := "0123456789abcdef0123456789abcdef"
	recordID := testutil.InsertTestParticipation(t, conn, contestID, 1, "v1", token, []string{"A"})

	// Proactively mapped, as the engine does at commit time
	_, err := conn.Exec(`
		INSERT INTO token_mapping (token, record_id, contest_id, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
	`, token, recordID, contestID)
	if err != nil {
		t.Fatalf("Failed to insert mapping: %v", err)
	}

	resolver := NewResolver(conn)
	ref, err := resolver.ResolveToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ResolveToken failed: %v", err)
	}
	if ref.RecordID != recordID {
		t.Errorf("Expected record %s, got %s", recordID, ref.RecordID)
	}
	if ref.ContestID != contestID || ref.Round != 1 {
		t.Errorf("Unexpected ref: %+v", ref)
	}
}

// TestFallbackBackfill covers the legacy-record path: the token exists only
// on the ledger entry, the first lookup backfills the mapping, and the
// second lookup succeeds without the fallback query.
func TestFallbackBackfill(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()
	cfg := testutil.GetTestConfig()

	contestID, _ := testutil.CreateTestContest(t, conn, cfg, "open")
	testutil.AddTestTarget(t, conn, contestID, "A", "Option A")

	token := "deadbeefdeadbeefdeadbeefdeadbeef"
	recordID := testutil.InsertTestParticipation(t, conn, contestID, 1, "legacy", token, []string{"A"})

	resolver := NewResolver(conn)
	ctx := context.Background()

	// First call goes through the fallback and backfills
	ref, err := resolver.ResolveToken(ctx, token)
	if err != nil {
		t.Fatalf("First ResolveToken failed: %v", err)
	}
	if ref.RecordID != recordID {
		t.Errorf("Expected record %s, got %s", recordID, ref.RecordID)
	}

	var mapped string
	err = conn.QueryRow("SELECT record_id FROM token_mapping WHERE token = $1", token).Scan(&mapped)
	if err != nil {
		t.Fatalf("Mapping was not backfilled: %v", err)
	}
	if mapped != recordID {
		t.Errorf("Mapping points at %s, want %s", mapped, recordID)
	}

	// Break the fallback path; the second lookup must still succeed via the
	// backfilled mapping.
	_, err = conn.Exec("UPDATE participation SET access_token = 'ffffffffffffffffffffffffffffffff' WHERE id = $1", recordID)
	if err != nil {
		t.Fatalf("Failed to rewrite access token: %v", err)
	}

	ref, err = resolver.ResolveToken(ctx, token)
	if err != nil {
		t.Fatalf("Second ResolveToken failed: %v", err)
	}
	if ref.RecordID != recordID {
		t.Errorf("Second lookup: expected record %s, got %s", recordID, ref.RecordID)
	}
}

// TestMappingIsStable verifies write-once semantics: a mapped token never
// repoints, even when a conflicting ledger row carries the same token.
func TestMappingIsStable(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()
	cfg := testutil.GetTestConfig()

	contestID, _ := testutil.CreateTestContest(t, conn, cfg, "open")
	testutil.AddTestTarget(t, conn, contestID, "A", "Option A")

	token := "aaaabbbbccccddddaaaabbbbccccdddd"
	first := testutil.InsertTestParticipation(t, conn, contestID, 1, "v1", token, []string{"A"})

	resolver := NewResolver(conn)
	ctx := context.Background()

	if _, err := resolver.ResolveToken(ctx, token); err != nil {
		t.Fatalf("ResolveToken failed: %v", err)
	}

	// A second record claiming the same token must not steal the mapping
	testutil.InsertTestParticipation(t, conn, contestID, 2, "v2", token, []string{"A"})

	ref, err := resolver.ResolveToken(ctx, token)
	if err != nil {
		t.Fatalf("ResolveToken failed: %v", err)
	}
	if ref.RecordID != first {
		t.Errorf("Token repointed from %s to %s", first, ref.RecordID)
	}
}

func TestUnknownTokenNotFound(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	resolver := NewResolver(conn)
	_, err := resolver.ResolveToken(context.Background(), "0000000000000000000000000000dead")
	if err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
