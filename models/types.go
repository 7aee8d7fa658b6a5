package models

import "time"

// Contest status constants
const (
	StatusDraft  = "draft"
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Contest kind constants. The kind tags the configuration variant; unknown
// kinds are rejected before any shared state is touched.
const (
	KindVote    = "vote"
	KindQuiz    = "quiz"
	KindCheckin = "checkin"
)

// Identity tier constants
const (
	TierDevice = "device" // client-asserted device id, spoofable
	TierPhone  = "phone"  // hash of a verified phone number
)

// Request types

type CreateContestRequest struct {
	Title       string `json:"title"`
	Kind        string `json:"kind"`
	MaxTargets  int    `json:"max_targets"`
	VerifyPhone bool   `json:"verify_phone"`
	TallyShards int    `json:"tally_shards"`
}

type AddTargetRequest struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type SubmitRequest struct {
	ContestID    string   `json:"contestId"`
	IdentityID   string   `json:"identityId"`
	TargetIDs    []string `json:"targetIds"`
	Round        int      `json:"round"`
	Phone        string   `json:"phone,omitempty"`
	SessionToken string   `json:"sessionToken,omitempty"`
}

// Response types

type CreateContestResponse struct {
	ContestID string `json:"contest_id"`
	AdminKey  string `json:"admin_key"`
}

type AddTargetResponse struct {
	TargetID string `json:"target_id"`
}

type OpenContestResponse struct {
	Status string `json:"status"`
	Round  int    `json:"round"`
}

type AdvanceRoundResponse struct {
	Round int `json:"round"`
}

type CloseContestResponse struct {
	ClosedAt time.Time `json:"closed_at"`
}

// SubmitResponse is the wire shape for the submission endpoint. The same
// shape carries acceptances and rejections; Success distinguishes them.
type SubmitResponse struct {
	Success        bool   `json:"success"`
	VotesSubmitted int    `json:"votesSubmitted,omitempty"`
	AccessToken    string `json:"accessToken,omitempty"`
	Error          string `json:"error,omitempty"`
	ErrorCode      string `json:"errorCode,omitempty"`
	RetryAfterMs   int64  `json:"retryAfterMs,omitempty"`
}

type ResolveTokenResponse struct {
	Exists         bool   `json:"exists"`
	RecordID       string `json:"recordId,omitempty"`
	Round          int    `json:"round,omitempty"`
	Tier           string `json:"tier,omitempty"`
	MaskedIdentity string `json:"maskedIdentity,omitempty"`
}

type TallyEntry struct {
	TargetID string `json:"target_id"`
	Label    string `json:"label"`
	Count    int64  `json:"count"`
}

type TalliesResponse struct {
	ContestID string       `json:"contest_id"`
	Round     int          `json:"round"`
	Tallies   []TallyEntry `json:"tallies"`
	Ledger    int64        `json:"ledger"`
}

// Domain types

type Contest struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Kind         string     `json:"kind"`
	Status       string     `json:"status"`
	CurrentRound int        `json:"current_round"`
	MaxTargets   int        `json:"max_targets"`
	VerifyPhone  bool       `json:"verify_phone"`
	TallyShards  int        `json:"tally_shards"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Target struct {
	ID        string `json:"id"`
	ContestID string `json:"contest_id"`
	Label     string `json:"label"`
}

type ContestWithTargets struct {
	Contest Contest  `json:"contest"`
	Targets []Target `json:"targets"`
}

// Participation is a ledger entry: exactly one per (contest, round, identity).
type Participation struct {
	ID          string    `json:"id"`
	ContestID   string    `json:"contest_id"`
	Round       int       `json:"round"`
	IdentityKey string    `json:"-"` // Never expose in JSON
	Tier        string    `json:"tier"`
	AccessToken string    `json:"-"` // Never expose in JSON
	Weight      int       `json:"weight"`
	CommittedAt time.Time `json:"committed_at"`
}

// Identity is the canonical identity resolved for one submission.
type Identity struct {
	Key  string
	Tier string
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
