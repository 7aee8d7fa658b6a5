// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/eventloophq/turnstile/auth"
	"github.com/eventloophq/turnstile/cliparse"
	"github.com/eventloophq/turnstile/middleware"
	"github.com/eventloophq/turnstile/models"
)

// Contest configuration limits. A contest with more targets than this is a
// configuration mistake, not a use case.
const (
	maxTargetsPerContest = 100
	maxTallyShards       = 64
)

type ContestHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewContestHandler(db *sql.DB, cfg cliparse.Config) *ContestHandler {
	return &ContestHandler{db: db, cfg: cfg}
}

// CreateContest handles POST /contests
func (h *ContestHandler) CreateContest(w http.ResponseWriter, r *http.Request) {
	var req models.CreateContestRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate input
	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	switch req.Kind {
	case models.KindVote, models.KindQuiz, models.KindCheckin:
	default:
		middleware.ErrorResponse(w, http.StatusBadRequest, "kind must be vote, quiz, or checkin")
		return
	}
	if req.MaxTargets < 1 || req.MaxTargets > maxTargetsPerContest {
		middleware.ErrorResponse(w, http.StatusBadRequest, "max_targets must be between 1 and 100")
		return
	}
	if req.TallyShards < 0 || req.TallyShards > maxTallyShards {
		middleware.ErrorResponse(w, http.StatusBadRequest, "tally_shards must be between 0 and 64")
		return
	}
	shards := req.TallyShards
	if shards == 0 {
		shards = 1
	}

	contestID := uuid.NewString()
	adminKey := auth.GenerateAdminKey(contestID, h.cfg.AdminKeySalt)

	verifyPhone := 0
	if req.VerifyPhone {
		verifyPhone = 1
	}

	_, err := h.db.Exec(`
		INSERT INTO contest (id, title, kind, status, current_round, max_targets, verify_phone, tally_shards, created_at)
		VALUES ($1, $2, $3, $4, 1, $5, $6, $7, $8)
	`, contestID, req.Title, req.Kind, models.StatusDraft, req.MaxTargets, verifyPhone, shards, time.Now())

	if err != nil {
		slog.Error("failed to insert contest", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create contest")
		return
	}

	slog.Info("contest created", "contest_id", contestID, "kind", req.Kind)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateContestResponse{
		ContestID: contestID,
		AdminKey:  adminKey,
	})
}

// AddTarget handles POST /contests/:id/targets
func (h *ContestHandler) AddTarget(w http.ResponseWriter, r *http.Request) {
	contestID := r.PathValue("id")
	if contestID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "contest_id is required")
		return
	}

	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(contestID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	var req models.AddTargetRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Label == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "label is required")
		return
	}

	// Targets can only change while the contest is a draft
	var status string
	err := h.db.QueryRow("SELECT status FROM contest WHERE id = $1", contestID).Scan(&status)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Contest not found")
		return
	}
	if err != nil {
		slog.Error("failed to query contest", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if status != models.StatusDraft {
		middleware.ErrorResponse(w, http.StatusConflict, "Cannot add targets to a non-draft contest")
		return
	}

	targetID := req.ID
	if targetID == "" {
		targetID, err = auth.GenerateID(12)
		if err != nil {
			slog.Error("failed to generate target ID", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create target")
			return
		}
	}

	_, err = h.db.Exec(`
		INSERT INTO contest_target (contest_id, id, label)
		VALUES ($1, $2, $3)
	`, contestID, targetID, req.Label)

	if err != nil {
		slog.Error("failed to insert target", "error", err, "contest_id", contestID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create target")
		return
	}

	slog.Info("target added", "contest_id", contestID, "target_id", targetID)

	middleware.JSONResponse(w, http.StatusCreated, models.AddTargetResponse{
		TargetID: targetID,
	})
}

// OpenContest handles POST /contests/:id/open
func (h *ContestHandler) OpenContest(w http.ResponseWriter, r *http.Request) {
	contestID := r.PathValue("id")
	if contestID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "contest_id is required")
		return
	}

	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(contestID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	var status string
	var round, targetCount int
	err := h.db.QueryRow(`
		SELECT c.status, c.current_round, COUNT(t.id)
		FROM contest c
		LEFT JOIN contest_target t ON c.id = t.contest_id
		WHERE c.id = $1
		GROUP BY c.status, c.current_round
	`, contestID).Scan(&status, &round, &targetCount)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Contest not found")
		return
	}
	if err != nil {
		slog.Error("failed to query contest", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if status != models.StatusDraft {
		middleware.ErrorResponse(w, http.StatusConflict, "Contest is not in draft status")
		return
	}
	if targetCount < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Contest must have at least 1 target")
		return
	}

	_, err = h.db.Exec(`
		UPDATE contest SET status = $1 WHERE id = $2
	`, models.StatusOpen, contestID)
	if err != nil {
		slog.Error("failed to open contest", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to open contest")
		return
	}

	slog.Info("contest opened", "contest_id", contestID, "round", round)

	middleware.JSONResponse(w, http.StatusOK, models.OpenContestResponse{
		Status: models.StatusOpen,
		Round:  round,
	})
}

// AdvanceRound handles POST /contests/:id/rounds
//
// Advancing resets duplicate tracking: each round has its own ledger
// partition, so an identity that played round N may play round N+1.
func (h *ContestHandler) AdvanceRound(w http.ResponseWriter, r *http.Request) {
	contestID := r.PathValue("id")
	if contestID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "contest_id is required")
		return
	}

	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(contestID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	var status string
	var round int
	err := h.db.QueryRow("SELECT status, current_round FROM contest WHERE id = $1", contestID).Scan(&status, &round)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Contest not found")
		return
	}
	if err != nil {
		slog.Error("failed to query contest", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if status != models.StatusOpen {
		middleware.ErrorResponse(w, http.StatusConflict, "Contest is not open")
		return
	}

	newRound := round + 1
	_, err = h.db.Exec(`
		UPDATE contest SET current_round = $1 WHERE id = $2
	`, newRound, contestID)
	if err != nil {
		slog.Error("failed to advance round", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to advance round")
		return
	}

	slog.Info("round advanced", "contest_id", contestID, "round", newRound)

	middleware.JSONResponse(w, http.StatusOK, models.AdvanceRoundResponse{
		Round: newRound,
	})
}

// CloseContest handles POST /contests/:id/close
func (h *ContestHandler) CloseContest(w http.ResponseWriter, r *http.Request) {
	contestID := r.PathValue("id")
	if contestID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "contest_id is required")
		return
	}

	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(contestID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	var status string
	err := h.db.QueryRow("SELECT status FROM contest WHERE id = $1", contestID).Scan(&status)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Contest not found")
		return
	}
	if err != nil {
		slog.Error("failed to query contest", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if status != models.StatusOpen {
		middleware.ErrorResponse(w, http.StatusConflict, "Contest is not open")
		return
	}

	closedAt := time.Now()
	_, err = h.db.Exec(`
		UPDATE contest SET status = $1, closed_at = $2 WHERE id = $3
	`, models.StatusClosed, closedAt, contestID)
	if err != nil {
		slog.Error("failed to close contest", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to close contest")
		return
	}

	slog.Info("contest closed", "contest_id", contestID)

	middleware.JSONResponse(w, http.StatusOK, models.CloseContestResponse{
		ClosedAt: closedAt,
	})
}

// GetContest handles GET /contests/:id
// Public read of the contest configuration and its targets.
func (h *ContestHandler) GetContest(w http.ResponseWriter, r *http.Request) {
	contestID := r.PathValue("id")
	if contestID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "contest_id is required")
		return
	}

	var c models.Contest
	var verifyPhone int
	err := h.db.QueryRow(`
		SELECT id, title, kind, status, current_round, max_targets, verify_phone, tally_shards, closed_at, created_at
		FROM contest WHERE id = $1
	`, contestID).Scan(
		&c.ID, &c.Title, &c.Kind, &c.Status, &c.CurrentRound,
		&c.MaxTargets, &verifyPhone, &c.TallyShards, &c.ClosedAt, &c.CreatedAt,
	)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Contest not found")
		return
	}
	if err != nil {
		slog.Error("failed to query contest", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	c.VerifyPhone = verifyPhone != 0

	rows, err := h.db.Query(`
		SELECT id, contest_id, label
		FROM contest_target
		WHERE contest_id = $1
		ORDER BY id
	`, contestID)
	if err != nil {
		slog.Error("failed to query targets", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	targets := []models.Target{}
	for rows.Next() {
		var t models.Target
		if err := rows.Scan(&t.ID, &t.ContestID, &t.Label); err != nil {
			slog.Error("failed to scan target", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		targets = append(targets, t)
	}

	middleware.JSONResponse(w, http.StatusOK, models.ContestWithTargets{
		Contest: c,
		Targets: targets,
	})
}
