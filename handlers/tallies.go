// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/eventloophq/turnstile/middleware"
	"github.com/eventloophq/turnstile/models"
)

type TallyHandler struct {
	db *sql.DB
}

func NewTallyHandler(db *sql.DB) *TallyHandler {
	return &TallyHandler{db: db}
}

// GetTallies handles GET /contests/:id/tallies?round=N
//
// Counts are read by summing the tally shards, so the response is exact
// regardless of how many shards the contest spreads writes across. The
// round defaults to the contest's current round.
func (h *TallyHandler) GetTallies(w http.ResponseWriter, r *http.Request) {
	contestID := r.PathValue("id")
	if contestID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "contest_id is required")
		return
	}

	var currentRound int
	err := h.db.QueryRow("SELECT current_round FROM contest WHERE id = $1", contestID).Scan(&currentRound)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Contest not found")
		return
	}
	if err != nil {
		slog.Error("failed to query contest", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	round := currentRound
	if raw := r.URL.Query().Get("round"); raw != "" {
		round, err = strconv.Atoi(raw)
		if err != nil || round < 1 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "round must be a positive integer")
			return
		}
	}

	// Every target appears in the response, zero-count included
	rows, err := h.db.Query(`
		SELECT t.id, t.label, COALESCE(SUM(y.count), 0)
		FROM contest_target t
		LEFT JOIN tally y ON y.contest_id = t.contest_id AND y.target_id = t.id AND y.round = $1
		WHERE t.contest_id = $2
		GROUP BY t.id, t.label
		ORDER BY t.id
	`, round, contestID)
	if err != nil {
		slog.Error("failed to query tallies", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	tallies := []models.TallyEntry{}
	for rows.Next() {
		var e models.TallyEntry
		if err := rows.Scan(&e.TargetID, &e.Label, &e.Count); err != nil {
			slog.Error("failed to scan tally", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		tallies = append(tallies, e)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read tallies", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var ledger int64
	err = h.db.QueryRow(`
		SELECT COUNT(*) FROM participation WHERE contest_id = $1 AND round = $2
	`, contestID, round).Scan(&ledger)
	if err != nil {
		slog.Error("failed to count ledger", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.TalliesResponse{
		ContestID: contestID,
		Round:     round,
		Tallies:   tallies,
		Ledger:    ledger,
	})
}
