// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/eventloophq/turnstile/middleware"
	"github.com/eventloophq/turnstile/realtime"
)

type LiveHandler struct {
	db  *sql.DB
	hub *realtime.Hub
}

func NewLiveHandler(db *sql.DB, hub *realtime.Hub) *LiveHandler {
	return &LiveHandler{db: db, hub: hub}
}

// Live handles GET /contests/:id/live
//
// Streams counter deltas as Server-Sent Events until the client goes away.
// The stream is best-effort: a delta dropped under load is not resent, and
// dashboards reconcile against the tallies endpoint. Deltas are never
// emitted before their transaction commits.
func (h *LiveHandler) Live(w http.ResponseWriter, r *http.Request) {
	contestID := r.PathValue("id")
	if contestID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "contest_id is required")
		return
	}

	var exists bool
	err := h.db.QueryRow("SELECT EXISTS(SELECT 1 FROM contest WHERE id = $1)", contestID).Scan(&exists)
	if err != nil {
		slog.Error("failed to query contest", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.ErrorResponse(w, http.StatusNotFound, "Contest not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.hub.Subscribe(contestID)
	defer sub.Close()

	slog.Info("live stream opened", "contest_id", contestID)

	for {
		select {
		case <-r.Context().Done():
			slog.Info("live stream closed", "contest_id", contestID)
			return
		case delta, ok := <-sub.C:
			if !ok {
				return
			}
			payload, err := json.Marshal(delta)
			if err != nil {
				slog.Error("failed to encode delta", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
