// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/eventloophq/turnstile/admission"
	"github.com/eventloophq/turnstile/cliparse"
	"github.com/eventloophq/turnstile/handlers"
	"github.com/eventloophq/turnstile/middleware"
	"github.com/eventloophq/turnstile/realtime"
	"github.com/eventloophq/turnstile/tokenmap"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, engine *admission.Engine, hub *realtime.Hub) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	contestHandler := handlers.NewContestHandler(db, cfg)
	submissionHandler := handlers.NewSubmissionHandler(engine, cfg)
	tallyHandler := handlers.NewTallyHandler(db)
	tokenHandler := handlers.NewTokenHandler(tokenmap.NewResolver(db))
	liveHandler := handlers.NewLiveHandler(db, hub)

	// Organizer endpoints get a per-IP throttle on top of the submission
	// limiter; lifecycle changes are rare and bursts are suspicious
	organizerLimiter := middleware.NewIPLimiter(5, 10)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("DB DOWN"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Contest lifecycle (organizer operations)
	mux.HandleFunc("POST /contests", middleware.WithLogging(organizerLimiter.Wrap(contestHandler.CreateContest)))
	mux.HandleFunc("POST /contests/{id}/targets", middleware.WithLogging(organizerLimiter.Wrap(contestHandler.AddTarget)))
	mux.HandleFunc("POST /contests/{id}/open", middleware.WithLogging(organizerLimiter.Wrap(contestHandler.OpenContest)))
	mux.HandleFunc("POST /contests/{id}/rounds", middleware.WithLogging(organizerLimiter.Wrap(contestHandler.AdvanceRound)))
	mux.HandleFunc("POST /contests/{id}/close", middleware.WithLogging(organizerLimiter.Wrap(contestHandler.CloseContest)))

	// Participant endpoints (public)
	mux.HandleFunc("GET /contests/{id}", middleware.WithLogging(contestHandler.GetContest))
	mux.HandleFunc("POST /contests/{id}/submissions", middleware.WithLogging(submissionHandler.Submit))
	mux.HandleFunc("GET /contests/{id}/tallies", middleware.WithLogging(tallyHandler.GetTallies))
	mux.HandleFunc("GET /participations/resolve", middleware.WithLogging(tokenHandler.ResolveToken))

	// Live counter feed (SSE, no request logging around the long poll)
	mux.HandleFunc("GET /contests/{id}/live", liveHandler.Live)

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("turnstile API v1"))
	})

	return mux
}
