// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/eventloophq/turnstile/admission"
	"github.com/eventloophq/turnstile/auth"
	"github.com/eventloophq/turnstile/cliparse"
	"github.com/eventloophq/turnstile/middleware"
	"github.com/eventloophq/turnstile/models"
)

type SubmissionHandler struct {
	engine *admission.Engine
	cfg    cliparse.Config
}

func NewSubmissionHandler(engine *admission.Engine, cfg cliparse.Config) *SubmissionHandler {
	return &SubmissionHandler{engine: engine, cfg: cfg}
}

// Submit handles POST /contests/:id/submissions
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	contestID := r.PathValue("id")
	if contestID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "contest_id is required")
		return
	}

	var req models.SubmitRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.JSONResponse(w, http.StatusBadRequest, models.SubmitResponse{
			Error:     "Invalid JSON",
			ErrorCode: models.CodeInvalidRequest,
		})
		return
	}

	// The path is authoritative; a conflicting body contestId is a client bug
	if req.ContestID != "" && req.ContestID != contestID {
		middleware.JSONResponse(w, http.StatusBadRequest, models.SubmitResponse{
			Error:     "contestId does not match the request path",
			ErrorCode: models.CodeInvalidRequest,
		})
		return
	}
	req.ContestID = contestID

	res, err := h.engine.Submit(r.Context(), req, h.clientKey(r, req))
	if err != nil {
		writeSubmitError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SubmitResponse{
		Success:        true,
		VotesSubmitted: res.Votes,
		AccessToken:    res.AccessToken,
	})
}

// clientKey picks the rate-limit key for a request: the declared device id
// when present, otherwise a salted hash of the client IP so the limiter
// still has a stable key for anonymous clients behind the same address.
func (h *SubmissionHandler) clientKey(r *http.Request, req models.SubmitRequest) string {
	if deviceID := r.Header.Get("X-Device-ID"); deviceID != "" {
		return deviceID
	}
	if req.IdentityID != "" {
		return req.IdentityID
	}
	return auth.HashIP(middleware.GetClientIP(r), h.cfg.AdminKeySalt)
}

// writeSubmitError maps the admission error taxonomy onto HTTP. Every
// outcome uses the SubmitResponse shape so clients parse one envelope.
func writeSubmitError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	var eerr *models.EligibilityError
	var rerr *models.RateLimitError
	var derr *models.DuplicateIdentityError
	var terr *models.TransientError

	switch {
	case errors.As(err, &verr):
		middleware.JSONResponse(w, http.StatusBadRequest, models.SubmitResponse{
			Error:     verr.Message,
			ErrorCode: verr.Code,
		})

	case errors.As(err, &eerr):
		status := http.StatusBadRequest
		if eerr.Code == models.CodeContestNotFound {
			status = http.StatusNotFound
		}
		middleware.JSONResponse(w, status, models.SubmitResponse{
			Error:     eerr.Message,
			ErrorCode: eerr.Code,
		})

	case errors.As(err, &rerr):
		seconds := int64(rerr.RetryAfter.Seconds())
		if rerr.RetryAfter > time.Duration(seconds)*time.Second {
			seconds++
		}
		w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
		middleware.JSONResponse(w, http.StatusTooManyRequests, models.SubmitResponse{
			Error:        "Too many submissions, slow down",
			ErrorCode:    models.CodeRateLimited,
			RetryAfterMs: rerr.RetryAfter.Milliseconds(),
		})

	case errors.As(err, &derr):
		middleware.JSONResponse(w, http.StatusForbidden, models.SubmitResponse{
			Error:     derr.Error(),
			ErrorCode: derr.Code(),
		})

	case errors.As(err, &terr):
		middleware.JSONResponse(w, http.StatusServiceUnavailable, models.SubmitResponse{
			Error:     "Temporarily unable to commit, please retry",
			ErrorCode: models.CodeTransient,
		})

	default:
		slog.Error("submission failed", "error", err)
		middleware.JSONResponse(w, http.StatusInternalServerError, models.SubmitResponse{
			Error:     "Internal error",
			ErrorCode: models.CodeTransient,
		})
	}
}
