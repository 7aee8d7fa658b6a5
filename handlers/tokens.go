// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/eventloophq/turnstile/middleware"
	"github.com/eventloophq/turnstile/models"
	"github.com/eventloophq/turnstile/tokenmap"
)

type TokenHandler struct {
	tokens *tokenmap.Resolver
}

func NewTokenHandler(tokens *tokenmap.Resolver) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// ResolveToken handles GET /participations/resolve?contest_id=...&token=...
//
// Clients use this to check whether an access token from a previous
// submission still refers to a committed record. Unknown and malformed
// tokens both answer exists=false; the shape never leaks whether the token
// was close to a real one.
func (h *TokenHandler) ResolveToken(w http.ResponseWriter, r *http.Request) {
	contestID := r.URL.Query().Get("contest_id")
	token := r.URL.Query().Get("token")

	if contestID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "contest_id is required")
		return
	}
	if token == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "token is required")
		return
	}

	ref, err := h.tokens.ResolveToken(r.Context(), token)
	if errors.Is(err, tokenmap.ErrNotFound) {
		middleware.JSONResponse(w, http.StatusOK, models.ResolveTokenResponse{Exists: false})
		return
	}
	if err != nil {
		slog.Error("failed to resolve token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// A token scoped to a different contest resolves to nothing here
	if ref.ContestID != contestID {
		middleware.JSONResponse(w, http.StatusOK, models.ResolveTokenResponse{Exists: false})
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ResolveTokenResponse{
		Exists:         true,
		RecordID:       ref.RecordID,
		Round:          ref.Round,
		Tier:           ref.Tier,
		MaskedIdentity: maskIdentity(ref.IdentityKey),
	})
}

// maskIdentity keeps enough of the key for a client to recognize its own
// record without exposing the full identity.
func maskIdentity(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-2:]
}
