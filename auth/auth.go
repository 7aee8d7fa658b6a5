// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
)

// AccessTokenBytes is the byte length of participant access tokens.
// The wire format is the hex encoding: exactly 32 lowercase hex characters.
const AccessTokenBytes = 16

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateAccessToken creates the opaque token handed to a participant at
// commit time. Fixed-length hex so the lookup cache can reject malformed
// input without a store call.
func GenerateAccessToken() (string, error) {
	return GenerateID(AccessTokenBytes)
}

// GenerateAdminKey creates an HMAC-based admin key for a contest
// This is deterministic and verifiable
func GenerateAdminKey(contestID, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(contestID))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateAdminKey checks if the provided admin key is valid for the contest
func ValidateAdminKey(contestID, adminKey, salt string) error {
	expected := GenerateAdminKey(contestID, salt)
	if !hmac.Equal([]byte(adminKey), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// HashPhone creates a one-way hash of a verified phone number. The full hex
// digest is used as the strong-tier identity key, so two contests with the
// same salt derive the same key for the same phone.
func HashPhone(phone, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(phone))
	return hex.EncodeToString(h.Sum(nil))
}

// HashIP creates a one-way hash of an IP address for privacy
// Includes salt to prevent rainbow table attacks
func HashIP(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	sum := h.Sum(nil)
	// Return first 16 hex chars (64 bits) - enough for deduplication
	return hex.EncodeToString(sum[:8])
}
