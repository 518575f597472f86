// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lifecatcher9182/vote-system-sub000/auth"
)

type contextKey string

const codeIDKey contextKey = "code_id"

// RequireAdmin rejects requests whose X-Admin-Key header does not match
// adminKey
func RequireAdmin(adminKey string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if err := auth.ValidateAdminKey(r.Header.Get("X-Admin-Key"), adminKey); err != nil {
				slog.Warn("admin request rejected", "path", r.URL.Path, "remote", GetClientIP(r))
				ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
				return
			}
			next(w, r)
		}
	}
}

// RequireSession accepts only requests carrying a valid voter session
// token as "Authorization: Bearer <token>". The code id from the token is
// stored in the request context.
func RequireSession(secret string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				ErrorResponse(w, http.StatusUnauthorized, "Session token required")
				return
			}

			codeID, err := auth.ParseSessionToken(secret, raw)
			if err != nil {
				ErrorResponse(w, http.StatusUnauthorized, "Session expired, enter your code again")
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), codeIDKey, codeID)))
		}
	}
}

// CodeID returns the voter code id stored by RequireSession
func CodeID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(codeIDKey).(string)
	return id, ok && id != ""
}
