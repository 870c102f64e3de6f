// Package auth resolves who a screening belongs to: an authenticated user
// (bearer JWT) or an anonymous intake session (X-Intake-Session header).
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "benefind/pkg/domain"
	dErrors "benefind/pkg/domain-errors"
	"benefind/pkg/platform/httputil"
	"benefind/pkg/requestcontext"
)

// SessionHeader carries the anonymous intake session id.
const SessionHeader = "X-Intake-Session"

// JWTValidator validates bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims are the claims the middleware needs from a validated token.
type JWTClaims struct {
	UserID string
}

// ResolveOwner stores the request owner in the context. A present but invalid
// bearer token is rejected; a request without any owner passes through and the
// handler decides whether it needs one.
func ResolveOwner(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && validator != nil {
				claims, err := validator.ValidateToken(token)
				if err != nil {
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err,
						"request_id", requestID,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
					return
				}
				userID, err := id.ParseUserID(claims.UserID)
				if err != nil {
					logger.WarnContext(ctx, "unauthorized access - malformed subject",
						"error", err,
						"request_id", requestID,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
					return
				}
				next.ServeHTTP(w, r.WithContext(requestcontext.WithUserID(ctx, userID)))
				return
			}

			if raw := strings.TrimSpace(r.Header.Get(SessionHeader)); raw != "" {
				sessionID, err := id.ParseSessionID(raw)
				if err != nil {
					httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid intake session id"))
					return
				}
				ctx = requestcontext.WithSessionID(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
