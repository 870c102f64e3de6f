package testutil

import (
	"net/http"

	id "benefind/pkg/domain"
	"benefind/pkg/requestcontext"
)

// WithUserID attaches an authenticated user, as the owner middleware would.
func WithUserID(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithSessionID attaches an anonymous intake session.
func WithSessionID(req *http.Request, sessionID id.SessionID) *http.Request {
	return req.WithContext(requestcontext.WithSessionID(req.Context(), sessionID))
}
