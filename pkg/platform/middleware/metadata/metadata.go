// Package metadata attaches request metadata (request id) to the context.
package metadata

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"benefind/pkg/requestcontext"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds caller-supplied request ids before they reach logs.
const maxRequestIDLen = 64

// RequestID reuses a caller-supplied X-Request-ID when it is short and printable,
// otherwise it generates one. The id is stored in the context and echoed back.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if !isPrintable(requestID) || len(requestID) > maxRequestIDLen {
			requestID = ""
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isPrintable(s string) bool {
	for _, r := range s {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}
