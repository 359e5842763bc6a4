package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
)

const maxRequestIDBytes = 64

// upstream proxies and payment providers name the header differently
var requestIDHeaders = []string{"X-Request-Id", "X-Correlation-Id"}

// RequestID tags the request with the caller's id when it is usable, otherwise
// a fresh uuid, and always echoes it back as X-Request-Id.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := inboundRequestID(r)
			w.Header().Set(requestIDHeaders[0], reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func inboundRequestID(r *http.Request) string {
	for _, header := range requestIDHeaders {
		if id := strings.TrimSpace(r.Header.Get(header)); usableRequestID(id) {
			return id
		}
	}
	return uuid.NewString()
}

// usableRequestID keeps ids to a short run of printable ASCII so they can be
// logged and echoed without escaping.
func usableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDBytes {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
