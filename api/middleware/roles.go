package middleware

import (
	"net/http"

	"github.com/angelmondragon/kudibooks-backend/api/responses"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
)

// RequireRole admits actors whose role is at least minimum.
func RequireRole(logg *logger.Logger, minimum enums.MemberRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !RoleFromContext(r.Context()).AtLeast(minimum) {
				err := pkgerrors.New(pkgerrors.CodeForbidden, minimum.String()+" role required")
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
