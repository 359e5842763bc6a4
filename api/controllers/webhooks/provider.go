package webhooks

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/kudibooks-backend/api/responses"
	internalwebhooks "github.com/angelmondragon/kudibooks-backend/internal/webhooks"
	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
)

// Providers cap callbacks well below this.
const maxWebhookBytes = 1 << 20

type Processor interface {
	HandleWebhook(ctx context.Context, req internalwebhooks.Request) (internalwebhooks.Result, error)
}

// ProviderWebhook accepts a payment provider callback. Every authenticated, parseable
// event is acknowledged with 200, including duplicates and ignored events, so the
// provider stops retrying.
func ProviderWebhook(proc Processor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if proc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook processor unavailable"))
			return
		}

		req := internalwebhooks.Request{
			Provider: strings.ToLower(strings.TrimSpace(chi.URLParam(r, "provider"))),
			Headers:  r.Header,
		}
		if raw := strings.TrimSpace(chi.URLParam(r, "tenantId")); raw != "" {
			tenantID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "unknown webhook route"))
				return
			}
			req.TenantID = &tenantID
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes+1))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}
		if len(body) > maxWebhookBytes {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload too large"))
			return
		}
		req.Body = body

		result, err := proc.HandleWebhook(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status := result.Status
		if status == 0 {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}
