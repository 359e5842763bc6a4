package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/kudibooks-backend/api/controllers"
	invoicecontrollers "github.com/angelmondragon/kudibooks-backend/api/controllers/invoices"
	tenantcontrollers "github.com/angelmondragon/kudibooks-backend/api/controllers/tenants"
	webhookcontrollers "github.com/angelmondragon/kudibooks-backend/api/controllers/webhooks"
	"github.com/angelmondragon/kudibooks-backend/api/middleware"
	"github.com/angelmondragon/kudibooks-backend/pkg/config"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
	"github.com/angelmondragon/kudibooks-backend/pkg/redis"
)

// redisStore is the slice of the Redis client the HTTP edge uses.
type redisStore interface {
	controllers.Pinger
	redis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient redisStore,
	gatherer prometheus.Gatherer,
	invoiceService invoicecontrollers.Service,
	quotaService tenantcontrollers.QuotaService,
	credentialsService tenantcontrollers.CredentialsService,
	webhookProcessor webhookcontrollers.Processor,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.PublicURL),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Provider callbacks authenticate by signature, not JWT.
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/{provider}", webhookcontrollers.ProviderWebhook(webhookProcessor, logg))
		r.Post("/{provider}/{tenantId}", webhookcontrollers.ProviderWebhook(webhookProcessor, logg))
	})

	tenantLimit := middleware.RateLimitPolicy{
		Name:   "tenant",
		Window: cfg.RateLimit.TenantWindow,
		Limit:  cfg.RateLimit.TenantLimit,
	}
	critical := middleware.Idempotency(redisClient, middleware.CriticalIdempotency(), logg)
	optional := middleware.Idempotency(redisClient, middleware.OptionalIdempotency(), logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(tenantLimit, redisClient, logg))

		r.Route("/invoices", func(r chi.Router) {
			r.With(critical).Post("/", invoicecontrollers.Create(invoiceService, logg))
			r.Get("/", invoicecontrollers.List(invoiceService, logg))
			r.Get("/{invoiceId}", invoicecontrollers.Detail(invoiceService, logg))
			r.With(optional).Patch("/{invoiceId}", invoicecontrollers.UpdateStatus(invoiceService, logg))
			r.With(optional).Post("/{invoiceId}/payment-link", invoicecontrollers.RegeneratePaymentLink(invoiceService, logg))
			r.Post("/{invoiceId}/verify", invoicecontrollers.Verify(invoiceService, logg))
		})

		r.Get("/quota", tenantcontrollers.Quota(quotaService, logg))

		r.Route("/tenant/payment-credentials", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.MemberRoleOwner))
			r.Get("/", tenantcontrollers.GetCredentials(credentialsService, logg))
			r.With(optional).Put("/", tenantcontrollers.PutCredentials(credentialsService, logg))
			r.Delete("/", tenantcontrollers.DeleteCredentials(credentialsService, logg))
		})
		r.Route("/tenant/bank-details", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.MemberRoleOwner))
			r.With(optional).Put("/", tenantcontrollers.PutBankDetails(credentialsService, logg))
			r.Delete("/", tenantcontrollers.DeleteBankDetails(credentialsService, logg))
		})
	})

	return r
}
