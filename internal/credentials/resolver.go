package credentials

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/kudibooks-backend/pkg/config"
	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
	"github.com/angelmondragon/kudibooks-backend/pkg/payments"
	"github.com/angelmondragon/kudibooks-backend/pkg/security"
)

// Resolution is the credential set chosen for a tenant and where it came from.
type Resolution struct {
	Credentials   payments.Credentials
	IsTenantOwned bool
}

// PlatformCredentials builds the fallback credential sets from config, keyed by provider.
func PlatformCredentials(cfg config.PaymentsConfig) map[enums.PaymentProvider]payments.Credentials {
	out := map[enums.PaymentProvider]payments.Credentials{}
	add := func(c payments.Credentials) {
		if strings.TrimSpace(c.SecretKey) != "" {
			out[c.Provider] = c
		}
	}
	add(payments.Credentials{
		Provider:      enums.PaymentProviderPaystack,
		SecretKey:     cfg.PaystackSecretKey,
		PublicKey:     cfg.PaystackPublicKey,
		WebhookSecret: cfg.PaystackSecretKey,
	})
	add(payments.Credentials{
		Provider:      enums.PaymentProviderFlutterwave,
		SecretKey:     cfg.FlutterwaveSecretKey,
		PublicKey:     cfg.FlutterwavePublicKey,
		WebhookSecret: cfg.FlutterwaveWebhookHash,
	})
	add(payments.Credentials{
		Provider:      enums.PaymentProviderStripe,
		SecretKey:     cfg.StripeSecretKey,
		PublicKey:     cfg.StripePublicKey,
		WebhookSecret: cfg.StripeWebhookSecret,
	})
	return out
}

type ResolverParams struct {
	Repo            *Repository
	Sealer          *security.Sealer
	Platform        map[enums.PaymentProvider]payments.Credentials
	DefaultProvider enums.PaymentProvider
	Logger          *logger.Logger
}

// Resolver picks tenant-owned credentials, else the platform default.
type Resolver struct {
	repo            *Repository
	sealer          *security.Sealer
	platform        map[enums.PaymentProvider]payments.Credentials
	defaultProvider enums.PaymentProvider
	logg            *logger.Logger
	clock           func() time.Time
}

func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "credentials repository required")
	}
	if params.Sealer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sealer required")
	}
	if params.DefaultProvider != "" && !params.DefaultProvider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "invalid default payment provider")
	}
	platform := params.Platform
	if platform == nil {
		platform = map[enums.PaymentProvider]payments.Credentials{}
	}
	return &Resolver{
		repo:            params.Repo,
		sealer:          params.Sealer,
		platform:        platform,
		defaultProvider: params.DefaultProvider,
		logg:            params.Logger,
		clock:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// Resolve returns the credentials used to create payment links for tenantID.
func (r *Resolver) Resolve(ctx context.Context, tenantID uuid.UUID) (Resolution, error) {
	return r.ResolveTx(ctx, nil, tenantID)
}

// ResolveTx is Resolve reading through the caller's transaction.
func (r *Resolver) ResolveTx(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (Resolution, error) {
	tenant, err := r.loadTenant(ctx, tx, tenantID)
	if err != nil {
		return Resolution{}, err
	}
	if tenant.HasOwnCredentials() {
		return r.tenantResolution(tenant)
	}
	return r.platformResolution(ctx, tenantID, r.defaultProvider)
}

// ResolveForProvider returns the tenant's own credentials when they are for provider, else the platform's.
func (r *Resolver) ResolveForProvider(ctx context.Context, tx *gorm.DB, provider enums.PaymentProvider, tenantID *uuid.UUID) (Resolution, error) {
	if !provider.IsValid() {
		return Resolution{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider")
	}
	if tenantID != nil {
		tenant, err := r.loadTenant(ctx, tx, *tenantID)
		if err != nil {
			return Resolution{}, err
		}
		if tenant.HasOwnCredentials() && *tenant.PaymentProvider == provider {
			return r.tenantResolution(tenant)
		}
		return r.platformResolution(ctx, *tenantID, provider)
	}
	return r.platformResolution(ctx, uuid.Nil, provider)
}

// ResolveForWebhook returns the secret set used to authenticate a provider callback.
func (r *Resolver) ResolveForWebhook(ctx context.Context, provider enums.PaymentProvider, tenantID *uuid.UUID) (payments.Credentials, error) {
	res, err := r.ResolveForProvider(ctx, nil, provider, tenantID)
	if err != nil {
		return payments.Credentials{}, err
	}
	return res.Credentials, nil
}

func (r *Resolver) tenantResolution(tenant *models.Tenant) (Resolution, error) {
	secret, err := r.sealer.Open(*tenant.SealedSecretKey)
	if err != nil {
		return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "tenant credentials unreadable")
	}
	creds := payments.Credentials{Provider: *tenant.PaymentProvider, SecretKey: secret}
	if tenant.PublicKey != nil {
		creds.PublicKey = *tenant.PublicKey
	}
	if tenant.SealedWebhookSecret != nil && *tenant.SealedWebhookSecret != "" {
		hook, err := r.sealer.Open(*tenant.SealedWebhookSecret)
		if err != nil {
			return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "tenant webhook secret unreadable")
		}
		creds.WebhookSecret = hook
	} else if creds.Provider == enums.PaymentProviderPaystack {
		creds.WebhookSecret = secret
	}
	return Resolution{Credentials: creds, IsTenantOwned: true}, nil
}

func (r *Resolver) platformResolution(ctx context.Context, tenantID uuid.UUID, provider enums.PaymentProvider) (Resolution, error) {
	creds, ok := r.platform[provider]
	if !ok || !creds.Configured() {
		return Resolution{}, pkgerrors.New(pkgerrors.CodePaymentNotConfigured, "no payment credentials configured")
	}
	if r.logg != nil {
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"outcome":  "credentials.platform_default",
			"provider": provider,
		})
		if tenantID != uuid.Nil {
			logCtx = r.logg.WithTenantID(logCtx, tenantID.String())
		}
		r.logg.Info(logCtx, "using platform default payment credentials")
	}
	return Resolution{Credentials: creds, IsTenantOwned: false}, nil
}

func (r *Resolver) loadTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (*models.Tenant, error) {
	tenant, err := r.repo.FindTenant(ctx, tx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
	}
	return tenant, nil
}
