package credentials

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
	"github.com/angelmondragon/kudibooks-backend/pkg/security"
	"github.com/angelmondragon/kudibooks-backend/pkg/types"
)

type UpdateInput struct {
	Provider      enums.PaymentProvider
	SecretKey     string
	PublicKey     string
	WebhookSecret string
}

// View is the masked representation returned to tenant owners.
type View struct {
	Provider         *enums.PaymentProvider `json:"provider"`
	SecretKeyHint    string                 `json:"secret_key_hint,omitempty"`
	PublicKey        *string                `json:"public_key,omitempty"`
	HasWebhookSecret bool                   `json:"has_webhook_secret"`
	UsesPlatform     bool                   `json:"uses_platform_default"`
	UpdatedAt        *time.Time             `json:"updated_at,omitempty"`
	BankDetails      *types.BankDetails     `json:"bank_details,omitempty"`
}

// UpdateCredentials seals and stores a tenant-owned credential set.
func (r *Resolver) UpdateCredentials(ctx context.Context, tenantID uuid.UUID, input UpdateInput) (*View, error) {
	secret := strings.TrimSpace(input.SecretKey)
	webhookSecret := strings.TrimSpace(input.WebhookSecret)
	if !input.Provider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider")
	}
	if secret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "secret key is required")
	}
	if input.Provider != enums.PaymentProviderPaystack && webhookSecret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook secret is required for "+input.Provider.String())
	}

	sealedSecret, err := r.sealer.Seal(secret)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seal secret key")
	}
	set := sealedSet{Provider: &input.Provider, SealedSecretKey: &sealedSecret}
	if webhookSecret != "" {
		sealedHook, err := r.sealer.Seal(webhookSecret)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seal webhook secret")
		}
		set.SealedWebhookSecret = &sealedHook
	}
	if public := strings.TrimSpace(input.PublicKey); public != "" {
		set.PublicKey = &public
	}

	now := r.clock()
	ok, err := r.repo.SaveCredentials(ctx, tenantID, set, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save credentials")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}

	if r.logg != nil {
		logCtx := r.logg.WithTenantID(ctx, tenantID.String())
		r.logg.Info(r.logg.WithField(logCtx, "provider", input.Provider), "tenant payment credentials updated")
	}
	return &View{
		Provider:         &input.Provider,
		SecretKeyHint:    security.Mask(secret),
		PublicKey:        set.PublicKey,
		HasWebhookSecret: set.SealedWebhookSecret != nil,
		UpdatedAt:        &now,
	}, nil
}

// ClearCredentials reverts a tenant to the platform default credentials.
func (r *Resolver) ClearCredentials(ctx context.Context, tenantID uuid.UUID) error {
	ok, err := r.repo.SaveCredentials(ctx, tenantID, sealedSet{}, r.clock())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear credentials")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	if r.logg != nil {
		r.logg.Info(r.logg.WithTenantID(ctx, tenantID.String()), "tenant payment credentials cleared")
	}
	return nil
}

// Describe returns the masked credential view for a tenant.
func (r *Resolver) Describe(ctx context.Context, tenantID uuid.UUID) (*View, error) {
	tenant, err := r.loadTenant(ctx, nil, tenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.HasOwnCredentials() {
		return &View{UsesPlatform: true, BankDetails: tenant.BankDetails}, nil
	}
	view := &View{
		Provider:         tenant.PaymentProvider,
		PublicKey:        tenant.PublicKey,
		HasWebhookSecret: tenant.SealedWebhookSecret != nil && *tenant.SealedWebhookSecret != "",
		UpdatedAt:        tenant.CredentialsUpdatedAt,
		BankDetails:      tenant.BankDetails,
	}
	if secret, err := r.sealer.Open(*tenant.SealedSecretKey); err == nil {
		view.SecretKeyHint = security.Mask(secret)
	}
	return view, nil
}

// UpdateBankDetails stores the bank-transfer instructions shown to customers
// paying outside the provider link. A nil details value removes them.
func (r *Resolver) UpdateBankDetails(ctx context.Context, tenantID uuid.UUID, details *types.BankDetails) (*types.BankDetails, error) {
	if details != nil {
		clean := types.BankDetails{
			BankName:      strings.TrimSpace(details.BankName),
			AccountName:   strings.TrimSpace(details.AccountName),
			AccountNumber: strings.TrimSpace(details.AccountNumber),
			SortCode:      details.SortCode,
		}
		if clean.BankName == "" || clean.AccountNumber == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank name and account number are required")
		}
		details = &clean
	}

	ok, err := r.repo.SaveBankDetails(ctx, tenantID, details, r.clock())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save bank details")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	if r.logg != nil {
		r.logg.Info(r.logg.WithTenantID(ctx, tenantID.String()), "tenant bank details updated")
	}
	return details, nil
}
