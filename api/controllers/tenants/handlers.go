package tenants

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/kudibooks-backend/api/middleware"
	"github.com/angelmondragon/kudibooks-backend/api/responses"
	"github.com/angelmondragon/kudibooks-backend/api/validators"
	"github.com/angelmondragon/kudibooks-backend/internal/credentials"
	"github.com/angelmondragon/kudibooks-backend/internal/quota"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
	"github.com/angelmondragon/kudibooks-backend/pkg/types"
)

type QuotaService interface {
	Usage(ctx context.Context, tenantID uuid.UUID) (*quota.Usage, error)
}

type CredentialsService interface {
	Describe(ctx context.Context, tenantID uuid.UUID) (*credentials.View, error)
	UpdateCredentials(ctx context.Context, tenantID uuid.UUID, input credentials.UpdateInput) (*credentials.View, error)
	ClearCredentials(ctx context.Context, tenantID uuid.UUID) error
	UpdateBankDetails(ctx context.Context, tenantID uuid.UUID, details *types.BankDetails) (*types.BankDetails, error)
}

type credentialsRequest struct {
	Provider      string `json:"provider" validate:"required,oneof=paystack flutterwave stripe"`
	SecretKey     string `json:"secret_key" validate:"required,min=8,max=256"`
	PublicKey     string `json:"public_key" validate:"omitempty,max=256"`
	WebhookSecret string `json:"webhook_secret" validate:"omitempty,max=256"`
}

type bankDetailsRequest struct {
	BankName      string  `json:"bank_name" validate:"required,max=120"`
	AccountName   string  `json:"account_name" validate:"required,max=200"`
	AccountNumber string  `json:"account_number" validate:"required,numeric,min=6,max=34"`
	SortCode      *string `json:"sort_code" validate:"omitempty,max=20"`
}

// Quota reports the tenant's plan and usage for the current period.
func Quota(svc QuotaService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quota service unavailable"))
			return
		}
		tenantID, ok := middleware.TenantIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant missing from token"))
			return
		}
		usage, err := svc.Usage(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, usage)
	}
}

func GetCredentials(svc CredentialsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := credentialsScope(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Describe(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// PutCredentials stores a tenant-owned provider key set. Secrets are never echoed back.
func PutCredentials(svc CredentialsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := credentialsScope(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req credentialsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		provider, err := enums.ParsePaymentProvider(req.Provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported provider"))
			return
		}

		view, err := svc.UpdateCredentials(r.Context(), tenantID, credentials.UpdateInput{
			Provider:      provider,
			SecretKey:     req.SecretKey,
			PublicKey:     req.PublicKey,
			WebhookSecret: req.WebhookSecret,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "provider", provider), "tenant payment credentials updated")
		}
		responses.WriteSuccess(w, view)
	}
}

// DeleteCredentials reverts the tenant to the platform default account.
func DeleteCredentials(svc CredentialsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := credentialsScope(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ClearCredentials(r.Context(), tenantID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PutBankDetails sets the transfer instructions printed for manual payment.
func PutBankDetails(svc CredentialsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := credentialsScope(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req bankDetailsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		saved, err := svc.UpdateBankDetails(r.Context(), tenantID, &types.BankDetails{
			BankName:      req.BankName,
			AccountName:   req.AccountName,
			AccountNumber: req.AccountNumber,
			SortCode:      req.SortCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, saved)
	}
}

func DeleteBankDetails(svc CredentialsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := credentialsScope(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := svc.UpdateBankDetails(r.Context(), tenantID, nil); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func credentialsScope(r *http.Request, svc CredentialsService) (uuid.UUID, error) {
	if svc == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeInternal, "credentials service unavailable")
	}
	tenantID, ok := middleware.TenantIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant missing from token")
	}
	return tenantID, nil
}
