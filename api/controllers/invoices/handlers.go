package invoices

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/kudibooks-backend/api/middleware"
	"github.com/angelmondragon/kudibooks-backend/api/responses"
	"github.com/angelmondragon/kudibooks-backend/api/validators"
	internalinvoices "github.com/angelmondragon/kudibooks-backend/internal/invoices"
	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
	"github.com/angelmondragon/kudibooks-backend/pkg/pagination"
)

// Service is the invoice surface the HTTP layer drives.
type Service interface {
	Create(ctx context.Context, input internalinvoices.CreateInput) (*internalinvoices.CreateResult, error)
	List(ctx context.Context, tenantID uuid.UUID, params internalinvoices.ListParams) (*internalinvoices.ListResult, error)
	Get(ctx context.Context, tenantID uuid.UUID, invoiceID string) (*models.Invoice, error)
	History(ctx context.Context, tenantID uuid.UUID, invoiceID string) ([]models.InvoiceStatusChange, error)
	UpdateStatus(ctx context.Context, update internalinvoices.StatusUpdate) (*internalinvoices.StatusResult, error)
	RegeneratePaymentLink(ctx context.Context, tenantID uuid.UUID, invoiceID string) (*models.Invoice, error)
	ConfirmWithProvider(ctx context.Context, tenantID *uuid.UUID, invoiceID string) (*models.Invoice, error)
}

// Create issues an invoice for the caller's tenant and returns the payment link when one was generated.
func Create(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createInvoiceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := req.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.TenantID = tenantID

		result, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCreateResponse(result))
	}
}

func List(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.QueryInt(r, "limit", validators.IntBounds{
			Default: pagination.DefaultLimit,
			Min:     1,
			Max:     pagination.MaxLimit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.QueryEnum(r, "status", enums.ParseInvoiceStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := internalinvoices.ListParams{
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
			Status: status,
		}

		list, err := svc.List(r.Context(), tenantID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := listInvoicesResponse{
			Invoices:   make([]internalinvoices.InvoiceView, 0, len(list.Invoices)),
			NextCursor: list.NextCursor,
		}
		for i := range list.Invoices {
			resp.Invoices = append(resp.Invoices, internalinvoices.NewInvoiceView(&list.Invoices[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

// Detail returns one invoice with its lines. ?include=history adds the status audit trail.
func Detail(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}
		tenantID, invoiceID, err := scopedInvoice(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.Get(r.Context(), tenantID, invoiceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := invoiceDetailResponse{InvoiceView: internalinvoices.NewInvoiceView(invoice)}
		if r.URL.Query().Get("include") == "history" {
			changes, err := svc.History(r.Context(), tenantID, invoiceID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			resp.History = internalinvoices.NewStatusChangeViews(changes)
		}
		responses.WriteSuccess(w, resp)
	}
}

// UpdateStatus applies a manual status change requested by a tenant user.
func UpdateStatus(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}
		tenantID, invoiceID, err := scopedInvoice(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := req.target()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.UpdateStatus(r.Context(), internalinvoices.StatusUpdate{
			InvoiceID: invoiceID,
			TenantID:  &tenantID,
			To:        target,
			Source:    enums.StatusSourceManual,
			Reason:    validators.SanitizeString(req.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, statusUpdateResponse{
			Invoice: internalinvoices.NewInvoiceView(result.Invoice),
			From:    string(result.From),
		})
	}
}

func RegeneratePaymentLink(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}
		tenantID, invoiceID, err := scopedInvoice(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := svc.RegeneratePaymentLink(r.Context(), tenantID, invoiceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalinvoices.NewInvoiceView(invoice))
	}
}

// Verify asks the provider for the transaction outcome and applies it.
func Verify(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}
		tenantID, invoiceID, err := scopedInvoice(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := svc.ConfirmWithProvider(r.Context(), &tenantID, invoiceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalinvoices.NewInvoiceView(invoice))
	}
}

func tenantFromRequest(r *http.Request) (uuid.UUID, error) {
	tenantID, ok := middleware.TenantIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant missing from token")
	}
	return tenantID, nil
}

func scopedInvoice(r *http.Request) (uuid.UUID, string, error) {
	tenantID, err := tenantFromRequest(r)
	if err != nil {
		return uuid.Nil, "", err
	}
	invoiceID := strings.TrimSpace(chi.URLParam(r, "invoiceId"))
	if invoiceID == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}
	if !internalinvoices.ValidInvoiceID(invoiceID) {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return tenantID, invoiceID, nil
}
