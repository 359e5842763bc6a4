package invoices

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kudibooks-backend/api/middleware"
	internalinvoices "github.com/angelmondragon/kudibooks-backend/internal/invoices"
	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
	"github.com/angelmondragon/kudibooks-backend/pkg/types"
)

type stubService struct {
	createInput  internalinvoices.CreateInput
	createResult *internalinvoices.CreateResult
	createErr    error
	listParams   internalinvoices.ListParams
	update       internalinvoices.StatusUpdate
	updateErr    error
	invoice      *models.Invoice
	history      []models.InvoiceStatusChange
	verifyTenant *uuid.UUID
}

func (s *stubService) Create(_ context.Context, input internalinvoices.CreateInput) (*internalinvoices.CreateResult, error) {
	s.createInput = input
	return s.createResult, s.createErr
}

func (s *stubService) List(_ context.Context, _ uuid.UUID, params internalinvoices.ListParams) (*internalinvoices.ListResult, error) {
	s.listParams = params
	return &internalinvoices.ListResult{Invoices: []models.Invoice{*s.invoice}, NextCursor: "next"}, nil
}

func (s *stubService) Get(_ context.Context, _ uuid.UUID, invoiceID string) (*models.Invoice, error) {
	if s.invoice == nil || s.invoice.ID != invoiceID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return s.invoice, nil
}

func (s *stubService) History(context.Context, uuid.UUID, string) ([]models.InvoiceStatusChange, error) {
	return s.history, nil
}

func (s *stubService) UpdateStatus(_ context.Context, update internalinvoices.StatusUpdate) (*internalinvoices.StatusResult, error) {
	s.update = update
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	inv := *s.invoice
	inv.Status = update.To
	return &internalinvoices.StatusResult{Invoice: &inv, From: s.invoice.Status}, nil
}

func (s *stubService) RegeneratePaymentLink(context.Context, uuid.UUID, string) (*models.Invoice, error) {
	return s.invoice, nil
}

func (s *stubService) ConfirmWithProvider(_ context.Context, tenantID *uuid.UUID, _ string) (*models.Invoice, error) {
	s.verifyTenant = tenantID
	return s.invoice, nil
}

func sampleInvoice(tenantID uuid.UUID) *models.Invoice {
	now := time.Now().UTC()
	return &models.Invoice{
		ID:               internalinvoices.NewInvoiceID(),
		TenantID:         tenantID,
		CustomerName:     "Ada Stores",
		Amount:           decimal.RequireFromString("15000.00"),
		Currency:         enums.CurrencyNGN,
		Status:           enums.InvoiceStatusPending,
		Provider:         enums.PaymentProviderPaystack,
		PaymentReference: "KB-REF-1",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func newRequest(method, target, body string, tenantID uuid.UUID, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := middleware.WithPrincipal(req.Context(), tenantID, uuid.NewString(), enums.MemberRoleOwner)
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func TestCreateInvoice(t *testing.T) {
	tenantID := uuid.New()
	inv := sampleInvoice(tenantID)
	link := "https://checkout.paystack.com/abc"
	svc := &stubService{createResult: &internalinvoices.CreateResult{Invoice: inv, PaymentLink: &link, RemainingQuota: 4}}

	body := `{"customer":{"name":"Ada Stores","email":"ada@example.com"},"currency":"ngn","lines":[{"description":"Rice","quantity":"2","unit_price":"7500"}]}`
	rec := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/invoices", body, tenantID, nil))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, tenantID, svc.createInput.TenantID)
	assert.Equal(t, "NGN", svc.createInput.Currency)
	require.Len(t, svc.createInput.Lines, 1)
	assert.True(t, svc.createInput.Lines[0].UnitPrice.Equal(decimal.NewFromInt(7500)))
	assert.Nil(t, svc.createInput.Amount)

	var resp struct {
		Invoice        internalinvoices.InvoiceView `json:"invoice"`
		PaymentLink    *string                      `json:"payment_link"`
		RemainingQuota *int                         `json:"remaining_quota"`
	}
	decodeData(t, rec, &resp)
	assert.Equal(t, inv.ID, resp.Invoice.ID)
	require.NotNil(t, resp.PaymentLink)
	assert.Equal(t, link, *resp.PaymentLink)
	require.NotNil(t, resp.RemainingQuota)
	assert.Equal(t, 4, *resp.RemainingQuota)
}

func TestCreateInvoiceUnlimitedQuotaIsNull(t *testing.T) {
	tenantID := uuid.New()
	svc := &stubService{createResult: &internalinvoices.CreateResult{Invoice: sampleInvoice(tenantID), RemainingQuota: -1}}

	rec := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/invoices", `{"customer":{"name":"Ada"},"amount":250.5}`, tenantID, nil))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, svc.createInput.Amount)
	assert.Equal(t, "250.5", svc.createInput.Amount.String())
	assert.Contains(t, rec.Body.String(), `"remaining_quota":null`)
}

func TestCreateInvoiceValidation(t *testing.T) {
	tenantID := uuid.New()
	svc := &stubService{}
	cases := map[string]string{
		"missing customer": `{"amount":"100"}`,
		"negative amount":  `{"customer":{"name":"Ada"},"amount":"-5"}`,
		"bad currency":     `{"customer":{"name":"Ada"},"amount":"5","currency":"NAIRA"}`,
		"unknown field":    `{"customer":{"name":"Ada"},"amount":"5","tip":"1"}`,
		"zero quantity":    `{"customer":{"name":"Ada"},"lines":[{"description":"x","quantity":"0","unit_price":"1"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Create(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/invoices", body, tenantID, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateInvoiceQuotaExceeded(t *testing.T) {
	tenantID := uuid.New()
	svc := &stubService{createErr: pkgerrors.New(pkgerrors.CodeQuotaExceeded, "monthly invoice limit reached").
		WithDetails(map[string]any{"plan": "free", "limit": 5})}

	rec := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/invoices", `{"customer":{"name":"Ada"},"amount":"10"}`, tenantID, nil))

	require.Equal(t, http.StatusForbidden, rec.Code)
	var env types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, string(pkgerrors.CodeQuotaExceeded), env.Error.Code)
}

func TestCreateInvoiceRequiresTenant(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", strings.NewReader(`{}`))
	Create(&stubService{}, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListInvoices(t *testing.T) {
	tenantID := uuid.New()
	svc := &stubService{invoice: sampleInvoice(tenantID)}

	rec := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/api/v1/invoices?limit=10&status=paid&cursor=abc", "", tenantID, nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 10, svc.listParams.Limit)
	assert.Equal(t, "abc", svc.listParams.Cursor)
	require.NotNil(t, svc.listParams.Status)
	assert.Equal(t, enums.InvoiceStatusPaid, *svc.listParams.Status)

	var resp listInvoicesResponse
	decodeData(t, rec, &resp)
	assert.Len(t, resp.Invoices, 1)
	assert.Equal(t, "next", resp.NextCursor)
}

func TestListInvoicesRejectsBadQuery(t *testing.T) {
	tenantID := uuid.New()
	svc := &stubService{invoice: sampleInvoice(tenantID)}
	for _, target := range []string{"/api/v1/invoices?limit=500", "/api/v1/invoices?status=refunded"} {
		rec := httptest.NewRecorder()
		List(svc, nil).ServeHTTP(rec, newRequest(http.MethodGet, target, "", tenantID, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestDetailWithHistory(t *testing.T) {
	tenantID := uuid.New()
	inv := sampleInvoice(tenantID)
	svc := &stubService{
		invoice: inv,
		history: []models.InvoiceStatusChange{{ToStatus: enums.InvoiceStatusPending, Source: enums.StatusSourceSystem}},
	}

	rec := httptest.NewRecorder()
	Detail(svc, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/api/v1/invoices/x?include=history", "", tenantID, map[string]string{"invoiceId": inv.ID}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp invoiceDetailResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, inv.ID, resp.ID)
	assert.Len(t, resp.History, 1)
}

func TestDetailMalformedIDIsNotFound(t *testing.T) {
	tenantID := uuid.New()
	rec := httptest.NewRecorder()
	Detail(&stubService{}, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/", "", tenantID, map[string]string{"invoiceId": "nope"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStatusIsManual(t *testing.T) {
	tenantID := uuid.New()
	inv := sampleInvoice(tenantID)
	inv.Status = enums.InvoiceStatusAwaitingConfirmation
	svc := &stubService{invoice: inv}

	rec := httptest.NewRecorder()
	UpdateStatus(svc, nil).ServeHTTP(rec, newRequest(http.MethodPatch, "/", `{"status":"paid","reason":"bank transfer seen"}`, tenantID, map[string]string{"invoiceId": inv.ID}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, enums.StatusSourceManual, svc.update.Source)
	assert.Equal(t, enums.InvoiceStatusPaid, svc.update.To)
	require.NotNil(t, svc.update.TenantID)
	assert.Equal(t, tenantID, *svc.update.TenantID)
	assert.Equal(t, "bank transfer seen", svc.update.Reason)
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	tenantID := uuid.New()
	inv := sampleInvoice(tenantID)
	svc := &stubService{invoice: inv, updateErr: pkgerrors.New(pkgerrors.CodeInvalidTransition, "invalid status transition")}

	rec := httptest.NewRecorder()
	UpdateStatus(svc, nil).ServeHTTP(rec, newRequest(http.MethodPatch, "/", `{"status":"failed"}`, tenantID, map[string]string{"invoiceId": inv.ID}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	UpdateStatus(svc, nil).ServeHTTP(rec, newRequest(http.MethodPatch, "/", `{"status":"refunded"}`, tenantID, map[string]string{"invoiceId": inv.ID}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyScopesToTenant(t *testing.T) {
	tenantID := uuid.New()
	inv := sampleInvoice(tenantID)
	svc := &stubService{invoice: inv}

	rec := httptest.NewRecorder()
	Verify(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/", "", tenantID, map[string]string{"invoiceId": inv.ID}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.verifyTenant)
	assert.Equal(t, tenantID, *svc.verifyTenant)
}
