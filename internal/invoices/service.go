package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/kudibooks-backend/internal/credentials"
	"github.com/angelmondragon/kudibooks-backend/internal/quota"
	"github.com/angelmondragon/kudibooks-backend/internal/tasks"
	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
	"github.com/angelmondragon/kudibooks-backend/pkg/pagination"
	"github.com/angelmondragon/kudibooks-backend/pkg/payments"
)

const (
	defaultLinkTimeout = 5 * time.Second
	defaultCurrency    = enums.CurrencyNGN
	paymentLinkFailed  = "payment provider unavailable; retry link generation later"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type quotaReserver interface {
	CheckAndReserve(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (quota.Decision, error)
}

type credentialResolver interface {
	ResolveTx(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (credentials.Resolution, error)
	ResolveForProvider(ctx context.Context, tx *gorm.DB, provider enums.PaymentProvider, tenantID *uuid.UUID) (credentials.Resolution, error)
}

type paymentGateway interface {
	CreatePaymentLink(ctx context.Context, creds payments.Credentials, req payments.LinkRequest) (*payments.PaymentLink, error)
	VerifyTransaction(ctx context.Context, creds payments.Credentials, req payments.VerifyRequest) (*payments.Transaction, error)
}

type taskEnqueuer interface {
	EnqueueTx(ctx context.Context, tx *gorm.DB, req tasks.EnqueueRequest) (tasks.EnqueueResult, error)
}

type ServiceParams struct {
	Repo        *Repository
	Tx          txRunner
	Quota       quotaReserver
	Credentials credentialResolver
	Gateway     paymentGateway
	Tasks       taskEnqueuer
	Logger      *logger.Logger
	LinkTimeout time.Duration
	RenderDelay time.Duration
	CallbackURL string
}

// Service owns invoice creation and every status change.
type Service struct {
	repo        *Repository
	tx          txRunner
	quota       quotaReserver
	creds       credentialResolver
	gateway     paymentGateway
	tasks       taskEnqueuer
	logg        *logger.Logger
	linkTimeout time.Duration
	renderDelay time.Duration
	callbackURL string
	clock       func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("invoice repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Quota == nil:
		return nil, fmt.Errorf("quota enforcer required")
	case params.Credentials == nil:
		return nil, fmt.Errorf("credential resolver required")
	case params.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case params.Tasks == nil:
		return nil, fmt.Errorf("task dispatcher required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	timeout := params.LinkTimeout
	if timeout <= 0 {
		timeout = defaultLinkTimeout
	}
	return &Service{
		repo:        params.Repo,
		tx:          params.Tx,
		quota:       params.Quota,
		creds:       params.Credentials,
		gateway:     params.Gateway,
		tasks:       params.Tasks,
		logg:        params.Logger,
		linkTimeout: timeout,
		renderDelay: params.RenderDelay,
		callbackURL: params.CallbackURL,
		clock:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Create reserves quota, persists a pending invoice and queues its document in one
// transaction, then asks the provider for a payment link.
func (s *Service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	draft, err := normalizeCreate(input)
	if err != nil {
		return nil, err
	}

	var (
		invoice    *models.Invoice
		decision   quota.Decision
		resolution credentials.Resolution
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		decision, err = s.quota.CheckAndReserve(ctx, tx, input.TenantID)
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return decision.Err()
		}

		// a failure here rolls the reserved slot back
		resolution, err = s.creds.ResolveTx(ctx, tx, input.TenantID)
		if err != nil {
			return err
		}

		now := s.clock()
		invoice = draft.build(input.TenantID, resolution, now)
		if err := s.repo.Create(ctx, tx, invoice); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist invoice")
		}
		if err := s.audit(ctx, tx, invoice, nil, enums.InvoiceStatusPending, enums.StatusSourceSystem, "invoice created", now); err != nil {
			return err
		}

		_, err = s.tasks.EnqueueTx(ctx, tx, tasks.EnqueueRequest{
			Kind:      enums.TaskKindRenderInvoicePDF,
			TenantID:  &invoice.TenantID,
			InvoiceID: &invoice.ID,
			Payload:   tasks.RenderPayload{InvoiceID: invoice.ID},
			DedupeKey: "render:" + invoice.ID,
			RunAt:     now.Add(s.renderDelay),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithInvoiceID(s.logg.WithTenantID(ctx, input.TenantID.String()), invoice.ID)
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"provider":        invoice.Provider,
		"tenant_owned":    resolution.IsTenantOwned,
		"remaining_quota": decision.Remaining,
	}), "invoice created")

	result := &CreateResult{
		Invoice:                invoice,
		RemainingQuota:         decision.Remaining,
		TenantOwnedCredentials: resolution.IsTenantOwned,
	}
	if err := s.attachPaymentLink(ctx, invoice, resolution.Credentials); err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "payment link generation failed")
		result.PaymentLinkError = paymentLinkFailed
		return result, nil
	}
	result.PaymentLink = invoice.PaymentLink
	return result, nil
}

// RegeneratePaymentLink retries link generation for a pending invoice.
func (s *Service) RegeneratePaymentLink(ctx context.Context, tenantID uuid.UUID, invoiceID string) (*models.Invoice, error) {
	invoice, err := s.load(ctx, nil, &tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != enums.InvoiceStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "payment links can only be generated for pending invoices").
			WithDetails(map[string]any{"status": invoice.Status})
	}
	resolution, err := s.creds.ResolveForProvider(ctx, nil, invoice.Provider, &tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.attachPaymentLink(ctx, invoice, resolution.Credentials); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate payment link")
	}
	return invoice, nil
}

func (s *Service) attachPaymentLink(ctx context.Context, invoice *models.Invoice, creds payments.Credentials) error {
	linkCtx, cancel := context.WithTimeout(ctx, s.linkTimeout)
	defer cancel()

	req := payments.LinkRequest{
		Reference:   invoice.PaymentReference,
		Amount:      invoice.Amount,
		Currency:    invoice.Currency,
		Customer:    payments.Customer{Name: invoice.CustomerName, Email: lo.FromPtr(invoice.CustomerEmail), Phone: lo.FromPtr(invoice.CustomerPhone)},
		Description: lo.FromPtr(invoice.Description),
		CallbackURL: s.callbackURL,
		Metadata:    map[string]string{"invoice_id": invoice.ID, "tenant_id": invoice.TenantID.String()},
	}
	link, err := s.gateway.CreatePaymentLink(linkCtx, creds, req)
	if err != nil {
		return err
	}

	var providerRef *string
	if link.ProviderReference != "" {
		providerRef = lo.ToPtr(link.ProviderReference)
	}
	now := s.clock()
	stored, err := s.repo.SetPaymentLink(ctx, invoice.ID, link.URL, providerRef, now)
	if err != nil {
		return err
	}
	if !stored {
		return errors.New("invoice left pending before the link was stored")
	}
	invoice.PaymentLink = lo.ToPtr(link.URL)
	invoice.ProviderReference = providerRef
	invoice.UpdatedAt = now
	return nil
}

// UpdateStatus applies a status change in its own transaction.
func (s *Service) UpdateStatus(ctx context.Context, update StatusUpdate) (*StatusResult, error) {
	var result *StatusResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.UpdateStatusTx(ctx, tx, update)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateStatusTx validates the change against the state machine, compare-and-sets the
// row, records the audit entry and queues the transition's effects, all within tx.
func (s *Service) UpdateStatusTx(ctx context.Context, tx *gorm.DB, update StatusUpdate) (*StatusResult, error) {
	if strings.TrimSpace(update.InvoiceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id required")
	}
	if !update.Source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown status source")
	}
	invoice, err := s.load(ctx, tx, update.TenantID, update.InvoiceID)
	if err != nil {
		return nil, err
	}

	transition, err := Decide(invoice.Status, update.To, update.ProviderSuccess)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	fields := map[string]any{"status": update.To, "updated_at": now}
	if update.To == enums.InvoiceStatusPaid {
		fields["paid_at"] = now
	}
	if transition.Has(EffectClearPaymentLink) {
		fields["payment_link"] = nil
	}
	ok, err := s.repo.CompareAndSetStatus(ctx, tx, invoice.ID, invoice.Status, fields)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update invoice status")
	}
	if !ok {
		return nil, invalidTransition(invoice.Status, update.To, "invoice status changed concurrently")
	}

	from := invoice.Status
	if err := s.audit(ctx, tx, invoice, &from, update.To, update.Source, update.Reason, now); err != nil {
		return nil, err
	}

	invoice.Status = update.To
	invoice.UpdatedAt = now
	if update.To == enums.InvoiceStatusPaid {
		invoice.PaidAt = &now
	}
	if transition.Has(EffectClearPaymentLink) {
		invoice.PaymentLink = nil
	}

	if err := s.applyEffects(ctx, tx, invoice, transition, now); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithInvoiceID(ctx, invoice.ID)
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"from":   from,
		"to":     update.To,
		"source": update.Source,
	}), "invoice status changed")

	return &StatusResult{Invoice: invoice, From: from, Transition: transition}, nil
}

func (s *Service) applyEffects(ctx context.Context, tx *gorm.DB, invoice *models.Invoice, transition Transition, now time.Time) error {
	for _, effect := range transition.Effects {
		var req *tasks.EnqueueRequest
		switch effect {
		case EffectEnqueueVerification:
			req = &tasks.EnqueueRequest{
				Kind:      enums.TaskKindVerifyPayment,
				Payload:   tasks.VerifyPayload{InvoiceID: invoice.ID},
				DedupeKey: fmt.Sprintf("verify_payment:%s:awaiting", invoice.ID),
				RunAt:     now,
			}
		case EffectNotifyReceipt:
			req = s.notification(ctx, invoice, enums.NotificationTemplateInvoiceReceipt)
		case EffectNotifyFailure:
			req = s.notification(ctx, invoice, enums.NotificationTemplatePaymentFailed)
		}
		if req == nil {
			continue
		}
		req.TenantID = &invoice.TenantID
		req.InvoiceID = &invoice.ID
		if _, err := s.tasks.EnqueueTx(ctx, tx, *req); err != nil {
			return err
		}
	}
	return nil
}

// notification targets email when known, else the customer's phone by SMS.
func (s *Service) notification(ctx context.Context, invoice *models.Invoice, template enums.NotificationTemplate) *tasks.EnqueueRequest {
	channel, recipient := enums.NotificationChannelEmail, strings.TrimSpace(lo.FromPtr(invoice.CustomerEmail))
	if recipient == "" {
		channel, recipient = enums.NotificationChannelSMS, strings.TrimSpace(lo.FromPtr(invoice.CustomerPhone))
	}
	if recipient == "" {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"invoice_id": invoice.ID,
			"template":   template,
		}), "customer has no contact; notification skipped")
		return nil
	}

	data := map[string]any{
		"invoice_id":     invoice.ID,
		"customer_name":  invoice.CustomerName,
		"amount":         invoice.Amount.StringFixed(2),
		"amount_display": invoice.Currency.Symbol() + invoice.Amount.StringFixed(2),
		"currency":       invoice.Currency,
		"status":         invoice.Status,
	}
	if invoice.DocumentURL != nil {
		data["document_url"] = *invoice.DocumentURL
	}
	return &tasks.EnqueueRequest{
		Kind: enums.TaskKindSendNotification,
		Payload: tasks.NotificationPayload{
			Channel:      channel,
			RecipientRef: recipient,
			Template:     template,
			Data:         data,
		},
		DedupeKey: fmt.Sprintf("notify:%s:%s", template, invoice.ID),
	}
}

// ConfirmWithProvider asks the provider for the transaction state and applies it.
// Terminal invoices are returned unchanged.
func (s *Service) ConfirmWithProvider(ctx context.Context, tenantID *uuid.UUID, invoiceID string) (*models.Invoice, error) {
	invoice, err := s.load(ctx, nil, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status.IsTerminal() {
		return invoice, nil
	}

	resolution, err := s.creds.ResolveForProvider(ctx, nil, invoice.Provider, &invoice.TenantID)
	if err != nil {
		return nil, err
	}
	txn, err := s.gateway.VerifyTransaction(ctx, resolution.Credentials, payments.VerifyRequest{
		Reference:         invoice.PaymentReference,
		ProviderReference: lo.FromPtr(invoice.ProviderReference),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify transaction")
	}

	logCtx := s.logg.WithFields(s.logg.WithInvoiceID(ctx, invoice.ID), map[string]any{
		"provider":         invoice.Provider,
		"transaction_kind": txn.Kind,
	})

	switch txn.Kind {
	case payments.EventKindSuccess:
		if !amountMatches(invoice, txn) {
			s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{
				"verified_amount":   txn.Amount.String(),
				"verified_currency": txn.Currency,
			}), "verified amount does not match invoice")
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "verified payment does not match invoice amount")
		}
		return s.walk(ctx, invoice, enums.InvoiceStatusPaid, "provider verified payment")
	case payments.EventKindFailed, payments.EventKindAbandoned:
		return s.walk(ctx, invoice, enums.InvoiceStatusFailed, fmt.Sprintf("provider reported %s", txn.Kind))
	default:
		s.logg.Info(logCtx, "payment not settled yet")
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment not yet settled").
			WithDetails(map[string]any{"transaction_kind": txn.Kind})
	}
}

// walk moves invoice to target through awaiting_confirmation when needed.
func (s *Service) walk(ctx context.Context, invoice *models.Invoice, target enums.InvoiceStatus, reason string) (*models.Invoice, error) {
	var out *models.Invoice
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		current := invoice.Status
		if current == enums.InvoiceStatusPending && target == enums.InvoiceStatusPaid {
			if _, err := s.UpdateStatusTx(ctx, tx, StatusUpdate{
				InvoiceID: invoice.ID,
				TenantID:  &invoice.TenantID,
				To:        enums.InvoiceStatusAwaitingConfirmation,
				Source:    enums.StatusSourceVerification,
				Reason:    reason,
			}); err != nil {
				return err
			}
		}
		res, err := s.UpdateStatusTx(ctx, tx, StatusUpdate{
			InvoiceID: invoice.ID,
			TenantID:  &invoice.TenantID,
			To:        target,
			Source:    enums.StatusSourceVerification,
			Reason:    reason,
		})
		if err != nil {
			return err
		}
		out = res.Invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func amountMatches(invoice *models.Invoice, txn *payments.Transaction) bool {
	if txn.Amount.IsZero() {
		return true
	}
	if !invoice.Currency.Matches(txn.Currency) {
		return false
	}
	return payments.SameAmount(invoice.Amount, txn.Amount)
}

// FindByReferenceTx resolves the invoice a provider refers to, scoped to tenantID when set.
func (s *Service) FindByReferenceTx(ctx context.Context, tx *gorm.DB, provider enums.PaymentProvider, reference string, tenantID *uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.repo.FindByReference(ctx, tx, provider, reference, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found for reference")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice by reference")
	}
	return invoice, nil
}

func (s *Service) Get(ctx context.Context, tenantID uuid.UUID, invoiceID string) (*models.Invoice, error) {
	return s.load(ctx, nil, &tenantID, invoiceID)
}

// History returns the status audit trail of a tenant's invoice.
func (s *Service) History(ctx context.Context, tenantID uuid.UUID, invoiceID string) ([]models.InvoiceStatusChange, error) {
	if _, err := s.load(ctx, nil, &tenantID, invoiceID); err != nil {
		return nil, err
	}
	changes, err := s.repo.ListStatusChanges(ctx, invoiceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load status history")
	}
	return changes, nil
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, params ListParams) (*ListResult, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown invoice status")
	}
	scope := listScope(params.Status)
	cursor, err := pagination.ParseCursor(params.Cursor, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, tenantID, params.Status, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}

	page, more := pagination.Trim(rows, params.Limit)
	result := &ListResult{Invoices: page}
	if more {
		last := page[len(page)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID, Scope: scope})
	}
	return result, nil
}

func listScope(status *enums.InvoiceStatus) string {
	if status == nil {
		return ""
	}
	return "status=" + status.String()
}

// SetDocumentURL records the rendered document location.
func (s *Service) SetDocumentURL(ctx context.Context, invoiceID, url string) error {
	ok, err := s.repo.SetDocumentURL(ctx, invoiceID, url, s.clock())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store document url")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return nil
}

// EnqueueStaleVerifications queues a provider check for invoices that have sat in
// awaiting_confirmation longer than olderThan. At most one check per invoice per hour.
func (s *Service) EnqueueStaleVerifications(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	now := s.clock()
	stale, err := s.repo.ListStaleAwaiting(ctx, now.Add(-olderThan), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale invoices")
	}

	bucket := now.Format("2006010215")
	queued := 0
	var errs error
	for i := range stale {
		invoice := stale[i]
		res, err := s.tasks.EnqueueTx(ctx, nil, tasks.EnqueueRequest{
			Kind:      enums.TaskKindVerifyPayment,
			TenantID:  &invoice.TenantID,
			InvoiceID: &invoice.ID,
			Payload:   tasks.VerifyPayload{InvoiceID: invoice.ID},
			DedupeKey: fmt.Sprintf("verify_payment:%s:%s", invoice.ID, bucket),
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("invoice %s: %w", invoice.ID, err))
			continue
		}
		if !res.Deduplicated {
			queued++
		}
	}
	return queued, errs
}

func (s *Service) load(ctx context.Context, tx *gorm.DB, tenantID *uuid.UUID, invoiceID string) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, tx, tenantID, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	return invoice, nil
}

func (s *Service) audit(ctx context.Context, tx *gorm.DB, invoice *models.Invoice, from *enums.InvoiceStatus, to enums.InvoiceStatus, source enums.StatusSource, reason string, now time.Time) error {
	change := &models.InvoiceStatusChange{
		ID:         uuid.New(),
		InvoiceID:  invoice.ID,
		TenantID:   invoice.TenantID,
		FromStatus: from,
		ToStatus:   to,
		Source:     source,
		CreatedAt:  now,
	}
	if r := strings.TrimSpace(reason); r != "" {
		change.Reason = &r
	}
	if err := s.repo.InsertStatusChange(ctx, tx, change); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status change")
	}
	return nil
}

type createDraft struct {
	customer    CustomerInput
	amount      decimal.Decimal
	currency    enums.Currency
	lines       []LineInput
	description string
	dueDate     *time.Time
}

func normalizeCreate(input CreateInput) (*createDraft, error) {
	problems := map[string]string{}
	if input.TenantID == uuid.Nil {
		problems["tenant_id"] = "required"
	}
	name := strings.TrimSpace(input.Customer.Name)
	if name == "" {
		problems["customer.name"] = "required"
	}

	currency := defaultCurrency
	if raw := strings.TrimSpace(input.Currency); raw != "" {
		parsed, err := enums.ParseCurrency(raw)
		if err != nil {
			problems["currency"] = "unsupported currency"
		}
		currency = parsed
	}

	lineTotal := decimal.Zero
	for i, line := range input.Lines {
		key := fmt.Sprintf("lines[%d]", i)
		if strings.TrimSpace(line.Description) == "" {
			problems[key+".description"] = "required"
		}
		if !line.Quantity.IsPositive() {
			problems[key+".quantity"] = "must be greater than zero"
		}
		if line.UnitPrice.IsNegative() {
			problems[key+".unit_price"] = "must not be negative"
		}
		lineTotal = lineTotal.Add(line.Quantity.Mul(line.UnitPrice))
	}

	var amount decimal.Decimal
	switch {
	case input.Amount != nil:
		amount = *input.Amount
	case len(input.Lines) > 0:
		amount = lineTotal.Round(2)
	default:
		problems["amount"] = "required when no lines are given"
	}
	if _, missing := problems["amount"]; !missing {
		if !amount.IsPositive() {
			problems["amount"] = "must be greater than zero"
		} else if !amount.Equal(amount.Round(2)) {
			problems["amount"] = "at most two decimal places"
		}
	}

	if len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid invoice").WithDetails(problems)
	}
	return &createDraft{
		customer: CustomerInput{
			Name:  name,
			Email: strings.ToLower(strings.TrimSpace(input.Customer.Email)),
			Phone: strings.TrimSpace(input.Customer.Phone),
		},
		amount:      amount,
		currency:    currency,
		lines:       input.Lines,
		description: strings.TrimSpace(input.Description),
		dueDate:     input.DueDate,
	}, nil
}

func (d *createDraft) build(tenantID uuid.UUID, resolution credentials.Resolution, now time.Time) *models.Invoice {
	id := NewInvoiceID()
	invoice := &models.Invoice{
		ID:               id,
		TenantID:         tenantID,
		CustomerName:     d.customer.Name,
		Amount:           d.amount,
		Currency:         d.currency,
		Status:           enums.InvoiceStatusPending,
		Provider:         resolution.Credentials.Provider,
		PaymentReference: id,
		TenantOwnedCreds: resolution.IsTenantOwned,
		DueDate:          d.dueDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if d.customer.Email != "" {
		invoice.CustomerEmail = lo.ToPtr(d.customer.Email)
	}
	if d.customer.Phone != "" {
		invoice.CustomerPhone = lo.ToPtr(d.customer.Phone)
	}
	if d.description != "" {
		invoice.Description = lo.ToPtr(d.description)
	}
	for i, line := range d.lines {
		invoice.Lines = append(invoice.Lines, models.InvoiceLine{
			ID:          uuid.New(),
			InvoiceID:   id,
			Position:    i + 1,
			Description: strings.TrimSpace(line.Description),
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			CreatedAt:   now,
		})
	}
	return invoice
}
