package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/kudibooks-backend/internal/invoices"
	"github.com/angelmondragon/kudibooks-backend/pkg/db/models"
	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
	"github.com/angelmondragon/kudibooks-backend/pkg/metrics"
	"github.com/angelmondragon/kudibooks-backend/pkg/payments"
)

const (
	reasonUnknownReference  = "unknown_reference"
	reasonAmountMismatch    = "amount_mismatch"
	reasonUnmappedEvent     = "unmapped_event"
	reasonIllegalTransition = "illegal_transition"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type secretResolver interface {
	ResolveForWebhook(ctx context.Context, provider enums.PaymentProvider, tenantID *uuid.UUID) (payments.Credentials, error)
}

type webhookGateway interface {
	VerifyWebhookSignature(creds payments.Credentials, payload []byte, headers http.Header) error
	ParseWebhook(provider enums.PaymentProvider, payload []byte) (*payments.Event, error)
}

type invoiceUpdater interface {
	FindByReferenceTx(ctx context.Context, tx *gorm.DB, provider enums.PaymentProvider, reference string, tenantID *uuid.UUID) (*models.Invoice, error)
	UpdateStatusTx(ctx context.Context, tx *gorm.DB, update invoices.StatusUpdate) (*invoices.StatusResult, error)
}

// Request is one inbound provider callback. TenantID is set on the tenant-scoped route.
type Request struct {
	Provider string
	TenantID *uuid.UUID
	Body     []byte
	Headers  http.Header
}

type Result struct {
	Status    int                  `json:"-"`
	Outcome   enums.WebhookOutcome `json:"outcome"`
	EventKey  string               `json:"event_key"`
	Reason    string               `json:"reason,omitempty"`
	InvoiceID string               `json:"invoice_id,omitempty"`
}

type ProcessorParams struct {
	DB       txRunner
	Repo     *Repository
	Secrets  secretResolver
	Gateway  webhookGateway
	Invoices invoiceUpdater
	Guard    *Guard
	Metrics  *metrics.WebhookMetrics
	Logger   *logger.Logger
}

// Processor authenticates, deduplicates and applies provider webhooks.
type Processor struct {
	db       txRunner
	repo     *Repository
	secrets  secretResolver
	gateway  webhookGateway
	invoices invoiceUpdater
	guard    *Guard
	metrics  *metrics.WebhookMetrics
	logg     *logger.Logger
	clock    func() time.Time
}

func NewProcessor(params ProcessorParams) (*Processor, error) {
	switch {
	case params.DB == nil:
		return nil, errors.New("transaction runner required")
	case params.Repo == nil:
		return nil, errors.New("webhook repository required")
	case params.Secrets == nil:
		return nil, errors.New("secret resolver required")
	case params.Gateway == nil:
		return nil, errors.New("payment gateway required")
	case params.Invoices == nil:
		return nil, errors.New("invoice service required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	}
	return &Processor{
		db:       params.DB,
		repo:     params.Repo,
		secrets:  params.Secrets,
		gateway:  params.Gateway,
		invoices: params.Invoices,
		guard:    params.Guard,
		metrics:  params.Metrics,
		logg:     params.Logger,
		clock:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// HandleWebhook returns a Result for every authenticated, parseable event; business
// problems are recorded as outcomes rather than errors. Errors mean the provider
// should retry (5xx) or the request was not authentic or not parseable (400).
func (p *Processor) HandleWebhook(ctx context.Context, req Request) (Result, error) {
	provider, err := enums.ParsePaymentProvider(req.Provider)
	if err != nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeNotFound, "unknown payment provider")
	}
	ctx = p.logg.WithField(ctx, "provider", provider)
	if req.TenantID != nil {
		ctx = p.logg.WithTenantID(ctx, req.TenantID.String())
	}

	creds, err := p.secrets.ResolveForWebhook(ctx, provider, req.TenantID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && !pkgerrors.MetadataFor(typed.Code()).Retryable {
			p.record(provider, "invalid_signature")
			p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "webhook cannot be authenticated")
			return Result{}, pkgerrors.Wrap(pkgerrors.CodeInvalidSignature, err, "webhook cannot be authenticated")
		}
		return Result{}, err
	}

	if err := p.gateway.VerifyWebhookSignature(creds, req.Body, req.Headers); err != nil {
		p.record(provider, "invalid_signature")
		p.logg.Warn(ctx, "webhook signature rejected")
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInvalidSignature, err, "invalid webhook signature")
	}

	event, err := p.gateway.ParseWebhook(provider, req.Body)
	if err != nil {
		p.record(provider, "malformed")
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable webhook payload")
	}

	key := EventKey(provider, event)
	ctx = p.logg.WithFields(ctx, map[string]any{
		"event_key":  key,
		"event_type": event.Type,
		"reference":  event.Reference,
	})

	if p.guard != nil {
		seen, err := p.guard.Seen(ctx, provider, key)
		if err != nil {
			p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "webhook guard unavailable, using ledger")
		} else if seen {
			p.record(provider, string(enums.WebhookOutcomeDuplicate))
			return Result{Status: http.StatusOK, Outcome: enums.WebhookOutcomeDuplicate, EventKey: key}, nil
		}
	}

	var result Result
	err = p.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = p.apply(ctx, tx, provider, req, event, key)
		return err
	})
	if err != nil {
		p.record(provider, "error")
		p.logg.Error(ctx, "webhook processing failed", err)
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook processing failed")
		}
		return Result{}, err
	}

	if p.guard != nil {
		if err := p.guard.Mark(ctx, provider, key, result.Outcome); err != nil {
			p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "webhook guard mark failed")
		}
	}

	p.record(provider, string(result.Outcome))
	fields := map[string]any{"outcome": result.Outcome}
	if result.Reason != "" {
		fields["reason"] = result.Reason
	}
	p.logg.Info(p.logg.WithFields(ctx, fields), "webhook processed")
	result.Status = http.StatusOK
	return result, nil
}

func (p *Processor) apply(ctx context.Context, tx *gorm.DB, provider enums.PaymentProvider, req Request, event *payments.Event, key string) (Result, error) {
	now := p.clock()
	row := &models.WebhookEvent{
		ID:         uuid.New(),
		Provider:   provider,
		EventID:    key,
		EventType:  event.Type,
		TenantID:   req.TenantID,
		Outcome:    enums.WebhookOutcomeReceived,
		Payload:    rawPayload(req.Body),
		ReceivedAt: now,
	}
	if event.Reference != "" {
		ref := event.Reference
		row.PaymentReference = &ref
	}

	inserted, err := p.repo.Insert(ctx, tx, row)
	if err != nil {
		return Result{}, fmt.Errorf("record webhook event: %w", err)
	}
	if !inserted {
		return Result{Outcome: enums.WebhookOutcomeDuplicate, EventKey: key}, nil
	}

	outcome, reason, invoice, err := p.decide(ctx, tx, provider, req.TenantID, event)
	if err != nil {
		return Result{}, err
	}

	res := resolution{Outcome: outcome, Reason: reason}
	result := Result{Outcome: outcome, EventKey: key, Reason: reason}
	if invoice != nil {
		res.InvoiceID = &invoice.ID
		res.TenantID = &invoice.TenantID
		result.InvoiceID = invoice.ID
	}
	if err := p.repo.Resolve(ctx, tx, row.ID, res, now); err != nil {
		return Result{}, fmt.Errorf("resolve webhook event: %w", err)
	}
	return result, nil
}

func (p *Processor) decide(ctx context.Context, tx *gorm.DB, provider enums.PaymentProvider, tenantID *uuid.UUID, event *payments.Event) (enums.WebhookOutcome, string, *models.Invoice, error) {
	if event.Reference == "" {
		return enums.WebhookOutcomeIgnored, reasonUnmappedEvent, nil, nil
	}
	invoice, err := p.invoices.FindByReferenceTx(ctx, tx, provider, event.Reference, tenantID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return enums.WebhookOutcomeRejected, reasonUnknownReference, nil, nil
		}
		return "", "", nil, err
	}

	to, providerSuccess, ok := transitionFor(event.Kind, invoice.Status)
	if !ok {
		return enums.WebhookOutcomeIgnored, reasonUnmappedEvent, invoice, nil
	}
	if event.Kind == payments.EventKindSuccess && !amountMatches(invoice, event) {
		p.logg.Warn(p.logg.WithFields(ctx, map[string]any{
			"invoice_id":     invoice.ID,
			"event_amount":   event.Amount.StringFixed(2),
			"event_currency": event.Currency,
		}), "webhook amount does not match invoice")
		return enums.WebhookOutcomeRejected, reasonAmountMismatch, invoice, nil
	}

	_, err = p.invoices.UpdateStatusTx(ctx, tx, invoices.StatusUpdate{
		InvoiceID:       invoice.ID,
		TenantID:        &invoice.TenantID,
		To:              to,
		Source:          enums.StatusSourceWebhook,
		Reason:          "provider event " + event.Type,
		ProviderSuccess: providerSuccess,
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
			p.logg.Info(p.logg.WithFields(ctx, map[string]any{
				"invoice_id": invoice.ID,
				"from":       invoice.Status,
				"to":         to,
			}), "webhook transition not applicable")
			return enums.WebhookOutcomeIgnored, fmt.Sprintf("%s:%s->%s", reasonIllegalTransition, invoice.Status, to), invoice, nil
		}
		return "", "", nil, err
	}
	return enums.WebhookOutcomeApplied, "", invoice, nil
}

func amountMatches(invoice *models.Invoice, event *payments.Event) bool {
	if !invoice.Currency.Matches(event.Currency) {
		return false
	}
	return payments.SameAmount(invoice.Amount, event.Amount)
}

// rawPayload keeps the body as jsonb only when it is valid JSON.
func rawPayload(body []byte) json.RawMessage {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}

func (p *Processor) record(provider enums.PaymentProvider, outcome string) {
	if p.metrics != nil {
		p.metrics.IncOutcome(string(provider), outcome)
	}
}
