package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
)

var (
	// ErrInvalidSignature is returned when a webhook signature does not verify.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMalformedPayload is returned when a webhook body cannot be normalized.
	ErrMalformedPayload = errors.New("malformed webhook payload")
	// ErrUnknownProvider is returned for providers without a registered client.
	ErrUnknownProvider = errors.New("unknown payment provider")
	// ErrMissingCredentials is returned when a call needs a secret the credentials lack.
	ErrMissingCredentials = errors.New("payment credentials incomplete")
)

// EventKind is the provider-neutral classification of a payment signal.
type EventKind string

const (
	EventKindSuccess   EventKind = "success"
	EventKindFailed    EventKind = "failed"
	EventKindAbandoned EventKind = "abandoned"
	EventKindPending   EventKind = "pending"
	EventKindUnknown   EventKind = "unknown"
)

// Credentials are the resolved keys used for a single provider call.
type Credentials struct {
	Provider      enums.PaymentProvider
	SecretKey     string
	PublicKey     string
	WebhookSecret string
}

// Configured reports whether the credentials can authenticate API calls.
func (c Credentials) Configured() bool {
	return c.Provider.IsValid() && strings.TrimSpace(c.SecretKey) != ""
}

type Customer struct {
	Name  string
	Email string
	Phone string
}

// LinkRequest asks a provider for a hosted checkout page.
type LinkRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Currency    enums.Currency
	Customer    Customer
	Description string
	CallbackURL string
	Metadata    map[string]string
}

type PaymentLink struct {
	URL               string
	ProviderReference string
}

type VerifyRequest struct {
	Reference         string
	ProviderReference string
}

// Transaction is the provider's server-side view of a payment.
type Transaction struct {
	Reference string
	Kind      EventKind
	Amount    decimal.Decimal
	Currency  string
	PaidAt    *time.Time
}

// Event is a webhook normalized across providers.
type Event struct {
	ID        string
	Type      string
	Kind      EventKind
	Reference string
	Amount    decimal.Decimal
	Currency  string
}

// Provider is implemented by every concrete payment processor client.
type Provider interface {
	Name() enums.PaymentProvider
	CreatePaymentLink(ctx context.Context, creds Credentials, req LinkRequest) (*PaymentLink, error)
	VerifyTransaction(ctx context.Context, creds Credentials, req VerifyRequest) (*Transaction, error)
	VerifyWebhookSignature(creds Credentials, payload []byte, headers http.Header) error
	ParseWebhook(payload []byte) (*Event, error)
}

// Gateway dispatches calls to the provider named by the resolved credentials.
type Gateway struct {
	providers map[enums.PaymentProvider]Provider
}

func NewGateway(providers ...Provider) (*Gateway, error) {
	g := &Gateway{providers: make(map[enums.PaymentProvider]Provider, len(providers))}
	for _, p := range providers {
		if p == nil {
			continue
		}
		name := p.Name()
		if _, exists := g.providers[name]; exists {
			return nil, fmt.Errorf("provider %s registered twice", name)
		}
		g.providers[name] = p
	}
	if len(g.providers) == 0 {
		return nil, errors.New("at least one payment provider is required")
	}
	return g, nil
}

// Provider returns the registered client for name.
func (g *Gateway) Provider(name enums.PaymentProvider) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

func (g *Gateway) CreatePaymentLink(ctx context.Context, creds Credentials, req LinkRequest) (*PaymentLink, error) {
	p, err := g.Provider(creds.Provider)
	if err != nil {
		return nil, err
	}
	if !creds.Configured() {
		return nil, ErrMissingCredentials
	}
	if !req.Amount.IsPositive() {
		return nil, errors.New("payment amount must be positive")
	}
	return p.CreatePaymentLink(ctx, creds, req)
}

func (g *Gateway) VerifyTransaction(ctx context.Context, creds Credentials, req VerifyRequest) (*Transaction, error) {
	p, err := g.Provider(creds.Provider)
	if err != nil {
		return nil, err
	}
	if !creds.Configured() {
		return nil, ErrMissingCredentials
	}
	return p.VerifyTransaction(ctx, creds, req)
}

func (g *Gateway) VerifyWebhookSignature(creds Credentials, payload []byte, headers http.Header) error {
	p, err := g.Provider(creds.Provider)
	if err != nil {
		return err
	}
	return p.VerifyWebhookSignature(creds, payload, headers)
}

func (g *Gateway) ParseWebhook(provider enums.PaymentProvider, payload []byte) (*Event, error) {
	p, err := g.Provider(provider)
	if err != nil {
		return nil, err
	}
	event, err := p.ParseWebhook(payload)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, fmt.Errorf("%w: provider returned no event", ErrMalformedPayload)
	}
	// events without a reference are still acknowledged; the processor records them
	event.Reference = strings.TrimSpace(event.Reference)
	return event, nil
}
