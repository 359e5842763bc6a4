package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	"github.com/angelmondragon/kudibooks-backend/pkg/payments"
)

const (
	testEnv = "test"
	liveEnv = "live"

	SignatureHeader = "Stripe-Signature"

	invoiceMetadataKey = "invoice_id"
)

var errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)

type Options struct {
	// Environment is test or live; secret keys must match it.
	Environment string
	// Tolerance bounds the accepted webhook timestamp skew.
	Tolerance time.Duration
}

// Client creates Checkout Sessions with per-call credentials.
type Client struct {
	environment string
	tolerance   time.Duration
	newAPI      func(key string) *stripe.Client
}

func New(opts Options) (*Client, error) {
	env, err := normalizeEnv(opts.Environment)
	if err != nil {
		return nil, err
	}
	tolerance := opts.Tolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Client{
		environment: env,
		tolerance:   tolerance,
		newAPI:      func(key string) *stripe.Client { return stripe.NewClient(key) },
	}, nil
}

func (c *Client) Name() enums.PaymentProvider {
	return enums.PaymentProviderStripe
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	return c.environment
}

func (c *Client) api(creds payments.Credentials) (*stripe.Client, error) {
	key := strings.TrimSpace(creds.SecretKey)
	if err := validateAPIKey(c.environment, key); err != nil {
		return nil, err
	}
	return c.newAPI(key), nil
}

func (c *Client) CreatePaymentLink(ctx context.Context, creds payments.Credentials, req payments.LinkRequest) (*payments.PaymentLink, error) {
	if strings.TrimSpace(req.CallbackURL) == "" {
		return nil, errors.New("stripe checkout requires a callback url")
	}
	api, err := c.api(creds)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{invoiceMetadataKey: req.Reference}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	name := req.Description
	if name == "" {
		name = "Invoice " + req.Reference
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.Reference),
		SuccessURL:        stripe.String(req.CallbackURL),
		Metadata:          metadata,
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(req.Currency.String())),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
					UnitAmount: stripe.Int64(payments.ToMinorUnits(req.Amount)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	if email := strings.TrimSpace(req.Customer.Email); email != "" {
		params.CustomerEmail = stripe.String(email)
	}

	session, err := api.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create stripe checkout session: %w", err)
	}
	return &payments.PaymentLink{URL: session.URL, ProviderReference: session.ID}, nil
}

func (c *Client) VerifyTransaction(ctx context.Context, creds payments.Credentials, req payments.VerifyRequest) (*payments.Transaction, error) {
	if strings.TrimSpace(req.ProviderReference) == "" {
		return nil, errors.New("stripe verification requires the checkout session id")
	}
	api, err := c.api(creds)
	if err != nil {
		return nil, err
	}
	session, err := api.V1CheckoutSessions.Retrieve(ctx, req.ProviderReference, &stripe.CheckoutSessionRetrieveParams{})
	if err != nil {
		return nil, fmt.Errorf("retrieve stripe checkout session: %w", err)
	}

	tx := &payments.Transaction{
		Reference: sessionReference(session),
		Kind:      sessionKind(session),
		Amount:    payments.FromMinorUnits(session.AmountTotal),
		Currency:  strings.ToUpper(string(session.Currency)),
	}
	if tx.Kind == payments.EventKindSuccess {
		paid := time.Now().UTC()
		tx.PaidAt = &paid
	}
	return tx, nil
}

func (c *Client) VerifyWebhookSignature(creds payments.Credentials, payload []byte, headers http.Header) error {
	secret := strings.TrimSpace(creds.WebhookSecret)
	signature := headers.Get(SignatureHeader)
	if secret == "" || signature == "" {
		return payments.ErrInvalidSignature
	}
	_, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		Tolerance:                c.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", payments.ErrInvalidSignature, err)
	}
	return nil
}

func (c *Client) ParseWebhook(payload []byte) (*payments.Event, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", payments.ErrMalformedPayload, err)
	}
	if event.ID == "" || event.Type == "" || event.Data == nil {
		return nil, fmt.Errorf("%w: missing event fields", payments.ErrMalformedPayload)
	}

	out := &payments.Event{ID: event.ID, Type: string(event.Type), Kind: payments.EventKindUnknown}
	if !strings.HasPrefix(string(event.Type), "checkout.session.") {
		return out, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("%w: decode checkout session: %v", payments.ErrMalformedPayload, err)
	}
	out.Reference = sessionReference(&session)
	out.Amount = payments.FromMinorUnits(session.AmountTotal)
	out.Currency = strings.ToUpper(string(session.Currency))

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		out.Kind = sessionKind(&session)
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		out.Kind = payments.EventKindSuccess
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		out.Kind = payments.EventKindFailed
	case stripe.EventTypeCheckoutSessionExpired:
		out.Kind = payments.EventKindAbandoned
	}
	return out, nil
}

func sessionReference(session *stripe.CheckoutSession) string {
	if session.ClientReferenceID != "" {
		return session.ClientReferenceID
	}
	return session.Metadata[invoiceMetadataKey]
}

func sessionKind(session *stripe.CheckoutSession) payments.EventKind {
	switch {
	case session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		return payments.EventKindSuccess
	case session.Status == stripe.CheckoutSessionStatusExpired:
		return payments.EventKindAbandoned
	default:
		return payments.EventKindPending
	}
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	if key == "" {
		return payments.ErrMissingCredentials
	}
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
