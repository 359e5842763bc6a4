package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	"github.com/angelmondragon/kudibooks-backend/pkg/httpclient"
	"github.com/angelmondragon/kudibooks-backend/pkg/payments"
)

const (
	DefaultBaseURL  = "https://api.paystack.co"
	SignatureHeader = "x-paystack-signature"
)

type Options struct {
	BaseURL             string
	HTTP                *http.Client
	FallbackEmailDomain string
}

// Client talks to the Paystack transactions API.
type Client struct {
	api           *httpclient.JSONClient
	fallbackEmail string
}

func New(opts Options) *Client {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		api:           &httpclient.JSONClient{Service: "paystack", BaseURL: base, HTTP: opts.HTTP},
		fallbackEmail: strings.TrimSpace(opts.FallbackEmailDomain),
	}
}

func (c *Client) Name() enums.PaymentProvider {
	return enums.PaymentProviderPaystack
}

type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type initializeRequest struct {
	Email       string            `json:"email"`
	Amount      string            `json:"amount"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

func (c *Client) CreatePaymentLink(ctx context.Context, creds payments.Credentials, req payments.LinkRequest) (*payments.PaymentLink, error) {
	email, err := c.customerEmail(req)
	if err != nil {
		return nil, err
	}
	body := initializeRequest{
		Email:       email,
		Amount:      strconv.FormatInt(payments.ToMinorUnits(req.Amount), 10),
		Currency:    req.Currency.String(),
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	}

	var out envelope[initializeData]
	if err := c.api.Do(ctx, http.MethodPost, "/transaction/initialize", creds.SecretKey, body, &out); err != nil {
		return nil, err
	}
	if !out.Status || out.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("paystack initialize rejected: %s", out.Message)
	}
	return &payments.PaymentLink{
		URL:               out.Data.AuthorizationURL,
		ProviderReference: out.Data.AccessCode,
	}, nil
}

func (c *Client) customerEmail(req payments.LinkRequest) (string, error) {
	if email := strings.TrimSpace(req.Customer.Email); email != "" {
		return email, nil
	}
	if c.fallbackEmail == "" {
		return "", fmt.Errorf("paystack requires a customer email")
	}
	return strings.ToLower(req.Reference) + "@" + c.fallbackEmail, nil
}

type transactionData struct {
	ID        int64      `json:"id"`
	Status    string     `json:"status"`
	Reference string     `json:"reference"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	PaidAt    *time.Time `json:"paid_at"`
}

func (c *Client) VerifyTransaction(ctx context.Context, creds payments.Credentials, req payments.VerifyRequest) (*payments.Transaction, error) {
	var out envelope[transactionData]
	path := "/transaction/verify/" + url.PathEscape(req.Reference)
	if err := c.api.Do(ctx, http.MethodGet, path, creds.SecretKey, nil, &out); err != nil {
		return nil, err
	}
	if !out.Status {
		return nil, fmt.Errorf("paystack verify rejected: %s", out.Message)
	}
	return &payments.Transaction{
		Reference: out.Data.Reference,
		Kind:      kindFromStatus(out.Data.Status),
		Amount:    payments.FromMinorUnits(out.Data.Amount),
		Currency:  strings.ToUpper(out.Data.Currency),
		PaidAt:    out.Data.PaidAt,
	}, nil
}

// VerifyWebhookSignature checks the hex HMAC-SHA512 of the body keyed by the secret key.
func (c *Client) VerifyWebhookSignature(creds payments.Credentials, payload []byte, headers http.Header) error {
	signature := strings.TrimSpace(headers.Get(SignatureHeader))
	if signature == "" || creds.SecretKey == "" {
		return payments.ErrInvalidSignature
	}
	expected := Sign(creds.SecretKey, payload)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return payments.ErrInvalidSignature
	}
	return nil
}

// Sign computes the signature Paystack sends for payload.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type webhookBody struct {
	Event string          `json:"event"`
	Data  transactionData `json:"data"`
}

func (c *Client) ParseWebhook(payload []byte) (*payments.Event, error) {
	var body webhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", payments.ErrMalformedPayload, err)
	}
	if body.Event == "" {
		return nil, fmt.Errorf("%w: missing event", payments.ErrMalformedPayload)
	}

	kind := kindFromStatus(body.Data.Status)
	if body.Event == "charge.success" {
		kind = payments.EventKindSuccess
	}

	var id string
	if body.Data.ID != 0 {
		id = fmt.Sprintf("%s:%d", body.Event, body.Data.ID)
	}
	return &payments.Event{
		ID:        id,
		Type:      body.Event,
		Kind:      kind,
		Reference: body.Data.Reference,
		Amount:    payments.FromMinorUnits(body.Data.Amount),
		Currency:  strings.ToUpper(body.Data.Currency),
	}, nil
}

func kindFromStatus(status string) payments.EventKind {
	switch strings.ToLower(status) {
	case "success":
		return payments.EventKindSuccess
	case "failed", "reversed":
		return payments.EventKindFailed
	case "abandoned":
		return payments.EventKindAbandoned
	case "ongoing", "pending", "processing", "queued":
		return payments.EventKindPending
	default:
		return payments.EventKindUnknown
	}
}
