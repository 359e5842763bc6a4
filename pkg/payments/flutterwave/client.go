package flutterwave

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	"github.com/angelmondragon/kudibooks-backend/pkg/httpclient"
	"github.com/angelmondragon/kudibooks-backend/pkg/payments"
	"github.com/angelmondragon/kudibooks-backend/pkg/security"
)

const (
	DefaultBaseURL = "https://api.flutterwave.com/v3"

	SignatureHeader = "flutterwave-signature"
	// LegacyHashHeader carries the dashboard secret hash verbatim.
	LegacyHashHeader = "verif-hash"
)

type Options struct {
	BaseURL string
	HTTP    *http.Client
}

type Client struct {
	api *httpclient.JSONClient
}

func New(opts Options) *Client {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{api: &httpclient.JSONClient{Service: "flutterwave", BaseURL: base, HTTP: opts.HTTP}}
}

func (c *Client) Name() enums.PaymentProvider {
	return enums.PaymentProviderFlutterwave
}

type response[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type paymentRequest struct {
	TxRef          string            `json:"tx_ref"`
	Amount         json.Number       `json:"amount"`
	Currency       string            `json:"currency"`
	RedirectURL    string            `json:"redirect_url,omitempty"`
	Customer       customer          `json:"customer"`
	Customizations customizations    `json:"customizations"`
	Meta           map[string]string `json:"meta,omitempty"`
}

type customer struct {
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phonenumber,omitempty"`
	Name        string `json:"name,omitempty"`
}

type customizations struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

type linkData struct {
	Link string `json:"link"`
}

func (c *Client) CreatePaymentLink(ctx context.Context, creds payments.Credentials, req payments.LinkRequest) (*payments.PaymentLink, error) {
	body := paymentRequest{
		TxRef:       req.Reference,
		Amount:      json.Number(req.Amount.StringFixed(2)),
		Currency:    req.Currency.String(),
		RedirectURL: req.CallbackURL,
		Customer: customer{
			Email:       req.Customer.Email,
			PhoneNumber: req.Customer.Phone,
			Name:        req.Customer.Name,
		},
		Customizations: customizations{Title: req.Reference, Description: req.Description},
		Meta:           req.Metadata,
	}

	var out response[linkData]
	if err := c.api.Do(ctx, http.MethodPost, "/payments", creds.SecretKey, body, &out); err != nil {
		return nil, err
	}
	if !strings.EqualFold(out.Status, "success") || out.Data.Link == "" {
		return nil, fmt.Errorf("flutterwave payment link rejected: %s", out.Message)
	}
	// Hosted links carry no separate session id; the tx_ref doubles as the provider reference.
	return &payments.PaymentLink{URL: out.Data.Link, ProviderReference: req.Reference}, nil
}

type transactionData struct {
	ID        int64           `json:"id"`
	TxRef     string          `json:"tx_ref"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	CreatedAt *time.Time      `json:"created_at"`
}

func (c *Client) VerifyTransaction(ctx context.Context, creds payments.Credentials, req payments.VerifyRequest) (*payments.Transaction, error) {
	var out response[transactionData]
	path := "/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(req.Reference)
	if err := c.api.Do(ctx, http.MethodGet, path, creds.SecretKey, nil, &out); err != nil {
		return nil, err
	}
	if !strings.EqualFold(out.Status, "success") {
		return nil, fmt.Errorf("flutterwave verify rejected: %s", out.Message)
	}

	tx := &payments.Transaction{
		Reference: out.Data.TxRef,
		Kind:      kindFromStatus(out.Data.Status),
		Amount:    out.Data.Amount,
		Currency:  strings.ToUpper(out.Data.Currency),
	}
	if tx.Kind == payments.EventKindSuccess {
		tx.PaidAt = out.Data.CreatedAt
	}
	return tx, nil
}

// VerifyWebhookSignature accepts either the HMAC-SHA256 signature or the legacy secret hash header.
func (c *Client) VerifyWebhookSignature(creds payments.Credentials, payload []byte, headers http.Header) error {
	secret := strings.TrimSpace(creds.WebhookSecret)
	if secret == "" {
		return payments.ErrInvalidSignature
	}
	if signature := strings.TrimSpace(headers.Get(SignatureHeader)); signature != "" {
		if hmac.Equal([]byte(Sign(secret, payload)), []byte(signature)) {
			return nil
		}
		return payments.ErrInvalidSignature
	}
	if hash := strings.TrimSpace(headers.Get(LegacyHashHeader)); hash != "" && security.ConstantTimeEqual(hash, secret) {
		return nil
	}
	return payments.ErrInvalidSignature
}

func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type webhookBody struct {
	ID    json.Number     `json:"id"`
	Event string          `json:"event"`
	Type  string          `json:"event.type"`
	Data  transactionData `json:"data"`
}

func (c *Client) ParseWebhook(payload []byte) (*payments.Event, error) {
	var body webhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", payments.ErrMalformedPayload, err)
	}
	eventType := body.Event
	if eventType == "" {
		eventType = body.Type
	}
	if eventType == "" {
		return nil, fmt.Errorf("%w: missing event", payments.ErrMalformedPayload)
	}

	var id string
	switch {
	case body.ID != "":
		id = body.ID.String()
	case body.Data.ID != 0:
		id = eventType + ":" + strconv.FormatInt(body.Data.ID, 10) + ":" + strings.ToLower(body.Data.Status)
	}

	return &payments.Event{
		ID:        id,
		Type:      eventType,
		Kind:      kindFromStatus(body.Data.Status),
		Reference: body.Data.TxRef,
		Amount:    body.Data.Amount,
		Currency:  strings.ToUpper(body.Data.Currency),
	}, nil
}

func kindFromStatus(status string) payments.EventKind {
	switch strings.ToLower(status) {
	case "successful", "succeeded", "success":
		return payments.EventKindSuccess
	case "failed", "error":
		return payments.EventKindFailed
	case "cancelled", "canceled", "abandoned":
		return payments.EventKindAbandoned
	case "pending", "processing":
		return payments.EventKindPending
	default:
		return payments.EventKindUnknown
	}
}
