package flutterwave

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	"github.com/angelmondragon/kudibooks-backend/pkg/payments"
)

func testCreds() payments.Credentials {
	return payments.Credentials{
		Provider:      enums.PaymentProviderFlutterwave,
		SecretKey:     "FLWSECK_TEST-abc",
		WebhookSecret: "my-secret-hash",
	}
}

func TestCreatePaymentLink(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, "Bearer FLWSECK_TEST-abc", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"success","message":"Hosted Link","data":{"link":"https://checkout.flutterwave.com/v3/hosted/pay/xyz"}}`))
	}))
	defer srv.Close()

	link, err := New(Options{BaseURL: srv.URL}).CreatePaymentLink(context.Background(), testCreds(), payments.LinkRequest{
		Reference: "INV-9",
		Amount:    decimal.RequireFromString("1500"),
		Currency:  enums.CurrencyGHS,
		Customer:  payments.Customer{Email: "kofi@example.com", Name: "Kofi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.flutterwave.com/v3/hosted/pay/xyz", link.URL)
	assert.Equal(t, "INV-9", link.ProviderReference)
	assert.Equal(t, "INV-9", got["tx_ref"])
	assert.Equal(t, 1500.0, got["amount"])
	assert.Equal(t, "GHS", got["currency"])
}

func TestVerifyTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions/verify_by_reference", r.URL.Path)
		assert.Equal(t, "INV-9", r.URL.Query().Get("tx_ref"))
		_, _ = w.Write([]byte(`{"status":"success","data":{"id":7,"tx_ref":"INV-9","status":"failed","amount":1500,"currency":"GHS"}}`))
	}))
	defer srv.Close()

	tx, err := New(Options{BaseURL: srv.URL}).VerifyTransaction(context.Background(), testCreds(), payments.VerifyRequest{Reference: "INV-9"})
	require.NoError(t, err)
	assert.Equal(t, payments.EventKindFailed, tx.Kind)
	assert.Nil(t, tx.PaidAt)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(1500)))
}

func TestWebhookSignatureModes(t *testing.T) {
	client := New(Options{})
	body := []byte(`{"event":"charge.completed","data":{"id":1,"tx_ref":"INV-9","status":"successful","amount":1500,"currency":"GHS"}}`)

	headers := http.Header{}
	headers.Set(SignatureHeader, Sign("my-secret-hash", body))
	require.NoError(t, client.VerifyWebhookSignature(testCreds(), body, headers))

	headers = http.Header{}
	headers.Set(LegacyHashHeader, "my-secret-hash")
	require.NoError(t, client.VerifyWebhookSignature(testCreds(), body, headers))

	headers.Set(LegacyHashHeader, "wrong")
	assert.ErrorIs(t, client.VerifyWebhookSignature(testCreds(), body, headers), payments.ErrInvalidSignature)

	headers = http.Header{}
	headers.Set(SignatureHeader, Sign("wrong", body))
	headers.Set(LegacyHashHeader, "my-secret-hash")
	assert.ErrorIs(t, client.VerifyWebhookSignature(testCreds(), body, headers), payments.ErrInvalidSignature)
}

func TestParseWebhook(t *testing.T) {
	event, err := New(Options{}).ParseWebhook([]byte(`{"event":"charge.completed","data":{"id":11,"tx_ref":"INV-9","status":"successful","amount":1500.5,"currency":"ghs"}}`))
	require.NoError(t, err)
	assert.Equal(t, "charge.completed:11:successful", event.ID)
	assert.Equal(t, payments.EventKindSuccess, event.Kind)
	assert.Equal(t, "GHS", event.Currency)
	assert.True(t, event.Amount.Equal(decimal.RequireFromString("1500.5")))

	_, err = New(Options{}).ParseWebhook([]byte(`{"data":{}}`))
	assert.ErrorIs(t, err, payments.ErrMalformedPayload)
}
