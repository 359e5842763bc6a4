package validators

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kudibooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
)

type sampleLine struct {
	Quantity json.Number `json:"quantity" validate:"required,money"`
}

type sampleBody struct {
	Name     string       `json:"name" validate:"required"`
	Currency string       `json:"currency" validate:"omitempty,currency"`
	Lines    []sampleLine `json:"lines" validate:"dive"`
}

func decode(body string) (sampleBody, error) {
	var dest sampleBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return dest, DecodeJSONBody(req, &dest)
}

func TestDecodeJSONBodyValid(t *testing.T) {
	got, err := decode(`{"name":"Ada","currency":"NGN","lines":[{"quantity":1.5}]}`)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, json.Number("1.5"), got.Lines[0].Quantity)
}

func TestDecodeJSONBodyFieldErrors(t *testing.T) {
	_, err := decode(`{"currency":"NAIRA","lines":[{"quantity":"0"}]}`)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["name"])
	assert.Equal(t, "must be a 3 letter currency code", details["currency"])
	assert.Equal(t, "must be a positive decimal amount", details["lines[0].quantity"])
}

func TestDecodeJSONBodyRejectsEmptyAndUnknown(t *testing.T) {
	_, err := decode(``)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = decode(`{"name":"Ada","extra":true}`)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=30&bad=x&huge=500", nil)
	bounds := IntBounds{Default: 25, Min: 1, Max: 100}

	v, err := QueryInt(req, "limit", bounds)
	require.NoError(t, err)
	assert.Equal(t, 30, v)

	v, err = QueryInt(req, "missing", bounds)
	require.NoError(t, err)
	assert.Equal(t, 25, v)

	_, err = QueryInt(req, "bad", bounds)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = QueryInt(req, "huge", bounds)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestQueryEnum(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?status=PAID&bogus=nope", nil)

	status, err := QueryEnum(req, "status", enums.ParseInvoiceStatus)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, enums.InvoiceStatusPaid, *status)

	absent, err := QueryEnum(req, "missing", enums.ParseInvoiceStatus)
	require.NoError(t, err)
	assert.Nil(t, absent)

	_, err = QueryEnum(req, "bogus", enums.ParseInvoiceStatus)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
