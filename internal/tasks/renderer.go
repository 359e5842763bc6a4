package tasks

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/kudibooks-backend/pkg/config"
	"github.com/angelmondragon/kudibooks-backend/pkg/httpclient"
	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
)

// HTTPRenderer calls the document rendering service.
type HTTPRenderer struct {
	api    *httpclient.JSONClient
	apiKey string
}

func NewHTTPRenderer(cfg config.RendererConfig, logg *logger.Logger) (*HTTPRenderer, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("renderer base url is required")
	}
	return &HTTPRenderer{
		api: &httpclient.JSONClient{
			Service: "renderer",
			BaseURL: base,
			HTTP:    httpclient.New(httpclient.Options{Timeout: cfg.Timeout, RetryMax: 2, Logger: logg}),
		},
		apiKey: cfg.APIKey,
	}, nil
}

type renderRequest struct {
	InvoiceID string `json:"invoice_id"`
	Format    string `json:"format"`
}

type renderResponse struct {
	URL string `json:"url"`
}

func (r *HTTPRenderer) Render(ctx context.Context, invoiceID string) (string, error) {
	var out renderResponse
	if err := r.api.Do(ctx, http.MethodPost, "/v1/render", r.apiKey, renderRequest{InvoiceID: invoiceID, Format: "pdf"}, &out); err != nil {
		var apiErr *httpclient.APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			return "", Permanent(err)
		}
		return "", err
	}
	return out.URL, nil
}
