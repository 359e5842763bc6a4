// Package httpclient builds retrying JSON clients for third-party HTTP APIs.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
)

const maxErrorBody = 4 << 10

// Options tune the retrying HTTP client shared by outbound adapters.
type Options struct {
	Timeout  time.Duration
	RetryMax int
	Logger   *logger.Logger
}

// New returns a net/http client that retries transient failures with backoff.
func New(opts Options) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	if opts.Timeout > 0 {
		rc.HTTPClient.Timeout = opts.Timeout
	}
	rc.Logger = leveledLogger{log: opts.Logger}
	// surface the final upstream response instead of a generic "giving up" error
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc.StandardClient()
}

type leveledLogger struct {
	log *logger.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	if l.log == nil {
		return
	}
	l.log.Error(l.ctx(keysAndValues), msg, nil)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	if l.log == nil {
		return
	}
	l.log.Info(l.ctx(keysAndValues), msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	if l.log == nil {
		return
	}
	l.log.Debug(l.ctx(keysAndValues), msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	if l.log == nil {
		return
	}
	l.log.Warn(l.ctx(keysAndValues), msg)
}

func (l leveledLogger) ctx(keysAndValues []interface{}) context.Context {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return l.log.WithFields(context.Background(), fields)
}

// APIError carries a non-2xx upstream response.
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api returned %d: %s", e.Service, e.StatusCode, e.Body)
}

// Temporary reports whether the failure is worth retrying later.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// JSONClient performs bearer-authenticated JSON calls against a base URL.
type JSONClient struct {
	Service string
	BaseURL string
	HTTP    *http.Client
}

func (c *JSONClient) Do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", c.Service, err)
		}
		body = bytes.NewReader(raw)
	}

	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", c.Service, err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", c.Service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Service: c.Service, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.Service, err)
	}
	return nil
}
