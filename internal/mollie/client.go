// Package mollie is a thin client for the Mollie v2 REST API covering the
// customer, payment, mandate and subscription calls needed for recurring
// payments. Write calls are form-encoded; responses are JSON.
package mollie

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/mollie-recurring/internal/obs"
	"github.com/noah-isme/mollie-recurring/internal/resilience"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://api.mollie.com/v2"

	formContentType  = "application/x-www-form-urlencoded"
	userAgent        = "mollie-recurring/1.0"
	maxResponseBytes = 1 << 20
)

// Doer executes an outbound HTTP request. resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Credentials selects the API key for the configured environment.
type Credentials struct {
	Environment string
	LiveKey     string
	TestKey     string
}

// APIKey returns LiveKey when Environment is "production" and TestKey
// otherwise. An empty key is not rejected here; the provider answers 401.
func (c Credentials) APIKey() string {
	if strings.TrimSpace(c.Environment) == "production" {
		return c.LiveKey
	}
	return c.TestKey
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	Credentials Credentials
	HTTP        Doer
	Logger      zerolog.Logger
}

// Client calls the Mollie API with a single bearer credential chosen at construction.
type Client struct {
	baseURL  string
	apiKey   string
	http     Doer
	logger   zerolog.Logger
	validate *validator.Validate
}

// NewClient builds a Client. When opts.HTTP is nil a single-attempt
// resilience.HTTPClient with a 15s timeout is used.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	doer := opts.HTTP
	if doer == nil {
		doer = resilience.HTTPClient{
			Client:      &http.Client{Timeout: 15 * time.Second},
			MaxAttempts: 1,
		}
	}
	return &Client{
		baseURL:  base,
		apiKey:   opts.Credentials.APIKey(),
		http:     doer,
		logger:   opts.Logger,
		validate: newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs the struct's required-field rules and reports the first missing field.
func (c *Client) check(op string, req any) error {
	err := c.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return &ValidationError{Op: op, Field: fieldPath(fieldErrs[0].Namespace()), Err: err}
	}
	return &ValidationError{Op: op, Err: err}
}

// fieldPath drops the struct name from a validator namespace such as
// "PaymentRequest.amount.currency".
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func (c *Client) do(ctx context.Context, op, method, path string, form url.Values, out any) (raw []byte, err error) {
	ctx, span := otel.Tracer("mollie.Client").Start(ctx, "Mollie."+op)
	defer span.End()
	span.SetAttributes(
		attribute.String("mollie.operation", op),
		attribute.String("http.method", method),
	)

	start := time.Now()
	status := 0
	defer func() {
		result := "success"
		if err != nil {
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		obs.ObserveProviderCall(op, result, obs.DurationMillis(time.Since(start)))
		log := obs.LoggerFrom(ctx, c.logger).With().Str("component", "mollie").Logger()
		evt := log.Debug()
		if err != nil {
			evt = log.Warn().Err(err)
		}
		evt.Str("operation", op).
			Str("method", method).
			Str("path", path).
			Int("status", status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("mollie_request")
	}()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &OperationFailedError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if form != nil {
		req.Header.Set("Content-Type", formContentType)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, &OperationFailedError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	status = resp.StatusCode
	span.SetAttributes(attribute.Int("http.status_code", status))

	raw, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &OperationFailedError{Op: op, StatusCode: status, Err: err}
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &OperationFailedError{Op: op, StatusCode: status, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, &MalformedResponseError{Op: op, Path: "$", Err: err}
	}
	return raw, nil
}

func pathSegment(id string) string {
	return url.PathEscape(strings.TrimSpace(id))
}
