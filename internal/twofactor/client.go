// Package twofactor is an HTTP client for the 2Factor SMS gateway API.
//
// Every method issues exactly one request under its own timeout and never
// retries; callers own retry and fallback policy. A gateway-level rejection
// comes back as a Response whose OK reports false, not as an error. Errors
// are reserved for transport faults and unreadable replies.
package twofactor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zonixt/eauction/internal/domain"
)

var tracer = otel.Tracer("twofactor")

var requestDuration metric.Float64Histogram

func init() {
	meter := otel.Meter("twofactor")
	var err error
	requestDuration, err = meter.Float64Histogram("gateway.request.duration",
		metric.WithDescription("SMS gateway round-trip time"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}
}

// maxBodyBytes caps how much of a gateway reply is read.
const maxBodyBytes = 64 * 1024

// Endpoint names used in spans and metrics.
const (
	EndpointOTP     = "SMS"
	EndpointAutogen = "AUTOGEN2"
	EndpointTSMS    = "TSMS"
	EndpointPSMS    = "PSMS"
	EndpointBalance = "BALANCE"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. "https://2factor.in/API/V1".
	BaseURL string

	// HTTPClient defaults to a client with no overall timeout; per-call
	// deadlines come from the timeouts below.
	HTTPClient *http.Client

	OTPTimeout     time.Duration // template and simple OTP sends
	SendTimeout    time.Duration // TSMS, PSMS and AUTOGEN2 sends
	BalanceTimeout time.Duration
}

// Client talks to the gateway. It is safe for concurrent use.
type Client struct {
	baseURL        string
	http           *http.Client
	otpTimeout     time.Duration
	sendTimeout    time.Duration
	balanceTimeout time.Duration
}

// NewClient creates a Client, filling zero timeouts with the domain defaults.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		http:           hc,
		otpTimeout:     orDefault(cfg.OTPTimeout, domain.ChannelTimeout),
		sendTimeout:    orDefault(cfg.SendTimeout, domain.SMSSendTimeout),
		balanceTimeout: orDefault(cfg.BalanceTimeout, domain.BalanceTimeout),
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// Response is the gateway's reply envelope.
type Response struct {
	Status  string `json:"Status"`
	Details string `json:"Details"`
}

// OK reports whether the gateway accepted the request.
func (r Response) OK() bool {
	return r.Status == domain.GatewayStatusSuccess
}

// UnmarshalJSON accepts Details as a string or any other JSON scalar;
// balance replies have been seen to carry numbers.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status  string          `json:"Status"`
		Details json.RawMessage `json:"Details"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Status = raw.Status
	r.Details = ""
	if len(raw.Details) == 0 || string(raw.Details) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.Details, &s); err == nil {
		r.Details = s
		return nil
	}
	r.Details = string(raw.Details)
	return nil
}

// SendTemplateOTP delivers code through a pre-approved OTP template.
// vars fill the template's var1..varN slots in order.
func (c *Client) SendTemplateOTP(ctx context.Context, key domain.SecretString, phone, code, template string, vars ...string) (Response, error) {
	q := url.Values{}
	for i, v := range vars {
		q.Set("var"+strconv.Itoa(i+1), v)
	}
	u := c.endpointURL(key, q, "SMS", phone, code, template)
	return c.get(ctx, EndpointOTP, u, c.otpTimeout)
}

// SendSimpleOTP delivers code with the gateway's default OTP text.
func (c *Client) SendSimpleOTP(ctx context.Context, key domain.SecretString, phone, code string) (Response, error) {
	u := c.endpointURL(key, nil, "SMS", phone, code)
	return c.get(ctx, EndpointOTP, u, c.otpTimeout)
}

// SendTransactional sends a free-text transactional SMS.
func (c *Client) SendTransactional(ctx context.Context, key domain.SecretString, from, phone, message string) (Response, error) {
	return c.postForm(ctx, EndpointTSMS, key, from, phone, message)
}

// SendPromotional sends a free-text promotional SMS.
func (c *Client) SendPromotional(ctx context.Context, key domain.SecretString, from, phone, message string) (Response, error) {
	return c.postForm(ctx, EndpointPSMS, key, from, phone, message)
}

// SendAutogenTemplate sends a registered template message with up to
// domain.MaxTemplateVars variables (VAR1..VAR5). Extra variables are dropped.
func (c *Client) SendAutogenTemplate(ctx context.Context, key domain.SecretString, phone, template string, vars []string) (Response, error) {
	q := url.Values{}
	q.Set("TemplateName", template)
	for i, v := range vars {
		if i >= domain.MaxTemplateVars {
			break
		}
		if v != "" {
			q.Set("VAR"+strconv.Itoa(i+1), v)
		}
	}
	u := c.endpointURL(key, q, "SMS", phone, "AUTOGEN2")
	return c.get(ctx, EndpointAutogen, u, c.sendTimeout)
}

// Balance queries the remaining quota for a category.
func (c *Client) Balance(ctx context.Context, key domain.SecretString, category domain.BalanceCategory) (Response, error) {
	u := c.endpointURL(key, nil, "BALANCE", string(category))
	return c.get(ctx, EndpointBalance, u, c.balanceTimeout)
}

func (c *Client) postForm(ctx context.Context, endpoint string, key domain.SecretString, from, phone, message string) (Response, error) {
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", phone)
	form.Set("Msg", message)
	u := c.endpointURL(key, nil, "ADDON_SERVICES", "SEND", endpoint)

	return c.do(ctx, endpoint, c.sendTimeout, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewBufferString(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
}

func (c *Client) get(ctx context.Context, endpoint, u string, timeout time.Duration) (Response, error) {
	return c.do(ctx, endpoint, timeout, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
}

// endpointURL joins {base}/{key}/{segments...} with each segment path-escaped.
func (c *Client) endpointURL(key domain.SecretString, q url.Values, segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteByte('/')
	b.WriteString(url.PathEscape(key.Expose()))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	if len(q) > 0 {
		b.WriteByte('?')
		b.WriteString(q.Encode())
	}
	return b.String()
}

func (c *Client) do(ctx context.Context, endpoint string, timeout time.Duration, build func(context.Context) (*http.Request, error)) (Response, error) {
	ctx, span := tracer.Start(ctx, "twofactor."+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := build(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request failed")
		return Response{}, fmt.Errorf("twofactor %s: build request: %w", endpoint, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	requestDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("endpoint", endpoint)))
	if err != nil {
		// *url.Error embeds the request URL, which carries the API key.
		err = scrubURLError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return Response{}, fmt.Errorf("twofactor %s: %w: %w", endpoint, domain.ErrGatewayTransport, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body failed")
		return Response{}, fmt.Errorf("twofactor %s: read body: %w: %w", endpoint, domain.ErrGatewayTransport, err)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil || out.Status == "" {
		span.SetStatus(codes.Error, "unreadable reply")
		return Response{}, fmt.Errorf("twofactor %s: unreadable reply (HTTP %d): %w", endpoint, resp.StatusCode, domain.ErrGatewayRejected)
	}

	span.SetAttributes(attribute.String("twofactor.status", out.Status))
	if !out.OK() {
		span.SetStatus(codes.Error, "gateway rejected")
	}
	return out, nil
}

// scrubURLError drops the URL from a *url.Error, keeping the operation and cause.
func scrubURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
