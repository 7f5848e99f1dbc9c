package http

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rozgar-signup/internal/common/errors"
	"rozgar-signup/internal/common/metrics"
)

// Client is the shared transport for every backend collaborator.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tracer     trace.Tracer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client (tests pass httptest's).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTracer sets the tracer used for call spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// NewClient builds a client for baseURL. timeout is the transport default
// applied to calls that carry no bound of their own; zero disables it.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		tracer:     otel.Tracer("rozgar-signup/http"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// File is one multipart upload part.
type File struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// Request describes one backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// JSON is marshalled as the body when set.
	JSON interface{}
	// File switches the body to multipart/form-data.
	File *File
	// Bearer is the identity token for authenticated calls.
	Bearer string
	// Timeout bounds this call; zero leaves the transport default.
	Timeout time.Duration
}

// Response is a completed call with any status code.
type Response struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Decode unmarshals the body into v.
func (r *Response) Decode(service string, v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.NewInvalidResponseError(service, fmt.Errorf("failed to parse response: %w", err))
	}
	return nil
}

// Detail extracts the error description from a {"detail": ...} body.
func (r *Response) Detail() string {
	var body struct {
		Detail  interface{} `json:"detail"`
		Message string      `json:"message"`
	}
	if err := json.Unmarshal(r.Body, &body); err != nil {
		return strings.TrimSpace(string(r.Body))
	}
	switch d := body.Detail.(type) {
	case string:
		return d
	case nil:
		return body.Message
	default:
		raw, _ := json.Marshal(d)
		return string(raw)
	}
}

// Send performs the call. Network failures and timeouts come back as
// StandardErrors; any HTTP status is returned in the Response.
func (c *Client) Send(ctx context.Context, operation string, req Request) (*Response, error) {
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "backend."+operation, trace.WithAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.route", req.Path),
	))
	defer span.End()

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	resp, err := c.do(ctx, operation, req)
	metrics.ObserveCall(operation, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.Status))
	if !resp.OK() {
		span.SetStatus(codes.Error, http.StatusText(resp.Status))
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, operation string, req Request) (*Response, error) {
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, errors.NewInternalError(fmt.Errorf("failed to encode %s request: %w", operation, err))
	}

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, errors.NewInternalError(fmt.Errorf("failed to create request: %w", err))
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Bearer)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, errors.NewTimeoutError(operation, err)
		}
		return nil, errors.NewTransportError(operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, errors.NewTimeoutError(operation, err)
		}
		return nil, errors.NewTransportError(operation, fmt.Errorf("failed to read response: %w", err))
	}

	return &Response{Status: resp.StatusCode, Body: raw}, nil
}

func encodeBody(req Request) (io.Reader, string, error) {
	switch {
	case req.File != nil:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, req.File.Field, req.File.Filename))
		if req.File.ContentType != "" {
			header.Set("Content-Type", req.File.ContentType)
		} else {
			header.Set("Content-Type", "application/octet-stream")
		}

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(req.File.Data); err != nil {
			return nil, "", err
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return &buf, w.FormDataContentType(), nil

	case req.JSON != nil:
		raw, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(raw), "application/json", nil

	default:
		return nil, "", nil
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}
