// Package backend talks to the marketplace API: the account, worker profile,
// transcription, field extraction and conversation services.
package backend

import (
	"context"
	"net/http"
	"strings"
	"time"

	"rozgar-signup/internal/common/config"
	"rozgar-signup/internal/common/errors"
	httpclient "rozgar-signup/internal/common/http"
	"rozgar-signup/internal/common/logger"
	"rozgar-signup/internal/common/validation"
)

// Timeouts bounds each collaborator; zero leaves the transport default.
type Timeouts struct {
	Account       time.Duration
	Profile       time.Duration
	Transcription time.Duration
	Extraction    time.Duration
	Conversation  time.Duration
}

// DefaultTimeouts mirrors the configuration defaults.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Account:       15 * time.Second,
		Profile:       15 * time.Second,
		Transcription: 45 * time.Second,
		Extraction:    30 * time.Second,
	}
}

// TimeoutsFromConfig converts configured milliseconds.
func TimeoutsFromConfig(cfg config.APIConfig) Timeouts {
	return Timeouts{
		Account:       config.GetDuration(cfg.Timeouts.Account),
		Profile:       config.GetDuration(cfg.Timeouts.Profile),
		Transcription: config.GetDuration(cfg.Timeouts.Transcription),
		Extraction:    config.GetDuration(cfg.Timeouts.Extraction),
		Conversation:  config.GetDuration(cfg.Timeouts.Conversation),
	}
}

// Client implements every collaborator interface over one HTTP transport.
type Client struct {
	http     *httpclient.Client
	timeouts Timeouts
	logger   logger.Logger
}

func New(transport *httpclient.Client, timeouts Timeouts, log logger.Logger) *Client {
	return &Client{
		http:     transport,
		timeouts: timeouts,
		logger:   log,
	}
}

var (
	_ AccountService      = (*Client)(nil)
	_ ProfileService      = (*Client)(nil)
	_ Transcriber         = (*Client)(nil)
	_ Extractor           = (*Client)(nil)
	_ ConversationService = (*Client)(nil)
)

// send performs a call and, on 2xx, validates and decodes the reply.
// Non-2xx responses are returned untouched with a nil error so the caller can
// map operation specific statuses before falling back to statusError.
func (c *Client) send(ctx context.Context, operation string, req httpclient.Request, schema string, out interface{}) (*httpclient.Response, error) {
	resp, err := c.http.Send(ctx, operation, req)
	if err != nil {
		c.logger.Warn("Backend call failed", map[string]interface{}{
			"operation": operation,
			"error":     err.Error(),
		})
		return nil, err
	}
	if !resp.OK() {
		c.logger.Warn("Backend call rejected", map[string]interface{}{
			"operation": operation,
			"status":    resp.Status,
			"detail":    resp.Detail(),
		})
		return resp, nil
	}

	if schema != "" {
		result, err := validation.ValidateDocument(schema, resp.Body)
		if err != nil {
			return nil, errors.NewInternalError(err)
		}
		if !result.Valid {
			return nil, errors.NewInvalidResponseError(operation, schemaError(result))
		}
	}
	if out != nil {
		if err := resp.Decode(operation, out); err != nil {
			return nil, err
		}
	}

	c.logger.Debug("Backend call succeeded", map[string]interface{}{
		"operation": operation,
		"status":    resp.Status,
	})
	return resp, nil
}

// statusError is the default mapping of a rejected call.
func statusError(service string, resp *httpclient.Response) error {
	detail := resp.Detail()
	switch resp.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewUnauthorizedError(detail)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errors.NewTimeoutError(service, errorString(detail))
	default:
		return errors.NewServiceError(service, resp.Status, detail)
	}
}

func isDuplicate(resp *httpclient.Response) bool {
	if resp.Status == http.StatusConflict {
		return true
	}
	return resp.Status == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(resp.Detail()), "already registered")
}

type errorString string

func (e errorString) Error() string { return string(e) }

func schemaError(result *validation.ValidationResult) error {
	return errorString(strings.Join(result.GetErrorMessages(), "; "))
}
