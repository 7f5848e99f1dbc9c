package camunda

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rozgar-signup/internal/common/config"
	"rozgar-signup/internal/common/errors"
	"rozgar-signup/internal/common/logger"
	"rozgar-signup/internal/models"
)

func testClient(t *testing.T, retries int) *Client {
	return &Client{
		config: &ClientConfig{
			ConnectionTimeout: time.Second,
			RequestTimeout:    time.Second,
			CompletionMessage: DefaultCompletionMessage,
			RetryConfig: &RetryConfig{
				MaxRetries: retries,
				BaseDelay:  time.Millisecond,
				MaxDelay:   2 * time.Millisecond,
			},
		},
		logger: logger.NewTestLogger(t),
	}
}

// ==========================================================================
// ExecuteWithRetry
// ==========================================================================

func TestExecuteWithRetry_RetriesTransientErrors(t *testing.T) {
	c := testClient(t, 3)
	calls := 0

	res, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, fmt.Errorf("rpc error: code = Unavailable desc = connection refused")
		}
		return "ok", nil
	}, "publish")

	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_StopsOnPermanentError(t *testing.T) {
	c := testClient(t, 3)
	calls := 0

	_, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, fmt.Errorf("rpc error: code = NotFound desc = process 'x' not found")
	}, "create instance x")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.HasCode(err, errors.ErrCodeServiceFailure))
	assert.False(t, errors.IsRetryable(err))
}

func TestExecuteWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	c := testClient(t, 2)
	calls := 0

	_, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, fmt.Errorf("context deadline exceeded")
	}, "publish")

	assert.Equal(t, 3, calls)
	assert.True(t, errors.HasCode(err, errors.ErrCodeServiceTimeout))
}

func TestExecuteWithRetry_Cancelled(t *testing.T) {
	c := testClient(t, 5)
	c.config.RetryConfig.BaseDelay = time.Second
	c.config.RetryConfig.MaxDelay = time.Second
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, fmt.Errorf("connection reset by peer")
	}, "publish")

	assert.True(t, errors.HasCode(err, errors.ErrCodeServiceTimeout))
}

// ==========================================================================
// Error mapping
// ==========================================================================

func TestMapZeebeError(t *testing.T) {
	c := testClient(t, 0)

	tests := []struct {
		msg  string
		code errors.ErrorCode
	}{
		{"connection refused", errors.ErrCodeTransportFailure},
		{"code = Unavailable", errors.ErrCodeTransportFailure},
		{"deadline exceeded", errors.ErrCodeServiceTimeout},
		{"process not found", errors.ErrCodeServiceFailure},
		{"message already exists", errors.ErrCodeServiceFailure},
		{"permission denied", errors.ErrCodeUnauthorized},
		{"something odd", errors.ErrCodeServiceFailure},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := c.mapZeebeError(fmt.Errorf("%s", tt.msg), "op", 0)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestIsRetryableZeebeError(t *testing.T) {
	assert.True(t, isRetryableZeebeError(fmt.Errorf("i/o timeout")))
	assert.True(t, isRetryableZeebeError(fmt.Errorf("code = RESOURCE_EXHAUSTED")))
	assert.False(t, isRetryableZeebeError(fmt.Errorf("invalid argument")))
}

// ==========================================================================
// Configuration and publishing
// ==========================================================================

func TestConfigFrom_Defaults(t *testing.T) {
	cfg := ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500"})

	assert.Equal(t, "zeebe:26500", cfg.GatewayAddress)
	assert.Equal(t, DefaultCompletionMessage, cfg.CompletionMessage)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.NotNil(t, cfg.RetryConfig)
}

func TestPublishRegistration_RequiresCorrelationKey(t *testing.T) {
	c := testClient(t, 0)

	err := c.PublishRegistration(context.Background(), models.RegistrationEvent{Role: models.RoleWorker})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
}
