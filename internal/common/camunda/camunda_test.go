package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	apperrors "nearby-market/internal/common/errors"
	"nearby-market/internal/common/logger"
	"nearby-market/internal/common/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(max int) *RetryConfig {
	return &RetryConfig{MaxRetries: max, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name          string
		failures      int
		retryable     func(error) bool
		expectErr     bool
		expectedCalls int
	}{
		{name: "succeeds first time", failures: 0, expectedCalls: 1},
		{name: "succeeds after transient failures", failures: 2, retryable: isRetryableZeebeError, expectedCalls: 3},
		{name: "gives up after max retries", failures: 10, retryable: isRetryableZeebeError, expectErr: true, expectedCalls: 4},
		{name: "stops on permanent error", failures: 10, retryable: func(error) bool { return false }, expectErr: true, expectedCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), fastRetry(3), "topology", tt.retryable, func(context.Context) error {
				calls++
				if calls <= tt.failures {
					return fmt.Errorf("rpc error: code = Unavailable desc = connection refused")
				}
				return nil
			})
			assert.Equal(t, tt.expectErr, err != nil)
			assert.Equal(t, tt.expectedCalls, calls)
		})
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
	err := Retry(ctx, cfg, "topology", nil, func(context.Context) error { return fmt.Errorf("timeout") })
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff(t *testing.T) {
	cfg := &RetryConfig{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, cfg.Backoff(0))
	assert.Equal(t, 2*time.Second, cfg.Backoff(1))
	assert.Equal(t, 4*time.Second, cfg.Backoff(2))
	assert.Equal(t, 5*time.Second, cfg.Backoff(3))
	assert.Equal(t, 5*time.Second, cfg.Backoff(70))
}

func TestMapZeebeError(t *testing.T) {
	err := mapZeebeError(fmt.Errorf("context deadline exceeded"), "complete-job")
	assert.Equal(t, apperrors.ErrCodeEngineUnavailable, apperrors.CodeOf(err))

	err = mapZeebeError(fmt.Errorf("NOT_FOUND: job 12 not found"), "complete-job")
	assert.Equal(t, apperrors.ErrCodeInternal, apperrors.CodeOf(err))
}

type echoInput struct {
	Name string `json:"name"`
}

func decodeEcho(ctx context.Context, vars []byte) (interface{}, error) {
	var in echoInput
	if err := json.Unmarshal(vars, &in); err != nil {
		return nil, apperrors.NewParseError(err)
	}
	return map[string]string{"greeting": "hello " + in.Name}, nil
}

func TestJobRunner_Invoke(t *testing.T) {
	schema := validation.MustCompile(`{"type":"object","required":["name"],"properties":{"name":{"type":"string","minLength":1}}}`)
	runner := NewJobRunner("echo", time.Second, schema, logger.NewTestLogger(t))

	t.Run("valid input", func(t *testing.T) {
		out, err := runner.Invoke(context.Background(), []byte(`{"name":"asha"}`), decodeEcho)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"greeting": "hello asha"}, out)
	})

	t.Run("schema violation", func(t *testing.T) {
		_, err := runner.Invoke(context.Background(), []byte(`{"name":""}`), decodeEcho)
		assert.Equal(t, apperrors.ErrCodeInputValidationFailed, apperrors.CodeOf(err))
	})

	t.Run("malformed json", func(t *testing.T) {
		noSchema := NewJobRunner("echo", time.Second, nil, logger.NewTestLogger(t))
		_, err := noSchema.Invoke(context.Background(), []byte(`{"name":`), decodeEcho)
		assert.Equal(t, apperrors.ErrCodeParseError, apperrors.CodeOf(err))
	})

	t.Run("deadline becomes timeout", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		defer cancel()
		_, err := runner.Invoke(ctx, []byte(`{"name":"x"}`), func(ctx context.Context, _ []byte) (interface{}, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		assert.Equal(t, apperrors.ErrCodeQueryTimeout, apperrors.CodeOf(err))
	})
}
