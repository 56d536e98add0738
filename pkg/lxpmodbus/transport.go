package lxpmodbus

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Transport is the capability shared by both protocol variants: one
// connection carrying strictly alternating request/response exchanges.
// Implementations are not reentrant; the Client serializes access.
type Transport interface {
	Connect(ctx context.Context) error
	// Exchange writes one framed request and returns the raw bytes of the
	// matching response frame. One write, one response, no pipelining.
	Exchange(ctx context.Context, req *Request) ([]byte, error)
	Close() error
}

// retryingTransport layers the shared retry policy above a concrete session:
// on any failed exchange the session is torn down and re-established, up to
// the configured budget. Exhaustion surfaces as ErrDeviceUnreachable.
type retryingTransport struct {
	inner   Transport
	retries int
	logger  *zap.Logger
}

func withRetries(inner Transport, retries int, logger *zap.Logger) Transport {
	if retries < 1 {
		retries = 1
	}
	return &retryingTransport{inner: inner, retries: retries, logger: logger}
}

func (t *retryingTransport) Connect(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= t.retries; attempt++ {
		if err := t.inner.Connect(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if ctx.Err() != nil {
			break
		}
		t.logger.Debug("connect attempt failed", zap.Int("attempt", attempt), zap.Error(lastErr))
	}
	return fmt.Errorf("%w: connect failed after %d attempts: %v", ErrDeviceUnreachable, t.retries, lastErr)
}

func (t *retryingTransport) Exchange(ctx context.Context, req *Request) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= t.retries; attempt++ {
		if attempt > 1 {
			t.inner.Close()
			if err := t.inner.Connect(ctx); err != nil {
				lastErr = err
				continue
			}
		}
		raw, err := t.inner.Exchange(ctx, req)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		t.logger.Debug("exchange attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}
	return nil, fmt.Errorf("%w: exchange failed after %d attempts: %v", ErrDeviceUnreachable, t.retries, lastErr)
}

func (t *retryingTransport) Close() error {
	return t.inner.Close()
}
