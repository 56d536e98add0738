package lxpmodbus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSerialConfigDefaults(t *testing.T) {
	cfg := SerialConfig{Device: "/dev/ttyUSB0"}
	cfg.normalize()
	assert.Equal(t, 19200, cfg.BaudRate)
	assert.Equal(t, 8, cfg.DataBits)
	assert.Equal(t, 1, cfg.StopBits)
	// the parity default must be explicit, the serial layer treats an
	// empty string as even parity
	assert.Equal(t, "N", cfg.Parity)
	assert.NoError(t, cfg.validate())

	// explicit values survive normalization
	cfg = SerialConfig{Device: "/dev/ttyUSB0", BaudRate: 115200, DataBits: 7, StopBits: 2, Parity: "E"}
	cfg.normalize()
	assert.Equal(t, 115200, cfg.BaudRate)
	assert.Equal(t, 7, cfg.DataBits)
	assert.Equal(t, 2, cfg.StopBits)
	assert.Equal(t, "E", cfg.Parity)
	assert.NoError(t, cfg.validate())
}

func TestRetryEventualSuccess(t *testing.T) {
	req, _ := BuildReadRequest(testDongleSerial, testInverterSerial, 0, 1)
	frame := buildTCPReadResponse(testDongleSerial, testInverterSerial, FuncReadHold, 0, []uint16{7})

	for failures := 0; failures < 3; failures++ {
		calls := 0
		mock := &mockTransport{handler: func(r *Request) ([]byte, error) {
			calls++
			if calls <= failures {
				return nil, errors.New("connection reset")
			}
			return frame, nil
		}}
		tr := withRetries(mock, 3, zap.NewNop())

		raw, err := tr.Exchange(context.Background(), req)
		assert.NoError(t, err, "with %d leading failures", failures)
		assert.Equal(t, frame, raw)
		assert.Equal(t, failures+1, calls)
	}
}

func TestRetryBudgetExhaustion(t *testing.T) {
	req, _ := BuildReadRequest(testDongleSerial, testInverterSerial, 0, 1)
	mock := &mockTransport{handler: func(r *Request) ([]byte, error) {
		return nil, errors.New("connection reset")
	}}
	tr := withRetries(mock, 3, zap.NewNop())

	_, err := tr.Exchange(context.Background(), req)
	assert.True(t, errors.Is(err, ErrDeviceUnreachable), "got %v", err)
	assert.Equal(t, 3, mock.exchanges)
}

func TestRetryReestablishesSessionBetweenAttempts(t *testing.T) {
	req, _ := BuildReadRequest(testDongleSerial, testInverterSerial, 0, 1)
	frame := buildTCPReadResponse(testDongleSerial, testInverterSerial, FuncReadHold, 0, []uint16{7})

	calls := 0
	mock := &mockTransport{handler: func(r *Request) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("timeout")
		}
		return frame, nil
	}}
	tr := withRetries(mock, 3, zap.NewNop())

	_, err := tr.Exchange(context.Background(), req)
	assert.NoError(t, err)
	assert.Equal(t, 1, mock.closes, "session not torn down before retry")
	assert.Equal(t, 1, mock.connects, "session not re-established before retry")
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	req, _ := BuildReadRequest(testDongleSerial, testInverterSerial, 0, 1)
	ctx, cancel := context.WithCancel(context.Background())
	mock := &mockTransport{handler: func(r *Request) ([]byte, error) {
		cancel()
		return nil, errors.New("interrupted")
	}}
	tr := withRetries(mock, 10, zap.NewNop())

	_, err := tr.Exchange(ctx, req)
	assert.True(t, errors.Is(err, ErrDeviceUnreachable))
	assert.Equal(t, 1, mock.exchanges, "retried after cancellation")
}
