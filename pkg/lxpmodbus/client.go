package lxpmodbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ClientConfig carries the device identity and policy knobs shared by both
// transports. Identity fields are immutable for the lifetime of a client;
// reconfiguration tears the client down and builds a new one.
type ClientConfig struct {
	// TCP identity
	DongleSerial   string
	InverterSerial string
	// RTU identity
	SlaveID uint8

	RegisterBlockSize uint16
	ConnectionRetries int
	ReadOnly          bool
	Timeout           time.Duration
}

func (c *ClientConfig) normalize() {
	if c.RegisterBlockSize == 0 {
		c.RegisterBlockSize = DefaultRegisterBlock
	}
	if c.ConnectionRetries == 0 {
		c.ConnectionRetries = 3
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
}

// Client drives request/response exchanges against one inverter. Requests
// are strictly serialized: the underlying session is not reentrant and
// correctness relies on request/response alternation, not on frame ids.
type Client struct {
	cfg       ClientConfig
	transport Transport
	rtu       bool
	logger    *zap.Logger

	mu sync.Mutex
}

// NewTCPClient builds a client for the WiFi dongle protocol. Configuration
// problems are reported here, before any connection is attempted.
func NewTCPClient(host string, port uint16, cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	cfg.normalize()
	var errs []error
	if !validSerial(cfg.DongleSerial) {
		errs = append(errs, fmt.Errorf("dongle serial must be %d characters", SerialLength))
	}
	if !validSerial(cfg.InverterSerial) {
		errs = append(errs, fmt.Errorf("inverter serial must be %d characters", SerialLength))
	}
	if host == "" {
		errs = append(errs, errors.New("host must not be empty"))
	}
	if err := validatePolicy(cfg); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequestParameters, errors.Join(errs...))
	}
	return &Client{
		cfg:       cfg,
		transport: withRetries(newTCPSession(host, port, cfg.Timeout), cfg.ConnectionRetries, logger),
		logger:    logger.With(zap.String("transport", "tcp"), zap.String("inverter", cfg.InverterSerial)),
	}, nil
}

// NewRTUClient builds a client for the RS-485 protocol variant.
func NewRTUClient(serial SerialConfig, cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	cfg.normalize()
	serial.normalize()
	var errs []error
	if cfg.SlaveID < SlaveIDMin || cfg.SlaveID > SlaveIDMax {
		errs = append(errs, fmt.Errorf("slave id must be %d-%d", SlaveIDMin, SlaveIDMax))
	}
	if serial.Device == "" {
		errs = append(errs, errors.New("serial device must not be empty"))
	}
	if err := serial.validate(); err != nil {
		errs = append(errs, err)
	}
	if err := validatePolicy(cfg); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequestParameters, errors.Join(errs...))
	}
	return &Client{
		cfg:       cfg,
		transport: withRetries(newRTUSession(serial), cfg.ConnectionRetries, logger),
		rtu:       true,
		logger:    logger.With(zap.String("transport", "rtu"), zap.Uint8("slave", cfg.SlaveID)),
	}, nil
}

func validatePolicy(cfg ClientConfig) error {
	var errs []error
	if cfg.ConnectionRetries < 1 || cfg.ConnectionRetries > 10 {
		errs = append(errs, errors.New("connection retries must be 1-10"))
	}
	if cfg.RegisterBlockSize != DefaultRegisterBlock && cfg.RegisterBlockSize != LegacyRegisterBlock {
		errs = append(errs, fmt.Errorf("register block size must be %d or %d", DefaultRegisterBlock, LegacyRegisterBlock))
	}
	return errors.Join(errs...)
}

func (c *Client) Connect(ctx context.Context) error {
	return c.transport.Connect(ctx)
}

func (c *Client) Close() error {
	return c.transport.Close()
}

// ReadOnly reports whether writes are refused.
func (c *Client) ReadOnly() bool {
	return c.cfg.ReadOnly
}

func (c *Client) buildRead(start, count uint16) (*Request, error) {
	if c.rtu {
		return BuildRTUReadRequest(c.cfg.SlaveID, start, count)
	}
	return BuildReadRequest(c.cfg.DongleSerial, c.cfg.InverterSerial, start, count)
}

func (c *Client) buildWriteSingle(address, value uint16) (*Request, error) {
	if c.rtu {
		return BuildRTUWriteSingleRequest(c.cfg.SlaveID, address, value)
	}
	return BuildWriteSingleRequest(c.cfg.DongleSerial, c.cfg.InverterSerial, address, value)
}

// exchange runs one serialized request/response round trip and parses the
// reply. A well-framed but mismatched or device-flagged reply surfaces as
// ErrProtocolError.
func (c *Client) exchange(ctx context.Context, req *Request) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := c.transport.Exchange(ctx, req)
	if err != nil {
		return nil, err
	}
	resp := parseFor(raw, req)
	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrProtocolError, resp.Reason)
	}
	return resp, nil
}

// ReadRegisters reads one contiguous block of holding registers.
func (c *Client) ReadRegisters(ctx context.Context, start, count uint16) (RegisterSnapshot, error) {
	req, err := c.buildRead(start, count)
	if err != nil {
		return nil, err
	}
	resp, err := c.exchange(ctx, req)
	if err != nil {
		return nil, err
	}
	return RegisterSnapshot(resp.Registers()), nil
}

// ReadAll assembles one full-cycle snapshot, chunked by the configured
// register block size. Any chunk failure abandons the cycle: partial data
// is discarded, never merged into a stale snapshot.
func (c *Client) ReadAll(ctx context.Context) (RegisterSnapshot, error) {
	snapshot := make(RegisterSnapshot, TotalRegisters)
	block := c.cfg.RegisterBlockSize
	for start := uint16(0); start < TotalRegisters; start += block {
		count := block
		if remaining := uint16(TotalRegisters) - start; remaining < count {
			count = remaining
		}
		chunk, err := c.ReadRegisters(ctx, start, count)
		if err != nil {
			return nil, fmt.Errorf("read chunk %d+%d: %w", start, count, err)
		}
		for addr, v := range chunk {
			snapshot[addr] = v
		}
	}
	return snapshot, nil
}

// WriteRegister writes a single holding register, unless the client is
// configured read-only.
func (c *Client) WriteRegister(ctx context.Context, address, value uint16) error {
	if c.cfg.ReadOnly {
		return ErrReadOnly
	}
	req, err := c.buildWriteSingle(address, value)
	if err != nil {
		return err
	}
	resp, err := c.exchange(ctx, req)
	if err != nil {
		return err
	}
	if echoed := resp.Registers()[address]; echoed != value {
		return fmt.Errorf("%w: write echo %d, want %d", ErrProtocolError, echoed, value)
	}
	return nil
}

// WriteRegisters writes a contiguous run of holding registers. The dongle
// protocol has a multi-write function; RTU falls back to sequential single
// writes, preserving strict request/response alternation.
func (c *Client) WriteRegisters(ctx context.Context, address uint16, values []uint16) error {
	if c.cfg.ReadOnly {
		return ErrReadOnly
	}
	if c.rtu {
		for i, v := range values {
			if err := c.WriteRegister(ctx, address+uint16(i), v); err != nil {
				return err
			}
		}
		return nil
	}
	req, err := BuildWriteMultipleRequest(c.cfg.DongleSerial, c.cfg.InverterSerial, address, values)
	if err != nil {
		return err
	}
	_, err = c.exchange(ctx, req)
	return err
}

// ProbeModel reads registers 7-8 and decodes the model name. The probe keeps
// the coarse failure signal of the setup flow: any failure, transport or
// protocol, reports as a plain fetch failure.
func (c *Client) ProbeModel(ctx context.Context) (string, error) {
	regs, err := c.ReadRegisters(ctx, RegModelLow, 2)
	if err != nil {
		c.logger.Debug("model probe failed", zap.Error(err))
		return "", errors.New("lxpmodbus: model fetch failed")
	}
	model, ok := DecodeModel(regs)
	if !ok {
		return "", errors.New("lxpmodbus: model fetch failed")
	}
	return model, nil
}
