package lxpmodbus

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/goburrow/serial"
)

// SerialConfig holds the RS-485 line parameters. The zero value of each
// line field selects the documented default, 19200 8N1.
type SerialConfig struct {
	Device   string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string // "N", "E" or "O"
}

// SupportedBaudRates lists the baud rates the inverters speak.
var SupportedBaudRates = []int{9600, 19200, 38400, 57600, 115200}

func (c *SerialConfig) normalize() {
	if c.BaudRate == 0 {
		c.BaudRate = 19200
	}
	if c.DataBits == 0 {
		c.DataBits = 8
	}
	if c.StopBits == 0 {
		c.StopBits = 1
	}
	// goburrow/serial maps an empty parity to even, so the default must
	// be spelled out before the port is opened.
	if c.Parity == "" {
		c.Parity = "N"
	}
}

func (c SerialConfig) validate() error {
	var errs []error
	if !slices.Contains(SupportedBaudRates, c.BaudRate) {
		errs = append(errs, fmt.Errorf("baud rate must be one of %v", SupportedBaudRates))
	}
	switch c.Parity {
	case "N", "E", "O":
	default:
		errs = append(errs, fmt.Errorf("parity must be N, E or O, got %q", c.Parity))
	}
	if c.DataBits != 7 && c.DataBits != 8 {
		errs = append(errs, fmt.Errorf("data bits must be 7 or 8, got %d", c.DataBits))
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		errs = append(errs, fmt.Errorf("stop bits must be 1 or 2, got %d", c.StopBits))
	}
	return errors.Join(errs...)
}

// rtuSession talks native Modbus RTU on a serial line. Serial reads are not
// packet-atomic, so every exchange funnels the incoming bytes through the
// stream recovery engine until a validated frame emerges.
type rtuSession struct {
	cfg SerialConfig

	mu       sync.Mutex
	port     serial.Port
	recovery *streamRecovery
}

// readSlice bounds a single blocking serial read so the recovery loop can
// observe its overall deadline.
const readSlice = 250 * time.Millisecond

func newRTUSession(cfg SerialConfig) *rtuSession {
	return &rtuSession{cfg: cfg}
}

func (s *rtuSession) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return nil
	}
	port, err := serial.Open(&serial.Config{
		Address:  s.cfg.Device,
		BaudRate: s.cfg.BaudRate,
		DataBits: s.cfg.DataBits,
		StopBits: s.cfg.StopBits,
		Parity:   s.cfg.Parity,
		Timeout:  readSlice,
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", s.cfg.Device, err)
	}
	s.port = port
	return nil
}

func (s *rtuSession) Exchange(ctx context.Context, req *Request) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil, fmt.Errorf("exchange on closed session to %s", s.cfg.Device)
	}

	if s.recovery == nil {
		s.recovery = newStreamRecovery(nil)
	}
	s.recovery.scan = func(buf []byte) (int, error) { return scanRTUFrame(buf, req) }
	s.recovery.reset()

	if _, err := s.port.Write(req.Bytes); err != nil {
		return nil, fmt.Errorf("write %s: %w", s.cfg.Device, err)
	}

	deadline := time.Now().Add(PacketRecoveryTimeout)
	chunk := make([]byte, 256)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := s.port.Read(chunk)
		if n > 0 {
			s.recovery.feed(chunk[:n])
			frame, rerr := s.recovery.next()
			if rerr != nil {
				return nil, rerr
			}
			if frame != nil {
				return frame, nil
			}
		}
		if err != nil && !errors.Is(err, serial.ErrTimeout) {
			return nil, fmt.Errorf("read %s: %w", s.cfg.Device, err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: no frame within %s", ErrFrameRecoveryExhausted, PacketRecoveryTimeout)
		}
	}
}

func (s *rtuSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}
