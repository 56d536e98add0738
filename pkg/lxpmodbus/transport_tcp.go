package lxpmodbus

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// tcpSession talks to the WiFi dongle over a plain stream connection.
// One exchange is one write followed by one read; the dongle replies with
// whole frames, so there is no read-ahead.
type tcpSession struct {
	address string
	timeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

func newTCPSession(host string, port uint16, timeout time.Duration) *tcpSession {
	return &tcpSession{
		address: net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		timeout: timeout,
	}
}

func (s *tcpSession) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return nil
	}
	d := net.Dialer{Timeout: s.timeout}
	conn, err := d.DialContext(ctx, "tcp", s.address)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.address, err)
	}
	s.conn = conn
	return nil
}

func (s *tcpSession) Exchange(ctx context.Context, req *Request) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, fmt.Errorf("exchange on closed session to %s", s.address)
	}

	// cancellation must not leave a read pending on a dead exchange
	stop := context.AfterFunc(ctx, func() { s.conn.SetDeadline(time.Now()) })
	defer stop()

	if err := s.conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		return nil, err
	}
	if _, err := s.conn.Write(req.Bytes); err != nil {
		return nil, fmt.Errorf("write %s: %w", s.address, err)
	}

	buf := make([]byte, MaxPacketSize)
	n, err := s.conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.address, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("empty read from %s: connection closed", s.address)
	}
	return buf[:n], nil
}

func (s *tcpSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
