// Package netlink implements the two outbound TCP client endpoints
// (VAM, CM) ICM-RX/ICM-TX and SD use: non-blocking connect with
// timeout, bounded reconnect, and a periodic health-check ping
// (spec.md §6, §4.8).
package netlink

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/nmxmxh/asi-supervisor/internal/config"
)

// Endpoint is one reconnecting TCP client connection.
type Endpoint struct {
	addr string

	mu   sync.Mutex
	conn net.Conn
}

// NewEndpoint constructs an endpoint for addr. Dial is not attempted
// until Connect is called.
func NewEndpoint(addr string) *Endpoint {
	return &Endpoint{addr: addr}
}

// Connect dials addr with config.TCPConnectTimeout, retrying up to
// config.TCPReconnectAttempts times with config.TCPReconnectBackoff
// between attempts (§6 "reconnect up to 3 attempts with 100 ms
// backoff").
func (e *Endpoint) Connect(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt <= config.TCPReconnectAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(config.TCPReconnectBackoff):
			}
		}
		d := net.Dialer{Timeout: config.TCPConnectTimeout}
		conn, err := d.DialContext(ctx, "tcp", e.addr)
		if err == nil {
			e.mu.Lock()
			e.conn = conn
			e.mu.Unlock()
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("netlink: connect %s after %d attempts: %w", e.addr, config.TCPReconnectAttempts+1, lastErr)
}

// Connected reports whether the endpoint currently holds a live
// connection.
func (e *Endpoint) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn != nil
}

// Read reads raw bytes off the connection.
func (e *Endpoint) Read(buf []byte) (int, error) {
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil {
		return 0, fmt.Errorf("netlink: %s not connected", e.addr)
	}
	return conn.Read(buf)
}

// Write writes raw bytes to the connection.
func (e *Endpoint) Write(buf []byte) (int, error) {
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil {
		return 0, fmt.Errorf("netlink: %s not connected", e.addr)
	}
	return conn.Write(buf)
}

// Close tears down the connection, if any.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return nil
	}
	err := e.conn.Close()
	e.conn = nil
	return err
}

// ReadFrame attempts to read exactly size bytes within timeout,
// returning ok=false (no error) on a plain read timeout so callers can
// treat "nothing arrived this tick" as the normal case rather than a
// fault.
func (e *Endpoint) ReadFrame(size int, timeout time.Duration) (buf []byte, ok bool, err error) {
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil {
		return nil, false, fmt.Errorf("netlink: %s not connected", e.addr)
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, false, err
	}
	defer conn.SetReadDeadline(time.Time{})

	buf = make([]byte, size)
	if _, readErr := io.ReadFull(conn, buf); readErr != nil {
		if ne, isNetErr := readErr.(net.Error); isNetErr && ne.Timeout() {
			return nil, false, nil
		}
		return nil, false, readErr
	}
	return buf, true, nil
}

// Ping sends a 4-byte health-check payload and waits for the round
// trip to complete within config.HealthCheckRoundTripLimit (§6 "Health
// check every 25 cycles sends a 4-byte ping; round-trip must complete
// under 500 ms").
func (e *Endpoint) Ping() error {
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("netlink: %s not connected", e.addr)
	}

	deadline := time.Now().Add(config.HealthCheckRoundTripLimit)
	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}
	defer conn.SetDeadline(time.Time{})

	var ping [4]byte
	binary.LittleEndian.PutUint32(ping[:], 0xA5A5A5A5)
	if _, err := conn.Write(ping[:]); err != nil {
		return fmt.Errorf("netlink: %s ping write: %w", e.addr, err)
	}

	var pong [4]byte
	if _, err := conn.Read(pong[:]); err != nil {
		return fmt.Errorf("netlink: %s ping read: %w", e.addr, err)
	}
	return nil
}
