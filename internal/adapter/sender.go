package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	m "orisa.dev/pkg/orisa/internal/model"
)

const dialTimeout = time.Second

// EventSender is the one-shot client runner-side hooks use to push events.
type EventSender interface {
	// Send opens a connection, writes one encoded event and closes it.
	// Connection failures are returned as *SendError and are not retried.
	Send(ctx context.Context, host string, port int, event m.Event) error
	// WaitForReady dials host:port until a connection succeeds. It gives up
	// after maxAttempts with an error wrapping ErrServerUnavailable.
	WaitForReady(ctx context.Context, host string, port int, maxAttempts int, retryDelay time.Duration) error
}

type tcpEventSender struct {
	codec  EventCodec
	dialer net.Dialer
}

// NewTCPEventSender creates an EventSender encoding events with codec.
func NewTCPEventSender(codec EventCodec) EventSender {
	return &tcpEventSender{
		codec:  codec,
		dialer: net.Dialer{Timeout: dialTimeout},
	}
}

// Send implements EventSender.
func (s *tcpEventSender) Send(ctx context.Context, host string, port int, event m.Event) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	data, err := s.codec.Encode(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}

	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &SendError{Addr: addr, Err: err}
	}

	if _, err := conn.Write(data); err != nil {
		_ = conn.Close()
		return &SendError{Addr: addr, Err: err}
	}

	if err := conn.Close(); err != nil {
		return &SendError{Addr: addr, Err: err}
	}

	slog.Debug("Sent event", "type", event.Type, "addr", addr, "bytes", len(data))

	return nil
}

// WaitForReady implements EventSender.
func (s *tcpEventSender) WaitForReady(ctx context.Context, host string, port int, maxAttempts int, retryDelay time.Duration) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	maxAttempts = max(maxAttempts, 1)

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		conn, err := s.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			_ = conn.Close()

			slog.Debug("Event dispatcher is ready", "addr", addr, "attempt", attempt)

			return nil
		}

		lastErr = err

		slog.Debug("Event dispatcher not ready", "addr", addr, "attempt", attempt, "error", err)

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %w", ErrServerUnavailable, addr, ctx.Err())
		case <-time.After(retryDelay):
		}
	}

	return fmt.Errorf("%w: %s after %d attempts: %w", ErrServerUnavailable, addr, maxAttempts, lastErr)
}
