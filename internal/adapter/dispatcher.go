package adapter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"orisa.dev/pkg/orisa/internal/metrics"
	m "orisa.dev/pkg/orisa/internal/model"
)

const (
	// DefaultHost is the loopback address the dispatcher listens on.
	DefaultHost = "127.0.0.1"
	// DefaultPort is the fixed port runner processes push events to.
	DefaultPort = 1337

	readSize = 1024
)

// EventHandler consumes the payload of one dispatched event. It runs on the
// connection's goroutine and must not block for long.
type EventHandler func(payload m.Payload)

// EventDispatcher is the local socket server that receives events pushed by
// the runner process.
//
// Every accepted connection accumulates bytes into its own buffer and tries
// to decode the whole buffer after each read. A decode failure is not an
// error, the handler just keeps reading. As a consequence two events written
// on one connection before the dispatcher reads them are never decoded: the
// runner is expected to open one connection per event.
type EventDispatcher interface {
	// Start binds host:port and serves in the background until Stop.
	// It fails with *BindError when the address cannot be bound.
	Start(host string, port int) error
	// Addr returns the bound address, or "" before Start.
	Addr() string
	// RegisterHandler replaces any handler previously registered for eventType.
	RegisterHandler(eventType m.EventType, handler EventHandler)
	// LastValue returns the latest payload of an unhandled event type.
	LastValue(eventType m.EventType) (m.Payload, bool)
	// DiscardLastValue forgets the retained payload for eventType.
	DiscardLastValue(eventType m.EventType)
	// Stop closes the listener and every open connection, then waits for all
	// connection handlers to return.
	Stop() error
}

type eventDispatcher struct {
	codec EventCodec

	mu       sync.Mutex
	handlers map[m.EventType]EventHandler
	last     map[m.EventType]m.Payload

	connMu   sync.Mutex
	conns    map[net.Conn]struct{}
	stopping bool

	listener net.Listener
	group    errgroup.Group
	quit     chan struct{}
	stopOnce sync.Once
}

// NewEventDispatcher creates a dispatcher decoding events with codec.
func NewEventDispatcher(codec EventCodec) EventDispatcher {
	return &eventDispatcher{
		codec:    codec,
		handlers: make(map[m.EventType]EventHandler),
		last:     make(map[m.EventType]m.Payload),
		conns:    make(map[net.Conn]struct{}),
		quit:     make(chan struct{}),
	}
}

// Start implements EventDispatcher.
func (d *eventDispatcher) Start(host string, port int) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	d.connMu.Lock()
	defer d.connMu.Unlock()

	if d.stopping {
		return errors.New("event dispatcher already stopped")
	}

	if d.listener != nil {
		return fmt.Errorf("event dispatcher already listening on %s", d.listener.Addr())
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		slog.Error("Failed to bind event dispatcher", "addr", addr, "error", err)
		return &BindError{Addr: addr, Err: err}
	}

	d.listener = listener

	slog.Info("Event dispatcher listening", "addr", listener.Addr().String())

	d.group.Go(d.acceptLoop)

	return nil
}

// Addr implements EventDispatcher.
func (d *eventDispatcher) Addr() string {
	d.connMu.Lock()
	defer d.connMu.Unlock()

	if d.listener == nil {
		return ""
	}

	return d.listener.Addr().String()
}

// RegisterHandler implements EventDispatcher.
func (d *eventDispatcher) RegisterHandler(eventType m.EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, replaced := d.handlers[eventType]; replaced {
		slog.Debug("Replacing event handler", "type", eventType)
	}

	d.handlers[eventType] = handler
}

// LastValue implements EventDispatcher.
func (d *eventDispatcher) LastValue(eventType m.EventType) (m.Payload, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	payload, ok := d.last[eventType]

	return payload, ok
}

// DiscardLastValue implements EventDispatcher.
func (d *eventDispatcher) DiscardLastValue(eventType m.EventType) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.last, eventType)
}

// Stop implements EventDispatcher.
func (d *eventDispatcher) Stop() error {
	d.stopOnce.Do(func() {
		close(d.quit)

		d.connMu.Lock()
		d.stopping = true

		if d.listener != nil {
			if err := d.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				slog.Warn("Failed to close dispatcher listener", "error", err)
			}
		}

		for conn := range d.conns {
			_ = conn.Close()
		}
		d.connMu.Unlock()
	})

	err := d.group.Wait()

	slog.Debug("Event dispatcher stopped")

	return err
}

func (d *eventDispatcher) acceptLoop() error {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.quit:
				return nil
			default:
			}

			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			slog.Warn("Failed to accept connection", "error", err)

			continue
		}

		if !d.track(conn) {
			_ = conn.Close()
			return nil
		}

		metrics.RecordConnection()

		d.group.Go(func() error {
			defer d.untrack(conn)

			d.handleConn(conn)

			return nil
		})
	}
}

func (d *eventDispatcher) track(conn net.Conn) bool {
	d.connMu.Lock()
	defer d.connMu.Unlock()

	if d.stopping {
		return false
	}

	d.conns[conn] = struct{}{}

	return true
}

func (d *eventDispatcher) untrack(conn net.Conn) {
	d.connMu.Lock()
	delete(d.conns, conn)
	d.connMu.Unlock()

	_ = conn.Close()
}

// handleConn reads conn until it is closed, decoding the whole accumulated
// buffer after every read.
func (d *eventDispatcher) handleConn(conn net.Conn) {
	var buffer []byte

	chunk := make([]byte, readSize)

	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			buffer = append(buffer, chunk[:n]...)

			event, decodeErr := d.codec.Decode(buffer)
			if decodeErr == nil {
				d.dispatch(event)

				buffer = nil
			} else {
				metrics.RecordFramingRetry()
				slog.Debug("Buffered bytes do not decode yet", "bytes", len(buffer), "error", decodeErr)
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				slog.Debug("Connection ended", "remote", conn.RemoteAddr(), "error", err)
			}

			if len(buffer) > 0 {
				slog.Warn("Discarding undecodable event bytes", "remote", conn.RemoteAddr(), "bytes", len(buffer))
			}

			return
		}
	}
}

func (d *eventDispatcher) dispatch(event m.Event) {
	d.mu.Lock()

	handler, handled := d.handlers[event.Type]
	if !handled {
		d.last[event.Type] = event.Data
	}

	d.mu.Unlock()

	if !handled {
		metrics.RecordEvent(string(event.Type), metrics.RouteStored)
		slog.Debug("Stored event", "type", event.Type)

		return
	}

	metrics.RecordEvent(string(event.Type), metrics.RouteHandler)
	slog.Debug("Dispatching event", "type", event.Type)

	handler(event.Data)
}
