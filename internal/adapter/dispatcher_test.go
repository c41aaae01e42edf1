package adapter

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "orisa.dev/pkg/orisa/internal/model"
)

func startDispatcher(t *testing.T) (EventDispatcher, string, int) {
	t.Helper()

	dispatcher := NewEventDispatcher(NewJSONEventCodec())
	require.NoError(t, dispatcher.Start("127.0.0.1", 0))
	t.Cleanup(func() { _ = dispatcher.Stop() })

	host, portStr, err := net.SplitHostPort(dispatcher.Addr())
	require.NoError(t, err)

	var port int
	_, err = fmt.Sscanf(portStr, "%d", &port)
	require.NoError(t, err)

	return dispatcher, host, port
}

func encode(t *testing.T, payload m.Payload) []byte {
	t.Helper()

	data, err := NewJSONEventCodec().Encode(m.NewEvent(payload))
	require.NoError(t, err)

	return data
}

// serve runs handleConn on one end of an in-memory pipe and returns the
// other end plus a channel closed once the handler returned.
func serve(t *testing.T, dispatcher EventDispatcher) (net.Conn, <-chan struct{}) {
	t.Helper()

	server, client := net.Pipe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer server.Close()

		dispatcher.(*eventDispatcher).handleConn(server)
	}()

	return client, done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection handler did not return")
	}
}

func TestEventDispatcher_HandlerReceivesOutcome(t *testing.T) {
	dispatcher, host, port := startDispatcher(t)

	received := make(chan m.Payload, 4)
	dispatcher.RegisterHandler(m.EventTestOutcome, func(payload m.Payload) {
		received <- payload
	})

	sender := NewTCPEventSender(NewJSONEventCodec())
	raw := `{"type":"TestOutcome","data":{"nodeId":"pkg/test_a.py::TestX::test_one","status":"passed","duration":0.34}}`

	conn, err := net.Dial("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	require.NoError(t, err)
	_, err = conn.Write([]byte(raw))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	select {
	case payload := <-received:
		assert.Equal(t, m.TestOutcome{
			NodeID:   "pkg/test_a.py::TestX::test_one",
			Status:   m.StatusPassed,
			Duration: 0.34,
		}, payload)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}

	require.NoError(t, dispatcher.Stop())
	assert.Empty(t, received)

	_, ok := dispatcher.LastValue(m.EventTestOutcome)
	assert.False(t, ok)

	err = sender.Send(context.Background(), host, port, m.NewEvent(m.ScheduledTests{"a"}))
	require.Error(t, err)
}

func TestEventDispatcher_LastValue(t *testing.T) {
	dispatcher, host, port := startDispatcher(t)
	sender := NewTCPEventSender(NewJSONEventCodec())
	ctx := context.Background()

	_, ok := dispatcher.LastValue(m.EventReport)
	assert.False(t, ok)

	require.NoError(t, sender.Send(ctx, host, port, m.NewEvent(m.Report{ExitStatus: 1, Total: 1})))
	require.Eventually(t, func() bool {
		value, ok := dispatcher.LastValue(m.EventReport)
		return ok && value.(m.Report).ExitStatus == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sender.Send(ctx, host, port, m.NewEvent(m.Report{ExitStatus: 0, Total: 2})))
	require.Eventually(t, func() bool {
		value, ok := dispatcher.LastValue(m.EventReport)
		return ok && value.(m.Report).Total == 2
	}, 2*time.Second, 10*time.Millisecond)

	dispatcher.DiscardLastValue(m.EventReport)
	_, ok = dispatcher.LastValue(m.EventReport)
	assert.False(t, ok)
}

func TestEventDispatcher_RegisterHandlerStopsRetention(t *testing.T) {
	dispatcher := NewEventDispatcher(NewJSONEventCodec())

	client, done := serve(t, dispatcher)
	_, err := client.Write(encode(t, m.ScheduledTests{"first"}))
	require.NoError(t, err)
	require.NoError(t, client.Close())
	waitDone(t, done)

	value, ok := dispatcher.LastValue(m.EventTestsScheduled)
	require.True(t, ok)
	assert.Equal(t, m.ScheduledTests{"first"}, value)

	var handled []m.Payload

	dispatcher.RegisterHandler(m.EventTestsScheduled, func(payload m.Payload) {
		handled = append(handled, payload)
	})

	client, done = serve(t, dispatcher)
	_, err = client.Write(encode(t, m.ScheduledTests{"second"}))
	require.NoError(t, err)
	require.NoError(t, client.Close())
	waitDone(t, done)

	assert.Equal(t, []m.Payload{m.ScheduledTests{"second"}}, handled)

	value, ok = dispatcher.LastValue(m.EventTestsScheduled)
	require.True(t, ok)
	assert.Equal(t, m.ScheduledTests{"first"}, value)
}

func TestEventDispatcher_RegisterHandlerReplaces(t *testing.T) {
	dispatcher := NewEventDispatcher(NewJSONEventCodec())

	var first, second int

	dispatcher.RegisterHandler(m.EventTestOutcome, func(m.Payload) { first++ })
	dispatcher.RegisterHandler(m.EventTestOutcome, func(m.Payload) { second++ })

	client, done := serve(t, dispatcher)
	_, err := client.Write(encode(t, m.TestOutcome{NodeID: "a", Status: m.StatusFailed}))
	require.NoError(t, err)
	require.NoError(t, client.Close())
	waitDone(t, done)

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestEventDispatcher_Framing(t *testing.T) {
	t.Run("message split across reads is decoded once complete", func(t *testing.T) {
		dispatcher := NewEventDispatcher(NewJSONEventCodec())
		data := encode(t, m.ScheduledTests{"t.py::a", "t.py::b"})

		client, done := serve(t, dispatcher)
		_, err := client.Write(data[:10])
		require.NoError(t, err)

		_, ok := dispatcher.LastValue(m.EventTestsScheduled)
		assert.False(t, ok)

		_, err = client.Write(data[10:])
		require.NoError(t, err)
		require.NoError(t, client.Close())
		waitDone(t, done)

		value, ok := dispatcher.LastValue(m.EventTestsScheduled)
		require.True(t, ok)
		assert.Equal(t, m.ScheduledTests{"t.py::a", "t.py::b"}, value)
	})

	t.Run("message larger than one read", func(t *testing.T) {
		dispatcher := NewEventDispatcher(NewJSONEventCodec())

		report := m.Report{Total: 100}
		for i := range 100 {
			report.Passed = append(report.Passed, m.TestOutcome{
				NodeID: fmt.Sprintf("tests/test_large.py::test_case_%03d", i),
				Status: m.StatusPassed,
			})
		}

		data := encode(t, report)
		require.Greater(t, len(data), readSize)

		client, done := serve(t, dispatcher)
		_, err := client.Write(data)
		require.NoError(t, err)
		require.NoError(t, client.Close())
		waitDone(t, done)

		value, ok := dispatcher.LastValue(m.EventReport)
		require.True(t, ok)
		assert.Len(t, value.(m.Report).Passed, 100)
	})

	t.Run("consecutive messages on one connection", func(t *testing.T) {
		dispatcher := NewEventDispatcher(NewJSONEventCodec())

		var handled []m.Payload

		dispatcher.RegisterHandler(m.EventTestOutcome, func(payload m.Payload) {
			handled = append(handled, payload)
		})

		client, done := serve(t, dispatcher)
		_, err := client.Write(encode(t, m.TestOutcome{NodeID: "a", Status: m.StatusPassed}))
		require.NoError(t, err)
		_, err = client.Write(encode(t, m.TestOutcome{NodeID: "b", Status: m.StatusFailed}))
		require.NoError(t, err)
		require.NoError(t, client.Close())
		waitDone(t, done)

		require.Len(t, handled, 2)
		assert.Equal(t, "a", handled[0].(m.TestOutcome).NodeID)
		assert.Equal(t, "b", handled[1].(m.TestOutcome).NodeID)
	})

	t.Run("coalesced messages are never decoded", func(t *testing.T) {
		dispatcher := NewEventDispatcher(NewJSONEventCodec())

		var handled int

		dispatcher.RegisterHandler(m.EventTestOutcome, func(m.Payload) { handled++ })

		first := encode(t, m.TestOutcome{NodeID: "a", Status: m.StatusPassed})
		second := encode(t, m.TestOutcome{NodeID: "b", Status: m.StatusPassed})
		third := encode(t, m.TestOutcome{NodeID: "c", Status: m.StatusPassed})

		client, done := serve(t, dispatcher)
		_, err := client.Write(append(append([]byte{}, first...), second...))
		require.NoError(t, err)
		_, err = client.Write(third)
		require.NoError(t, err)
		require.NoError(t, client.Close())
		waitDone(t, done)

		assert.Equal(t, 0, handled)
	})

	t.Run("malformed bytes poison the connection", func(t *testing.T) {
		dispatcher := NewEventDispatcher(NewJSONEventCodec())

		client, done := serve(t, dispatcher)
		_, err := client.Write([]byte(`{"type":"TREE_COLLECTION","data":{}}`))
		require.NoError(t, err)
		_, err = client.Write(encode(t, m.ScheduledTests{"a"}))
		require.NoError(t, err)
		require.NoError(t, client.Close())
		waitDone(t, done)

		_, ok := dispatcher.LastValue(m.EventTestsScheduled)
		assert.False(t, ok)
	})
}

func TestEventDispatcher_StartErrors(t *testing.T) {
	t.Run("address in use", func(t *testing.T) {
		_, host, port := startDispatcher(t)

		other := NewEventDispatcher(NewJSONEventCodec())
		err := other.Start(host, port)
		require.Error(t, err)

		var bindErr *BindError
		require.ErrorAs(t, err, &bindErr)
		assert.Equal(t, net.JoinHostPort(host, fmt.Sprint(port)), bindErr.Addr)
		require.NoError(t, other.Stop())
	})

	t.Run("start twice", func(t *testing.T) {
		dispatcher, _, _ := startDispatcher(t)
		require.Error(t, dispatcher.Start("127.0.0.1", 0))
	})

	t.Run("start after stop", func(t *testing.T) {
		dispatcher := NewEventDispatcher(NewJSONEventCodec())
		require.NoError(t, dispatcher.Stop())
		require.Error(t, dispatcher.Start("127.0.0.1", 0))
	})
}

func TestEventDispatcher_StopJoinsOpenConnections(t *testing.T) {
	dispatcher, host, port := startDispatcher(t)

	conn, err := net.Dial("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"type":"Report","data":`))
	require.NoError(t, err)

	stopped := make(chan error, 1)

	go func() { stopped <- dispatcher.Stop() }()

	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while a connection was open")
	}

	_, ok := dispatcher.LastValue(m.EventReport)
	assert.False(t, ok)
	assert.NoError(t, dispatcher.Stop())
}
