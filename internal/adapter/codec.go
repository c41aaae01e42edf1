package adapter

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	m "orisa.dev/pkg/orisa/internal/model"
	"orisa.dev/pkg/orisa/internal/schema"
)

// EventCodec converts events to and from their wire form: one self-contained
// JSON object `{"type": ..., "data": ...}` with no framing around it.
type EventCodec interface {
	Encode(event m.Event) ([]byte, error)
	// Decode fails with *DecodeError unless data holds exactly one valid event.
	Decode(data []byte) (m.Event, error)
}

type jsonEventCodec struct{}

// NewJSONEventCodec returns the JSON implementation of EventCodec.
func NewJSONEventCodec() EventCodec {
	return jsonEventCodec{}
}

type envelope struct {
	Type m.EventType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode implements EventCodec. It rejects every event Decode would reject,
// so a sent event is never retried forever by the dispatcher.
func (jsonEventCodec) Encode(event m.Event) ([]byte, error) {
	if event.Data == nil {
		return nil, fmt.Errorf("event %q has no data", event.Type)
	}

	if !event.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", event.Type)
	}

	if event.Data.EventType() != event.Type {
		return nil, fmt.Errorf("event type %q does not match %T payload", event.Type, event.Data)
	}

	payload := event.Data
	if ids, ok := payload.(m.ScheduledTests); ok && ids == nil {
		payload = m.ScheduledTests{}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", event.Type, err)
	}

	encoded, err := json.Marshal(envelope{Type: event.Type, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}

	if err := schema.ValidateEvent(encoded); err != nil {
		return nil, fmt.Errorf("invalid %s event: %w", event.Type, err)
	}

	return encoded, nil
}

// Decode implements EventCodec.
func (jsonEventCodec) Decode(data []byte) (m.Event, error) {
	if !json.Valid(data) {
		return m.Event{}, &DecodeError{Reason: "not exactly one JSON value"}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return m.Event{}, &DecodeError{Reason: "malformed envelope", Err: err}
	}

	eventType, err := m.ParseEventType(string(env.Type))
	if err != nil {
		return m.Event{}, &DecodeError{Reason: "unrecognized type", Err: err}
	}

	if err := schema.ValidateEvent(data); err != nil {
		return m.Event{}, &DecodeError{Reason: "schema mismatch", Err: err}
	}

	payload, err := decodePayload(eventType, env.Data)
	if err != nil {
		return m.Event{}, &DecodeError{Reason: fmt.Sprintf("malformed %s data", eventType), Err: err}
	}

	return m.Event{Type: eventType, Data: payload}, nil
}

func decodePayload(eventType m.EventType, data json.RawMessage) (m.Payload, error) {
	switch eventType {
	case m.EventTestsCollected:
		var tree m.TreeSnapshot
		err := json.Unmarshal(data, &tree)

		return tree, err
	case m.EventTestsScheduled:
		var ids m.ScheduledTests
		err := json.Unmarshal(data, &ids)

		return ids, err
	case m.EventTestOutcome:
		var outcome m.TestOutcome
		err := json.Unmarshal(data, &outcome)

		return outcome, err
	case m.EventReport:
		var report m.Report
		err := json.Unmarshal(data, &report)

		return report, err
	}

	return nil, errors.New("no payload decoder")
}
