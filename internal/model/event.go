package model

import "fmt"

// EventType identifies the payload carried by an Event.
type EventType string

const (
	// EventTestsCollected carries the full collected tree (TreeSnapshot).
	EventTestsCollected EventType = "TestsCollected"
	// EventTestsScheduled carries the node ids selected for a run (ScheduledTests).
	EventTestsScheduled EventType = "TestsScheduled"
	// EventTestOutcome carries one finished test (TestOutcome).
	EventTestOutcome EventType = "TestOutcome"
	// EventReport carries the aggregate session report (Report).
	EventReport EventType = "Report"
)

// EventTypes lists every recognized event type.
var EventTypes = []EventType{
	EventTestsCollected,
	EventTestsScheduled,
	EventTestOutcome,
	EventReport,
}

// Valid reports whether t is a recognized event type.
func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}

	return false
}

// ParseEventType converts s into a recognized EventType.
func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown event type %q", s)
	}

	return t, nil
}

// Payload is implemented by every event data variant.
type Payload interface {
	EventType() EventType
}

// Event is a single message pushed by the runner process.
type Event struct {
	Type EventType
	Data Payload
}

// NewEvent wraps payload into an Event of the matching type.
func NewEvent(payload Payload) Event {
	return Event{Type: payload.EventType(), Data: payload}
}

// ScheduledTests is the payload of a TestsScheduled event.
type ScheduledTests []string

// EventType implements Payload.
func (ScheduledTests) EventType() EventType { return EventTestsScheduled }
