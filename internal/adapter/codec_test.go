package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "orisa.dev/pkg/orisa/internal/model"
)

func TestJSONEventCodec_Encode(t *testing.T) {
	codec := NewJSONEventCodec()

	t.Run("outcome", func(t *testing.T) {
		data, err := codec.Encode(m.NewEvent(m.TestOutcome{NodeID: "t.py::a", Status: m.StatusPassed, Duration: 0.5}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"TestOutcome","data":{"nodeId":"t.py::a","status":"passed","duration":0.5}}`, string(data))
	})

	t.Run("nil scheduled list encodes as empty array", func(t *testing.T) {
		data, err := codec.Encode(m.NewEvent(m.ScheduledTests(nil)))
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"TestsScheduled","data":[]}`, string(data))
	})

	t.Run("mismatched type", func(t *testing.T) {
		_, err := codec.Encode(m.Event{Type: m.EventReport, Data: m.ScheduledTests{"a"}})
		require.Error(t, err)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := codec.Encode(m.Event{Type: "TREE_COLLECTION", Data: m.ScheduledTests{"a"}})
		require.Error(t, err)
	})

	t.Run("missing data", func(t *testing.T) {
		_, err := codec.Encode(m.Event{Type: m.EventReport})
		require.Error(t, err)
	})

	rejected := map[string]m.Payload{
		"outcome without node id": m.TestOutcome{Status: m.StatusPassed},
		"outcome without status":  m.TestOutcome{NodeID: "t.py::a"},
		"root without name": m.TreeSnapshot{
			Roots: []m.NodeSnapshot{{Kind: m.KindDirectory}},
		},
		"node without kind": m.TreeSnapshot{
			Roots: []m.NodeSnapshot{{Name: "tests", Kind: m.KindDirectory, Children: []m.NodeSnapshot{{Name: "test_a.py"}}}},
		},
		"negative total": m.TreeSnapshot{Meta: m.TreeMeta{Total: -1}},
	}

	for name, payload := range rejected {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Encode(m.NewEvent(payload))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid "+string(payload.EventType())+" event")
		})
	}
}

func TestJSONEventCodec_RoundTrip(t *testing.T) {
	codec := NewJSONEventCodec()

	events := map[string]m.Event{
		"collected": m.NewEvent(m.TreeSnapshot{
			Roots: []m.NodeSnapshot{{
				Name: "tests",
				Path: "tests",
				Kind: m.KindDirectory,
				Children: []m.NodeSnapshot{{
					Name:       "test_a.py",
					Path:       "tests/test_a.py",
					Kind:       m.KindModule,
					ParentKind: m.KindDirectory,
					ParentName: "tests",
					NodeID:     "tests/test_a.py",
				}},
			}},
			Meta: m.TreeMeta{Total: 1},
		}),
		"scheduled": m.NewEvent(m.ScheduledTests{"t.py::a", "t.py::b"}),
		"outcome": m.NewEvent(m.TestOutcome{
			NodeID:       "t.py::a",
			Status:       m.StatusSkipped,
			SkipReason:   "no db",
			FixturesUsed: []m.Fixture{{Name: "tmp_path", Scope: "function"}},
		}),
		"report": m.NewEvent(m.Report{
			Passed:         []m.TestOutcome{{NodeID: "t.py::a", Status: m.StatusPassed, Duration: 0.1}},
			Failed:         []m.TestOutcome{{NodeID: "t.py::b", Status: m.StatusFailed, Duration: 0.2}},
			SetupDurations: map[string]float64{"t.py::a": 0.01},
			TotalDuration:  0.3,
			ExitStatus:     1,
			Total:          2,
		}),
	}

	for name, event := range events {
		t.Run(name, func(t *testing.T) {
			data, err := codec.Encode(event)
			require.NoError(t, err)

			decoded, err := codec.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, event, decoded)
		})
	}
}

func TestJSONEventCodec_Decode(t *testing.T) {
	codec := NewJSONEventCodec()

	t.Run("surrounding whitespace is accepted", func(t *testing.T) {
		event, err := codec.Decode([]byte("  {\"type\":\"TestsScheduled\",\"data\":[\"x\"]}\n"))
		require.NoError(t, err)
		assert.Equal(t, m.ScheduledTests{"x"}, event.Data)
	})

	t.Run("null duration decodes as zero", func(t *testing.T) {
		event, err := codec.Decode([]byte(`{"type":"TestOutcome","data":{"nodeId":"a","status":"running","duration":null}}`))
		require.NoError(t, err)

		outcome, ok := event.Data.(m.TestOutcome)
		require.True(t, ok)
		assert.Equal(t, m.StatusRunning, outcome.Status)
		assert.Zero(t, outcome.Duration)
	})

	invalid := map[string]string{
		"empty":              ``,
		"truncated":          `{"type":"TestOutcome","data":{"nodeId":"a"`,
		"two values":         `{"type":"TestsScheduled","data":[]}{"type":"TestsScheduled","data":[]}`,
		"unknown type":       `{"type":"TREE_COLLECTION","data":{}}`,
		"missing type":       `{"data":[]}`,
		"not an object":      `["TestsScheduled"]`,
		"bad status":         `{"type":"TestOutcome","data":{"nodeId":"a","status":"error"}}`,
		"scheduled object":   `{"type":"TestsScheduled","data":{"ids":[]}}`,
		"tree without roots": `{"type":"TestsCollected","data":{"meta":{"total":0}}}`,
	}

	for name, raw := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Decode([]byte(raw))
			require.Error(t, err)

			var decodeErr *DecodeError
			assert.ErrorAs(t, err, &decodeErr)
		})
	}
}
