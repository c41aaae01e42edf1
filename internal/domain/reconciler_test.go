package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "orisa.dev/pkg/orisa/internal/model"
)

const (
	idOne  = "pkg/test_a.py::TestX::test_one"
	idTwo  = "pkg/test_a.py::TestX::test_two"
	idFree = "pkg/test_b.py::test_free"
)

func newReconciler(t *testing.T) (*TreeLabelReconciler, map[string]NodeIndex) {
	t.Helper()

	tree := BuildTree(chains(idOne, idTwo, idFree))
	index := map[string]NodeIndex{}

	tree.Walk(func(idx NodeIndex) bool {
		index[tree.Node(idx).Name] = idx
		return true
	})

	return NewTreeLabelReconciler(tree), index
}

func TestTreeLabelReconciler_Scheduled(t *testing.T) {
	r, idx := newReconciler(t)

	touched := r.MarkScheduled([]string{"pkg/test_a.py::TestX", "does/not/exist.py"})
	assert.Equal(t, 3, touched)

	assert.Equal(t, "TestX ⧗", r.Label(idx["TestX"]))
	assert.Equal(t, "test_one ⧗", r.Label(idx["test_one"]))
	assert.Equal(t, "test_two ⧗", r.Label(idx["test_two"]))
	assert.Equal(t, "test_free", r.Label(idx["test_free"]))
	assert.Equal(t, "pkg", r.Label(idx["pkg"]))
}

func TestTreeLabelReconciler_Outcome(t *testing.T) {
	r, idx := newReconciler(t)

	r.BeginRun(idx["pkg"])
	assert.Equal(t, "pkg ⧗", r.Label(idx["pkg"]))

	ok := r.ApplyOutcome(m.TestOutcome{NodeID: idOne, Status: m.StatusPassed, Duration: 0.34})
	require.True(t, ok)
	assert.Equal(t, "test_one ● (0.34s)", r.Label(idx["test_one"]))
	assert.Equal(t, "test_two ⧗", r.Label(idx["test_two"]))
	assert.Equal(t, "TestX ⧗", r.Label(idx["TestX"]))

	r.ApplyOutcome(m.TestOutcome{NodeID: idTwo, Status: m.StatusFailed})
	assert.Equal(t, "test_two ✖ (0.00s)", r.Label(idx["test_two"]))

	r.ApplyOutcome(m.TestOutcome{NodeID: idFree, Status: m.StatusSkipped, SkipReason: "no db"})
	assert.Equal(t, MarkSkipped, r.Decoration(idx["test_free"]).Mark)

	assert.False(t, r.ApplyOutcome(m.TestOutcome{NodeID: "unknown", Status: m.StatusPassed}))
}

func TestTreeLabelReconciler_LaterEventWins(t *testing.T) {
	r, idx := newReconciler(t)

	r.ApplyOutcome(m.TestOutcome{NodeID: idOne, Status: m.StatusPassed, Duration: 0.1})
	r.MarkScheduled([]string{idOne})
	assert.Equal(t, MarkPending, r.Decoration(idx["test_one"]).Mark)

	r.ApplyOutcome(m.TestOutcome{NodeID: idOne, Status: m.StatusFailed, Duration: 0.2})
	assert.Equal(t, Decoration{Mark: MarkFailed, Duration: 0.2, HasDuration: true}, r.Decoration(idx["test_one"]))

	r.ApplyOutcome(m.TestOutcome{NodeID: idOne, Status: m.StatusRunning})
	assert.Equal(t, Decoration{Mark: MarkPending}, r.Decoration(idx["test_one"]))
}

func TestTreeLabelReconciler_ApplyResults(t *testing.T) {
	r, idx := newReconciler(t)

	r.BeginRun(idx["test_a.py"])
	r.ApplyOutcome(m.TestOutcome{NodeID: idTwo, Status: m.StatusFailed, Duration: 1})
	r.ApplyOutcome(m.TestOutcome{NodeID: idFree, Status: m.StatusPassed, Duration: 1})

	report := m.Report{
		Passed: []m.TestOutcome{{NodeID: idOne, Status: m.StatusPassed, Duration: 0.34}},
	}

	r.ApplyResults(idx["test_a.py"], report.Results())

	assert.Equal(t, "test_one ● (0.34s)", r.Label(idx["test_one"]))
	assert.Equal(t, "test_two", r.Label(idx["test_two"]), "absent from the report")
	assert.Equal(t, "TestX", r.Label(idx["TestX"]))
	assert.Equal(t, "test_a.py", r.Label(idx["test_a.py"]))
	assert.Equal(t, "test_free ● (1.00s)", r.Label(idx["test_free"]), "outside the run subtree")
}

func TestTreeLabelReconciler_Reset(t *testing.T) {
	r, idx := newReconciler(t)

	r.BeginRun(idx["pkg"])
	r.Reset(idx["test_b.py"])
	assert.Equal(t, "test_free", r.Label(idx["test_free"]))
	assert.Equal(t, "test_one ⧗", r.Label(idx["test_one"]))

	r.ResetAll()
	r.Tree().Walk(func(i NodeIndex) bool {
		assert.Equal(t, r.Tree().Node(i).Name, r.Label(i))
		return true
	})

	r.BeginRun(NodeIndex(100))
	r.ApplyResults(NoNode, nil)
	assert.Equal(t, Decoration{}, r.Decoration(NodeIndex(100)))
}

func TestTreeLabelReconciler_SetTree(t *testing.T) {
	r, idx := newReconciler(t)
	r.BeginRun(idx["pkg"])

	r.SetTree(BuildTree(chains(idFree)))
	assert.Equal(t, 3, r.Tree().Len())
	assert.Equal(t, Decoration{}, r.Decoration(0))

	r.SetTree(nil)
	assert.Equal(t, 0, r.Tree().Len())
}

func TestMark_Icon(t *testing.T) {
	assert.Equal(t, "●", MarkForStatus(m.StatusPassed).Icon())
	assert.Equal(t, "✖", MarkForStatus(m.StatusFailed).Icon())
	assert.Equal(t, "-", MarkForStatus(m.StatusSkipped).Icon())
	assert.Equal(t, "x", MarkForStatus(m.StatusXFailed).Icon())
	assert.Equal(t, "⧗", MarkForStatus(m.StatusRunning).Icon())
	assert.Empty(t, MarkForStatus("bogus").Icon())
}
