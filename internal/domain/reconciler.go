package domain

import (
	"fmt"

	m "orisa.dev/pkg/orisa/internal/model"
)

// Mark is the status decoration shown next to a node name.
type Mark int

const (
	MarkNone Mark = iota
	MarkPending
	MarkPassed
	MarkFailed
	MarkSkipped
	MarkXFailed
)

// Icon returns the glyph rendered for the mark.
func (mk Mark) Icon() string {
	switch mk {
	case MarkPending:
		return "⧗"
	case MarkPassed:
		return "●"
	case MarkFailed:
		return "✖"
	case MarkSkipped:
		return "-"
	case MarkXFailed:
		return "x"
	default:
		return ""
	}
}

// MarkForStatus maps a test status to its decoration.
func MarkForStatus(status m.Status) Mark {
	switch status {
	case m.StatusPassed:
		return MarkPassed
	case m.StatusFailed:
		return MarkFailed
	case m.StatusSkipped:
		return MarkSkipped
	case m.StatusXFailed:
		return MarkXFailed
	case m.StatusRunning:
		return MarkPending
	default:
		return MarkNone
	}
}

// Decoration is the display state layered on top of a node's bare name.
type Decoration struct {
	Mark        Mark
	Duration    float64
	HasDuration bool
}

// TreeLabelReconciler keeps per node decorations in line with scheduled,
// outcome and completion events. Whatever is applied last wins.
//
// It is not safe for concurrent use; the UI loop owns it.
type TreeLabelReconciler struct {
	tree        *TestTree
	decorations []Decoration
}

// NewTreeLabelReconciler creates a reconciler for tree with every node bare.
func NewTreeLabelReconciler(tree *TestTree) *TreeLabelReconciler {
	r := &TreeLabelReconciler{}
	r.SetTree(tree)

	return r
}

// SetTree swaps the tree and clears every decoration.
func (r *TreeLabelReconciler) SetTree(tree *TestTree) {
	if tree == nil {
		tree = NewTestTree()
	}

	r.tree = tree
	r.decorations = make([]Decoration, tree.Len())
}

// Tree returns the decorated tree.
func (r *TreeLabelReconciler) Tree() *TestTree {
	return r.tree
}

// BeginRun marks idx and its descendants pending.
func (r *TreeLabelReconciler) BeginRun(idx NodeIndex) {
	if !r.tree.Valid(idx) {
		return
	}

	for _, i := range r.tree.Subtree(idx) {
		r.decorations[i] = Decoration{Mark: MarkPending}
	}
}

// MarkScheduled marks every node carrying one of nodeIDs, and its
// descendants, pending. It returns the number of nodes touched.
func (r *TreeLabelReconciler) MarkScheduled(nodeIDs []string) int {
	touched := 0

	for _, id := range nodeIDs {
		for _, match := range r.tree.FindByNodeID(id) {
			for _, i := range r.tree.Subtree(match) {
				r.decorations[i] = Decoration{Mark: MarkPending}
				touched++
			}
		}
	}

	return touched
}

// ApplyOutcome decorates the nodes carrying outcome.NodeID with the outcome's
// status and duration. It returns false when no node matches.
func (r *TreeLabelReconciler) ApplyOutcome(outcome m.TestOutcome) bool {
	matches := r.tree.FindByNodeID(outcome.NodeID)

	for _, i := range matches {
		decoration := Decoration{Mark: MarkForStatus(outcome.Status)}
		if outcome.Status.IsTerminal() {
			decoration.Duration = outcome.Duration
			decoration.HasDuration = true
		}

		r.decorations[i] = decoration
	}

	return len(matches) > 0
}

// ApplyResults recomputes the decoration of idx and its descendants from the
// final per node id outcome map. Nodes missing from results become bare.
func (r *TreeLabelReconciler) ApplyResults(idx NodeIndex, results map[string]m.NodeResult) {
	if !r.tree.Valid(idx) {
		return
	}

	for _, i := range r.tree.Subtree(idx) {
		result, ok := results[r.tree.Node(i).NodeID]
		if !ok {
			r.decorations[i] = Decoration{}
			continue
		}

		r.decorations[i] = Decoration{
			Mark:        MarkForStatus(result.Status),
			Duration:    result.Duration,
			HasDuration: result.Status.IsTerminal(),
		}
	}
}

// Reset clears the decorations of idx and its descendants.
func (r *TreeLabelReconciler) Reset(idx NodeIndex) {
	if !r.tree.Valid(idx) {
		return
	}

	for _, i := range r.tree.Subtree(idx) {
		r.decorations[i] = Decoration{}
	}
}

// ResetAll clears every decoration.
func (r *TreeLabelReconciler) ResetAll() {
	clear(r.decorations)
}

// Decoration returns the decoration of idx.
func (r *TreeLabelReconciler) Decoration(idx NodeIndex) Decoration {
	if !r.tree.Valid(idx) {
		return Decoration{}
	}

	return r.decorations[idx]
}

// Label renders the node name with its decoration, e.g. "test_one ● (0.34s)".
func (r *TreeLabelReconciler) Label(idx NodeIndex) string {
	name := r.tree.Node(idx).Name
	decoration := r.decorations[idx]

	if decoration.Mark == MarkNone {
		return name
	}

	label := name + " " + decoration.Mark.Icon()
	if decoration.HasDuration {
		label += fmt.Sprintf(" (%.2fs)", decoration.Duration)
	}

	return label
}
