// Package controller provides the user facing surfaces of orisa: the
// interactive terminal UI and the plain output used by headless commands.
package controller

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"orisa.dev/pkg/orisa/internal/domain"
	m "orisa.dev/pkg/orisa/internal/model"
)

// UI displays trees, run output and reports for headless commands.
type UI interface {
	DisplayTree(ctx context.Context, labels *domain.TreeLabelReconciler) error
	DisplayLines(ctx context.Context, lines ...string)
	DisplayNotification(ctx context.Context, notification Notification)
	DisplayReport(ctx context.Context, report m.Report) error
}

// Severity grades a notification.
type Severity int

// Available Severity values.
const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "information"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is a short message about something that just happened.
type Notification struct {
	Message  string
	Severity Severity
}

// RunNotification describes how the run of nodeName ended, e.g.
// "PASSED test_one". Everything but a pass is reported as an error.
func RunNotification(classification domain.Classification, nodeName string) Notification {
	severity := SeverityInfo
	if classification.IsError() {
		severity = SeverityError
	}

	return Notification{
		Message:  fmt.Sprintf("%s %s", classification.Label, nodeName),
		Severity: severity,
	}
}

// ClearRunsNotification reports how many runs were cleared.
func ClearRunsNotification(cleared uint64) Notification {
	if cleared == 0 {
		return Notification{Message: "No test runs to clear.", Severity: SeverityInfo}
	}

	return Notification{
		Message:  fmt.Sprintf("Cleared all test runs. %d in total.", cleared),
		Severity: SeverityInfo,
	}
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}

// Box drawing connectors used to render the test tree.
const (
	treeBranch     = "├── "
	treeLastBranch = "└── "
	treeContinue   = "│   "
	treeIndent     = "    "
)

type treeRow struct {
	index  domain.NodeIndex
	prefix string
}

// treeRows lists the visible nodes of tree in display order with their
// connector prefix. Children of collapsed nodes are skipped.
func treeRows(tree *domain.TestTree, collapsed map[domain.NodeIndex]bool) []treeRow {
	var rows []treeRow

	var visit func(idx domain.NodeIndex, indent, connector string)

	visit = func(idx domain.NodeIndex, indent, connector string) {
		rows = append(rows, treeRow{index: idx, prefix: indent + connector})

		if collapsed[idx] {
			return
		}

		childIndent := indent

		switch connector {
		case treeBranch:
			childIndent += treeContinue
		case treeLastBranch:
			childIndent += treeIndent
		}

		children := tree.Children(idx)
		for i, child := range children {
			next := treeBranch
			if i == len(children)-1 {
				next = treeLastBranch
			}

			visit(child, childIndent, next)
		}
	}

	for _, root := range tree.Roots() {
		visit(root, "", "")
	}

	return rows
}
