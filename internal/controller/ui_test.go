package controller

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"orisa.dev/pkg/orisa/internal/domain"
)

func TestRunNotification(t *testing.T) {
	tests := []struct {
		code     int
		message  string
		severity Severity
	}{
		{domain.ExitOK, "PASSED test_one", SeverityInfo},
		{domain.ExitTestsFailed, "FAILED test_one", SeverityError},
		{domain.ExitInterrupted, "INTERRUPTED test_one", SeverityError},
		{domain.ExitInternalError, "INTERNAL ERROR test_one", SeverityError},
		{domain.ExitUsageError, "USAGE ERROR test_one", SeverityError},
		{domain.ExitNoTestsCollected, "NO TESTS COLLECTED test_one", SeverityError},
		{domain.ExitTerminated, "CANCELLED test_one", SeverityError},
		{-9, "KILLED BY SIGNAL 9 test_one", SeverityError},
		{42, "UNKNOWN EXIT CODE 42 test_one", SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			got := RunNotification(domain.ClassifyExit(tt.code), "test_one")

			assert.Equal(t, tt.message, got.Message)
			assert.Equal(t, tt.severity, got.Severity)
		})
	}
}

func TestClearRunsNotification(t *testing.T) {
	assert.Equal(t, "No test runs to clear.", ClearRunsNotification(0).Message)
	assert.Equal(t, "Cleared all test runs. 3 in total.", ClearRunsNotification(3).Message)
	assert.Equal(t, SeverityInfo, ClearRunsNotification(3).Severity)
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "information", SeverityInfo.String())
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "unknown", Severity(9).String())
}

func TestIsTTY(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
}

func TestTreeRows(t *testing.T) {
	tree := buildTree(idOne, idTwo, idFree)

	t.Run("all expanded", func(t *testing.T) {
		rows := treeRows(tree, nil)

		var rendered []string
		for _, row := range rows {
			rendered = append(rendered, row.prefix+tree.Node(row.index).Name)
		}

		assert.Equal(t, []string{
			"pkg",
			"├── test_a.py",
			"│   └── TestX",
			"│       ├── test_one",
			"│       └── test_two",
			"└── test_b.py",
			"    └── test_free",
		}, rendered)
	})

	t.Run("collapsed node hides its subtree", func(t *testing.T) {
		collapsed := map[domain.NodeIndex]bool{nodeByName(tree, "test_a.py"): true}

		rows := treeRows(tree, collapsed)

		assert.Len(t, rows, 4)
		assert.Equal(t, "test_b.py", tree.Node(rows[2].index).Name)
	})
}
