package controller

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/acarl005/stripansi"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"orisa.dev/pkg/orisa/internal/domain"
	m "orisa.dev/pkg/orisa/internal/model"
)

// SimpleUI implements UI by printing to the command's output.
type SimpleUI struct {
	cmd *cobra.Command
	// plain strips ANSI escapes from runner output.
	plain bool
}

// NewSimpleUI creates a new SimpleUI. Escape sequences in runner output are
// kept only when the output is a terminal.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd, plain: !IsTTY(cmd.OutOrStdout())}
}

// DisplayTree prints the decorated test tree.
func (s *SimpleUI) DisplayTree(ctx context.Context, labels *domain.TreeLabelReconciler) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tree := labels.Tree()
	if tree.Len() == 0 {
		s.printf("No tests collected\n")
		return nil
	}

	for _, row := range treeRows(tree, nil) {
		s.printf("%s%s\n", row.prefix, labels.Label(row.index))
	}

	s.printf("\n%d test(s) collected\n", tree.Total())

	return nil
}

// DisplayLines prints runner output lines.
func (s *SimpleUI) DisplayLines(ctx context.Context, lines ...string) {
	if err := ctx.Err(); err != nil {
		return
	}

	for _, line := range lines {
		if s.plain {
			line = stripansi.Strip(line)
		}

		s.printf("%s\n", line)
	}
}

// DisplayNotification prints a notification.
func (s *SimpleUI) DisplayNotification(ctx context.Context, notification Notification) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("[%s] %s\n", notification.Severity, notification.Message)
}

// DisplayReport prints the passed tests table and the details of every
// failed test.
func (s *SimpleUI) DisplayReport(ctx context.Context, report m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s\n", summarizeReport(report))

	if len(report.Passed) > 0 {
		s.printf("\n%s", renderPassedTable(report))
	}

	for _, failed := range report.Failed {
		s.printf("\n%s\n", failureHeader(failed.NodeID))

		details := failed.LongTraceback + failed.CapturedStderr + failed.CapturedLog
		if s.plain {
			details = stripansi.Strip(details)
		}

		s.printf("%s\n", strings.TrimRight(details, "\n"))
	}

	return nil
}

func summarizeReport(report m.Report) string {
	parts := []string{fmt.Sprintf("%d tests", report.Total)}

	counts := []struct {
		n     int
		label string
	}{
		{len(report.Passed), "passed"},
		{len(report.Failed), "failed"},
		{len(report.Skipped), "skipped"},
		{len(report.XFailed), "xfailed"},
	}

	for _, c := range counts {
		if c.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c.n, c.label))
		}
	}

	return fmt.Sprintf("%s in %.2fs", strings.Join(parts, ", "), report.TotalDuration)
}

func renderPassedTable(report m.Report) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Test", "Setup", "Call", "Teardown", "Fixtures"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
	})

	passed := append([]m.TestOutcome(nil), report.Passed...)
	sort.SliceStable(passed, func(i, j int) bool {
		return passed[i].NodeID < passed[j].NodeID
	})

	for _, outcome := range passed {
		table.Append([]string{
			outcome.NodeID,
			formatSeconds(report.SetupDurations[outcome.NodeID]),
			formatSeconds(outcome.Duration),
			formatSeconds(report.TeardownDurations[outcome.NodeID]),
			formatFixtures(outcome.FixturesUsed),
		})
	}

	table.Render()

	return tableBuffer.String()
}

func failureHeader(nodeID string) string {
	title := "FAILED " + nodeID
	return title + "\n" + strings.Repeat("─", len([]rune(title)))
}

func formatSeconds(seconds float64) string {
	return fmt.Sprintf("%.2fs", seconds)
}

func formatFixtures(fixtures []m.Fixture) string {
	names := make([]string, 0, len(fixtures))

	for _, fixture := range fixtures {
		if fixture.Scope != "" && fixture.Scope != "function" {
			names = append(names, fmt.Sprintf("%s (%s)", fixture.Name, fixture.Scope))
			continue
		}

		names = append(names, fixture.Name)
	}

	return strings.Join(names, ", ")
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
