package controller

import (
	tea "github.com/charmbracelet/bubbletea"

	"orisa.dev/pkg/orisa/internal/domain"
	m "orisa.dev/pkg/orisa/internal/model"
)

// Messages posted onto the UI loop by background components. They carry
// values only; the model applies them.
type (
	treeCollectedMsg struct {
		snapshot m.TreeSnapshot
	}

	testsScheduledMsg struct {
		nodeIDs m.ScheduledTests
	}

	testOutcomeMsg struct {
		outcome m.TestOutcome
	}

	sessionUpdateMsg struct {
		update domain.Update
	}

	runStartedMsg struct {
		seq     int
		index   domain.NodeIndex
		session *domain.RunSession
		err     error
	}
)

// waitForEvent blocks on sub and hands the next message to the UI loop. The
// model re-arms it after every background message.
func waitForEvent(sub <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}
