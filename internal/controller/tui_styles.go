package controller

import (
	"github.com/charmbracelet/lipgloss"

	"orisa.dev/pkg/orisa/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	breadcrumbStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	focusedPaneStyle = paneStyle.BorderForeground(lipgloss.Color("62"))

	cursorStyle = lipgloss.NewStyle().Reverse(true)

	connectorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	notificationStyles = map[Severity]lipgloss.Style{
		SeverityInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		SeverityWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		SeverityError:   lipgloss.NewStyle().Foreground(lipgloss.Color("197")),
	}

	markStyles = map[domain.Mark]lipgloss.Style{
		domain.MarkPending: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		domain.MarkPassed:  lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		domain.MarkFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("197")),
		domain.MarkSkipped: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		domain.MarkXFailed: lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
	}
)
