package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"orisa.dev/pkg/orisa/internal/adapter"
	"orisa.dev/pkg/orisa/internal/domain"
	m "orisa.dev/pkg/orisa/internal/model"
	"orisa.dev/pkg/orisa/pkg"
)

const (
	eventBufferSize = 256
	minTreeWidth    = 24
	// The runner is told the log pane width minus this margin.
	logWidthMargin = 10
	minLogWidth    = 20
	// header, status, notification and help lines.
	chromeHeight = 4
	// Used until the first WindowSizeMsg arrives.
	defaultWidth  = 120
	defaultHeight = 32
)

// TUIConfig wires the interactive UI to the dispatcher, the runner and the
// stores it reads and writes.
type TUIConfig struct {
	Output        io.Writer
	Input         io.Reader
	Dispatcher    adapter.EventDispatcher
	Runner        adapter.RunnerAdapter
	Flags         adapter.FlagStore
	History       pkg.FileSpill[m.RunRecord]
	Env           []string
	ReportTimeout time.Duration
}

// TUI is the interactive test explorer. Dispatcher handlers and the run
// orchestrator only post messages; the Bubble Tea loop applies them.
type TUI struct {
	cfg    TUIConfig
	events chan tea.Msg
	done   chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(cfg TUIConfig) *TUI {
	return &TUI{
		cfg:    cfg,
		events: make(chan tea.Msg, eventBufferSize),
		done:   make(chan struct{}),
	}
}

// Run shows the UI until the user quits or ctx is done. The active run, if
// any, is stopped before Run returns.
func (t *TUI) Run(ctx context.Context) error {
	options := []domain.OrchestratorOption{
		domain.WithUpdateFunc(func(update domain.Update) {
			t.post(sessionUpdateMsg{update: update})
		}),
	}
	if t.cfg.ReportTimeout > 0 {
		options = append(options, domain.WithReportTimeout(t.cfg.ReportTimeout))
	}

	orchestrator := domain.NewRunOrchestrator(t.cfg.Runner, t.cfg.Dispatcher, options...)

	defer func() {
		if err := orchestrator.Close(); err != nil {
			slog.Warn("Failed to stop active run", "error", err)
		}
	}()

	t.registerHandlers()

	explorer := newModel(ctx, modelConfig{
		orchestrator: orchestrator,
		flags:        t.cfg.Flags,
		history:      t.cfg.History,
		env:          t.cfg.Env,
		events:       t.events,
	})

	if payload, ok := t.cfg.Dispatcher.LastValue(m.EventTestsCollected); ok {
		if snapshot, ok := payload.(m.TreeSnapshot); ok {
			explorer.setTree(snapshot)
		}
	}

	programOptions := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}
	if t.cfg.Output != nil {
		programOptions = append(programOptions, tea.WithOutput(t.cfg.Output))
	}

	if t.cfg.Input != nil {
		programOptions = append(programOptions, tea.WithInput(t.cfg.Input))
	}

	_, err := tea.NewProgram(explorer, programOptions...).Run()

	close(t.done)

	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			slog.Info("TUI stopped", "reason", ctx.Err())
			return nil
		}

		slog.Error("Failed to run TUI", "error", err)

		return fmt.Errorf("failed to run TUI: %w", err)
	}

	return nil
}

func (t *TUI) registerHandlers() {
	t.cfg.Dispatcher.RegisterHandler(m.EventTestsCollected, func(payload m.Payload) {
		if snapshot, ok := payload.(m.TreeSnapshot); ok {
			t.post(treeCollectedMsg{snapshot: snapshot})
		}
	})

	t.cfg.Dispatcher.RegisterHandler(m.EventTestsScheduled, func(payload m.Payload) {
		if scheduled, ok := payload.(m.ScheduledTests); ok {
			t.post(testsScheduledMsg{nodeIDs: scheduled})
		}
	})

	t.cfg.Dispatcher.RegisterHandler(m.EventTestOutcome, func(payload m.Payload) {
		if outcome, ok := payload.(m.TestOutcome); ok {
			t.post(testOutcomeMsg{outcome: outcome})
		}
	})
}

// post hands msg to the UI loop. Messages posted after the loop ended are
// dropped.
func (t *TUI) post(msg tea.Msg) {
	select {
	case t.events <- msg:
	case <-t.done:
	}
}

type modelConfig struct {
	orchestrator domain.RunOrchestrator
	flags        adapter.FlagStore
	history      pkg.FileSpill[m.RunRecord]
	env          []string
	events       <-chan tea.Msg
}

// model is the Bubble Tea model of the explorer.
type model struct {
	ctx context.Context
	cfg modelConfig

	labels    *domain.TreeLabelReconciler
	collapsed map[domain.NodeIndex]bool
	rows      []treeRow
	cursor    int

	runSeq   int
	pending  bool
	session  *domain.RunSession
	runIndex domain.NodeIndex
	finished string
	archived map[string]bool
	logLines []string

	// historyPos is the record shown from history, -1 for the live run.
	historyPos int
	viewing    *m.RunRecord

	log     viewport.Model
	spinner spinner.Model
	search  textinput.Model

	searching bool
	hits      []domain.SearchHit
	hitPos    int

	notification *Notification
	width        int
	height       int
}

func newModel(ctx context.Context, cfg modelConfig) model {
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search tests"

	tm := model{
		ctx:        ctx,
		cfg:        cfg,
		labels:     domain.NewTreeLabelReconciler(nil),
		collapsed:  make(map[domain.NodeIndex]bool),
		runIndex:   domain.NoNode,
		archived:   make(map[string]bool),
		historyPos: -1,
		log:        viewport.New(0, 0),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		search:     search,
	}

	tm.resize(defaultWidth, defaultHeight)

	return tm
}

func (tm model) Init() tea.Cmd {
	return waitForEvent(tm.cfg.events)
}

func (tm model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		tm.resize(msg.Width, msg.Height)

		return tm, nil

	case tea.KeyMsg:
		return tm.handleKeyPress(msg)

	case spinner.TickMsg:
		if !tm.running() {
			return tm, nil
		}

		var cmd tea.Cmd

		tm.spinner, cmd = tm.spinner.Update(msg)

		return tm, cmd

	case treeCollectedMsg:
		tm.setTree(msg.snapshot)

		return tm, waitForEvent(tm.cfg.events)

	case testsScheduledMsg:
		tm.labels.MarkScheduled(msg.nodeIDs)

		return tm, waitForEvent(tm.cfg.events)

	case testOutcomeMsg:
		if !tm.labels.ApplyOutcome(msg.outcome) {
			slog.Debug("Outcome for unknown node", "nodeId", msg.outcome.NodeID)
		}

		return tm, waitForEvent(tm.cfg.events)

	case sessionUpdateMsg:
		tm.applyUpdate(msg.update)

		return tm, waitForEvent(tm.cfg.events)

	case runStartedMsg:
		tm.runStarted(msg)

		return tm, nil
	}

	return tm, nil
}

//nolint:cyclop // Key handling requires multiple cases for UI navigation
func (tm model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if tm.searching {
		return tm.handleSearchKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return tm, tea.Quit

	case "down", "j":
		tm.moveCursor(1)

	case "up", "k":
		tm.moveCursor(-1)

	case "g", "home":
		tm.cursor = 0

	case "G", "end":
		tm.cursor = max(len(tm.rows)-1, 0)

	case "left", "h":
		tm.collapseSelected()

	case "right", "l":
		tm.expandSelected()

	case "enter", "r":
		return tm, tm.runSelected()

	case "c":
		tm.cancelRun()

	case "ctrl+x":
		tm.clearRuns()

	case "[":
		tm.showHistory(-1)

	case "]":
		tm.showHistory(1)

	case "/":
		tm.searching = true
		tm.search.SetValue("")
		tm.hits = nil

		return tm, tm.search.Focus()

	case "n":
		tm.nextHit()

	case "pgdown", "d":
		tm.log.SetYOffset(tm.log.YOffset + tm.log.Height/2)

	case "pgup", "u":
		tm.log.SetYOffset(tm.log.YOffset - tm.log.Height/2)
	}

	return tm, nil
}

func (tm model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return tm, tea.Quit

	case "esc":
		tm.searching = false
		tm.search.Blur()

		return tm, nil

	case "enter":
		tm.searching = false
		tm.search.Blur()
		tm.hitPos = 0
		tm.jumpToHit()

		return tm, nil
	}

	var cmd tea.Cmd

	tm.search, cmd = tm.search.Update(msg)
	tm.hits = domain.SearchTree(tm.labels.Tree(), tm.search.Value())
	tm.hitPos = 0

	return tm, cmd
}

func (tm *model) setTree(snapshot m.TreeSnapshot) {
	tm.labels.SetTree(domain.FromSnapshot(snapshot))
	tm.collapsed = make(map[domain.NodeIndex]bool)
	tm.hits = nil
	tm.cursor = 0
	tm.runIndex = domain.NoNode
	tm.rebuildRows()

	slog.Info("Test tree collected", "nodes", tm.labels.Tree().Len(), "total", tm.labels.Tree().Total())
}

func (tm *model) rebuildRows() {
	tm.rows = treeRows(tm.labels.Tree(), tm.collapsed)
	if tm.cursor >= len(tm.rows) {
		tm.cursor = max(len(tm.rows)-1, 0)
	}
}

func (tm *model) selected() (domain.NodeIndex, bool) {
	if tm.cursor < 0 || tm.cursor >= len(tm.rows) {
		return domain.NoNode, false
	}

	return tm.rows[tm.cursor].index, true
}

func (tm *model) moveCursor(delta int) {
	tm.cursor = min(max(tm.cursor+delta, 0), max(len(tm.rows)-1, 0))
}

func (tm *model) collapseSelected() {
	idx, ok := tm.selected()
	if !ok {
		return
	}

	tree := tm.labels.Tree()

	if len(tree.Children(idx)) > 0 && !tm.collapsed[idx] {
		tm.collapsed[idx] = true
		tm.rebuildRows()

		return
	}

	if parent := tree.Parent(idx); parent != domain.NoNode {
		tm.selectNode(parent)
	}
}

func (tm *model) expandSelected() {
	idx, ok := tm.selected()
	if !ok || !tm.collapsed[idx] {
		return
	}

	delete(tm.collapsed, idx)
	tm.rebuildRows()
}

// selectNode moves the cursor onto idx, expanding its ancestors.
func (tm *model) selectNode(idx domain.NodeIndex) {
	tree := tm.labels.Tree()
	for parent := tree.Parent(idx); parent != domain.NoNode; parent = tree.Parent(parent) {
		delete(tm.collapsed, parent)
	}

	tm.rebuildRows()

	for i, row := range tm.rows {
		if row.index == idx {
			tm.cursor = i
			return
		}
	}
}

func (tm *model) jumpToHit() {
	if len(tm.hits) == 0 {
		if tm.search.Value() != "" {
			tm.notify(Notification{Message: fmt.Sprintf("No tests match %q", tm.search.Value()), Severity: SeverityWarning})
		}

		return
	}

	tm.selectNode(tm.hits[tm.hitPos].Index)
}

func (tm *model) nextHit() {
	if len(tm.hits) == 0 {
		return
	}

	tm.hitPos = (tm.hitPos + 1) % len(tm.hits)
	tm.jumpToHit()
}

func (tm *model) running() bool {
	return tm.pending || (tm.session != nil && !tm.session.State().IsTerminal())
}

func (tm *model) runSelected() tea.Cmd {
	idx, ok := tm.selected()
	if !ok {
		return nil
	}

	var flags []m.CLIFlag

	if tm.cfg.flags != nil {
		loaded, err := tm.cfg.flags.Load()
		if err != nil {
			slog.Warn("Failed to load flags", "path", tm.cfg.flags.Path(), "error", err)
			tm.notify(Notification{Message: "Failed to load flags: " + err.Error(), Severity: SeverityWarning})
		} else {
			flags = loaded
		}
	}

	env := append(slices.Clone(tm.cfg.env), fmt.Sprintf("%s=%d", adapter.EnvRunLogWidth, tm.runLogWidth()))

	// A run in flight is superseded, its pending markers would never clear.
	if tm.running() {
		tm.labels.Reset(tm.runIndex)
	}

	tm.runSeq++
	tm.pending = true
	tm.session = nil
	tm.runIndex = idx
	tm.logLines = nil
	tm.historyPos = -1
	tm.viewing = nil
	tm.renderLog()
	tm.labels.BeginRun(idx)

	seq := tm.runSeq
	ctx := tm.ctx
	orchestrator := tm.cfg.orchestrator
	request := domain.RunRequest{Node: tm.labels.Tree().Node(idx), Flags: flags, Env: env}

	return tea.Batch(func() tea.Msg {
		session, err := orchestrator.Run(ctx, request)

		return runStartedMsg{seq: seq, index: idx, session: session, err: err}
	}, tm.spinner.Tick)
}

func (tm *model) runStarted(msg runStartedMsg) {
	if msg.seq != tm.runSeq {
		return
	}

	tm.pending = false

	if msg.err != nil {
		slog.Error("Failed to start run", "error", msg.err)
	}

	if msg.session == nil {
		tm.labels.ResetAll()
		tm.notify(Notification{Message: fmt.Sprintf("Failed to start run: %v", msg.err), Severity: SeverityError})

		return
	}

	tm.session = msg.session
	tm.runIndex = msg.index
	tm.syncLog()

	if tm.session.State().IsTerminal() {
		tm.finishRun()
	}
}

func (tm *model) applyUpdate(update domain.Update) {
	if update.Kind == domain.UpdateState && update.State.IsTerminal() {
		tm.archive(update.Session)
	}

	if update.Session != tm.session {
		return
	}

	switch update.Kind {
	case domain.UpdateLine:
		tm.syncLog()
	case domain.UpdateState:
		if update.State.IsTerminal() {
			tm.finishRun()
		}
	}
}

// syncLog appends the live session lines not shown yet.
func (tm *model) syncLog() {
	if tm.session == nil {
		return
	}

	tm.logLines = append(tm.logLines, tm.session.LogSince(len(tm.logLines))...)
	tm.renderLog()
}

func (tm *model) finishRun() {
	session := tm.session
	if tm.finished == session.ID {
		return
	}

	tm.finished = session.ID
	tm.syncLog()

	classification := session.Classification()

	if classification.State == domain.StateCompleted {
		if results := session.Results(); results != nil {
			tm.labels.ApplyResults(tm.runIndex, results)
		}
	} else {
		tm.labels.ResetAll()
	}

	tm.notify(RunNotification(classification, session.Node.Name))
}

func (tm *model) archive(session *domain.RunSession) {
	if tm.cfg.history == nil || tm.archived[session.ID] {
		return
	}

	tm.archived[session.ID] = true

	if err := tm.cfg.history.Append(session.Record()); err != nil {
		slog.Error("Failed to record run", "session", session.ID, "error", err)
		tm.notify(Notification{Message: "Failed to record run: " + err.Error(), Severity: SeverityWarning})
	}
}

func (tm *model) cancelRun() {
	session := tm.cfg.orchestrator.Active()
	if session == nil || !tm.cfg.orchestrator.Cancel() {
		tm.notify(Notification{Message: "No run in progress.", Severity: SeverityWarning})
		return
	}

	tm.notify(Notification{Message: fmt.Sprintf("Cancelling %s...", session.Node.Name), Severity: SeverityInfo})
}

func (tm *model) clearRuns() {
	var cleared uint64

	if tm.cfg.history != nil {
		dropped, err := tm.cfg.history.Reset()
		if err != nil {
			slog.Error("Failed to clear runs", "error", err)
			tm.notify(Notification{Message: "Failed to clear runs: " + err.Error(), Severity: SeverityError})

			return
		}

		cleared = dropped
	}

	tm.labels.ResetAll()

	if !tm.running() {
		tm.session = nil
		tm.logLines = nil
	}

	tm.historyPos = -1
	tm.viewing = nil
	tm.renderLog()
	tm.notify(ClearRunsNotification(cleared))
}

// showHistory pages through finished runs, older for negative delta. Paging
// past the newest record returns to the live run.
func (tm *model) showHistory(delta int) {
	if tm.cfg.history == nil || tm.cfg.history.Len() == 0 {
		tm.notify(Notification{Message: "No previous runs.", Severity: SeverityInfo})
		return
	}

	total := int(tm.cfg.history.Len())

	pos := tm.historyPos
	if pos == -1 {
		if delta > 0 {
			return
		}

		pos = total
	}

	pos = max(pos+delta, 0)

	if pos >= total {
		tm.historyPos = -1
		tm.viewing = nil
		tm.renderLog()

		return
	}

	record, err := tm.cfg.history.Get(uint64(pos))
	if err != nil {
		slog.Error("Failed to read run history", "index", pos, "error", err)
		tm.notify(Notification{Message: "Failed to read run history: " + err.Error(), Severity: SeverityError})

		return
	}

	tm.historyPos = pos
	tm.viewing = &record
	tm.renderLog()
}

func (tm *model) renderLog() {
	lines := tm.logLines
	if tm.viewing != nil {
		lines = tm.viewing.Log
	}

	tm.log.SetContent(strings.Join(lines, "\n"))

	if tm.viewing == nil {
		tm.log.GotoBottom()
	} else {
		tm.log.GotoTop()
	}
}

func (tm *model) notify(notification Notification) {
	tm.notification = &notification
}

func (tm *model) resize(width, height int) {
	tm.width = width
	tm.height = height

	treeWidth := max(width/3, minTreeWidth)
	logWidth := max(width-treeWidth, minLogWidth)

	tm.log.Width = max(logWidth-2, 1)
	tm.log.Height = max(tm.bodyHeight()-2, 1)
	tm.renderLog()
}

func (tm *model) bodyHeight() int {
	return max(tm.height-chromeHeight, 3)
}

func (tm *model) treeWidth() int {
	return max(tm.width/3, minTreeWidth)
}

func (tm *model) runLogWidth() int {
	return max(tm.log.Width-logWidthMargin, minLogWidth)
}

func (tm model) View() string {
	var b strings.Builder

	b.WriteString(tm.renderHeader())
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tm.renderTree(), tm.renderLogPane()))
	b.WriteString("\n")
	b.WriteString(tm.renderStatus())
	b.WriteString("\n")
	b.WriteString(tm.renderNotification())
	b.WriteString("\n")

	if tm.searching {
		b.WriteString(tm.search.View())
	} else {
		b.WriteString(helpStyle.Render("↑/k ↓/j move • ←/h →/l fold • r run • c cancel • [/] history • ctrl+x clear • / search • q quit"))
	}

	return b.String()
}

func (tm model) renderHeader() string {
	header := titleStyle.Render("orisa")

	if idx, ok := tm.selected(); ok {
		header += " " + breadcrumbStyle.Render(tm.labels.Tree().Breadcrumb(idx))
	}

	return header
}

func (tm model) renderTree() string {
	width := tm.treeWidth() - 2
	height := tm.bodyHeight() - 2

	var lines []string

	if len(tm.rows) == 0 {
		lines = append(lines, helpStyle.Render("Waiting for collected tests..."))
	}

	start := 0
	if tm.cursor >= height {
		start = tm.cursor - height + 1
	}

	end := min(start+height, len(tm.rows))

	for i := start; i < end; i++ {
		row := tm.rows[i]
		label := tm.labels.Label(row.index)

		if tm.collapsed[row.index] {
			label += " ▸"
		}

		if i == tm.cursor {
			label = cursorStyle.Render(label)
		} else if style, ok := markStyles[tm.labels.Decoration(row.index).Mark]; ok {
			label = style.Render(label)
		}

		lines = append(lines, connectorStyle.Render(row.prefix)+label)
	}

	return paneStyle.Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (tm model) renderLogPane() string {
	style := paneStyle
	if tm.running() {
		style = focusedPaneStyle
	}

	return style.Width(tm.log.Width).Height(tm.log.Height).Render(tm.log.View())
}

func (tm model) renderStatus() string {
	if tm.viewing != nil {
		return fmt.Sprintf("run %d/%d • %s • %s • %s",
			tm.historyPos+1, tm.cfg.history.Len(), tm.viewing.Label, tm.viewing.Target,
			tm.viewing.Duration().Round(time.Millisecond))
	}

	if tm.session == nil {
		if tm.pending && tm.labels.Tree().Valid(tm.runIndex) {
			return tm.spinner.View() + " starting " + tm.labels.Tree().Node(tm.runIndex).Name
		}

		return "idle"
	}

	state := tm.session.State()
	if !state.IsTerminal() {
		return fmt.Sprintf("%s %s %s", tm.spinner.View(), state, tm.session.Target)
	}

	return fmt.Sprintf("%s • %s • exit %d", tm.session.Classification().Label, tm.session.Target, tm.session.ExitCode())
}

func (tm model) renderNotification() string {
	if tm.notification == nil {
		return ""
	}

	style, ok := notificationStyles[tm.notification.Severity]
	if !ok {
		return tm.notification.Message
	}

	return style.Render(tm.notification.Message)
}
