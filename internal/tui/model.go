// Package tui provides the interactive terminal interface for stepping through a
// reconciliation.
package tui

import (
	"context"
	"errors"

	"github.com/Veraticus/recon/internal/health"
	"github.com/Veraticus/recon/internal/model"
	"github.com/Veraticus/recon/internal/tui/themes"
	"github.com/Veraticus/recon/internal/workflow"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Workflow is the part of the reconciliation workflow the TUI drives.
type Workflow interface {
	Session() model.Session
	Permitted(op workflow.Operation) bool
	CheckHealth(ctx context.Context) (health.Status, error)
	Upload(ctx context.Context, bank, invoices *model.FileCandidate) (*model.UploadResult, error)
	IdentifyColumns(ctx context.Context) (*model.ColumnInfo, error)
	Match(ctx context.Context) (*model.MatchingResult, error)
	Reset()
}

// Model is the bubbletea model of the reconciliation screen.
type Model struct {
	ctx       context.Context
	workflow  Workflow
	theme     themes.Theme
	keymap    KeyMap
	help      help.Model
	spinner   spinner.Model
	config    Config
	output    string
	status    string
	running   action
	seq       int
	width     int
	height    int
	statusErr bool
	quitting  bool
}

// New creates the TUI model.
func New(ctx context.Context, wf Workflow, opts ...Option) Model {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = cfg.Theme.Spinner

	m := Model{
		ctx:      ctx,
		workflow: wf,
		theme:    cfg.Theme,
		keymap:   DefaultKeyMap(),
		help:     help.New(),
		spinner:  s,
		config:   cfg,
		width:    cfg.Width,
		height:   cfg.Height,
	}
	m.begin(actionHealth)
	return m
}

// Init implements tea.Model. The backend is probed once on start.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runAction(m.running, m.seq))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if m.running == actionNone {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case operationDoneMsg:
		return m.handleDone(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleDone(msg operationDoneMsg) Model {
	if msg.seq != m.seq || msg.action != m.running {
		return m
	}
	m.running = actionNone

	switch {
	case errors.Is(msg.err, workflow.ErrSessionReset):
		m.setStatus("Session was reset; the running operation's result was discarded.", false)
	case msg.err != nil:
		if msg.output != "" {
			m.output = msg.output
		}
		m.setStatus(msg.err.Error(), true)
	default:
		m.output = msg.output
		m.setStatus(doneText(msg.action), false)
	}
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keymap.Reset):
		m.workflow.Reset()
		m.running = actionNone
		m.seq++
		m.output = ""
		m.setStatus("Session reset.", false)
		return m, nil
	}

	if m.running != actionNone {
		m.setStatus("Please wait for the current operation to finish.", true)
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.Health):
		return m, m.start(actionHealth)

	case key.Matches(msg, m.keymap.Upload):
		if m.config.Bank == nil || m.config.Invoices == nil {
			m.setStatus("Both a bank statement and an invoice file are required.", true)
			return m, nil
		}
		return m.guarded(workflow.OpUpload, actionUpload)

	case key.Matches(msg, m.keymap.Identify):
		return m.guarded(workflow.OpIdentifyColumns, actionIdentify)

	case key.Matches(msg, m.keymap.Match):
		return m.guarded(workflow.OpMatch, actionMatch)

	case key.Matches(msg, m.keymap.Export):
		if m.config.Export == nil {
			m.setStatus("Export is not available.", true)
			return m, nil
		}
		if m.workflow.Session().Stage != model.StageMatchingCompleted {
			m.setStatus("Run matching before exporting results.", true)
			return m, nil
		}
		return m, m.start(actionExport)
	}

	return m, nil
}

func (m Model) guarded(op workflow.Operation, a action) (tea.Model, tea.Cmd) {
	if !m.workflow.Permitted(op) {
		m.setStatus("Cannot run "+op.Label()+" at stage "+m.workflow.Session().Stage.Label()+".", true)
		return m, nil
	}
	return m, m.start(a)
}

func (m *Model) start(a action) tea.Cmd {
	m.begin(a)
	return tea.Batch(m.spinner.Tick, m.runAction(a, m.seq))
}

func (m *Model) begin(a action) {
	m.seq++
	m.running = a
	m.setStatus(a.progressText(), false)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func doneText(a action) string {
	switch a {
	case actionHealth:
		return "Health check finished."
	case actionUpload:
		return "Files uploaded and preprocessed."
	case actionIdentify:
		return "Key columns identified."
	case actionMatch:
		return "Matching completed."
	case actionExport:
		return "Results exported."
	default:
		return ""
	}
}
