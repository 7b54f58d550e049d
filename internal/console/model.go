// Package console is the interactive Bubble Tea front-end: a script editor wired
// to the session controller, plus disk, partition and content views.
package console

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinylittleshell/mia/internal/health"
	"github.com/atinylittleshell/mia/internal/interpreter"
	"github.com/atinylittleshell/mia/internal/render"
	"github.com/atinylittleshell/mia/internal/session"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type view int

const (
	viewScript view = iota
	viewLogin
	viewDisks
	viewPartitions
	viewTree
	viewHistory
	viewLoad
)

// Backend is the part of the interpreter service the console browses and logs into.
type Backend interface {
	interpreter.Browser
	interpreter.Authenticator
}

// HistorySource supplies previously submitted scripts for the picker.
type HistorySource interface {
	GetRecentScripts(limit int) ([]string, error)
}

// Config holds configuration for creating a new Model.
type Config struct {
	// Controller drives the script session. Required.
	Controller *session.Controller

	// Backend serves disks, partitions, content trees and login. Required.
	Backend Backend

	// Prober publishes health reports for the header. Optional.
	Prober *health.Prober

	// History feeds the history picker. Optional.
	History HistorySource

	// Welcome is shown in the output pane until the first output arrives.
	Welcome string

	// Context is used for every request. Defaults to context.Background().
	Context context.Context

	// CopyToClipboard and ReadFile default to the system clipboard and os.ReadFile.
	CopyToClipboard func(string) error
	ReadFile        func(string) ([]byte, error)

	Width  int
	Height int

	// Logger for debug output. If nil, a no-op logger is used.
	Logger *zap.Logger
}

// Login form fields.
const (
	fieldUser = iota
	fieldPassword
	fieldPartition
	fieldCount
)

// Model is the Bubble Tea model for the console.
type Model struct {
	ctx        context.Context
	controller *session.Controller
	backend    Backend
	prober     *health.Prober
	history    HistorySource
	logger     *zap.Logger
	copyText   func(string) error
	readFile   func(string) ([]byte, error)

	keys    KeyMap
	help    help.Model
	editor  textarea.Model
	output  viewport.Model
	spinner spinner.Model

	view    view
	width   int
	height  int
	welcome string

	snapshot session.Snapshot
	inFlight bool
	report   health.Report

	status    string
	statusErr bool

	loggedIn    bool
	user        string
	partitionID string
	loginInputs []textinput.Model
	loginFocus  int

	pathInput textinput.Model

	cursor           int
	disks            []interpreter.Disk
	currentDisk      string
	partitions       []interpreter.Partition
	currentPartition string
	tree             *interpreter.TreeNode

	historyQuery   textinput.Model
	historyScripts []string
	historyMatches []int

	quitting bool
}

// New creates a console model.
func New(cfg Config) (Model, error) {
	if cfg.Controller == nil {
		return Model{}, errors.New("console requires a session controller")
	}
	if cfg.Backend == nil {
		return Model{}, errors.New("console requires an interpreter backend")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	copyText := cfg.CopyToClipboard
	if copyText == nil {
		copyText = defaultCopy
	}
	readFile := cfg.ReadFile
	if readFile == nil {
		readFile = defaultReadFile
	}

	editor := textarea.New()
	editor.Placeholder = "mkdisk -size=10 -unit=M\nfdisk -size=5 -driveletter=A -name=Part1\n..."
	editor.ShowLineNumbers = true
	editor.CharLimit = 0
	editor.Cursor.SetMode(cursor.CursorStatic)
	editor.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = spinnerStyle

	m := Model{
		ctx:         ctx,
		controller:  cfg.Controller,
		backend:     cfg.Backend,
		prober:      cfg.Prober,
		history:     cfg.History,
		logger:      logger,
		copyText:    copyText,
		readFile:    readFile,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		editor:      editor,
		output:      viewport.New(80, 10),
		spinner:     spin,
		welcome:     cfg.Welcome,
		report:      health.Report{Status: health.StatusChecking},
		loginInputs: newLoginInputs(),
		pathInput:   newInput("path/to/script.mia", 512),

		historyQuery: newInput("filter history", 256),
	}
	if cfg.Prober != nil {
		m.report = cfg.Prober.Latest()
	}

	width, height := cfg.Width, cfg.Height
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	m.resize(width, height)
	m.refresh()

	return m, nil
}

func newInput(placeholder string, limit int) textinput.Model {
	input := textinput.New()
	input.Placeholder = placeholder
	input.CharLimit = limit
	input.Cursor.SetMode(cursor.CursorStatic)
	return input
}

func newLoginInputs() []textinput.Model {
	inputs := make([]textinput.Model, fieldCount)
	inputs[fieldUser] = newInput("user", 64)
	inputs[fieldPassword] = newInput("password", 64)
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldPassword].EchoCharacter = '•'
	inputs[fieldPartition] = newInput("partition id (e.g. A101)", 32)
	return inputs
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return waitForHealth(m.prober)
}

// Quitting reports whether the user asked to quit.
func (m Model) Quitting() bool {
	return m.quitting
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case exchangeDoneMsg:
		m.inFlight = false
		m.refresh()
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus(render.ModeLabel(m.snapshot.Mode))
		}
		return m, nil

	case healthMsg:
		m.report = health.Report(msg)
		return m, waitForHealth(m.prober)

	case disksMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.disks = msg.disks
		m.cursor = 0
		return m, nil

	case partitionsMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.currentDisk = msg.disk
		m.partitions = msg.partitions
		m.cursor = 0
		return m, nil

	case treeMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.currentPartition = msg.partitionID
		m.tree = msg.root
		if m.tree == nil {
			m.tree = &interpreter.TreeNode{Name: "/", Type: "folder"}
		}
		return m, nil

	case loginMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.loggedIn = true
		m.user = msg.user
		m.partitionID = msg.partitionID
		m.loginInputs = newLoginInputs()
		m.view = viewScript
		m.refresh()
		m.setStatus(fmt.Sprintf("logged in as %s on %s", msg.user, msg.partitionID))
		return m, nil

	case logoutMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.loggedIn = false
		m.user = ""
		m.partitionID = ""
		m.refresh()
		m.setStatus("logged out")
		return m, nil

	case historyMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.historyScripts = msg.scripts
		m.filterHistory()
		return m, nil

	case fileLoadedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.view = viewScript
		m.pathInput.Reset()
		m.pathInput.Blur()
		if !m.editable() {
			m.setError(errors.New("cannot replace the script while a run is in progress"))
			return m, nil
		}
		m.editor.SetValue(msg.content)
		m.refresh()
		m.setStatus(fmt.Sprintf("loaded %s (%s)", filepath.Base(msg.path), humanBytes(len(msg.content))))
		return m, nil

	case clipboardMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("copy failed: %w", msg.err))
		} else {
			m.setStatus("output copied to clipboard")
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.view {
		case viewScript:
			return m.updateScript(msg)
		case viewLogin:
			return m.updateLogin(msg)
		case viewDisks, viewPartitions, viewTree:
			return m.updateBrowse(msg)
		case viewHistory:
			return m.updateHistory(msg)
		case viewLoad:
			return m.updateLoad(msg)
		}
	}

	return m, nil
}

func (m Model) updateScript(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.refresh()

	switch {
	case key.Matches(msg, m.keys.Run):
		return m.startExchange(session.TriggerSubmit)
	case key.Matches(msg, m.keys.Continue):
		return m.startExchange(session.TriggerContinue)
	case key.Matches(msg, m.keys.Approve):
		return m.startExchange(session.TriggerApprove)
	case key.Matches(msg, m.keys.Deny):
		return m.startExchange(session.TriggerDeny)

	case key.Matches(msg, m.keys.Clear):
		m.controller.Reset()
		m.editor.Reset()
		m.refresh()
		m.setStatus("cleared")
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, copyCmd(m.copyText, m.snapshot.OutputText())

	case key.Matches(msg, m.keys.Load):
		if !m.editable() {
			m.setError(errors.New("cannot load a file while a run is in progress"))
			return m, nil
		}
		m.view = viewLoad
		m.editor.Blur()
		cmd := m.pathInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.History):
		if m.history == nil {
			m.setError(errors.New("history is disabled"))
			return m, nil
		}
		if !m.editable() {
			m.setError(errors.New("cannot pick a script while a run is in progress"))
			return m, nil
		}
		m.view = viewHistory
		m.cursor = 0
		m.editor.Blur()
		m.historyQuery.Reset()
		cmd := m.historyQuery.Focus()
		return m, tea.Batch(cmd, loadHistoryCmd(m.history))

	case key.Matches(msg, m.keys.Login):
		m.view = viewLogin
		m.loginFocus = fieldUser
		m.editor.Blur()
		cmd := m.focusLogin()
		return m, cmd

	case key.Matches(msg, m.keys.Logout):
		return m, logoutCmd(m.ctx, m.backend)

	case key.Matches(msg, m.keys.Disks):
		if !m.loggedIn {
			m.setError(errors.New("log in first (ctrl+g) to browse disks"))
			return m, nil
		}
		m.view = viewDisks
		m.cursor = 0
		m.editor.Blur()
		return m, listDisksCmd(m.ctx, m.backend)
	}

	if !m.editable() {
		return m, nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

// startExchange hands a trigger to the controller on a background command.
func (m Model) startExchange(trigger session.Trigger) (tea.Model, tea.Cmd) {
	if m.inFlight || !m.controller.Allowed(trigger) {
		return m, nil
	}

	text := m.editor.Value()
	if trigger == session.TriggerSubmit && strings.TrimSpace(text) == "" {
		m.setError(session.ErrEmptyScript)
		return m, nil
	}

	m.inFlight = true
	m.editor.Blur()
	m.updateKeys()
	m.setStatus("")
	m.logger.Debug("console trigger", zap.String("trigger", string(trigger)))

	return m, tea.Batch(exchangeCmd(m.ctx, m.controller, trigger, text), m.spinner.Tick)
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.view = viewScript
		m.blurLogin()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Next), key.Matches(msg, m.keys.Down):
		m.loginFocus = (m.loginFocus + 1) % fieldCount
		cmd := m.focusLogin()
		return m, cmd

	case key.Matches(msg, m.keys.Up):
		m.loginFocus = (m.loginFocus - 1 + fieldCount) % fieldCount
		cmd := m.focusLogin()
		return m, cmd

	case key.Matches(msg, m.keys.Select):
		user := strings.TrimSpace(m.loginInputs[fieldUser].Value())
		password := m.loginInputs[fieldPassword].Value()
		partitionID := strings.TrimSpace(m.loginInputs[fieldPartition].Value())
		if user == "" || password == "" || partitionID == "" {
			m.setError(errors.New("user, password and partition id are required"))
			return m, nil
		}
		return m, loginCmd(m.ctx, m.backend, user, password, partitionID)
	}

	var cmd tea.Cmd
	m.loginInputs[m.loginFocus], cmd = m.loginInputs[m.loginFocus].Update(msg)
	return m, cmd
}

func (m *Model) focusLogin() tea.Cmd {
	var cmd tea.Cmd
	for i := range m.loginInputs {
		if i == m.loginFocus {
			cmd = m.loginInputs[i].Focus()
		} else {
			m.loginInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) blurLogin() {
	for i := range m.loginInputs {
		m.loginInputs[i].Blur()
	}
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		switch m.view {
		case viewTree:
			m.view = viewPartitions
			m.tree = nil
		case viewPartitions:
			m.view = viewDisks
			m.cursor = 0
		default:
			m.view = viewScript
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < m.listLen()-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		switch m.view {
		case viewDisks:
			if len(m.disks) == 0 {
				return m, nil
			}
			disk := m.disks[m.cursor].Name
			m.view = viewPartitions
			m.partitions = nil
			return m, listPartitionsCmd(m.ctx, m.backend, disk)
		case viewPartitions:
			if len(m.partitions) == 0 {
				return m, nil
			}
			id := m.partitions[m.cursor].ID
			m.view = viewTree
			m.tree = nil
			return m, contentTreeCmd(m.ctx, m.backend, id)
		}
	}
	return m, nil
}

func (m Model) listLen() int {
	switch m.view {
	case viewDisks:
		return len(m.disks)
	case viewPartitions:
		return len(m.partitions)
	default:
		return 0
	}
}

func (m Model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.view = viewScript
		m.historyQuery.Blur()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.historyMatches)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		m.view = viewScript
		m.historyQuery.Blur()
		if len(m.historyMatches) > 0 {
			m.editor.SetValue(m.historyScripts[m.historyMatches[m.cursor]])
			m.setStatus("script loaded from history")
		}
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.historyQuery, cmd = m.historyQuery.Update(msg)
	m.filterHistory()
	return m, cmd
}

// filterHistory fuzzy-matches the query against the loaded scripts.
func (m *Model) filterHistory() {
	query := strings.TrimSpace(m.historyQuery.Value())
	if query == "" {
		m.historyMatches = lo.Range(len(m.historyScripts))
	} else {
		matches := fuzzy.Find(query, m.historyScripts)
		m.historyMatches = lo.Map(matches, func(match fuzzy.Match, _ int) int { return match.Index })
	}
	if m.cursor >= len(m.historyMatches) {
		m.cursor = max(0, len(m.historyMatches)-1)
	}
}

func (m Model) updateLoad(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.view = viewScript
		m.pathInput.Blur()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Select):
		path := strings.TrimSpace(m.pathInput.Value())
		if path == "" {
			m.setError(errors.New("enter a file path"))
			return m, nil
		}
		return m, loadFileCmd(m.readFile, path)
	}

	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

// busy reports whether an exchange is running or about to run.
func (m Model) busy() bool {
	return m.inFlight || m.snapshot.Mode == session.ModeBusy
}

// editable reports whether the script editor accepts input.
func (m Model) editable() bool {
	return !m.busy() && m.snapshot.Mode != session.ModeAwaitingConfirmation
}

// refresh pulls the session snapshot and syncs the output pane, focus and keys.
func (m *Model) refresh() {
	m.snapshot = m.controller.Snapshot()
	m.output.SetContent(m.renderOutput())
	m.output.GotoBottom()

	if m.view == viewScript && m.editable() {
		m.editor.Focus()
	} else {
		m.editor.Blur()
	}
	m.updateKeys()
}

func (m *Model) updateKeys() {
	idle := !m.busy()
	mode := m.snapshot.Mode
	m.keys.Run.SetEnabled(idle && mode != session.ModeAwaitingConfirmation)
	m.keys.Continue.SetEnabled(idle && mode == session.ModePaused)
	m.keys.Approve.SetEnabled(idle && mode == session.ModeAwaitingConfirmation)
	m.keys.Deny.SetEnabled(idle && mode == session.ModeAwaitingConfirmation)
	m.keys.Load.SetEnabled(idle && mode != session.ModeAwaitingConfirmation)
	m.keys.Logout.SetEnabled(m.loggedIn)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width

	editorHeight := max(5, height/3)
	m.editor.SetWidth(width - 2)
	m.editor.SetHeight(editorHeight)

	// header, status line, confirmation box, help and borders
	chrome := 10
	m.output.Width = width - 2
	m.output.Height = max(3, height-editorHeight-chrome)

	for i := range m.loginInputs {
		m.loginInputs[i].Width = min(40, width-4)
	}
	m.pathInput.Width = width - 4
	m.historyQuery.Width = width - 4
}

func (m *Model) setStatus(text string) {
	m.status = text
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
	m.logger.Debug("console error", zap.Error(err))
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
