package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"struxureguard/internal/checklist"
	"struxureguard/internal/logger"
	"struxureguard/internal/prompt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// UI States
type state int

const (
	stateForm state = iota
	stateRunning
	stateConfirmOverwrite
	stateCopyPath
)

// Focusable fields, in tab order
const (
	fieldPath = iota
	fieldPassword
	fieldServers
	fieldTrendStorage
	fieldCPU
	fieldMemory
	fieldCount
)

const firstSection = fieldServers

// Runner performs one write with the given prompter answering save-target questions
type Runner func(ctx context.Context, p checklist.Prompter, in checklist.Input) (*checklist.Result, error)

// Options configures the interactive surface
type Options struct {
	Path string
	Run  Runner
	// Sink feeds the log pane; nil hides it
	Sink     *logger.Sink
	LogLines int
}

type runDoneMsg struct {
	result *checklist.Result
	err    error
}

type promptMsg struct {
	req prompt.Request
}

type logLineMsg string

type section struct {
	title   string
	area    textarea.Model
	enabled bool
}

type model struct {
	state state
	focus int

	path        textinput.Model
	password    textinput.Model
	sections    [fieldCount - firstSection]section
	allLicenses bool

	copyPath textinput.Model
	spinner  spinner.Model

	run     Runner
	ctx     context.Context
	cancel  context.CancelFunc
	handoff *prompt.Handoff
	pending *prompt.Request

	logs     <-chan string
	logLines []string
	logLimit int

	message string
	failed  bool
	warning bool

	// quitting is set when the user quits while the worker still runs
	quitting bool

	width  int
	height int

	// Styling
	titleStyle   lipgloss.Style
	labelStyle   lipgloss.Style
	focusStyle   lipgloss.Style
	helpStyle    lipgloss.Style
	successStyle lipgloss.Style
	warningStyle lipgloss.Style
	errorStyle   lipgloss.Style
	logStyle     lipgloss.Style
	boxStyle     lipgloss.Style
}

func newModel(opts Options) model {
	path := textinput.New()
	path.Placeholder = "path/to/checklist.xlsx"
	path.SetValue(opts.Path)
	path.CharLimit = 0

	password := textinput.New()
	password.Placeholder = "sheet password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	copyPath := textinput.New()
	copyPath.CharLimit = 0

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	limit := opts.LogLines
	if limit <= 0 {
		limit = 8
	}

	m := model{
		state:    stateForm,
		path:     path,
		password: password,
		copyPath: copyPath,
		spinner:  s,
		run:      opts.Run,
		logLimit: limit,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")),
		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		focusStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")),
		helpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		successStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("40")),
		warningStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")),
		errorStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		logStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		boxStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
	}

	titles := []string{"Servers", "TrendStorageGeheugen", "CPU", "Memory"}
	for i, title := range titles {
		area := textarea.New()
		area.Placeholder = "one line per sheet"
		area.ShowLineNumbers = false
		area.CharLimit = 0
		area.SetHeight(4)
		area.SetWidth(36)
		m.sections[i] = section{title: title, area: area, enabled: true}
	}

	if opts.Sink != nil {
		m.logs = opts.Sink.Subscribe()
		for _, line := range opts.Sink.Lines() {
			m.appendLog(line)
		}
	}

	m.path.Focus()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForLog())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case logLineMsg:
		m.appendLog(string(msg))
		return m, m.waitForLog()

	case promptMsg:
		return m.openPrompt(msg.req)

	case runDoneMsg:
		return m.finishRun(msg)

	case spinner.TickMsg:
		if m.state == stateForm {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.state == stateForm {
				m.stop()
				return m, tea.Quit
			}
			// the worker owns the workbook until it reports back
			m.stop()
			m.quitting = true
			m.pending = nil
			m.copyPath.Blur()
			m.state = stateRunning
			return m, nil
		}
		switch m.state {
		case stateForm:
			return m.updateForm(msg)
		case stateConfirmOverwrite:
			return m.updateConfirmOverwrite(msg)
		case stateCopyPath:
			return m.updateCopyPath(msg)
		}
		// inputs are locked while the worker runs
		return m, nil
	}

	return m.updateFocused(msg)
}

func (m model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.stop()
		return m, tea.Quit

	case "tab":
		return m, m.setFocus((m.focus + 1) % fieldCount)

	case "shift+tab":
		return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)

	case "enter":
		if m.focus == fieldPath || m.focus == fieldPassword {
			return m, m.setFocus(m.focus + 1)
		}

	case "ctrl+t":
		if m.focus >= firstSection {
			s := &m.sections[m.focus-firstSection]
			s.enabled = !s.enabled
		}
		return m, nil

	case "ctrl+l":
		m.allLicenses = !m.allLicenses
		return m, nil

	case "ctrl+s":
		return m.startRun()
	}

	return m.updateFocused(msg)
}

func (m model) updateConfirmOverwrite(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "y", "j":
		return m.resolve(prompt.Answer{Yes: true})
	case "n":
		return m.resolve(prompt.Answer{Yes: false})
	}
	return m, nil
}

func (m model) updateCopyPath(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m.resolve(prompt.Answer{Path: strings.TrimSpace(m.copyPath.Value())})
	case "esc":
		return m.resolve(prompt.Answer{})
	}
	var cmd tea.Cmd
	m.copyPath, cmd = m.copyPath.Update(msg)
	return m, cmd
}

func (m model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.state == stateCopyPath:
		m.copyPath, cmd = m.copyPath.Update(msg)
	case m.state != stateForm:
	case m.focus == fieldPath:
		m.path, cmd = m.path.Update(msg)
	case m.focus == fieldPassword:
		m.password, cmd = m.password.Update(msg)
	default:
		s := &m.sections[m.focus-firstSection]
		s.area, cmd = s.area.Update(msg)
	}
	return m, cmd
}

func (m *model) setFocus(field int) tea.Cmd {
	m.path.Blur()
	m.password.Blur()
	for i := range m.sections {
		m.sections[i].area.Blur()
	}

	m.focus = field
	switch field {
	case fieldPath:
		return m.path.Focus()
	case fieldPassword:
		return m.password.Focus()
	default:
		return m.sections[field-firstSection].area.Focus()
	}
}

func (m *model) resize() {
	width := max(20, (m.width-8)/2)
	for i := range m.sections {
		m.sections[i].area.SetWidth(width)
	}
	m.path.Width = max(20, m.width-20)
	m.copyPath.Width = max(20, m.width-20)
}

// input collects the form into one run's input
func (m model) input() checklist.Input {
	sectionInput := func(field int) checklist.Section {
		s := m.sections[field-firstSection]
		return checklist.Section{Enabled: s.enabled, Lines: checklist.SplitLines(s.area.Value())}
	}
	return checklist.Input{
		Path:         strings.TrimSpace(m.path.Value()),
		Password:     m.password.Value(),
		Servers:      sectionInput(fieldServers),
		TrendStorage: sectionInput(fieldTrendStorage),
		CPU:          sectionInput(fieldCPU),
		Memory:       sectionInput(fieldMemory),
		AllLicenses:  m.allLicenses,
	}
}

func (m model) startRun() (tea.Model, tea.Cmd) {
	if m.run == nil {
		m.message, m.failed = "no writer configured", true
		return m, nil
	}

	in := m.input()
	ctx, cancel := context.WithCancel(context.Background())
	h := prompt.NewHandoff()
	m.ctx, m.cancel, m.handoff = ctx, cancel, h
	m.state = stateRunning
	m.message, m.failed, m.warning = "", false, false

	run := m.run
	return m, tea.Batch(
		func() tea.Msg {
			res, err := run(ctx, h, in)
			return runDoneMsg{result: res, err: err}
		},
		waitForRequest(ctx, h),
		m.spinner.Tick,
	)
}

func (m model) openPrompt(req prompt.Request) (tea.Model, tea.Cmd) {
	m.pending = &req
	switch req.Kind {
	case prompt.KindOverwrite:
		m.state = stateConfirmOverwrite
		return m, nil
	default:
		m.state = stateCopyPath
		m.copyPath.SetValue(prompt.DefaultCopyPath(req.Original, time.Now()))
		m.copyPath.CursorEnd()
		return m, m.copyPath.Focus()
	}
}

func (m model) resolve(a prompt.Answer) (tea.Model, tea.Cmd) {
	if m.pending != nil {
		m.pending.Resolve(a)
		m.pending = nil
	}
	m.copyPath.Blur()
	m.state = stateRunning
	return m, waitForRequest(m.ctx, m.handoff)
}

func (m model) finishRun(msg runDoneMsg) (tea.Model, tea.Cmd) {
	m.stop()
	m.state = stateForm
	m.pending = nil
	if m.quitting {
		return m, tea.Quit
	}

	switch {
	case msg.err == nil:
		m.message = msg.result.Message()
		m.warning = msg.result.Warning
	case errors.Is(msg.err, checklist.ErrCancelled):
		m.message = "Operation cancelled."
	default:
		m.message = fmt.Sprintf("Error: %v", msg.err)
		m.failed = true
	}
	return m, m.setFocus(m.focus)
}

// stop releases a worker that may still be waiting on a prompt
func (m *model) stop() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.handoff != nil {
		m.handoff.Close()
		m.handoff = nil
	}
}

func (m *model) appendLog(line string) {
	m.logLines = append(m.logLines, strings.TrimRight(line, "\n"))
	if over := len(m.logLines) - m.logLimit; over > 0 {
		m.logLines = m.logLines[over:]
	}
}

func (m model) waitForLog() tea.Cmd {
	if m.logs == nil {
		return nil
	}
	ch := m.logs
	return func() tea.Msg {
		line, ok := <-ch
		if !ok {
			return nil
		}
		return logLineMsg(line)
	}
}

// waitForRequest delivers the next prompt of the running worker
func waitForRequest(ctx context.Context, h *prompt.Handoff) tea.Cmd {
	if h == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case req := <-h.Requests():
			return promptMsg{req: req}
		case <-ctx.Done():
			return nil
		}
	}
}

// Run starts the interactive interface and blocks until the user quits
func Run(opts Options) error {
	p := tea.NewProgram(newModel(opts), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	if m, ok := final.(model); ok {
		m.stop()
	}
	return nil
}
