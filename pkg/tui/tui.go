// Package tui is the interactive search shell: results update as the query
// is typed, and account data can be refreshed without leaving.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rubiojr/itemsearch/pkg/core"
	"github.com/rubiojr/itemsearch/pkg/engine"
	"github.com/rubiojr/itemsearch/pkg/render"
)

// Options configures the shell.
type Options struct {
	Engine       *engine.Engine
	Permissions  core.Permissions
	FetchTimeout time.Duration
	Version      string
}

// RefreshDoneMsg carries the outcome of a background Initialize.
type RefreshDoneMsg struct {
	Err error
}

// ReloadMsg asks for a refresh, for example when account files change on
// disk.
type ReloadMsg struct {
	Reason string
}

var (
	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#7C3AED")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1)

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#7C3AED"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Italic(true)
)

// Model is the Bubble Tea model for the search shell.
type Model struct {
	options  Options
	input    textinput.Model
	spinner  spinner.Model
	renderer *render.Service

	width  int
	height int

	refreshing bool
	pending    bool // a reload arrived while refreshing
	status     string
	err        error
	results    string
	quitting   bool
}

// New creates the shell model. The first refresh starts from Init.
func New(opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "item, skin, upgrade or infusion name"
	ti.Prompt = inputPromptStyle.Render("search> ")
	ti.CharLimit = 128
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}

	return Model{
		options:    opts,
		input:      ti,
		spinner:    sp,
		renderer:   render.NewService(opts.Engine.Lookup),
		refreshing: true,
		status:     "loading account",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.startRefresh())
}

// startRefresh runs Initialize in the background through Engine.Start.
func (m Model) startRefresh() tea.Cmd {
	eng := m.options.Engine
	perms := m.options.Permissions
	timeout := m.options.FetchTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return RefreshDoneMsg{Err: <-eng.Start(ctx, perms)}
	}
}

func (m Model) requestRefresh(reason string) (tea.Model, tea.Cmd) {
	if m.refreshing {
		m.pending = true
		return m, nil
	}
	m.refreshing = true
	m.status = reason
	return m, tea.Batch(m.startRefresh(), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyCtrlR:
			return m.requestRefresh("refreshing account")
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.results = m.search()
		return m, nil

	case ReloadMsg:
		return m.requestRefresh(msg.Reason)

	case RefreshDoneMsg:
		if errors.Is(msg.Err, engine.ErrInitializeInProgress) {
			// The other refresh reports when it finishes.
			return m, nil
		}
		m.refreshing = false
		m.err = msg.Err
		if msg.Err == nil {
			snap := m.options.Engine.Snapshot()
			m.status = fmt.Sprintf("%d owned items, refreshed %s", snap.Owned.Instances(), snap.BuiltAt.Format("15:04:05"))
		}
		m.results = m.search()
		if m.pending {
			m.pending = false
			return m.requestRefresh("refreshing account")
		}
		return m, nil

	case spinner.TickMsg:
		if !m.refreshing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.results = m.search()
	}
	return m, cmd
}

// search runs the current query and renders the visible part of the answer.
func (m Model) search() string {
	query := m.input.Value()
	eng := m.options.Engine
	if utf8.RuneCountInString(engine.Normalize(query)) < eng.MinQueryLength() {
		return hintStyle.Render(fmt.Sprintf("Type at least %d characters.", eng.MinQueryLength()))
	}

	items, err := eng.Search(query)
	if errors.Is(err, engine.ErrNotReady) {
		return hintStyle.Render("Waiting for account data...")
	}
	if err != nil {
		return render.WarningStyle.Render(err.Error())
	}

	out := m.renderer.Items(items)
	if limit := m.height - 4; limit > 0 {
		lines := strings.Split(out, "\n")
		if len(lines) > limit {
			hidden := len(lines) - limit
			out = strings.Join(lines[:limit], "\n") + "\n" + hintStyle.Render(fmt.Sprintf("... %d more lines", hidden))
		}
	}
	return out
}

func (m Model) statusLine() string {
	text := "itemsearch"
	if m.options.Version != "" {
		text += " " + m.options.Version
	}
	switch {
	case m.refreshing:
		text += "  " + m.spinner.View() + " " + m.status
	case m.err != nil:
		text += "  refresh failed: " + m.err.Error()
	default:
		text += "  " + m.status
	}
	if snap := m.options.Engine.Snapshot(); snap != nil && len(snap.Warnings) > 0 {
		text += fmt.Sprintf("  (%d sources unavailable)", len(snap.Warnings))
	}
	style := statusBarStyle
	if m.width > 0 {
		style = style.Width(m.width)
	}
	return style.Render(text)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return fmt.Sprintf("%s\n%s\n\n%s\n%s",
		m.statusLine(),
		m.input.View(),
		m.results,
		hintStyle.Render("ctrl+r refresh, esc quit"),
	)
}
