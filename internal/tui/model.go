// Package tui is the terminal front-end: a bubbletea model whose Update
// is the single reducer merging input events and remote events into the
// application state.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/immanelg/tg9/internal/remote"
	"github.com/immanelg/tg9/internal/state"
)

const housekeepingInterval = time.Second

// dispatcher is the slice of remote.Dispatcher the model needs. Tests
// substitute a recording fake.
type dispatcher interface {
	Submit(ctx context.Context, job remote.Job)
	Events() <-chan remote.Event
}

// startMsg kicks off the initial chat listing. It exists so the listing
// flag is set inside Update, never from Init's goroutine.
type startMsg struct{}

// remoteEventMsg wraps one event from the dispatcher channel.
type remoteEventMsg struct {
	ev remote.Event
}

type tickMsg time.Time

// Model implements tea.Model. All state mutation happens in Update; View
// only reads.
type Model struct {
	ctx      context.Context
	app      *state.App
	dispatch dispatcher

	input   textinput.Model
	spinner spinner.Model
	msgView viewport.Model

	width  int
	height int
	sized  bool

	statusLine  string
	quitConfirm bool

	theme theme
}

// New builds the model around an empty session state.
func New(ctx context.Context, d dispatcher, pageSize int) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "message..."
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accentColor)

	view := viewport.New(0, 0)
	view.MouseWheelEnabled = true

	return Model{
		ctx:        ctx,
		app:        state.New(pageSize),
		dispatch:   d,
		input:      input,
		spinner:    sp,
		msgView:    view,
		statusLine: "connecting...",
		theme:      newTheme(),
	}
}

// App exposes the session state to tests.
func (m Model) App() *state.App { return m.app }

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg { return startMsg{} },
		waitRemote(m.dispatch.Events()),
		tickEvery(housekeepingInterval),
	)
}

// waitRemote re-arms after every delivered event, so the remote channel
// feeds Update one event at a time in FIFO order.
func waitRemote(ch <-chan remote.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return remoteEventMsg{ev: ev}
	}
}

func tickEvery(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case startMsg:
		m.submit(m.app.StartRefresh())
		m.statusLine = "loading chats..."

	case remoteEventMsg:
		m.applyRemote(msg.ev)
		cmds = append(cmds, waitRemote(m.dispatch.Events()))

	case tickMsg:
		// housekeeping slot; nothing time-based yet
		cmds = append(cmds, tickEvery(housekeepingInterval))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.sized = true
		m.resize()
		m.fillMessages()

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.msgView, cmd = m.msgView.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		return m.handleKey(msg, cmds)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg, cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.quitConfirm {
		switch key {
		case "y", "Y", "enter":
			return m, tea.Quit
		case "n", "N", "esc":
			m.quitConfirm = false
			m.statusLine = "quit canceled"
		}
		return m, tea.Batch(cmds...)
	}

	inputEmpty := strings.TrimSpace(m.input.Value()) == ""

	switch key {
	case "esc":
		m.quitConfirm = true
		return m, tea.Batch(cmds...)
	case "q":
		if inputEmpty {
			m.quitConfirm = true
			return m, tea.Batch(cmds...)
		}
	case "up", "ctrl+p":
		if key == "ctrl+p" || inputEmpty {
			m.moveSelection(-1)
			return m, tea.Batch(cmds...)
		}
	case "down", "ctrl+n":
		if key == "ctrl+n" || inputEmpty {
			m.moveSelection(1)
			return m, tea.Batch(cmds...)
		}
	case "r":
		if inputEmpty {
			if m.submit(m.app.StartRefresh()) {
				m.statusLine = "refreshing chats..."
			}
			return m, tea.Batch(cmds...)
		}
	case "pgup", "ctrl+b":
		m.msgView.LineUp(8)
		if m.msgView.AtTop() {
			m.requestOlderPage()
		}
		return m, tea.Batch(cmds...)
	case "pgdown", "ctrl+f":
		m.msgView.LineDown(8)
		return m, tea.Batch(cmds...)
	case "home":
		m.msgView.GotoTop()
		m.requestOlderPage()
		return m, tea.Batch(cmds...)
	case "end":
		m.msgView.GotoBottom()
		return m, tea.Batch(cmds...)
	case "enter":
		if text := strings.TrimSpace(m.input.Value()); text != "" {
			if m.submit(m.app.StartSend(text)) {
				m.input.SetValue("")
				m.statusLine = "sending..."
			}
		}
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// applyRemote routes one remote event through the state transition and
// keeps the derived view bits (status line, message pane) in step.
func (m *Model) applyRemote(ev remote.Event) {
	wasBottom := m.msgView.AtBottom()
	m.app.Apply(ev)

	switch ev := ev.(type) {
	case remote.ChatListDone:
		m.statusLine = "ready"
	case remote.StreamClosed:
		if ev.Err != nil {
			m.statusLine = "disconnected: " + ev.Err.Error()
		} else {
			m.statusLine = "disconnected"
		}
	case remote.JobFailed:
		if ev.Err != nil {
			m.statusLine = "error: " + ev.Err.Error()
		}
	case remote.Sent:
		m.statusLine = "sent"
	}

	m.fillMessages()
	if wasBottom {
		m.msgView.GotoBottom()
	}
}

// moveSelection shifts the active chat and submits the lazy page load the
// transition admits.
func (m *Model) moveSelection(delta int) {
	if m.submit(m.app.Select(delta)) {
		m.statusLine = "loading history..."
	}
	m.fillMessages()
	m.msgView.GotoBottom()
}

func (m *Model) requestOlderPage() {
	if m.submit(m.app.LoadOlder()) {
		m.statusLine = "loading older messages..."
	}
}

// submit forwards an admitted job to the dispatcher. The two-value form
// keeps call sites as one-liners around the admission methods.
func (m *Model) submit(job remote.Job, ok bool) bool {
	if !ok {
		return false
	}
	m.dispatch.Submit(m.ctx, job)
	return true
}

func (m *Model) busy() bool {
	if m.app.Listing {
		return true
	}
	for _, c := range m.app.Chats() {
		if c.Loading || c.Sending {
			return true
		}
	}
	return false
}
