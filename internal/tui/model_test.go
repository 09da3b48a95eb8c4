package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immanelg/tg9/internal/chat"
	"github.com/immanelg/tg9/internal/remote"
)

// fakeDispatch records submitted jobs instead of running them.
type fakeDispatch struct {
	jobs   []remote.Job
	events chan remote.Event
}

func newFakeDispatch() *fakeDispatch {
	return &fakeDispatch{events: make(chan remote.Event, 16)}
}

func (f *fakeDispatch) Submit(_ context.Context, job remote.Job) {
	f.jobs = append(f.jobs, job)
}

func (f *fakeDispatch) Events() <-chan remote.Event { return f.events }

func newTestModel() (Model, *fakeDispatch) {
	d := newFakeDispatch()
	return New(context.Background(), d, 30), d
}

func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func feedRemote(t *testing.T, m Model, evs ...remote.Event) Model {
	t.Helper()
	for _, ev := range evs {
		m, _ = step(t, m, remoteEventMsg{ev: ev})
	}
	return m
}

func keyPress(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func TestStartIssuesOneChatListing(t *testing.T) {
	m, d := newTestModel()
	m, _ = step(t, m, startMsg{})

	require.Len(t, d.jobs, 1)
	assert.IsType(t, remote.LoadChats{}, d.jobs[0])
	assert.True(t, m.app.Listing)
}

// Scenario A at the UI level: two chats discovered, one "down" press,
// exactly one page load for the first chat.
func TestDownSelectsFirstChatAndLoadsIt(t *testing.T) {
	m, d := newTestModel()
	m = feedRemote(t, m,
		remote.ChatDiscovered{Info: chat.Info{ID: "1", Title: "Alice"}},
		remote.ChatDiscovered{Info: chat.Info{ID: "2", Title: "Bob"}},
	)

	m, _ = step(t, m, keyPress(tea.KeyDown))

	require.Len(t, d.jobs, 1)
	load, ok := d.jobs[0].(remote.LoadPage)
	require.True(t, ok)
	assert.Equal(t, "1", load.ChatID)
	assert.Equal(t, 0, m.app.Selected)
}

// Scenario B: re-triggering a load for a chat with one in flight submits
// nothing.
func TestReselectingLoadingChatSubmitsNoSecondJob(t *testing.T) {
	m, d := newTestModel()
	m = feedRemote(t, m,
		remote.ChatDiscovered{Info: chat.Info{ID: "1", Title: "Alice"}},
	)

	m, _ = step(t, m, keyPress(tea.KeyDown))
	require.Len(t, d.jobs, 1)

	// selection clamps onto the same chat; its load is still pending
	m, _ = step(t, m, keyPress(tea.KeyDown))
	m, _ = step(t, m, keyPress(tea.KeyUp))
	assert.Len(t, d.jobs, 1)
}

func TestEnterSendsDraftOnce(t *testing.T) {
	m, d := newTestModel()
	m = feedRemote(t, m,
		remote.ChatDiscovered{Info: chat.Info{ID: "1", Title: "Alice"}},
	)
	m, _ = step(t, m, keyPress(tea.KeyDown))
	d.jobs = nil

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi there")})
	m, _ = step(t, m, keyPress(tea.KeyEnter))

	require.Len(t, d.jobs, 1)
	send, ok := d.jobs[0].(remote.Send)
	require.True(t, ok)
	assert.Equal(t, "1", send.ChatID)
	assert.Equal(t, "hi there", send.Text)
	assert.NotEmpty(t, send.Key)
	assert.Empty(t, m.input.Value(), "draft cleared after submit")

	// empty draft submits nothing
	m, _ = step(t, m, keyPress(tea.KeyEnter))
	assert.Len(t, d.jobs, 1)
}

func TestLiveMessageReachesViewState(t *testing.T) {
	m, _ := newTestModel()
	m = feedRemote(t, m, remote.LiveNew{ChatID: "7", Message: chat.Message{
		ID: 1, ChatID: "7", Sender: "eve", Text: "psst",
	}})

	c, ok := m.app.Lookup("7")
	require.True(t, ok)
	assert.True(t, c.Placeholder)
	assert.Equal(t, 1, c.Cache.Len())
}

func TestStreamClosedBlocksNavigationJobs(t *testing.T) {
	m, d := newTestModel()
	m = feedRemote(t, m,
		remote.ChatDiscovered{Info: chat.Info{ID: "1", Title: "Alice"}},
		remote.StreamClosed{Err: errors.New("gone")},
	)

	assert.Contains(t, m.statusLine, "disconnected")

	m, _ = step(t, m, keyPress(tea.KeyDown))
	assert.Empty(t, d.jobs)
}

func TestQuitConfirmFlow(t *testing.T) {
	m, _ := newTestModel()

	m, _ = step(t, m, keyPress(tea.KeyEsc))
	assert.True(t, m.quitConfirm)

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.False(t, m.quitConfirm)

	m, _ = step(t, m, keyPress(tea.KeyEsc))
	_, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestJobFailureSurfacesInStatusLine(t *testing.T) {
	m, _ := newTestModel()
	m = feedRemote(t, m,
		remote.ChatDiscovered{Info: chat.Info{ID: "1", Title: "Alice"}},
	)
	m, _ = step(t, m, keyPress(tea.KeyDown))

	m = feedRemote(t, m, remote.JobFailed{
		Job: remote.LoadPage{ChatID: "1"},
		Err: errors.New("502"),
	})

	assert.Contains(t, m.statusLine, "502")
	c, _ := m.app.Lookup("1")
	assert.False(t, c.Loading)
}
