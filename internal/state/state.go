// Package state holds the application aggregate and every state
// transition. All mutation happens through one method call at a time from
// the reducer; nothing here blocks, spawns, or touches a channel.
package state

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/immanelg/tg9/internal/chat"
	"github.com/immanelg/tg9/internal/logger"
	"github.com/immanelg/tg9/internal/remote"
)

const defaultPageSize = 30

// Chat is one conversation as the session sees it: the listing info, the
// partial message cache, the pagination position and the per-chat
// in-flight flags. Chats are never removed during a session.
type Chat struct {
	Info  chat.Info
	Cache chat.Cache

	// Cursor is where the next history page starts. Valid only after the
	// first page completed; Exhausted means there is no older history.
	Cursor    remote.Cursor
	Fetched   bool
	Exhausted bool

	// At most one page load and one send are in flight per chat.
	Loading bool
	Sending bool

	// Placeholder marks a chat synthesized from a live message that
	// arrived before the listing discovered it.
	Placeholder bool

	// LastErr is the display indicator for the most recent failed job
	// touching this chat. Cleared when a later job succeeds.
	LastErr string
}

// App is the aggregate the reducer mutates: chats in discovery order, an
// id index so lookups stay O(1), the selection, and session-wide flags.
type App struct {
	chats []*Chat
	index map[string]int

	// Selected is an index into the chat list, -1 for no selection.
	Selected int

	// Listing is the in-flight flag for the chat-list job.
	Listing bool

	// Disconnected is set once the live stream ends; no further jobs are
	// issued for the rest of the session.
	Disconnected bool
	StreamErr    string

	// Dropped counts recoverable anomalies: events referencing chats the
	// session does not know.
	Dropped int

	// ListErr is the display indicator for a failed chat listing.
	ListErr string

	PageSize int
}

// New returns an empty session state.
func New(pageSize int) *App {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &App{
		index:    make(map[string]int),
		Selected: -1,
		PageSize: pageSize,
	}
}

// Chats is the conversation list in discovery order.
func (a *App) Chats() []*Chat { return a.chats }

// Len reports the number of known chats.
func (a *App) Len() int { return len(a.chats) }

// Lookup finds a chat by identifier.
func (a *App) Lookup(id string) (*Chat, bool) {
	at, ok := a.index[id]
	if !ok {
		return nil, false
	}
	return a.chats[at], true
}

// SelectedChat returns the active conversation, if any.
func (a *App) SelectedChat() (*Chat, bool) {
	if a.Selected < 0 || a.Selected >= len(a.chats) {
		return nil, false
	}
	return a.chats[a.Selected], true
}

// Apply is the remote half of the reducer: one event in, one transition.
// Remote events never trigger new jobs; jobs come from input transitions.
func (a *App) Apply(ev remote.Event) {
	switch ev := ev.(type) {
	case remote.ChatDiscovered:
		a.discover(ev.Info)

	case remote.ChatListDone:
		a.Listing = false
		a.ListErr = ""

	case remote.PageItem:
		c, ok := a.Lookup(ev.ChatID)
		if !ok {
			a.drop("page item", ev.ChatID)
			return
		}
		a.merge(c, ev.Message)

	case remote.PageDone:
		c, ok := a.Lookup(ev.ChatID)
		if !ok {
			a.drop("page done", ev.ChatID)
			return
		}
		c.Loading = false
		c.Fetched = true
		c.Cursor = ev.Next
		c.Exhausted = ev.Exhausted
		c.LastErr = ""

	case remote.Sent:
		c, ok := a.Lookup(ev.ChatID)
		if !ok {
			a.drop("send ack", ev.ChatID)
			return
		}
		c.Sending = false
		c.LastErr = ""
		a.merge(c, ev.Message)

	case remote.LiveNew:
		c, ok := a.Lookup(ev.ChatID)
		if !ok {
			// Never lose a live message: synthesize the chat entry.
			c = a.synthesize(ev.ChatID, ev.Message.Sender)
		}
		a.merge(c, ev.Message)

	case remote.LiveEdited:
		c, ok := a.Lookup(ev.ChatID)
		if !ok {
			a.drop("live edit", ev.ChatID)
			return
		}
		c.Cache.Replace(ev.Message)
		if newest, ok := c.Cache.Newest(); ok && newest.ID == ev.Message.ID {
			c.Info.Preview = ev.Message.Text
		}

	case remote.LiveDeleted:
		c, ok := a.Lookup(ev.ChatID)
		if !ok {
			a.drop("live delete", ev.ChatID)
			return
		}
		c.Cache.Remove(ev.IDs...)

	case remote.JobFailed:
		a.failJob(ev)

	case remote.StreamClosed:
		a.Disconnected = true
		if ev.Err != nil {
			a.StreamErr = ev.Err.Error()
		}
	}
}

// Select moves the selection by delta and returns the lazy page-load job
// for the newly selected chat when one is due.
func (a *App) Select(delta int) (remote.Job, bool) {
	if len(a.chats) == 0 {
		return nil, false
	}
	next := a.Selected + delta
	if a.Selected < 0 && delta > 0 {
		next = delta - 1
	}
	next = clamp(next, 0, len(a.chats)-1)
	a.Selected = next
	return a.admitPage(a.chats[next], false)
}

// LoadOlder requests the next history page for the active chat, driven by
// the user scrolling past the oldest cached message.
func (a *App) LoadOlder() (remote.Job, bool) {
	c, ok := a.SelectedChat()
	if !ok {
		return nil, false
	}
	return a.admitPage(c, true)
}

// admitPage is the single admission point for page loads: at most one in
// flight per chat, nothing once exhausted or disconnected.
func (a *App) admitPage(c *Chat, older bool) (remote.Job, bool) {
	if a.Disconnected || c.Loading || c.Exhausted {
		return nil, false
	}
	if !older && (c.Fetched || c.Cache.Len() > 0) {
		return nil, false
	}
	if older && !c.Fetched {
		return nil, false
	}
	c.Loading = true
	return remote.LoadPage{
		ChatID: c.Info.ID,
		Cursor: c.Cursor,
		Limit:  a.PageSize,
	}, true
}

// StartRefresh admits one chat-listing pass. Discovery idempotence makes
// replays of the listing safe.
func (a *App) StartRefresh() (remote.Job, bool) {
	if a.Listing || a.Disconnected {
		return nil, false
	}
	a.Listing = true
	return remote.LoadChats{}, true
}

// StartSend admits one send for the active chat and mints its idempotency
// key.
func (a *App) StartSend(text string) (remote.Job, bool) {
	c, ok := a.SelectedChat()
	if !ok || a.Disconnected || c.Sending || text == "" {
		return nil, false
	}
	c.Sending = true
	return remote.Send{
		ChatID: c.Info.ID,
		Text:   text,
		Key:    uuid.NewString(),
	}, true
}

func (a *App) discover(info chat.Info) {
	if at, ok := a.index[info.ID]; ok {
		c := a.chats[at]
		if c.Placeholder {
			// The listing caught up with a synthesized entry: adopt the
			// real title, keep the cache.
			c.Info.Title = info.Title
			c.Placeholder = false
		}
		return
	}
	a.index[info.ID] = len(a.chats)
	a.chats = append(a.chats, &Chat{Info: info})
}

func (a *App) synthesize(id, title string) *Chat {
	if title == "" {
		title = id
	}
	c := &Chat{
		Info:        chat.Info{ID: id, Title: title},
		Placeholder: true,
	}
	a.index[id] = len(a.chats)
	a.chats = append(a.chats, c)
	logger.Log.Info("synthesized chat for live message", zap.String("chat", id))
	return c
}

// merge inserts a message and keeps the listing preview in step with the
// newest cached message.
func (a *App) merge(c *Chat, m chat.Message) {
	if !c.Cache.Insert(m) {
		return
	}
	if newest, ok := c.Cache.Newest(); ok && newest.ID == m.ID {
		c.Info.Preview = m.Text
	}
}

func (a *App) failJob(ev remote.JobFailed) {
	errText := ""
	if ev.Err != nil {
		errText = ev.Err.Error()
	}
	switch job := ev.Job.(type) {
	case remote.LoadChats:
		a.Listing = false
		a.ListErr = errText
	case remote.LoadPage:
		if c, ok := a.Lookup(job.ChatID); ok {
			c.Loading = false
			c.LastErr = errText
		}
	case remote.Send:
		if c, ok := a.Lookup(job.ChatID); ok {
			c.Sending = false
			c.LastErr = errText
		}
	}
}

func (a *App) drop(kind, chatID string) {
	a.Dropped++
	logger.Log.Debug("event for unknown chat dropped",
		zap.String("kind", kind), zap.String("chat", chatID))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
