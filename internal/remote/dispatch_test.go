package remote

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immanelg/tg9/internal/chat"
)

// fakeClient scripts remote responses; updates are fed through a channel
// so NextUpdate blocks like the real subscription.
type fakeClient struct {
	chats    []chat.Info
	chatsErr error

	pages   map[string]MessagePage
	pageErr error

	sendErr error

	updates chan Update
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		pages:   map[string]MessagePage{},
		updates: make(chan Update, 16),
	}
}

func (f *fakeClient) ListChats(context.Context) ([]chat.Info, error) {
	return f.chats, f.chatsErr
}

func (f *fakeClient) ListMessages(_ context.Context, chatID string, _ Cursor, _ int) (MessagePage, error) {
	if f.pageErr != nil {
		return MessagePage{}, f.pageErr
	}
	return f.pages[chatID], nil
}

func (f *fakeClient) SendMessage(_ context.Context, chatID, text, _ string) (chat.Message, error) {
	if f.sendErr != nil {
		return chat.Message{}, f.sendErr
	}
	return chat.Message{ID: 100, ChatID: chatID, Sender: "me", Text: text}, nil
}

func (f *fakeClient) NextUpdate(ctx context.Context) (Update, error) {
	select {
	case u, ok := <-f.updates:
		if !ok {
			return nil, io.EOF
		}
		return u, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func nextEvent(t *testing.T, d *Dispatcher) Event {
	t.Helper()
	select {
	case ev := <-d.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatcher event")
		return nil
	}
}

func TestLoadChatsEmitsDiscoveriesThenDone(t *testing.T) {
	fc := newFakeClient()
	fc.chats = []chat.Info{{ID: "1", Title: "Alice"}, {ID: "2", Title: "Bob"}}
	d := NewDispatcher(fc, 0)

	d.Submit(context.Background(), LoadChats{})

	ev := nextEvent(t, d).(ChatDiscovered)
	assert.Equal(t, "1", ev.Info.ID)
	ev2 := nextEvent(t, d).(ChatDiscovered)
	assert.Equal(t, "2", ev2.Info.ID)
	done := nextEvent(t, d).(ChatListDone)
	assert.Equal(t, 2, done.Count)
	d.Wait()
}

func TestLoadPageEmitsItemsInFetchOrderThenDone(t *testing.T) {
	fc := newFakeClient()
	fc.pages["1"] = MessagePage{
		Messages: []chat.Message{
			{ID: 9, ChatID: "1", Text: "newest"},
			{ID: 8, ChatID: "1", Text: "older"},
		},
		NextCursor: "tok",
		HasMore:    true,
	}
	d := NewDispatcher(fc, 0)

	d.Submit(context.Background(), LoadPage{ChatID: "1", Limit: 30})

	first := nextEvent(t, d).(PageItem)
	assert.Equal(t, int64(9), first.Message.ID, "items keep fetch order")
	second := nextEvent(t, d).(PageItem)
	assert.Equal(t, int64(8), second.Message.ID)

	done := nextEvent(t, d).(PageDone)
	assert.Equal(t, "1", done.ChatID)
	assert.Equal(t, Cursor("tok"), done.Next)
	assert.False(t, done.Exhausted)
	d.Wait()
}

func TestLoadPageFailureEmitsJobFailed(t *testing.T) {
	fc := newFakeClient()
	fc.pageErr = errors.New("502")
	d := NewDispatcher(fc, 0)

	job := LoadPage{ChatID: "1", Limit: 30}
	d.Submit(context.Background(), job)

	failed := nextEvent(t, d).(JobFailed)
	assert.Equal(t, job, failed.Job)
	assert.EqualError(t, failed.Err, "502")
	d.Wait()
}

func TestSendRoundTrip(t *testing.T) {
	fc := newFakeClient()
	d := NewDispatcher(fc, 0)

	d.Submit(context.Background(), Send{ChatID: "1", Text: "hello", Key: "k"})

	sent := nextEvent(t, d).(Sent)
	assert.Equal(t, "1", sent.ChatID)
	assert.Equal(t, "hello", sent.Message.Text)
	d.Wait()
}

func TestStreamUpdatesTranslatesAndClosesCleanly(t *testing.T) {
	fc := newFakeClient()
	d := NewDispatcher(fc, 0)

	fc.updates <- UpdateNewMessage{Message: chat.Message{ID: 1, ChatID: "1", Text: "hi"}}
	fc.updates <- UpdateEditedMessage{Message: chat.Message{ID: 1, ChatID: "1", Text: "hi!"}}
	fc.updates <- UpdateDeletedMessages{ChatID: "1", IDs: []int64{1}}
	close(fc.updates)

	go d.StreamUpdates(context.Background())

	live := nextEvent(t, d).(LiveNew)
	assert.Equal(t, "hi", live.Message.Text)
	edited := nextEvent(t, d).(LiveEdited)
	assert.Equal(t, "hi!", edited.Message.Text)
	deleted := nextEvent(t, d).(LiveDeleted)
	assert.Equal(t, []int64{1}, deleted.IDs)

	closed := nextEvent(t, d).(StreamClosed)
	assert.NoError(t, closed.Err)
}

func TestStreamUpdatesSurfacesFailure(t *testing.T) {
	streamErr := errors.New("connection reset")
	failing := &failingUpdateClient{fakeClient: newFakeClient(), err: streamErr}
	d := NewDispatcher(failing, 0)

	go d.StreamUpdates(context.Background())

	closed := nextEvent(t, d).(StreamClosed)
	require.ErrorIs(t, closed.Err, streamErr)
}

type failingUpdateClient struct {
	*fakeClient
	err error
}

func (f *failingUpdateClient) NextUpdate(context.Context) (Update, error) {
	return nil, f.err
}
