// Package remote is the boundary to the messaging service: the abstract
// Client contract, the closed job and event unions, the worker-per-job
// Dispatcher, and a REST implementation of Client.
package remote

import (
	"context"

	"github.com/immanelg/tg9/internal/chat"
)

// Cursor is an opaque pagination token. The zero value means "nothing
// fetched yet"; exhaustion is signalled separately by MessagePage.HasMore.
type Cursor string

// MessagePage is one page of history as the service returns it,
// newest-first. The core never depends on page direction: the state layer
// normalizes into chronological order on insert.
type MessagePage struct {
	Messages   []chat.Message
	NextCursor Cursor
	HasMore    bool
}

// Client is the minimal remote-service contract the core consumes.
// Session establishment happens before the core starts; implementations
// must be safe for concurrent use, since dispatcher workers and the
// update-stream loop share one handle.
type Client interface {
	// ListChats runs one pass over the account's chats.
	ListChats(ctx context.Context) ([]chat.Info, error)

	// ListMessages fetches one page of history for a chat, starting at
	// cursor (zero Cursor = from the newest message).
	ListMessages(ctx context.Context, chatID string, cursor Cursor, limit int) (MessagePage, error)

	// SendMessage posts text to a chat. The idempotency key makes blind
	// retries by outer layers safe; the returned message is the acked copy.
	SendMessage(ctx context.Context, chatID, text, idempotencyKey string) (chat.Message, error)

	// NextUpdate blocks until the live subscription yields an update.
	// io.EOF means the stream ended cleanly; any other error is a stream
	// failure. Either way the subscription is over.
	NextUpdate(ctx context.Context) (Update, error)
}

// Update is the closed set of live events a Client can deliver.
type Update interface{ update() }

// UpdateNewMessage announces a message posted to a chat.
type UpdateNewMessage struct {
	Message chat.Message
}

// UpdateEditedMessage carries the new body of an edited message.
type UpdateEditedMessage struct {
	Message chat.Message
}

// UpdateDeletedMessages lists messages removed from a chat.
type UpdateDeletedMessages struct {
	ChatID string
	IDs    []int64
}

func (UpdateNewMessage) update() {}

func (UpdateEditedMessage) update() {}

func (UpdateDeletedMessages) update() {}

// Job is the closed set of background fetches the reducer may request.
type Job interface{ job() }

// LoadChats asks for one pass over the chat list.
type LoadChats struct{}

// LoadPage asks for one page of history for a single chat.
type LoadPage struct {
	ChatID string
	Cursor Cursor
	Limit  int
}

// Send posts a drafted message. Key is the idempotency key minted when
// the job was admitted.
type Send struct {
	ChatID string
	Text   string
	Key    string
}

func (LoadChats) job() {}

func (LoadPage) job() {}

func (Send) job() {}

// Event is the closed set of results and live updates flowing back into
// the reducer. Exactly one family of events feeds the reducer's remote
// side; per-channel FIFO is the only cross-event ordering guarantee.
type Event interface{ event() }

// ChatDiscovered reports one chat found by a LoadChats job.
type ChatDiscovered struct {
	Info chat.Info
}

// ChatListDone marks the end of a LoadChats pass.
type ChatListDone struct {
	Count int
}

// PageItem delivers one message of a LoadPage job, in fetch order.
type PageItem struct {
	ChatID  string
	Message chat.Message
}

// PageDone completes a LoadPage job and carries the cursor for the next
// page. Exhausted means there is no older history.
type PageDone struct {
	ChatID    string
	Next      Cursor
	Exhausted bool
}

// Sent acknowledges a Send job with the service's copy of the message.
type Sent struct {
	ChatID  string
	Message chat.Message
}

// LiveNew delivers a live incoming message.
type LiveNew struct {
	ChatID  string
	Message chat.Message
}

// LiveEdited delivers a live message edit.
type LiveEdited struct {
	ChatID  string
	Message chat.Message
}

// LiveDeleted delivers a live message deletion.
type LiveDeleted struct {
	ChatID string
	IDs    []int64
}

// JobFailed reports a failed job. The original job rides along so the
// reducer can clear the matching in-flight flag.
type JobFailed struct {
	Job Job
	Err error
}

// StreamClosed reports the end of the live-update subscription. Err is
// nil on clean end-of-stream.
type StreamClosed struct {
	Err error
}

func (ChatDiscovered) event() {}

func (ChatListDone) event() {}

func (PageItem) event() {}

func (PageDone) event() {}

func (Sent) event() {}

func (LiveNew) event() {}

func (LiveEdited) event() {}

func (LiveDeleted) event() {}

func (JobFailed) event() {}

func (StreamClosed) event() {}
