package remote

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/immanelg/tg9/internal/logger"
)

// Dispatcher executes jobs against the Client and reports everything back
// as events on a single channel. One goroutine per job: job volume is
// bounded by the number of user-visible chats, so a pool buys nothing.
//
// The dispatcher carries no admission policy. De-duplication of page
// loads lives in the state layer, which decides before calling Submit.
type Dispatcher struct {
	client Client
	events chan Event
	wg     sync.WaitGroup
}

// NewDispatcher wires a dispatcher to a client. The buffer absorbs bursts
// of page items without stalling workers behind a busy reducer.
func NewDispatcher(client Client, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		client: client,
		events: make(chan Event, buffer),
	}
}

// Events is the single consumer channel feeding the reducer.
func (d *Dispatcher) Events() <-chan Event { return d.events }

// Submit starts the job in its own goroutine and returns immediately.
func (d *Dispatcher) Submit(ctx context.Context, job Job) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx, job)
	}()
}

// Wait blocks until all submitted jobs have finished. Used on shutdown
// and in tests; the reducer never calls it.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) run(ctx context.Context, job Job) {
	switch job := job.(type) {
	case LoadChats:
		infos, err := d.client.ListChats(ctx)
		if err != nil {
			logger.Log.Warn("chat listing failed", zap.Error(err))
			d.emit(ctx, JobFailed{Job: job, Err: err})
			return
		}
		for _, info := range infos {
			d.emit(ctx, ChatDiscovered{Info: info})
		}
		d.emit(ctx, ChatListDone{Count: len(infos)})

	case LoadPage:
		page, err := d.client.ListMessages(ctx, job.ChatID, job.Cursor, job.Limit)
		if err != nil {
			logger.Log.Warn("page load failed",
				zap.String("chat", job.ChatID), zap.Error(err))
			d.emit(ctx, JobFailed{Job: job, Err: err})
			return
		}
		// Items go out in fetch order, sequentially, from this one
		// goroutine: per-chat page ordering holds by construction.
		for _, m := range page.Messages {
			d.emit(ctx, PageItem{ChatID: job.ChatID, Message: m})
		}
		d.emit(ctx, PageDone{
			ChatID:    job.ChatID,
			Next:      page.NextCursor,
			Exhausted: !page.HasMore,
		})

	case Send:
		msg, err := d.client.SendMessage(ctx, job.ChatID, job.Text, job.Key)
		if err != nil {
			logger.Log.Warn("send failed",
				zap.String("chat", job.ChatID), zap.Error(err))
			d.emit(ctx, JobFailed{Job: job, Err: err})
			return
		}
		d.emit(ctx, Sent{ChatID: job.ChatID, Message: msg})
	}
}

// StreamUpdates pumps the live subscription into the event channel until
// the stream ends or ctx is cancelled. Run it as a goroutine; it emits
// StreamClosed exactly once on the way out.
func (d *Dispatcher) StreamUpdates(ctx context.Context) {
	for {
		update, err := d.client.NextUpdate(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Log.Info("update stream ended")
				d.emit(ctx, StreamClosed{})
			} else if ctx.Err() == nil {
				logger.Log.Warn("update stream failed", zap.Error(err))
				d.emit(ctx, StreamClosed{Err: err})
			}
			return
		}
		switch update := update.(type) {
		case UpdateNewMessage:
			d.emit(ctx, LiveNew{ChatID: update.Message.ChatID, Message: update.Message})
		case UpdateEditedMessage:
			d.emit(ctx, LiveEdited{ChatID: update.Message.ChatID, Message: update.Message})
		case UpdateDeletedMessages:
			d.emit(ctx, LiveDeleted{ChatID: update.ChatID, IDs: update.IDs})
		}
	}
}

func (d *Dispatcher) emit(ctx context.Context, ev Event) {
	select {
	case d.events <- ev:
	case <-ctx.Done():
	}
}
