package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/immanelg/tg9/internal/chat"
	"github.com/immanelg/tg9/internal/logger"
)

const (
	defaultLongPollWait = 25 * time.Second
	defaultHTTPTimeout  = 40 * time.Second
)

// restClient talks to the messaging service's JSON HTTP API. Live updates
// come from a long-polled /api/updates endpoint; the offset acts as the
// subscription position and guarantees in-order, no-gap delivery.
type restClient struct {
	http *resty.Client
	wait time.Duration

	mu      sync.Mutex
	offset  int64
	pending []updatePayload
}

// NewRestClient builds a Client over the service at baseURL, authenticated
// with the session token obtained before the core started.
func NewRestClient(baseURL, token string, wait time.Duration) Client {
	if wait <= 0 {
		wait = defaultLongPollWait
	}
	hc := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetTimeout(wait + defaultHTTPTimeout).
		SetHeader("Accept", "application/json")
	return &restClient{http: hc, wait: wait}
}

type chatPayload struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Preview string `json:"preview"`
}

type messagePayload struct {
	ID     int64  `json:"id"`
	ChatID string `json:"chat_id"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
	SentAt int64  `json:"sent_at"`
}

type messagesResponse struct {
	Messages   []messagePayload `json:"messages"`
	NextCursor string           `json:"next_cursor"`
	HasMore    bool             `json:"has_more"`
}

type updatePayload struct {
	Type       string          `json:"type"`
	ChatID     string          `json:"chat_id"`
	Message    *messagePayload `json:"message,omitempty"`
	MessageIDs []int64         `json:"message_ids,omitempty"`
}

type updatesResponse struct {
	Updates    []updatePayload `json:"updates"`
	NextOffset int64           `json:"next_offset"`
}

func (p messagePayload) toMessage() chat.Message {
	return chat.Message{
		ID:     p.ID,
		ChatID: p.ChatID,
		Sender: p.Sender,
		Text:   p.Text,
		SentAt: time.Unix(p.SentAt, 0).UTC(),
	}
}

func (c *restClient) ListChats(ctx context.Context) ([]chat.Info, error) {
	var payload []chatPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&payload).
		Get("/api/chats")
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list chats: %s", resp.Status())
	}
	infos := make([]chat.Info, 0, len(payload))
	for _, p := range payload {
		infos = append(infos, chat.Info{ID: p.ID, Title: p.Title, Preview: p.Preview})
	}
	return infos, nil
}

func (c *restClient) ListMessages(ctx context.Context, chatID string, cursor Cursor, limit int) (MessagePage, error) {
	req := c.http.R().
		SetContext(ctx).
		SetResult(&messagesResponse{}).
		SetQueryParam("limit", strconv.Itoa(limit))
	if cursor != "" {
		req.SetQueryParam("cursor", string(cursor))
	}
	resp, err := req.Get("/api/chats/" + chatID + "/messages")
	if err != nil {
		return MessagePage{}, fmt.Errorf("list messages %s: %w", chatID, err)
	}
	if resp.IsError() {
		return MessagePage{}, fmt.Errorf("list messages %s: %s", chatID, resp.Status())
	}
	body := resp.Result().(*messagesResponse)
	page := MessagePage{
		NextCursor: Cursor(body.NextCursor),
		HasMore:    body.HasMore,
	}
	for _, p := range body.Messages {
		page.Messages = append(page.Messages, p.toMessage())
	}
	return page, nil
}

func (c *restClient) SendMessage(ctx context.Context, chatID, text, idempotencyKey string) (chat.Message, error) {
	var payload messagePayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"text":            text,
			"idempotency_key": idempotencyKey,
		}).
		SetResult(&payload).
		Post("/api/chats/" + chatID + "/messages")
	if err != nil {
		return chat.Message{}, fmt.Errorf("send message %s: %w", chatID, err)
	}
	if resp.IsError() {
		return chat.Message{}, fmt.Errorf("send message %s: %s", chatID, resp.Status())
	}
	return payload.toMessage(), nil
}

// NextUpdate returns the next queued update, long-polling the service when
// the queue is empty. A 410 from the service means the subscription is
// gone for good and is surfaced as io.EOF.
func (c *restClient) NextUpdate(ctx context.Context) (Update, error) {
	for {
		c.mu.Lock()
		if len(c.pending) > 0 {
			p := c.pending[0]
			c.pending = c.pending[1:]
			c.mu.Unlock()
			if u, ok := decodeUpdate(p); ok {
				return u, nil
			}
			continue
		}
		offset := c.offset
		c.mu.Unlock()

		var body updatesResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&body).
			SetQueryParam("offset", strconv.FormatInt(offset, 10)).
			SetQueryParam("wait", strconv.Itoa(int(c.wait.Seconds()))).
			Get("/api/updates")
		if err != nil {
			return nil, fmt.Errorf("poll updates: %w", err)
		}
		if resp.StatusCode() == http.StatusGone {
			return nil, io.EOF
		}
		if resp.IsError() {
			return nil, fmt.Errorf("poll updates: %s", resp.Status())
		}

		c.mu.Lock()
		if body.NextOffset > c.offset {
			c.offset = body.NextOffset
		}
		c.pending = append(c.pending, body.Updates...)
		c.mu.Unlock()
		// empty batch = poll timed out with nothing new; go again
	}
}

func decodeUpdate(p updatePayload) (Update, bool) {
	switch p.Type {
	case "message_new":
		if p.Message == nil {
			break
		}
		return UpdateNewMessage{Message: p.Message.toMessage()}, true
	case "message_edited":
		if p.Message == nil {
			break
		}
		return UpdateEditedMessage{Message: p.Message.toMessage()}, true
	case "messages_deleted":
		return UpdateDeletedMessages{ChatID: p.ChatID, IDs: p.MessageIDs}, true
	}
	logger.Log.Debug("unknown update type skipped", zap.String("type", p.Type))
	return nil, false
}
