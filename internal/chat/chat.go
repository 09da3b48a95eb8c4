// Package chat defines the message and conversation value types shared by
// the remote client, the application state and the UI.
package chat

import (
	"sort"
	"time"
)

// Info is the remote service's summary of one chat: an opaque stable
// identifier plus what the chat list renders.
type Info struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Preview string `json:"preview"`
}

// Message is one chat message. ID is assigned by the service and is
// monotonically increasing within its chat, so it doubles as the
// chronological sort key.
type Message struct {
	ID     int64     `json:"id"`
	ChatID string    `json:"chat_id"`
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// Cache is the ordered partial view of one chat's history. Messages are
// kept oldest-first with no duplicate IDs: paginated history prepends at
// the old end, live messages append at the new end, and anything arriving
// out of order is placed by binary search. Duplicate delivery from the
// network layer is absorbed by the seen set.
type Cache struct {
	msgs []Message
	seen map[int64]struct{}
}

// Insert merges m into the cache, preserving ID order. It reports whether
// the cache changed; a duplicate ID is a no-op.
func (c *Cache) Insert(m Message) bool {
	if c.seen == nil {
		c.seen = make(map[int64]struct{})
	}
	if _, dup := c.seen[m.ID]; dup {
		return false
	}
	c.seen[m.ID] = struct{}{}

	switch {
	case len(c.msgs) == 0 || m.ID > c.msgs[len(c.msgs)-1].ID:
		c.msgs = append(c.msgs, m)
	case m.ID < c.msgs[0].ID:
		c.msgs = append([]Message{m}, c.msgs...)
	default:
		at := sort.Search(len(c.msgs), func(i int) bool { return c.msgs[i].ID > m.ID })
		c.msgs = append(c.msgs, Message{})
		copy(c.msgs[at+1:], c.msgs[at:])
		c.msgs[at] = m
	}
	return true
}

// Replace swaps the stored body of an already-cached message, keeping its
// position. Unknown IDs are ignored.
func (c *Cache) Replace(m Message) bool {
	if _, ok := c.seen[m.ID]; !ok {
		return false
	}
	at := c.indexOf(m.ID)
	if at < 0 {
		return false
	}
	c.msgs[at] = m
	return true
}

// Remove drops the messages with the given IDs. The IDs stay in the seen
// set so a late duplicate of a deleted message does not resurrect it.
func (c *Cache) Remove(ids ...int64) int {
	removed := 0
	for _, id := range ids {
		if at := c.indexOf(id); at >= 0 {
			c.msgs = append(c.msgs[:at], c.msgs[at+1:]...)
			removed++
		}
	}
	return removed
}

func (c *Cache) indexOf(id int64) int {
	at := sort.Search(len(c.msgs), func(i int) bool { return c.msgs[i].ID >= id })
	if at < len(c.msgs) && c.msgs[at].ID == id {
		return at
	}
	return -1
}

// Len reports the number of cached messages.
func (c *Cache) Len() int { return len(c.msgs) }

// Messages exposes the cached sequence, oldest first. Callers must not
// mutate the returned slice.
func (c *Cache) Messages() []Message { return c.msgs }

// Newest returns the most recent cached message, if any.
func (c *Cache) Newest() (Message, bool) {
	if len(c.msgs) == 0 {
		return Message{}, false
	}
	return c.msgs[len(c.msgs)-1], true
}
