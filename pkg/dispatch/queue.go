package dispatch

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a routing request deferred until the navigation host is ready.
type Entry struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Partial    Partial   `json:"partial"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// queue is a FIFO of pending entries. It is not safe for concurrent use;
// the dispatcher guards it with its mutex.
type queue struct {
	entries []Entry
}

func (q *queue) push(url string, p Partial, now time.Time) Entry {
	e := Entry{
		ID:         uuid.NewString(),
		URL:        url,
		Partial:    p,
		EnqueuedAt: now,
	}
	q.entries = append(q.entries, e)
	return e
}

// pop removes and returns the oldest entry.
func (q *queue) pop() (Entry, bool) {
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	e := q.entries[0]
	q.entries[0] = Entry{}
	q.entries = q.entries[1:]
	return e, true
}

func (q *queue) len() int { return len(q.entries) }

func (q *queue) snapshot() []Entry {
	return append([]Entry(nil), q.entries...)
}
