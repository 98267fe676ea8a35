package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// QueueItem is an operator-added "do this next" note tied to the active
// session. Queue entries are ephemeral: they live in memory and vanish
// on daemon restart.
type QueueItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Queue holds per-repo session queues.
type Queue struct {
	mu    sync.Mutex
	items map[string][]QueueItem
}

// NewQueue creates an empty queue set.
func NewQueue() *Queue {
	return &Queue{items: map[string][]QueueItem{}}
}

// Add appends a titled entry and returns it.
func (q *Queue) Add(repoID, title string) (QueueItem, error) {
	if strings.TrimSpace(title) == "" {
		return QueueItem{}, fmt.Errorf("queue entry title must not be empty")
	}
	item := QueueItem{ID: uuid.NewString(), Title: title}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items[repoID] = append(q.items[repoID], item)
	return item, nil
}

// List returns the queue in insertion order.
func (q *Queue) List(repoID string) []QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := make([]QueueItem, len(q.items[repoID]))
	copy(items, q.items[repoID])
	return items
}

// Remove deletes one entry by id. Unknown ids are reported.
func (q *Queue) Remove(repoID, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items[repoID]
	for i, item := range items {
		if item.ID == id {
			q.items[repoID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("queue entry %s not found", id)
}

// Clear drops a repo's whole queue, for session clear.
func (q *Queue) Clear(repoID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.items, repoID)
}
