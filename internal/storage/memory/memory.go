// Package memory provides in-process message and todo stores for running
// the tabletop without PostgreSQL. Contents are lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cory-johannsen/tabletop/internal/chat"
	"github.com/cory-johannsen/tabletop/internal/todo"
)

// MessageStore is an in-memory chat.Store.
type MessageStore struct {
	mu   sync.Mutex
	msgs []chat.Message
}

// NewMessageStore returns an empty MessageStore.
func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

// Append stores msgs in order. Unknown channels reject the whole batch.
func (s *MessageStore) Append(_ context.Context, msgs ...chat.Message) error {
	for _, m := range msgs {
		if _, err := chat.ParseChannel(string(m.Channel)); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msgs...)
	return nil
}

// List returns a channel's messages by created time, ties in insertion order.
func (s *MessageStore) List(_ context.Context, channel chat.Channel) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []chat.Message{}
	for _, m := range s.msgs {
		if m.Channel == channel {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedTime < out[j].CreatedTime })
	return out, nil
}

// Clear removes a channel's messages and returns how many were removed.
func (s *MessageStore) Clear(_ context.Context, channel chat.Channel) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.msgs[:0]
	var n int64
	for _, m := range s.msgs {
		if m.Channel == channel {
			n++
			continue
		}
		kept = append(kept, m)
	}
	s.msgs = kept
	return n, nil
}

// TodoStore is an in-memory todo.Store.
type TodoStore struct {
	mu    sync.Mutex
	todos map[string]todo.Todo
	seq   map[string]int
	next  int
}

// NewTodoStore returns an empty TodoStore.
func NewTodoStore() *TodoStore {
	return &TodoStore{todos: make(map[string]todo.Todo), seq: make(map[string]int)}
}

// Insert stores a new todo.
func (s *TodoStore) Insert(_ context.Context, t todo.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.todos[t.ID]; dup {
		return fmt.Errorf("todo %s already exists", t.ID)
	}
	s.todos[t.ID] = t
	s.seq[t.ID] = s.next
	s.next++
	return nil
}

// Get returns a todo or todo.ErrNotFound.
func (s *TodoStore) Get(_ context.Context, id string) (todo.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.todos[id]
	if !ok {
		return todo.Todo{}, todo.ErrNotFound
	}
	return t, nil
}

// List returns every todo ordered by creation.
func (s *TodoStore) List(_ context.Context, newestFirst bool) ([]todo.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(newestFirst, func(todo.Todo) bool { return true }), nil
}

// ListNeedingResearch returns flagged todos, oldest first.
func (s *TodoStore) ListNeedingResearch(_ context.Context) ([]todo.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(false, func(t todo.Todo) bool { return t.NeedsResearch }), nil
}

func (s *TodoStore) sorted(newestFirst bool, keep func(todo.Todo) bool) []todo.Todo {
	out := []todo.Todo{}
	for _, t := range s.todos {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if newestFirst {
			a, b = b, a
		}
		if a.CreatedTime != b.CreatedTime {
			return a.CreatedTime < b.CreatedTime
		}
		return s.seq[a.ID] < s.seq[b.ID]
	})
	return out
}

// Update applies the non-nil fields of p.
func (s *TodoStore) Update(_ context.Context, id string, p todo.Patch) (todo.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.todos[id]
	if !ok {
		return todo.Todo{}, todo.ErrNotFound
	}
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.IsCompleted != nil {
		t.IsCompleted = *p.IsCompleted
	}
	if p.NeedsResearch != nil {
		t.NeedsResearch = *p.NeedsResearch
	}
	if p.Context != nil {
		t.Context = *p.Context
	}
	if p.ResearchResults != nil {
		t.ResearchResults = *p.ResearchResults
	}
	s.todos[id] = t
	return t, nil
}

// Toggle flips completion atomically.
func (s *TodoStore) Toggle(_ context.Context, id string) (todo.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.todos[id]
	if !ok {
		return todo.Todo{}, todo.ErrNotFound
	}
	t.IsCompleted = !t.IsCompleted
	s.todos[id] = t
	return t, nil
}

// ClaimResearch sets ResearchScheduled and reports whether this call set it.
func (s *TodoStore) ClaimResearch(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.todos[id]
	if !ok {
		return false, todo.ErrNotFound
	}
	if t.ResearchScheduled {
		return false, nil
	}
	t.ResearchScheduled = true
	s.todos[id] = t
	return true, nil
}

// Delete removes a todo; missing ids are ignored.
func (s *TodoStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.todos, id)
	delete(s.seq, id)
	return nil
}

// Health reports the store as reachable. It lets the in-memory backend
// stand in for the database pool in health checks.
func (s *MessageStore) Health(context.Context, time.Duration) error {
	return nil
}
