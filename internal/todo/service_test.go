package todo_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/tabletop/internal/todo"
)

// memStore is an in-memory todo.Store.
type memStore struct {
	mu    sync.Mutex
	todos map[string]todo.Todo
	order []string
}

func newMemStore() *memStore {
	return &memStore{todos: make(map[string]todo.Todo)}
}

func (m *memStore) Insert(_ context.Context, t todo.Todo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.todos[t.ID] = t
	m.order = append(m.order, t.ID)
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (todo.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.todos[id]
	if !ok {
		return todo.Todo{}, todo.ErrNotFound
	}
	return t, nil
}

func (m *memStore) List(_ context.Context, newestFirst bool) ([]todo.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]todo.Todo, 0, len(m.order))
	for _, id := range m.order {
		if t, ok := m.todos[id]; ok {
			out = append(out, t)
		}
	}
	if newestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (m *memStore) ListNeedingResearch(ctx context.Context) ([]todo.Todo, error) {
	all, _ := m.List(ctx, false)
	var out []todo.Todo
	for _, t := range all {
		if t.NeedsResearch {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, id string, p todo.Patch) (todo.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.todos[id]
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
	m.todos[id] = t
	return t, nil
}

func (m *memStore) Toggle(ctx context.Context, id string) (todo.Todo, error) {
	t, err := m.Get(ctx, id)
	if err != nil {
		return todo.Todo{}, err
	}
	done := !t.IsCompleted
	return m.Update(ctx, id, todo.Patch{IsCompleted: &done})
}

func (m *memStore) ClaimResearch(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.todos[id]
	if !ok {
		return false, todo.ErrNotFound
	}
	if t.ResearchScheduled {
		return false, nil
	}
	t.ResearchScheduled = true
	m.todos[id] = t
	return true, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.todos, id)
	return nil
}

// recordingQueue captures enqueued research jobs.
type recordingQueue struct {
	mu   sync.Mutex
	jobs [][2]string
	err  error
}

func (q *recordingQueue) Enqueue(todoID, query string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, [2]string{todoID, query})
	return nil
}

func boolPtr(b bool) *bool { return &b }

func newService(t *testing.T) (*todo.Service, *memStore, *recordingQueue) {
	t.Helper()
	store := newMemStore()
	queue := &recordingQueue{}
	return todo.NewService(store, queue, zaptest.NewLogger(t)), store, queue
}

func TestCreate_TrimsAndValidates(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, todo.CreateRequest{Text: "  buy milk  "})
	require.NoError(t, err)
	assert.Equal(t, "buy milk", created.Text)
	assert.False(t, created.IsCompleted)
	assert.NotEmpty(t, created.ID)
	assert.NotZero(t, created.CreatedTime)

	_, err = svc.Create(ctx, todo.CreateRequest{Text: "   "})
	assert.ErrorIs(t, err, todo.ErrInvalidText)

	_, err = svc.Create(ctx, todo.CreateRequest{Text: strings.Repeat("x", todo.MaxTextLength+1)})
	assert.ErrorIs(t, err, todo.ErrInvalidText)
}

func TestCreate_DetectsResearchAndSchedulesOnce(t *testing.T) {
	svc, store, queue := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, todo.CreateRequest{Text: "Compare e-bikes"})
	require.NoError(t, err)
	assert.True(t, created.NeedsResearch)
	assert.True(t, created.ResearchScheduled)
	assert.Contains(t, created.Context, `"compare"`)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, [2]string{created.ID, "Compare e-bikes"}, queue.jobs[0])

	// Re-marking an already flagged todo never schedules again.
	_, err = svc.MarkForResearch(ctx, created.ID, true, "again")
	require.NoError(t, err)
	assert.Len(t, queue.jobs, 1)

	stored, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.ResearchScheduled)
}

func TestCreate_ExplicitFlagOverridesClassifier(t *testing.T) {
	svc, _, queue := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, todo.CreateRequest{Text: "research nothing", NeedsResearch: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, created.NeedsResearch)
	assert.Empty(t, queue.jobs)

	note := "agent says so"
	created, err = svc.Create(ctx, todo.CreateRequest{Text: "paint fence", NeedsResearch: boolPtr(true), Context: &note})
	require.NoError(t, err)
	assert.Equal(t, "agent says so", created.Context)
	assert.Len(t, queue.jobs, 1)
}

func TestMarkForResearch_SchedulesOnTransition(t *testing.T) {
	svc, _, queue := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, todo.CreateRequest{Text: "buy milk"})
	require.NoError(t, err)
	assert.Empty(t, queue.jobs)

	marked, err := svc.MarkForResearch(ctx, created.ID, true, "price check")
	require.NoError(t, err)
	assert.True(t, marked.NeedsResearch)
	assert.True(t, marked.ResearchScheduled)
	assert.Equal(t, "price check", marked.Context)
	assert.Len(t, queue.jobs, 1)

	// Turning research off and on again does not reschedule: the flag sticks.
	_, err = svc.MarkForResearch(ctx, created.ID, false, "")
	require.NoError(t, err)
	_, err = svc.MarkForResearch(ctx, created.ID, true, "again")
	require.NoError(t, err)
	assert.Len(t, queue.jobs, 1)
}

func TestCreate_QueueFailureIsLogged(t *testing.T) {
	svc, _, queue := newService(t)
	queue.err = errors.New("queue full")

	created, err := svc.Create(context.Background(), todo.CreateRequest{Text: "study Go"})
	require.NoError(t, err)
	assert.True(t, created.ResearchScheduled)
}

func TestMutations_NotFound(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Toggle(ctx, "missing")
	assert.ErrorIs(t, err, todo.ErrNotFound)
	_, err = svc.UpdateText(ctx, "missing", "x")
	assert.ErrorIs(t, err, todo.ErrNotFound)
	_, err = svc.SetCompleted(ctx, "missing", true)
	assert.ErrorIs(t, err, todo.ErrNotFound)
	_, err = svc.MarkForResearch(ctx, "missing", true, "")
	assert.ErrorIs(t, err, todo.ErrNotFound)
	_, err = svc.SaveResearchResults(ctx, "missing", "{}")
	assert.ErrorIs(t, err, todo.ErrNotFound)
	assert.NoError(t, svc.Remove(ctx, "missing"))
	assert.EqualError(t, todo.ErrNotFound, "todo not found")
}

func TestToggleUpdateAndLists(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, todo.CreateRequest{Text: "first"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, todo.CreateRequest{Text: "learn about tides"})
	require.NoError(t, err)

	toggled, err := svc.Toggle(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsCompleted)

	set, err := svc.SetCompleted(ctx, a.ID, false)
	require.NoError(t, err)
	assert.False(t, set.IsCompleted)

	updated, err := svc.UpdateText(ctx, a.ID, " renamed ")
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Text)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)

	newest, err := svc.ListNewestFirst(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, newest[0].ID)

	research, err := svc.ListNeedingResearch(ctx)
	require.NoError(t, err)
	require.Len(t, research, 1)
	assert.Equal(t, b.ID, research[0].ID)

	require.NoError(t, svc.Remove(ctx, a.ID))
	_, err = svc.Get(ctx, a.ID)
	assert.ErrorIs(t, err, todo.ErrNotFound)
}

func TestUpdateResearchData_StoresJSON(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, todo.CreateRequest{Text: "x"})
	require.NoError(t, err)

	got, err := svc.UpdateResearchData(ctx, created.ID, map[string]any{"query": "x", "resultCount": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":"x","resultCount":1}`, got.ResearchResults)

	_, err = svc.UpdateResearchData(ctx, created.ID, make(chan int))
	assert.Error(t, err)
}
