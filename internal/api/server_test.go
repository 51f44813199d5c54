package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/tabletop/internal/api"
	"github.com/cory-johannsen/tabletop/internal/chat"
	"github.com/cory-johannsen/tabletop/internal/game/dice"
	"github.com/cory-johannsen/tabletop/internal/game/risk"
	"github.com/cory-johannsen/tabletop/internal/realtime"
	"github.com/cory-johannsen/tabletop/internal/research"
	"github.com/cory-johannsen/tabletop/internal/storage/memory"
	"github.com/cory-johannsen/tabletop/internal/todo"
)

type stubResearcher struct{}

func (stubResearcher) Research(_ context.Context, query, todoID string) (research.Report, error) {
	if query == "" || todoID == "" {
		return research.Report{}, research.ErrInvalidRequest
	}
	if query == "upstream" {
		return research.Report{}, &research.UpstreamError{Status: 500, Body: "boom"}
	}
	return research.Report{Query: query, TodoID: todoID, Summary: "done"}, nil
}

type stubMinter struct {
	mu    sync.Mutex
	token string
	err   error
}

func (m *stubMinter) Mint(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.err
}

func (m *stubMinter) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

type stubHealth struct{ err error }

func (h stubHealth) Health(context.Context, time.Duration) error { return h.err }

type fixture struct {
	api    *api.Server
	srv    *httptest.Server
	todos  *todo.Service
	minter *stubMinter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	interp := risk.NewInterpreter(dice.NewRandSource(7), logger)
	messages := chat.NewService(memory.NewMessageStore(), interp, logger)
	todos := todo.NewService(memory.NewTodoStore(), nil, logger)
	minter := &stubMinter{token: "ek_test"}

	h := api.NewServer(api.Deps{
		Messages:   messages,
		Todos:      todos,
		Risk:       interp,
		Researcher: stubResearcher{},
		Tokens:     minter,
		Tools:      realtime.NewTools(todos, messages, logger),
		Health:     stubHealth{},
	}, logger)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &fixture{api: h, srv: srv, todos: todos, minter: minter}
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	status, body := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestHealthzUnavailable(t *testing.T) {
	h := api.NewServer(api.Deps{Health: stubHealth{err: errors.New("connection refused")}}, zaptest.NewLogger(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
}

func TestChatMessages(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodGet, "/api/chat/messages", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	status, body = f.do(t, http.MethodPost, "/api/chat/messages", `{"content":"hello"}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	res := decode[chat.SendResult](t, body)
	assert.Equal(t, "hello", res.Message.Content)
	require.NotNil(t, res.Reply)
	assert.Equal(t, "Hello! How can I help you today?", res.Reply.Content)
	assert.Equal(t, res.Message.CreatedTime+1, res.Reply.CreatedTime)

	_, body = f.do(t, http.MethodGet, "/api/chat/messages", "")
	assert.Len(t, decode[[]chat.Message](t, body), 2)

	status, body = f.do(t, http.MethodDelete, "/api/chat/messages", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"deleted":2}`, string(body))
}

func TestRiskMessages(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodPost, "/api/risk/messages", `{"content":"/howto"}`)
	require.Equal(t, http.StatusCreated, status)
	res := decode[chat.SendResult](t, body)
	assert.Equal(t, risk.HowTo, res.Reply.Content)

	status, body = f.do(t, http.MethodPost, "/api/risk/resolve", `{"text":"nonsense"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, risk.Usage, decode[map[string]string](t, body)["reply"])

	_, body = f.do(t, http.MethodGet, "/api/risk/messages", "")
	assert.Len(t, decode[[]chat.Message](t, body), 2, "resolve does not record")
}

func TestRealtimeMessages(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodPost, "/api/realtime/messages", `{"content":"go live now"}`)
	require.Equal(t, http.StatusCreated, status)
	res := decode[chat.SendResult](t, body)
	require.NotNil(t, res.Reply)
	assert.Equal(t, "Yes, this is the realtime chat! Messages appear instantly.", res.Reply.Content)

	status, body = f.do(t, http.MethodPost, "/api/realtime/messages", `{"content":"agent says hi","role":"system","createdTime":42}`)
	require.Equal(t, http.StatusCreated, status)
	res = decode[chat.SendResult](t, body)
	assert.Nil(t, res.Reply)
	assert.Equal(t, int64(42), res.Message.CreatedTime)

	status, _ = f.do(t, http.MethodPost, "/api/realtime/messages", `{"content":"x","role":"wizard"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestBadBodies(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodPost, "/api/chat/messages", `{"content":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, decode[map[string]string](t, body)["error"], "invalid JSON")

	status, _ = f.do(t, http.MethodPost, "/api/todos", "")
	assert.Equal(t, http.StatusBadRequest, status)

	huge := `{"text":"` + strings.Repeat("a", api.MaxBodyBytes) + `"}`
	rec := httptest.NewRecorder()
	f.api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/todos", bytes.NewBufferString(huge)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "body exceeds")
}

func TestTodoLifecycle(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodPost, "/api/todos", `{"text":"  buy milk  "}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	created := decode[todo.Todo](t, body)
	assert.Equal(t, "buy milk", created.Text)
	assert.False(t, created.NeedsResearch)
	path := "/api/todos/" + created.ID

	status, body = f.do(t, http.MethodPost, path+"/toggle", "")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[todo.Todo](t, body).IsCompleted)

	status, body = f.do(t, http.MethodPut, path+"/completed", `{"completed":false}`)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, decode[todo.Todo](t, body).IsCompleted)

	status, body = f.do(t, http.MethodPatch, path, `{"text":"buy oat milk","isCompleted":true}`)
	require.Equal(t, http.StatusOK, status)
	patched := decode[todo.Todo](t, body)
	assert.Equal(t, "buy oat milk", patched.Text)
	assert.True(t, patched.IsCompleted)

	status, _ = f.do(t, http.MethodPatch, path, `{}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = f.do(t, http.MethodPut, path+"/research", `{"needsResearch":true,"context":"compare brands"}`)
	require.Equal(t, http.StatusOK, status)
	flagged := decode[todo.Todo](t, body)
	assert.True(t, flagged.NeedsResearch)
	assert.Equal(t, "compare brands", flagged.Context)

	_, body = f.do(t, http.MethodGet, "/api/todos/research", "")
	assert.Len(t, decode[[]todo.Todo](t, body), 1)

	status, body = f.do(t, http.MethodPut, path+"/research-results", `{"summary":"oat is fine"}`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"summary":"oat is fine"}`, decode[todo.Todo](t, body).ResearchResults)

	status, _ = f.do(t, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, status)

	status, body = f.do(t, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"Todo not found"}`, string(body))

	status, _ = f.do(t, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, status, "deleting a missing todo is a no-op")
}

func TestTodoValidation(t *testing.T) {
	f := newFixture(t)

	status, _ := f.do(t, http.MethodPost, "/api/todos", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.do(t, http.MethodPost, "/api/todos", `{"text":"`+strings.Repeat("x", todo.MaxTextLength+1)+`"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.do(t, http.MethodPost, "/api/todos/missing/toggle", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestTodoOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.todos.Create(ctx, todo.CreateRequest{Text: "first"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := f.todos.Create(ctx, todo.CreateRequest{Text: "second"})
	require.NoError(t, err)

	_, body := f.do(t, http.MethodGet, "/api/todos", "")
	asc := decode[[]todo.Todo](t, body)
	require.Len(t, asc, 2)
	assert.Equal(t, first.ID, asc[0].ID)

	_, body = f.do(t, http.MethodGet, "/api/todos?order=desc", "")
	desc := decode[[]todo.Todo](t, body)
	require.Len(t, desc, 2)
	assert.Equal(t, second.ID, desc[0].ID)
}

func TestResearchEndpoint(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodPost, "/api/research", `{"query":"tides","todoId":"t1"}`)
	require.Equal(t, http.StatusOK, status)
	report := decode[research.Report](t, body)
	assert.Equal(t, "tides", report.Query)

	status, body = f.do(t, http.MethodPost, "/api/research", `{"query":"tides"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"error":"Query and todoId are required"}`, string(body))

	status, _ = f.do(t, http.MethodPost, "/api/research", `{"query":"upstream","todoId":"t1"}`)
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestRealtimeToken(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodGet, "/api/realtime-token", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"token":"ek_test"}`, string(body))

	f.minter.fail(realtime.ErrNotConfigured)
	status, body = f.do(t, http.MethodGet, "/api/realtime-token", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.JSONEq(t, `{"error":"OPENAI_API_KEY not set"}`, string(body))

	f.minter.fail(&realtime.UpstreamError{Status: 401, Detail: json.RawMessage(`{"code":"bad_key"}`)})
	status, body = f.do(t, http.MethodGet, "/api/realtime-token", "")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.JSONEq(t, `{"error":"Failed to create realtime session","detail":{"code":"bad_key"}}`, string(body))

	f.minter.fail(errors.New("dial tcp: refused"))
	status, body = f.do(t, http.MethodGet, "/api/realtime-token", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.JSONEq(t, `{"error":"internal server error"}`, string(body))
}

func TestRealtimeTools(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodPost, "/api/realtime/tools/add_todo", `{"text":"walk dog"}`)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.JSONEq(t, `{"result":"Added todo: walk dog"}`, string(body))

	status, body = f.do(t, http.MethodPost, "/api/realtime/tools/list_todos", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, decode[map[string]string](t, body)["result"], "walk dog [todo]")

	status, _ = f.do(t, http.MethodPost, "/api/realtime/tools/format_disk", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodPost, "/api/realtime/tools/toggle_todo", `{"id":"nope"}`)
	assert.Equal(t, http.StatusNotFound, status)

	_, body = f.do(t, http.MethodGet, "/api/realtime/messages", "")
	logged := decode[[]chat.Message](t, body)
	require.NotEmpty(t, logged)
	assert.Equal(t, chat.RoleUser, logged[0].Role)
	assert.Equal(t, "walk dog", logged[0].Content)
	for _, m := range logged {
		assert.NotEqual(t, chat.RoleSystem, m.Role, "tool mirroring never auto-replies")
	}
}
