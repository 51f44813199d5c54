// Package api exposes the tabletop over HTTP: the three message logs, the
// todo list, research, and the realtime agent endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tabletop/internal/chat"
	"github.com/cory-johannsen/tabletop/internal/observability"
	"github.com/cory-johannsen/tabletop/internal/research"
	"github.com/cory-johannsen/tabletop/internal/todo"
)

// Messages is the message log service.
type Messages interface {
	List(ctx context.Context, channel chat.Channel) ([]chat.Message, error)
	Send(ctx context.Context, channel chat.Channel, content string) (chat.SendResult, error)
	SendRealtime(ctx context.Context, in chat.RealtimeMessage) (chat.SendResult, error)
	Clear(ctx context.Context, channel chat.Channel) (int64, error)
}

// Todos is the todo list service.
type Todos interface {
	List(ctx context.Context) ([]todo.Todo, error)
	ListNewestFirst(ctx context.Context) ([]todo.Todo, error)
	ListNeedingResearch(ctx context.Context) ([]todo.Todo, error)
	Get(ctx context.Context, id string) (todo.Todo, error)
	Create(ctx context.Context, req todo.CreateRequest) (todo.Todo, error)
	Toggle(ctx context.Context, id string) (todo.Todo, error)
	Remove(ctx context.Context, id string) error
	UpdateText(ctx context.Context, id, text string) (todo.Todo, error)
	SetCompleted(ctx context.Context, id string, done bool) (todo.Todo, error)
	MarkForResearch(ctx context.Context, id string, needs bool, note string) (todo.Todo, error)
	UpdateResearchData(ctx context.Context, id string, data any) (todo.Todo, error)
}

// RiskResolver answers a Risk table line without recording it.
type RiskResolver interface {
	ResolveCommand(text string) string
}

// Researcher produces research reports on demand.
type Researcher interface {
	Research(ctx context.Context, query, todoID string) (research.Report, error)
}

// TokenMinter issues realtime client secrets.
type TokenMinter interface {
	Mint(ctx context.Context) (string, error)
}

// ToolRunner executes realtime agent tool calls.
type ToolRunner interface {
	Call(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// HealthChecker reports database reachability.
type HealthChecker interface {
	Health(ctx context.Context, timeout time.Duration) error
}

// Deps are the services behind the HTTP surface.
type Deps struct {
	Messages   Messages
	Todos      Todos
	Risk       RiskResolver
	Researcher Researcher
	Tokens     TokenMinter
	Tools      ToolRunner
	Health     HealthChecker
}

// Server is the HTTP handler for the whole API.
type Server struct {
	deps   Deps
	logger *zap.Logger
	router chi.Router
}

// NewServer builds the router.
//
// Precondition: every field of deps and logger must be non-nil.
func NewServer(deps Deps, logger *zap.Logger) *Server {
	s := &Server{deps: deps, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)

	r.Route("/api", func(r chi.Router) {
		for _, ch := range []chat.Channel{chat.ChannelChat, chat.ChannelRisk, chat.ChannelRealtime} {
			r.Route("/"+string(ch)+"/messages", func(r chi.Router) {
				r.Get("/", s.listMessages(ch))
				r.Post("/", s.postMessage(ch))
				r.Delete("/", s.clearMessages(ch))
			})
		}
		r.Post("/risk/resolve", s.resolveRisk)

		r.Route("/todos", func(r chi.Router) {
			r.Get("/", s.listTodos)
			r.Post("/", s.createTodo)
			r.Get("/research", s.listTodosNeedingResearch)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getTodo)
				r.Patch("/", s.patchTodo)
				r.Delete("/", s.deleteTodo)
				r.Post("/toggle", s.toggleTodo)
				r.Put("/completed", s.setCompleted)
				r.Put("/research", s.markForResearch)
				r.Put("/research-results", s.saveResearchResults)
			})
		})

		r.Post("/research", s.runResearch)
		r.Get("/realtime-token", s.realtimeToken)
		r.Post("/realtime/tools/{name}", s.callTool)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Health.Health(r.Context(), 2*time.Second); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
