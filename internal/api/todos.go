package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cory-johannsen/tabletop/internal/todo"
)

type patchTodoRequest struct {
	Text        *string `json:"text"`
	IsCompleted *bool   `json:"isCompleted"`
}

type completedRequest struct {
	Completed bool `json:"completed"`
}

type researchFlagRequest struct {
	NeedsResearch bool   `json:"needsResearch"`
	Context       string `json:"context"`
}

func (s *Server) listTodos(w http.ResponseWriter, r *http.Request) {
	list := s.deps.Todos.List
	if r.URL.Query().Get("order") == "desc" {
		list = s.deps.Todos.ListNewestFirst
	}
	todos, err := list(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) listTodosNeedingResearch(w http.ResponseWriter, r *http.Request) {
	todos, err := s.deps.Todos.ListNeedingResearch(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) createTodo(w http.ResponseWriter, r *http.Request) {
	in, err := readJSON[todo.CreateRequest](w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.deps.Todos.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getTodo(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Todos.Get(r.Context(), chi.URLParam(r, "id"))
	s.writeTodo(w, r, t, err)
}

func (s *Server) patchTodo(w http.ResponseWriter, r *http.Request) {
	in, err := readJSON[patchTodoRequest](w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.Text == nil && in.IsCompleted == nil {
		s.writeError(w, r, fmt.Errorf("%w: nothing to update", errBadRequest))
		return
	}

	id := chi.URLParam(r, "id")
	var t todo.Todo
	if in.Text != nil {
		if t, err = s.deps.Todos.UpdateText(r.Context(), id, *in.Text); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if in.IsCompleted != nil {
		t, err = s.deps.Todos.SetCompleted(r.Context(), id, *in.IsCompleted)
	}
	s.writeTodo(w, r, t, err)
}

func (s *Server) deleteTodo(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Todos.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleTodo(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Todos.Toggle(r.Context(), chi.URLParam(r, "id"))
	s.writeTodo(w, r, t, err)
}

func (s *Server) setCompleted(w http.ResponseWriter, r *http.Request) {
	in, err := readJSON[completedRequest](w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.deps.Todos.SetCompleted(r.Context(), chi.URLParam(r, "id"), in.Completed)
	s.writeTodo(w, r, t, err)
}

func (s *Server) markForResearch(w http.ResponseWriter, r *http.Request) {
	in, err := readJSON[researchFlagRequest](w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.deps.Todos.MarkForResearch(r.Context(), chi.URLParam(r, "id"), in.NeedsResearch, in.Context)
	s.writeTodo(w, r, t, err)
}

// saveResearchResults stores the request body, any JSON value, as the
// todo's research results.
func (s *Server) saveResearchResults(w http.ResponseWriter, r *http.Request) {
	in, err := readJSON[json.RawMessage](w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.deps.Todos.UpdateResearchData(r.Context(), chi.URLParam(r, "id"), in)
	s.writeTodo(w, r, t, err)
}

func (s *Server) writeTodo(w http.ResponseWriter, r *http.Request, t todo.Todo, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
