package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type researchRequest struct {
	Query  string `json:"query"`
	TodoID string `json:"todoId"`
}

func (s *Server) runResearch(w http.ResponseWriter, r *http.Request) {
	in, err := readJSON[researchRequest](w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.deps.Researcher.Research(r.Context(), in.Query, in.TodoID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) realtimeToken(w http.ResponseWriter, r *http.Request) {
	token, err := s.deps.Tokens.Mint(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) callTool(w http.ResponseWriter, r *http.Request) {
	args := json.RawMessage("{}")
	if r.ContentLength != 0 {
		in, err := readJSON[json.RawMessage](w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		args = in
	}
	result, err := s.deps.Tools.Call(r.Context(), chi.URLParam(r, "name"), args)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": result})
}
