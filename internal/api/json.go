package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tabletop/internal/chat"
	"github.com/cory-johannsen/tabletop/internal/realtime"
	"github.com/cory-johannsen/tabletop/internal/research"
	"github.com/cory-johannsen/tabletop/internal/todo"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

// errBadRequest marks malformed or incomplete request bodies.
var errBadRequest = errors.New("bad request")

// readJSON decodes the request body into a T.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return v, fmt.Errorf("%w: body exceeds %d bytes", errBadRequest, MaxBodyBytes)
		case errors.Is(err, io.EOF):
			return v, fmt.Errorf("%w: body is empty", errBadRequest)
		default:
			return v, fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
		}
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Error  string          `json:"error"`
	Detail json.RawMessage `json:"detail,omitempty"`
}

// writeError maps err to a status code and writes {"error": ...}.
// Unexpected errors are logged and hidden from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var rtErr *realtime.UpstreamError
	switch {
	case errors.Is(err, todo.ErrNotFound):
		body.Error = "Todo not found"
	case errors.Is(err, research.ErrInvalidRequest):
		body.Error = "Query and todoId are required"
	case errors.As(err, &rtErr):
		body.Error = "Failed to create realtime session"
		body.Detail = rtErr.Detail
	case status == http.StatusInternalServerError && !errors.Is(err, realtime.ErrNotConfigured):
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		body.Error = "internal server error"
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	var (
		tavilyErr *research.UpstreamError
		openaiErr *realtime.UpstreamError
	)
	switch {
	case errors.Is(err, todo.ErrNotFound), errors.Is(err, realtime.ErrUnknownTool):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, todo.ErrInvalidText),
		errors.Is(err, research.ErrInvalidRequest),
		errors.Is(err, chat.ErrUnknownChannel),
		errors.Is(err, chat.ErrInvalidRole),
		errors.Is(err, realtime.ErrInvalidArguments):
		return http.StatusBadRequest
	case errors.As(err, &tavilyErr), errors.As(err, &openaiErr), errors.Is(err, realtime.ErrMalformedResponse):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
