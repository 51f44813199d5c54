package api

import (
	"net/http"

	"github.com/cory-johannsen/tabletop/internal/chat"
)

type sendRequest struct {
	Content string `json:"content"`
}

type resolveRequest struct {
	Text string `json:"text"`
}

func (s *Server) listMessages(ch chat.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := s.deps.Messages.List(r.Context(), ch)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

func (s *Server) postMessage(ch chat.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			res chat.SendResult
			err error
		)
		if ch == chat.ChannelRealtime {
			var in chat.RealtimeMessage
			if in, err = readJSON[chat.RealtimeMessage](w, r); err == nil {
				res, err = s.deps.Messages.SendRealtime(r.Context(), in)
			}
		} else {
			var in sendRequest
			if in, err = readJSON[sendRequest](w, r); err == nil {
				res, err = s.deps.Messages.Send(r.Context(), ch, in.Content)
			}
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func (s *Server) clearMessages(ch chat.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := s.deps.Messages.Clear(r.Context(), ch)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
	}
}

func (s *Server) resolveRisk(w http.ResponseWriter, r *http.Request) {
	in, err := readJSON[resolveRequest](w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": s.deps.Risk.ResolveCommand(in.Text)})
}
