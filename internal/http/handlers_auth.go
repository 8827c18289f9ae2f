package http

import (
	"net/http"

	applog "financas/internal/log"
)

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest, "")
		return
	}
	sess, err := s.auth.SignUp(r.Context(), p.Get("email"), p.Get("password"))
	if err != nil {
		s.writeAppError(w, r, err, applog.OpSignUp)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest, "")
		return
	}
	sess, err := s.auth.Login(r.Context(), p.Get("email"), p.Get("password"))
	if err != nil {
		s.writeAppError(w, r, err, applog.OpLogin)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
