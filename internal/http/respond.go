package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"financas/internal/app"
	"financas/internal/auth"
	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/store"
)

// Generic messages for failures whose details stay in the log.
const (
	msgInternal    = "Erro interno. Tente novamente."
	msgBadRequest  = "Requisição inválida."
	msgUnavailable = "Serviço indisponível."
	msgRateLimited = "Muitas requisições. Tente novamente em instantes."
	msgInvalidDate = "Mês ou ano inválido."
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, field string) {
	writeJSON(w, status, errorBody{Error: msg, Field: field})
}

// authStatus maps auth error codes to HTTP statuses. Unlisted codes are
// backend failures.
var authStatus = map[string]int{
	auth.CodeWrongPassword: http.StatusUnauthorized,
	auth.CodeUserNotFound:  http.StatusUnauthorized,
	auth.CodeInvalidToken:  http.StatusUnauthorized,
	auth.CodeEmailInUse:    http.StatusConflict,
	auth.CodeWeakPassword:  http.StatusUnprocessableEntity,
	auth.CodeInvalidEmail:  http.StatusUnprocessableEntity,
}

// writeAppError maps err onto a status and a user-facing body. Anything not
// recognised is logged and reported as a generic 500.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var (
		verr *core.ValidationError
		aerr *auth.Error
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, verr.Message, verr.Field)
		return

	case errors.As(err, &aerr):
		status, ok := authStatus[aerr.Code]
		if !ok {
			status = http.StatusInternalServerError
			s.logFailure(r, err, applog.ComponentAuth, op)
		}
		writeJSON(w, status, errorBody{Error: aerr.Message, Code: aerr.Code})
		return

	case errors.Is(err, core.ErrInvalidMonth), errors.Is(err, core.ErrInvalidYear):
		writeError(w, http.StatusUnprocessableEntity, msgInvalidDate, "scope")
	case errors.Is(err, app.ErrUnknownToken):
		writeError(w, http.StatusNotFound, "Confirmação não encontrada.", "token")
	case errors.Is(err, app.ErrTokenExpired):
		writeError(w, http.StatusGone, "Confirmação expirada. Solicite novamente.", "token")
	case errors.Is(err, app.ErrRecordMissing), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Registro não encontrado.", "id")
	case errors.Is(err, app.ErrInvalidTarget), errors.Is(err, core.ErrInvalidKind):
		writeError(w, http.StatusUnprocessableEntity, core.MsgInvalidKind, "kind")
	case errors.Is(err, app.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, msgUnavailable, "")
	default:
		s.logFailure(r, err, applog.FromContext(r.Context()).Component(), op)
		writeError(w, http.StatusInternalServerError, msgInternal, "")
	}
}

func (s *Server) logFailure(r *http.Request, err error, component, op string) {
	ctx := r.Context()
	fields := applog.NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithUser(userFrom(ctx))
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Request failed", err, component, op, fields)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, msgRateLimited, "")
}
