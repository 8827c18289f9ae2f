package http

import (
	"context"
	"net/http"
	"strings"

	"financas/internal/app"
	"financas/internal/auth"
	applog "financas/internal/log"
)

type ctxKey int

const (
	ctxController ctxKey = iota
	ctxUser
)

func controllerFrom(ctx context.Context) *app.Controller {
	c, _ := ctx.Value(ctxController).(*app.Controller)
	return c
}

func userFrom(ctx context.Context) string {
	u, _ := ctx.Value(ctxUser).(string)
	return u
}

// requireSession resolves the caller to a controller. With authentication
// on, a valid bearer token is required and its subject selects the session.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := ""
		if s.auth != nil {
			token, ok := bearerToken(r)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorBody{
					Error: "Faça login para continuar.",
					Code:  auth.CodeInvalidToken,
				})
				return
			}
			uid, err := s.auth.Verify(token)
			if err != nil {
				s.writeAppError(w, r, err, applog.OpValidate)
				return
			}
			user = uid
		}

		ctx = context.WithValue(ctx, ctxUser, user)
		logger := applog.FromContext(ctx)
		if user != "" {
			logger = logger.With(applog.FieldUser, user)
			ctx = context.WithValue(ctx, applog.LoggerContextKey, logger)
		}

		c, err := s.sessions.Get(ctx, user)
		if err != nil {
			s.writeAppError(w, r.WithContext(ctx), err, applog.OpRead)
			return
		}
		ctx = context.WithValue(ctx, ctxController, c)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
