package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"financas/internal/app"
	"financas/internal/auth"
	applog "financas/internal/log"
	"financas/internal/middleware/ratelimit"
	"financas/internal/middleware/security"
	"financas/internal/middleware/trace"
	"financas/internal/store"
)

// Config holds what the server needs beyond its collaborators.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	// TrustedProxies extends the private ranges whose forwarded headers
	// are believed.
	TrustedProxies []string
	Logger         *applog.Logger
	// Now drives the dashboard clock; time.Now when nil.
	Now func() time.Time
}

type Server struct {
	http.Server
	sessions *app.Sessions
	auth     *auth.Service
	pinger   store.Pinger
	logger   *applog.Logger
	now      func() time.Time
	started  time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer wires the JSON API over sessions. authSvc is nil when
// authentication is off; every request then shares the anonymous session.
// pinger, when set, backs the readiness probe.
func NewServer(cfg Config, sessions *app.Sessions, authSvc *auth.Service, pinger store.Pinger) *Server {
	if cfg.Logger == nil {
		cfg.Logger = applog.FromContext(context.Background())
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		sessions: sessions,
		auth:     authSvc,
		pinger:   pinger,
		logger:   logger,
		now:      cfg.Now,
		started:  time.Now(),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		detector: security.NewDetector(),
	}
	for _, cidr := range cfg.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Recurso não encontrado.", "")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Método não permitido.", "")
	})

	r.Use(
		applog.Middleware(s.logger),
		s.tracer.Middleware,
		s.detector.Middleware,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.Mutating, s.handleRateLimited),
	)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	if s.auth != nil {
		a := r.PathPrefix("/auth").Subrouter()
		a.Use(applog.ComponentMiddleware(applog.ComponentAuth))
		a.HandleFunc("/signup", s.handleSignUp).Methods(http.MethodPost)
		a.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(applog.ComponentMiddleware(applog.ComponentSession), s.requireSession)

	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/scope", s.handleSwitchScope).Methods(http.MethodPut)
	api.HandleFunc("/profile", s.handleProfile).Methods(http.MethodGet)

	api.HandleFunc("/transactions", s.handleTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleAddTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{kind}/{id}", s.handleRequestDeleteTransaction).Methods(http.MethodDelete)
	api.HandleFunc("/expenses", s.handleExpenses).Methods(http.MethodGet)

	api.HandleFunc("/investments", s.handleInvestments).Methods(http.MethodGet)
	api.HandleFunc("/investments", s.handleAddInvestment).Methods(http.MethodPost)
	api.HandleFunc("/investments/{id}", s.handleRequestDeleteInvestment).Methods(http.MethodDelete)

	api.HandleFunc("/goals", s.handleGoals).Methods(http.MethodGet)
	api.HandleFunc("/goals", s.handleAddGoal).Methods(http.MethodPost)
	api.HandleFunc("/goals/{id}", s.handleRequestDeleteGoal).Methods(http.MethodDelete)

	api.HandleFunc("/months/current", s.handleRequestClearMonth).Methods(http.MethodDelete)

	api.HandleFunc("/confirmations/{token}", s.handleConfirmDelete).Methods(http.MethodPost)
	api.HandleFunc("/confirmations/{token}", s.handleCancelDelete).Methods(http.MethodDelete)

	return r
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
