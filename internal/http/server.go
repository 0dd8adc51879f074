package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"casa/internal/log"
	"casa/internal/metrics"
	mwauth "casa/internal/middleware/auth"
	"casa/internal/middleware/ratelimit"
	"casa/internal/middleware/security"
	"casa/internal/middleware/trace"
	"casa/internal/services"
)

// Services are the application services behind the API.
type Services struct {
	Houses        *services.HouseService
	Expenses      *services.ExpenseService
	Chores        *services.ChoreService
	Notifications *services.NotificationService
}

// Options configure the server's cross-cutting concerns.
type Options struct {
	Tokens    mwauth.TokenValidator
	RateLimit ratelimit.Config
	Logger    *log.Logger
	// Ready reports whether dependencies are reachable, for /readyz.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	svc         Services
	ready       func(ctx context.Context) error
	rateLimiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	s := &Server{
		svc:         svc,
		ready:       opts.Ready,
		rateLimiter: ratelimit.NewLimiter(opts.RateLimit),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	authed := mwauth.RequireAuth(opts.Tokens, writeError)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authed(h))
	}

	handle("POST /houses", s.handleCreateHouse)
	handle("GET /houses", s.handleListHouses)
	handle("GET /houses/{id}", s.handleGetHouse)
	handle("PATCH /houses/{id}", s.handleRenameHouse)
	handle("POST /houses/{id}/members", s.handleAddMember)
	handle("DELETE /houses/{id}/members/{memberId}", s.handleRemoveMember)

	handle("POST /houses/{id}/expenses", s.handleCreateExpense)
	handle("GET /houses/{id}/expenses", s.handleListExpenses)
	handle("GET /houses/{id}/balance", s.handleBalance)

	handle("POST /houses/{id}/chores", s.handleCreateChore)
	handle("GET /houses/{id}/chores", s.handleListChores)
	handle("POST /chores/rotate", s.handleRotate)

	handle("GET /users/{id}/notifications", s.handleListNotifications)
	handle("POST /notifications/{id}/read", s.handleMarkRead)

	clientIP := security.NewClientIPResolver().ClientIP
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
	}

	// InstrumentHandler must wrap the mux directly so it sees the matched pattern
	var h http.Handler = metrics.InstrumentHandler(mux)
	h = s.rateLimiter.Middleware(clientIP, onLimit)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.Middleware(opts.Logger, trace.FromRequest, clientIP)(h)
	h = trace.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
