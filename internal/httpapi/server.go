package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/ivanoskov/finance_tracker/internal/charts"
	"github.com/ivanoskov/finance_tracker/internal/model"
	"github.com/ivanoskov/finance_tracker/internal/service"
)

// userState - открытый дашборд одной сессии
type userState struct {
	mu        sync.Mutex
	dashboard service.Dashboard
}

// Server - HTTP API трекера. Дашборды хранятся на сервере по токену доступа.
type Server struct {
	tracker *service.Tracker
	auth    *service.AuthService
	charts  *charts.ChartGenerator
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	states map[string]*userState
}

func NewServer(tracker *service.Tracker, auth *service.AuthService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		tracker: tracker,
		auth:    auth,
		charts:  charts.NewChartGenerator(),
		logger:  logger,
		now:     time.Now,
		states:  make(map[string]*userState),
	}
}

// Router собирает маршруты API
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)

	api := r.NewRoute().Subrouter()
	api.Use(s.authenticate)
	api.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions", s.handleClearTransactions).Methods(http.MethodDelete)
	api.HandleFunc("/transactions/{id}", s.handleUpdateTransaction).Methods(http.MethodPut)
	api.HandleFunc("/transactions/{id}", s.handleDeleteTransaction).Methods(http.MethodDelete)
	api.HandleFunc("/budgets", s.handleSaveBudget).Methods(http.MethodPut)
	api.HandleFunc("/budgets/{id}", s.handleDeleteBudget).Methods(http.MethodDelete)
	api.HandleFunc("/rules", s.handleCreateRule).Methods(http.MethodPost)
	api.HandleFunc("/rules/{id}", s.handleDeleteRule).Methods(http.MethodDelete)
	api.HandleFunc("/chart.png", s.handleChart).Methods(http.MethodGet)
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)

	return r
}

type contextKey int

const sessionKey contextKey = iota

func sessionFrom(ctx context.Context) *model.Session {
	session, _ := ctx.Value(sessionKey).(*model.Session)
	return session
}

// authenticate проверяет Bearer-токен и кладет сессию в контекст запроса
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		session, err := s.auth.Current(r.Context(), token)
		if err != nil {
			s.forget(token)
			s.writeFailure(w, r, err)
			return
		}
		if session.Expired(s.now()) {
			s.forget(token)
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, session)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.InfoContext(r.Context(), "http request",
			"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

// state возвращает состояние сессии, создавая его при первом обращении
func (s *Server) state(token string) *userState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[token]
	if !ok {
		st = &userState{}
		s.states[token] = st
	}
	return st
}

func (s *Server) forget(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, token)
}

// withDashboard выполняет fn над дашбордом сессии под ее блокировкой.
// Если дашборд еще не загружен, сначала открывается текущий месяц.
func (s *Server) withDashboard(w http.ResponseWriter, r *http.Request, fn func(d service.Dashboard) (service.Dashboard, error)) {
	session := sessionFrom(r.Context())
	st := s.state(session.AccessToken)
	st.mu.Lock()
	defer st.mu.Unlock()

	d := st.dashboard
	if !d.Loaded {
		loaded, err := s.tracker.Load(r.Context(), session.UserID, model.CurrentMonth(s.now()))
		if !loaded.Loaded {
			s.writeFailure(w, r, err)
			return
		}
		d = loaded
	}

	next, err := fn(d)
	st.dashboard = next
	s.writeDashboard(w, r, next, err)
}
