package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/ivanoskov/finance_tracker/internal/model"
	"github.com/ivanoskov/finance_tracker/internal/repository"
	"github.com/ivanoskov/finance_tracker/internal/service"
)

type credentials struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type sessionResponse struct {
	AccessToken string    `json:"access_token"`
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

type budgetRequest struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// dashboardResponse - дашборд и предупреждение о частично созданных повторяющихся транзакциях
type dashboardResponse struct {
	service.Dashboard
	Warning string `json:"warning,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// confirmed проверяет подтверждение удаления; без него отвечает 409 с вопросом
func confirmed(w http.ResponseWriter, r *http.Request, prompt string) bool {
	if r.URL.Query().Get("confirm") == "true" {
		return true
	}
	writeJSON(w, http.StatusConflict, map[string]string{
		"error":  "confirmation required",
		"prompt": prompt + " Repeat the request with confirm=true.",
	})
	return false
}

// statusOf сопоставляет ошибку с HTTP-статусом
func statusOf(err error) int {
	var (
		authErr     *service.AuthError
		materialize *service.MaterializeError
	)
	switch {
	case errors.As(err, &authErr):
		switch authErr.Kind {
		case service.AuthValidation, service.AuthWeakPassword, service.AuthInvalidEmail:
			return http.StatusBadRequest
		case service.AuthAlreadyRegistered:
			return http.StatusConflict
		case service.AuthEmailNotConfirmed:
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case errors.Is(err, repository.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidKind), errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrEmptyCategory), errors.Is(err, model.ErrMissingDate),
		errors.Is(err, model.ErrEmptyName), errors.Is(err, model.ErrInvalidDay),
		errors.Is(err, model.ErrInvalidMonth):
		return http.StatusBadRequest
	case errors.As(err, &materialize):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

// writeDashboard отвечает дашбордом. Частичная ошибка материализации не мешает ответу.
func (s *Server) writeDashboard(w http.ResponseWriter, r *http.Request, d service.Dashboard, err error) {
	var materialize *service.MaterializeError
	if err != nil && !(errors.As(err, &materialize) && !materialize.Aborted && d.Loaded) {
		s.writeFailure(w, r, err)
		return
	}
	resp := dashboardResponse{Dashboard: d}
	if err != nil {
		s.logger.WarnContext(r.Context(), "recurring transactions partially created", "error", err)
		resp.Warning = fmt.Sprintf("%d recurring transactions for %s were not created", len(materialize.Errs), materialize.Month)
	}
	writeJSON(w, http.StatusOK, resp)
}

// monthParam читает ?month=YYYY-MM; без параметра возвращает def
func monthParam(r *http.Request, def model.Month) (model.Month, error) {
	v := r.URL.Query().Get("month")
	if v == "" {
		return def, nil
	}
	return model.ParseMonth(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}
	session, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken: session.AccessToken,
		UserID:      session.UserID,
		Email:       session.Email,
		ExpiresAt:   session.ExpiresAt,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}
	result, err := s.auth.SignUp(r.Context(), req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user_id": result.UserID})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	if err := s.auth.SignOut(r.Context(), session.AccessToken); err != nil {
		s.logger.WarnContext(r.Context(), "sign out failed", "user_id", session.UserID, "error", err)
	}
	s.forget(session.AccessToken)
	w.WriteHeader(http.StatusNoContent)
}

// handleDashboard открывает месяц из ?month= или перечитывает открытый
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	st := s.state(session.AccessToken)
	st.mu.Lock()
	defer st.mu.Unlock()

	prev := st.dashboard
	def := prev.Month
	if !prev.Loaded {
		def = model.CurrentMonth(s.now())
		prev.Owner = session.UserID
		prev.Month = def
	}
	month, err := monthParam(r, def)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	d, err := s.tracker.Reload(r.Context(), prev, month)
	st.dashboard = d
	s.writeDashboard(w, r, d, err)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in service.TransactionInput
	if !decode(w, r, &in) {
		return
	}
	s.withDashboard(w, r, func(d service.Dashboard) (service.Dashboard, error) {
		return s.tracker.SaveTransaction(r.Context(), s.tracker.CancelEdit(d), in)
	})
}

// handleUpdateTransaction обновляет транзакцию открытого месяца
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var in service.TransactionInput
	if !decode(w, r, &in) {
		return
	}
	s.withDashboard(w, r, func(d service.Dashboard) (service.Dashboard, error) {
		editing, err := s.tracker.BeginEdit(d, id)
		if err != nil {
			return d, err
		}
		next, err := s.tracker.SaveTransaction(r.Context(), editing, in)
		if err != nil {
			return s.tracker.CancelEdit(next), err
		}
		return next, nil
	})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !confirmed(w, r, "Delete this transaction?") {
		return
	}
	s.withDashboard(w, r, func(d service.Dashboard) (service.Dashboard, error) {
		return s.tracker.DeleteTransaction(r.Context(), d, id)
	})
}

func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	if !confirmed(w, r, "Delete ALL transactions? This affects every month.") {
		return
	}
	s.withDashboard(w, r, func(d service.Dashboard) (service.Dashboard, error) {
		return s.tracker.ClearTransactions(r.Context(), d)
	})
}

func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if !decode(w, r, &req) {
		return
	}
	s.withDashboard(w, r, func(d service.Dashboard) (service.Dashboard, error) {
		return s.tracker.SaveBudget(r.Context(), d, req.Category, req.Amount)
	})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !confirmed(w, r, "Delete this budget?") {
		return
	}
	s.withDashboard(w, r, func(d service.Dashboard) (service.Dashboard, error) {
		return s.tracker.DeleteBudget(r.Context(), d, id)
	})
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var in service.RuleInput
	if !decode(w, r, &in) {
		return
	}
	s.withDashboard(w, r, func(d service.Dashboard) (service.Dashboard, error) {
		return s.tracker.CreateRule(r.Context(), d, in)
	})
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !confirmed(w, r, "Delete this recurring rule?") {
		return
	}
	s.withDashboard(w, r, func(d service.Dashboard) (service.Dashboard, error) {
		return s.tracker.DeleteRule(r.Context(), d, id)
	})
}

// openMonth возвращает дашборд месяца из ?month= без изменения открытого месяца сессии
func (s *Server) openMonth(r *http.Request) (service.Dashboard, error) {
	session := sessionFrom(r.Context())
	st := s.state(session.AccessToken)
	st.mu.Lock()
	current := st.dashboard
	st.mu.Unlock()

	def := model.CurrentMonth(s.now())
	if current.Loaded {
		def = current.Month
	}
	month, err := monthParam(r, def)
	if err != nil {
		return service.Dashboard{}, err
	}
	if current.Loaded && current.Month == month {
		return current, nil
	}
	d, err := s.tracker.Load(r.Context(), session.UserID, month)
	var materialize *service.MaterializeError
	if errors.As(err, &materialize) && d.Loaded {
		return d, nil
	}
	return d, err
}

// handleChart отдает PNG-график: ?kind=expenses|budgets|flow|summary
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	d, err := s.openMonth(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	var png []byte
	switch kind := r.URL.Query().Get("kind"); kind {
	case "", "expenses":
		png, err = s.charts.ExpenseBreakdown(d)
	case "budgets":
		png, err = s.charts.BudgetProgress(d)
	case "flow":
		png, err = s.charts.DailyFlow(d)
	case "summary":
		var report service.MonthReport
		report, err = s.tracker.Report(r.Context(), d)
		if err == nil {
			png, err = s.charts.MonthComparison(report)
		}
	default:
		writeError(w, http.StatusBadRequest, "unknown chart kind: "+kind)
		return
	}
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if png == nil {
		writeError(w, http.StatusNotFound, "nothing to chart for "+d.Month.String())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	d, err := s.openMonth(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	report, err := s.tracker.Report(r.Context(), d)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
