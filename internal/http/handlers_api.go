package http

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"financas/internal/app"
	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/render"
)

// handleDashboard returns the whole view model. month and year, when given,
// switch the session's scope first.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	scope, present, err := ParseScopeParams(r.URL.Query(), c.Scope())
	if err != nil {
		s.writeAppError(w, r, err, applog.OpScope)
		return
	}
	if present && scope != c.Scope() {
		if err := c.SwitchScope(r.Context(), scope); err != nil {
			s.writeAppError(w, r, err, applog.OpScope)
			return
		}
	}
	writeJSON(w, http.StatusOK, render.DashboardOf(c.Snapshot(), s.now()))
}

func (s *Server) handleSwitchScope(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest, "")
		return
	}
	c := controllerFrom(r.Context())
	q := url.Values{}
	for _, k := range []string{"year", "month"} {
		if v := p.Get(k); v != "" {
			q.Set(k, v)
		}
	}
	scope, _, err := ParseScopeParams(q, c.Scope())
	if err != nil {
		s.writeAppError(w, r, err, applog.OpScope)
		return
	}
	if err := c.SwitchScope(r.Context(), scope); err != nil {
		s.writeAppError(w, r, err, applog.OpScope)
		return
	}
	st := c.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"scope":   st.Scope,
		"header":  render.HeaderOf(st, s.now()),
		"summary": render.SummaryOf(st),
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, controllerFrom(r.Context()).Snapshot().Profile)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, render.TransactionFeed(controllerFrom(r.Context()).Snapshot()))
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, render.ExpenseList(controllerFrom(r.Context()).Snapshot()))
}

func (s *Server) handleInvestments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, render.InvestmentList(controllerFrom(r.Context()).Snapshot()))
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, render.GoalCards(controllerFrom(r.Context()).Snapshot()))
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest, "")
		return
	}
	tx, err := controllerFrom(r.Context()).AddTransaction(r.Context(), p.TransactionInput())
	if err != nil {
		s.writeAppError(w, r, err, applog.OpCreate)
		return
	}
	writeJSON(w, http.StatusCreated, render.TransactionRowOf(tx))
}

func (s *Server) handleAddInvestment(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest, "")
		return
	}
	inv, err := controllerFrom(r.Context()).AddInvestment(r.Context(), p.InvestmentInput())
	if err != nil {
		s.writeAppError(w, r, err, applog.OpCreate)
		return
	}
	writeJSON(w, http.StatusCreated, render.InvestmentRowOf(inv))
}

func (s *Server) handleAddGoal(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest, "")
		return
	}
	goal, err := controllerFrom(r.Context()).AddGoal(r.Context(), p.GoalInput())
	if err != nil {
		s.writeAppError(w, r, err, applog.OpCreate)
		return
	}
	writeJSON(w, http.StatusCreated, render.GoalCardOf(goal))
}

func (s *Server) handleRequestDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, err := core.ParseKind(vars["kind"])
	if err != nil {
		s.writeAppError(w, r, err, applog.OpDelete)
		return
	}
	s.requestDelete(w, r, app.TransactionTarget(kind, vars["id"]))
}

func (s *Server) handleRequestDeleteInvestment(w http.ResponseWriter, r *http.Request) {
	s.requestDelete(w, r, app.InvestmentTarget(mux.Vars(r)["id"]))
}

func (s *Server) handleRequestDeleteGoal(w http.ResponseWriter, r *http.Request) {
	s.requestDelete(w, r, app.GoalTarget(mux.Vars(r)["id"]))
}

func (s *Server) handleRequestClearMonth(w http.ResponseWriter, r *http.Request) {
	s.requestDelete(w, r, app.MonthTarget())
}

// requestDelete answers 202 with the confirmation the client must send back
// to /api/confirmations/{token}.
func (s *Server) requestDelete(w http.ResponseWriter, r *http.Request, target app.DeleteTarget) {
	pending, err := controllerFrom(r.Context()).RequestDelete(target)
	if err != nil {
		s.writeAppError(w, r, err, applog.OpDelete)
		return
	}
	w.Header().Set("Location", "/api/confirmations/"+pending.Token)
	writeJSON(w, http.StatusAccepted, pending)
}

func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	target, err := controllerFrom(r.Context()).ConfirmDelete(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		s.writeAppError(w, r, err, applog.OpConfirm)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": target})
}

func (s *Server) handleCancelDelete(w http.ResponseWriter, r *http.Request) {
	if err := controllerFrom(r.Context()).CancelDelete(mux.Vars(r)["token"]); err != nil {
		s.writeAppError(w, r, err, applog.OpConfirm)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
