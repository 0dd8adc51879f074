package http

import (
	"net/http"

	"casa/internal/core"
	mwauth "casa/internal/middleware/auth"
)

type shareRequest struct {
	UserID string      `json:"userId"`
	Amount amountField `json:"amount"`
}

type expenseRequest struct {
	Title      string         `json:"title"`
	Amount     amountField    `json:"amount"`
	Currency   string         `json:"currency"`
	SplitEqual *bool          `json:"splitEqual"`
	Shares     []shareRequest `json:"shares"`
}

// toExpense converts the request. splitEqual defaults to true when no
// shares are given.
func (req expenseRequest) toExpense(houseID string) (core.Expense, error) {
	if !req.Amount.set {
		return core.Expense{}, core.ErrInvalidAmount
	}
	e := core.Expense{
		HouseID:    houseID,
		Title:      sanitizeInput(req.Title),
		Amount:     req.Amount.value,
		Currency:   req.Currency,
		SplitEqual: len(req.Shares) == 0,
	}
	if req.SplitEqual != nil {
		e.SplitEqual = *req.SplitEqual
	}
	for _, sr := range req.Shares {
		if !sr.Amount.set {
			return core.Expense{}, badRequest("share for %q has no amount", sr.UserID)
		}
		e.Shares = append(e.Shares, core.ExpenseShare{UserID: sr.UserID, Amount: sr.Amount.value})
	}
	return e, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	houseID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := req.toExpense(houseID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.svc.Expenses.CreateExpense(r.Context(), mwauth.UserID(r.Context()), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newExpenseResponse(saved))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	houseID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses, err := s.svc.Expenses.ListExpenses(r.Context(), mwauth.UserID(r.Context()), houseID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, newExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	houseID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.svc.Expenses.Balance(r.Context(), mwauth.UserID(r.Context()), houseID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("detail") == "1" {
		writeJSON(w, http.StatusOK, newBalanceResponse(houseID, report))
		return
	}
	writeJSON(w, http.StatusOK, report.LabelView())
}
