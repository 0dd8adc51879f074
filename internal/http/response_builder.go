package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"casa/internal/auth"
	"casa/internal/core"
	"casa/internal/log"
	mwauth "casa/internal/middleware/auth"
	"casa/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrAlreadyMember), errors.Is(err, core.ErrAssignmentConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrQueueUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrRemoveSelf),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidCurrency),
		errors.Is(err, core.ErrEmptyTitle),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidEmail),
		errors.Is(err, core.ErrInvalidRole),
		errors.Is(err, core.ErrMissingShares),
		errors.Is(err, core.ErrUnexpectedShares),
		errors.Is(err, core.ErrShareNotMember),
		errors.Is(err, core.ErrDuplicateShare),
		errors.Is(err, core.ErrTooLong),
		errors.Is(err, core.ErrUnknownFrequency):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with {"error": ...}. Internal errors are logged and
// replaced by a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case status >= 500:
		log.LogError(r.Context(), "Request failed", err, r.Pattern,
			log.NewFields().WithUser(mwauth.UserID(r.Context())))
		msg = http.StatusText(status)
		if status == http.StatusServiceUnavailable {
			msg = err.Error()
		}
	case status == http.StatusNotFound:
		msg = "not found"
	case status == http.StatusForbidden:
		msg = "forbidden"
	case status == http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", `Bearer realm="casa"`)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// Response bodies. Amounts are strings with exactly two decimals.

type shareResponse struct {
	UserID string `json:"userId"`
	Amount string `json:"amount"`
}

type expenseResponse struct {
	ID         string          `json:"id"`
	HouseID    string          `json:"houseId"`
	CreatorID  string          `json:"creatorId"`
	Title      string          `json:"title"`
	Amount     string          `json:"amount"`
	Currency   string          `json:"currency"`
	SplitEqual bool            `json:"splitEqual"`
	Shares     []shareResponse `json:"shares"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func newExpenseResponse(e core.Expense) expenseResponse {
	out := expenseResponse{
		ID:         e.ID,
		HouseID:    e.HouseID,
		CreatorID:  e.CreatorID,
		Title:      e.Title,
		Amount:     core.FormatAmount(e.Amount),
		Currency:   e.Currency,
		SplitEqual: e.SplitEqual,
		Shares:     make([]shareResponse, 0, len(e.Shares)),
		CreatedAt:  e.CreatedAt,
	}
	for _, s := range e.Shares {
		out.Shares = append(out.Shares, shareResponse{UserID: s.UserID, Amount: core.FormatAmount(s.Amount)})
	}
	return out
}

type memberBalanceResponse struct {
	UserID  string      `json:"userId"`
	Label   string      `json:"label"`
	Balance json.Number `json:"balance"`
}

// balanceResponse is the ?detail=1 view of a balance: the label view, the
// same balances keyed by user, and any diagnostics about skipped input.
type balanceResponse struct {
	HouseID     string                  `json:"houseId"`
	Balances    map[string]json.Number  `json:"balances"`
	Members     []memberBalanceResponse `json:"members"`
	Diagnostics []string                `json:"diagnostics"`
}

func newBalanceResponse(houseID string, r services.BalanceReport) balanceResponse {
	out := balanceResponse{
		HouseID:     houseID,
		Balances:    r.LabelView(),
		Members:     make([]memberBalanceResponse, 0, len(r.Balances)),
		Diagnostics: make([]string, 0, len(r.Diagnostics)),
	}
	for _, b := range r.Balances {
		out.Members = append(out.Members, memberBalanceResponse{
			UserID:  b.UserID,
			Label:   b.Label,
			Balance: json.Number(core.FormatAmount(b.Balance)),
		})
	}
	for _, d := range r.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, d.String())
	}
	return out
}
