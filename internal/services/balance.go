package services

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"casa/internal/core"
)

// MemberBalance is the net position of one member: positive means the
// house owes the member, negative means the member owes the house.
type MemberBalance struct {
	UserID  string          `json:"userId"`
	Label   string          `json:"label"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceReport is the result of ComputeBalances. Balances follow the
// membership order.
type BalanceReport struct {
	Balances    []MemberBalance   `json:"balances"`
	Diagnostics []core.Diagnostic `json:"diagnostics,omitempty"`
}

// ByUser returns the balances keyed by user ID.
func (r BalanceReport) ByUser() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r.Balances))
	for _, b := range r.Balances {
		out[b.UserID] = b.Balance
	}
	return out
}

// Total sums every balance. It is zero for well-formed input.
func (r BalanceReport) Total() decimal.Decimal {
	total := decimal.Zero
	for _, b := range r.Balances {
		total = total.Add(b.Balance)
	}
	return total
}

// LabelView maps each member's unique label to a number with two decimals,
// the shape served by the balance endpoint.
func (r BalanceReport) LabelView() map[string]json.Number {
	out := make(map[string]json.Number, len(r.Balances))
	for _, b := range r.Balances {
		out[b.Label] = json.Number(core.FormatAmount(b.Balance))
	}
	return out
}

// ComputeBalances returns the net balance of every member of a house.
//
// Equal-split expenses are divided over the current members at cent
// precision; the parts differ by at most one cent and always sum to the
// amount. For explicit shares the creator is credited the amount and each
// share owner is debited their share. Shares of users who are no longer
// members are skipped, as is the credit of a creator who left; both are
// reported as diagnostics, and a final diagnostic carries the non-zero
// total they leave behind. The function never fails and does not depend on
// the order of expenses.
func ComputeBalances(members []core.Member, expenses []core.Expense) BalanceReport {
	labels := UniqueLabels(members)
	index := make(map[string]int, len(members))
	balances := make([]MemberBalance, len(members))
	for i, m := range members {
		index[m.UserID] = i
		balances[i] = MemberBalance{UserID: m.UserID, Label: labels[m.UserID], Balance: decimal.Zero}
	}

	var diags []core.Diagnostic
	credit := func(userID string, amount decimal.Decimal) bool {
		i, ok := index[userID]
		if !ok {
			return false
		}
		balances[i].Balance = balances[i].Balance.Add(amount)
		return true
	}

	for _, e := range expenses {
		if len(members) == 0 {
			break
		}
		creatorIsMember := credit(e.CreatorID, e.Amount)
		if !creatorIsMember {
			diags = append(diags, core.Diagnostic{
				Kind:      core.KindDataInconsistency,
				ExpenseID: e.ID,
				UserID:    e.CreatorID,
				Message:   "creator is no longer a member, credit skipped",
			})
		}

		if e.SplitEqual {
			for i, part := range core.SplitEven(e.Amount, len(members)) {
				balances[i].Balance = balances[i].Balance.Sub(part)
			}
			continue
		}

		for _, s := range e.Shares {
			if !credit(s.UserID, s.Amount.Neg()) {
				diags = append(diags, core.Diagnostic{
					Kind:      core.KindDataInconsistency,
					ExpenseID: e.ID,
					UserID:    s.UserID,
					Message:   "share owner is no longer a member, share skipped",
				})
			}
		}
		if total := e.SharesTotal(); !total.Equal(e.Amount) {
			diags = append(diags, core.Diagnostic{
				Kind:      core.KindDataInconsistency,
				ExpenseID: e.ID,
				Message:   fmt.Sprintf("shares sum to %s, expense amount is %s", core.FormatAmount(total), core.FormatAmount(e.Amount)),
			})
		}
	}

	report := BalanceReport{Balances: balances, Diagnostics: diags}
	if total := report.Total(); !total.IsZero() {
		report.Diagnostics = append(report.Diagnostics, core.Diagnostic{
			Kind:    core.KindDataInconsistency,
			Message: fmt.Sprintf("balances sum to %s instead of zero", core.FormatAmount(total)),
		})
	}
	return report
}

// UniqueLabels assigns every member a distinct display label. The display
// name is used when it is unique within the house; otherwise the email is
// appended, and if that still collides the user ID as well.
func UniqueLabels(members []core.Member) map[string]string {
	base := make(map[string]string, len(members))
	count := make(map[string]int, len(members))
	for _, m := range members {
		l := m.DisplayName
		if l == "" {
			l = m.Email
		}
		if l == "" {
			l = m.UserID
		}
		base[m.UserID] = l
		count[l]++
	}

	out := make(map[string]string, len(members))
	used := make(map[string]int, len(members))
	for _, m := range members {
		l := base[m.UserID]
		if count[l] > 1 && m.Email != "" && m.Email != l {
			l = fmt.Sprintf("%s (%s)", l, m.Email)
		}
		used[l]++
		out[m.UserID] = l
	}
	for _, m := range members {
		if l := out[m.UserID]; used[l] > 1 {
			out[m.UserID] = fmt.Sprintf("%s [%s]", l, m.UserID)
		}
	}
	return out
}
