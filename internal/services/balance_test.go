package services

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"casa/internal/core"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func members(names ...string) []core.Member {
	ms := make([]core.Member, len(names))
	for i, n := range names {
		ms[i] = core.Member{UserID: n, DisplayName: n, Email: n + "@casa.test", Role: core.RoleMember}
	}
	return ms
}

func assertBalances(t *testing.T, r BalanceReport, want map[string]string) {
	t.Helper()
	got := r.ByUser()
	if len(got) != len(want) {
		t.Fatalf("got %d balances, want %d: %v", len(got), len(want), got)
	}
	for id, w := range want {
		if !got[id].Equal(d(w)) {
			t.Errorf("balance of %s = %s, want %s", id, got[id], w)
		}
	}
}

func TestComputeBalances_EqualSplitScenario(t *testing.T) {
	r := ComputeBalances(members("A", "B", "C"), []core.Expense{
		{ID: "e1", CreatorID: "A", Amount: d("90"), SplitEqual: true},
	})
	assertBalances(t, r, map[string]string{"A": "60", "B": "-30", "C": "-30"})
	if len(r.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", r.Diagnostics)
	}
}

func TestComputeBalances_NoExpenses(t *testing.T) {
	r := ComputeBalances(members("A", "B"), nil)
	assertBalances(t, r, map[string]string{"A": "0", "B": "0"})
}

func TestComputeBalances_EqualSplitRemainder(t *testing.T) {
	// 100 over 3 members: 33.34 + 33.33 + 33.33
	r := ComputeBalances(members("A", "B", "C"), []core.Expense{
		{ID: "e1", CreatorID: "B", Amount: d("100"), SplitEqual: true},
	})
	assertBalances(t, r, map[string]string{"A": "-33.34", "B": "66.67", "C": "-33.33"})
	if !r.Total().IsZero() {
		t.Fatalf("balances sum to %s", r.Total())
	}
}

func TestComputeBalances_ExplicitShares(t *testing.T) {
	tests := []struct {
		name   string
		shares []core.ExpenseShare
		want   map[string]string
	}{
		{
			name: "creator holds a share",
			shares: []core.ExpenseShare{
				{UserID: "A", Amount: d("20")},
				{UserID: "B", Amount: d("50")},
				{UserID: "C", Amount: d("30")},
			},
			want: map[string]string{"A": "80", "B": "-50", "C": "-30"},
		},
		{
			name: "creator holds no share",
			shares: []core.ExpenseShare{
				{UserID: "B", Amount: d("60")},
				{UserID: "C", Amount: d("40")},
			},
			want: map[string]string{"A": "100", "B": "-60", "C": "-40"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ComputeBalances(members("A", "B", "C"), []core.Expense{
				{ID: "e1", CreatorID: "A", Amount: d("100"), Shares: tt.shares},
			})
			assertBalances(t, r, tt.want)
			if !r.Total().IsZero() {
				t.Fatalf("balances sum to %s", r.Total())
			}
		})
	}
}

func TestComputeBalances_SkipsFormerMembers(t *testing.T) {
	r := ComputeBalances(members("A", "B"), []core.Expense{
		{ID: "e1", CreatorID: "A", Amount: d("100"), Shares: []core.ExpenseShare{
			{UserID: "B", Amount: d("50")},
			{UserID: "gone", Amount: d("50")},
		}},
		{ID: "e2", CreatorID: "left", Amount: d("10"), SplitEqual: true},
	})
	assertBalances(t, r, map[string]string{"A": "95", "B": "-55"})

	kinds := map[string]int{}
	for _, diag := range r.Diagnostics {
		if diag.Kind != core.KindDataInconsistency {
			t.Fatalf("unexpected diagnostic kind %s", diag.Kind)
		}
		kinds[diag.ExpenseID]++
	}
	if kinds["e1"] != 1 || kinds["e2"] != 1 || kinds[""] != 1 {
		t.Fatalf("unexpected diagnostics: %v", r.Diagnostics)
	}
	if last := r.Diagnostics[len(r.Diagnostics)-1]; last.Message != "balances sum to 40.00 instead of zero" {
		t.Errorf("total diagnostic = %q", last.Message)
	}
}

func TestComputeBalances_ReportsShareMismatch(t *testing.T) {
	r := ComputeBalances(members("A", "B"), []core.Expense{
		{ID: "e1", CreatorID: "A", Amount: d("100"), Shares: []core.ExpenseShare{
			{UserID: "B", Amount: d("40")},
		}},
	})
	if len(r.Diagnostics) != 2 || r.Diagnostics[0].ExpenseID != "e1" {
		t.Fatalf("expected a mismatch and a total diagnostic, got %v", r.Diagnostics)
	}
	if got := r.Diagnostics[1].String(); got != "balances sum to 60.00 instead of zero" {
		t.Errorf("total diagnostic = %q", got)
	}
}

func TestComputeBalances_SumsToZeroAndIsOrderIndependent(t *testing.T) {
	ms := members("A", "B", "C", "D", "E", "F", "G")
	rng := rand.New(rand.NewSource(42))

	var expenses []core.Expense
	for i := 0; i < 200; i++ {
		creator := ms[rng.Intn(len(ms))].UserID
		amount := decimal.New(int64(rng.Intn(100000)+1), -2)
		e := core.Expense{ID: string(rune('a' + i%26)), CreatorID: creator, Amount: amount}
		if rng.Intn(2) == 0 {
			e.SplitEqual = true
		} else {
			// Split into two shares that add up to the amount
			first := decimal.New(amount.Shift(2).IntPart()/2, -2)
			e.Shares = []core.ExpenseShare{
				{UserID: ms[rng.Intn(len(ms))].UserID, Amount: first},
				{UserID: creator, Amount: amount.Sub(first)},
			}
		}
		expenses = append(expenses, e)
	}

	r := ComputeBalances(ms, expenses)
	if !r.Total().IsZero() {
		t.Fatalf("balances sum to %s", r.Total())
	}

	reversed := make([]core.Expense, len(expenses))
	for i, e := range expenses {
		reversed[len(expenses)-1-i] = e
	}
	rr := ComputeBalances(ms, reversed)
	for id, b := range r.ByUser() {
		if !rr.ByUser()[id].Equal(b) {
			t.Fatalf("order changed balance of %s: %s vs %s", id, b, rr.ByUser()[id])
		}
	}
}

func TestUniqueLabels(t *testing.T) {
	ms := []core.Member{
		{UserID: "1", DisplayName: "Sam", Email: "sam@a.test"},
		{UserID: "2", DisplayName: "Sam", Email: "sam@b.test"},
		{UserID: "3", DisplayName: "", Email: "kim@a.test"},
		{UserID: "4", DisplayName: "Lee", Email: ""},
		{UserID: "5", DisplayName: "Lee", Email: ""},
	}
	got := UniqueLabels(ms)
	want := map[string]string{
		"1": "Sam (sam@a.test)",
		"2": "Sam (sam@b.test)",
		"3": "kim@a.test",
		"4": "Lee [4]",
		"5": "Lee [5]",
	}
	for id, w := range want {
		if got[id] != w {
			t.Errorf("label of %s = %q, want %q", id, got[id], w)
		}
	}
}

func TestBalanceReport_LabelView(t *testing.T) {
	r := ComputeBalances(members("A", "B", "C"), []core.Expense{
		{ID: "e1", CreatorID: "A", Amount: d("90"), SplitEqual: true},
	})
	view := r.LabelView()
	if view["A"] != "60.00" || view["B"] != "-30.00" || view["C"] != "-30.00" {
		t.Fatalf("unexpected view %v", view)
	}
}
