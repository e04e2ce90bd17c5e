// Package analytics derives read-only views over the transaction ledger:
// category breakdowns, gap-filled monthly series and the dashboard summary.
package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/ledger"
)

// MonthlyAmount is one bucket of the monthly spending series.
type MonthlyAmount struct {
	MonthYear string  `json:"monthYear"`
	Amount    float64 `json:"amount"`
}

// MonthlyFlow is one bucket of the income-vs-expense series.
type MonthlyFlow struct {
	MonthYear string  `json:"monthYear"`
	Income    float64 `json:"income"`
	Expense   float64 `json:"expense"`
}

// Summary is the dashboard rollup. Percentage figures are rounded to two
// decimal places.
type Summary struct {
	TotalBalance float64 `json:"totalBalance"`

	MonthlyIncome   float64 `json:"monthlyIncome"`
	MonthlyExpenses float64 `json:"monthlyExpenses"`
	IncomeChange    float64 `json:"incomeChange"`
	ExpenseChange   float64 `json:"expenseChange"`
	SavingsRate     float64 `json:"savingsRate"`

	NetIncomeLast30Days         float64 `json:"netIncomeLast30Days"`
	TotalExpenseLast30Days      float64 `json:"totalExpenseLast30Days"`
	TotalTransactionsLast30Days int64   `json:"totalTransactionsLast30Days"`
}

// Engine computes the four analytical views for one owner at a time. It holds
// no state between calls; repeated calls with no intervening writes return
// identical results.
type Engine struct {
	store ledger.TransactionStore
	now   func() time.Time
}

func NewEngine(store ledger.TransactionStore) *Engine {
	return &Engine{store: store, now: time.Now}
}

// ExpensesByCategory sums expense amounts grouped by embedded category name,
// sorted descending. Categories with zero expense in the range are absent,
// not zero-filled.
func (e *Engine) ExpensesByCategory(ctx context.Context, ownerID string, from, to *time.Time) ([]ledger.CategoryTotal, error) {
	if ownerID == "" {
		return nil, domain.Errf(domain.CodeUnauthenticated, "Authentication required. User not found.")
	}

	rows, err := e.store.ExpenseTotalsByCategory(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("analytics: expenses by category: %w", err)
	}
	if rows == nil {
		rows = []ledger.CategoryTotal{}
	}
	return rows, nil
}

// MonthlySpending returns the expense total for each of the trailing twelve
// calendar months, ending at the current month, zero-filled.
func (e *Engine) MonthlySpending(ctx context.Context, ownerID string) ([]MonthlyAmount, error) {
	if ownerID == "" {
		return nil, domain.Errf(domain.CodeUnauthenticated, "Authentication required. User not found.")
	}

	now := e.now()
	start := windowStart(now)

	rows, err := e.store.MonthlyExpenseTotals(ctx, ownerID, start, now)
	if err != nil {
		return nil, fmt.Errorf("analytics: monthly spending: %w", err)
	}

	present := make(map[string]MonthlyAmount, len(rows))
	for _, r := range rows {
		label := fmt.Sprintf("%04d-%02d", r.Year, r.Month)
		present[label] = MonthlyAmount{MonthYear: label, Amount: r.Amount}
	}

	return fillMonths(start, present, func(label string) MonthlyAmount {
		return MonthlyAmount{MonthYear: label}
	}), nil
}

// IncomeVsExpense returns both sums for each of the trailing twelve calendar
// months, ending at the current month, zero-filled.
func (e *Engine) IncomeVsExpense(ctx context.Context, ownerID string) ([]MonthlyFlow, error) {
	if ownerID == "" {
		return nil, domain.Errf(domain.CodeUnauthenticated, "Authentication required. User not found.")
	}

	now := e.now()
	start := windowStart(now)

	rows, err := e.store.MonthlyFlows(ctx, ownerID, start, now)
	if err != nil {
		return nil, fmt.Errorf("analytics: income vs expense: %w", err)
	}

	present := make(map[string]MonthlyFlow, len(rows))
	for _, r := range rows {
		label := fmt.Sprintf("%04d-%02d", r.Year, r.Month)
		present[label] = MonthlyFlow{MonthYear: label, Income: r.Income, Expense: r.Expense}
	}

	return fillMonths(start, present, func(label string) MonthlyFlow {
		return MonthlyFlow{MonthYear: label}
	}), nil
}

// DashboardSummary combines the lifetime balance, calendar-month comparisons
// and the independent trailing-30-day window.
func (e *Engine) DashboardSummary(ctx context.Context, ownerID string) (*Summary, error) {
	if ownerID == "" {
		return nil, domain.Errf(domain.CodeUnauthenticated, "Authentication required. User not found.")
	}

	now := e.now()
	startOfPreviousMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
	thirtyDaysAgo := now.AddDate(0, 0, -30)
	thirtyDaysAgo = time.Date(thirtyDaysAgo.Year(), thirtyDaysAgo.Month(), thirtyDaysAgo.Day(), 0, 0, 0, 0, now.Location())

	overall, err := e.store.Summary(ctx, ownerID, thirtyDaysAgo, now)
	if err != nil {
		return nil, fmt.Errorf("analytics: owner summary: %w", err)
	}

	flows, err := e.store.MonthlyFlows(ctx, ownerID, startOfPreviousMonth, now)
	if err != nil {
		return nil, fmt.Errorf("analytics: month comparison: %w", err)
	}

	var currentIncome, currentExpense, previousIncome, previousExpense float64
	for _, f := range flows {
		switch {
		case f.Year == now.Year() && time.Month(f.Month) == now.Month():
			currentIncome, currentExpense = f.Income, f.Expense
		case f.Year == startOfPreviousMonth.Year() && time.Month(f.Month) == startOfPreviousMonth.Month():
			previousIncome, previousExpense = f.Income, f.Expense
		}
	}

	// When current income is zero the rate is defined as zero.
	savingsRate := 0.0
	if currentIncome > 0 {
		savingsRate = (currentIncome - currentExpense) / currentIncome * 100
	}

	return &Summary{
		TotalBalance:                overall.TotalBalance,
		MonthlyIncome:               currentIncome,
		MonthlyExpenses:             currentExpense,
		IncomeChange:                round2(percentChange(previousIncome, currentIncome)),
		ExpenseChange:               round2(percentChange(previousExpense, currentExpense)),
		SavingsRate:                 round2(savingsRate),
		NetIncomeLast30Days:         overall.Last30.NetIncome,
		TotalExpenseLast30Days:      overall.Last30.TotalExpense,
		TotalTransactionsLast30Days: overall.Last30.TotalTransactions,
	}, nil
}

// percentChange uses the documented zero-denominator convention: when the
// previous value is zero, the change is 100% if the current value is
// positive, otherwise 0%. That branch is a business rule, not a true
// percentage.
func percentChange(previous, current float64) float64 {
	if previous > 0 {
		return (current - previous) / previous * 100
	}
	if current > 0 {
		return 100
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
