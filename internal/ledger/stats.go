package ledger

import (
	"context"
	"math"
	"sort"
	"time"

	"ledger/internal/core"
)

const (
	// TopCategoryLimit caps DashboardStats.TopCategories.
	TopCategoryLimit = 5
	// SeriesMonths is the length of the monthly chart series.
	SeriesMonths = 6
)

// addCents saturates at the int64 bounds. Validated amounts stay far below
// them, but SaveTransactions stores whatever it is given.
func addCents(a, b int64) int64 {
	sum := a + b
	switch {
	case b > 0 && sum < a:
		return math.MaxInt64
	case b < 0 && sum > a:
		return math.MinInt64
	}
	return sum
}

func subCents(a, b int64) int64 {
	if b == math.MinInt64 {
		return addCents(addCents(a, math.MaxInt64), 1)
	}
	return addCents(a, -b)
}

// ComputeDashboardStats totals every transaction by type and ranks expense
// categories by amount. Ties keep the order in which categories first appear.
func ComputeDashboardStats(txs []core.Transaction) core.DashboardStats {
	var expenses, income int64
	totals := make(map[string]int64)
	var order []string
	for _, tx := range txs {
		switch tx.Type {
		case core.Expense:
			expenses = addCents(expenses, tx.Amount.Cents)
			if _, seen := totals[tx.Category]; !seen {
				order = append(order, tx.Category)
			}
			totals[tx.Category] = addCents(totals[tx.Category], tx.Amount.Cents)
		case core.Income:
			income = addCents(income, tx.Amount.Cents)
		}
	}

	top := make([]core.CategoryAmount, 0, len(order))
	for _, name := range order {
		if totals[name] > 0 {
			top = append(top, core.CategoryAmount{Category: name, Amount: core.Money{Cents: totals[name]}})
		}
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Amount.Cents > top[j].Amount.Cents
	})
	if len(top) > TopCategoryLimit {
		top = top[:TopCategoryLimit]
	}

	return core.DashboardStats{
		TotalExpenses: core.Money{Cents: expenses},
		TotalIncome:   core.Money{Cents: income},
		Balance:       core.Money{Cents: subCents(income, expenses)},
		TopCategories: top,
	}
}

// FilterMonth keeps the transactions dated in the calendar month of now.
func FilterMonth(txs []core.Transaction, now time.Time) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Date.SameMonth(now) {
			out = append(out, tx)
		}
	}
	return out
}

// ComputeCategoryBreakdown sums expenses per category name. Names that match
// no stored category are colored with core.DefaultColor.
func ComputeCategoryBreakdown(txs []core.Transaction, cats []core.Category) []core.CategorySlice {
	colors := make(map[string]core.Color, len(cats))
	for _, c := range cats {
		if _, dup := colors[c.Name]; !dup {
			colors[c.Name] = c.Color
		}
	}

	index := make(map[string]int)
	var out []core.CategorySlice
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			color, known := colors[tx.Category]
			if !known || !color.IsValid() {
				color = core.DefaultColor
			}
			i = len(out)
			index[tx.Category] = i
			out = append(out, core.CategorySlice{Name: tx.Category, Color: color, Hex: color.Hex()})
		}
		out[i].Amount.Cents = addCents(out[i].Amount.Cents, tx.Amount.Cents)
	}
	if out == nil {
		out = []core.CategorySlice{}
	}
	return out
}

// ComputeMonthlySeries buckets transactions into the n calendar months ending
// with the month of now, oldest first. Months are matched by year and month.
func ComputeMonthlySeries(txs []core.Transaction, now time.Time, n int) []core.MonthBucket {
	if n <= 0 {
		return []core.MonthBucket{}
	}
	out := make([]core.MonthBucket, n)
	for i := range out {
		first := time.Date(now.Year(), now.Month()-time.Month(n-1-i), 1, 0, 0, 0, 0, time.UTC)
		out[i] = core.MonthBucket{
			Year:  first.Year(),
			Month: int(first.Month()),
			Label: first.Month().String()[:3],
		}
	}
	for _, tx := range txs {
		for i := range out {
			if tx.Date.Year() != out[i].Year || int(tx.Date.Month()) != out[i].Month {
				continue
			}
			switch tx.Type {
			case core.Expense:
				out[i].Expenses.Cents = addCents(out[i].Expenses.Cents, tx.Amount.Cents)
			case core.Income:
				out[i].Income.Cents = addCents(out[i].Income.Cents, tx.Amount.Cents)
			}
			break
		}
	}
	return out
}

// DashboardStats computes the all-time dashboard figures.
func (s *Store) DashboardStats(ctx context.Context) (core.DashboardStats, error) {
	txs, err := s.ListTransactions(ctx)
	if err != nil {
		return core.DashboardStats{}, err
	}
	return ComputeDashboardStats(txs), nil
}

// CurrentMonthTransactions returns the transactions dated in the current
// calendar month, in stored order.
func (s *Store) CurrentMonthTransactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := s.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return FilterMonth(txs, s.now()), nil
}

// CategoryBreakdown returns all-time expense totals per category.
func (s *Store) CategoryBreakdown(ctx context.Context) ([]core.CategorySlice, error) {
	txs, err := s.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeCategoryBreakdown(txs, cats), nil
}

// MonthlySeries returns the last SeriesMonths months of totals.
func (s *Store) MonthlySeries(ctx context.Context) ([]core.MonthBucket, error) {
	txs, err := s.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeMonthlySeries(txs, s.now(), SeriesMonths), nil
}
