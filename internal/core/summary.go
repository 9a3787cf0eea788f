package core

import "time"

// CategoryAmount is an expense total for one category name.
type CategoryAmount struct {
	Category string `json:"category"`
	Amount   Money  `json:"amount"`
}

// DashboardStats is derived from the stored transactions and never persisted.
type DashboardStats struct {
	TotalExpenses Money            `json:"totalExpenses"`
	TotalIncome   Money            `json:"totalIncome"`
	Balance       Money            `json:"balance"`
	TopCategories []CategoryAmount `json:"topCategories"`
}

// CategorySlice is one slice of the expense-by-category chart.
type CategorySlice struct {
	Name   string `json:"name"`
	Amount Money  `json:"value"`
	Color  Color  `json:"color"`
	Hex    string `json:"hex"`
}

// MonthBucket holds the expense and income totals of one calendar month.
type MonthBucket struct {
	Year     int    `json:"year"`
	Month    int    `json:"month"` // 1-12
	Label    string `json:"name"`
	Expenses Money  `json:"expenses"`
	Income   Money  `json:"income"`
}

const (
	CollectionTransactions = "transactions"
	CollectionCategories   = "categories"

	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpReplace = "replace"
	OpImport  = "import"
)

// Change describes a completed write to one of the ledger collections.
type Change struct {
	Collection string    `json:"collection"`
	Op         string    `json:"op"`
	ID         string    `json:"id,omitempty"`
	Count      int       `json:"count,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewChange describes op on collection, stamped at (UTC).
func NewChange(collection, op string, at time.Time) Change {
	return Change{Collection: collection, Op: op, Timestamp: at.UTC()}
}
