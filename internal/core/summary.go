package core

import "ledger/internal/money"

// CategorySummary aggregates one category's activity over a month.
type CategorySummary struct {
	Category    *Category
	Occurrences int
	Total       money.Amount
}

// MonthBreakdown is the per-category view of one month plus the grand
// total across all categories.
type MonthBreakdown struct {
	Month      int
	Year       int
	Categories []CategorySummary
	Total      money.Amount
}
