package core

import "time"

// MonthStatus is the lifecycle state of a stored month. Closed is terminal.
type MonthStatus string

const (
	MonthOpen   MonthStatus = "open"
	MonthClosed MonthStatus = "closed"
)

// ClosedMonthSummary is the archived view of a closed month.
type ClosedMonthSummary struct {
	MonthID             int64
	Year                int
	Month               int // 1-12
	PrivateBalanceStart Money
	PrivateBalanceEnd   Money
	TotalTransfers      Money
	ClosedAt            time.Time
}

// HistoryKind tells private expenses and fixed items apart in the history feed.
type HistoryKind string

const (
	HistoryPrivateExpense HistoryKind = "private_expense"
	HistoryFixedItem      HistoryKind = "fixed_item"
)

// HistoryPosition is one entry in a month's activity feed.
type HistoryPosition struct {
	ID            int64
	Kind          HistoryKind
	Description   string
	Amount        Money
	CreatedAt     time.Time
	CreatedByName string
}

// MonthHistory is the activity feed for one month, newest first.
type MonthHistory struct {
	Last5      []HistoryPosition
	TotalCount int
	Full       []HistoryPosition // only populated when requested
}
