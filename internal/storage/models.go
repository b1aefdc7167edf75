package storage

import (
	"time"

	"splitkasse/internal/core"
)

type Profile struct {
	ID   int64
	Role core.PersonRole
	Name string
}

// Month is a stored settlement period. PrivateBalanceEnd is only set once
// the month is closed.
type Month struct {
	ID                  int64
	Year                int
	Month               int
	Status              core.MonthStatus
	PrivateBalanceStart core.Money
	PrivateBalanceEnd   *core.Money
	ClosedAt            *time.Time
	CreatedAt           time.Time
}

func (m Month) IsClosed() bool {
	return m.Status == core.MonthClosed
}

type MonthIncome struct {
	MonthID   int64
	ProfileID int64
	Role      core.PersonRole
	NetIncome core.Money
}

type Transfer struct {
	core.Transfer
	MonthID   int64
	CreatedBy int64 // 0 when unknown
	CreatedAt time.Time
}

// ItemPatch is a partial update of a fixed or template item. Nil fields are
// left unchanged.
type ItemPatch struct {
	Label     *string
	Amount    *core.Money
	SplitMode *core.SplitMode
}

func (p ItemPatch) Empty() bool {
	return p.Label == nil && p.Amount == nil && p.SplitMode == nil
}

type TemplateItem struct {
	ID         int64
	CategoryID int64
	Label      string
	Amount     core.Money
	SplitMode  core.SplitMode
	SortOrder  int
}

type TemplateCategory struct {
	ID        int64
	Label     string
	SortOrder int
	Items     []TemplateItem
}
