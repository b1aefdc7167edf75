package core

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleMe      PersonRole = "me"
	RolePartner PersonRole = "partner"
)

type (
	PersonRole string

	// Date is a calendar day (UTC midnight).
	Date struct {
		time.Time
	}

	// Person is one of the two household members.
	Person struct {
		Role      PersonRole
		Name      string
		NetIncome Money // >= 0
	}

	// FixedItem is one recurring cost line, e.g. rent.
	FixedItem struct {
		ID        int64
		Label     string
		Amount    Money // >= 0
		SplitMode SplitMode
	}

	// FixedCategory groups fixed items. It has no computed state of its own.
	FixedCategory struct {
		ID    int64
		Label string
		Items []FixedItem
	}

	// PrivateExpense is a one-off cost logged by "me".
	PrivateExpense struct {
		ID          int64
		Date        Date
		Description string
		Amount      Money // >= 0
	}

	// Transfer is one payment made toward this month's fixed costs.
	Transfer struct {
		ID          int64
		Amount      Money
		Description string
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidIncome      = errors.New("net income must be a finite number >= 0")
	ErrInvalidSplitMode   = errors.New("invalid split mode")
	ErrInvalidRole        = errors.New("invalid person role")
	ErrEmptyLabel         = errors.New("label cannot be empty")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

const maxTextLength = 200

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ISO returns the date formatted as YYYY-MM-DD, or "" for the zero date.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (r PersonRole) Validate() error {
	switch r {
	case RoleMe, RolePartner:
		return nil
	}
	return ErrInvalidRole
}

func (p Person) Validate() error {
	if err := p.Role.Validate(); err != nil {
		return err
	}
	return validateIncome(p.NetIncome)
}

func (i FixedItem) Validate() error {
	if err := validateLabel(i.Label); err != nil {
		return err
	}
	if err := validateAmount(i.Amount); err != nil {
		return err
	}
	return i.SplitMode.Validate()
}

func (c FixedCategory) Validate() error {
	if err := validateLabel(c.Label); err != nil {
		return err
	}
	for _, item := range c.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (e PrivateExpense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	desc := strings.TrimSpace(e.Description)
	if desc == "" {
		return ErrEmptyDescription
	}
	if len(desc) > maxTextLength {
		return ErrDescriptionTooLong
	}
	return validateAmount(e.Amount)
}

func (t Transfer) Validate() error {
	if len(strings.TrimSpace(t.Description)) > maxTextLength {
		return ErrDescriptionTooLong
	}
	return validateAmount(t.Amount)
}

// ValidateIncome reports whether v is an acceptable net income.
func ValidateIncome(v Money) error {
	return validateIncome(v)
}

// ValidateBalance accepts any signed balance within MaxAmount.
func ValidateBalance(v Money) error {
	if !InRange(v) {
		return ErrInvalidAmount
	}
	return nil
}

func validateIncome(v Money) error {
	if !InRange(v) || v < 0 {
		return ErrInvalidIncome
	}
	return nil
}

func validateAmount(v Money) error {
	if !InRange(v) || v < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func validateLabel(label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return ErrEmptyLabel
	}
	if len(label) > maxTextLength {
		return ErrDescriptionTooLong
	}
	return nil
}
