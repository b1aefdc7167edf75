package core

import "strings"

// SplitMode decides how responsibility for a fixed item is divided.
type SplitMode string

const (
	// SplitIncome splits proportionally to net income.
	SplitIncome SplitMode = "income"
	// SplitMe makes the item fully "mine".
	SplitMe SplitMode = "me"
	// SplitPartner makes the item fully the partner's.
	SplitPartner SplitMode = "partner"

	// legacySplitHalf was retired in favour of income-based splitting but
	// still shows up in stored rows.
	legacySplitHalf = "half"
)

// SplitModes lists the accepted modes in display order.
var SplitModes = []SplitMode{SplitIncome, SplitMe, SplitPartner}

// ParseSplitMode normalises a raw split mode at the ingestion boundary.
// Legacy "half", empty and unknown values all become SplitIncome, so only the
// three closed values ever reach the calculator.
func ParseSplitMode(s string) SplitMode {
	switch SplitMode(strings.ToLower(strings.TrimSpace(s))) {
	case SplitMe:
		return SplitMe
	case SplitPartner:
		return SplitPartner
	default:
		return SplitIncome
	}
}

// ParseSplitModeStrict is used for new user input: "half" is still accepted
// for older clients, anything else unknown is rejected.
func ParseSplitModeStrict(s string) (SplitMode, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "", v == legacySplitHalf:
		return SplitIncome, nil
	case SplitMode(v).Validate() == nil:
		return SplitMode(v), nil
	}
	return "", ErrInvalidSplitMode
}

func (m SplitMode) Validate() error {
	switch m {
	case SplitIncome, SplitMe, SplitPartner:
		return nil
	}
	return ErrInvalidSplitMode
}

func (m SplitMode) String() string {
	return string(m)
}
