package core

// MonthInputs is everything one settlement needs. It is assembled fresh per
// calculation and never mutated by the calculator.
type MonthInputs struct {
	Me                  Person
	Partner             Person
	FixedCategories     []FixedCategory
	PrivateExpenses     []PrivateExpense
	PrivateBalanceStart Money // signed: > 0 means "me" owes partner
	PrepaymentThisMonth Money // >= 0, sum of transfers made this month
}

// MonthComputed is the settlement snapshot for one month. All money fields
// are rounded to cents.
type MonthComputed struct {
	ShareMe                         float64 `json:"shareMe"`
	SharePartner                    float64 `json:"sharePartner"`
	TotalFixedCosts                 Money   `json:"totalFixedCosts"`
	MyFixedShare                    Money   `json:"myFixedShare"`
	PrivateAddedThisMonth           Money   `json:"privateAddedThisMonth"`
	PrivateBalanceStart             Money   `json:"privateBalanceStart"`
	FixedCostDue                    Money   `json:"fixedCostDue"`
	PrepaymentThisMonth             Money   `json:"prepaymentThisMonth"`
	FixedCostShortfall              Money   `json:"fixedCostShortfall"`
	FixedCostOverpayment            Money   `json:"fixedCostOverpayment"`
	PrivateTotalDueBeforePrepayment Money   `json:"privateTotalDueBeforePrepayment"`
	PrivateBalanceEnd               Money   `json:"privateBalanceEnd"`
	RecommendedPrepayment           Money   `json:"recommendedPrepayment"`
}

// IncomeShares holds the unrounded income proportions of both persons.
type IncomeShares struct {
	ShareMe      float64 `json:"shareMe"`
	SharePartner float64 `json:"sharePartner"`
}

// CalculateIncomeShares splits responsibility by net income.
//
// With no income data at all the split falls back to 50/50. When only one
// person earns, that person carries everything. Shares are not rounded;
// only money amounts are.
func CalculateIncomeShares(incomeMe, incomePartner Money) IncomeShares {
	switch {
	case incomeMe <= 0 && incomePartner <= 0:
		return IncomeShares{ShareMe: 0.5, SharePartner: 0.5}
	case incomePartner <= 0:
		return IncomeShares{ShareMe: 1, SharePartner: 0}
	case incomeMe <= 0:
		return IncomeShares{ShareMe: 0, SharePartner: 1}
	}
	shareMe := incomeMe / (incomeMe + incomePartner)
	return IncomeShares{ShareMe: shareMe, SharePartner: 1 - shareMe}
}

// CalculateMyShareForFixedItem returns my rounded share of a single item.
// Anything that is neither SplitMe nor SplitPartner is split by income.
func CalculateMyShareForFixedItem(item FixedItem, shareMe float64) Money {
	var myShare float64
	switch item.SplitMode {
	case SplitMe:
		myShare = item.Amount
	case SplitPartner:
		myShare = 0
	default:
		myShare = item.Amount * shareMe
	}
	return RoundMoney(myShare)
}

// CalculateMyFixedShare sums my per-item shares. Each item is rounded before
// it is added, then the total is rounded again.
func CalculateMyFixedShare(categories []FixedCategory, shareMe float64) Money {
	var total float64
	for _, category := range categories {
		var categorySum float64
		for _, item := range category.Items {
			categorySum += CalculateMyShareForFixedItem(item, shareMe)
		}
		total += categorySum
	}
	return RoundMoney(total)
}

// SumFixedCosts returns the raw, unsplit total of all fixed items.
func SumFixedCosts(categories []FixedCategory) Money {
	var total float64
	for _, category := range categories {
		var categorySum float64
		for _, item := range category.Items {
			categorySum += item.Amount
		}
		total += categorySum
	}
	return RoundMoney(total)
}

// SumPrivateExpenses returns the rounded total of all private expenses.
func SumPrivateExpenses(expenses []PrivateExpense) Money {
	var total float64
	for _, e := range expenses {
		total += e.Amount
	}
	return RoundMoney(total)
}

// CalculateMonth turns one month's inputs into a full settlement.
//
// Fixed cost debt covers every split mode: "me" items count at 100% because
// the partner is assumed to have fronted them, "partner" items at 0. The
// prepayment then settles against that debt:
//
//	end = start + privateAdded + fixedCostDue - prepayment
func CalculateMonth(in MonthInputs) MonthComputed {
	shares := CalculateIncomeShares(in.Me.NetIncome, in.Partner.NetIncome)

	totalFixedCosts := SumFixedCosts(in.FixedCategories)
	myFixedShare := CalculateMyFixedShare(in.FixedCategories, shares.ShareMe)
	privateAdded := SumPrivateExpenses(in.PrivateExpenses)

	balanceStart := RoundMoney(in.PrivateBalanceStart)
	fixedCostDue := RoundMoney(myFixedShare)
	prepayment := RoundMoney(in.PrepaymentThisMonth)

	shortfall := RoundMoney(max(0, fixedCostDue-prepayment))
	overpayment := RoundMoney(max(0, prepayment-fixedCostDue))

	totalBefore := RoundMoney(balanceStart + privateAdded + fixedCostDue)
	balanceEnd := RoundMoney(totalBefore - prepayment)

	return MonthComputed{
		ShareMe:                         shares.ShareMe,
		SharePartner:                    shares.SharePartner,
		TotalFixedCosts:                 totalFixedCosts,
		MyFixedShare:                    myFixedShare,
		PrivateAddedThisMonth:           privateAdded,
		PrivateBalanceStart:             balanceStart,
		FixedCostDue:                    fixedCostDue,
		PrepaymentThisMonth:             prepayment,
		FixedCostShortfall:              shortfall,
		FixedCostOverpayment:            overpayment,
		PrivateTotalDueBeforePrepayment: totalBefore,
		PrivateBalanceEnd:               balanceEnd,
		RecommendedPrepayment:           fixedCostDue,
	}
}
