package core

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func person(role PersonRole, income Money) Person {
	name := "Me"
	if role == RolePartner {
		name = "Partner"
	}
	return Person{Role: role, Name: name, NetIncome: income}
}

func item(amount Money, mode SplitMode) FixedItem {
	return FixedItem{Label: "Test Item", Amount: amount, SplitMode: mode}
}

func category(items ...FixedItem) FixedCategory {
	return FixedCategory{Label: "Test Category", Items: items}
}

func monthInputs(incomeMe, incomePartner Money, prepayment Money, items ...FixedItem) MonthInputs {
	in := MonthInputs{
		Me:                  person(RoleMe, incomeMe),
		Partner:             person(RolePartner, incomePartner),
		PrepaymentThisMonth: prepayment,
	}
	if len(items) > 0 {
		in.FixedCategories = []FixedCategory{category(items...)}
	}
	return in
}

func TestCalculateIncomeShares(t *testing.T) {
	tests := []struct {
		name                string
		me, partner         Money
		wantMe, wantPartner float64
	}{
		{"both zero falls back to even split", 0, 0, 0.5, 0.5},
		{"both negative falls back to even split", -10, -1, 0.5, 0.5},
		{"only me", 1000, 0, 1, 0},
		{"only partner", 0, 2000, 0, 1},
		{"only me with negative partner", 4000, -5, 1, 0},
		{"proportional", 2000, 3000, 0.4, 0.6},
		{"equal incomes", 2000, 2000, 0.5, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateIncomeShares(tt.me, tt.partner)
			assert.InDelta(t, tt.wantMe, got.ShareMe, 1e-12)
			assert.InDelta(t, tt.wantPartner, got.SharePartner, 1e-12)
			assert.Equal(t, 1.0, got.ShareMe+got.SharePartner)
		})
	}
}

func TestIncomeSharesSumToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10000; i++ {
		me := RoundMoney(rng.Float64() * 20000)
		partner := RoundMoney(rng.Float64() * 20000)
		if me == 0 && partner == 0 {
			continue
		}
		s := CalculateIncomeShares(me, partner)
		require.Equal(t, 1.0, s.ShareMe+s.SharePartner, "incomes %v/%v", me, partner)
	}
}

func TestCalculateMyShareForFixedItem(t *testing.T) {
	tests := []struct {
		name    string
		item    FixedItem
		shareMe float64
		want    Money
	}{
		{"me pays everything", item(100, SplitMe), 0.25, 100},
		{"partner pays everything", item(100, SplitPartner), 0.25, 0},
		{"income split", item(100, SplitIncome), 0.25, 25},
		{"legacy half behaves like income", item(100, "half"), 0.25, 25},
		{"unknown mode behaves like income", item(100, "bogus"), 0.4, 40},
		{"half cent rounds up", item(10.01, SplitIncome), 0.5, 5.01},
		{"fractional share", item(33.33, SplitIncome), 0.333, 11.1},
		{"me mode rounds amount", item(19.999, SplitMe), 0.1, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateMyShareForFixedItem(tt.item, tt.shareMe))
		})
	}
}

func TestCalculateMyFixedShare(t *testing.T) {
	categories := []FixedCategory{
		category(item(100, SplitMe), item(200, SplitIncome)),
		category(item(100, SplitIncome), item(50, SplitPartner)),
	}
	// 100 + 80 + 40 + 0
	assert.Equal(t, 220.0, CalculateMyFixedShare(categories, 0.4))
	assert.Equal(t, 0.0, CalculateMyFixedShare(nil, 0.4))
}

func TestCalculateMyFixedShareRoundsPerItem(t *testing.T) {
	// Three items of 0.01 at 50%: each rounds 0.005 -> 0.01, so the total is
	// 0.03. Rounding once at the end would give 0.02.
	categories := []FixedCategory{category(item(0.01, SplitIncome), item(0.01, SplitIncome), item(0.01, SplitIncome))}
	assert.Equal(t, 0.03, CalculateMyFixedShare(categories, 0.5))
}

func TestSumFixedCosts(t *testing.T) {
	categories := []FixedCategory{
		category(item(0.1, SplitMe), item(0.2, SplitPartner)),
		category(item(1000, SplitIncome)),
		{Label: "Empty"},
	}
	assert.Equal(t, 1000.3, SumFixedCosts(categories))
	assert.Equal(t, 0.0, SumFixedCosts(nil))
}

func TestSumPrivateExpenses(t *testing.T) {
	expenses := []PrivateExpense{{Amount: 50}, {Amount: 30}, {Amount: 0.1}, {Amount: 0.2}}
	assert.Equal(t, 80.3, SumPrivateExpenses(expenses))
	assert.Equal(t, 0.0, SumPrivateExpenses(nil))
}

func TestCalculateMonthScenarios(t *testing.T) {
	t.Run("income item", func(t *testing.T) {
		got := CalculateMonth(monthInputs(2000, 3000, 0, item(100, SplitIncome)))
		assert.InDelta(t, 0.4, got.ShareMe, 1e-12)
		assert.Equal(t, 40.0, got.FixedCostDue)
		assert.Equal(t, 40.0, got.PrivateBalanceEnd)
	})

	t.Run("me item is full debt", func(t *testing.T) {
		got := CalculateMonth(monthInputs(2000, 3000, 0, item(100, SplitMe)))
		assert.Equal(t, 100.0, got.FixedCostDue)
		assert.Equal(t, 100.0, got.PrivateBalanceEnd)
	})

	t.Run("partner item is no debt", func(t *testing.T) {
		got := CalculateMonth(monthInputs(2000, 3000, 0, item(100, SplitPartner)))
		assert.Equal(t, 0.0, got.FixedCostDue)
		assert.Equal(t, 0.0, got.PrivateBalanceEnd)
		assert.Equal(t, 100.0, got.TotalFixedCosts)
	})

	t.Run("shortfall", func(t *testing.T) {
		got := CalculateMonth(monthInputs(2000, 3000, 300, item(1000, SplitIncome)))
		assert.Equal(t, 400.0, got.FixedCostDue)
		assert.Equal(t, 100.0, got.FixedCostShortfall)
		assert.Equal(t, 0.0, got.FixedCostOverpayment)
		assert.Equal(t, 100.0, got.PrivateBalanceEnd)
	})

	t.Run("overpayment", func(t *testing.T) {
		got := CalculateMonth(monthInputs(2000, 3000, 500, item(1000, SplitIncome)))
		assert.Equal(t, 0.0, got.FixedCostShortfall)
		assert.Equal(t, 100.0, got.FixedCostOverpayment)
		assert.Equal(t, -100.0, got.PrivateBalanceEnd)
	})

	t.Run("equal incomes", func(t *testing.T) {
		got := CalculateMonth(monthInputs(2000, 2000, 300, item(1000, SplitIncome)))
		assert.Equal(t, 500.0, got.FixedCostDue)
		assert.Equal(t, 200.0, got.FixedCostShortfall)
	})
}

func TestCalculateMonthFullReport(t *testing.T) {
	in := MonthInputs{
		Me:      person(RoleMe, 2000),
		Partner: person(RolePartner, 3000),
		FixedCategories: []FixedCategory{
			category(item(1000, SplitIncome), item(60, SplitMe)),
			category(item(45.5, SplitPartner)),
		},
		PrivateExpenses: []PrivateExpense{
			{Date: NewDate(2025, 1, 3), Description: "Groceries", Amount: 42.1},
			{Date: NewDate(2025, 1, 9), Description: "Pharmacy", Amount: 7.9},
		},
		PrivateBalanceStart: 12.35,
		PrepaymentThisMonth: 400,
	}

	got := CalculateMonth(in)

	assert.Equal(t, MonthComputed{
		ShareMe:                         got.ShareMe,
		SharePartner:                    got.SharePartner,
		TotalFixedCosts:                 1105.5,
		MyFixedShare:                    460,
		PrivateAddedThisMonth:           50,
		PrivateBalanceStart:             12.35,
		FixedCostDue:                    460,
		PrepaymentThisMonth:             400,
		FixedCostShortfall:              60,
		FixedCostOverpayment:            0,
		PrivateTotalDueBeforePrepayment: 522.35,
		PrivateBalanceEnd:               122.35,
		RecommendedPrepayment:           460,
	}, got)
}

func TestCalculateMonthNoIncomeData(t *testing.T) {
	got := CalculateMonth(monthInputs(0, 0, 0, item(100, SplitIncome)))
	assert.Equal(t, 0.5, got.ShareMe)
	assert.Equal(t, 50.0, got.FixedCostDue)
}

func TestCalculateMonthClampsNonFiniteInputs(t *testing.T) {
	in := monthInputs(2000, 3000, math.NaN(), item(100, SplitIncome))
	in.PrivateBalanceStart = math.Inf(1)

	got := CalculateMonth(in)

	assert.Equal(t, 0.0, got.PrivateBalanceStart)
	assert.Equal(t, 0.0, got.PrepaymentThisMonth)
	assert.Equal(t, 40.0, got.PrivateBalanceEnd)
	assert.False(t, math.IsNaN(got.FixedCostShortfall))
}

func randomInputs(rng *rand.Rand) MonthInputs {
	modes := []SplitMode{SplitIncome, SplitMe, SplitPartner}
	in := MonthInputs{
		Me:                  person(RoleMe, RoundMoney(rng.Float64()*6000)),
		Partner:             person(RolePartner, RoundMoney(rng.Float64()*6000)),
		PrivateBalanceStart: RoundMoney(rng.Float64()*2000 - 1000),
		PrepaymentThisMonth: RoundMoney(rng.Float64() * 2000),
	}
	for c := 0; c < rng.Intn(4); c++ {
		var cat FixedCategory
		for i := 0; i < rng.Intn(6); i++ {
			cat.Items = append(cat.Items, item(RoundMoney(rng.Float64()*900), modes[rng.Intn(len(modes))]))
		}
		in.FixedCategories = append(in.FixedCategories, cat)
	}
	for i := 0; i < rng.Intn(8); i++ {
		in.PrivateExpenses = append(in.PrivateExpenses, PrivateExpense{Amount: RoundMoney(rng.Float64() * 150)})
	}
	return in
}

func TestCalculateMonthProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		in := randomInputs(rng)
		got := CalculateMonth(in)

		require.Equal(t, got.MyFixedShare, got.FixedCostDue)
		require.Equal(t, got.FixedCostDue, got.RecommendedPrepayment)
		require.False(t, got.FixedCostShortfall != 0 && got.FixedCostOverpayment != 0,
			"shortfall %v and overpayment %v both set", got.FixedCostShortfall, got.FixedCostOverpayment)
		if got.PrepaymentThisMonth == got.FixedCostDue {
			require.Zero(t, got.FixedCostShortfall)
			require.Zero(t, got.FixedCostOverpayment)
		}
		require.Equal(t, RoundMoney(got.PrivateTotalDueBeforePrepayment-got.PrepaymentThisMonth), got.PrivateBalanceEnd)
		require.Equal(t, got, CalculateMonth(in), "calculation must be deterministic")
	}
}

func TestCalculateMonthDoesNotMutateInputs(t *testing.T) {
	in := monthInputs(2000, 3000, 100, item(100.005, SplitIncome))
	in.PrivateBalanceStart = 1.005
	before := in.FixedCategories[0].Items[0]

	CalculateMonth(in)

	assert.Equal(t, 1.005, in.PrivateBalanceStart)
	assert.Equal(t, before, in.FixedCategories[0].Items[0])
}
