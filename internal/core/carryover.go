package core

// NextBalanceStart returns the starting balance for the month after prev.
// It is prev's ending balance, unchanged.
func NextBalanceStart(prev MonthComputed) Money {
	return prev.PrivateBalanceEnd
}

// Chain settles consecutive months. months[0] starts at start; every later
// month starts at the previous month's ending balance, whatever its own
// PrivateBalanceStart says.
func Chain(start Money, months []MonthInputs) []MonthComputed {
	results := make([]MonthComputed, 0, len(months))
	balance := start
	for _, in := range months {
		in.PrivateBalanceStart = balance
		computed := CalculateMonth(in)
		results = append(results, computed)
		balance = NextBalanceStart(computed)
	}
	return results
}
