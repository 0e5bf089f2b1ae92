package core

// Total sums the amounts of the given expenses.
func Total(expenses []Expense) Money {
	var total Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// InMonth keeps the expenses dated in the given year and month (1-12).
func InMonth(expenses []Expense, year, month int) []Expense {
	var out []Expense
	for _, e := range expenses {
		if e.Date.Year() == year && e.Date.Month() == month {
			out = append(out, e)
		}
	}
	return out
}

// InCategory keeps the expenses whose category matches, ignoring case.
func InCategory(expenses []Expense, category string) []Expense {
	var out []Expense
	for _, e := range expenses {
		if SameCategory(e.Category, category) {
			out = append(out, e)
		}
	}
	return out
}
