package models

// MInstrumentSnapshot is the normalized state of one ticker symbol.
// Numeric fields are decimal text to avoid float round-trip loss.
type MInstrumentSnapshot struct {
	Price     string      `json:"price"`
	Profile   MProfile    `json:"profile"`
	Dividends []MDividend `json:"dividends"`
}

// MProfile carries fund profile data. NetExpenseRatio is a fraction, not a percent.
type MProfile struct {
	NetExpenseRatio string `json:"net_expense_ratio"`
}

// MDividend is one dividend payment, most recent first within a snapshot.
type MDividend struct {
	Amount         string `json:"amount"`
	ExDividendDate string `json:"ex_dividend_date"` // YYYY-MM-DD
}
