package domain

import "time"

// Account is a user's brokerage ledger: cash, the cost-basis value of open
// positions, and the amount it was opened with.
type Account struct {
	ID            int64
	UserID        int64
	CashAmount    Money
	EquityAmount  Money // Sum of BoughtAt*Shares over open positions
	InitialAmount Money
	Version       int64 // Bumped on every committed update
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TotalAmount is cash plus cost-basis equity.
func (a *Account) TotalAmount() Money {
	return a.CashAmount.Add(a.EquityAmount)
}

// CanCover reports whether the account's cash covers amount.
func (a *Account) CanCover(amount Money) bool {
	return a.CashAmount.GreaterThanOrEqual(amount)
}
