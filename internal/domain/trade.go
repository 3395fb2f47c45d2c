package domain

import "time"

// Trade is an append-only audit record of a buy or sell execution.
type Trade struct {
	ID          int64
	Reference   string // UUID handed to callers for correlation
	UserID      int64
	AccountID   int64
	PositionID  int64
	Symbol      string
	TradeType   TradeType
	Price       Money
	Shares      int64
	Amount      Money // round(Shares*Price, 2)
	Fee         Money
	ProcessDate time.Time
}
