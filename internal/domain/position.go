package domain

import "time"

// Position is a holding of one symbol within one account.
type Position struct {
	ID          int64
	AccountID   int64
	Symbol      string
	Shares      int64
	BoughtAt    Money // Cost basis per share
	BoughtOn    time.Time
	SoldOn      *time.Time // nil while open
	InitialCost Money
	Status      PositionStatus
}

// IsOpen checks if the position status is open.
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// CostBasis is the position's share count valued at BoughtAt.
func (p *Position) CostBasis() Money {
	return p.BoughtAt.MulShares(p.Shares).Round()
}

// Close marks the position sold out on the given date.
func (p *Position) Close(on time.Time) {
	p.Status = StatusClosed
	p.Shares = 0
	p.SoldOn = &on
}
