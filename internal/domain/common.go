package domain

// TradeType represents the side of a trade (buy or sell).
type TradeType string

const (
	Buy  TradeType = "buy"
	Sell TradeType = "sell"
)

// PositionStatus represents the status of a stock position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "open"
	StatusClosed PositionStatus = "closed"
)

// CashAction is the direction of a cash adjustment.
type CashAction string

const (
	Deposit  CashAction = "deposit"
	Withdraw CashAction = "withdraw"
)

// Valid reports whether the action is one the ledger understands.
func (a CashAction) Valid() bool {
	return a == Deposit || a == Withdraw
}

// Outcome is the business result of a ledger request that was understood.
// A declined request is not an error: callers render it to the user.
type Outcome string

const (
	OutcomeOK                Outcome = "ok"
	OutcomeInsufficientFunds Outcome = "insufficient_funds"
	OutcomeTooManyShares     Outcome = "too_many_shares"
)

// Declined reports whether the request was refused for business reasons.
func (o Outcome) Declined() bool {
	return o != OutcomeOK
}

// Message returns the user-facing text for the outcome.
func (o Outcome) Message() string {
	switch o {
	case OutcomeInsufficientFunds:
		return "Not enough funds available in the account."
	case OutcomeTooManyShares:
		return "Cannot sell more shares than are held."
	default:
		return "ok"
	}
}
