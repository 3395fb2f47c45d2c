package domain

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// CurrencyCode is the single currency the simulator books in.
const CurrencyCode = money.USD

// moneyPlaces is the number of fractional digits persisted for currency amounts.
const moneyPlaces = 2

// Money is a fixed-point currency amount. All ledger arithmetic goes through
// decimal.Decimal; binary floats never appear in intermediate results.
type Money struct {
	value decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{value: decimal.Zero}

// NewMoney builds a Money from a decimal value, unrounded.
func NewMoney(d decimal.Decimal) Money { return Money{value: d} }

// MoneyFromCents builds a Money from an integer amount of cents.
func MoneyFromCents(cents int64) Money { return Money{value: decimal.New(cents, -moneyPlaces)} }

// ParseMoney parses a decimal string such as "1016.02".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{value: d}, nil
}

// MustMoney is ParseMoney for constants and tests.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal { return m.value }

func (m Money) Add(n Money) Money               { return Money{value: m.value.Add(n.value)} }
func (m Money) Sub(n Money) Money               { return Money{value: m.value.Sub(n.value)} }
func (m Money) Neg() Money                      { return Money{value: m.value.Neg()} }
func (m Money) Equal(n Money) bool              { return m.value.Equal(n.value) }
func (m Money) IsZero() bool                    { return m.value.IsZero() }
func (m Money) IsPositive() bool                { return m.value.IsPositive() }
func (m Money) IsNegative() bool                { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool           { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool        { return m.value.GreaterThan(n.value) }
func (m Money) GreaterThanOrEqual(n Money) bool { return m.value.GreaterThanOrEqual(n.value) }

// MulShares multiplies a per-share amount by a whole share count.
func (m Money) MulShares(shares int64) Money {
	return Money{value: m.value.Mul(decimal.NewFromInt(shares))}
}

// Round rounds half away from zero to the currency's 2 decimal places.
// decimal.Round is half-up on magnitude, which is what the ledger books.
func (m Money) Round() Money { return Money{value: m.value.Round(moneyPlaces)} }

// String returns the amount with exactly two decimals, e.g. "898.01".
func (m Money) String() string { return m.value.StringFixed(moneyPlaces) }

// Display formats the amount for people, e.g. "$1,016.02".
func (m Money) Display() string {
	cents := m.value.Shift(moneyPlaces).Round(0).IntPart()
	return money.New(cents, CurrencyCode).Display()
}

// MarshalJSON renders the amount as a 2-decimal string, matching how amounts
// are persisted.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted and bare JSON numbers.
func (m *Money) UnmarshalJSON(b []byte) error {
	return m.value.UnmarshalJSON(b)
}
