package calculator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockTrader/internal/domain"
	"stockTrader/internal/ports"
)

func newTestCalculator(t *testing.T) *Calculator {
	t.Helper()
	calc, err := New(Config{BrokerageFee: DefaultBrokerageFee})
	require.NoError(t, err)
	return calc
}

func TestDefaultBrokerageFee(t *testing.T) {
	assert.Equal(t, "1.99", DefaultBrokerageFee.String())
	assert.Equal(t, "1.99", newTestCalculator(t).Fee().String())
}

func TestNew_RejectsNegativeFee(t *testing.T) {
	calc, err := New(Config{BrokerageFee: domain.MustMoney("-0.01")})
	assert.Nil(t, calc)
	assert.True(t, errors.Is(err, ports.ErrConfigurationError))
}

func TestCalculator_Amount(t *testing.T) {
	calc := newTestCalculator(t)

	tests := []struct {
		name   string
		shares int64
		price  string
		want   string
	}{
		{name: "whole cents", shares: 10, price: "10.00", want: "100.00"},
		{name: "rounds half up", shares: 1, price: "0.125", want: "0.13"},
		{name: "rounds down below half", shares: 3, price: "0.3333", want: "1.00"},
		{name: "no float drift", shares: 3, price: "0.10", want: "0.30"},
		{name: "zero price", shares: 5, price: "0", want: "0.00"},
		{name: "large position", shares: 1000000, price: "1234.56", want: "1234560000.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Amount(tt.shares, domain.MustMoney(tt.price))
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestCalculator_BuyCostAndSellProceeds(t *testing.T) {
	calc := newTestCalculator(t)

	assert.Equal(t, "101.99", calc.BuyCost(10, domain.MustMoney("10.00")).String())
	assert.Equal(t, "118.01", calc.SellProceeds(10, domain.MustMoney("12.00")).String())
	// Fee is charged once, not per share.
	assert.Equal(t, "1001.99", calc.BuyCost(1000, domain.MustMoney("1.00")).String())
	// Tiny sales can net negative.
	assert.Equal(t, "-0.99", calc.SellProceeds(1, domain.MustMoney("1.00")).String())
}

func TestCalculator_Validate(t *testing.T) {
	calc := newTestCalculator(t)

	tests := []struct {
		name    string
		shares  int64
		price   string
		wantErr bool
	}{
		{name: "valid", shares: 1, price: "10.00"},
		{name: "free stock is allowed", shares: 1, price: "0"},
		{name: "zero shares", shares: 0, price: "10.00", wantErr: true},
		{name: "negative shares", shares: -5, price: "10.00", wantErr: true},
		{name: "negative price", shares: 1, price: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := calc.Validate(tt.shares, domain.MustMoney(tt.price))
			if tt.wantErr {
				assert.ErrorIs(t, err, ports.ErrInvalidRequest)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCalculator_AverageCost(t *testing.T) {
	calc := newTestCalculator(t)

	got := calc.AverageCost(10, domain.MustMoney("10.00"), 10, domain.MustMoney("20.00"))
	assert.Equal(t, "15.00", got.String())

	got = calc.AverageCost(3, domain.MustMoney("10.00"), 1, domain.MustMoney("11.00"))
	assert.Equal(t, "10.25", got.String())

	got = calc.AverageCost(2, domain.MustMoney("10.00"), 1, domain.MustMoney("10.01"))
	assert.Equal(t, "10.00", got.String())

	// 30.02 / 3 rounds up, so the basis is a cent above what was paid.
	got = calc.AverageCost(1, domain.MustMoney("10.00"), 2, domain.MustMoney("10.01"))
	assert.Equal(t, "10.01", got.String())
	assert.Equal(t, "30.03", calc.CostBasis(3, got).String())

	assert.True(t, calc.AverageCost(0, domain.Zero, 0, domain.Zero).IsZero())
}

func TestCalculator_CustomFee(t *testing.T) {
	calc, err := New(Config{BrokerageFee: domain.MustMoney("0")})
	require.NoError(t, err)
	assert.Equal(t, "100.00", calc.BuyCost(10, domain.MustMoney("10")).String())
	assert.True(t, calc.Fee().IsZero())
}
