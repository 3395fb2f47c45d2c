package analytics

import (
	"testing"
	"time"

	"stockTrader/internal/calculator"
	"stockTrader/internal/domain"
)

func trade(posID int64, symbol string, side domain.TradeType, shares int64, price, amount string, at time.Time) *domain.Trade {
	return &domain.Trade{
		PositionID:  posID,
		Symbol:      symbol,
		TradeType:   side,
		Shares:      shares,
		Price:       domain.MustMoney(price),
		Amount:      domain.MustMoney(amount),
		Fee:         domain.MustMoney("1.99"),
		ProcessDate: at,
	}
}

func TestAnalyzeActivity(t *testing.T) {
	calc, err := calculator.New(calculator.Config{BrokerageFee: calculator.DefaultBrokerageFee})
	if err != nil {
		t.Fatalf("calculator.New: %v", err)
	}

	jan := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 5, 15, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

	// Deliberately out of order
	trades := []*domain.Trade{
		trade(2, "XYZ", domain.Sell, 2, "15.00", "30.00", mar),
		trade(1, "ABC", domain.Buy, 10, "10.00", "100.00", jan),
		trade(1, "ABC", domain.Buy, 10, "11.00", "110.00", jan.Add(time.Hour)),
		trade(1, "ABC", domain.Sell, 20, "12.00", "240.00", feb),
		trade(2, "XYZ", domain.Buy, 5, "20.00", "100.00", feb.Add(time.Hour)),
	}

	report := AnalyzeActivity(trades, calc)

	if report.TotalTrades != 5 {
		t.Errorf("Expected 5 total trades, got %d", report.TotalTrades)
	}
	if report.BuyTrades != 3 || report.SellTrades != 2 {
		t.Errorf("Expected 3 buys and 2 sells, got %d and %d", report.BuyTrades, report.SellTrades)
	}
	if got := report.GrossBought.String(); got != "310.00" {
		t.Errorf("Expected gross bought 310.00, got %s", got)
	}
	if got := report.GrossSold.String(); got != "270.00" {
		t.Errorf("Expected gross sold 270.00, got %s", got)
	}
	if got := report.FeesPaid.String(); got != "9.95" {
		t.Errorf("Expected fees 9.95, got %s", got)
	}
	if got := report.NetCashFlow.String(); got != "-49.95" {
		t.Errorf("Expected net cash flow -49.95, got %s", got)
	}
	if got := report.RealizedPnL.String(); got != "20.00" {
		t.Errorf("Expected realized P&L 20.00, got %s", got)
	}
	if report.WinningSells != 1 || report.LosingSells != 1 {
		t.Errorf("Expected 1 winning and 1 losing sell, got %d and %d", report.WinningSells, report.LosingSells)
	}
	if got := report.WinRate.StringFixed(2); got != "0.50" {
		t.Errorf("Expected win rate 0.50, got %s", got)
	}
	if !report.FirstTrade.Equal(jan) || !report.LastTrade.Equal(mar) {
		t.Errorf("Unexpected trade range %v - %v", report.FirstTrade, report.LastTrade)
	}
	if trades[0].ProcessDate != mar {
		t.Errorf("Input slice must not be reordered")
	}

	abc := report.Symbols["ABC"]
	if abc == nil || abc.SharesHeld != 0 || abc.RealizedPnL.String() != "30.00" {
		t.Errorf("Unexpected ABC activity: %+v", abc)
	}
	xyz := report.Symbols["XYZ"]
	if xyz == nil || xyz.SharesHeld != 3 || xyz.AverageCost.String() != "20.00" || xyz.RealizedPnL.String() != "-10.00" {
		t.Errorf("Unexpected XYZ activity: %+v", xyz)
	}

	flows := report.GetMonthlyFlows()
	want := []string{"-213.98", "136.02", "28.01"}
	if len(flows) != len(want) {
		t.Fatalf("Expected %d monthly flows, got %d", len(want), len(flows))
	}
	for i, w := range want {
		if got := flows[i].Net.String(); got != w {
			t.Errorf("Month %s: expected %s, got %s", flows[i].Month.Format("2006-01"), w, got)
		}
	}

	symbols := report.SortedSymbols()
	if len(symbols) != 2 || symbols[0].Symbol != "ABC" {
		t.Errorf("Expected symbols sorted ABC, XYZ")
	}
}

func TestAnalyzeActivity_Empty(t *testing.T) {
	calc, _ := calculator.New(calculator.Config{})
	report := AnalyzeActivity(nil, calc)
	if report.TotalTrades != 0 {
		t.Errorf("Expected 0 trades, got %d", report.TotalTrades)
	}
	if !report.NetCashFlow.IsZero() || !report.WinRate.IsZero() {
		t.Errorf("Expected zero totals for an empty log")
	}
	if len(report.GetMonthlyFlows()) != 0 {
		t.Errorf("Expected no monthly flows")
	}
}
