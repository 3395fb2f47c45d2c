package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"stockTrader/internal/calculator"
	"stockTrader/internal/domain"
)

// ActivityReport summarises an account's trade log
type ActivityReport struct {
	// Counts
	TotalTrades  int
	BuyTrades    int
	SellTrades   int
	WinningSells int
	LosingSells  int
	WinRate      decimal.Decimal // Share of sells above cost basis, 0..1

	// Cash
	GrossBought domain.Money
	GrossSold   domain.Money
	FeesPaid    domain.Money
	NetCashFlow domain.Money // GrossSold - GrossBought - FeesPaid

	// RealizedPnL is sale amounts minus the cost basis of the shares sold,
	// before fees. The cost basis is replayed with the ledger's averaging.
	RealizedPnL domain.Money

	FirstTrade   time.Time
	LastTrade    time.Time
	MonthlyFlows map[string]domain.Money // "2006-01" -> net cash flow
	Symbols      map[string]*SymbolActivity
}

// SymbolActivity holds per-symbol totals
type SymbolActivity struct {
	Symbol       string
	SharesBought int64
	SharesSold   int64
	SharesHeld   int64
	AverageCost  domain.Money // Of the shares still held
	RealizedPnL  domain.Money
}

// positionState tracks a replayed position between trades.
type positionState struct {
	shares  int64
	avgCost domain.Money
}

// AnalyzeActivity replays trades in process order. The input slice is not
// reordered.
func AnalyzeActivity(trades []*domain.Trade, calc *calculator.Calculator) *ActivityReport {
	report := &ActivityReport{
		GrossBought:  domain.Zero,
		GrossSold:    domain.Zero,
		FeesPaid:     domain.Zero,
		NetCashFlow:  domain.Zero,
		RealizedPnL:  domain.Zero,
		WinRate:      decimal.Zero,
		MonthlyFlows: make(map[string]domain.Money),
		Symbols:      make(map[string]*SymbolActivity),
	}

	if len(trades) == 0 {
		return report
	}

	// Sort a copy by process date
	ordered := make([]*domain.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ProcessDate.Before(ordered[j].ProcessDate)
	})

	positions := make(map[int64]*positionState)

	for _, trade := range ordered {
		report.TotalTrades++
		report.FeesPaid = report.FeesPaid.Add(trade.Fee)

		sym := report.Symbols[trade.Symbol]
		if sym == nil {
			sym = &SymbolActivity{Symbol: trade.Symbol, AverageCost: domain.Zero, RealizedPnL: domain.Zero}
			report.Symbols[trade.Symbol] = sym
		}
		pos := positions[trade.PositionID]
		if pos == nil {
			pos = &positionState{avgCost: domain.Zero}
			positions[trade.PositionID] = pos
		}

		var flow domain.Money
		switch trade.TradeType {
		case domain.Buy:
			report.BuyTrades++
			report.GrossBought = report.GrossBought.Add(trade.Amount)
			flow = trade.Amount.Neg()

			pos.avgCost = calc.AverageCost(pos.shares, pos.avgCost, trade.Shares, trade.Price)
			pos.shares += trade.Shares
			sym.SharesBought += trade.Shares

		case domain.Sell:
			report.SellTrades++
			report.GrossSold = report.GrossSold.Add(trade.Amount)
			flow = trade.Amount

			pnl := trade.Amount.Sub(calc.CostBasis(trade.Shares, pos.avgCost))
			report.RealizedPnL = report.RealizedPnL.Add(pnl)
			sym.RealizedPnL = sym.RealizedPnL.Add(pnl)
			if pnl.IsPositive() {
				report.WinningSells++
			} else {
				report.LosingSells++
			}

			pos.shares -= trade.Shares
			if pos.shares <= 0 {
				delete(positions, trade.PositionID)
			}
			sym.SharesSold += trade.Shares
		}

		monthKey := trade.ProcessDate.Format("2006-01")
		report.MonthlyFlows[monthKey] = report.MonthlyFlows[monthKey].Add(flow.Sub(trade.Fee))
	}

	report.FirstTrade = ordered[0].ProcessDate
	report.LastTrade = ordered[len(ordered)-1].ProcessDate
	report.NetCashFlow = report.GrossSold.Sub(report.GrossBought).Sub(report.FeesPaid)
	if report.SellTrades > 0 {
		report.WinRate = decimal.NewFromInt(int64(report.WinningSells)).
			DivRound(decimal.NewFromInt(int64(report.SellTrades)), 4)
	}

	// Shares still held per symbol, valued at the replayed average cost
	for _, trade := range ordered {
		if pos, ok := positions[trade.PositionID]; ok {
			sym := report.Symbols[trade.Symbol]
			sym.SharesHeld = pos.shares
			sym.AverageCost = pos.avgCost
		}
	}

	return report
}

// GetMonthlyFlows returns the monthly net cash flows as a sorted slice
func (r *ActivityReport) GetMonthlyFlows() []MonthlyFlow {
	flows := make([]MonthlyFlow, 0, len(r.MonthlyFlows))
	for month, flow := range r.MonthlyFlows {
		date, _ := time.Parse("2006-01", month)
		flows = append(flows, MonthlyFlow{
			Month: date,
			Net:   flow,
		})
	}
	sort.Slice(flows, func(i, j int) bool {
		return flows[i].Month.Before(flows[j].Month)
	})
	return flows
}

// SortedSymbols returns per-symbol activity ordered by symbol
func (r *ActivityReport) SortedSymbols() []*SymbolActivity {
	out := make([]*SymbolActivity, 0, len(r.Symbols))
	for _, s := range r.Symbols {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// MonthlyFlow represents one month's net cash flow
type MonthlyFlow struct {
	Month time.Time
	Net   domain.Money
}
