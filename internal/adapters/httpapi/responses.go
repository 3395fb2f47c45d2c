package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"stockTrader/internal/analytics"
	"stockTrader/internal/app"
	"stockTrader/internal/domain"
	"stockTrader/internal/ports"
)

// envelope wraps every JSON body. A declined business outcome is
// success=false with the outcome in Result and a 200 status.
type envelope struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type accountResponse struct {
	ID            int64        `json:"id"`
	UserID        int64        `json:"user_id"`
	CashAmount    domain.Money `json:"cash_amount"`
	EquityAmount  domain.Money `json:"equity_amount"`
	InitialAmount domain.Money `json:"initial_amount"`
	TotalAmount   domain.Money `json:"total_amount"`
}

type positionResponse struct {
	ID          int64                 `json:"id"`
	Symbol      string                `json:"symbol"`
	Shares      int64                 `json:"shares"`
	BoughtAt    domain.Money          `json:"bought_at"`
	BoughtOn    time.Time             `json:"bought_on"`
	SoldOn      *time.Time            `json:"sold_on,omitempty"`
	InitialCost domain.Money          `json:"initial_cost"`
	Status      domain.PositionStatus `json:"status"`
}

type tradeResponse struct {
	ID          int64            `json:"id"`
	Reference   string           `json:"reference"`
	AccountID   int64            `json:"account_id"`
	PositionID  int64            `json:"position_id"`
	Symbol      string           `json:"symbol"`
	TradeType   domain.TradeType `json:"trade_type"`
	Price       domain.Money     `json:"price"`
	Shares      int64            `json:"shares"`
	Amount      domain.Money     `json:"amount"`
	Fee         domain.Money     `json:"fee"`
	ProcessDate time.Time        `json:"process_date"`
}

type tradeResultResponse struct {
	Account  accountResponse   `json:"account"`
	Position *positionResponse `json:"position,omitempty"`
	Trade    *tradeResponse    `json:"trade,omitempty"`
}

type symbolActivityResponse struct {
	Symbol       string       `json:"symbol"`
	SharesBought int64        `json:"shares_bought"`
	SharesSold   int64        `json:"shares_sold"`
	SharesHeld   int64        `json:"shares_held"`
	AverageCost  domain.Money `json:"average_cost"`
	RealizedPnL  domain.Money `json:"realized_pnl"`
}

type monthlyFlowResponse struct {
	Month string       `json:"month"`
	Net   domain.Money `json:"net"`
}

type activityResponse struct {
	TotalTrades  int                      `json:"total_trades"`
	BuyTrades    int                      `json:"buy_trades"`
	SellTrades   int                      `json:"sell_trades"`
	WinRate      decimal.Decimal          `json:"win_rate"`
	GrossBought  domain.Money             `json:"gross_bought"`
	GrossSold    domain.Money             `json:"gross_sold"`
	FeesPaid     domain.Money             `json:"fees_paid"`
	NetCashFlow  domain.Money             `json:"net_cash_flow"`
	RealizedPnL  domain.Money             `json:"realized_pnl"`
	MonthlyFlows []monthlyFlowResponse    `json:"monthly_flows"`
	Symbols      []symbolActivityResponse `json:"symbols"`
}

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:            a.ID,
		UserID:        a.UserID,
		CashAmount:    a.CashAmount,
		EquityAmount:  a.EquityAmount,
		InitialAmount: a.InitialAmount,
		TotalAmount:   a.TotalAmount(),
	}
}

func toPositionResponse(p *domain.Position) *positionResponse {
	if p == nil {
		return nil
	}
	return &positionResponse{
		ID:          p.ID,
		Symbol:      p.Symbol,
		Shares:      p.Shares,
		BoughtAt:    p.BoughtAt,
		BoughtOn:    p.BoughtOn,
		SoldOn:      p.SoldOn,
		InitialCost: p.InitialCost,
		Status:      p.Status,
	}
}

func toTradeResponse(t *domain.Trade) *tradeResponse {
	if t == nil {
		return nil
	}
	return &tradeResponse{
		ID:          t.ID,
		Reference:   t.Reference,
		AccountID:   t.AccountID,
		PositionID:  t.PositionID,
		Symbol:      t.Symbol,
		TradeType:   t.TradeType,
		Price:       t.Price,
		Shares:      t.Shares,
		Amount:      t.Amount,
		Fee:         t.Fee,
		ProcessDate: t.ProcessDate,
	}
}

func toActivityResponse(r *analytics.ActivityReport) activityResponse {
	resp := activityResponse{
		TotalTrades:  r.TotalTrades,
		BuyTrades:    r.BuyTrades,
		SellTrades:   r.SellTrades,
		WinRate:      r.WinRate,
		GrossBought:  r.GrossBought,
		GrossSold:    r.GrossSold,
		FeesPaid:     r.FeesPaid,
		NetCashFlow:  r.NetCashFlow,
		RealizedPnL:  r.RealizedPnL,
		MonthlyFlows: []monthlyFlowResponse{},
		Symbols:      []symbolActivityResponse{},
	}
	for _, f := range r.GetMonthlyFlows() {
		resp.MonthlyFlows = append(resp.MonthlyFlows, monthlyFlowResponse{Month: f.Month.Format("2006-01"), Net: f.Net})
	}
	for _, s := range r.SortedSymbols() {
		resp.Symbols = append(resp.Symbols, symbolActivityResponse{
			Symbol:       s.Symbol,
			SharesBought: s.SharesBought,
			SharesSold:   s.SharesSold,
			SharesHeld:   s.SharesHeld,
			AverageCost:  s.AverageCost,
			RealizedPnL:  s.RealizedPnL,
		})
	}
	return resp
}

// writeOutcome answers a trade or cash request that the ledger understood.
func writeOutcome(w http.ResponseWriter, outcome domain.Outcome, result interface{}) {
	if outcome.Declined() {
		writeJSON(w, http.StatusOK, envelope{Success: false, Result: outcome, Message: outcome.Message()})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Result: result})
}

func tradeResult(res *app.TradeResult) tradeResultResponse {
	return tradeResultResponse{
		Account:  toAccountResponse(res.Account),
		Position: toPositionResponse(res.Position),
		Trade:    toTradeResponse(res.Trade),
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps ledger errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ports.ErrUserNotFound),
		errors.Is(err, ports.ErrAccountNotFound),
		errors.Is(err, ports.ErrPositionNotFound),
		errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ports.ErrAccountExists),
		errors.Is(err, ports.ErrPositionExists),
		errors.Is(err, ports.ErrDuplicateEntry),
		errors.Is(err, ports.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ports.ErrInvalidRequest),
		errors.Is(err, ports.ErrInvalidAction),
		errors.Is(err, ports.ErrBelowMinimum):
		return http.StatusBadRequest
	case errors.Is(err, ports.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), err, op+" failed", map[string]interface{}{"path": r.URL.Path})
		msg = "internal error"
	}
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: msg})
}
