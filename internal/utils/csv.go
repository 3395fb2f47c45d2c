package utils

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"stockTrader/internal/domain"
)

var tradeHeader = []string{"reference", "process_date", "trade_type", "symbol", "shares", "price", "amount", "fee", "account_id", "position_id"}

// WriteTradesToCSV writes the trade log to filename, replacing it.
func WriteTradesToCSV(trades []*domain.Trade, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteTrades(file, trades); err != nil {
		return err
	}
	return file.Close()
}

// WriteTrades writes the trade log as CSV to w.
func WriteTrades(w io.Writer, trades []*domain.Trade) error {
	writer := csv.NewWriter(w)

	// Write header
	if err := writer.Write(tradeHeader); err != nil {
		return err
	}

	for _, t := range trades {
		writer.Write([]string{
			t.Reference,
			t.ProcessDate.UTC().Format(time.RFC3339),
			string(t.TradeType),
			t.Symbol,
			strconv.FormatInt(t.Shares, 10),
			t.Price.String(),
			t.Amount.String(),
			t.Fee.String(),
			strconv.FormatInt(t.AccountID, 10),
			strconv.FormatInt(t.PositionID, 10),
		})
	}
	writer.Flush()
	return writer.Error()
}
