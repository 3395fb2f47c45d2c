package utils

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockTrader/internal/domain"
)

func TestWriteTradesToCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	trades := []*domain.Trade{
		{
			Reference:   "7d1c0a52-0000-4000-8000-000000000001",
			AccountID:   3,
			PositionID:  9,
			Symbol:      "ABC",
			TradeType:   domain.Buy,
			Price:       domain.MustMoney("10"),
			Shares:      10,
			Amount:      domain.MustMoney("100"),
			Fee:         domain.MustMoney("1.99"),
			ProcessDate: time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC),
		},
	}

	require.NoError(t, WriteTradesToCSV(trades, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, tradeHeader, rows[0])
	assert.Equal(t, []string{
		"7d1c0a52-0000-4000-8000-000000000001", "2024-05-01T14:30:00Z", "buy", "ABC",
		"10", "10.00", "100.00", "1.99", "3", "9",
	}, rows[1])
}

func TestWriteTradesToCSV_BadPath(t *testing.T) {
	err := WriteTradesToCSV(nil, filepath.Join(t.TempDir(), "missing", "trades.csv"))
	assert.Error(t, err)
}
