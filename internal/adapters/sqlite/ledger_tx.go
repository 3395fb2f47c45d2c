package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stockTrader/internal/domain"
	"stockTrader/internal/ports"
)

const (
	userColumns     = `id, login, password_hash, salt, first_name, last_name, created_at`
	accountColumns  = `id, user_id, cash_amount, equity_amount, initial_amount, version, created_at, updated_at`
	positionColumns = `id, account_id, symbol, shares, bought_at, bought_on, sold_on, initial_cost, status`
	tradeColumns    = `id, reference, user_id, account_id, stock_id, symbol, trade_type, price, shares, amount, fee, process_date`
)

// ledgerTx implements ports.LedgerTx over a *sql.Tx.
type ledgerTx struct {
	tx     *sql.Tx
	logger ports.Logger
}

func (t *ledgerTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *ledgerTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// --- Users ---

func (t *ledgerTx) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user ID %d: %w: %w", id, ports.ErrQueryFailed, err)
	}
	return user, nil
}

// --- Accounts ---

func (t *ledgerTx) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`
	acct, err := scanAccount(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			t.logger.Debug(ctx, "Account not found by ID", map[string]interface{}{"accountID": id})
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query account ID %d: %w: %w", id, ports.ErrQueryFailed, err)
	}
	return acct, nil
}

func (t *ledgerTx) GetAccountByUser(ctx context.Context, userID int64) (*domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = ?`
	acct, err := scanAccount(t.tx.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query account for user ID %d: %w: %w", userID, ports.ErrQueryFailed, err)
	}
	return acct, nil
}

func (t *ledgerTx) InsertAccount(ctx context.Context, acct *domain.Account) (int64, error) {
	const query = `
	INSERT INTO accounts (user_id, cash_amount, equity_amount, initial_amount, version, created_at, updated_at)
	VALUES (?, ?, ?, ?, 0, ?, ?)`

	now := time.Now().UTC()
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = now
	}
	acct.UpdatedAt = now
	result, err := t.tx.ExecContext(ctx, query,
		acct.UserID, acct.CashAmount.String(), acct.EquityAmount.String(), acct.InitialAmount.String(),
		formatTime(acct.CreatedAt), formatTime(acct.UpdatedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to insert account for user ID %d: %w", acct.UserID, mapConstraintError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for account: %w", err)
	}
	acct.ID = id
	acct.Version = 0
	t.logger.Debug(ctx, "Account created", map[string]interface{}{"accountID": id, "userID": acct.UserID})
	return id, nil
}

func (t *ledgerTx) UpdateAccount(ctx context.Context, acct *domain.Account) error {
	const query = `
	UPDATE accounts
	SET cash_amount = ?, equity_amount = ?, initial_amount = ?, version = version + 1, updated_at = ?
	WHERE id = ? AND version = ?`

	now := time.Now().UTC()
	result, err := t.tx.ExecContext(ctx, query,
		acct.CashAmount.String(), acct.EquityAmount.String(), acct.InitialAmount.String(), formatTime(now),
		acct.ID, acct.Version)
	if err != nil {
		return fmt.Errorf("failed to update account ID %d: %w: %w", acct.ID, ports.ErrUpdateFailed, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for update account ID %d: %w", acct.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("account ID %d changed since version %d: %w", acct.ID, acct.Version, ports.ErrConflict)
	}
	acct.Version++
	acct.UpdatedAt = now
	t.logger.Debug(ctx, "Account updated", map[string]interface{}{
		"accountID": acct.ID,
		"cash":      acct.CashAmount.String(),
		"equity":    acct.EquityAmount.String(),
		"version":   acct.Version,
	})
	return nil
}

func (t *ledgerTx) DeleteAccount(ctx context.Context, id int64) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account ID %d: %w: %w", id, ports.ErrDeleteFailed, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for delete account ID %d: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("account ID %d not found for delete: %w", id, ports.ErrNotFound)
	}
	t.logger.Debug(ctx, "Account deleted", map[string]interface{}{"accountID": id})
	return nil
}

// --- Positions ---

func (t *ledgerTx) GetPosition(ctx context.Context, accountID, id int64) (*domain.Position, error) {
	const query = `SELECT ` + positionColumns + ` FROM stocks WHERE id = ? AND account_id = ?`
	pos, err := scanPosition(t.tx.QueryRowContext(ctx, query, id, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			t.logger.Debug(ctx, "Position not found by ID", map[string]interface{}{"positionID": id, "accountID": accountID})
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query position ID %d: %w: %w", id, ports.ErrQueryFailed, err)
	}
	return pos, nil
}

func (t *ledgerTx) GetOpenPositionBySymbol(ctx context.Context, accountID int64, symbol string) (*domain.Position, error) {
	const query = `SELECT ` + positionColumns + ` FROM stocks WHERE account_id = ? AND symbol = ? AND status = ?`
	pos, err := scanPosition(t.tx.QueryRowContext(ctx, query, accountID, symbol, domain.StatusOpen))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query open position for symbol %s: %w: %w", symbol, ports.ErrQueryFailed, err)
	}
	return pos, nil
}

func (t *ledgerTx) ListOpenPositions(ctx context.Context, accountID int64) ([]*domain.Position, error) {
	const query = `SELECT ` + positionColumns + ` FROM stocks WHERE account_id = ? AND status = ? ORDER BY symbol`
	rows, err := t.tx.QueryContext(ctx, query, accountID, domain.StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions for account ID %d: %w: %w", accountID, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	positions := make([]*domain.Position, 0)
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position during ListOpenPositions: %w", err)
		}
		positions = append(positions, pos)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position rows: %w", err)
	}
	return positions, nil
}

func (t *ledgerTx) InsertPosition(ctx context.Context, pos *domain.Position) (int64, error) {
	const query = `
	INSERT INTO stocks (account_id, symbol, shares, bought_at, bought_on, sold_on, initial_cost, status)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := t.tx.ExecContext(ctx, query,
		pos.AccountID, pos.Symbol, pos.Shares, pos.BoughtAt.String(), formatTime(pos.BoughtOn),
		nullTime(pos.SoldOn), pos.InitialCost.String(), pos.Status)
	if err != nil {
		return 0, fmt.Errorf("failed to insert position for symbol %s: %w", pos.Symbol, mapConstraintError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for position %s: %w", pos.Symbol, err)
	}
	pos.ID = id
	t.logger.Debug(ctx, "Position created", map[string]interface{}{"positionID": id, "symbol": pos.Symbol})
	return id, nil
}

func (t *ledgerTx) UpdatePosition(ctx context.Context, pos *domain.Position) error {
	const query = `
	UPDATE stocks
	SET shares = ?, bought_at = ?, sold_on = ?, initial_cost = ?, status = ?
	WHERE id = ? AND account_id = ?`

	result, err := t.tx.ExecContext(ctx, query,
		pos.Shares, pos.BoughtAt.String(), nullTime(pos.SoldOn), pos.InitialCost.String(), pos.Status,
		pos.ID, pos.AccountID)
	if err != nil {
		return fmt.Errorf("failed to update position ID %d: %w: %w", pos.ID, ports.ErrUpdateFailed, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for update position ID %d: %w", pos.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("position ID %d not found for update: %w", pos.ID, ports.ErrNotFound)
	}
	t.logger.Debug(ctx, "Position updated", map[string]interface{}{"positionID": pos.ID, "shares": pos.Shares, "status": pos.Status})
	return nil
}

// --- Trades ---

func (t *ledgerTx) InsertTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	const query = `
	INSERT INTO trades (reference, user_id, account_id, stock_id, symbol, trade_type,
	                    price, shares, amount, fee, process_date)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := t.tx.ExecContext(ctx, query,
		trade.Reference, trade.UserID, trade.AccountID, trade.PositionID, trade.Symbol, trade.TradeType,
		trade.Price.String(), trade.Shares, trade.Amount.String(), trade.Fee.String(), formatTime(trade.ProcessDate))
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade for symbol %s: %w", trade.Symbol, mapConstraintError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade %s: %w", trade.Symbol, err)
	}
	trade.ID = id
	t.logger.Debug(ctx, "Trade recorded", map[string]interface{}{"tradeID": id, "type": trade.TradeType, "symbol": trade.Symbol})
	return id, nil
}

func (t *ledgerTx) ListTrades(ctx context.Context, accountID int64) ([]*domain.Trade, error) {
	const query = `SELECT ` + tradeColumns + ` FROM trades WHERE account_id = ? ORDER BY process_date, id`
	rows, err := t.tx.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for account ID %d: %w: %w", accountID, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade during ListTrades: %w", err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(s scanner) (*domain.User, error) {
	u := &domain.User{}
	var createdAt string
	if err := s.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.Salt, &u.FirstName, &u.LastName, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return u, nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	a := &domain.Account{}
	var cash, equity, initial, createdAt, updatedAt string
	err := s.Scan(&a.ID, &a.UserID, &cash, &equity, &initial, &a.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	if a.CashAmount, err = domain.ParseMoney(cash); err != nil {
		return nil, err
	}
	if a.EquityAmount, err = domain.ParseMoney(equity); err != nil {
		return nil, err
	}
	if a.InitialAmount, err = domain.ParseMoney(initial); err != nil {
		return nil, err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

func scanPosition(s scanner) (*domain.Position, error) {
	p := &domain.Position{}
	var boughtAt, boughtOn, initialCost, status string
	var soldOn sql.NullString
	err := s.Scan(&p.ID, &p.AccountID, &p.Symbol, &p.Shares, &boughtAt, &boughtOn, &soldOn, &initialCost, &status)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	if p.BoughtAt, err = domain.ParseMoney(boughtAt); err != nil {
		return nil, err
	}
	if p.InitialCost, err = domain.ParseMoney(initialCost); err != nil {
		return nil, err
	}
	if p.BoughtOn, err = parseTime(boughtOn); err != nil {
		return nil, err
	}
	if soldOn.Valid {
		t, err := parseTime(soldOn.String)
		if err != nil {
			return nil, err
		}
		p.SoldOn = &t
	}
	p.Status = domain.PositionStatus(status)
	return p, nil
}

func scanTrade(s scanner) (*domain.Trade, error) {
	tr := &domain.Trade{}
	var tradeType, price, amount, fee, processDate string
	err := s.Scan(&tr.ID, &tr.Reference, &tr.UserID, &tr.AccountID, &tr.PositionID, &tr.Symbol, &tradeType,
		&price, &tr.Shares, &amount, &fee, &processDate)
	if err != nil {
		return nil, err
	}
	tr.TradeType = domain.TradeType(tradeType)
	if tr.Price, err = domain.ParseMoney(price); err != nil {
		return nil, err
	}
	if tr.Amount, err = domain.ParseMoney(amount); err != nil {
		return nil, err
	}
	if tr.Fee, err = domain.ParseMoney(fee); err != nil {
		return nil, err
	}
	if tr.ProcessDate, err = parseTime(processDate); err != nil {
		return nil, err
	}
	return tr, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}
