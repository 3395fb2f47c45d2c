package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockTrader/internal/calculator"
	"stockTrader/internal/domain"
	"stockTrader/internal/ports"

	"github.com/google/uuid"
)

const defaultMaxRetries = 3

// LedgerConfig holds the business limits the ledger enforces.
type LedgerConfig struct {
	MinOpeningAmount  domain.Money
	MinCashAdjustment domain.Money // Zero disables the check
	MaxRetries        int          // Retries after a concurrent update conflict
}

// TradeResult is what a Buy, AddShares or Sell returns. When Outcome is
// declined only Account is set, holding the unchanged balances.
type TradeResult struct {
	Outcome  domain.Outcome
	Account  *domain.Account
	Position *domain.Position
	Trade    *domain.Trade
}

// CashResult is what AdjustCash returns.
type CashResult struct {
	Outcome domain.Outcome
	Account *domain.Account
}

// LedgerService changes account balances, positions and the trade log.
// Every exported operation is one store transaction.
type LedgerService struct {
	cfg    LedgerConfig
	logger ports.Logger
	store  ports.LedgerStore
	calc   *calculator.Calculator

	now    func() time.Time
	newRef func() string
}

// NewLedgerService creates a ledger service instance.
func NewLedgerService(
	cfg LedgerConfig,
	logger ports.Logger,
	store ports.LedgerStore,
	calc *calculator.Calculator,
) (*LedgerService, error) {

	// Validate dependencies
	if logger == nil || store == nil || calc == nil {
		return nil, fmt.Errorf("missing required dependencies for LedgerService")
	}

	if cfg.MinOpeningAmount.IsNegative() {
		return nil, fmt.Errorf("configuration MinOpeningAmount cannot be negative: %w", ports.ErrConfigurationError)
	}
	if cfg.MinCashAdjustment.IsNegative() {
		return nil, fmt.Errorf("configuration MinCashAdjustment cannot be negative: %w", ports.ErrConfigurationError)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("configuration MaxRetries cannot be negative: %w", ports.ErrConfigurationError)
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	return &LedgerService{
		cfg:    cfg,
		logger: logger.With(map[string]interface{}{"component": "ledger"}),
		store:  store,
		calc:   calc,
		now:    func() time.Time { return time.Now().UTC() },
		newRef: func() string { return uuid.NewString() },
	}, nil
}

// OpenAccount creates the user's account with cash equal to initialAmount and
// no equity, returning the new account ID.
func (s *LedgerService) OpenAccount(ctx context.Context, userID int64, initialAmount domain.Money) (int64, error) {
	op := "LedgerService.OpenAccount"
	initialAmount = initialAmount.Round()
	if initialAmount.LessThan(s.cfg.MinOpeningAmount) {
		return 0, fmt.Errorf("%s: opening amount %s is below %s: %w", op, initialAmount, s.cfg.MinOpeningAmount, ports.ErrBelowMinimum)
	}

	var accountID int64
	err := s.withinTx(ctx, op, func(ctx context.Context, tx ports.LedgerTx) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("user ID %d: %w", userID, ports.ErrUserNotFound)
		}

		existing, err := tx.GetAccountByUser(ctx, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("user ID %d holds account ID %d: %w", userID, existing.ID, ports.ErrAccountExists)
		}

		acct := &domain.Account{
			UserID:        userID,
			CashAmount:    initialAmount,
			EquityAmount:  domain.Zero,
			InitialAmount: initialAmount,
			CreatedAt:     s.now(),
		}
		accountID, err = tx.InsertAccount(ctx, acct)
		if errors.Is(err, ports.ErrDuplicateEntry) {
			return fmt.Errorf("user ID %d: %w", userID, ports.ErrAccountExists)
		}
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info(ctx, "Account opened", map[string]interface{}{
		"accountID": accountID,
		"userID":    userID,
		"initial":   initialAmount.String(),
	})
	return accountID, nil
}

// AdjustCash deposits into or withdraws from the account's cash. A withdrawal
// larger than the available cash is declined with OutcomeInsufficientFunds.
func (s *LedgerService) AdjustCash(ctx context.Context, accountID int64, action domain.CashAction, amount domain.Money) (*CashResult, error) {
	op := "LedgerService.AdjustCash"
	if !action.Valid() {
		return nil, fmt.Errorf("%s: action %q: %w", op, action, ports.ErrInvalidAction)
	}
	amount = amount.Round()
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%s: amount must be positive, got %s: %w", op, amount, ports.ErrInvalidRequest)
	}
	if amount.LessThan(s.cfg.MinCashAdjustment) {
		return nil, fmt.Errorf("%s: amount %s is below %s: %w", op, amount, s.cfg.MinCashAdjustment, ports.ErrBelowMinimum)
	}

	var result *CashResult
	err := s.withinTx(ctx, op, func(ctx context.Context, tx ports.LedgerTx) error {
		acct, err := s.loadAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}

		switch action {
		case domain.Deposit:
			acct.CashAmount = acct.CashAmount.Add(amount)
		case domain.Withdraw:
			if !acct.CanCover(amount) {
				result = &CashResult{Outcome: domain.OutcomeInsufficientFunds, Account: acct}
				return nil
			}
			acct.CashAmount = acct.CashAmount.Sub(amount)
		}

		if err := tx.UpdateAccount(ctx, acct); err != nil {
			return err
		}
		result = &CashResult{Outcome: domain.OutcomeOK, Account: acct}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"accountID": accountID,
		"action":    string(action),
		"amount":    amount.String(),
		"outcome":   string(result.Outcome),
	}
	if result.Outcome.Declined() {
		s.logger.Info(ctx, "Cash adjustment declined", fields)
	} else {
		fields["cash"] = result.Account.CashAmount.String()
		s.logger.Info(ctx, "Cash adjusted", fields)
	}
	return result, nil
}

// Buy opens a new position in symbol. The account must not already hold an
// open position in it; repeat buys go through AddShares.
func (s *LedgerService) Buy(ctx context.Context, accountID int64, symbol string, shares int64, price domain.Money) (*TradeResult, error) {
	op := "LedgerService.Buy"
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%s: symbol is required: %w", op, ports.ErrInvalidRequest)
	}
	if err := s.calc.Validate(shares, price); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	price = price.Round()

	var result *TradeResult
	err := s.withinTx(ctx, op, func(ctx context.Context, tx ports.LedgerTx) error {
		acct, err := s.loadAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}

		existing, err := tx.GetOpenPositionBySymbol(ctx, accountID, symbol)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("symbol %s is held as position ID %d: %w", symbol, existing.ID, ports.ErrPositionExists)
		}

		amount := s.calc.Amount(shares, price)
		cost := s.calc.BuyCost(shares, price)
		if !acct.CanCover(cost) {
			result = &TradeResult{Outcome: domain.OutcomeInsufficientFunds, Account: acct}
			return nil
		}

		now := s.now()
		pos := &domain.Position{
			AccountID:   accountID,
			Symbol:      symbol,
			Shares:      shares,
			BoughtAt:    price,
			BoughtOn:    now,
			InitialCost: amount,
			Status:      domain.StatusOpen,
		}
		if _, err := tx.InsertPosition(ctx, pos); err != nil {
			if errors.Is(err, ports.ErrDuplicateEntry) {
				return fmt.Errorf("symbol %s: %w", symbol, ports.ErrPositionExists)
			}
			return err
		}

		acct.CashAmount = acct.CashAmount.Sub(cost)
		acct.EquityAmount = acct.EquityAmount.Add(amount)
		if err := tx.UpdateAccount(ctx, acct); err != nil {
			return err
		}

		trade, err := s.recordTrade(ctx, tx, acct, pos, domain.Buy, shares, price, amount, now)
		if err != nil {
			return err
		}
		result = &TradeResult{Outcome: domain.OutcomeOK, Account: acct, Position: pos, Trade: trade}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logTrade(ctx, domain.Buy, accountID, symbol, shares, price, result)
	return result, nil
}

// AddShares buys more shares of an open position. The position's cost basis
// becomes the share-weighted average and equity follows it.
func (s *LedgerService) AddShares(ctx context.Context, accountID, positionID int64, shares int64, price domain.Money) (*TradeResult, error) {
	op := "LedgerService.AddShares"
	if err := s.calc.Validate(shares, price); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	price = price.Round()

	var result *TradeResult
	err := s.withinTx(ctx, op, func(ctx context.Context, tx ports.LedgerTx) error {
		acct, err := s.loadAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		pos, err := s.loadOpenPosition(ctx, tx, accountID, positionID)
		if err != nil {
			return err
		}

		amount := s.calc.Amount(shares, price)
		cost := s.calc.BuyCost(shares, price)
		if !acct.CanCover(cost) {
			result = &TradeResult{Outcome: domain.OutcomeInsufficientFunds, Account: acct}
			return nil
		}

		previousBasis := pos.CostBasis()
		pos.BoughtAt = s.calc.AverageCost(pos.Shares, pos.BoughtAt, shares, price)
		pos.Shares += shares
		pos.InitialCost = pos.InitialCost.Add(amount)
		if err := tx.UpdatePosition(ctx, pos); err != nil {
			return err
		}

		acct.CashAmount = acct.CashAmount.Sub(cost)
		acct.EquityAmount = acct.EquityAmount.Sub(previousBasis).Add(pos.CostBasis())
		if err := tx.UpdateAccount(ctx, acct); err != nil {
			return err
		}

		trade, err := s.recordTrade(ctx, tx, acct, pos, domain.Buy, shares, price, amount, s.now())
		if err != nil {
			return err
		}
		result = &TradeResult{Outcome: domain.OutcomeOK, Account: acct, Position: pos, Trade: trade}
		return nil
	})
	if err != nil {
		return nil, err
	}

	symbol := ""
	if result.Position != nil {
		symbol = result.Position.Symbol
	}
	s.logTrade(ctx, domain.Buy, accountID, symbol, shares, price, result)
	return result, nil
}

// Sell sells shares of an open position at price. Equity drops by the sold
// shares' cost basis; the position closes when no shares remain.
func (s *LedgerService) Sell(ctx context.Context, accountID, positionID int64, shares int64, price domain.Money) (*TradeResult, error) {
	op := "LedgerService.Sell"
	if err := s.calc.Validate(shares, price); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	price = price.Round()

	var result *TradeResult
	err := s.withinTx(ctx, op, func(ctx context.Context, tx ports.LedgerTx) error {
		acct, err := s.loadAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		pos, err := s.loadOpenPosition(ctx, tx, accountID, positionID)
		if err != nil {
			return err
		}

		// Funds are checked before the share count.
		if !acct.CanCover(s.calc.Fee()) {
			result = &TradeResult{Outcome: domain.OutcomeInsufficientFunds, Account: acct}
			return nil
		}
		if shares > pos.Shares {
			result = &TradeResult{Outcome: domain.OutcomeTooManyShares, Account: acct}
			return nil
		}

		now := s.now()
		amount := s.calc.Amount(shares, price)
		basis := s.calc.CostBasis(shares, pos.BoughtAt)

		pos.Shares -= shares
		if pos.Shares == 0 {
			pos.Close(now)
		}
		if err := tx.UpdatePosition(ctx, pos); err != nil {
			return err
		}

		acct.CashAmount = acct.CashAmount.Add(s.calc.SellProceeds(shares, price))
		acct.EquityAmount = acct.EquityAmount.Sub(basis)
		if err := tx.UpdateAccount(ctx, acct); err != nil {
			return err
		}

		trade, err := s.recordTrade(ctx, tx, acct, pos, domain.Sell, shares, price, amount, now)
		if err != nil {
			return err
		}
		result = &TradeResult{Outcome: domain.OutcomeOK, Account: acct, Position: pos, Trade: trade}
		return nil
	})
	if err != nil {
		return nil, err
	}

	symbol := ""
	if result.Position != nil {
		symbol = result.Position.Symbol
	}
	s.logTrade(ctx, domain.Sell, accountID, symbol, shares, price, result)
	return result, nil
}

// CloseAccount deletes the account and its positions. Trades are kept.
func (s *LedgerService) CloseAccount(ctx context.Context, accountID int64) error {
	op := "LedgerService.CloseAccount"
	err := s.withinTx(ctx, op, func(ctx context.Context, tx ports.LedgerTx) error {
		if _, err := s.loadAccount(ctx, tx, accountID); err != nil {
			return err
		}
		return tx.DeleteAccount(ctx, accountID)
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "Account closed", map[string]interface{}{"accountID": accountID})
	return nil
}

// Account returns the stored account.
func (s *LedgerService) Account(ctx context.Context, accountID int64) (*domain.Account, error) {
	var acct *domain.Account
	err := s.withinTx(ctx, "LedgerService.Account", func(ctx context.Context, tx ports.LedgerTx) error {
		var err error
		acct, err = s.loadAccount(ctx, tx, accountID)
		return err
	})
	return acct, err
}

// AccountByUser returns the account owned by userID.
func (s *LedgerService) AccountByUser(ctx context.Context, userID int64) (*domain.Account, error) {
	var acct *domain.Account
	err := s.withinTx(ctx, "LedgerService.AccountByUser", func(ctx context.Context, tx ports.LedgerTx) error {
		var err error
		acct, err = tx.GetAccountByUser(ctx, userID)
		if err != nil {
			return err
		}
		if acct == nil {
			return fmt.Errorf("no account for user ID %d: %w", userID, ports.ErrAccountNotFound)
		}
		return nil
	})
	return acct, err
}

// Snapshot returns the account and its open positions as of one transaction.
func (s *LedgerService) Snapshot(ctx context.Context, accountID int64) (*domain.Account, []*domain.Position, error) {
	var (
		acct      *domain.Account
		positions []*domain.Position
	)
	err := s.withinTx(ctx, "LedgerService.Snapshot", func(ctx context.Context, tx ports.LedgerTx) error {
		var err error
		if acct, err = s.loadAccount(ctx, tx, accountID); err != nil {
			return err
		}
		positions, err = tx.ListOpenPositions(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return acct, positions, nil
}

// OpenPositions lists the account's open positions ordered by symbol.
func (s *LedgerService) OpenPositions(ctx context.Context, accountID int64) ([]*domain.Position, error) {
	_, positions, err := s.Snapshot(ctx, accountID)
	return positions, err
}

// Trades lists the trade log of an account, including a closed one.
func (s *LedgerService) Trades(ctx context.Context, accountID int64) ([]*domain.Trade, error) {
	var trades []*domain.Trade
	err := s.withinTx(ctx, "LedgerService.Trades", func(ctx context.Context, tx ports.LedgerTx) error {
		var err error
		trades, err = tx.ListTrades(ctx, accountID)
		return err
	})
	return trades, err
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// --- Internal Helpers ---

// withinTx runs fn in a transaction, retrying the whole unit when another
// writer updated the account first. Errors that are not ledger errors are
// reported as ErrInternal.
//
// A cancelled ctx is only honoured before the transaction begins. Once begun,
// the unit runs to commit or rollback on a context that keeps ctx's values but
// not its cancellation.
func (s *LedgerService) withinTx(ctx context.Context, op string, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return s.txError(ctx, op, err)
	}
	txCtx := context.WithoutCancel(ctx)

	var err error
	for attempt := 0; ; attempt++ {
		err = WithinTx(txCtx, s.store, fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ports.ErrConflict) || attempt >= s.cfg.MaxRetries {
			break
		}
		s.logger.Warn(ctx, "Concurrent update detected, retrying transaction", map[string]interface{}{
			"op":      op,
			"attempt": attempt + 1,
		})
	}
	return s.txError(ctx, op, err)
}

// txError classifies a failed unit: ledger errors pass through, everything
// else is logged and reported as a context or internal failure.
func (s *LedgerService) txError(ctx context.Context, op string, err error) error {
	if isLedgerError(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Error(ctx, err, "Ledger transaction failed", map[string]interface{}{"op": op})
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w: %w", op, ports.ErrContextCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", op, ports.ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ports.ErrInternal, err)
}

var ledgerErrors = []error{
	ports.ErrUserNotFound,
	ports.ErrAccountNotFound,
	ports.ErrAccountExists,
	ports.ErrBelowMinimum,
	ports.ErrPositionNotFound,
	ports.ErrPositionExists,
	ports.ErrInvalidAction,
	ports.ErrInvalidRequest,
	ports.ErrConflict,
}

func isLedgerError(err error) bool {
	for _, target := range ledgerErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *LedgerService) loadAccount(ctx context.Context, tx ports.LedgerTx, accountID int64) (*domain.Account, error) {
	acct, err := tx.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, fmt.Errorf("account ID %d: %w", accountID, ports.ErrAccountNotFound)
	}
	return acct, nil
}

// loadOpenPosition treats closed positions and positions of other accounts
// as missing.
func (s *LedgerService) loadOpenPosition(ctx context.Context, tx ports.LedgerTx, accountID, positionID int64) (*domain.Position, error) {
	pos, err := tx.GetPosition(ctx, accountID, positionID)
	if err != nil {
		return nil, err
	}
	if pos == nil || !pos.IsOpen() {
		return nil, fmt.Errorf("position ID %d in account ID %d: %w", positionID, accountID, ports.ErrPositionNotFound)
	}
	return pos, nil
}

func (s *LedgerService) recordTrade(
	ctx context.Context,
	tx ports.LedgerTx,
	acct *domain.Account,
	pos *domain.Position,
	side domain.TradeType,
	shares int64,
	price, amount domain.Money,
	at time.Time,
) (*domain.Trade, error) {
	trade := &domain.Trade{
		Reference:   s.newRef(),
		UserID:      acct.UserID,
		AccountID:   acct.ID,
		PositionID:  pos.ID,
		Symbol:      pos.Symbol,
		TradeType:   side,
		Price:       price,
		Shares:      shares,
		Amount:      amount,
		Fee:         s.calc.Fee(),
		ProcessDate: at,
	}
	if _, err := tx.InsertTrade(ctx, trade); err != nil {
		return nil, err
	}
	return trade, nil
}

func (s *LedgerService) logTrade(ctx context.Context, side domain.TradeType, accountID int64, symbol string, shares int64, price domain.Money, result *TradeResult) {
	fields := map[string]interface{}{
		"accountID": accountID,
		"side":      string(side),
		"symbol":    symbol,
		"shares":    shares,
		"price":     price.String(),
		"outcome":   string(result.Outcome),
	}
	if result.Outcome.Declined() {
		s.logger.Info(ctx, "Trade declined", fields)
		return
	}
	fields["positionID"] = result.Position.ID
	fields["reference"] = result.Trade.Reference
	fields["cash"] = result.Account.CashAmount.String()
	fields["equity"] = result.Account.EquityAmount.String()
	s.logger.Info(ctx, "Trade executed", fields)
}
