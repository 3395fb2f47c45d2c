package ports

import (
	"context"

	"stockTrader/internal/domain"
)

// LedgerStore opens transactions against durable ledger storage.
type LedgerStore interface {
	// Begin starts a transaction. Writes are isolated from other
	// transactions on the same account until Commit.
	Begin(ctx context.Context) (LedgerTx, error)
}

// LedgerTx is a single transactional unit of work over accounts, positions
// and trades. Find methods return nil, nil when nothing matches.
type LedgerTx interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)

	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
	GetAccountByUser(ctx context.Context, userID int64) (*domain.Account, error)
	// InsertAccount saves a new account and returns its assigned ID.
	InsertAccount(ctx context.Context, acct *domain.Account) (int64, error)
	// UpdateAccount writes balances if acct.Version still matches the stored
	// row, then bumps the version. A stale version yields ErrConflict.
	UpdateAccount(ctx context.Context, acct *domain.Account) error
	// DeleteAccount removes the account; its positions cascade.
	DeleteAccount(ctx context.Context, id int64) error

	// GetPosition retrieves a position of the given account by ID, open or closed.
	GetPosition(ctx context.Context, accountID, id int64) (*domain.Position, error)
	// GetOpenPositionBySymbol retrieves the open position in symbol, if any.
	GetOpenPositionBySymbol(ctx context.Context, accountID int64, symbol string) (*domain.Position, error)
	// ListOpenPositions retrieves open positions ordered by symbol.
	ListOpenPositions(ctx context.Context, accountID int64) ([]*domain.Position, error)
	InsertPosition(ctx context.Context, pos *domain.Position) (int64, error)
	UpdatePosition(ctx context.Context, pos *domain.Position) error

	// InsertTrade appends to the audit log and returns the assigned ID.
	InsertTrade(ctx context.Context, trade *domain.Trade) (int64, error)
	// ListTrades retrieves an account's trades ordered by process date.
	ListTrades(ctx context.Context, accountID int64) ([]*domain.Trade, error)

	Commit() error
	Rollback() error
}

// UserRepository is used by the registration collaborator upstream of the ledger.
type UserRepository interface {
	// CreateUser saves a new user and returns its assigned ID.
	// A duplicate login yields ErrDuplicateEntry.
	CreateUser(ctx context.Context, user *domain.User) (int64, error)
	// FindUserByLogin returns nil, nil if no user has the login.
	FindUserByLogin(ctx context.Context, login string) (*domain.User, error)
}

// SymbolLister lists the symbols currently held in any open position.
type SymbolLister interface {
	ListOpenSymbols(ctx context.Context) ([]string, error)
}
