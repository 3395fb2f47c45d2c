package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stockTrader/internal/domain"
	"stockTrader/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver (cgo)
	_ "modernc.org/sqlite"          // SQLite driver (pure Go)
)

const (
	// DriverCGO selects github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"
	// DriverPureGo selects modernc.org/sqlite.
	DriverPureGo = "sqlite"

	defaultDBPath = "./data/trader.db"
	timeLayout    = time.RFC3339Nano
)

// Repository implements ports.LedgerStore, ports.UserRepository and
// ports.SymbolLister using SQLite.
type Repository struct {
	db     *sql.DB
	driver string
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Driver string // DriverCGO (default) or DriverPureGo
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	log := cfg.Logger.With(map[string]interface{}{"component": "sqlite"})

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DriverCGO
	}
	if driver != DriverCGO && driver != DriverPureGo {
		return nil, fmt.Errorf("unsupported sqlite driver %q: %w", driver, ports.ErrConfigurationError)
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
			log.Error(context.Background(), err, "SQLite repository initialization failed")
			return nil, err
		}
	}

	db, err := sql.Open(driver, buildDSN(driver, dbPath))
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		log.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		log.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// One connection: every transaction holds the database exclusively, which
	// serialises ledger writes and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	log.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath, "driver": driver})

	repo := &Repository{db: db, driver: driver, logger: log}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		log.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	log.Info(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// buildDSN creates the connection string with the driver's pragma syntax.
func buildDSN(driver, path string) string {
	if driver == DriverPureGo {
		return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
	}
	return path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		login TEXT NOT NULL UNIQUE,
		password_hash BLOB,
		salt BLOB,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL UNIQUE REFERENCES users(id),
		cash_amount TEXT NOT NULL CHECK (CAST(cash_amount AS REAL) >= 0),
		equity_amount TEXT NOT NULL,
		initial_amount TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stocks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL REFERENCES accounts(id) ON UPDATE CASCADE ON DELETE CASCADE,
		symbol TEXT NOT NULL,
		shares INTEGER NOT NULL CHECK (shares >= 0),
		bought_at TEXT NOT NULL,
		bought_on TEXT NOT NULL,
		sold_on TEXT DEFAULT NULL,
		initial_cost TEXT NOT NULL,
		status TEXT NOT NULL
	);

	-- Trades reference accounts and stocks without foreign keys so the audit
	-- log survives position and account removal.
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		reference TEXT NOT NULL UNIQUE,
		user_id INTEGER NOT NULL,
		account_id INTEGER NOT NULL,
		stock_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		trade_type TEXT NOT NULL CHECK (trade_type IN ('buy', 'sell')),
		price TEXT NOT NULL,
		shares INTEGER NOT NULL,
		amount TEXT NOT NULL,
		fee TEXT NOT NULL,
		process_date TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_stocks_open_symbol ON stocks (account_id, symbol) WHERE status = 'open';
	CREATE INDEX IF NOT EXISTS idx_stocks_status ON stocks (status);
	CREATE INDEX IF NOT EXISTS idx_trades_account_date ON trades (account_id, process_date);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// Begin starts a ledger transaction.
func (r *Repository) Begin(ctx context.Context) (ports.LedgerTx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w: %w", ports.ErrDBConnection, err)
	}
	return &ledgerTx{tx: tx, logger: r.logger}, nil
}

// --- UserRepository Implementation ---

// CreateUser saves a new user and returns its assigned ID.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) (int64, error) {
	const query = `
	INSERT INTO users (login, password_hash, salt, first_name, last_name, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	result, err := r.db.ExecContext(ctx, query,
		user.Login, user.PasswordHash, user.Salt, user.FirstName, user.LastName, formatTime(user.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to insert user %s: %w", user.Login, mapConstraintError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for user %s: %w", user.Login, err)
	}
	user.ID = id
	r.logger.Debug(ctx, "User created", map[string]interface{}{"userID": id})
	return id, nil
}

// FindUserByLogin retrieves a user by login. Returns nil, nil if not found.
func (r *Repository) FindUserByLogin(ctx context.Context, login string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE login = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, login))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user by login: %w: %w", ports.ErrQueryFailed, err)
	}
	return user, nil
}

// --- SymbolLister Implementation ---

// ListOpenSymbols returns every symbol held in an open position, across accounts.
func (r *Repository) ListOpenSymbols(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT symbol FROM stocks WHERE status = ? ORDER BY symbol`
	rows, err := r.db.QueryContext(ctx, query, domain.StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to query open symbols: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	symbols := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbol rows: %w", err)
	}
	return symbols, nil
}

// mapConstraintError translates uniqueness violations from either driver
// into ports.ErrDuplicateEntry.
func mapConstraintError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %w", ports.ErrDuplicateEntry, err)
	}
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}
