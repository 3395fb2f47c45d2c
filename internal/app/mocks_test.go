package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"stockTrader/internal/adapters/sqlite"
	"stockTrader/internal/calculator"
	"stockTrader/internal/domain"
	"stockTrader/internal/ports"
)

// Mock implementations
type mockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

func (m *mockLogger) With(fields map[string]interface{}) ports.Logger { return m }

func (m *mockLogger) warnings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.warnMsgs...)
}

// stubStore hands out a single scripted transaction.
type stubStore struct {
	tx       *stubTx
	beginErr error
}

func (s *stubStore) Begin(ctx context.Context) (ports.LedgerTx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return s.tx, nil
}

// stubTx scripts the account reads and updates used by AdjustCash. Methods
// not overridden panic through the nil embedded interface.
type stubTx struct {
	ports.LedgerTx

	account    *domain.Account
	getErr     error
	updateErrs []error // consumed one per UpdateAccount call
	commits    int
	rollbacks  int
}

func (t *stubTx) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	if t.getErr != nil {
		return nil, t.getErr
	}
	if t.account == nil {
		return nil, nil
	}
	acct := *t.account
	return &acct, nil
}

func (t *stubTx) UpdateAccount(ctx context.Context, acct *domain.Account) error {
	if len(t.updateErrs) > 0 {
		err := t.updateErrs[0]
		t.updateErrs = t.updateErrs[1:]
		if err != nil {
			return err
		}
	}
	acct.Version++
	return nil
}

func (t *stubTx) Commit() error {
	t.commits++
	return nil
}

func (t *stubTx) Rollback() error {
	t.rollbacks++
	return nil
}

func testCalculator(t *testing.T) *calculator.Calculator {
	t.Helper()
	calc, err := calculator.New(calculator.Config{BrokerageFee: calculator.DefaultBrokerageFee})
	require.NoError(t, err)
	return calc
}

func testLedgerConfig() LedgerConfig {
	return LedgerConfig{
		MinOpeningAmount: domain.MustMoney("500"),
		MaxRetries:       3,
	}
}

// setupLedger creates a ledger over a temporary SQLite database and registers
// one user, returning the user's ID.
func setupLedger(t *testing.T) (*LedgerService, *sqlite.Repository, int64) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "stock-trader-ledger-*")
	require.NoError(t, err)

	log := &mockLogger{}
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: filepath.Join(tmpDir, "ledger.db"),
		Logger: log,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	})

	svc, err := NewLedgerService(testLedgerConfig(), log, repo, testCalculator(t))
	require.NoError(t, err)

	userID, err := repo.CreateUser(context.Background(), &domain.User{Login: "trader", FirstName: "Test", LastName: "Trader"})
	require.NoError(t, err)

	return svc, repo, userID
}

// cancelAfterBegin begins a real transaction and then cancels the caller's
// context, as a client hanging up mid-request would.
type cancelAfterBegin struct {
	ports.LedgerStore
	cancel context.CancelFunc
	begins int
}

func (s *cancelAfterBegin) Begin(ctx context.Context) (ports.LedgerTx, error) {
	tx, err := s.LedgerStore.Begin(ctx)
	s.begins++
	s.cancel()
	return tx, err
}
