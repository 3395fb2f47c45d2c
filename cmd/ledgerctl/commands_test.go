package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes one ledgerctl invocation and captures its output.
func run(t *testing.T, args ...string) (subcommands.ExitStatus, string, string) {
	t.Helper()

	var out, errOut bytes.Buffer
	stdout, stderr = &out, &errOut
	t.Cleanup(func() { stdout, stderr = os.Stdout, os.Stderr })

	fs := flag.NewFlagSet("ledgerctl", flag.ContinueOnError)
	commander := subcommands.NewCommander(fs, "ledgerctl")
	for _, group := range [][]subcommands.Command{accountCommands, tradeCommands, reportCommands} {
		for _, c := range group {
			commander.Register(c, "")
		}
	}
	require.NoError(t, fs.Parse(args))

	status := commander.Execute(context.Background())
	return status, out.String(), errOut.String()
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DB_PATH", filepath.Join(dir, "ledger.db"))
	t.Setenv("QUOTE_PROVIDER", "none")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func TestLedgerctl_Scenario(t *testing.T) {
	dir := setupEnv(t)

	status, out, _ := run(t, "register", "-login", "trader", "-first", "Ada")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "User 1 registered")

	status, out, _ = run(t, "open", "-user", "1", "-amount", "1000")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "Account 1 opened with $1,000.00")

	status, out, _ = run(t, "buy", "-account", "1", "-symbol", "abc", "-shares", "10", "-price", "10")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "BUY 10 ABC @ $10.00")
	assert.Contains(t, out, "cash $898.01, equity $100.00")

	status, _, errOut := run(t, "withdraw", "-account", "1", "-amount", "5000")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, "Declined: Not enough funds")

	status, out, _ = run(t, "sell", "-account", "1", "-position", "1", "-shares", "10", "-price", "12")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "Position 1 closed")
	assert.Contains(t, out, "cash $1,016.02, equity $0.00")

	status, out, _ = run(t, "show", "-account", "1", "-no-quotes")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "Total:   $1,016.02")
	assert.Contains(t, out, "(1.60%)")

	status, out, _ = run(t, "report", "-account", "1")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "Realized P&L:  $20.00")

	csvPath := filepath.Join(dir, "trades.csv")
	status, out, _ = run(t, "export", "-account", "1", "-o", csvPath)
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "2 trades written")
	assert.FileExists(t, csvPath)

	status, _, _ = run(t, "close", "-account", "1")
	require.Equal(t, subcommands.ExitSuccess, status)

	status, out, _ = run(t, "trades", "-account", "1")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "sell")

	status, _, errOut = run(t, "show", "-account", "1", "-no-quotes")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, errOut, "account does not exist")
}

func TestLedgerctl_UsageErrors(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"register without login", []string{"register"}},
		{"open without amount", []string{"open", "-user", "1"}},
		{"open with bad amount", []string{"open", "-user", "1", "-amount", "ten"}},
		{"deposit without account", []string{"deposit", "-amount", "10"}},
		{"sell without position", []string{"sell", "-account", "1", "-shares", "1", "-price", "1"}},
		{"show without account", []string{"show"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, errOut := run(t, tt.args...)
			assert.Equal(t, subcommands.ExitUsageError, status)
			assert.Contains(t, errOut, "Error:")
		})
	}
}
