package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"stockTrader/internal/analytics"
	"stockTrader/internal/app"
	"stockTrader/internal/domain"
	"stockTrader/internal/utils"
)

var accountCommands = []subcommands.Command{
	&registerCmd{},
	&openCmd{},
	&cashCmd{action: domain.Deposit},
	&cashCmd{action: domain.Withdraw},
	&closeCmd{},
}

var tradeCommands = []subcommands.Command{
	&buyCmd{},
	&tradeCmd{side: domain.Buy},
	&tradeCmd{side: domain.Sell},
}

var reportCommands = []subcommands.Command{
	&showCmd{},
	&tradesCmd{},
	&reportCmd{},
	&exportCmd{},
}

// withEnv opens the ledger for the duration of fn and turns its error into
// an exit status.
func withEnv(fn func(env *ledgerEnv) error) subcommands.ExitStatus {
	env, err := newLedgerEnv()
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer env.Close()

	if err := fn(env); err != nil {
		var declined declinedError
		if errors.As(err, &declined) {
			fmt.Fprintln(stderr, "Declined:", declined.outcome.Message())
		} else {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// declinedError carries a business outcome out of a command.
type declinedError struct {
	outcome domain.Outcome
}

func (e declinedError) Error() string { return string(e.outcome) }

func parseAmount(name, value string) (domain.Money, error) {
	if value == "" {
		return domain.Zero, fmt.Errorf("-%s is required", name)
	}
	m, err := domain.ParseMoney(value)
	if err != nil {
		return domain.Zero, fmt.Errorf("invalid -%s %q: %w", name, value, err)
	}
	return m, nil
}

func requireID(name string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("-%s is required", name)
	}
	return nil
}

func printAccount(a *domain.Account) {
	fmt.Fprintf(stdout, "Account %d: cash %s, equity %s, total %s\n",
		a.ID, a.CashAmount.Display(), a.EquityAmount.Display(), a.TotalAmount().Display())
}

func printTradeResult(res *app.TradeResult) error {
	if res.Outcome.Declined() {
		return declinedError{outcome: res.Outcome}
	}
	t := res.Trade
	fmt.Fprintf(stdout, "%s %d %s @ %s (amount %s, fee %s) ref %s\n",
		strings.ToUpper(string(t.TradeType)), t.Shares, t.Symbol, t.Price.Display(), t.Amount.Display(), t.Fee.Display(), t.Reference)
	if res.Position.IsOpen() {
		fmt.Fprintf(stdout, "Position %d: %d shares at %s\n", res.Position.ID, res.Position.Shares, res.Position.BoughtAt.Display())
	} else {
		fmt.Fprintf(stdout, "Position %d closed\n", res.Position.ID)
	}
	printAccount(res.Account)
	return nil
}

// --- Account Commands ---

type registerCmd struct {
	login     string
	firstName string
	lastName  string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "register a user who can own an account" }
func (*registerCmd) Usage() string {
	return `ledgerctl register -login <login> [-first <name>] [-last <name>]

  Creates a user and prints its ID. Credentials are managed elsewhere.
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.login, "login", "", "Unique login of the user.")
	f.StringVar(&c.firstName, "first", "", "First name.")
	f.StringVar(&c.lastName, "last", "", "Last name.")
}

func (c *registerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if strings.TrimSpace(c.login) == "" {
		fmt.Fprintln(stderr, "Error: -login is required")
		return subcommands.ExitUsageError
	}
	return withEnv(func(env *ledgerEnv) error {
		id, err := env.repo.CreateUser(ctx, &domain.User{
			Login:     strings.TrimSpace(c.login),
			FirstName: c.firstName,
			LastName:  c.lastName,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "User %d registered\n", id)
		return nil
	})
}

type openCmd struct {
	userID int64
	amount string
}

func (*openCmd) Name() string     { return "open" }
func (*openCmd) Synopsis() string { return "open an account for a user" }
func (*openCmd) Usage() string {
	return `ledgerctl open -user <id> -amount <initial>

  Opens the user's single account funded with the initial amount.
`
}

func (c *openCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.userID, "user", 0, "User ID.")
	f.StringVar(&c.amount, "amount", "", "Initial cash amount, e.g. 1000.00.")
}

func (c *openCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := parseAmount("amount", c.amount)
	if err == nil {
		err = requireID("user", c.userID)
	}
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	return withEnv(func(env *ledgerEnv) error {
		id, err := env.ledger.OpenAccount(ctx, c.userID, amount)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Account %d opened with %s\n", id, amount.Round().Display())
		return nil
	})
}

type cashCmd struct {
	action    domain.CashAction
	accountID int64
	amount    string
}

func (c *cashCmd) Name() string { return string(c.action) }
func (c *cashCmd) Synopsis() string {
	if c.action == domain.Deposit {
		return "add cash to an account"
	}
	return "take cash out of an account"
}
func (c *cashCmd) Usage() string {
	return fmt.Sprintf("ledgerctl %s -account <id> -amount <amount>\n", c.action)
}

func (c *cashCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.accountID, "account", 0, "Account ID.")
	f.StringVar(&c.amount, "amount", "", "Cash amount.")
}

func (c *cashCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := parseAmount("amount", c.amount)
	if err == nil {
		err = requireID("account", c.accountID)
	}
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	return withEnv(func(env *ledgerEnv) error {
		res, err := env.ledger.AdjustCash(ctx, c.accountID, c.action, amount)
		if err != nil {
			return err
		}
		if res.Outcome.Declined() {
			return declinedError{outcome: res.Outcome}
		}
		printAccount(res.Account)
		return nil
	})
}

type closeCmd struct {
	accountID int64
}

func (*closeCmd) Name() string     { return "close" }
func (*closeCmd) Synopsis() string { return "close an account, keeping its trade history" }
func (*closeCmd) Usage() string {
	return `ledgerctl close -account <id>
`
}

func (c *closeCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.accountID, "account", 0, "Account ID.")
}

func (c *closeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := requireID("account", c.accountID); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	return withEnv(func(env *ledgerEnv) error {
		if err := env.ledger.CloseAccount(ctx, c.accountID); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Account %d closed\n", c.accountID)
		return nil
	})
}

// --- Trading Commands ---

type buyCmd struct {
	accountID int64
	symbol    string
	shares    int64
	price     string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "buy a symbol the account does not hold yet" }
func (*buyCmd) Usage() string {
	return `ledgerctl buy -account <id> -symbol <ticker> -shares <n> -price <price>

  Opens a new position. Use "add" to buy more of a held symbol.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.accountID, "account", 0, "Account ID.")
	f.StringVar(&c.symbol, "symbol", "", "Ticker symbol.")
	f.Int64Var(&c.shares, "shares", 0, "Number of shares.")
	f.StringVar(&c.price, "price", "", "Price per share.")
}

func (c *buyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	price, err := parseAmount("price", c.price)
	if err == nil {
		err = requireID("account", c.accountID)
	}
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	return withEnv(func(env *ledgerEnv) error {
		res, err := env.ledger.Buy(ctx, c.accountID, c.symbol, c.shares, price)
		if err != nil {
			return err
		}
		return printTradeResult(res)
	})
}

// tradeCmd trades against an existing position: "add" buys more, "sell" sells.
type tradeCmd struct {
	side       domain.TradeType
	accountID  int64
	positionID int64
	shares     int64
	price      string
}

func (c *tradeCmd) Name() string {
	if c.side == domain.Buy {
		return "add"
	}
	return "sell"
}
func (c *tradeCmd) Synopsis() string {
	if c.side == domain.Buy {
		return "buy more shares of an open position"
	}
	return "sell shares of an open position"
}
func (c *tradeCmd) Usage() string {
	return fmt.Sprintf("ledgerctl %s -account <id> -position <id> -shares <n> -price <price>\n", c.Name())
}

func (c *tradeCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.accountID, "account", 0, "Account ID.")
	f.Int64Var(&c.positionID, "position", 0, "Position ID.")
	f.Int64Var(&c.shares, "shares", 0, "Number of shares.")
	f.StringVar(&c.price, "price", "", "Price per share.")
}

func (c *tradeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	price, err := parseAmount("price", c.price)
	if err == nil {
		err = requireID("account", c.accountID)
	}
	if err == nil {
		err = requireID("position", c.positionID)
	}
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	return withEnv(func(env *ledgerEnv) error {
		var (
			res *app.TradeResult
			err error
		)
		if c.side == domain.Buy {
			res, err = env.ledger.AddShares(ctx, c.accountID, c.positionID, c.shares, price)
		} else {
			res, err = env.ledger.Sell(ctx, c.accountID, c.positionID, c.shares, price)
		}
		if err != nil {
			return err
		}
		return printTradeResult(res)
	})
}

// --- Report Commands ---

type showCmd struct {
	accountID int64
	noQuotes  bool
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "show balances and open positions" }
func (*showCmd) Usage() string {
	return `ledgerctl show -account <id> [-no-quotes]

  Prints the account with live prices when the quote provider answers.
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.accountID, "account", 0, "Account ID.")
	f.BoolVar(&c.noQuotes, "no-quotes", false, "Skip live price lookups.")
}

func (c *showCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := requireID("account", c.accountID); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	return withEnv(func(env *ledgerEnv) error {
		viewer, err := env.viewer(!c.noQuotes)
		if err != nil {
			return err
		}
		view, err := viewer.View(ctx, c.accountID)
		if err != nil {
			return err
		}

		fmt.Fprintf(stdout, "Account %d\n", view.ID)
		fmt.Fprintf(stdout, "  Cash:    %s\n", view.Display.Cash)
		fmt.Fprintf(stdout, "  Equity:  %s\n", view.Display.Equity)
		fmt.Fprintf(stdout, "  Total:   %s\n", view.Display.Total)
		fmt.Fprintf(stdout, "  Change:  %s (%s%%)\n", view.Display.Change, view.PctChange.StringFixed(2))

		if len(view.Stocks) == 0 {
			return nil
		}
		w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\nID\tSYMBOL\tSHARES\tBOUGHT AT\tPRICE\tVALUE")
		for _, sym := range sortedKeys(view.Stocks) {
			p := view.Stocks[sym]
			price, value := "-", "-"
			if p.Price != nil {
				price, value = p.Price.Display(), p.MarketValue.Display()
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n", p.ID, p.Symbol, p.Shares, p.BoughtAt.Display(), price, value)
		}
		return w.Flush()
	})
}

type tradesCmd struct {
	accountID int64
}

func (*tradesCmd) Name() string     { return "trades" }
func (*tradesCmd) Synopsis() string { return "list an account's trades" }
func (*tradesCmd) Usage() string {
	return `ledgerctl trades -account <id>
`
}

func (c *tradesCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.accountID, "account", 0, "Account ID.")
}

func (c *tradesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := requireID("account", c.accountID); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	return withEnv(func(env *ledgerEnv) error {
		trades, err := env.ledger.Trades(ctx, c.accountID)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tTYPE\tSYMBOL\tSHARES\tPRICE\tAMOUNT\tFEE\tPOSITION")
		for _, t := range trades {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%d\n",
				t.ProcessDate.Format("2006-01-02 15:04"), t.TradeType, t.Symbol, t.Shares,
				t.Price.String(), t.Amount.String(), t.Fee.String(), t.PositionID)
		}
		return w.Flush()
	})
}

type reportCmd struct {
	accountID int64
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "summarise trading activity and realized P&L" }
func (*reportCmd) Usage() string {
	return `ledgerctl report -account <id>
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.accountID, "account", 0, "Account ID.")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := requireID("account", c.accountID); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	return withEnv(func(env *ledgerEnv) error {
		trades, err := env.ledger.Trades(ctx, c.accountID)
		if err != nil {
			return err
		}
		r := analytics.AnalyzeActivity(trades, env.calc)

		fmt.Fprintf(stdout, "Trades:        %d (%d buys, %d sells)\n", r.TotalTrades, r.BuyTrades, r.SellTrades)
		fmt.Fprintf(stdout, "Win rate:      %s%%\n", r.WinRate.Shift(2).StringFixed(2))
		fmt.Fprintf(stdout, "Gross bought:  %s\n", r.GrossBought.Display())
		fmt.Fprintf(stdout, "Gross sold:    %s\n", r.GrossSold.Display())
		fmt.Fprintf(stdout, "Fees paid:     %s\n", r.FeesPaid.Display())
		fmt.Fprintf(stdout, "Net cash flow: %s\n", r.NetCashFlow.Display())
		fmt.Fprintf(stdout, "Realized P&L:  %s\n", r.RealizedPnL.Display())

		w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\nMONTH\tNET")
		for _, m := range r.GetMonthlyFlows() {
			fmt.Fprintf(w, "%s\t%s\n", m.Month.Format("2006-01"), m.Net.String())
		}
		fmt.Fprintln(w, "\nSYMBOL\tBOUGHT\tSOLD\tHELD\tAVG COST\tREALIZED")
		for _, s := range r.SortedSymbols() {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\n", s.Symbol, s.SharesBought, s.SharesSold, s.SharesHeld, s.AverageCost.String(), s.RealizedPnL.String())
		}
		return w.Flush()
	})
}

type exportCmd struct {
	accountID int64
	output    string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write an account's trades to a CSV file" }
func (*exportCmd) Usage() string {
	return `ledgerctl export -account <id> [-o <file>]
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.accountID, "account", 0, "Account ID.")
	f.StringVar(&c.output, "o", "", "Output file. Defaults to trades_<account>.csv.")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := requireID("account", c.accountID); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	output := c.output
	if output == "" {
		output = fmt.Sprintf("trades_%d.csv", c.accountID)
	}
	return withEnv(func(env *ledgerEnv) error {
		trades, err := env.ledger.Trades(ctx, c.accountID)
		if err != nil {
			return err
		}
		if err := utils.WriteTradesToCSV(trades, output); err != nil {
			return fmt.Errorf("write %s: %w", output, err)
		}
		fmt.Fprintf(stdout, "%d trades written to %s\n", len(trades), output)
		return nil
	})
}

func sortedKeys(m map[string]app.PositionView) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
