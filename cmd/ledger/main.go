// Command ledger runs one replica of the bank-account service and drives
// it from an interactive line-oriented client. The interactive front-end,
// user-amount parsing, and the on-disk config reader are all external to
// the consensus core; this is where they get wired together.
//
// The client is a urfave/cli.App whose Commands double as a REPL dispatch
// table: each input line is tokenized and run through App.Run, so command
// aliases and help come from the one library, not a hand-rolled switch
// statement. The process's own positional arguments are parsed by
// config.Parse, not by the App; only quit/exit are matched by hand.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/senutpal/paxledger/internal/config"
	"github.com/senutpal/paxledger/internal/ledger"
	"github.com/senutpal/paxledger/internal/logging"
	"github.com/senutpal/paxledger/internal/paxos"
	"github.com/senutpal/paxledger/internal/replica"
	"github.com/senutpal/paxledger/internal/transport"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ledger:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 5 {
		return fmt.Errorf("usage: %s <localIP> <localPort> <globalIP> <globalPort> [configPath]", args[0])
	}
	cfg, err := config.Parse(args[1:])
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Self.String())
	tr, err := transport.NewUDPTransport(cfg.BindAddr.String(), cfg.Self, cfg.Peers)
	if err != nil {
		return err
	}
	defer tr.Close()

	r := replica.New(cfg.Self, cfg.Peers, tr, ledger.NewTransactionLog(), ledger.NewSlotAllocator(), logger)
	r.Start()
	defer r.Stop()

	app := newApp(r)
	return replLoop(app, os.Stdin, os.Stdout)
}

// replLoop reads whitespace-separated commands one per line and runs each
// through app.Run, mirroring a shell driving the same App repeatedly.
func replLoop(app *cli.App, in *os.File, out *os.File) error {
	fmt.Fprintln(out, "ledger ready — commands: balance|b deposit|d withdraw|w sync|s fail|f unfail|u print|p help quit")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		fields := strings.Fields(line)
		if err := app.Run(append([]string{"ledger"}, fields...)); err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	}
}

func newApp(r *replica.Replica) *cli.App {
	return &cli.App{
		Name:  "ledger",
		Usage: "drive one replica of the bank-account service",
		Commands: []*cli.Command{
			{
				Name:    "balance",
				Aliases: []string{"b"},
				Usage:   "print the current balance",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(c.App.Writer, "%.2f\n", r.Balance())
					return nil
				},
			},
			{
				Name:    "deposit",
				Aliases: []string{"d"},
				Usage:   "deposit <amount>",
				Action: func(c *cli.Context) error {
					amount, err := parseAmount(c)
					if err != nil {
						return err
					}
					tv := paxos.TransactionValue{Kind: paxos.Deposit, Amount: amount, Hash: uuid.NewString()}
					return r.Propose(tv)
				},
			},
			{
				Name:    "withdraw",
				Aliases: []string{"w"},
				Usage:   "withdraw <amount>",
				Action: func(c *cli.Context) error {
					amount, err := parseAmount(c)
					if err != nil {
						return err
					}
					// Optimistic local check only: safety still depends on
					// the consensus outcome, not this guard.
					if amount > r.Balance() {
						return fmt.Errorf("insufficient balance: have %.2f, want %.2f", r.Balance(), amount)
					}
					tv := paxos.TransactionValue{Kind: paxos.Withdraw, Amount: amount, Hash: uuid.NewString()}
					return r.Propose(tv)
				},
			},
			{
				Name:    "sync",
				Aliases: []string{"s"},
				Usage:   "broadcast a log-sync request to all peers",
				Action: func(c *cli.Context) error {
					r.Sync()
					return nil
				},
			},
			{
				Name:    "fail",
				Aliases: []string{"f"},
				Usage:   "drop all inbound/outbound traffic",
				Action: func(c *cli.Context) error {
					r.Fail()
					return nil
				},
			},
			{
				Name:    "unfail",
				Aliases: []string{"u"},
				Usage:   "resume normal traffic",
				Action: func(c *cli.Context) error {
					r.Unfail()
					return nil
				},
			},
			{
				Name:    "print",
				Aliases: []string{"p"},
				Usage:   "print the decided transaction history",
				Action: func(c *cli.Context) error {
					for _, e := range r.History() {
						fmt.Fprintf(c.App.Writer, "%d\t%s\t%.2f\t%s\n", e.Slot, e.Kind, e.Amount, e.Hash)
					}
					return nil
				},
			},
		},
	}
}

func parseAmount(c *cli.Context) (float64, error) {
	if c.NArg() < 1 {
		return 0, fmt.Errorf("usage: %s <amount>", c.Command.Name)
	}
	amount, err := strconv.ParseFloat(c.Args().First(), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", c.Args().First(), err)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive, got %v", amount)
	}
	return amount, nil
}
