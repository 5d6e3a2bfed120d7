// Command ledger is the operator CLI for the finance ledger.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	register(subcommands.DefaultCommander)

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}

// register adds the ledger subcommands to c.
func register(c *subcommands.Commander) {
	c.Register(&createAccountCmd{}, "accounts")
	c.Register(&valuationCmd{}, "accounts")
	c.Register(&recomputeCmd{}, "accounts")

	c.Register(&importCmd{}, "imports")
	c.Register(&rollbackCmd{}, "imports")

	c.Register(&transactionsCmd{}, "transactions")
	c.Register(&exportCmd{}, "transactions")
}
