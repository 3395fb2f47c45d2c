package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	for _, c := range accountCommands {
		commander.Register(c, "accounts")
	}
	for _, c := range tradeCommands {
		commander.Register(c, "trading")
	}
	for _, c := range reportCommands {
		commander.Register(c, "reports")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
