// Command bk keeps double-entry books and executes their scheduled actions.
//
// Unknown subcommands are delegated to bk-<subcommand> executables found in
// the PATH.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/bookkeeping/cmd"
	"github.com/google/subcommands"
)

func main() {
	cmd.Completion().Complete("bk")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	if name := flag.Arg(0); name != "" && !registered(commander, name) {
		if found, code := cmd.RunExtension(name, flag.Args()[1:]); found {
			os.Exit(code)
		}
	}
	os.Exit(int(commander.Execute(context.Background())))
}

// registered reports whether the commander knows the command name.
func registered(c *subcommands.Commander, name string) bool {
	found := false
	c.VisitCommands(func(_ *subcommands.CommandGroup, command subcommands.Command) {
		found = found || command.Name() == name
	})
	return found
}
