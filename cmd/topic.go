package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/etnz/bookkeeping/docs"
	"github.com/google/subcommands"
)

type topicCmd struct {
	list bool
}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "read the documentation" }
func (*topicCmd) Usage() string {
	return `bk topic [-l] [<topic>...|*]

  Prints the documentation topics, or the index when none is given. '*'
  prints them all.
`
}

func (c *topicCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.list, "l", false, "list the topics with their title")
}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.list {
		var b strings.Builder
		b.WriteString("| Topic | Title |\n|---|---|\n")
		for _, name := range docs.Names() {
			t, err := docs.Lookup(name)
			if err != nil {
				return fail(err)
			}
			fmt.Fprintf(&b, "| %s | %s |\n", t.Name, t.Title)
		}
		printMarkdown(b.String())
		return subcommands.ExitSuccess
	}
	names := f.Args()
	if len(names) == 0 {
		names = []string{docs.Index}
	}
	md, err := docs.Render(names...)
	if err != nil {
		return fail(err)
	}
	printMarkdown(md)
	return subcommands.ExitSuccess
}
