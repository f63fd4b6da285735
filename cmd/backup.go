package cmd

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/etnz/bookkeeping/backup"
	"github.com/google/subcommands"
)

type backupCmd struct {
	tag string
}

func (*backupCmd) Name() string     { return "backup" }
func (*backupCmd) Synopsis() string { return "export the book now" }
func (*backupCmd) Usage() string {
	return `bk backup [-tag <params>]

  Writes a backup of the transactions of the book not exported yet, as the
  scheduled backups do. See 'bk schedule add' for the parameters.
`
}

func (c *backupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.tag, "tag", "", "Export parameters, e.g. 'all=true;target=/tmp'.")
}

func (c *backupCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if _, err := backup.ParseExportParams(c.tag); err != nil {
		return fail(err)
	}
	ctx, cfg, err := setup(ctx)
	if err != nil {
		return fail(err)
	}
	reg, err := openRegistry(cfg)
	if err != nil {
		return fail(err)
	}
	book, err := findBook(reg, *bookName)
	reg.Close()
	if err != nil {
		return fail(err)
	}

	lister := books{cfg: cfg}
	b := newProcessor(lister, cfg.Backup.Dir).Backup
	written, err := b.BackupBook(ctx, book.UID, c.tag, time.Time{})
	if err != nil {
		return fail(err)
	}
	if !written {
		fmt.Println("Nothing to back up.")
		return subcommands.ExitSuccess
	}
	fmt.Printf("Backed up book %q\n", book.DisplayName)
	return subcommands.ExitSuccess
}
