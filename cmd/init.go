package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/bookkeeping/internal/config"
	"github.com/google/subcommands"
)

type initCmd struct {
	dataDir   string
	commodity string
	backupDir string
	reverse   string
	interval  string
}

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "write the configuration file" }
func (*initCmd) Usage() string {
	return `bk init [-data <dir>] [-commodity <code>] [-backup <dir>] [-reverse <convention>] [-interval <duration>]

  Writes the current configuration, updated by the flags, to the
  configuration file ($BK_CONFIG or ~/.config/bookkeeping/config.toml).
`
}

func (c *initCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dataDir, "data", "", "Directory of the book databases.")
	f.StringVar(&c.commodity, "commodity", "", "Default commodity, an ISO 4217 code.")
	f.StringVar(&c.backupDir, "backup", "", "Directory of the backups.")
	f.StringVar(&c.reverse, "reverse", "", "Balance display convention (credit, income-expense, none).")
	f.StringVar(&c.interval, "interval", "", "Interval between runs of 'bk run -w', e.g. 6h.")
}

func (c *initCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, cfg, err := setup(ctx)
	if err != nil {
		return fail(err)
	}
	if err := c.apply(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	if err := cfg.Validate(); err != nil {
		return fail(err)
	}
	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return fail(err)
	}
	if err := config.Save(cfg); err != nil {
		return fail(err)
	}
	fmt.Printf("Configuration written to %s\n", config.Path())
	return subcommands.ExitSuccess
}

// apply overrides cfg with the flags that are set.
func (c *initCmd) apply(cfg *config.Config) error {
	if c.dataDir != "" {
		cfg.Data.Dir = c.dataDir
	}
	if c.commodity != "" {
		cfg.Commodity.Default = c.commodity
	}
	if c.backupDir != "" {
		cfg.Backup.Dir = c.backupDir
	}
	if c.reverse != "" {
		cfg.Display.Reverse = c.reverse
	}
	if c.interval != "" {
		d, err := parseDuration(c.interval)
		if err != nil {
			return err
		}
		cfg.Schedule.Interval = d
	}
	return nil
}
