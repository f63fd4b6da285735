package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etnz/bookkeeping/backup"
	"github.com/etnz/bookkeeping/internal/config"
	"github.com/etnz/bookkeeping/internal/logger"
	"github.com/etnz/bookkeeping/registry"
	"github.com/etnz/bookkeeping/schedule"
	"github.com/etnz/bookkeeping/store/sqlite"
	"github.com/google/subcommands"
)

type runCmd struct {
	watch    bool
	interval string
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "execute the scheduled actions that are due" }
func (*runCmd) Usage() string {
	return `bk run [-w [-interval <duration>]]

  Executes the due scheduled actions of every book: creates the transactions
  of the recurring templates and writes the backups. With -w, runs again at
  every interval until interrupted.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.watch, "w", false, "Keep running at every interval.")
	f.StringVar(&c.interval, "interval", "", "Interval between runs. Defaults to the configured one.")
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, cfg, err := setup(ctx)
	if err != nil {
		return fail(err)
	}
	interval := cfg.Schedule.Interval
	if c.interval != "" {
		if interval, err = parseDuration(c.interval); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
	}

	lister := books{cfg: cfg}
	p := newProcessor(lister, cfg.Backup.Dir)
	defer p.Close()

	if c.watch {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		logger.FromContext(ctx).Info().Dur("interval", interval).Msg("processing scheduled actions until interrupted")
		if err := p.Every(ctx, interval); err != nil && ctx.Err() == nil {
			return fail(err)
		}
		return subcommands.ExitSuccess
	}

	report, err := p.Run(ctx)
	if err != nil {
		return fail(err)
	}
	if err := lister.touch(time.Now()); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("cannot record the synchronization")
	}
	fmt.Println(report)
	if report.Errors != nil {
		fmt.Fprintln(os.Stderr, report.Errors)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// newProcessor returns a processor of the registered books, backing them up
// in backupDir.
func newProcessor(lister books, backupDir string) *schedule.Processor {
	return &schedule.Processor{
		Books: lister,
		Open: func(ctx context.Context, book registry.Book) (schedule.BookStore, error) {
			return sqlite.Open(ctx, book.Path)
		},
		Backup: &backup.FileBackup{
			Dir: backupDir,
			Open: func(ctx context.Context, bookUID string) (backup.Source, error) {
				book, err := lister.book(bookUID)
				if err != nil {
					return nil, err
				}
				return sqlite.Open(ctx, book.Path)
			},
		},
	}
}

// books reads the registry on every call and releases it right after, so
// that other commands can use it while 'bk run -w' waits.
type books struct {
	cfg config.Config
}

func (b books) Books() ([]registry.Book, error) {
	reg, err := openRegistry(b.cfg)
	if err != nil {
		return nil, err
	}
	defer reg.Close()
	return reg.Books()
}

func (b books) book(uid string) (registry.Book, error) {
	reg, err := openRegistry(b.cfg)
	if err != nil {
		return registry.Book{}, err
	}
	defer reg.Close()
	return reg.Book(uid)
}

// touch records that every book was synchronized at t.
func (b books) touch(t time.Time) error {
	reg, err := openRegistry(b.cfg)
	if err != nil {
		return err
	}
	defer reg.Close()
	list, err := reg.Books()
	if err != nil {
		return err
	}
	for _, book := range list {
		if err := reg.Touch(book.UID, t); err != nil {
			return err
		}
	}
	return nil
}
