package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/backup"
	"github.com/etnz/bookkeeping/internal/config"
	"github.com/etnz/bookkeeping/registry"
	"github.com/etnz/bookkeeping/renderer"
	"github.com/etnz/bookkeeping/store/sqlite"
	"github.com/google/subcommands"
)

// booksCmd is a container for book subcommands
type booksCmd struct{}

func (*booksCmd) Name() string     { return "books" }
func (*booksCmd) Synopsis() string { return "manage the registered books" }
func (*booksCmd) Usage() string {
	return `books <subcommand> [args]

Commands:
  list   - List the registered books.
  add    - Create a new book.
  use    - Make a book the active one.
  import - Create a book from a backup file.
  remove - Unregister a book.
`
}

func (c *booksCmd) SetFlags(f *flag.FlagSet) {}
func (c *booksCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	commander := subcommands.NewCommander(f, "books")
	commander.Register(&booksListCmd{}, "")
	commander.Register(&booksAddCmd{}, "")
	commander.Register(&booksUseCmd{}, "")
	commander.Register(&booksImportCmd{}, "")
	commander.Register(&booksRemoveCmd{}, "")
	return commander.Execute(ctx, args...)
}

// --- List Command ---

type booksListCmd struct{}

func (*booksListCmd) Name() string     { return "list" }
func (*booksListCmd) Synopsis() string { return "list the registered books" }
func (*booksListCmd) Usage() string {
	return `bk books list

  Lists the registered books. The active book is starred.
`
}
func (*booksListCmd) SetFlags(f *flag.FlagSet) {}

func (*booksListCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, cfg, err := setup(ctx)
	if err != nil {
		return fail(err)
	}
	reg, err := openRegistry(cfg)
	if err != nil {
		return fail(err)
	}
	defer reg.Close()

	books, err := reg.Books()
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.Books(books))
	return subcommands.ExitSuccess
}

// --- Add Command ---

type booksAddCmd struct {
	name      string
	commodity string
	use       bool
}

func (*booksAddCmd) Name() string     { return "add" }
func (*booksAddCmd) Synopsis() string { return "create a new book" }
func (*booksAddCmd) Usage() string {
	return `bk books add -name <name> [-commodity <code>] [-use]

  Creates an empty book with its root account, and registers it. The first
  book becomes the active one.
`
}

func (c *booksAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Name of the book.")
	f.StringVar(&c.commodity, "commodity", "", "Commodity of the book. Defaults to the configured one.")
	f.BoolVar(&c.use, "use", false, "Make the new book the active one.")
}

func (c *booksAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	ctx, cfg, err := setup(ctx)
	if err != nil {
		return fail(err)
	}
	commodity := bookkeeping.DefaultCommodity()
	if c.commodity != "" {
		if commodity, err = bookkeeping.CommodityOf(c.commodity); err != nil {
			return fail(err)
		}
	}

	book, err := createBook(ctx, cfg, c.name, c.use, func(st *sqlite.Store) (string, error) {
		root := bookkeeping.NewAccount("Root", bookkeeping.Root, commodity, "")
		root.FullName = ""
		root.Placeholder = true
		return root.UID, st.AddAccount(ctx, root)
	})
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Created book %q (%s) in %s\n", book.DisplayName, book.UID, book.Path)
	return subcommands.ExitSuccess
}

// createBook creates the database of a new book, fills it with fill, which
// returns the root account, and registers it.
func createBook(ctx context.Context, cfg config.Config, name string, active bool, fill func(*sqlite.Store) (string, error)) (registry.Book, error) {
	reg, err := openRegistry(cfg)
	if err != nil {
		return registry.Book{}, err
	}
	defer reg.Close()
	if _, err := findBook(reg, name); err == nil {
		return registry.Book{}, fmt.Errorf("book %q already exists", name)
	}

	book := registry.Book{UID: bookkeeping.NewUID(), DisplayName: name, Active: active}
	book.Path = cfg.BookPath(book.UID)
	if err := os.MkdirAll(filepath.Dir(book.Path), 0o755); err != nil {
		return book, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := sqlite.Open(ctx, book.Path)
	if err != nil {
		return book, err
	}
	book.RootAccountUID, err = fill(st)
	if cerr := st.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(book.Path)
		return book, err
	}
	return book, reg.Add(book)
}

// --- Use Command ---

type booksUseCmd struct{}

func (*booksUseCmd) Name() string     { return "use" }
func (*booksUseCmd) Synopsis() string { return "make a book the active one" }
func (*booksUseCmd) Usage() string {
	return `bk books use <name>

  Makes the book, given by name or ID, the active one.
`
}
func (*booksUseCmd) SetFlags(f *flag.FlagSet) {}

func (*booksUseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	_, cfg, err := setup(ctx)
	if err != nil {
		return fail(err)
	}
	reg, err := openRegistry(cfg)
	if err != nil {
		return fail(err)
	}
	defer reg.Close()

	book, err := findBook(reg, f.Arg(0))
	if err != nil {
		return fail(err)
	}
	if err := reg.SetActive(book.UID); err != nil {
		return fail(err)
	}
	fmt.Printf("Active book is now %q\n", book.DisplayName)
	return subcommands.ExitSuccess
}

// --- Import Command ---

type booksImportCmd struct {
	name string
	use  bool
}

func (*booksImportCmd) Name() string     { return "import" }
func (*booksImportCmd) Synopsis() string { return "create a book from a backup file" }
func (*booksImportCmd) Usage() string {
	return `bk books import -name <name> [-use] <backup.jsonl>

  Creates a book holding the accounts, transactions and scheduled actions of
  a backup file.
`
}

func (c *booksImportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Name of the book.")
	f.BoolVar(&c.use, "use", false, "Make the new book the active one.")
}

func (c *booksImportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" || f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	ctx, cfg, err := setup(ctx)
	if err != nil {
		return fail(err)
	}
	file, err := os.Open(f.Arg(0))
	if err != nil {
		return fail(err)
	}
	defer file.Close()

	book, err := createBook(ctx, cfg, c.name, c.use, func(st *sqlite.Store) (string, error) {
		if err := backup.Restore(ctx, file, st); err != nil {
			return "", err
		}
		return rootAccount(ctx, st)
	})
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Imported %s as book %q (%s)\n", f.Arg(0), book.DisplayName, book.UID)
	return subcommands.ExitSuccess
}

// rootAccount returns the root account of a book, "" if there is none.
func rootAccount(ctx context.Context, book accountLister) (string, error) {
	accounts, err := book.Accounts(ctx)
	if err != nil {
		return "", err
	}
	for _, a := range accounts {
		if a.Type == bookkeeping.Root && a.ParentUID == "" {
			return a.UID, nil
		}
	}
	return "", nil
}

// --- Remove Command ---

type booksRemoveCmd struct {
	purge bool
}

func (*booksRemoveCmd) Name() string     { return "remove" }
func (*booksRemoveCmd) Synopsis() string { return "unregister a book" }
func (*booksRemoveCmd) Usage() string {
	return `bk books remove [-purge] <name>

  Unregisters a book. The active book cannot be removed. With -purge, its
  database file is deleted too.
`
}

func (c *booksRemoveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.purge, "purge", false, "Delete the database file of the book.")
}

func (c *booksRemoveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	_, cfg, err := setup(ctx)
	if err != nil {
		return fail(err)
	}
	reg, err := openRegistry(cfg)
	if err != nil {
		return fail(err)
	}
	defer reg.Close()

	book, err := findBook(reg, f.Arg(0))
	if err != nil {
		return fail(err)
	}
	if err := reg.Delete(book.UID); err != nil {
		return fail(err)
	}
	if c.purge {
		if err := os.Remove(book.Path); err != nil {
			return fail(err)
		}
	}
	fmt.Printf("Removed book %q\n", book.DisplayName)
	return subcommands.ExitSuccess
}
