// Package cmd implements the bk command line application to manage books.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/internal/config"
	"github.com/etnz/bookkeeping/internal/logger"
	"github.com/etnz/bookkeeping/registry"
	"github.com/etnz/bookkeeping/store/sqlite"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&initCmd{}, "setup")
	c.Register(&topicCmd{}, "setup")
	c.Register(&booksCmd{}, "setup")

	c.Register(&accountsCmd{}, "book")
	c.Register(&txCmd{}, "book")
	c.Register(&priceCmd{}, "book")
	c.Register(&balanceCmd{}, "book")
	c.Register(&backupCmd{}, "book")

	c.Register(&scheduleCmd{}, "schedule")
	c.Register(&runCmd{}, "schedule")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var envFile = flag.String("env", "", "Environment file loaded before the configuration. Defaults to .env when present.")
var verbose = flag.Bool("v", false, "Log debug messages.")
var bookName = flag.String("book", "", "Book to use, by name or ID. Defaults to the active book.")

// setup loads the configuration, and installs the logger and the default
// commodity it defines.
func setup(ctx context.Context) (context.Context, config.Config, error) {
	cfg, err := config.Load(*envFile)
	if err != nil {
		return ctx, cfg, err
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return ctx, cfg, err
	}
	if *verbose {
		level = zerolog.DebugLevel
	}
	ctx = logger.WithContext(ctx, logger.New(level))

	c, err := cfg.DefaultCommodity()
	if err != nil {
		return ctx, cfg, err
	}
	bookkeeping.SetDefaultCommodity(c)
	return ctx, cfg, nil
}

// openRegistry opens the registry of books, creating its directory.
func openRegistry(cfg config.Config) (*registry.Registry, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Registry.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}
	return registry.Open(cfg.Registry.Path)
}

// findBook returns the book named or identified by name, the active book
// when name is empty.
func findBook(reg *registry.Registry, name string) (registry.Book, error) {
	if name == "" {
		return reg.Active()
	}
	if b, err := reg.Book(name); err == nil {
		return b, nil
	}
	books, err := reg.Books()
	if err != nil {
		return registry.Book{}, err
	}
	for _, b := range books {
		if strings.EqualFold(b.DisplayName, name) || (len(name) >= 4 && strings.HasPrefix(b.UID, name)) {
			return b, nil
		}
	}
	return registry.Book{}, fmt.Errorf("%s: %w", name, registry.ErrNotFound)
}

// openBook opens the book selected by the -book flag. The registry is
// released before returning.
func openBook(ctx context.Context, cfg config.Config) (*sqlite.Store, registry.Book, error) {
	reg, err := openRegistry(cfg)
	if err != nil {
		return nil, registry.Book{}, err
	}
	defer reg.Close()

	book, err := findBook(reg, *bookName)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) && *bookName == "" {
			return nil, book, fmt.Errorf("%w, create one with 'bk books add'", err)
		}
		return nil, book, err
	}
	st, err := sqlite.Open(ctx, book.Path)
	if err != nil {
		return nil, book, fmt.Errorf("failed to open book %q: %w", book.DisplayName, err)
	}
	return st, book, nil
}

// printMarkdown prints md rendered for the terminal, or as is when it cannot
// be rendered.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

// fail prints err and returns the failure status.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return subcommands.ExitFailure
}
