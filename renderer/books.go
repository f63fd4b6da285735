package renderer

import (
	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/registry"
)

type bookRow struct {
	Active   bool
	Name     string
	ID       string
	Root     string
	LastSync string
}

// Books renders the registered books, the active one is starred.
func Books(books []registry.Book) string {
	rows := make([]bookRow, 0, len(books))
	for _, b := range books {
		rows = append(rows, bookRow{
			Active:   b.Active,
			Name:     b.DisplayName,
			ID:       short(b.UID),
			Root:     short(b.RootAccountUID),
			LastSync: day(b.LastSync),
		})
	}
	return render("books", rows)
}

type accountRow struct {
	Depth       int
	Name        string
	Type        bookkeeping.AccountType
	Commodity   string
	ID          string
	Placeholder bool
	Description string
}

// Accounts renders the chart of accounts as a tree: children follow their
// parent, indented. Hidden accounts are left out unless all is set.
func Accounts(accounts []bookkeeping.Account, all bool) string {
	children := make(map[string][]bookkeeping.Account)
	known := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		known[a.UID] = true
	}
	var roots []bookkeeping.Account
	for _, a := range accounts {
		if a.ParentUID == "" || !known[a.ParentUID] {
			roots = append(roots, a)
			continue
		}
		children[a.ParentUID] = append(children[a.ParentUID], a)
	}

	var rows []accountRow
	var walk func(a bookkeeping.Account, depth int)
	walk = func(a bookkeeping.Account, depth int) {
		if a.Hidden && !all {
			return
		}
		rows = append(rows, accountRow{
			Depth:       depth,
			Name:        a.Name,
			Type:        a.Type,
			Commodity:   a.Commodity.Code(),
			ID:          short(a.UID),
			Placeholder: a.Placeholder,
			Description: a.Description,
		})
		for _, c := range children[a.UID] {
			walk(c, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}
	return render("accounts", rows)
}
