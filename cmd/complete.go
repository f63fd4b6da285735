package cmd

import (
	"context"
	"strings"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/docs"
	"github.com/etnz/bookkeeping/internal/config"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion describes the bk command line for shell completion.
func Completion() *complete.Command {
	var types predict.Set
	for _, t := range bookkeeping.AccountTypes {
		if t != bookkeeping.Root {
			types = append(types, strings.ToLower(string(t)))
		}
	}
	periods := predict.Set{"day", "week", "month", "year"}
	commodities := predict.Set{"USD", "EUR", "GBP", "CHF", "JPY", "CAD"}

	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"env":  predict.Files("*.env"),
			"v":    nil,
			"book": complete.PredictFunc(predictBooks),
		},
		Sub: map[string]*complete.Command{
			"init": {Flags: map[string]complete.Predictor{
				"data":      predict.Dirs("*"),
				"commodity": commodities,
				"backup":    predict.Dirs("*"),
				"reverse":   predict.Set{string(bookkeeping.ReverseCredit), string(bookkeeping.ReverseIncomeExpense), string(bookkeeping.ReverseNone)},
				"interval":  predict.Set{"1h", "6h", "12h", "1d"},
			}},
			"topic": {Flags: map[string]complete.Predictor{"l": nil}, Args: complete.PredictFunc(predictTopics)},
			"books": {Sub: map[string]*complete.Command{
				"list": {},
				"add": {Flags: map[string]complete.Predictor{
					"name":      predict.Something,
					"commodity": commodities,
					"use":       nil,
				}},
				"use": {Args: complete.PredictFunc(predictBooks)},
				"import": {
					Flags: map[string]complete.Predictor{"name": predict.Something, "use": nil},
					Args:  predict.Files("*.jsonl"),
				},
				"remove": {
					Flags: map[string]complete.Predictor{"purge": nil},
					Args:  complete.PredictFunc(predictBooks),
				},
			}},
			"accounts": {Sub: map[string]*complete.Command{
				"list": {Flags: map[string]complete.Predictor{"a": nil}},
				"add": {Flags: map[string]complete.Predictor{
					"name":        predict.Something,
					"type":        types,
					"parent":      complete.PredictFunc(predictAccounts),
					"commodity":   commodities,
					"desc":        predict.Something,
					"placeholder": nil,
					"hidden":      nil,
				}},
			}},
			"tx": {Sub: map[string]*complete.Command{
				"add": {Flags: map[string]complete.Predictor{
					"d":        predict.Something,
					"from":     complete.PredictFunc(predictAccounts),
					"to":       complete.PredictFunc(predictAccounts),
					"amount":   predict.Something,
					"q":        predict.Something,
					"desc":     predict.Something,
					"note":     predict.Something,
					"m":        predict.Something,
					"template": nil,
				}},
				"list": {Flags: map[string]complete.Predictor{
					"from":      predict.Something,
					"to":        predict.Something,
					"account":   complete.PredictFunc(predictAccounts),
					"head":      predict.Something,
					"tail":      predict.Something,
					"templates": nil,
				}},
			}},
			"price": {
				Flags: map[string]complete.Predictor{"d": predict.Something, "source": predict.Something},
				Args:  commodities,
			},
			"balance": {
				Flags: map[string]complete.Predictor{
					"r":    nil,
					"from": predict.Something,
					"to":   predict.Something,
					"html": nil,
				},
				Args: complete.PredictFunc(predictAccounts),
			},
			"backup": {Flags: map[string]complete.Predictor{"tag": predict.Set{"all=true", "delete=true", "target="}}},
			"schedule": {Sub: map[string]*complete.Command{
				"add": {Flags: map[string]complete.Predictor{
					"template": predict.Something,
					"backup":   nil,
					"tag":      predict.Set{"all=true", "delete=true", "target="},
					"rule":     predict.Set{"FREQ=DAILY", "FREQ=WEEKLY", "FREQ=MONTHLY", "FREQ=YEARLY"},
					"every":    periods,
					"n":        predict.Something,
					"start":    predict.Something,
					"end":      predict.Something,
					"count":    predict.Something,
					"advance":  predict.Something,
				}},
				"list":    {},
				"enable":  {Args: predict.Something},
				"disable": {Args: predict.Something},
				"delete":  {Args: predict.Something},
			}},
			"run": {Flags: map[string]complete.Predictor{
				"w":        nil,
				"interval": predict.Set{"1h", "6h", "12h", "1d"},
			}},
		},
	}
}

func predictTopics(string) []string {
	return append(docs.Names(), docs.All)
}

// predictBooks returns the names of the registered books.
func predictBooks(string) []string {
	cfg, err := config.Load(*envFile)
	if err != nil {
		return nil
	}
	reg, err := openRegistry(cfg)
	if err != nil {
		return nil
	}
	defer reg.Close()
	books, err := reg.Books()
	if err != nil {
		return nil
	}
	names := make([]string, len(books))
	for i, b := range books {
		names[i] = b.DisplayName
	}
	return names
}

// predictAccounts returns the full names of the accounts of the active book.
func predictAccounts(string) []string {
	cfg, err := config.Load(*envFile)
	if err != nil {
		return nil
	}
	ctx := context.Background()
	st, _, err := openBook(ctx, cfg)
	if err != nil {
		return nil
	}
	defer st.Close()
	accounts, err := st.Accounts(ctx)
	if err != nil {
		return nil
	}
	var names []string
	for _, a := range accounts {
		if a.FullName != "" && !a.Hidden {
			names = append(names, a.FullName)
		}
	}
	return names
}
