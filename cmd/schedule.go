package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/backup"
	"github.com/etnz/bookkeeping/date"
	"github.com/etnz/bookkeeping/renderer"
	"github.com/etnz/bookkeeping/schedule"
	"github.com/etnz/bookkeeping/store"
	"github.com/google/subcommands"
)

// scheduleCmd is a container for scheduled action subcommands
type scheduleCmd struct{}

func (*scheduleCmd) Name() string     { return "schedule" }
func (*scheduleCmd) Synopsis() string { return "manage scheduled actions" }
func (*scheduleCmd) Usage() string {
	return `schedule <subcommand> [args]

Commands:
  add     - Schedule a template transaction or a backup.
  list    - List the scheduled actions of the book.
  enable  - Enable a scheduled action.
  disable - Disable a scheduled action.
  delete  - Delete a scheduled action.
`
}

func (c *scheduleCmd) SetFlags(f *flag.FlagSet) {}
func (c *scheduleCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	commander := subcommands.NewCommander(f, "schedule")
	commander.Register(&scheduleAddCmd{}, "")
	commander.Register(&scheduleListCmd{}, "")
	commander.Register(&scheduleToggleCmd{enable: true}, "")
	commander.Register(&scheduleToggleCmd{enable: false}, "")
	commander.Register(&scheduleDeleteCmd{}, "")
	return commander.Execute(ctx, args...)
}

// --- Add Command ---

type scheduleAddCmd struct {
	template string
	backup   bool
	tag      string
	rule     string
	every    string
	n        int
	start    string
	end      string
	count    int
	advance  int
}

func (*scheduleAddCmd) Name() string     { return "add" }
func (*scheduleAddCmd) Synopsis() string { return "schedule a template transaction or a backup" }
func (*scheduleAddCmd) Usage() string {
	return `bk schedule add (-template <template> | -backup [-tag <params>]) (-rule <rrule> | -every <period> [-n <n>]) [-start <date>] [-end <date>] [-count <n>] [-advance <days>]

  Schedules the replay of a template transaction, or a backup of the book,
  on a recurrence given as an RFC 5545 RRULE ('FREQ=WEEKLY;BYDAY=MO,FR') or
  as every n periods (day, week, month, year).

  Transactions are created for every occurrence up to now. With -advance,
  they are created up to that many days ahead of now, so entries dated in
  the future appear in the book early. -end and -count still bound them.

  Backup parameters are 'format=jsonl;target=<dir>;since=<RFC3339>;all=true;delete=true',
  all optional.
`
}

func (c *scheduleAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.template, "template", "", "Template transaction, by description or ID.")
	f.BoolVar(&c.backup, "backup", false, "Schedule a backup of the book.")
	f.StringVar(&c.tag, "tag", "", "Export parameters of the backup.")
	f.StringVar(&c.rule, "rule", "", "Recurrence rule (RRULE).")
	f.StringVar(&c.every, "every", "month", "Period of the recurrence when no rule is given.")
	f.IntVar(&c.n, "n", 1, "Number of periods between occurrences.")
	f.StringVar(&c.start, "start", "", "First day of the recurrence. Defaults to today.")
	f.StringVar(&c.end, "end", "", "Last day of the recurrence.")
	f.IntVar(&c.count, "count", 0, "Number of executions, 0 for unlimited.")
	f.IntVar(&c.advance, "advance", 0, "Days ahead of now up to which transactions are created.")
}

func (c *scheduleAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if (c.template == "") == !c.backup || c.count < 0 || c.advance < 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	start, err := parseDay(c.start, date.Today())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing start date: %v\n", err)
		return subcommands.ExitUsageError
	}
	rule, err := parseRule(c.rule, c.every, c.n, start.In(time.Local))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	ctx, cfg, err := setup(ctx)
	if err != nil {
		return fail(err)
	}
	st, _, err := openBook(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	defer st.Close()

	var action schedule.ScheduledAction
	if c.backup {
		if _, err := backup.ParseExportParams(c.tag); err != nil {
			return fail(err)
		}
		action = schedule.NewBackupAction(c.tag, rule)
	} else {
		template, err := findTemplate(ctx, st, c.template)
		if err != nil {
			return fail(err)
		}
		action = schedule.NewTransactionAction(template, rule)
		if splits := template.Splits(); len(splits) > 0 {
			action.TemplateAccountUID = splits[0].AccountUID
		}
	}
	if c.end != "" {
		end, err := parseDay(c.end, date.Date{})
		if err != nil {
			return fail(err)
		}
		action.End = end.In(time.Local)
	}
	action.TotalPlannedExecutionCount = c.count
	action.AdvanceCreateDays = c.advance

	if err := st.AddScheduledAction(ctx, action); err != nil {
		return fail(err)
	}
	fmt.Printf("Scheduled %s: %s (%s)\n", action.Type, action.Describe(), action.UID)
	return subcommands.ExitSuccess
}

// templateLister is the part of a book used to resolve templates.
type templateLister interface {
	Templates(ctx context.Context) ([]*bookkeeping.Transaction, error)
}

// findTemplate returns the template transaction identified by name: its ID,
// a prefix of its ID or its description.
func findTemplate(ctx context.Context, book templateLister, name string) (*bookkeeping.Transaction, error) {
	templates, err := book.Templates(ctx)
	if err != nil {
		return nil, err
	}
	var found []*bookkeeping.Transaction
	for _, t := range templates {
		if t.UID == name {
			return t, nil
		}
		if strings.EqualFold(t.Description, name) || (len(name) >= 4 && strings.HasPrefix(t.UID, name)) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("template %q: %w", name, bookkeeping.ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("template %q is ambiguous, use its ID", name)
	}
}

// actionLister is the part of a book used to resolve scheduled actions.
type actionLister interface {
	ScheduledActions(ctx context.Context) ([]schedule.ScheduledAction, error)
}

// findAction returns the scheduled action whose ID starts with id.
func findAction(ctx context.Context, book actionLister, id string) (schedule.ScheduledAction, error) {
	actions, err := book.ScheduledActions(ctx)
	if err != nil {
		return schedule.ScheduledAction{}, err
	}
	var found []schedule.ScheduledAction
	for _, a := range actions {
		if strings.HasPrefix(a.UID, id) {
			found = append(found, a)
		}
	}
	switch {
	case len(found) == 0 || id == "":
		return schedule.ScheduledAction{}, fmt.Errorf("scheduled action %q: %w", id, bookkeeping.ErrNotFound)
	case len(found) > 1:
		return schedule.ScheduledAction{}, fmt.Errorf("scheduled action %q is ambiguous", id)
	}
	return found[0], nil
}

// --- List Command ---

type scheduleListCmd struct{}

func (*scheduleListCmd) Name() string     { return "list" }
func (*scheduleListCmd) Synopsis() string { return "list the scheduled actions of the book" }
func (*scheduleListCmd) Usage() string {
	return `bk schedule list

  Lists the scheduled actions with their recurrence, next occurrence and status.
`
}
func (*scheduleListCmd) SetFlags(f *flag.FlagSet) {}

func (*scheduleListCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, cfg, err := setup(ctx)
	if err != nil {
		return fail(err)
	}
	st, _, err := openBook(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	defer st.Close()

	actions, err := st.ScheduledActions(ctx)
	if err != nil {
		return fail(err)
	}
	templates, err := st.Templates(ctx)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.ScheduledActions(renderer.NewActionRows(actions, time.Now(), describeAction(templates))))
	return subcommands.ExitSuccess
}

// describeAction names what an action does: the description of its template
// or the destination of its backup.
func describeAction(templates []*bookkeeping.Transaction) func(schedule.ScheduledAction) string {
	descriptions := make(map[string]string, len(templates))
	for _, t := range templates {
		descriptions[t.UID] = t.Description
	}
	return func(a schedule.ScheduledAction) string {
		if a.Type == schedule.BackupAction {
			if a.Tag == "" {
				return "backup"
			}
			return "backup " + a.Tag
		}
		if d, ok := descriptions[a.ActionUID]; ok {
			return d
		}
		return "missing template " + a.ActionUID
	}
}

// --- Enable and Disable Commands ---

type scheduleToggleCmd struct {
	enable bool
}

func (c *scheduleToggleCmd) Name() string {
	if c.enable {
		return "enable"
	}
	return "disable"
}
func (c *scheduleToggleCmd) Synopsis() string { return c.Name() + " a scheduled action" }
func (c *scheduleToggleCmd) Usage() string {
	return fmt.Sprintf(`bk schedule %s <id>

  The id is the action ID, or its prefix as listed by 'bk schedule list'.
`, c.Name())
}
func (*scheduleToggleCmd) SetFlags(f *flag.FlagSet) {}

func (c *scheduleToggleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	ctx, cfg, err := setup(ctx)
	if err != nil {
		return fail(err)
	}
	st, _, err := openBook(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	defer st.Close()

	action, err := findAction(ctx, st, f.Arg(0))
	if err != nil {
		return fail(err)
	}
	if err := st.UpdateScheduledAction(ctx, action.UID, store.Fields{store.FieldEnabled: c.enable}); err != nil {
		return fail(err)
	}
	fmt.Printf("%s: %sd\n", action.UID, c.Name())
	return subcommands.ExitSuccess
}

// --- Delete Command ---

type scheduleDeleteCmd struct{}

func (*scheduleDeleteCmd) Name() string     { return "delete" }
func (*scheduleDeleteCmd) Synopsis() string { return "delete a scheduled action" }
func (*scheduleDeleteCmd) Usage() string {
	return `bk schedule delete <id>

  Deletes the action. The transactions it created are kept.
`
}
func (*scheduleDeleteCmd) SetFlags(f *flag.FlagSet) {}

func (*scheduleDeleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	ctx, cfg, err := setup(ctx)
	if err != nil {
		return fail(err)
	}
	st, _, err := openBook(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	defer st.Close()

	action, err := findAction(ctx, st, f.Arg(0))
	if err != nil {
		return fail(err)
	}
	if err := st.DeleteScheduledAction(ctx, action.UID); err != nil {
		return fail(err)
	}
	fmt.Printf("Deleted scheduled action %s\n", action.UID)
	return subcommands.ExitSuccess
}
