package renderer

import (
	"strconv"
	"time"

	"github.com/etnz/bookkeeping/schedule"
)

// ActionRow is one scheduled action of the ScheduledActions report.
type ActionRow struct {
	ID       string
	Type     schedule.ActionType
	What     string
	Schedule string
	Next     string
	Runs     string
	Status   string
}

// NewActionRows describes actions as of now. describe names what an action
// does, typically the description of its template.
func NewActionRows(actions []schedule.ScheduledAction, now time.Time, describe func(schedule.ScheduledAction) string) []ActionRow {
	rows := make([]ActionRow, 0, len(actions))
	for _, a := range actions {
		row := ActionRow{
			ID:       short(a.UID),
			Type:     a.Type,
			What:     describe(a),
			Schedule: a.Describe(),
			Runs:     strconv.Itoa(a.ExecutionCount),
			Status:   "active",
		}
		if planned := a.PlannedCount(); planned > 0 {
			row.Runs += "/" + strconv.Itoa(planned)
		}
		if reason := a.SkipReason(now); reason != "" {
			row.Status = string(reason)
		}
		if row.Status != string(schedule.Exhausted) {
			next := a.NextTimeBased()
			if a.Type == schedule.TransactionAction {
				next = a.NextCountBased(a.ExecutionCount)
			}
			if end, ok := a.EndTime(); ok && next.After(end) {
				row.Status = string(schedule.Ended)
			} else {
				row.Next = day(next)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// ScheduledActions renders rows as a markdown table.
func ScheduledActions(rows []ActionRow) string {
	return render("scheduled_actions", rows)
}
