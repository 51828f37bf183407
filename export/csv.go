/*
Package export renders attendance data for payroll handoff.

PURPOSE:
  Produces the CSV timesheet payroll imports. One row per completed work
  interval with total, break and billable figures.

WHY DECIMAL?
  Hour columns are minutes divided by 60. Payroll wants exact two-decimal
  values; decimal.Decimal avoids the float drift that 0.01-level rounding
  across a month would accumulate.

COLUMNS:
  username, date, check_in, check_out, total_hours, break_minutes,
  billable_hours

USAGE:
  exp := export.NewTimesheet(store)
  err := exp.WriteCSV(ctx, w, userID, attendance.DateRange{From: from, To: to})

SEE ALSO:
  - attendance/service.go: Where billable minutes come from
  - api/handlers.go: The /report endpoint streaming this CSV
*/
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/attendance"
)

var sixty = decimal.NewFromInt(60)

// Timesheet renders per-user attendance rows.
type Timesheet struct {
	store attendance.Store
}

// NewTimesheet creates a timesheet exporter on top of the given store.
func NewTimesheet(store attendance.Store) *Timesheet {
	return &Timesheet{store: store}
}

// WriteCSV streams the user's completed intervals in rng as CSV. Open
// intervals are skipped; they have no billable figure yet.
func (t *Timesheet) WriteCSV(ctx context.Context, w io.Writer, userID int64, rng attendance.DateRange) error {
	user, err := t.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	records, err := t.store.ListRecords(ctx, userID, rng)
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"username", "date", "check_in", "check_out",
		"total_hours", "break_minutes", "billable_hours",
	}); err != nil {
		return err
	}

	for _, rec := range records {
		if !rec.Complete() {
			continue
		}
		breaks, err := t.store.ListBreaks(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("failed to load breaks for interval %d: %w", rec.ID, err)
		}

		excluded := 0
		for _, b := range breaks {
			if b.ExcludedFromBilling {
				excluded += b.Minutes
			}
		}

		total := rec.Minutes()
		billable := total - excluded
		if rec.BillableMinutes != nil {
			billable = *rec.BillableMinutes
		}
		if billable < 0 {
			billable = 0
		}

		row := []string{
			user.Username,
			rec.Start.Format("2006-01-02"),
			rec.Start.Format("15:04"),
			rec.End.Format("15:04"),
			hours(total),
			strconv.Itoa(excluded),
			hours(billable),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// hours renders minutes as decimal hours with two places, e.g. 390 -> "6.50".
func hours(minutes int) string {
	return decimal.NewFromInt(int64(minutes)).Div(sixty).Round(2).StringFixed(2)
}
