// Package export writes the application table as CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jonathan/application-tracker/internal/db"
)

// Header is the fixed column order of an export.
var Header = []string{"company", "role", "location", "status", "applied_date", "follow_up_date", "source", "notes", "url"}

// Lister is the part of db.Store an export needs.
type Lister interface {
	ListApplications(ctx context.Context, opts db.ListOptions) ([]db.Application, error)
}

// WriteCSV writes every application, newest applied date first, to w. It returns the
// number of data rows written. A null follow-up date is written as an empty cell.
func WriteCSV(ctx context.Context, store Lister, w io.Writer) (int, error) {
	apps, err := store.ListApplications(ctx, db.ListOptions{Order: db.OrderNewest})
	if err != nil {
		return 0, fmt.Errorf("failed to list applications: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, a := range apps {
		if err := cw.Write(Record(a)); err != nil {
			return 0, fmt.Errorf("failed to write CSV row for application %d: %w", a.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return len(apps), nil
}

// Record lays out one application in Header order.
func Record(a db.Application) []string {
	followUp := ""
	if a.FollowUpDate != nil {
		followUp = *a.FollowUpDate
	}
	return []string{a.Company, a.Role, a.Location, a.Status, a.AppliedDate, followUp, a.Source, a.Notes, a.URL}
}

// Filename is the attachment name used for downloads.
const Filename = "applications.csv"
