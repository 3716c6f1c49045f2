package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Queries are the single-record operations, available both on a Store and inside a
// transaction opened with Store.WithTx.
type Queries interface {
	// InsertApplication stores app and returns its new id. app.ID is ignored.
	InsertApplication(ctx context.Context, app *Application) (int64, error)
	// UpdateApplication overwrites every column of application id with app.
	UpdateApplication(ctx context.Context, id int64, app *Application) error
	DeleteApplication(ctx context.Context, id int64) error
	// GetApplication returns nil, nil when id does not exist.
	GetApplication(ctx context.Context, id int64) (*Application, error)
	// FindApplication returns the lowest-id application whose company and role equal the
	// arguments exactly, or nil, nil.
	FindApplication(ctx context.Context, company, role string) (*Application, error)
}

// Store is the persisted application table.
type Store interface {
	Queries

	ListApplications(ctx context.Context, opts ListOptions) ([]Application, error)
	CountApplications(ctx context.Context) (int, error)
	// StatusBreakdown counts applications per status, largest first.
	StatusBreakdown(ctx context.Context) ([]StatusCount, error)
	// MonthlyVelocity counts applications per applied_date month, oldest first.
	MonthlyVelocity(ctx context.Context) ([]MonthCount, error)

	// WithTx runs fn in a single transaction. fn must only use the Queries it is given.
	WithTx(ctx context.Context, fn func(q Queries) error) error
	Close()
}

// Open connects to the store named by databaseURL. postgres:// and postgresql:// URLs use
// the Postgres backend; anything else is treated as a SQLite path, optionally prefixed
// with sqlite://. The applications table is created if missing.
func Open(ctx context.Context, databaseURL string) (Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		pg, err := Connect(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	lite, err := OpenSQLite(ctx, strings.TrimPrefix(databaseURL, "sqlite://"))
	if err != nil {
		return nil, err
	}
	return lite, nil
}

// SampleApplications returns the demo rows used to seed an empty store. Dates are
// relative to today but stay inside today's month.
func SampleApplications(today time.Time) []Application {
	daysAgo := func(n int) string {
		day := today.Day() - n
		if day < 1 {
			day = 1
		}
		return time.Date(today.Year(), today.Month(), day, 0, 0, 0, 0, time.UTC).Format(DateLayout)
	}
	followUp := func(n int) *string {
		d := daysAgo(n)
		return &d
	}

	return []Application{
		{
			Company:     "DeepPixel AI",
			Role:        "ML Intern",
			Location:    "Toronto, ON",
			Status:      "Phone Screen",
			AppliedDate: daysAgo(18),
			Source:      "LinkedIn",
			Notes:       "Reached out to recruiter on LinkedIn. Prep system design.",
			URL:         "https://example.com/deeppixel",
		},
		{
			Company:     "Volt Robotics",
			Role:        "Firmware Co-op",
			Location:    "Waterloo, ON",
			Status:      "Applied",
			AppliedDate: daysAgo(9),
			Source:      "WaterlooWorks",
		},
		{
			Company:      "Aurora Cloud",
			Role:         "Backend Intern",
			Location:     "Remote (Canada)",
			Status:       "Interview",
			AppliedDate:  daysAgo(30),
			FollowUpDate: followUp(15),
			Source:       "Company Careers",
			Notes:        "Take-home API design sent.",
			URL:          "https://example.com/aurora",
		},
		{
			Company:      "Quark Labs",
			Role:         "Platform Engineering Co-op",
			Location:     "Montreal, QC",
			Status:       "Offer",
			AppliedDate:  daysAgo(45),
			FollowUpDate: followUp(10),
			Source:       "Referral",
			Notes:        "Offer pending negotiation.",
		},
		{
			Company:      "Northwind Energy",
			Role:         "Data Intern",
			Location:     "Calgary, AB",
			Status:       "Rejected",
			AppliedDate:  daysAgo(60),
			FollowUpDate: followUp(25),
			Source:       "Indeed",
			Notes:        "Need more SQL practice.",
		},
	}
}

// SeedSampleData inserts SampleApplications when the store is empty and returns the
// number of rows inserted.
func SeedSampleData(ctx context.Context, store Store, today time.Time) (int, error) {
	count, err := store.CountApplications(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	samples := SampleApplications(today)
	err = store.WithTx(ctx, func(q Queries) error {
		for i := range samples {
			if _, err := q.InsertApplication(ctx, &samples[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to seed sample data: %w", err)
	}
	return len(samples), nil
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*SQLiteStore)(nil)
)
