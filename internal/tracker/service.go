package tracker

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/application-tracker/internal/db"
	"github.com/jonathan/application-tracker/internal/status"
	"golang.org/x/sync/errgroup"
)

// ApplicationInput is a manually entered application as submitted by a form or API client.
// Only company and role are required; everything else has a default or may stay empty.
type ApplicationInput struct {
	Company      string `json:"company" validate:"required"`
	Role         string `json:"role" validate:"required"`
	Location     string `json:"location,omitempty"`
	Status       string `json:"status,omitempty"`
	AppliedDate  string `json:"applied_date,omitempty"`
	FollowUpDate string `json:"follow_up_date,omitempty"`
	Source       string `json:"source,omitempty"`
	Notes        string `json:"notes,omitempty"`
	URL          string `json:"url,omitempty"`
}

// ValidationError reports a rejected manual entry.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Trim returns a copy with surrounding whitespace removed from the text fields.
// Dates are passed through untouched.
func (in ApplicationInput) Trim() ApplicationInput {
	in.Company = strings.TrimSpace(in.Company)
	in.Role = strings.TrimSpace(in.Role)
	in.Location = strings.TrimSpace(in.Location)
	in.Source = strings.TrimSpace(in.Source)
	in.Notes = strings.TrimSpace(in.Notes)
	in.URL = strings.TrimSpace(in.URL)
	return in
}

// Service implements manual create/edit/delete on top of the store.
type Service struct {
	store      db.Store
	normalizer *status.Normalizer
	validate   *validator.Validate
	clock      Clock
}

// NewService creates a Service. A nil normalizer uses status.Default(); a nil clock uses
// the wall clock.
func NewService(store db.Store, normalizer *status.Normalizer, clock Clock) *Service {
	if normalizer == nil {
		normalizer = status.Default()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &Service{store: store, normalizer: normalizer, validate: v, clock: clock}
}

// Validate trims in and checks required fields.
func (s *Service) Validate(in ApplicationInput) (ApplicationInput, error) {
	in = in.Trim()
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return in, &ValidationError{Field: verrs[0].Field(), Message: "is required"}
		}
		return in, fmt.Errorf("failed to validate application: %w", err)
	}
	return in, nil
}

// ToApplication converts a validated input into a record: the status is normalized
// (blank becomes "Applied"), a blank applied date becomes today and a blank follow-up
// date is stored as null.
func (s *Service) ToApplication(in ApplicationInput) db.Application {
	app := db.Application{
		Company:     in.Company,
		Role:        in.Role,
		Location:    in.Location,
		Status:      s.normalizer.Normalize(in.Status),
		AppliedDate: strings.TrimSpace(in.AppliedDate),
		Source:      in.Source,
		Notes:       in.Notes,
		URL:         in.URL,
	}
	if app.AppliedDate == "" {
		app.AppliedDate = s.clock.Today()
	}
	if d := strings.TrimSpace(in.FollowUpDate); d != "" {
		app.FollowUpDate = &d
	}
	return app
}

// Create stores a new manually entered application. Manual entry never deduplicates:
// an existing (company, role) gets a second row.
func (s *Service) Create(ctx context.Context, in ApplicationInput) (*db.Application, error) {
	in, err := s.Validate(in)
	if err != nil {
		return nil, err
	}
	app := s.ToApplication(in)
	id, err := s.store.InsertApplication(ctx, &app)
	if err != nil {
		return nil, err
	}
	app.ID = id
	return &app, nil
}

// Update replaces application id with in. Missing ids yield *db.NotFoundError.
func (s *Service) Update(ctx context.Context, id int64, in ApplicationInput) (*db.Application, error) {
	in, err := s.Validate(in)
	if err != nil {
		return nil, err
	}
	app := s.ToApplication(in)
	if err := s.store.UpdateApplication(ctx, id, &app); err != nil {
		return nil, err
	}
	app.ID = id
	return &app, nil
}

// Delete removes application id. Missing ids yield *db.NotFoundError.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteApplication(ctx, id)
}

// Get returns application id, or *db.NotFoundError.
func (s *Service) Get(ctx context.Context, id int64) (*db.Application, error) {
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, &db.NotFoundError{ID: id}
	}
	return app, nil
}

// Dashboard is the summary shown on the landing page.
type Dashboard struct {
	Stats           db.Stats         `json:"stats"`
	StageBreakdown  []db.StatusCount `json:"stage_breakdown"`
	MonthlyVelocity []db.MonthCount  `json:"monthly_velocity"`
	Recent          []db.Application `json:"recent"`
}

// RecentLimit is how many applications the dashboard lists.
const RecentLimit = 5

// Dashboard gathers stats, status breakdown, monthly velocity and the latest applications.
// The three queries run concurrently.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var (
		breakdown []db.StatusCount
		velocity  []db.MonthCount
		recent    []db.Application
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		breakdown, err = s.store.StatusBreakdown(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		velocity, err = s.store.MonthlyVelocity(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.store.ListApplications(gCtx, db.ListOptions{Order: db.OrderNewest, Limit: RecentLimit})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}

	if breakdown == nil {
		breakdown = []db.StatusCount{}
	}
	if velocity == nil {
		velocity = []db.MonthCount{}
	}
	if recent == nil {
		recent = []db.Application{}
	}
	return &Dashboard{
		Stats:           db.ComputeStats(breakdown),
		StageBreakdown:  breakdown,
		MonthlyVelocity: velocity,
		Recent:          recent,
	}, nil
}
