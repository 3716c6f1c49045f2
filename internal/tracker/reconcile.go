// Package tracker holds the application workflows that sit between callers (HTTP handlers,
// the crawler) and the store: status normalization on the way in, reconciliation of
// scraped rows by (company, role), and manual entry defaults.
package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/application-tracker/internal/db"
	"github.com/jonathan/application-tracker/internal/status"
)

// Outcome reports what an upsert did.
type Outcome struct {
	ID      int64 `json:"id"`
	Created bool  `json:"created"`
}

// Reconciler merges candidate applications into the store keyed by exact (company, role).
//
// A match is overwritten field by field with the candidate, blanks included, so notes
// entered by hand are lost when a later sync carries empty notes for the same key.
type Reconciler struct {
	store      db.Store
	normalizer *status.Normalizer
}

// NewReconciler creates a Reconciler. A nil normalizer uses status.Default().
func NewReconciler(store db.Store, normalizer *status.Normalizer) *Reconciler {
	if normalizer == nil {
		normalizer = status.Default()
	}
	return &Reconciler{store: store, normalizer: normalizer}
}

// Upsert normalizes candidate.Status, then updates the existing application with the same
// company and role or inserts a new one. Lookup and write share one transaction.
func (r *Reconciler) Upsert(ctx context.Context, candidate db.Application) (Outcome, error) {
	candidate.Status = r.normalizer.Normalize(candidate.Status)
	candidate.ID = 0

	var out Outcome
	err := r.store.WithTx(ctx, func(q db.Queries) error {
		existing, err := q.FindApplication(ctx, candidate.Company, candidate.Role)
		if err != nil {
			return err
		}
		if existing != nil {
			out = Outcome{ID: existing.ID}
			return q.UpdateApplication(ctx, existing.ID, &candidate)
		}
		id, err := q.InsertApplication(ctx, &candidate)
		if err != nil {
			return err
		}
		out = Outcome{ID: id, Created: true}
		return nil
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to upsert %s / %s: %w", candidate.Company, candidate.Role, err)
	}
	return out, nil
}

// Clock returns the current time; tests replace it to pin "today".
type Clock func() time.Time

// Today formats the clock's current date as an ISO 8601 calendar date.
func (c Clock) Today() string {
	if c == nil {
		return time.Now().Format(db.DateLayout)
	}
	return c().Format(db.DateLayout)
}
