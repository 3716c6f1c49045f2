package crawler

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/application-tracker/internal/db"
	"github.com/jonathan/application-tracker/internal/tracker"
)

// Result summarizes a sync.
type Result struct {
	// Imported counts rows written, whether created or updated.
	Imported int `json:"imported"`
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	// Skipped counts rows missing company, role or status.
	Skipped int `json:"skipped"`
}

// Message is the line printed at the end of a crawl.
func (r Result) Message() string {
	return fmt.Sprintf("Imported or updated %d applications.", r.Imported)
}

// Sync fetches the target page, extracts its rows and reconciles every complete row in
// document order. Each row is stored as applied today with no follow-up date.
// On a store error the rows already reconciled stay written and the partial result is
// returned with the error.
func Sync(ctx context.Context, cfg Config, fetcher Fetcher, reconciler *tracker.Reconciler, clock tracker.Clock) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	html, err := fetcher.Fetch(ctx, cfg)
	if err != nil {
		return Result{}, err
	}

	rows, err := ExtractRows(html, cfg.Selectors)
	if err != nil {
		return Result{}, err
	}
	if cfg.Verbose {
		log.Printf("[crawler] Matched %d rows with %q", len(rows), cfg.Selectors.Row)
	}

	today := clock.Today()
	notes := fmt.Sprintf("Imported via crawler from %s", cfg.TargetURL)

	var result Result
	for _, row := range rows {
		if !row.Complete() {
			result.Skipped++
			continue
		}
		out, err := reconciler.Upsert(ctx, db.Application{
			Company:     row.Company,
			Role:        row.Role,
			Location:    row.Location,
			Status:      row.Status,
			AppliedDate: today,
			Source:      cfg.SourceLabel,
			Notes:       notes,
			URL:         cfg.TargetURL,
		})
		if err != nil {
			return result, err
		}
		result.Imported++
		if out.Created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	if cfg.Verbose {
		log.Printf("[crawler] Sync done: %d created, %d updated, %d skipped", result.Created, result.Updated, result.Skipped)
	}
	return result, nil
}
