package db

import (
	"fmt"
	"math"
)

// DateLayout is the ISO 8601 calendar-date layout used for every stored date.
const DateLayout = "2006-01-02"

// Application is a tracked job application.
type Application struct {
	ID           int64   `json:"id"`
	Company      string  `json:"company"`
	Role         string  `json:"role"`
	Location     string  `json:"location"`
	Status       string  `json:"status"`
	AppliedDate  string  `json:"applied_date"`
	FollowUpDate *string `json:"follow_up_date"`
	Source       string  `json:"source"`
	Notes        string  `json:"notes"`
	URL          string  `json:"url"`
}

// StatusCount is one row of the status breakdown.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// MonthCount is one row of the monthly velocity: applications per YYYY-MM of applied_date.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// Stats summarizes the dashboard headline numbers.
type Stats struct {
	Total        int     `json:"total"`
	Interviews   int     `json:"interviews"`
	Offers       int     `json:"offers"`
	ResponseRate float64 `json:"response_rate"`
}

// Order selects the sort order for ListApplications.
type Order int

const (
	// OrderNewest sorts by applied_date descending, newest id first on ties.
	OrderNewest Order = iota
	// OrderOldest sorts by applied_date ascending, oldest id first on ties.
	OrderOldest
)

func (o Order) clause() string {
	if o == OrderOldest {
		return "applied_date ASC, id ASC"
	}
	return "applied_date DESC, id DESC"
}

// ListOptions controls ListApplications. A zero Limit means no limit.
type ListOptions struct {
	Order Order
	Limit int
}

// NotFoundError is returned when an update or delete targets a missing application.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("application not found: %d", e.ID)
}

// interviewStages are the statuses counted as having reached an interview.
// "Phone Screen" predates normalization and can still appear in older rows.
var interviewStages = map[string]bool{
	"Phone Screen": true,
	"Interview":    true,
	"Onsite":       true,
	"Offer":        true,
	"Ranked":       true,
}

// ComputeStats derives the dashboard numbers from a status breakdown.
func ComputeStats(breakdown []StatusCount) Stats {
	var stats Stats
	responded := 0
	for _, sc := range breakdown {
		stats.Total += sc.Count
		if interviewStages[sc.Status] {
			stats.Interviews += sc.Count
		}
		if sc.Status == "Offer" {
			stats.Offers += sc.Count
		}
		if sc.Status != "Applied" {
			responded += sc.Count
		}
	}
	if stats.Total > 0 {
		stats.ResponseRate = math.Round(float64(responded)/float64(stats.Total)*1000) / 10
	}
	return stats
}
