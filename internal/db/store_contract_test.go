package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises a Store that starts empty.
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("insert and get", func(t *testing.T) {
		followUp := "2026-02-01"
		app := &Application{
			Company:      "Acme",
			Role:         "Intern",
			Location:     "Waterloo, ON",
			Status:       "Applied",
			AppliedDate:  "2026-01-15",
			FollowUpDate: &followUp,
			Source:       "LinkedIn",
			Notes:        "first note",
			URL:          "https://example.com/acme",
		}
		id, err := store.InsertApplication(ctx, app)
		require.NoError(t, err)
		assert.Positive(t, id)

		got, err := store.GetApplication(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "Acme", got.Company)
		assert.Equal(t, "Waterloo, ON", got.Location)
		require.NotNil(t, got.FollowUpDate)
		assert.Equal(t, "2026-02-01", *got.FollowUpDate)
		assert.Equal(t, "https://example.com/acme", got.URL)

		require.NoError(t, store.DeleteApplication(ctx, id))
	})

	t.Run("get missing returns nil", func(t *testing.T) {
		got, err := store.GetApplication(ctx, 987654)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("update overwrites every field", func(t *testing.T) {
		followUp := "2026-03-01"
		id, err := store.InsertApplication(ctx, &Application{
			Company: "Globex", Role: "SWE", Location: "Remote", Status: "Applied",
			AppliedDate: "2026-01-01", FollowUpDate: &followUp, Notes: "keep?", URL: "u",
		})
		require.NoError(t, err)

		err = store.UpdateApplication(ctx, id, &Application{
			Company: "Globex", Role: "SWE", Status: "Interview", AppliedDate: "2026-01-02",
		})
		require.NoError(t, err)

		got, err := store.GetApplication(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Interview", got.Status)
		assert.Equal(t, "2026-01-02", got.AppliedDate)
		assert.Empty(t, got.Location)
		assert.Empty(t, got.Notes)
		assert.Empty(t, got.URL)
		assert.Nil(t, got.FollowUpDate)

		require.NoError(t, store.DeleteApplication(ctx, id))
	})

	t.Run("update and delete missing", func(t *testing.T) {
		err := store.UpdateApplication(ctx, 987654, &Application{Company: "x", Role: "y", Status: "Applied", AppliedDate: "2026-01-01"})
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, int64(987654), nf.ID)

		err = store.DeleteApplication(ctx, 987654)
		require.ErrorAs(t, err, &nf)
	})

	t.Run("find is exact and case sensitive", func(t *testing.T) {
		id, err := store.InsertApplication(ctx, &Application{Company: "Initech", Role: "QA Intern", Status: "Applied", AppliedDate: "2026-01-01"})
		require.NoError(t, err)
		defer func() { _ = store.DeleteApplication(ctx, id) }()

		got, err := store.FindApplication(ctx, "Initech", "QA Intern")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, id, got.ID)

		for _, probe := range [][2]string{{"initech", "QA Intern"}, {"Initech", "QA intern"}, {"Initech ", "QA Intern"}} {
			got, err := store.FindApplication(ctx, probe[0], probe[1])
			require.NoError(t, err)
			assert.Nil(t, got, "probe %q/%q", probe[0], probe[1])
		}
	})

	t.Run("ids are not reused after delete", func(t *testing.T) {
		first, err := store.InsertApplication(ctx, &Application{Company: "A", Role: "B", Status: "Applied", AppliedDate: "2026-01-01"})
		require.NoError(t, err)
		require.NoError(t, store.DeleteApplication(ctx, first))

		second, err := store.InsertApplication(ctx, &Application{Company: "A", Role: "B", Status: "Applied", AppliedDate: "2026-01-01"})
		require.NoError(t, err)
		assert.Greater(t, second, first)
		require.NoError(t, store.DeleteApplication(ctx, second))
	})

	t.Run("list order and aggregates", func(t *testing.T) {
		rows := []Application{
			{Company: "C1", Role: "R", Status: "Applied", AppliedDate: "2026-01-10"},
			{Company: "C2", Role: "R", Status: "Applied", AppliedDate: "2026-02-03"},
			{Company: "C3", Role: "R", Status: "Interview", AppliedDate: "2026-02-03"},
			{Company: "C4", Role: "R", Status: "Offer", AppliedDate: "2025-12-31"},
			{Company: "C5", Role: "R", Status: "Applied", AppliedDate: "2026-02-20"},
			{Company: "C6", Role: "R", Status: "Rejected", AppliedDate: "2026-01-11"},
		}
		ids := make([]int64, len(rows))
		for i := range rows {
			id, err := store.InsertApplication(ctx, &rows[i])
			require.NoError(t, err)
			ids[i] = id
		}
		defer func() {
			for _, id := range ids {
				_ = store.DeleteApplication(ctx, id)
			}
		}()

		n, err := store.CountApplications(ctx)
		require.NoError(t, err)
		assert.Equal(t, len(rows), n)

		newest, err := store.ListApplications(ctx, ListOptions{})
		require.NoError(t, err)
		require.Len(t, newest, len(rows))
		var companies []string
		for _, a := range newest {
			companies = append(companies, a.Company)
		}
		// C3 was inserted after C2 on the same date, so it comes first.
		assert.Equal(t, []string{"C5", "C3", "C2", "C6", "C1", "C4"}, companies)

		oldest, err := store.ListApplications(ctx, ListOptions{Order: OrderOldest, Limit: 2})
		require.NoError(t, err)
		require.Len(t, oldest, 2)
		assert.Equal(t, "C4", oldest[0].Company)
		assert.Equal(t, "C1", oldest[1].Company)

		breakdown, err := store.StatusBreakdown(ctx)
		require.NoError(t, err)
		assert.Equal(t, []StatusCount{
			{Status: "Applied", Count: 3},
			{Status: "Interview", Count: 1},
			{Status: "Offer", Count: 1},
			{Status: "Rejected", Count: 1},
		}, breakdown)
		total := 0
		for _, sc := range breakdown {
			total += sc.Count
		}
		assert.Equal(t, n, total)

		velocity, err := store.MonthlyVelocity(ctx)
		require.NoError(t, err)
		assert.Equal(t, []MonthCount{
			{Month: "2025-12", Count: 1},
			{Month: "2026-01", Count: 2},
			{Month: "2026-02", Count: 3},
		}, velocity)
	})

	t.Run("transaction rolls back on error", func(t *testing.T) {
		before, err := store.CountApplications(ctx)
		require.NoError(t, err)

		err = store.WithTx(ctx, func(q Queries) error {
			if _, err := q.InsertApplication(ctx, &Application{Company: "Tx", Role: "R", Status: "Applied", AppliedDate: "2026-01-01"}); err != nil {
				return err
			}
			return &NotFoundError{ID: -1}
		})
		require.Error(t, err)

		after, err := store.CountApplications(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("seed only when empty", func(t *testing.T) {
		today := time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC)

		inserted, err := SeedSampleData(ctx, store, today)
		require.NoError(t, err)
		assert.Equal(t, 5, inserted)

		inserted, err = SeedSampleData(ctx, store, today)
		require.NoError(t, err)
		assert.Zero(t, inserted)

		n, err := store.CountApplications(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	})
}
