// Package db provides persistence for tracked job applications on PostgreSQL or SQLite.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS applications (
	id BIGSERIAL PRIMARY KEY,
	company TEXT NOT NULL,
	role TEXT NOT NULL,
	location TEXT,
	status TEXT NOT NULL,
	applied_date TEXT NOT NULL,
	follow_up_date TEXT,
	source TEXT,
	notes TEXT,
	url TEXT
)`

const applicationColumns = `id, company, role, COALESCE(location, ''), status, applied_date,
	follow_up_date, COALESCE(source, ''), COALESCE(notes, ''), COALESCE(url, '')`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB wraps a PostgreSQL connection pool
type DB struct {
	pgQueries
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database and creates the schema.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{pgQueries: pgQueries{q: pool}, pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
func (db *DB) WithTx(ctx context.Context, fn func(q Queries) error) error {
	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		return fn(pgQueries{q: tx})
	})
}

// ListApplications retrieves applications in the requested order
func (db *DB) ListApplications(ctx context.Context, opts ListOptions) ([]Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications ORDER BY ` + opts.Order.clause()
	args := []any{}
	if opts.Limit > 0 {
		query += " LIMIT $1"
		args = append(args, opts.Limit)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

// CountApplications returns the number of stored applications
func (db *DB) CountApplications(ctx context.Context) (int, error) {
	var n int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM applications`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count applications: %w", err)
	}
	return n, nil
}

// StatusBreakdown counts applications per status
func (db *DB) StatusBreakdown(ctx context.Context) ([]StatusCount, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT status, COUNT(*) AS count
		 FROM applications
		 GROUP BY status
		 ORDER BY count DESC, status ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query status breakdown: %w", err)
	}
	defer rows.Close()

	var out []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// MonthlyVelocity counts applications per applied_date month
func (db *DB) MonthlyVelocity(ctx context.Context) ([]MonthCount, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT substr(applied_date, 1, 7) AS month, COUNT(*) AS count
		 FROM applications
		 GROUP BY month
		 ORDER BY month`)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly velocity: %w", err)
	}
	defer rows.Close()

	var out []MonthCount
	for rows.Next() {
		var mc MonthCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan month count: %w", err)
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

// pgQueries implements Queries over a pool or a transaction.
type pgQueries struct {
	q querier
}

// InsertApplication creates a new application record and returns its ID
func (p pgQueries) InsertApplication(ctx context.Context, app *Application) (int64, error) {
	var id int64
	err := p.q.QueryRow(ctx,
		`INSERT INTO applications
		 (company, role, location, status, applied_date, follow_up_date, source, notes, url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		app.Company, app.Role, app.Location, app.Status, app.AppliedDate,
		app.FollowUpDate, app.Source, app.Notes, app.URL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert application: %w", err)
	}
	return id, nil
}

// UpdateApplication replaces every field of an application
func (p pgQueries) UpdateApplication(ctx context.Context, id int64, app *Application) error {
	result, err := p.q.Exec(ctx,
		`UPDATE applications
		 SET company = $1, role = $2, location = $3, status = $4, applied_date = $5,
		     follow_up_date = $6, source = $7, notes = $8, url = $9
		 WHERE id = $10`,
		app.Company, app.Role, app.Location, app.Status, app.AppliedDate,
		app.FollowUpDate, app.Source, app.Notes, app.URL, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

// DeleteApplication removes an application
func (p pgQueries) DeleteApplication(ctx context.Context, id int64) error {
	result, err := p.q.Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

// GetApplication retrieves an application by ID
func (p pgQueries) GetApplication(ctx context.Context, id int64) (*Application, error) {
	app, err := scanApplication(p.q.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// FindApplication looks up an application by exact company and role
func (p pgQueries) FindApplication(ctx context.Context, company, role string) (*Application, error) {
	app, err := scanApplication(p.q.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE company = $1 AND role = $2
		 ORDER BY id LIMIT 1`,
		company, role))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find application: %w", err)
	}
	return app, nil
}

func scanApplication(row pgx.Row) (*Application, error) {
	var app Application
	err := row.Scan(&app.ID, &app.Company, &app.Role, &app.Location, &app.Status,
		&app.AppliedDate, &app.FollowUpDate, &app.Source, &app.Notes, &app.URL)
	if err != nil {
		return nil, err
	}
	return &app, nil
}
