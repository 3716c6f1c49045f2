package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AUTOINCREMENT keeps ids of deleted rows from being handed out again.
const sqliteSchema = `CREATE TABLE IF NOT EXISTS applications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
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

// applicationRow is the gorm model for the applications table.
type applicationRow struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	Company      string
	Role         string
	Location     string
	Status       string
	AppliedDate  string
	FollowUpDate *string
	Source       string
	Notes        string
	URL          string `gorm:"column:url"`
}

func (applicationRow) TableName() string { return "applications" }

func toRow(app *Application) applicationRow {
	return applicationRow{
		Company:      app.Company,
		Role:         app.Role,
		Location:     app.Location,
		Status:       app.Status,
		AppliedDate:  app.AppliedDate,
		FollowUpDate: app.FollowUpDate,
		Source:       app.Source,
		Notes:        app.Notes,
		URL:          app.URL,
	}
}

func (r applicationRow) toApplication() Application {
	return Application{
		ID:           r.ID,
		Company:      r.Company,
		Role:         r.Role,
		Location:     r.Location,
		Status:       r.Status,
		AppliedDate:  r.AppliedDate,
		FollowUpDate: r.FollowUpDate,
		Source:       r.Source,
		Notes:        r.Notes,
		URL:          r.URL,
	}
}

// SQLiteStore is a Store backed by a SQLite file, or memory when the path is ":memory:".
type SQLiteStore struct {
	gormQueries
}

// OpenSQLite opens (creating if needed) the SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	gdb, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{
		Logger: logger.New(log.New(os.Stderr, "[db] ", log.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	// One connection: an in-memory database exists per connection, and SQLite allows a
	// single writer anyway.
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.WithContext(ctx).Exec(sqliteSchema).Error; err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{gormQueries: gormQueries{db: gdb}}, nil
}

// sqliteDSN adds the per-connection settings for a file database. The server and a crawl
// child write to the same file, so a locked database is waited on for up to five seconds,
// and transactions take the write lock at BEGIN so find-then-write never has to upgrade.
func sqliteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_txlock=immediate"
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// WithTx runs fn inside a gorm transaction.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(q Queries) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(gormQueries{db: tx})
	})
}

func (s *SQLiteStore) ListApplications(ctx context.Context, opts ListOptions) ([]Application, error) {
	var rows []applicationRow
	q := s.db.WithContext(ctx).Order(opts.Order.clause())
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	apps := make([]Application, 0, len(rows))
	for _, r := range rows {
		apps = append(apps, r.toApplication())
	}
	return apps, nil
}

func (s *SQLiteStore) CountApplications(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&applicationRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count applications: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) StatusBreakdown(ctx context.Context) ([]StatusCount, error) {
	var out []StatusCount
	err := s.db.WithContext(ctx).Model(&applicationRow{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("count DESC, status ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query status breakdown: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) MonthlyVelocity(ctx context.Context) ([]MonthCount, error) {
	var out []MonthCount
	err := s.db.WithContext(ctx).Model(&applicationRow{}).
		Select("substr(applied_date, 1, 7) AS month, COUNT(*) AS count").
		Group("month").
		Order("month").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly velocity: %w", err)
	}
	return out, nil
}

// gormQueries implements Queries over a gorm handle or transaction.
type gormQueries struct {
	db *gorm.DB
}

func (g gormQueries) InsertApplication(ctx context.Context, app *Application) (int64, error) {
	row := toRow(app)
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("failed to insert application: %w", err)
	}
	return row.ID, nil
}

func (g gormQueries) UpdateApplication(ctx context.Context, id int64, app *Application) error {
	row := toRow(app)
	// Select("*") writes zero values too: an empty field blanks the stored one.
	result := g.db.WithContext(ctx).Model(&applicationRow{}).
		Where("id = ?", id).
		Select("*").Omit("id").
		Updates(&row)
	if result.Error != nil {
		return fmt.Errorf("failed to update application: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

func (g gormQueries) DeleteApplication(ctx context.Context, id int64) error {
	result := g.db.WithContext(ctx).Delete(&applicationRow{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete application: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

func (g gormQueries) GetApplication(ctx context.Context, id int64) (*Application, error) {
	var row applicationRow
	err := g.db.WithContext(ctx).Take(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	app := row.toApplication()
	return &app, nil
}

func (g gormQueries) FindApplication(ctx context.Context, company, role string) (*Application, error) {
	var row applicationRow
	err := g.db.WithContext(ctx).
		Where("company = ? AND role = ?", company, role).
		Order("id").
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find application: %w", err)
	}
	app := row.toApplication()
	return &app, nil
}
