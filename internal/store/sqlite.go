// Package store provides the SQLite implementation of the CourseStore interface.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/osusume/internal/models"
)

// ErrDuplicateKey is returned by CreateCourse when the course key already exists.
var ErrDuplicateKey = errors.New("course key already exists")

// SQLiteStore implements CourseStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS courses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		description TEXT,
		instructor TEXT,
		category TEXT,
		platform TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_courses_created_at ON courses(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateCourse inserts a course and returns the stored row.
func (s *SQLiteStore) CreateCourse(ctx context.Context, input *models.CourseInput) (*models.Course, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO courses (key, title, description, instructor, category, platform, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		input.Key, input.Title, input.Description, input.Instructor, input.Category, input.Platform, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, input.Key)
		}
		return nil, fmt.Errorf("failed to insert course: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted id: %w", err)
	}
	return &models.Course{
		ID:          id,
		Key:         input.Key,
		Title:       input.Title,
		Description: input.Description,
		Instructor:  input.Instructor,
		Category:    input.Category,
		Platform:    input.Platform,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

const courseColumns = `id, key, title, COALESCE(description, ''), COALESCE(instructor, ''),
	COALESCE(category, ''), COALESCE(platform, ''), created_at, updated_at`

func scanCourse(row interface{ Scan(...any) error }) (*models.Course, error) {
	var c models.Course
	err := row.Scan(&c.ID, &c.Key, &c.Title, &c.Description, &c.Instructor,
		&c.Category, &c.Platform, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCourse returns a course by ID.
func (s *SQLiteStore) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	c, err := scanCourse(s.db.QueryRowContext(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("course not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetCourseByKey returns the course with the given key, or (nil, nil) when absent.
func (s *SQLiteStore) GetCourseByKey(ctx context.Context, key string) (*models.Course, error) {
	c, err := scanCourse(s.db.QueryRowContext(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE key = ?`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCourses returns all courses ordered by id (insertion order).
func (s *SQLiteStore) ListCourses(ctx context.Context) ([]*models.Course, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+courseColumns+` FROM courses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCourses(rows)
}

// ListRecent returns up to limit courses, newest first.
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]*models.Course, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+courseColumns+` FROM courses ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCourses(rows)
}

func collectCourses(rows *sql.Rows) ([]*models.Course, error) {
	var courses []*models.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// CountCourses returns the number of courses.
func (s *SQLiteStore) CountCourses(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses`).Scan(&count)
	return count, err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a SQLite unique-constraint error.
// Matched by message to avoid depending on driver-internal error codes.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
