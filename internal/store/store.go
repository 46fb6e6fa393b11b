// Package store defines the persistence interface for the course catalog.
package store

import (
	"context"

	"github.com/hyperjump/osusume/internal/models"
)

// CourseStore defines course catalog persistence operations. The
// recommendation engine consumes only the read side (ListCourses,
// GetCourseByKey, CountCourses); the rest serves ingestion and the API.
type CourseStore interface {
	CreateCourse(ctx context.Context, input *models.CourseInput) (*models.Course, error)
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	// GetCourseByKey returns (nil, nil) when no course has the given key.
	GetCourseByKey(ctx context.Context, key string) (*models.Course, error)
	ListCourses(ctx context.Context) ([]*models.Course, error)
	// ListRecent returns up to limit courses, newest first. Used as the
	// popularity fallback when the engine has nothing to offer.
	ListRecent(ctx context.Context, limit int) ([]*models.Course, error)
	// CountCourses is the cheap probe behind the staleness heuristic;
	// it must not materialize rows.
	CountCourses(ctx context.Context) (int64, error)

	Close() error
}
