// Package models defines core data structures for courses and recommendations.
package models

import "time"

// Course is a catalog entry as stored. Key is the course URL and is unique
// across the catalog; Description may be empty.
type Course struct {
	ID          int64     `json:"id" db:"id"`
	Key         string    `json:"key" db:"key"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Instructor  string    `json:"instructor,omitempty" db:"instructor"`
	Category    string    `json:"category,omitempty" db:"category"`
	Platform    string    `json:"platform,omitempty" db:"platform"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CourseInput is the input for creating a course, from the API or a catalog file.
type CourseInput struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Instructor  string `json:"instructor,omitempty"`
	Category    string `json:"category,omitempty"`
	Platform    string `json:"platform,omitempty"`
}

// Recommendation is one ranked result from the recommendation engine.
// Ephemeral: produced per query, never persisted.
type Recommendation struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Key         string  `json:"key"`
	Score       float64 `json:"similarity_score"`
}
