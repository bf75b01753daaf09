package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam is the assessment definition the session engine runs against.
// Authoring is out of this service's scope; rows are read-only here.
type Exam struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at"`
}
