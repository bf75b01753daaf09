package model

import (
	"time"

	"github.com/google/uuid"
)

// ProctoringEventKind distinguishes the persisted proctoring records.
type ProctoringEventKind string

const (
	ProctoringEventStart     ProctoringEventKind = "session-start"
	ProctoringEventViolation ProctoringEventKind = "violation"
)

// ProctoringEvent correlates a session's start or termination with the
// attempt it belongs to. The start event's id is attached to the score
// report at submission time.
type ProctoringEvent struct {
	ID         int64               `json:"id"`
	EmployeeID int                 `json:"employee_id"`
	ExamID     uuid.UUID           `json:"exam_id"`
	JobID      int                 `json:"job_id"`
	Kind       ProctoringEventKind `json:"kind"`
	Detail     string              `json:"detail,omitempty"`
	RecordedAt time.Time           `json:"recorded_at"`
}
