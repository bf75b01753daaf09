package model

import (
	"time"

	"github.com/google/uuid"
)

// RefresherJobID is the reserved job id for refresher exams that are not
// tied to a job posting.
const RefresherJobID = 0

// SessionKey is the identifier triple for one proctored attempt.
type SessionKey struct {
	EmployeeID int       `json:"employee_id"`
	ExamID     uuid.UUID `json:"exam_id"`
	JobID      int       `json:"job_id"`
}

// IsRefresher reports whether the attempt has no associated job posting.
func (k SessionKey) IsRefresher() bool {
	return k.JobID == RefresherJobID
}

// Resolved reports whether every identifier in the triple is usable.
// JobID zero is valid (refresher sentinel); negative job ids are not.
func (k SessionKey) Resolved() bool {
	return k.EmployeeID > 0 && k.ExamID != uuid.Nil && k.JobID >= 0
}

// TerminationReason records why a session was forcibly ended.
type TerminationReason string

const (
	ReasonFullscreenExited    TerminationReason = "fullscreen-exited"
	ReasonTabOrWindowSwitched TerminationReason = "tab-or-window-switched"
	ReasonPresenceLost        TerminationReason = "presence-lost"
)

// AttemptStatus enumerates persisted attempt states.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
	AttemptStatusTerminated AttemptStatus = "TERMINATED"
)

// ExamAttempt is the persisted record of one proctored attempt.
type ExamAttempt struct {
	ID         int64              `json:"id"`
	EmployeeID int                `json:"employee_id"`
	ExamID     uuid.UUID          `json:"exam_id"`
	JobID      int                `json:"job_id"`
	Status     AttemptStatus      `json:"status"`
	Reason     *TerminationReason `json:"reason,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
}

// GroupScore is the per-group correctness count, computed once at submission.
type GroupScore struct {
	GroupID uuid.UUID `json:"group_id"`
	Total   int       `json:"total"`
	Correct int       `json:"correct"`
}

// ScoreReport is the scoring engine's output, handed to the results sink
// exactly once per completed session.
type ScoreReport struct {
	Key               SessionKey   `json:"key"`
	ProctoringEventID *int64       `json:"proctoring_event_id,omitempty"`
	Scores            []GroupScore `json:"scores"`
	SubmittedAt       time.Time    `json:"submitted_at"`
}

// CreateSessionRequest is the payload for opening a proctored session.
type CreateSessionRequest struct {
	JobID int `json:"job_id" binding:"min=0"`
}
