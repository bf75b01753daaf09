package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/model"
)

// ProctoringRepository records proctoring events synchronously. Violation
// events flow through the Redis queue and its worker instead; only the
// session-start record is written inline because its id must travel with
// the score report.
type ProctoringRepository struct {
	pool *pgxpool.Pool
}

// NewProctoringRepository creates a new ProctoringRepository.
func NewProctoringRepository(pool *pgxpool.Pool) *ProctoringRepository {
	return &ProctoringRepository{pool: pool}
}

// RecordStart inserts the session-start event and returns its id.
func (r *ProctoringRepository) RecordStart(ctx context.Context, key model.SessionKey) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO proctoring_events (employee_id, exam_id, job_id, kind, recorded_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING id`,
		key.EmployeeID, key.ExamID, key.JobID, model.ProctoringEventStart,
	).Scan(&id)
	return id, err
}
