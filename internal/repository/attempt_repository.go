package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/model"
)

// AttemptRepository handles persisted exam attempts and their scores.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// HasFinishedAttempt reports whether the employee already completed or
// was terminated from this exam for this job. The embedding application
// uses this to prevent re-attempts before a session is even created.
func (r *AttemptRepository) HasFinishedAttempt(ctx context.Context, key model.SessionKey) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM exam_attempts
			WHERE employee_id = $1 AND exam_id = $2 AND job_id = $3
			  AND status IN ('COMPLETED', 'TERMINATED')
		 )`, key.EmployeeID, key.ExamID, key.JobID,
	).Scan(&exists)
	return exists, err
}

// Open creates (or refreshes) the IN_PROGRESS attempt row for a new
// session. Re-opening an abandoned IN_PROGRESS row is allowed; finished
// rows are blocked by HasFinishedAttempt beforehand.
func (r *AttemptRepository) Open(ctx context.Context, key model.SessionKey) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts (employee_id, exam_id, job_id, status, started_at)
		 VALUES ($1, $2, $3, 'IN_PROGRESS', NOW())
		 ON CONFLICT (employee_id, exam_id, job_id) DO UPDATE
		 SET status = 'IN_PROGRESS', started_at = NOW(), reason = NULL, finished_at = NULL
		 RETURNING id`,
		key.EmployeeID, key.ExamID, key.JobID,
	).Scan(&id)
	return id, err
}

// Delete removes an attempt row after a pre-start cancellation.
func (r *AttemptRepository) Delete(ctx context.Context, key model.SessionKey) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM exam_attempts
		 WHERE employee_id = $1 AND exam_id = $2 AND job_id = $3
		   AND status = 'IN_PROGRESS'`,
		key.EmployeeID, key.ExamID, key.JobID,
	)
	return err
}

// GetResult retrieves a finished attempt and its persisted group scores.
func (r *AttemptRepository) GetResult(ctx context.Context, key model.SessionKey) (*model.ExamAttempt, []model.GroupScore, error) {
	var a model.ExamAttempt
	err := r.pool.QueryRow(ctx,
		`SELECT id, employee_id, exam_id, job_id, status, reason, started_at, finished_at
		 FROM exam_attempts
		 WHERE employee_id = $1 AND exam_id = $2 AND job_id = $3`,
		key.EmployeeID, key.ExamID, key.JobID,
	).Scan(&a.ID, &a.EmployeeID, &a.ExamID, &a.JobID, &a.Status, &a.Reason, &a.StartedAt, &a.FinishedAt)
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT group_id, total, correct
		 FROM group_scores WHERE attempt_id = $1
		 ORDER BY id`, a.ID,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var scores []model.GroupScore
	for rows.Next() {
		var gs model.GroupScore
		if err := rows.Scan(&gs.GroupID, &gs.Total, &gs.Correct); err != nil {
			return nil, nil, err
		}
		scores = append(scores, gs)
	}
	return &a, scores, rows.Err()
}
