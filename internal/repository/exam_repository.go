package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/model"
)

// ExamRepository handles read-only exam content access. Authoring lives
// in the wider HRMS; this service only consumes published content.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an exam definition.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	var e model.Exam
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, duration_minutes, created_at
		 FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.DurationMinutes, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListGroups retrieves an exam's question groups in stored order.
func (r *ExamRepository) ListGroups(ctx context.Context, examID uuid.UUID) ([]model.GroupRef, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, name, order_num
		 FROM exam_groups WHERE exam_id = $1
		 ORDER BY order_num`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []model.GroupRef
	for rows.Next() {
		var g model.GroupRef
		if err := rows.Scan(&g.ID, &g.ExamID, &g.Name, &g.OrderNum); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ListGroupItems retrieves a group's questions in stored order.
func (r *ExamRepository) ListGroupItems(ctx context.Context, groupID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, group_id, question_text, option_a, option_b, option_c, option_d, correct_option, order_num
		 FROM questions WHERE group_id = $1
		 ORDER BY order_num`, groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.GroupID, &q.QuestionText, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectOption, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
