package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/config"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/model"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/repository"
)

// ResultsSinkService is the engine's results sink. The session-start
// record is written inline because its id travels with the score report;
// score reports and violations are queued to Redis and drained by the
// background workers, so a slow or down database never blocks a
// terminal transition.
type ResultsSinkService struct {
	proctoringRepo *repository.ProctoringRepository
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewResultsSinkService creates a new ResultsSinkService.
func NewResultsSinkService(proctoringRepo *repository.ProctoringRepository, rdb *redis.Client, log zerolog.Logger) *ResultsSinkService {
	return &ResultsSinkService{
		proctoringRepo: proctoringRepo,
		rdb:            rdb,
		log:            log.With().Str("component", "results_sink").Logger(),
	}
}

// ScorePayload is the queued form of a score report.
type ScorePayload struct {
	EmployeeID        int                `json:"employee_id"`
	ExamID            string             `json:"exam_id"`
	JobID             int                `json:"job_id"`
	ProctoringEventID *int64             `json:"proctoring_event_id,omitempty"`
	Scores            []model.GroupScore `json:"scores"`
	SubmittedAt       int64              `json:"submitted_at"`
}

// ViolationPayload is the queued form of a termination event.
type ViolationPayload struct {
	EmployeeID int    `json:"employee_id"`
	ExamID     string `json:"exam_id"`
	JobID      int    `json:"job_id"`
	Reason     string `json:"reason"`
	Timestamp  int64  `json:"timestamp"`
}

// RecordProctoringStart opens the proctoring event correlating this
// session's start with its later score submission.
func (s *ResultsSinkService) RecordProctoringStart(ctx context.Context, key model.SessionKey) (int64, error) {
	return s.proctoringRepo.RecordStart(ctx, key)
}

// RecordViolation queues a termination event for persistence.
func (s *ResultsSinkService) RecordViolation(ctx context.Context, key model.SessionKey, reason model.TerminationReason) error {
	payload, err := json.Marshal(ViolationPayload{
		EmployeeID: key.EmployeeID,
		ExamID:     key.ExamID.String(),
		JobID:      key.JobID,
		Reason:     string(reason),
		Timestamp:  time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistProctoringQueue, payload).Err(); err != nil {
		return fmt.Errorf("queue violation: %w", err)
	}
	return nil
}

// SubmitScores queues the final score report for persistence. Called
// exactly once per completed session.
func (s *ResultsSinkService) SubmitScores(ctx context.Context, report model.ScoreReport) error {
	payload, err := json.Marshal(ScorePayload{
		EmployeeID:        report.Key.EmployeeID,
		ExamID:            report.Key.ExamID.String(),
		JobID:             report.Key.JobID,
		ProctoringEventID: report.ProctoringEventID,
		Scores:            report.Scores,
		SubmittedAt:       report.SubmittedAt.Unix(),
	})
	if err != nil {
		return err
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistScoresQueue, payload).Err(); err != nil {
		return fmt.Errorf("queue scores: %w", err)
	}
	s.log.Info().
		Int("employee_id", report.Key.EmployeeID).
		Str("exam_id", report.Key.ExamID.String()).
		Int("groups", len(report.Scores)).
		Msg("Score report queued")
	return nil
}
