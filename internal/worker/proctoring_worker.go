package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/config"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/model"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/service"
)

const (
	ViolationBatchSize    = 50
	ViolationBatchTimeout = 2 * time.Second
	ViolationPollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ProctoringWorker drains the violation queue: each item marks an
// attempt TERMINATED and appends the violation to the audit trail.
type ProctoringWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewProctoringWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ProctoringWorker {
	return &ProctoringWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "proctoring_worker").Logger(),
	}
}

func (w *ProctoringWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProctoringWorker started")

	buffer := make([]*service.ViolationPayload, 0, ViolationBatchSize)
	lastFlush := time.Now()

	for {
		// 1. Check flush conditions (time or size)
		if len(buffer) > 0 &&
			(len(buffer) >= ViolationBatchSize || time.Since(lastFlush) >= ViolationBatchTimeout) {

			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		// 2. Check context (graceful shutdown)
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch from Redis
		result, err := w.rdb.BLPop(ctx, ViolationPollTimeout, config.WorkerKey.PersistProctoringQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check flush timer
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var payload service.ViolationPayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &payload)
	}
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *ProctoringWorker) flushSafe(ctx context.Context, batch []*service.ViolationPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
		return
	}
	w.markTerminated(ctx, batch)
}

func (w *ProctoringWorker) bulkInsert(ctx context.Context, batch []*service.ViolationPayload) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, p := range batch {
		examID, err := uuid.Parse(p.ExamID)
		if err != nil {
			// Trigger the fallback, which drops the bad row individually.
			return err
		}
		rows = append(rows, []interface{}{
			p.EmployeeID, examID, p.JobID, model.ProctoringEventViolation, p.Reason, time.Unix(p.Timestamp, 0),
		})
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"proctoring_events"},
		[]string{"employee_id", "exam_id", "job_id", "kind", "detail", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// markTerminated stamps the outcome on the attempt rows in one UNNEST pass.
func (w *ProctoringWorker) markTerminated(ctx context.Context, batch []*service.ViolationPayload) {
	n := len(batch)
	employees := make([]int, 0, n)
	examIDs := make([]uuid.UUID, 0, n)
	jobIDs := make([]int, 0, n)
	reasons := make([]string, 0, n)
	finishedAts := make([]time.Time, 0, n)

	for _, p := range batch {
		examID, err := uuid.Parse(p.ExamID)
		if err != nil {
			continue
		}
		employees = append(employees, p.EmployeeID)
		examIDs = append(examIDs, examID)
		jobIDs = append(jobIDs, p.JobID)
		reasons = append(reasons, p.Reason)
		finishedAts = append(finishedAts, time.Unix(p.Timestamp, 0))
	}

	_, err := w.pool.Exec(ctx,
		`UPDATE exam_attempts AS a
		 SET status = 'TERMINATED', reason = t.reason, finished_at = t.finished_at
		 FROM (
			SELECT u.employee_id, u.exam_id, u.job_id, u.reason, u.finished_at
			FROM UNNEST(
				$1::int[],
				$2::uuid[],
				$3::int[],
				$4::text[],
				$5::timestamptz[]
			) AS u (employee_id, exam_id, job_id, reason, finished_at)
		 ) AS t
		 WHERE a.employee_id = t.employee_id
		   AND a.exam_id = t.exam_id
		   AND a.job_id = t.job_id`,
		employees, examIDs, jobIDs, reasons, finishedAts,
	)
	if err != nil {
		w.log.Error().Err(err).Msg("Attempt termination update failed")
	}
}

func (w *ProctoringWorker) fallbackInsert(ctx context.Context, batch []*service.ViolationPayload) {
	requeueList := make([]*service.ViolationPayload, 0)

	for _, p := range batch {
		examID, err := uuid.Parse(p.ExamID)
		if err != nil {
			w.log.Error().Str("exam_id", p.ExamID).Msg("Dropping violation with invalid UUID")
			continue
		}

		_, err = w.pool.Exec(ctx,
			`INSERT INTO proctoring_events (employee_id, exam_id, job_id, kind, detail, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			p.EmployeeID, examID, p.JobID, model.ProctoringEventViolation, p.Reason, time.Unix(p.Timestamp, 0),
		)
		if err != nil {
			w.log.Error().Err(err).Int("employee_id", p.EmployeeID).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, p)
			continue
		}

		_, err = w.pool.Exec(ctx,
			`UPDATE exam_attempts
			 SET status = 'TERMINATED', reason = $1, finished_at = $2
			 WHERE employee_id = $3 AND exam_id = $4 AND job_id = $5`,
			p.Reason, time.Unix(p.Timestamp, 0), p.EmployeeID, examID, p.JobID,
		)
		if err != nil {
			w.log.Error().Err(err).Int("employee_id", p.EmployeeID).Msg("Termination update failed, requeueing")
			requeueList = append(requeueList, p)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ProctoringWorker) requeue(ctx context.Context, items []*service.ViolationPayload) {
	pipe := w.rdb.Pipeline()
	for _, p := range items {
		data, _ := json.Marshal(p)
		pipe.RPush(ctx, config.WorkerKey.PersistProctoringQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Sleep a bit to avoid thrashing if the DB is down hard.
	time.Sleep(2 * time.Second)
}

func (w *ProctoringWorker) shutdown(buffer []*service.ViolationPayload) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
