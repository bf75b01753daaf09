package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/config"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/service"
)

const (
	ScoreBatchSize    = 50
	ScoreBatchTimeout = 2 * time.Second
	ScorePollTimeout  = 1 * time.Second
)

// ScoreWorker drains the score queue and persists per-group results.
// Grading already happened in RAM when the session completed; this
// worker only moves the outcome into PostgreSQL.
type ScoreWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewScoreWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ScoreWorker {
	return &ScoreWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "score_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ScoreWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ScoreWorker started")

	batch := make([]*service.ScorePayload, 0, ScoreBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ScoreBatchSize || time.Since(lastFlush) >= ScoreBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ScorePollTimeout, config.WorkerKey.PersistScoresQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p service.ScorePayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

// ----------------------------------------------------------------
// Flush with row-by-row fallback and requeue
// ----------------------------------------------------------------

func (w *ScoreWorker) flushSafe(ctx context.Context, batch []*service.ScorePayload) {
	if len(batch) == 0 {
		return
	}

	failed := make([]*service.ScorePayload, 0)
	for _, p := range batch {
		if err := w.persist(ctx, p); err != nil {
			w.log.Error().Err(err).Int("employee_id", p.EmployeeID).Msg("Score persist failed, requeueing")
			failed = append(failed, p)
			continue
		}
		w.clearAnswerMirror(ctx, p)
	}

	if len(failed) > 0 {
		w.requeue(ctx, failed)
	}
}

// persist closes the attempt and upserts its group scores in one
// transaction, so a half-written result can never be read back.
func (w *ScoreWorker) persist(ctx context.Context, p *service.ScorePayload) error {
	examID, err := uuid.Parse(p.ExamID)
	if err != nil {
		return err
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var attemptID int64
	err = tx.QueryRow(ctx,
		`UPDATE exam_attempts
		 SET status = 'COMPLETED', finished_at = $1
		 WHERE employee_id = $2 AND exam_id = $3 AND job_id = $4
		 RETURNING id`,
		time.Unix(p.SubmittedAt, 0), p.EmployeeID, examID, p.JobID,
	).Scan(&attemptID)
	if err != nil {
		return err
	}

	n := len(p.Scores)
	groupIDs := make([]uuid.UUID, 0, n)
	totals := make([]int, 0, n)
	corrects := make([]int, 0, n)
	for _, gs := range p.Scores {
		groupIDs = append(groupIDs, gs.GroupID)
		totals = append(totals, gs.Total)
		corrects = append(corrects, gs.Correct)
	}

	// UNNEST keeps this a single round trip regardless of group count.
	_, err = tx.Exec(ctx,
		`INSERT INTO group_scores (attempt_id, group_id, total, correct)
		 SELECT $1, u.group_id, u.total, u.correct
		 FROM UNNEST($2::uuid[], $3::int[], $4::int[]) AS u (group_id, total, correct)
		 ON CONFLICT (attempt_id, group_id) DO UPDATE
		 SET total = EXCLUDED.total, correct = EXCLUDED.correct`,
		attemptID, groupIDs, totals, corrects,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// clearAnswerMirror drops the Redis answer buffer once the result is durable.
func (w *ScoreWorker) clearAnswerMirror(ctx context.Context, p *service.ScorePayload) {
	key := config.CacheKey.EmployeeAnswersKey(p.ExamID, p.EmployeeID)
	_ = w.rdb.Del(ctx, key).Err()
}

func (w *ScoreWorker) requeue(ctx context.Context, items []*service.ScorePayload) {
	pipe := w.rdb.Pipeline()
	for _, p := range items {
		data, _ := json.Marshal(p)
		pipe.RPush(ctx, config.WorkerKey.PersistScoresQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue scores to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed scores back to Redis")
	// Avoid thrashing if the DB is down hard.
	time.Sleep(2 * time.Second)
}
