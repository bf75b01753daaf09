package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/config"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/model"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/repository"
)

const contentCacheTTL = 10 * time.Minute

// ContentService is the engine's content provider: exam groups and items
// read through a Redis cache with PostgreSQL as the source of truth.
// Content is immutable per attempt, so plain TTL expiry is enough.
type ContentService struct {
	examRepo *repository.ExamRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewContentService creates a new ContentService.
func NewContentService(examRepo *repository.ExamRepository, rdb *redis.Client, log zerolog.Logger) *ContentService {
	return &ContentService{
		examRepo: examRepo,
		rdb:      rdb,
		log:      log.With().Str("component", "content_service").Logger(),
	}
}

// GetExam retrieves the exam definition (title, duration).
func (s *ContentService) GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	return s.examRepo.GetByID(ctx, examID)
}

// FetchExamGroups returns the exam's groups in stored order.
func (s *ContentService) FetchExamGroups(ctx context.Context, examID uuid.UUID) ([]model.GroupRef, error) {
	cacheKey := config.CacheKey.ExamGroupsKey(examID.String())

	if raw, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
		var groups []model.GroupRef
		if err := json.Unmarshal([]byte(raw), &groups); err == nil {
			return groups, nil
		}
		// Corrupt cache entry; fall through to the database.
		s.rdb.Del(ctx, cacheKey)
	}

	groups, err := s.examRepo.ListGroups(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	s.cache(ctx, cacheKey, groups)
	return groups, nil
}

// FetchGroupItems returns a group's questions in stored order.
func (s *ContentService) FetchGroupItems(ctx context.Context, groupID uuid.UUID) ([]model.Question, error) {
	cacheKey := config.CacheKey.GroupItemsKey(groupID.String())

	if raw, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
		var items []cachedQuestion
		if err := json.Unmarshal([]byte(raw), &items); err == nil {
			return uncacheQuestions(items), nil
		}
		s.rdb.Del(ctx, cacheKey)
	}

	items, err := s.examRepo.ListGroupItems(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group items: %w", err)
	}

	s.cache(ctx, cacheKey, cacheQuestions(items))
	return items, nil
}

func (s *ContentService) cache(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, contentCacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Content cache write failed")
	}
}

// cachedQuestion carries the correct option through the cache. The model
// hides it from JSON so it can never leak to a client; the cache lives
// server-side only and needs it back for scoring.
type cachedQuestion struct {
	model.Question
	Correct model.OptionLabel `json:"correct"`
}

func cacheQuestions(items []model.Question) []cachedQuestion {
	out := make([]cachedQuestion, len(items))
	for i, q := range items {
		out[i] = cachedQuestion{Question: q, Correct: q.CorrectOption}
	}
	return out
}

func uncacheQuestions(items []cachedQuestion) []model.Question {
	out := make([]model.Question, len(items))
	for i, c := range items {
		q := c.Question
		q.CorrectOption = c.Correct
		out[i] = q
	}
	return out
}
