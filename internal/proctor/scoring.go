package proctor

import (
	"github.com/google/uuid"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/model"
)

// Score partitions questions by group, preserving first-appearance order,
// and counts correct answers per group. A missing answer counts as
// incorrect, never as an error. Pure function of its inputs.
func Score(questions []model.Question, answers map[uuid.UUID]model.OptionLabel) []model.GroupScore {
	order := make([]uuid.UUID, 0)
	byGroup := make(map[uuid.UUID]*model.GroupScore)

	for _, q := range questions {
		gs, ok := byGroup[q.GroupID]
		if !ok {
			gs = &model.GroupScore{GroupID: q.GroupID}
			byGroup[q.GroupID] = gs
			order = append(order, q.GroupID)
		}
		gs.Total++
		if ans, answered := answers[q.ID]; answered && ans == q.CorrectOption {
			gs.Correct++
		}
	}

	scores := make([]model.GroupScore, 0, len(order))
	for _, gid := range order {
		scores = append(scores, *byGroup[gid])
	}
	return scores
}
