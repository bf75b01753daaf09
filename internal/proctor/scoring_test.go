package proctor

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/model"
)

func question(group uuid.UUID, correct model.OptionLabel) model.Question {
	return model.Question{ID: uuid.New(), GroupID: group, CorrectOption: correct}
}

func TestScorePartitionsByGroup(t *testing.T) {
	groupA := uuid.New()
	groupB := uuid.New()

	q1 := question(groupA, model.OptionA)
	q2 := question(groupA, model.OptionB)
	q3 := question(groupB, model.OptionC)

	answers := map[uuid.UUID]model.OptionLabel{
		q1.ID: model.OptionA, // correct
		q2.ID: model.OptionD, // wrong
		q3.ID: model.OptionC, // correct
	}

	scores := Score([]model.Question{q1, q2, q3}, answers)
	require.Len(t, scores, 2)

	assert.Equal(t, groupA, scores[0].GroupID)
	assert.Equal(t, 2, scores[0].Total)
	assert.Equal(t, 1, scores[0].Correct)

	assert.Equal(t, groupB, scores[1].GroupID)
	assert.Equal(t, 1, scores[1].Total)
	assert.Equal(t, 1, scores[1].Correct)
}

func TestScoreMissingAnswerCountsIncorrect(t *testing.T) {
	group := uuid.New()
	q1 := question(group, model.OptionA)
	q2 := question(group, model.OptionB)

	scores := Score([]model.Question{q1, q2}, map[uuid.UUID]model.OptionLabel{
		q1.ID: model.OptionA,
	})

	require.Len(t, scores, 1)
	assert.Equal(t, 2, scores[0].Total)
	assert.Equal(t, 1, scores[0].Correct)
}

func TestScorePreservesFirstAppearanceOrder(t *testing.T) {
	groupA := uuid.New()
	groupB := uuid.New()

	// Interleaved groups: order of first appearance wins.
	questions := []model.Question{
		question(groupB, model.OptionA),
		question(groupA, model.OptionA),
		question(groupB, model.OptionA),
	}

	scores := Score(questions, nil)
	require.Len(t, scores, 2)
	assert.Equal(t, groupB, scores[0].GroupID)
	assert.Equal(t, 2, scores[0].Total)
	assert.Equal(t, groupA, scores[1].GroupID)
}

func TestScoreEmptyInputs(t *testing.T) {
	assert.Empty(t, Score(nil, nil))
	assert.Empty(t, Score([]model.Question{}, map[uuid.UUID]model.OptionLabel{}))
}
