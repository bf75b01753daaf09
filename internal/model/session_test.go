package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSessionKeyResolved(t *testing.T) {
	examID := uuid.New()

	tests := []struct {
		name string
		key  SessionKey
		want bool
	}{
		{"valid", SessionKey{EmployeeID: 1, ExamID: examID, JobID: 5}, true},
		{"refresher job", SessionKey{EmployeeID: 1, ExamID: examID, JobID: RefresherJobID}, true},
		{"missing employee", SessionKey{ExamID: examID, JobID: 5}, false},
		{"missing exam", SessionKey{EmployeeID: 1, JobID: 5}, false},
		{"negative job", SessionKey{EmployeeID: 1, ExamID: examID, JobID: -1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.Resolved())
		})
	}
}

func TestSessionKeyIsRefresher(t *testing.T) {
	assert.True(t, SessionKey{EmployeeID: 1, ExamID: uuid.New(), JobID: RefresherJobID}.IsRefresher())
	assert.False(t, SessionKey{EmployeeID: 1, ExamID: uuid.New(), JobID: 9}.IsRefresher())
}

func TestOptionLabelValid(t *testing.T) {
	for _, l := range []OptionLabel{OptionA, OptionB, OptionC, OptionD} {
		assert.True(t, l.Valid())
	}
	assert.False(t, OptionLabel("E").Valid())
	assert.False(t, OptionLabel("").Valid())
	assert.False(t, OptionLabel("a").Valid())
}

func TestQuestionViewHidesCorrectOption(t *testing.T) {
	q := Question{
		ID:            uuid.New(),
		GroupID:       uuid.New(),
		QuestionText:  "2 + 2 = ?",
		OptionA:       "3",
		OptionB:       "4",
		OptionC:       "5",
		OptionD:       "22",
		CorrectOption: OptionB,
		OrderNum:      1,
	}

	v := q.View()
	assert.Equal(t, q.ID, v.ID)
	assert.Equal(t, q.QuestionText, v.QuestionText)
	assert.Equal(t, q.OrderNum, v.OrderNum)
}
