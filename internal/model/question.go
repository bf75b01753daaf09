package model

import (
	"github.com/google/uuid"
)

// OptionLabel identifies one of the four fixed answer options.
type OptionLabel string

const (
	OptionA OptionLabel = "A"
	OptionB OptionLabel = "B"
	OptionC OptionLabel = "C"
	OptionD OptionLabel = "D"
)

// Valid reports whether the label is one of A-D.
func (l OptionLabel) Valid() bool {
	switch l {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Question is a single exam item. Immutable once loaded into a session.
type Question struct {
	ID            uuid.UUID   `json:"id"`
	GroupID       uuid.UUID   `json:"group_id"`
	QuestionText  string      `json:"question_text"`
	OptionA       string      `json:"option_a"`
	OptionB       string      `json:"option_b"`
	OptionC       string      `json:"option_c"`
	OptionD       string      `json:"option_d"`
	CorrectOption OptionLabel `json:"-"`
	OrderNum      int         `json:"order_num"`
}

// CandidateView strips grading fields before a question is sent to the client.
type CandidateView struct {
	ID           uuid.UUID `json:"id"`
	GroupID      uuid.UUID `json:"group_id"`
	QuestionText string    `json:"question_text"`
	OptionA      string    `json:"option_a"`
	OptionB      string    `json:"option_b"`
	OptionC      string    `json:"option_c"`
	OptionD      string    `json:"option_d"`
	OrderNum     int       `json:"order_num"`
}

// View returns the candidate-visible projection of the question.
func (q Question) View() CandidateView {
	return CandidateView{
		ID:           q.ID,
		GroupID:      q.GroupID,
		QuestionText: q.QuestionText,
		OptionA:      q.OptionA,
		OptionB:      q.OptionB,
		OptionC:      q.OptionC,
		OptionD:      q.OptionD,
		OrderNum:     q.OrderNum,
	}
}

// GroupRef identifies one scored question group within an exam.
type GroupRef struct {
	ID       uuid.UUID `json:"id"`
	ExamID   uuid.UUID `json:"exam_id"`
	Name     string    `json:"name"`
	OrderNum int       `json:"order_num"`
}
