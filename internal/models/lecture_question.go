package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionStatus is the presentation state of a question within a lecture.
type QuestionStatus string

const (
	QuestionPending   QuestionStatus = "PENDING"
	QuestionActive    QuestionStatus = "ACTIVE"
	QuestionCompleted QuestionStatus = "COMPLETED"
)

// questionTransitions lists the allowed next states per current state.
// COMPLETED is terminal; ACTIVE never regresses to PENDING.
var questionTransitions = map[QuestionStatus][]QuestionStatus{
	QuestionPending:   {QuestionActive, QuestionCompleted},
	QuestionActive:    {QuestionCompleted},
	QuestionCompleted: {},
}

// Valid reports whether s is a known question status.
func (s QuestionStatus) Valid() bool {
	_, ok := questionTransitions[s]
	return ok
}

// CanTransition reports whether a lecture question may move from s to next.
func (s QuestionStatus) CanTransition(next QuestionStatus) bool {
	for _, allowed := range questionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// LectureQuestion is one question-bank question attached to a lecture.
type LectureQuestion struct {
	ID         uuid.UUID      `json:"id"`
	LectureID  uuid.UUID      `json:"lecture_id"`
	QuestionID uuid.UUID      `json:"question_id"`
	Status     QuestionStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
