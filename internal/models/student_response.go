package models

import (
	"time"

	"github.com/google/uuid"
)

// StudentResponse is one student's single submitted answer to one lecture
// question. Responses are immutable once created; the repository enforces
// at most one per (student, lecture question) pair.
type StudentResponse struct {
	ID                uuid.UUID `json:"id"`
	StudentID         uuid.UUID `json:"student_id"`
	LectureQuestionID uuid.UUID `json:"lecture_question_id"`
	AnswerID          uuid.UUID `json:"answer_id"`
	CreatedAt         time.Time `json:"created_at"`
}
