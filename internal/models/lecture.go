package models

import (
	"time"

	"github.com/google/uuid"
)

// LectureStatus is the lifecycle state of a lecture session.
type LectureStatus string

const (
	LectureScheduled  LectureStatus = "SCHEDULED"
	LectureInProgress LectureStatus = "IN_PROGRESS"
	LectureCompleted  LectureStatus = "COMPLETED"
	LectureCancelled  LectureStatus = "CANCELLED"
)

// lectureTransitions lists the allowed next states per current state.
// COMPLETED and CANCELLED are terminal.
var lectureTransitions = map[LectureStatus][]LectureStatus{
	LectureScheduled:  {LectureInProgress, LectureCancelled},
	LectureInProgress: {LectureCompleted, LectureCancelled},
	LectureCompleted:  {},
	LectureCancelled:  {},
}

// Valid reports whether s is a known lecture status.
func (s LectureStatus) Valid() bool {
	_, ok := lectureTransitions[s]
	return ok
}

// CanTransition reports whether a lecture may move from s to next.
func (s LectureStatus) CanTransition(next LectureStatus) bool {
	for _, allowed := range lectureTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Lecture represents one scheduled or running classroom session tied to a
// chapter and a faculty owner.
type Lecture struct {
	ID        uuid.UUID     `json:"id"`
	FacultyID uuid.UUID     `json:"faculty_id"`
	ChapterID uuid.UUID     `json:"chapter_id"`
	Title     string        `json:"title"`
	Status    LectureStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
