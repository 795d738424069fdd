package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/classpulse/backend/internal/models"
)

// Channel identifies one of the hub's independent broadcast channels.
type Channel string

const (
	// ChannelLectureActivity carries every lecture create/update event,
	// unfiltered.
	ChannelLectureActivity Channel = "lecture_activity"
	// ChannelLectureUpdated carries lecture updates filtered by lecture id.
	ChannelLectureUpdated Channel = "lecture_updated"
	// ChannelQuestionUpdated carries lecture-question status changes
	// filtered by lecture-question id.
	ChannelQuestionUpdated Channel = "lecture_question_updated"
	// ChannelResponseCount carries recomputed response counts filtered by
	// lecture-question id.
	ChannelResponseCount Channel = "response_count_updated"
	// ChannelStudentResponded carries submitted responses filtered by
	// lecture-question id.
	ChannelStudentResponded Channel = "student_responded"
)

// Channels lists every hub channel.
var Channels = []Channel{
	ChannelLectureActivity,
	ChannelLectureUpdated,
	ChannelQuestionUpdated,
	ChannelResponseCount,
	ChannelStudentResponded,
}

// ValidChannel reports whether c names a hub channel.
func ValidChannel(c Channel) bool {
	for _, known := range Channels {
		if c == known {
			return true
		}
	}
	return false
}

// Event is one domain event delivered to subscribers. FilterKey is the
// value subscribers match on (empty on the unfiltered activity channel).
type Event struct {
	Channel   Channel         `json:"channel"`
	Type      string          `json:"type"`
	FilterKey string          `json:"filter_key,omitempty"`
	Data      json.RawMessage `json:"data"`
	At        time.Time       `json:"at"`
}

// ResponseCount is the payload of a response_count_updated event.
type ResponseCount struct {
	LectureQuestionID uuid.UUID `json:"lecture_question_id"`
	Count             int64     `json:"count"`
}

func newEvent(channel Channel, typ, key string, payload interface{}) Event {
	data, _ := json.Marshal(payload)
	return Event{Channel: channel, Type: typ, FilterKey: key, Data: data, At: time.Now()}
}

// LectureCreated builds the activity-channel event for a new lecture.
func LectureCreated(l *models.Lecture) Event {
	return newEvent(ChannelLectureActivity, "lecture_created", "", l)
}

// LectureActivity builds the unfiltered activity event for a lecture update.
func LectureActivity(l *models.Lecture) Event {
	return newEvent(ChannelLectureActivity, "lecture_updated", "", l)
}

// LectureUpdated builds the per-lecture update event.
func LectureUpdated(l *models.Lecture) Event {
	return newEvent(ChannelLectureUpdated, "lecture_updated", l.ID.String(), l)
}

// QuestionUpdated builds the per-question status change event.
func QuestionUpdated(q *models.LectureQuestion) Event {
	return newEvent(ChannelQuestionUpdated, "lecture_question_updated", q.ID.String(), q)
}

// StudentResponded builds the per-question response event.
func StudentResponded(r *models.StudentResponse) Event {
	return newEvent(ChannelStudentResponded, "student_responded", r.LectureQuestionID.String(), r)
}

// ResponseCountUpdated builds the per-question count event.
func ResponseCountUpdated(questionID uuid.UUID, count int64) Event {
	return newEvent(ChannelResponseCount, "response_count_updated", questionID.String(),
		ResponseCount{LectureQuestionID: questionID, Count: count})
}
