package lectures_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/errs"
	"github.com/classpulse/backend/internal/events"
	"github.com/classpulse/backend/internal/lectures"
	"github.com/classpulse/backend/internal/models"
)

// fakeStore is an in-memory lectures.Store.
type fakeStore struct {
	mu        sync.Mutex
	lectures  map[uuid.UUID]models.Lecture
	questions map[uuid.UUID]models.LectureQuestion
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		lectures:  make(map[uuid.UUID]models.Lecture),
		questions: make(map[uuid.UUID]models.LectureQuestion),
	}
}

func (s *fakeStore) CreateWithQuestions(_ context.Context, l *models.Lecture, questionIDs []uuid.UUID) ([]models.LectureQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = uuid.New()
	l.CreatedAt = time.Now()
	l.UpdatedAt = l.CreatedAt
	s.lectures[l.ID] = *l
	return s.insertQuestions(l.ID, questionIDs), nil
}

func (s *fakeStore) insertQuestions(lectureID uuid.UUID, questionIDs []uuid.UUID) []models.LectureQuestion {
	out := make([]models.LectureQuestion, 0, len(questionIDs))
	for _, qid := range questionIDs {
		lq := models.LectureQuestion{
			ID:         uuid.New(),
			LectureID:  lectureID,
			QuestionID: qid,
			Status:     models.QuestionPending,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}
		s.questions[lq.ID] = lq
		out = append(out, lq)
	}
	return out
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Lecture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lectures[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &l, nil
}

func (s *fakeStore) List(_ context.Context, f lectures.ListFilter) ([]models.Lecture, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Lecture
	for _, l := range s.lectures {
		if f.FacultyID != nil && l.FacultyID != *f.FacultyID {
			continue
		}
		if f.ChapterID != nil && l.ChapterID != *f.ChapterID {
			continue
		}
		if f.Status != nil && l.Status != *f.Status {
			continue
		}
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.LectureStatus) (*models.Lecture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lectures[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	l.Status = status
	l.UpdatedAt = time.Now()
	s.lectures[id] = l
	return &l, nil
}

func (s *fakeStore) AddQuestions(_ context.Context, lectureID uuid.UUID, questionIDs []uuid.UUID) ([]models.LectureQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertQuestions(lectureID, questionIDs), nil
}

func (s *fakeStore) RemoveQuestions(_ context.Context, lectureID uuid.UUID, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if lq, ok := s.questions[id]; ok && lq.LectureID == lectureID {
			delete(s.questions, id)
		}
	}
	return nil
}

func (s *fakeStore) ListQuestions(_ context.Context, lectureID uuid.UUID) ([]models.LectureQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LectureQuestion
	for _, lq := range s.questions {
		if lq.LectureID == lectureID {
			out = append(out, lq)
		}
	}
	return out, nil
}

func (s *fakeStore) GetQuestionByID(_ context.Context, id uuid.UUID) (*models.LectureQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lq, ok := s.questions[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &lq, nil
}

func (s *fakeStore) UpdateQuestionStatus(_ context.Context, id uuid.UUID, status models.QuestionStatus) (*models.LectureQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lq, ok := s.questions[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	lq.Status = status
	lq.UpdatedAt = time.Now()
	s.questions[id] = lq
	return &lq, nil
}

func (s *fakeStore) seedLecture(status models.LectureStatus) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.lectures[id] = models.Lecture{ID: id, FacultyID: uuid.New(), ChapterID: uuid.New(), Title: "seeded", Status: status}
	return id
}

func (s *fakeStore) seedQuestion(lectureID uuid.UUID, status models.QuestionStatus) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.questions[id] = models.LectureQuestion{ID: id, LectureID: lectureID, QuestionID: uuid.New(), Status: status}
	return id
}

// fakeOracles answers chapter/question/answer existence from fixed sets and
// counts question-bank validation calls.
type fakeOracles struct {
	chapters      map[uuid.UUID]bool
	questions     map[uuid.UUID]bool
	answers       map[uuid.UUID]bool
	validateCalls int
}

func newFakeOracles() *fakeOracles {
	return &fakeOracles{
		chapters:  make(map[uuid.UUID]bool),
		questions: make(map[uuid.UUID]bool),
		answers:   make(map[uuid.UUID]bool),
	}
}

func (o *fakeOracles) ChapterExists(_ context.Context, id uuid.UUID) bool { return o.chapters[id] }

func (o *fakeOracles) ValidQuestions(_ context.Context, ids []uuid.UUID) []uuid.UUID {
	o.validateCalls++
	var out []uuid.UUID
	for _, id := range ids {
		if o.questions[id] {
			out = append(out, id)
		}
	}
	return out
}

func (o *fakeOracles) AnswerExists(_ context.Context, id uuid.UUID) bool { return o.answers[id] }

func newService(store *fakeStore, oracles *fakeOracles) (*lectures.Service, *events.Hub) {
	hub := events.NewHub(zap.NewNop(), 16, nil)
	return lectures.NewService(store, oracles, oracles, hub, zap.NewNop()), hub
}

func recvEvent(t *testing.T, sub *events.Subscription) events.Event {
	t.Helper()
	select {
	case evt := <-sub.C:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

func TestCreateLecture(t *testing.T) {
	store := newFakeStore()
	oracles := newFakeOracles()
	svc, hub := newService(store, oracles)
	defer hub.Close()

	chapterID := uuid.New()
	oracles.chapters[chapterID] = true
	q1, q2 := uuid.New(), uuid.New()
	oracles.questions[q1] = true
	oracles.questions[q2] = true

	activity := hub.Subscribe(events.ChannelLectureActivity, "")
	defer activity.Close()

	detail, err := svc.CreateLecture(context.Background(), uuid.New(), chapterID, "Chapter 3 review", []uuid.UUID{q1, q2})
	require.NoError(t, err)
	require.Equal(t, models.LectureScheduled, detail.Lecture.Status)
	require.Len(t, detail.Questions, 2)
	for _, lq := range detail.Questions {
		require.Equal(t, models.QuestionPending, lq.Status)
	}

	evt := recvEvent(t, activity)
	require.Equal(t, "lecture_created", evt.Type)
}

func TestCreateLectureChapterMissing(t *testing.T) {
	store := newFakeStore()
	oracles := newFakeOracles()
	svc, hub := newService(store, oracles)
	defer hub.Close()

	_, err := svc.CreateLecture(context.Background(), uuid.New(), uuid.New(), "no chapter", nil)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.Empty(t, store.lectures)
}

func TestCreateLecturePartialValidationIsTotalFailure(t *testing.T) {
	store := newFakeStore()
	oracles := newFakeOracles()
	svc, hub := newService(store, oracles)
	defer hub.Close()

	chapterID := uuid.New()
	oracles.chapters[chapterID] = true
	known := uuid.New()
	oracles.questions[known] = true
	unknown := uuid.New()

	_, err := svc.CreateLecture(context.Background(), uuid.New(), chapterID, "partial", []uuid.UUID{known, unknown})
	require.ErrorIs(t, err, errs.ErrValidationFailed)
	require.Empty(t, store.lectures)
	require.Empty(t, store.questions)
}

func TestUpdateStatusTransitionTable(t *testing.T) {
	all := []models.LectureStatus{
		models.LectureScheduled, models.LectureInProgress,
		models.LectureCompleted, models.LectureCancelled,
	}
	allowed := map[models.LectureStatus][]models.LectureStatus{
		models.LectureScheduled:  {models.LectureInProgress, models.LectureCancelled},
		models.LectureInProgress: {models.LectureCompleted, models.LectureCancelled},
		models.LectureCompleted:  {},
		models.LectureCancelled:  {},
	}

	for _, current := range all {
		for _, next := range all {
			ok := false
			for _, a := range allowed[current] {
				if a == next {
					ok = true
				}
			}
			t.Run(string(current)+"_to_"+string(next), func(t *testing.T) {
				store := newFakeStore()
				svc, hub := newService(store, newFakeOracles())
				defer hub.Close()
				id := store.seedLecture(current)

				updated, err := svc.UpdateStatus(context.Background(), id, next)
				if ok {
					require.NoError(t, err)
					require.Equal(t, next, updated.Status)
				} else {
					require.ErrorIs(t, err, errs.ErrInvalidTransition)
					l, _ := store.GetByID(context.Background(), id)
					require.Equal(t, current, l.Status)
				}
			})
		}
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	store := newFakeStore()
	svc, hub := newService(store, newFakeOracles())
	defer hub.Close()

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), models.LectureInProgress)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdateStatusEmitsOnBothLectureChannels(t *testing.T) {
	store := newFakeStore()
	svc, hub := newService(store, newFakeOracles())
	defer hub.Close()
	id := store.seedLecture(models.LectureScheduled)

	activity := hub.Subscribe(events.ChannelLectureActivity, "")
	filtered := hub.Subscribe(events.ChannelLectureUpdated, id.String())
	defer activity.Close()
	defer filtered.Close()

	_, err := svc.UpdateStatus(context.Background(), id, models.LectureInProgress)
	require.NoError(t, err)

	require.Equal(t, "lecture_updated", recvEvent(t, activity).Type)
	evt := recvEvent(t, filtered)
	require.Equal(t, "lecture_updated", evt.Type)
	require.Equal(t, id.String(), evt.FilterKey)
}

func TestUpdateQuestionStatusTransitionTable(t *testing.T) {
	all := []models.QuestionStatus{
		models.QuestionPending, models.QuestionActive, models.QuestionCompleted,
	}
	allowed := map[models.QuestionStatus][]models.QuestionStatus{
		models.QuestionPending:   {models.QuestionActive, models.QuestionCompleted},
		models.QuestionActive:    {models.QuestionCompleted},
		models.QuestionCompleted: {},
	}

	for _, current := range all {
		for _, next := range all {
			ok := false
			for _, a := range allowed[current] {
				if a == next {
					ok = true
				}
			}
			t.Run(string(current)+"_to_"+string(next), func(t *testing.T) {
				store := newFakeStore()
				svc, hub := newService(store, newFakeOracles())
				defer hub.Close()
				lectureID := store.seedLecture(models.LectureInProgress)
				qid := store.seedQuestion(lectureID, current)

				sub := hub.Subscribe(events.ChannelQuestionUpdated, qid.String())
				defer sub.Close()

				updated, err := svc.UpdateQuestionStatus(context.Background(), qid, next)
				if ok {
					require.NoError(t, err)
					require.Equal(t, next, updated.Status)
					evt := recvEvent(t, sub)
					require.Equal(t, "lecture_question_updated", evt.Type)
					require.Equal(t, qid.String(), evt.FilterKey)
				} else {
					require.ErrorIs(t, err, errs.ErrInvalidTransition)
					lq, _ := store.GetQuestionByID(context.Background(), qid)
					require.Equal(t, current, lq.Status)
				}
			})
		}
	}
}

func TestLectureLifecycleScenario(t *testing.T) {
	store := newFakeStore()
	svc, hub := newService(store, newFakeOracles())
	defer hub.Close()
	id := store.seedLecture(models.LectureScheduled)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, id, models.LectureInProgress)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, id, models.LectureScheduled)
	require.ErrorIs(t, err, errs.ErrInvalidTransition)

	_, err = svc.UpdateStatus(ctx, id, models.LectureCompleted)
	require.NoError(t, err)

	for _, next := range []models.LectureStatus{
		models.LectureScheduled, models.LectureInProgress,
		models.LectureCompleted, models.LectureCancelled,
	} {
		_, err = svc.UpdateStatus(ctx, id, next)
		require.ErrorIs(t, err, errs.ErrInvalidTransition)
	}
}

func TestAddQuestionsSkipsBankValidation(t *testing.T) {
	store := newFakeStore()
	oracles := newFakeOracles()
	svc, hub := newService(store, oracles)
	defer hub.Close()
	id := store.seedLecture(models.LectureScheduled)

	filtered := hub.Subscribe(events.ChannelLectureUpdated, id.String())
	defer filtered.Close()

	// Ids unknown to the bank are accepted on this path.
	questions, err := svc.AddQuestions(context.Background(), id, []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	require.Len(t, questions, 1)
	require.Zero(t, oracles.validateCalls)
	require.Equal(t, "lecture_updated", recvEvent(t, filtered).Type)
}

func TestAddQuestionsLectureNotFound(t *testing.T) {
	store := newFakeStore()
	svc, hub := newService(store, newFakeOracles())
	defer hub.Close()

	_, err := svc.AddQuestions(context.Background(), uuid.New(), []uuid.UUID{uuid.New()})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRemoveQuestionsScopedToLecture(t *testing.T) {
	store := newFakeStore()
	svc, hub := newService(store, newFakeOracles())
	defer hub.Close()

	mine := store.seedLecture(models.LectureScheduled)
	other := store.seedLecture(models.LectureScheduled)
	myQuestion := store.seedQuestion(mine, models.QuestionPending)
	otherQuestion := store.seedQuestion(other, models.QuestionPending)

	err := svc.RemoveQuestions(context.Background(), mine, []uuid.UUID{myQuestion, otherQuestion})
	require.NoError(t, err)

	_, err = store.GetQuestionByID(context.Background(), myQuestion)
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = store.GetQuestionByID(context.Background(), otherQuestion)
	require.NoError(t, err)
}
