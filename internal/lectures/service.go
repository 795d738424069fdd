package lectures

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/catalog"
	"github.com/classpulse/backend/internal/errs"
	"github.com/classpulse/backend/internal/events"
	"github.com/classpulse/backend/internal/models"
)

// Store is the persistence surface the service needs. *Repository
// implements it.
type Store interface {
	CreateWithQuestions(ctx context.Context, l *models.Lecture, questionIDs []uuid.UUID) ([]models.LectureQuestion, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Lecture, error)
	List(ctx context.Context, f ListFilter) ([]models.Lecture, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.LectureStatus) (*models.Lecture, error)
	AddQuestions(ctx context.Context, lectureID uuid.UUID, questionIDs []uuid.UUID) ([]models.LectureQuestion, error)
	RemoveQuestions(ctx context.Context, lectureID uuid.UUID, ids []uuid.UUID) error
	ListQuestions(ctx context.Context, lectureID uuid.UUID) ([]models.LectureQuestion, error)
	GetQuestionByID(ctx context.Context, id uuid.UUID) (*models.LectureQuestion, error)
	UpdateQuestionStatus(ctx context.Context, id uuid.UUID, status models.QuestionStatus) (*models.LectureQuestion, error)
}

// Service enforces the lecture and lecture-question life cycles. Every
// successful mutation is followed by best-effort event emission; emission
// never fails the triggering operation.
type Service struct {
	store    Store
	chapters catalog.ChapterOracle
	bank     catalog.QuestionBankOracle
	hub      *events.Hub
	logger   *zap.Logger
}

// NewService creates the lecture service.
func NewService(store Store, chapters catalog.ChapterOracle, bank catalog.QuestionBankOracle, hub *events.Hub, logger *zap.Logger) *Service {
	return &Service{store: store, chapters: chapters, bank: bank, hub: hub, logger: logger}
}

// LectureDetail is a lecture together with its attached questions.
type LectureDetail struct {
	Lecture   models.Lecture           `json:"lecture"`
	Questions []models.LectureQuestion `json:"questions"`
}

// CreateLecture validates the chapter and every initial question id with
// the upstream collaborators (concurrently), then persists the lecture and
// its questions atomically. Any validation miss is total failure: nothing
// is written.
func (s *Service) CreateLecture(ctx context.Context, facultyID, chapterID uuid.UUID, title string, questionIDs []uuid.UUID) (*LectureDetail, error) {
	var (
		wg            sync.WaitGroup
		chapterExists bool
		validIDs      []uuid.UUID
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		chapterExists = s.chapters.ChapterExists(ctx, chapterID)
	}()
	if len(questionIDs) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			validIDs = s.bank.ValidQuestions(ctx, questionIDs)
		}()
	}
	wg.Wait()

	if !chapterExists {
		return nil, errs.ErrNotFound
	}
	if len(validIDs) != len(questionIDs) {
		s.logger.Info("lecture creation rejected by question bank",
			zap.Int("requested", len(questionIDs)), zap.Int("valid", len(validIDs)))
		return nil, errs.ErrValidationFailed
	}

	l := &models.Lecture{
		FacultyID: facultyID,
		ChapterID: chapterID,
		Title:     title,
		Status:    models.LectureScheduled,
	}
	questions, err := s.store.CreateWithQuestions(ctx, l, questionIDs)
	if err != nil {
		return nil, errs.Operation("create lecture", err)
	}

	s.hub.Publish(events.LectureCreated(l))
	s.hub.Publish(events.LectureUpdated(l))
	return &LectureDetail{Lecture: *l, Questions: questions}, nil
}

// GetLecture returns one lecture with its questions.
func (s *Service) GetLecture(ctx context.Context, id uuid.UUID) (*LectureDetail, error) {
	l, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, errs.Operation("load lecture", err)
	}
	questions, err := s.store.ListQuestions(ctx, id)
	if err != nil {
		return nil, errs.Operation("load lecture questions", err)
	}
	return &LectureDetail{Lecture: *l, Questions: questions}, nil
}

// ListLectures returns a filtered page of lectures and the total match
// count.
func (s *Service) ListLectures(ctx context.Context, f ListFilter) ([]models.Lecture, int64, error) {
	list, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, 0, errs.Operation("list lectures", err)
	}
	return list, total, nil
}

// UpdateStatus moves a lecture to next if the transition table allows it.
// Concurrent requests racing to the same valid target may both succeed and
// double-emit; stored state stays consistent either way.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, next models.LectureStatus) (*models.Lecture, error) {
	if !next.Valid() {
		return nil, errs.ErrInvalidTransition
	}
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, errs.Operation("load lecture", err)
	}
	if !current.Status.CanTransition(next) {
		return nil, errs.ErrInvalidTransition
	}
	updated, err := s.store.UpdateStatus(ctx, id, next)
	if err != nil {
		return nil, errs.Operation("update lecture status", err)
	}

	s.emitLectureUpdated(updated)
	return updated, nil
}

// AddQuestions attaches question-bank questions to an existing lecture.
// Question-bank existence is deliberately not re-validated on this path.
func (s *Service) AddQuestions(ctx context.Context, lectureID uuid.UUID, questionIDs []uuid.UUID) ([]models.LectureQuestion, error) {
	l, err := s.store.GetByID(ctx, lectureID)
	if err != nil {
		return nil, errs.Operation("load lecture", err)
	}
	questions, err := s.store.AddQuestions(ctx, lectureID, questionIDs)
	if err != nil {
		return nil, errs.Operation("add lecture questions", err)
	}

	s.emitLectureUpdated(l)
	return questions, nil
}

// RemoveQuestions detaches the given lecture questions from the lecture.
func (s *Service) RemoveQuestions(ctx context.Context, lectureID uuid.UUID, ids []uuid.UUID) error {
	l, err := s.store.GetByID(ctx, lectureID)
	if err != nil {
		return errs.Operation("load lecture", err)
	}
	if err := s.store.RemoveQuestions(ctx, lectureID, ids); err != nil {
		return errs.Operation("remove lecture questions", err)
	}

	s.emitLectureUpdated(l)
	return nil
}

// UpdateQuestionStatus moves a lecture question to next if the question
// transition table allows it.
func (s *Service) UpdateQuestionStatus(ctx context.Context, id uuid.UUID, next models.QuestionStatus) (*models.LectureQuestion, error) {
	if !next.Valid() {
		return nil, errs.ErrInvalidTransition
	}
	current, err := s.store.GetQuestionByID(ctx, id)
	if err != nil {
		return nil, errs.Operation("load lecture question", err)
	}
	if !current.Status.CanTransition(next) {
		return nil, errs.ErrInvalidTransition
	}
	updated, err := s.store.UpdateQuestionStatus(ctx, id, next)
	if err != nil {
		return nil, errs.Operation("update lecture question status", err)
	}

	s.hub.Publish(events.QuestionUpdated(updated))
	return updated, nil
}

func (s *Service) emitLectureUpdated(l *models.Lecture) {
	s.hub.Publish(events.LectureActivity(l))
	s.hub.Publish(events.LectureUpdated(l))
}
