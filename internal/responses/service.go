package responses

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
	Create(ctx context.Context, resp *models.StudentResponse) error
	Exists(ctx context.Context, studentID, lectureQuestionID uuid.UUID) (bool, error)
	CountByQuestion(ctx context.Context, lectureQuestionID uuid.UUID) (int64, error)
}

// QuestionStore resolves lecture questions; the lectures repository
// implements it.
type QuestionStore interface {
	GetQuestionByID(ctx context.Context, id uuid.UUID) (*models.LectureQuestion, error)
}

// Service enforces the one-response-per-student-per-question invariant and
// produces live response counts.
type Service struct {
	store     Store
	questions QuestionStore
	bank      catalog.QuestionBankOracle
	hub       *events.Hub
	logger    *zap.Logger
}

// NewService creates the response service.
func NewService(store Store, questions QuestionStore, bank catalog.QuestionBankOracle, hub *events.Hub, logger *zap.Logger) *Service {
	return &Service{store: store, questions: questions, bank: bank, hub: hub, logger: logger}
}

// CreateResponse records studentID's answer to a lecture question. Three
// independent checks run concurrently before anything is written: the
// question must exist, the answer must be known to the question bank, and
// the student must not have responded already. On success the response is
// committed, then the response event and a freshly recomputed count are
// emitted best-effort.
func (s *Service) CreateResponse(ctx context.Context, lectureQuestionID, answerID, studentID uuid.UUID) (*models.StudentResponse, error) {
	var (
		wg           sync.WaitGroup
		questionErr  error
		answerExists bool
		duplicate    bool
		duplicateErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		_, questionErr = s.questions.GetQuestionByID(ctx, lectureQuestionID)
	}()
	go func() {
		defer wg.Done()
		answerExists = s.bank.AnswerExists(ctx, answerID)
	}()
	go func() {
		defer wg.Done()
		duplicate, duplicateErr = s.store.Exists(ctx, studentID, lectureQuestionID)
	}()
	wg.Wait()

	if questionErr != nil {
		return nil, errs.Operation("load lecture question", questionErr)
	}
	if !answerExists {
		return nil, errs.ErrNotFound
	}
	if duplicateErr != nil {
		return nil, errs.Operation("check duplicate response", duplicateErr)
	}
	if duplicate {
		return nil, errs.ErrDuplicateResponse
	}

	resp := &models.StudentResponse{
		StudentID:         studentID,
		LectureQuestionID: lectureQuestionID,
		AnswerID:          answerID,
	}
	if err := s.store.Create(ctx, resp); err != nil {
		return nil, errs.Operation("save response", err)
	}

	s.hub.Publish(events.StudentResponded(resp))
	s.emitCount(ctx, lectureQuestionID)
	return resp, nil
}

// CountResponses returns the current persisted response count for one
// lecture question.
func (s *Service) CountResponses(ctx context.Context, lectureQuestionID uuid.UUID) (int64, error) {
	n, err := s.store.CountByQuestion(ctx, lectureQuestionID)
	if err != nil {
		return 0, errs.Operation("count responses", err)
	}
	return n, nil
}

// emitCount recomputes the count from storage and publishes it. The fresh
// aggregate keeps emitted counts monotonically non-decreasing even under
// concurrent submissions.
func (s *Service) emitCount(ctx context.Context, lectureQuestionID uuid.UUID) {
	n, err := s.store.CountByQuestion(ctx, lectureQuestionID)
	if err != nil {
		s.logger.Warn("response count recomputation failed",
			zap.String("lecture_question_id", lectureQuestionID.String()), zap.Error(err))
		return
	}
	s.hub.Publish(events.ResponseCountUpdated(lectureQuestionID, n))
}
