package lectures

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpulse/backend/internal/errs"
	"github.com/classpulse/backend/internal/models"
)

// ListFilter narrows and pages the lecture listing.
type ListFilter struct {
	FacultyID *uuid.UUID
	ChapterID *uuid.UUID
	Status    *models.LectureStatus
	Page      int
	PageSize  int
}

// Repository handles lecture and lecture-question persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a lecture repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateWithQuestions inserts the lecture and all its initial questions in
// one transaction. Either everything is persisted or nothing is.
func (r *Repository) CreateWithQuestions(ctx context.Context, l *models.Lecture, questionIDs []uuid.UUID) ([]models.LectureQuestion, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO lectures (id, faculty_id, chapter_id, title, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, q, l.FacultyID, l.ChapterID, l.Title, l.Status).
		Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert lecture: %w", err)
	}

	questions, err := insertQuestions(ctx, tx, l.ID, questionIDs)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return questions, nil
}

func insertQuestions(ctx context.Context, tx pgx.Tx, lectureID uuid.UUID, questionIDs []uuid.UUID) ([]models.LectureQuestion, error) {
	const q = `INSERT INTO lecture_questions (id, lecture_id, question_id, status)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, created_at, updated_at`
	questions := make([]models.LectureQuestion, 0, len(questionIDs))
	for _, qid := range questionIDs {
		lq := models.LectureQuestion{
			LectureID:  lectureID,
			QuestionID: qid,
			Status:     models.QuestionPending,
		}
		if err := tx.QueryRow(ctx, q, lectureID, qid, lq.Status).
			Scan(&lq.ID, &lq.CreatedAt, &lq.UpdatedAt); err != nil {
			return nil, fmt.Errorf("insert lecture question: %w", err)
		}
		questions = append(questions, lq)
	}
	return questions, nil
}

// GetByID returns a lecture by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Lecture, error) {
	const q = `SELECT id, faculty_id, chapter_id, title, status, created_at, updated_at
		FROM lectures WHERE id = $1`
	var l models.Lecture
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&l.ID, &l.FacultyID, &l.ChapterID, &l.Title, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// List returns a page of lectures matching the filter plus the total count
// of matches.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Lecture, int64, error) {
	cond := " WHERE TRUE"
	var args []interface{}
	if f.FacultyID != nil {
		args = append(args, *f.FacultyID)
		cond += fmt.Sprintf(" AND faculty_id = $%d", len(args))
	}
	if f.ChapterID != nil {
		args = append(args, *f.ChapterID)
		cond += fmt.Sprintf(" AND chapter_id = $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		cond += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM lectures"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	args = append(args, size, (page-1)*size)
	q := fmt.Sprintf(`SELECT id, faculty_id, chapter_id, title, status, created_at, updated_at
		FROM lectures%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, cond, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []models.Lecture
	for rows.Next() {
		var l models.Lecture
		if err := rows.Scan(&l.ID, &l.FacultyID, &l.ChapterID, &l.Title, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, l)
	}
	return list, total, rows.Err()
}

// UpdateStatus persists a new lecture status and returns the updated row.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.LectureStatus) (*models.Lecture, error) {
	const q = `UPDATE lectures SET status = $1, updated_at = NOW() WHERE id = $2
		RETURNING id, faculty_id, chapter_id, title, status, created_at, updated_at`
	var l models.Lecture
	err := r.pool.QueryRow(ctx, q, status, id).
		Scan(&l.ID, &l.FacultyID, &l.ChapterID, &l.Title, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// AddQuestions attaches question-bank questions to an existing lecture in
// one transaction.
func (r *Repository) AddQuestions(ctx context.Context, lectureID uuid.UUID, questionIDs []uuid.UUID) ([]models.LectureQuestion, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	questions, err := insertQuestions(ctx, tx, lectureID, questionIDs)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return questions, nil
}

// RemoveQuestions deletes the given lecture questions, scoped to the
// owning lecture so ids belonging to another lecture are left alone.
func (r *Repository) RemoveQuestions(ctx context.Context, lectureID uuid.UUID, ids []uuid.UUID) error {
	const q = `DELETE FROM lecture_questions WHERE lecture_id = $1 AND id = ANY($2)`
	_, err := r.pool.Exec(ctx, q, lectureID, ids)
	return err
}

// ListQuestions returns all questions attached to a lecture.
func (r *Repository) ListQuestions(ctx context.Context, lectureID uuid.UUID) ([]models.LectureQuestion, error) {
	const q = `SELECT id, lecture_id, question_id, status, created_at, updated_at
		FROM lecture_questions WHERE lecture_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q, lectureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.LectureQuestion
	for rows.Next() {
		var lq models.LectureQuestion
		if err := rows.Scan(&lq.ID, &lq.LectureID, &lq.QuestionID, &lq.Status, &lq.CreatedAt, &lq.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, lq)
	}
	return list, rows.Err()
}

// GetQuestionByID returns one lecture question by id.
func (r *Repository) GetQuestionByID(ctx context.Context, id uuid.UUID) (*models.LectureQuestion, error) {
	const q = `SELECT id, lecture_id, question_id, status, created_at, updated_at
		FROM lecture_questions WHERE id = $1`
	var lq models.LectureQuestion
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&lq.ID, &lq.LectureID, &lq.QuestionID, &lq.Status, &lq.CreatedAt, &lq.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lq, nil
}

// UpdateQuestionStatus persists a new question status and returns the
// updated row.
func (r *Repository) UpdateQuestionStatus(ctx context.Context, id uuid.UUID, status models.QuestionStatus) (*models.LectureQuestion, error) {
	const q = `UPDATE lecture_questions SET status = $1, updated_at = NOW() WHERE id = $2
		RETURNING id, lecture_id, question_id, status, created_at, updated_at`
	var lq models.LectureQuestion
	err := r.pool.QueryRow(ctx, q, status, id).
		Scan(&lq.ID, &lq.LectureID, &lq.QuestionID, &lq.Status, &lq.CreatedAt, &lq.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lq, nil
}
