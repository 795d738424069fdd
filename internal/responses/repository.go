package responses

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpulse/backend/internal/errs"
	"github.com/classpulse/backend/internal/models"
)

// Repository handles student-response persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a responses repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the response in one transaction. The unique index on
// (student_id, lecture_question_id) backstops the duplicate pre-check, so
// a race between two submissions from the same student still yields
// ErrDuplicateResponse for the loser.
func (r *Repository) Create(ctx context.Context, resp *models.StudentResponse) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO student_responses (id, student_id, lecture_question_id, answer_id)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, created_at`
	err = tx.QueryRow(ctx, q, resp.StudentID, resp.LectureQuestionID, resp.AnswerID).
		Scan(&resp.ID, &resp.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return errs.ErrDuplicateResponse
	}
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return tx.Commit(ctx)
}

// Exists reports whether the student already responded to the question.
func (r *Repository) Exists(ctx context.Context, studentID, lectureQuestionID uuid.UUID) (bool, error) {
	const q = `SELECT 1 FROM student_responses WHERE student_id = $1 AND lecture_question_id = $2`
	var one int
	err := r.pool.QueryRow(ctx, q, studentID, lectureQuestionID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountByQuestion returns the number of responses persisted for one
// lecture question. Always a fresh aggregate query, never a cached value.
func (r *Repository) CountByQuestion(ctx context.Context, lectureQuestionID uuid.UUID) (int64, error) {
	const q = `SELECT COUNT(*) FROM student_responses WHERE lecture_question_id = $1`
	var n int64
	err := r.pool.QueryRow(ctx, q, lectureQuestionID).Scan(&n)
	return n, err
}
