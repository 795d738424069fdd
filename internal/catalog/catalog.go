// Package catalog holds thin clients for the chapter-catalog and
// question-bank collaborators. Both are best-effort boolean oracles:
// transport failures and non-2xx answers count as "not valid" so lecture
// creation always gets a crisp yes/no.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChapterOracle answers whether a chapter exists in the catalog.
type ChapterOracle interface {
	ChapterExists(ctx context.Context, chapterID uuid.UUID) bool
}

// QuestionBankOracle validates question-bank question and answer ids.
type QuestionBankOracle interface {
	// ValidQuestions returns the subset of ids known to the question bank.
	ValidQuestions(ctx context.Context, ids []uuid.UUID) []uuid.UUID
	AnswerExists(ctx context.Context, answerID uuid.UUID) bool
}

// Client calls both collaborators over HTTP.
type Client struct {
	http            *http.Client
	chapterBaseURL  string
	questionBaseURL string
	logger          *zap.Logger
}

// NewClient creates a catalog client with a per-call timeout.
func NewClient(chapterBaseURL, questionBaseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		http:            &http.Client{Timeout: timeout},
		chapterBaseURL:  chapterBaseURL,
		questionBaseURL: questionBaseURL,
		logger:          logger,
	}
}

// ChapterExists reports whether the chapter catalog knows chapterID.
func (c *Client) ChapterExists(ctx context.Context, chapterID uuid.UUID) bool {
	url := fmt.Sprintf("%s/chapters/%s", c.chapterBaseURL, chapterID)
	return c.headOK(ctx, url, "chapter")
}

// AnswerExists reports whether the question bank knows answerID.
func (c *Client) AnswerExists(ctx context.Context, answerID uuid.UUID) bool {
	url := fmt.Sprintf("%s/answers/%s", c.questionBaseURL, answerID)
	return c.headOK(ctx, url, "answer")
}

// ValidQuestions asks the question bank which of ids exist. Any transport
// or decode failure yields nil, which callers treat as total validation
// failure.
func (c *Client) ValidQuestions(ctx context.Context, ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	body, err := json.Marshal(map[string][]uuid.UUID{"ids": ids})
	if err != nil {
		return nil
	}
	url := c.questionBaseURL + "/questions/validate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("question bank unreachable", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("question bank validation rejected", zap.Int("status", resp.StatusCode))
		return nil
	}

	var out struct {
		ValidIDs []uuid.UUID `json:"valid_ids"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.logger.Warn("question bank response malformed", zap.Error(err))
		return nil
	}
	return out.ValidIDs
}

func (c *Client) headOK(ctx context.Context, url, what string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("oracle unreachable", zap.String("oracle", what), zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
