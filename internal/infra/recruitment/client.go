package recruitment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
)

// Client talks to the recruitment platform's candidate API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func New(cfg Config) *Client {
	h := &http.Client{Timeout: 15 * time.Second}
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    h,
	}
}

// ListApplications implements app.ApplicationSource.
func (c *Client) ListApplications(ctx context.Context) ([]domain.Application, error) {
	var apps []domain.Application
	if err := c.do(ctx, http.MethodGet, "/api/applications", nil, nil, &apps); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// GetQuestions implements app.QuestionSource.
func (c *Client) GetQuestions(ctx context.Context, quizSetID string) ([]domain.Question, error) {
	if quizSetID == "" {
		return nil, fmt.Errorf("quiz set id required: %w", domain.ErrValidation)
	}
	var questions []domain.Question
	path := "/api/quiz-sets/" + url.PathEscape(quizSetID) + "/questions"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &questions); err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	return questions, nil
}

// LoadQuiz lets the client back the question caches.
func (c *Client) LoadQuiz(ctx context.Context, quizSetID string) (domain.QuizSet, error) {
	questions, err := c.GetQuestions(ctx, quizSetID)
	if err != nil {
		return domain.QuizSet{}, err
	}
	return domain.QuizSet{ID: quizSetID, Questions: questions}, nil
}

// SubmitResults implements app.Scorer.
func (c *Client) SubmitResults(ctx context.Context, submission domain.Submission) (domain.ScoreResult, error) {
	if submission.ApplicationID == "" {
		return domain.ScoreResult{}, fmt.Errorf("application id required: %w", domain.ErrValidation)
	}
	answers := submission.Answers
	if answers == nil {
		answers = domain.AnswerMap{}
	}
	body := map[string]any{"answers": answers}
	headers := map[string]string{}
	if submission.IdempotencyKey != "" {
		headers["Idempotency-Key"] = submission.IdempotencyKey
	}
	var result domain.ScoreResult
	path := "/api/applications/" + url.PathEscape(submission.ApplicationID) + "/submit-test"
	if err := c.do(ctx, http.MethodPost, path, body, headers, &result); err != nil {
		return domain.ScoreResult{}, fmt.Errorf("submit results: %w", err)
	}
	if result.Score == 0 && result.TestScore != 0 {
		result.Score = result.TestScore
	}
	if !result.Passed && result.TestPassed {
		result.Passed = true
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	if c.token == "" {
		return fmt.Errorf("missing api token: %w", domain.ErrAuth)
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %v: %w", err, domain.ErrValidation)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %v: %w", err, domain.ErrValidation)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v: %w", method, path, err, domain.ErrNetwork)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %s: %w", method, path, res.Status, domain.ErrAuth)
	case res.StatusCode/100 != 2:
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%s %s: %s %s: %w", method, path, res.Status, strings.TrimSpace(string(msg)), domain.ErrNetwork)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %v: %w", path, err, domain.ErrNetwork)
	}
	return nil
}
