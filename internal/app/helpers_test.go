package app_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// stubScorer records every scoring call. When gate is set each call blocks
// until the gate is closed or receives a value.
type stubScorer struct {
	mu     sync.Mutex
	calls  []domain.Submission
	result domain.ScoreResult
	errs   []error
	gate   chan struct{}
}

func (s *stubScorer) SubmitResults(ctx context.Context, submission domain.Submission) (domain.ScoreResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, submission)
	var err error
	if len(s.errs) > 0 {
		err = s.errs[0]
		s.errs = s.errs[1:]
	}
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.ScoreResult{}, ctx.Err()
		}
	}
	if err != nil {
		return domain.ScoreResult{}, err
	}
	return s.result, nil
}

func (s *stubScorer) Calls() []domain.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Submission(nil), s.calls...)
}

type stubApplications struct {
	mu   sync.Mutex
	apps []domain.Application
}

func (s *stubApplications) ListApplications(context.Context) ([]domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Application, len(s.apps))
	for i, app := range s.apps {
		out[i] = app.Clone()
	}
	return out, nil
}

type stubQuestions struct {
	mu    sync.Mutex
	sets  map[string][]domain.Question
	calls int
	err   error
}

func (s *stubQuestions) GetQuestions(_ context.Context, quizSetID string) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	questions, ok := s.sets[quizSetID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", quizSetID, domain.ErrQuizNotFound)
	}
	return questions, nil
}

func (s *stubQuestions) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// makeQuestions builds n questions q1..qn with four options each.
func makeQuestions(n int) []domain.Question {
	questions := make([]domain.Question, n)
	for i := range questions {
		questions[i] = domain.Question{
			ID:   fmt.Sprintf("q%d", i+1),
			Text: fmt.Sprintf("Question %d", i+1),
			Options: []domain.Option{
				{ID: "a", Text: "A", Correct: true},
				{ID: "b", Text: "B"},
				{ID: "c", Text: "C"},
				{ID: "d", Text: "D"},
			},
		}
	}
	return questions
}

func scheduledApp(id, date, start string, minutes int) domain.Application {
	return domain.Application{
		ID:     id,
		Status: domain.StatusAccepted,
		ScheduledAssessment: &domain.ScheduledAssessment{
			QuizSetID:       "set-1",
			Title:           "Backend internship assessment",
			Date:            date,
			StartTime:       start,
			DurationMinutes: minutes,
			PassPercentage:  60,
		},
	}
}

func at(hour, min, sec int) time.Time {
	return time.Date(2025, 3, 10, hour, min, sec, 0, time.UTC)
}
