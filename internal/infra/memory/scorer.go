package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
)

// Scorer grades submissions against locally stored quiz sets. It stands in for
// the recruitment scoring endpoint in offline mode and deduplicates by
// idempotency key like the real service.
type Scorer struct {
	apps    *ApplicationDirectory
	quizzes *QuizRepository

	mu   sync.Mutex
	seen map[string]domain.ScoreResult
}

func NewScorer(apps *ApplicationDirectory, quizzes *QuizRepository) *Scorer {
	return &Scorer{
		apps:    apps,
		quizzes: quizzes,
		seen:    make(map[string]domain.ScoreResult),
	}
}

func (s *Scorer) SubmitResults(ctx context.Context, submission domain.Submission) (domain.ScoreResult, error) {
	if submission.ApplicationID == "" {
		return domain.ScoreResult{}, fmt.Errorf("application id required: %w", domain.ErrValidation)
	}
	if submission.IdempotencyKey != "" {
		s.mu.Lock()
		if result, ok := s.seen[submission.IdempotencyKey]; ok {
			s.mu.Unlock()
			return result, nil
		}
		s.mu.Unlock()
	}

	app, ok := s.apps.Lookup(submission.ApplicationID)
	if !ok || app.ScheduledAssessment == nil {
		return domain.ScoreResult{}, fmt.Errorf("%s: %w", submission.ApplicationID, domain.ErrApplicationNotFound)
	}
	quiz, err := s.quizzes.GetQuiz(ctx, app.ScheduledAssessment.QuizSetID)
	if err != nil {
		return domain.ScoreResult{}, err
	}

	score := Grade(quiz, submission.Answers)
	passMark := app.ScheduledAssessment.PassPercentage
	if passMark == 0 {
		passMark = quiz.PassPercentage
	}
	passed := score >= float64(passMark)
	result := domain.ScoreResult{
		Score:         score,
		Passed:        passed,
		TestCompleted: true,
		TestScore:     score,
		TestPassed:    passed,
	}

	s.apps.complete(submission.ApplicationID, result, len(submission.Answers))
	if submission.IdempotencyKey != "" {
		s.mu.Lock()
		s.seen[submission.IdempotencyKey] = result
		s.mu.Unlock()
	}
	return result, nil
}

// Grade returns the percentage of questions answered with the correct option.
// Answers for unknown questions or out-of-range options count as wrong.
func Grade(quiz domain.QuizSet, answers domain.AnswerMap) float64 {
	if len(quiz.Questions) == 0 {
		return 0
	}
	correct := 0
	for _, q := range quiz.Questions {
		idx, ok := answers[q.ID]
		if !ok || idx < 0 || idx >= len(q.Options) {
			continue
		}
		if q.Options[idx].Correct {
			correct++
		}
	}
	return math.Round(float64(correct)/float64(len(quiz.Questions))*10000) / 100
}
