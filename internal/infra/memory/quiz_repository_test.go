package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.QuizSet{
			"set-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	questions, err := repo.GetQuestions(context.Background(), "set-1")
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader once, got %d", loader.count())
	}

	if _, err := repo.GetQuestions(context.Background(), "set-1"); err != nil {
		t.Fatalf("get questions 2: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.count())
	}
}

func TestQuizRepositoryUnknownSet(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(nil), time.Minute)
	if _, err := repo.GetQuestions(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestQuizRepositoryRejectsUnusableSets(t *testing.T) {
	noCorrect := sampleQuiz()
	noCorrect.Questions[1].Options[0].Correct = false
	oneOption := sampleQuiz()
	oneOption.Questions[0].Options = oneOption.Questions[0].Options[:1]
	duplicate := sampleQuiz()
	duplicate.Questions[1].ID = "q1"

	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(map[string]domain.QuizSet{
		"empty":      {ID: "empty"},
		"no-correct": noCorrect,
		"one-option": oneOption,
		"duplicate":  duplicate,
	})}
	repo := NewQuizRepository(loader, time.Minute)
	for _, id := range []string{"empty", "no-correct", "one-option", "duplicate"} {
		if _, err := repo.GetQuestions(context.Background(), id); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", id, err)
		}
	}
	if _, err := repo.GetQuestions(context.Background(), "empty"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error on retry, got %v", err)
	}
	if loader.count() != 5 {
		t.Fatalf("rejected sets must not be cached, loader calls %d", loader.count())
	}
}

func TestQuizRepositoryReturnsCopies(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(map[string]domain.QuizSet{"set-1": sampleQuiz()}), time.Minute)

	questions, err := repo.GetQuestions(context.Background(), "set-1")
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	for i := range questions {
		for j := range questions[i].Options {
			questions[i].Options[j].Correct = false
		}
	}
	questions[0].ID = "mutated"

	quiz, err := repo.GetQuiz(context.Background(), "set-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.Questions[0].ID != "q1" || !quiz.Questions[0].Options[1].Correct {
		t.Fatalf("cached set changed through a returned slice: %+v", quiz.Questions[0])
	}
}

func TestQuizRepositoryReloadsAfterTTL(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(map[string]domain.QuizSet{"set-1": sampleQuiz()})}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetQuestions(context.Background(), "set-1"); err != nil {
		t.Fatalf("get questions: %v", err)
	}
	now = now.Add(59 * time.Second)
	if _, err := repo.GetQuestions(context.Background(), "set-1"); err != nil || loader.count() != 1 {
		t.Fatalf("expected cache hit inside ttl, calls=%d err=%v", loader.count(), err)
	}
	// past the largest jittered lifetime
	now = now.Add(7 * time.Second)
	if _, err := repo.GetQuestions(context.Background(), "set-1"); err != nil || loader.count() != 2 {
		t.Fatalf("expected reload after ttl, calls=%d err=%v", loader.count(), err)
	}
}

type countingLoader struct {
	QuizLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizSetID string) (domain.QuizSet, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.QuizLoader.LoadQuiz(ctx, quizSetID)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleQuiz() domain.QuizSet {
	return domain.QuizSet{
		ID:             "set-1",
		PassPercentage: 50,
		Questions: []domain.Question{
			{
				ID:   "q1",
				Text: "What is 2 + 2?",
				Options: []domain.Option{
					{ID: "o1", Text: "3"},
					{ID: "o2", Text: "4", Correct: true},
				},
			},
			{
				ID:   "q2",
				Text: "Which keyword starts a goroutine?",
				Options: []domain.Option{
					{ID: "o1", Text: "go", Correct: true},
					{ID: "o2", Text: "async"},
				},
			},
		},
	}
}
