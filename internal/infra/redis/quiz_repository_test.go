package redis

import (
	"context"
	"testing"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
	"github.com/Lambodaran/AgileProject-sub001/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.QuizSet{
			"set-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(client, loader, time.Minute)

	questions, err := repo.GetQuestions(context.Background(), "set-1")
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quizset:set-1") {
		t.Fatalf("expected quiz set cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := repo.GetQuestions(context.Background(), "set-1")
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached) != len(questions) || cached[0].Options[1].Text != "4" {
		t.Fatalf("expected cached questions to round-trip, got %+v", cached)
	}
}

type countingLoader struct {
	memory.QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizSetID string) (domain.QuizSet, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizSetID)
}

func sampleQuiz() domain.QuizSet {
	return domain.QuizSet{
		ID: "set-1",
		Questions: []domain.Question{
			{
				ID:   "q1",
				Text: "What is 2 + 2?",
				Options: []domain.Option{
					{ID: "o1", Text: "3"},
					{ID: "o2", Text: "4", Correct: true},
				},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
