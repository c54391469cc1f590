package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz sets from a backing store (Postgres, recruitment API).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizSetID string) (domain.QuizSet, error)
}

// QuizRepository caches quiz sets in Redis and falls back to a loader on cache miss.
// Quiz sets are stored as JSON: SET quizset:{quizSetID} {json} EX ttl
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetQuestions implements app.QuestionSource.
func (r *QuizRepository) GetQuestions(ctx context.Context, quizSetID string) ([]domain.Question, error) {
	quiz, err := r.GetQuiz(ctx, quizSetID)
	if err != nil {
		return nil, err
	}
	return quiz.Questions, nil
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizSetID string) (domain.QuizSet, error) {
	if quiz, ok := r.cached(ctx, quizSetID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizSetID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.cached(ctx, quizSetID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizSetID)
		if err != nil {
			return domain.QuizSet{}, err
		}

		if raw, err := json.Marshal(quiz); err == nil {
			_ = r.client.Set(ctx, r.key(quizSetID), raw, r.ttlWithJitter()).Err()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.QuizSet{}, err
	}
	return result.(domain.QuizSet), nil
}

func (r *QuizRepository) cached(ctx context.Context, quizSetID string) (domain.QuizSet, bool) {
	raw, err := r.client.Get(ctx, r.key(quizSetID)).Bytes()
	if err != nil || len(raw) == 0 {
		return domain.QuizSet{}, false
	}
	var quiz domain.QuizSet
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.QuizSet{}, false
	}
	return quiz, true
}

func (r *QuizRepository) key(quizSetID string) string {
	return "quizset:" + quizSetID
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
