package memory

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz sets from a backing store (Postgres, recruitment API, static data).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizSetID string) (domain.QuizSet, error)
}

// QuizRepository keeps validated quiz sets in process memory. Concurrent misses
// for one set share a single load, and sets that cannot be taken are never cached.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	loads  singleflight.Group

	mu   sync.Mutex
	sets map[string]quizEntry
}

type quizEntry struct {
	set     domain.QuizSet
	staleAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		sets:   make(map[string]quizEntry),
	}
}

// GetQuestions implements app.QuestionSource. The slice is a copy; callers may
// strip or reorder it freely.
func (r *QuizRepository) GetQuestions(ctx context.Context, quizSetID string) ([]domain.Question, error) {
	set, err := r.GetQuiz(ctx, quizSetID)
	if err != nil {
		return nil, err
	}
	return set.Questions, nil
}

// GetQuiz returns a copy of the quiz set including its answer key.
func (r *QuizRepository) GetQuiz(ctx context.Context, quizSetID string) (domain.QuizSet, error) {
	if set, ok := r.cached(quizSetID); ok {
		return copyQuizSet(set), nil
	}
	v, err, _ := r.loads.Do(quizSetID, func() (any, error) {
		if set, ok := r.cached(quizSetID); ok {
			return set, nil
		}
		set, err := r.loader.LoadQuiz(ctx, quizSetID)
		if err != nil {
			return domain.QuizSet{}, err
		}
		if err := validateQuizSet(quizSetID, set); err != nil {
			return domain.QuizSet{}, err
		}
		set = copyQuizSet(set)
		r.mu.Lock()
		r.sets[quizSetID] = quizEntry{set: set, staleAt: r.clock().Add(r.lifetime())}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.QuizSet{}, err
	}
	return copyQuizSet(v.(domain.QuizSet)), nil
}

func (r *QuizRepository) cached(quizSetID string) (domain.QuizSet, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sets[quizSetID]
	if !ok || !r.clock().Before(entry.staleAt) {
		return domain.QuizSet{}, false
	}
	return entry.set, true
}

// lifetime spreads expiry over ttl plus up to 10% so sets loaded together do
// not all reload on the same tick.
func (r *QuizRepository) lifetime() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	return r.ttl + rand.N(r.ttl/10+1)
}

// validateQuizSet rejects sets a session could not be run against: no
// questions, duplicate question ids, fewer than two options or no correct option.
func validateQuizSet(quizSetID string, set domain.QuizSet) error {
	if len(set.Questions) == 0 {
		return fmt.Errorf("quiz set %s has no questions: %w", quizSetID, domain.ErrValidation)
	}
	seen := make(map[string]struct{}, len(set.Questions))
	for i, q := range set.Questions {
		if q.ID == "" {
			return fmt.Errorf("quiz set %s question %d has no id: %w", quizSetID, i, domain.ErrValidation)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("quiz set %s repeats question %s: %w", quizSetID, q.ID, domain.ErrValidation)
		}
		seen[q.ID] = struct{}{}
		if len(q.Options) < 2 {
			return fmt.Errorf("quiz set %s question %s needs two options: %w", quizSetID, q.ID, domain.ErrValidation)
		}
		correct := false
		for _, o := range q.Options {
			correct = correct || o.Correct
		}
		if !correct {
			return fmt.Errorf("quiz set %s question %s has no correct option: %w", quizSetID, q.ID, domain.ErrValidation)
		}
	}
	return nil
}

func copyQuizSet(set domain.QuizSet) domain.QuizSet {
	out := set
	out.Questions = make([]domain.Question, len(set.Questions))
	for i, q := range set.Questions {
		q.Options = append([]domain.Option(nil), q.Options...)
		out.Questions[i] = q
	}
	return out
}

// StaticQuizLoader serves a fixed set of quizzes, for demos and tests.
type StaticQuizLoader struct {
	quizzes map[string]domain.QuizSet
}

func NewStaticQuizLoader(quizzes map[string]domain.QuizSet) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizSetID string) (domain.QuizSet, error) {
	quiz, ok := l.quizzes[quizSetID]
	if !ok {
		return domain.QuizSet{}, fmt.Errorf("%s: %w", quizSetID, domain.ErrQuizNotFound)
	}
	return quiz, nil
}
