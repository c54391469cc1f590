package app

import (
	"context"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
)

// KeyValueStore is the durable local persistence port (memory, Redis, SQLite).
// Get returns domain.ErrKeyNotFound on a miss; a zero ttl means no expiry.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ApplicationSource lists the candidate's applications.
type ApplicationSource interface {
	ListApplications(ctx context.Context) ([]domain.Application, error)
}

// QuestionSource loads the ordered question list of a quiz set.
type QuestionSource interface {
	GetQuestions(ctx context.Context, quizSetID string) ([]domain.Question, error)
}

// Scorer submits answers to the scoring service.
type Scorer interface {
	SubmitResults(ctx context.Context, submission domain.Submission) (domain.ScoreResult, error)
}
