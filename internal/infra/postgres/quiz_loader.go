package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizLoader loads quiz set JSONB from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizSetID string) (domain.QuizSet, error) {
	var (
		raw            []byte
		passPercentage int
	)
	err := l.pool.QueryRow(ctx, `SELECT data, pass_percentage FROM quiz_sets WHERE id=$1`, quizSetID).Scan(&raw, &passPercentage)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizSet{}, fmt.Errorf("%s: %w", quizSetID, domain.ErrQuizNotFound)
	}
	if err != nil {
		return domain.QuizSet{}, fmt.Errorf("load quiz set: %w", err)
	}
	var quiz domain.QuizSet
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.QuizSet{}, fmt.Errorf("unmarshal quiz set: %w", err)
	}
	quiz.ID = quizSetID
	if quiz.PassPercentage == 0 {
		quiz.PassPercentage = passPercentage
	}
	return quiz, nil
}

// SaveQuiz upserts a quiz set. Used by seeding and integration tests.
func (l *QuizLoader) SaveQuiz(ctx context.Context, quiz domain.QuizSet) error {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz set: %w", err)
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO quiz_sets (id, pass_percentage, data) VALUES ($1, $2, $3::jsonb)
ON CONFLICT (id) DO UPDATE SET pass_percentage=EXCLUDED.pass_percentage, data=EXCLUDED.data, updated_at=NOW()`,
		quiz.ID, quiz.PassPercentage, string(raw))
	if err != nil {
		return fmt.Errorf("save quiz set: %w", err)
	}
	return nil
}
