package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
)

// AnswerStore holds the answers of one session view and checkpoints them.
// It is owned by the engine loop and not safe for concurrent use.
type AnswerStore struct {
	appID       string
	checkpoints *CheckpointStore
	questions   map[string]int // question ID -> option count
	order       int

	state   domain.SessionState
	answers domain.AnswerMap
	current int
}

func NewAnswerStore(appID string, questions []domain.Question, checkpoints *CheckpointStore) *AnswerStore {
	index := make(map[string]int, len(questions))
	for _, q := range questions {
		index[q.ID] = len(q.Options)
	}
	return &AnswerStore{
		appID:       appID,
		checkpoints: checkpoints,
		questions:   index,
		order:       len(questions),
		state:       domain.SessionActive,
		answers:     make(domain.AnswerMap),
	}
}

// SetState mirrors the session state; frozen states reject further answers.
func (s *AnswerStore) SetState(state domain.SessionState) {
	s.state = state
}

// RecordAnswer upserts an answer. It reports false without mutating anything
// once the session is submitting, submitted or expired.
func (s *AnswerStore) RecordAnswer(questionID string, optionIndex int) (bool, error) {
	if s.state.Frozen() {
		return false, nil
	}
	options, ok := s.questions[questionID]
	if !ok {
		return false, fmt.Errorf("%s: %w", questionID, domain.ErrQuestionNotFound)
	}
	if optionIndex < 0 || optionIndex >= options {
		return false, fmt.Errorf("%s option %d: %w", questionID, optionIndex, domain.ErrOptionNotFound)
	}
	s.answers[questionID] = optionIndex
	return true, nil
}

// Navigate moves the current question pointer.
func (s *AnswerStore) Navigate(index int) error {
	if index < 0 || index >= s.order {
		return fmt.Errorf("question index %d: %w", index, domain.ErrValidation)
	}
	s.current = index
	return nil
}

func (s *AnswerStore) Answers() domain.AnswerMap {
	return s.answers.Clone()
}

func (s *AnswerStore) Current() int {
	return s.current
}

func (s *AnswerStore) Len() int {
	return len(s.answers)
}

// Checkpoint persists answers while the session is active and non-empty.
// It reports whether a checkpoint was written.
func (s *AnswerStore) Checkpoint(ctx context.Context, now time.Time) (bool, error) {
	if s.state != domain.SessionActive || len(s.answers) == 0 {
		return false, nil
	}
	err := s.checkpoints.Save(ctx, s.appID, domain.SessionCheckpoint{
		Answers:              s.answers.Clone(),
		CurrentQuestionIndex: s.current,
		SavedAt:              now,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Recover restores a checkpoint younger than the checkpoint TTL and deletes it.
// Stale checkpoints are discarded. Answers for questions no longer in the set are dropped.
func (s *AnswerStore) Recover(ctx context.Context, now time.Time) (bool, error) {
	cp, ok, err := s.checkpoints.Load(ctx, s.appID)
	if err != nil || !ok {
		return false, err
	}
	if now.Sub(cp.SavedAt) >= s.checkpoints.TTL() {
		return false, s.checkpoints.Delete(ctx, s.appID)
	}
	if err := s.checkpoints.Delete(ctx, s.appID); err != nil {
		return false, err
	}
	restored := make(domain.AnswerMap, len(cp.Answers))
	for qid, idx := range cp.Answers {
		if options, ok := s.questions[qid]; ok && idx >= 0 && idx < options {
			restored[qid] = idx
		}
	}
	s.answers = restored
	if cp.CurrentQuestionIndex >= 0 && cp.CurrentQuestionIndex < s.order {
		s.current = cp.CurrentQuestionIndex
	}
	return true, nil
}

// Clear drops in-memory answers and the durable checkpoint.
func (s *AnswerStore) Clear(ctx context.Context) error {
	s.answers = make(domain.AnswerMap)
	s.current = 0
	return s.checkpoints.Clear(ctx, s.appID)
}
