package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
	"github.com/google/uuid"
)

// DefaultCheckpointTTL bounds how old a checkpoint may be and still be restored.
const DefaultCheckpointTTL = time.Hour

// CheckpointStore persists session checkpoints and submission keys per application.
type CheckpointStore struct {
	kv  KeyValueStore
	ttl time.Duration
}

func NewCheckpointStore(kv KeyValueStore, ttl time.Duration) *CheckpointStore {
	if ttl <= 0 {
		ttl = DefaultCheckpointTTL
	}
	return &CheckpointStore{kv: kv, ttl: ttl}
}

// TTL is the maximum checkpoint age accepted on recovery.
func (s *CheckpointStore) TTL() time.Duration {
	return s.ttl
}

func (s *CheckpointStore) Save(ctx context.Context, appID string, cp domain.SessionCheckpoint) error {
	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	return s.kv.Set(ctx, checkpointKey(appID), raw, s.ttl)
}

// Load returns the stored checkpoint; ok is false on a miss.
func (s *CheckpointStore) Load(ctx context.Context, appID string) (domain.SessionCheckpoint, bool, error) {
	raw, err := s.kv.Get(ctx, checkpointKey(appID))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return domain.SessionCheckpoint{}, false, nil
	}
	if err != nil {
		return domain.SessionCheckpoint{}, false, err
	}
	var cp domain.SessionCheckpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return domain.SessionCheckpoint{}, false, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return cp, true, nil
}

func (s *CheckpointStore) Delete(ctx context.Context, appID string) error {
	return s.kv.Delete(ctx, checkpointKey(appID))
}

// SubmissionKey returns the idempotency key for appID, creating and persisting
// one on first use so that retries after a reload reuse it.
func (s *CheckpointStore) SubmissionKey(ctx context.Context, appID string) (string, error) {
	raw, err := s.kv.Get(ctx, submissionKey(appID))
	if err == nil && len(raw) > 0 {
		return string(raw), nil
	}
	if err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
		return "", err
	}
	key := uuid.NewString()
	if err := s.kv.Set(ctx, submissionKey(appID), []byte(key), s.ttl); err != nil {
		return "", err
	}
	return key, nil
}

// Clear removes the checkpoint and the submission key of appID.
func (s *CheckpointStore) Clear(ctx context.Context, appID string) error {
	if err := s.kv.Delete(ctx, checkpointKey(appID)); err != nil {
		return err
	}
	return s.kv.Delete(ctx, submissionKey(appID))
}

func checkpointKey(appID string) string {
	return "checkpoint:" + appID
}

func submissionKey(appID string) string {
	return "submission:" + appID
}

// CompletionStore caches completion records without expiry.
type CompletionStore struct {
	kv KeyValueStore
}

func NewCompletionStore(kv KeyValueStore) *CompletionStore {
	return &CompletionStore{kv: kv}
}

func (s *CompletionStore) Put(ctx context.Context, appID string, rec domain.CompletionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal completion: %w", err)
	}
	return s.kv.Set(ctx, completionKey(appID), raw, 0)
}

func (s *CompletionStore) Get(ctx context.Context, appID string) (domain.CompletionRecord, bool, error) {
	raw, err := s.kv.Get(ctx, completionKey(appID))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return domain.CompletionRecord{}, false, nil
	}
	if err != nil {
		return domain.CompletionRecord{}, false, err
	}
	var rec domain.CompletionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.CompletionRecord{}, false, fmt.Errorf("unmarshal completion: %w", err)
	}
	return rec, true, nil
}

func completionKey(appID string) string {
	return "completion:" + appID
}
