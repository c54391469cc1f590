package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
	"github.com/Lambodaran/AgileProject-sub001/internal/metrics"
	"go.uber.org/zap"
)

type submissionPhase int

const (
	phaseIdle submissionPhase = iota
	phaseSubmitting
	phaseSubmitted
	phaseFailed
)

// SubmitRequest captures everything measured at the moment a submission starts.
type SubmitRequest struct {
	ApplicationID  string
	Answers        domain.AnswerMap
	TotalQuestions int
	Trigger        domain.Trigger
}

// SubmissionOutcome is the result of an accepted scoring call.
type SubmissionOutcome struct {
	ApplicationID string
	Trigger       domain.Trigger
	Result        domain.ScoreResult
	Record        domain.CompletionRecord
}

// SubmissionController guarantees at most one scoring call per application.
// The guard lives in memory only; the persisted submission key lets the scoring
// service deduplicate across reloads.
type SubmissionController struct {
	scorer      Scorer
	book        *ApplicationBook
	completions *CompletionStore
	checkpoints *CheckpointStore
	now         func() time.Time
	logger      *zap.Logger
	metrics     *metrics.Metrics

	mu     sync.Mutex
	phases map[string]submissionPhase
}

func NewSubmissionController(scorer Scorer, book *ApplicationBook, completions *CompletionStore, checkpoints *CheckpointStore, logger *zap.Logger, m *metrics.Metrics) *SubmissionController {
	return NewSubmissionControllerWithClock(scorer, book, completions, checkpoints, logger, m, time.Now)
}

// NewSubmissionControllerWithClock allows deterministic completion timestamps in tests.
func NewSubmissionControllerWithClock(scorer Scorer, book *ApplicationBook, completions *CompletionStore, checkpoints *CheckpointStore, logger *zap.Logger, m *metrics.Metrics, now func() time.Time) *SubmissionController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionController{
		scorer:      scorer,
		book:        book,
		completions: completions,
		checkpoints: checkpoints,
		now:         now,
		logger:      logger,
		metrics:     m,
		phases:      make(map[string]submissionPhase),
	}
}

// Begin flips appID from idle to submitting. Whoever observes idle first wins;
// every other caller gets false and must not contact the scoring service.
func (c *SubmissionController) Begin(appID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phases[appID] != phaseIdle {
		return false
	}
	c.phases[appID] = phaseSubmitting
	return true
}

// InFlight reports whether a submission for appID is running.
func (c *SubmissionController) InFlight(appID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phases[appID] == phaseSubmitting
}

// Submit is Begin followed by Execute.
func (c *SubmissionController) Submit(ctx context.Context, req SubmitRequest) (SubmissionOutcome, error) {
	if !c.Begin(req.ApplicationID) {
		return SubmissionOutcome{}, fmt.Errorf("%s: %w", req.ApplicationID, domain.ErrSubmissionInFlight)
	}
	return c.Execute(ctx, req)
}

// Execute performs the scoring call for a submission that already won Begin.
// On success the dashboard record, the completion cache and the checkpoint are
// updated. A failed manual submission returns to idle so it can be retried; a
// failed expiry submission stays failed.
func (c *SubmissionController) Execute(ctx context.Context, req SubmitRequest) (SubmissionOutcome, error) {
	answers := req.Answers.Clone()
	answered := len(answers)
	total := req.TotalQuestions

	key, err := c.checkpoints.SubmissionKey(ctx, req.ApplicationID)
	if err != nil {
		c.logger.Warn("submission key unavailable", zap.String("application_id", req.ApplicationID), zap.Error(err))
	}

	result, err := c.scorer.SubmitResults(ctx, domain.Submission{
		ApplicationID:  req.ApplicationID,
		Answers:        answers,
		IdempotencyKey: key,
	})
	if err != nil {
		c.fail(req)
		c.metrics.Submission(string(req.Trigger), "failed")
		c.logger.Warn("submission failed",
			zap.String("application_id", req.ApplicationID),
			zap.String("trigger", string(req.Trigger)),
			zap.Error(err))
		return SubmissionOutcome{}, err
	}

	if total < answered {
		total = answered
	}
	rec := domain.CompletionRecord{
		Score:             result.Score,
		Passed:            result.Passed,
		TotalQuestions:    total,
		AnsweredQuestions: answered,
		CompletedAt:       c.now(),
	}
	if rec.TotalQuestions < 1 {
		rec.TotalQuestions = 1
	}

	c.book.MarkCompleted(req.ApplicationID, rec)
	if err := c.completions.Put(ctx, req.ApplicationID, rec); err != nil {
		c.logger.Warn("cache completion", zap.String("application_id", req.ApplicationID), zap.Error(err))
	}
	if err := c.checkpoints.Clear(ctx, req.ApplicationID); err != nil {
		c.logger.Warn("clear checkpoint", zap.String("application_id", req.ApplicationID), zap.Error(err))
	}

	c.mu.Lock()
	c.phases[req.ApplicationID] = phaseSubmitted
	c.mu.Unlock()

	c.metrics.Submission(string(req.Trigger), "accepted")
	c.logger.Info("submission accepted",
		zap.String("application_id", req.ApplicationID),
		zap.String("trigger", string(req.Trigger)),
		zap.Float64("score", result.Score),
		zap.Bool("passed", result.Passed),
		zap.Int("answered", rec.AnsweredQuestions),
		zap.Int("total", rec.TotalQuestions))

	return SubmissionOutcome{
		ApplicationID: req.ApplicationID,
		Trigger:       req.Trigger,
		Result:        result,
		Record:        rec,
	}, nil
}

func (c *SubmissionController) fail(req SubmitRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if req.Trigger == domain.TriggerManual {
		c.phases[req.ApplicationID] = phaseIdle
		return
	}
	c.phases[req.ApplicationID] = phaseFailed
}
