package app

import (
	"context"
	"math"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
	"github.com/Lambodaran/AgileProject-sub001/internal/metrics"
	"go.uber.org/zap"
)

// StatsSource names the step of the fallback chain that produced the statistics.
type StatsSource string

const (
	SourceApplication StatsSource = "application"
	SourceCache       StatsSource = "cache"
	SourceEstimate    StatsSource = "estimate"
	SourcePlaceholder StatsSource = "placeholder"
)

// answeredInflation scales an estimated correct count into an answered count.
const answeredInflation = 1.2

// Reconciler derives presentable answered/total statistics for a completed
// application when authoritative data is incomplete.
type Reconciler struct {
	completions *CompletionStore
	questions   QuestionSource
	now         func() time.Time
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

func NewReconciler(completions *CompletionStore, questions QuestionSource, logger *zap.Logger, m *metrics.Metrics) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		completions: completions,
		questions:   questions,
		now:         time.Now,
		logger:      logger,
		metrics:     m,
	}
}

// Reconcile walks the fallback chain: the in-memory record, the completion cache,
// an estimate from the re-fetched question set, and finally a 1/1 placeholder.
// Whatever it derives is written back to the cache. TotalQuestions is never 0.
func (r *Reconciler) Reconcile(ctx context.Context, app domain.Application) (domain.CompletionStats, StatsSource) {
	stats, source := r.derive(ctx, app)
	r.metrics.Reconcile(string(source))
	return stats, source
}

func (r *Reconciler) derive(ctx context.Context, app domain.Application) (domain.CompletionStats, StatsSource) {
	if app.TotalQuestions != nil && app.AnsweredQuestions != nil && *app.TotalQuestions > 0 {
		stats := domain.CompletionStats{
			TotalQuestions:    *app.TotalQuestions,
			AnsweredQuestions: clamp(*app.AnsweredQuestions, 0, *app.TotalQuestions),
		}
		if _, ok, err := r.completions.Get(ctx, app.ID); err == nil && !ok {
			r.store(ctx, app, stats)
		}
		return stats, SourceApplication
	}

	rec, ok, err := r.completions.Get(ctx, app.ID)
	if err != nil {
		r.logger.Warn("read completion cache", zap.String("application_id", app.ID), zap.Error(err))
	}
	if ok && rec.TotalQuestions > 0 {
		return domain.CompletionStats{
			TotalQuestions:    rec.TotalQuestions,
			AnsweredQuestions: clamp(rec.AnsweredQuestions, 0, rec.TotalQuestions),
		}, SourceCache
	}

	if stats, ok := r.estimate(ctx, app); ok {
		r.store(ctx, app, stats)
		return stats, SourceEstimate
	}

	stats := domain.CompletionStats{TotalQuestions: 1, AnsweredQuestions: 1}
	r.store(ctx, app, stats)
	return stats, SourcePlaceholder
}

func (r *Reconciler) estimate(ctx context.Context, app domain.Application) (domain.CompletionStats, bool) {
	if app.ScheduledAssessment == nil || app.ScheduledAssessment.QuizSetID == "" || r.questions == nil {
		return domain.CompletionStats{}, false
	}
	questions, err := r.questions.GetQuestions(ctx, app.ScheduledAssessment.QuizSetID)
	if err != nil {
		r.logger.Warn("refetch questions for stats",
			zap.String("application_id", app.ID),
			zap.String("quiz_set_id", app.ScheduledAssessment.QuizSetID),
			zap.Error(err))
		return domain.CompletionStats{}, false
	}
	if len(questions) == 0 {
		return domain.CompletionStats{}, false
	}
	score := 0.0
	if app.Score != nil {
		score = *app.Score
	}
	return EstimateStats(score, len(questions)), true
}

// EstimateStats approximates answered questions from a percentage score.
func EstimateStats(score float64, total int) domain.CompletionStats {
	if total < 1 {
		return domain.CompletionStats{TotalQuestions: 1, AnsweredQuestions: 1}
	}
	correct := int(math.Round(score / 100 * float64(total)))
	inflated := int(math.Round(float64(correct) * answeredInflation))
	answered := clamp(max(correct, inflated), 0, total)
	return domain.CompletionStats{TotalQuestions: total, AnsweredQuestions: answered}
}

func (r *Reconciler) store(ctx context.Context, app domain.Application, stats domain.CompletionStats) {
	rec := domain.CompletionRecord{
		TotalQuestions:    stats.TotalQuestions,
		AnsweredQuestions: stats.AnsweredQuestions,
		CompletedAt:       r.now(),
	}
	if app.Score != nil {
		rec.Score = *app.Score
	}
	if app.Passed != nil {
		rec.Passed = *app.Passed
	}
	if err := r.completions.Put(ctx, app.ID, rec); err != nil {
		r.logger.Warn("cache reconciled stats", zap.String("application_id", app.ID), zap.Error(err))
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
