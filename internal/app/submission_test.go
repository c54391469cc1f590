package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/app"
	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
	"github.com/Lambodaran/AgileProject-sub001/internal/infra/memory"
	"github.com/Lambodaran/AgileProject-sub001/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"
)

type submissionFixture struct {
	controller  *app.SubmissionController
	scorer      *stubScorer
	book        *app.ApplicationBook
	completions *app.CompletionStore
	checkpoints *app.CheckpointStore
	metrics     *metrics.Metrics
}

func newSubmissionFixture(t *testing.T, scorer *stubScorer) submissionFixture {
	t.Helper()
	kv := memory.NewKVStore()
	book := app.NewApplicationBook()
	book.Replace([]domain.Application{scheduledApp("app-1", "2025-03-10", "14:00", 30)})
	completions := app.NewCompletionStore(kv)
	checkpoints := app.NewCheckpointStore(kv, time.Hour)
	m := metrics.New(prometheus.NewRegistry())
	clock := newFakeClock(at(14, 20, 0))
	return submissionFixture{
		controller:  app.NewSubmissionControllerWithClock(scorer, book, completions, checkpoints, zaptest.NewLogger(t), m, clock.Now),
		scorer:      scorer,
		book:        book,
		completions: completions,
		checkpoints: checkpoints,
		metrics:     m,
	}
}

func TestSubmitRecordsCompletion(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, &stubScorer{result: domain.ScoreResult{Score: 75, Passed: true, TestCompleted: true}})

	if err := f.checkpoints.Save(ctx, "app-1", domain.SessionCheckpoint{Answers: domain.AnswerMap{"q1": 0}, SavedAt: at(14, 19, 0)}); err != nil {
		t.Fatalf("save checkpoint: %v", err)
	}
	answers := domain.AnswerMap{}
	for _, q := range makeQuestions(8) {
		answers[q.ID] = 0
	}

	outcome, err := f.controller.Submit(ctx, app.SubmitRequest{
		ApplicationID:  "app-1",
		Answers:        answers,
		TotalQuestions: 10,
		Trigger:        domain.TriggerManual,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Record.TotalQuestions != 10 || outcome.Record.AnsweredQuestions != 8 || !outcome.Record.CompletedAt.Equal(at(14, 20, 0)) {
		t.Fatalf("unexpected record %+v", outcome.Record)
	}

	stored, ok, err := f.completions.Get(ctx, "app-1")
	if err != nil || !ok || stored.Score != 75 || !stored.Passed {
		t.Fatalf("expected cached completion, got %+v ok=%v err=%v", stored, ok, err)
	}
	if _, ok, _ := f.checkpoints.Load(ctx, "app-1"); ok {
		t.Fatalf("checkpoint must be cleared after submission")
	}
	rec, _ := f.book.Get("app-1")
	if !rec.Completed || *rec.Score != 75 || !*rec.Passed {
		t.Fatalf("dashboard record not completed: %+v", rec)
	}
	if _, err := f.controller.Submit(ctx, app.SubmitRequest{ApplicationID: "app-1", Trigger: domain.TriggerExpiry}); !errors.Is(err, domain.ErrSubmissionInFlight) {
		t.Fatalf("second submission must be rejected, got %v", err)
	}
	if got := len(f.scorer.Calls()); got != 1 {
		t.Fatalf("expected one scoring call, got %d", got)
	}
	if got := testutil.ToFloat64(f.metrics.Submissions.WithLabelValues("manual", "accepted")); got != 1 {
		t.Fatalf("expected accepted manual submission metric, got %v", got)
	}
}

func TestConcurrentSubmitCallsScorerOnce(t *testing.T) {
	gate := make(chan struct{})
	f := newSubmissionFixture(t, &stubScorer{result: domain.ScoreResult{Score: 50}, gate: gate})

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, trigger := range []domain.Trigger{domain.TriggerManual, domain.TriggerExpiry} {
		wg.Add(1)
		go func(trigger domain.Trigger) {
			defer wg.Done()
			_, err := f.controller.Submit(context.Background(), app.SubmitRequest{
				ApplicationID: "app-1",
				Answers:       domain.AnswerMap{"q1": 0},
				Trigger:       trigger,
			})
			errs <- err
		}(trigger)
	}

	// the loser returns immediately while the winner waits on the gate
	first := <-errs
	if !errors.Is(first, domain.ErrSubmissionInFlight) {
		t.Fatalf("expected the losing trigger to be rejected, got %v", first)
	}
	if !f.controller.InFlight("app-1") {
		t.Fatalf("expected submission in flight")
	}
	close(gate)
	wg.Wait()
	if second := <-errs; second != nil {
		t.Fatalf("winning submission failed: %v", second)
	}
	if got := len(f.scorer.Calls()); got != 1 {
		t.Fatalf("expected exactly one scoring call, got %d", got)
	}
}

func TestManualFailureAllowsRetryWithSameKey(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, &stubScorer{
		result: domain.ScoreResult{Score: 80, Passed: true},
		errs:   []error{domain.ErrNetwork},
	})
	req := app.SubmitRequest{ApplicationID: "app-1", Answers: domain.AnswerMap{"q1": 1}, TotalQuestions: 2, Trigger: domain.TriggerManual}

	if _, err := f.controller.Submit(ctx, req); !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if f.controller.InFlight("app-1") {
		t.Fatalf("failed manual submission must return to idle")
	}
	if _, err := f.controller.Submit(ctx, req); err != nil {
		t.Fatalf("retry: %v", err)
	}

	calls := f.scorer.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected two scoring calls, got %d", len(calls))
	}
	if calls[0].IdempotencyKey == "" || calls[0].IdempotencyKey != calls[1].IdempotencyKey {
		t.Fatalf("retry must reuse the idempotency key: %q vs %q", calls[0].IdempotencyKey, calls[1].IdempotencyKey)
	}
}

func TestExpiryFailureIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, &stubScorer{errs: []error{domain.ErrNetwork}})

	if _, err := f.controller.Submit(ctx, app.SubmitRequest{ApplicationID: "app-1", Trigger: domain.TriggerExpiry}); err == nil {
		t.Fatalf("expected failure")
	}
	if f.controller.Begin("app-1") {
		t.Fatalf("failed expiry submission must not be retried")
	}
	if got := testutil.ToFloat64(f.metrics.Submissions.WithLabelValues("expiry", "failed")); got != 1 {
		t.Fatalf("expected failed expiry metric, got %v", got)
	}
}

func TestSubmitEmptyAnswersRecordsAtLeastOneQuestion(t *testing.T) {
	f := newSubmissionFixture(t, &stubScorer{result: domain.ScoreResult{Score: 0}})
	outcome, err := f.controller.Submit(context.Background(), app.SubmitRequest{ApplicationID: "app-1", Trigger: domain.TriggerExpiry})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Record.TotalQuestions != 1 || outcome.Record.AnsweredQuestions != 0 {
		t.Fatalf("unexpected record %+v", outcome.Record)
	}
}
