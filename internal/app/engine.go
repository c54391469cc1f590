package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
	"github.com/Lambodaran/AgileProject-sub001/internal/metrics"
	"go.uber.org/zap"
)

// EngineConfig tunes the session engine.
type EngineConfig struct {
	Location           *time.Location
	TickInterval       time.Duration
	RefreshInterval    time.Duration
	CheckpointInterval time.Duration
	WarnThreshold      time.Duration
	UrgentThreshold    time.Duration
	SubmitTimeout      time.Duration
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.CheckpointInterval <= 0 {
		c.CheckpointInterval = 30 * time.Second
	}
	if c.WarnThreshold <= 0 {
		c.WarnThreshold = 60 * time.Second
	}
	if c.UrgentThreshold <= 0 {
		c.UrgentThreshold = 2 * time.Minute
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 30 * time.Second
	}
	return c
}

// Deps are the collaborators of the engine.
type Deps struct {
	Applications  ApplicationSource
	Questions     QuestionSource
	Scorer        Scorer
	Store         KeyValueStore
	CheckpointTTL time.Duration
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
	Now           func() time.Time
}

// Engine hosts the assessment-session core. Every state change happens on the
// goroutine running Run: timer ticks, candidate commands and network
// completions are queued as events and applied one at a time.
type Engine struct {
	cfg          EngineConfig
	now          func() time.Time
	applications ApplicationSource
	questions    QuestionSource
	book         *ApplicationBook
	checkpoints  *CheckpointStore
	completions  *CompletionStore
	submissions  *SubmissionController
	reconciler   *Reconciler
	coordinator  *Coordinator
	logger       *zap.Logger
	metrics      *metrics.Metrics

	events  chan event
	done    chan struct{}
	runOnce sync.Once

	// owned by the loop
	runCtx        context.Context
	session       *sessionView
	pendingExpiry map[string]struct{}

	subMu       sync.Mutex
	subscribers map[chan Notification]struct{}
	closed      bool
}

func NewEngine(cfg EngineConfig, deps Deps) *Engine {
	cfg = cfg.withDefaults()
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	book := NewApplicationBook()
	checkpoints := NewCheckpointStore(deps.Store, deps.CheckpointTTL)
	completions := NewCompletionStore(deps.Store)
	reconciler := NewReconciler(completions, deps.Questions, logger.Named("reconciler"), deps.Metrics)
	reconciler.now = now
	return &Engine{
		cfg:           cfg,
		now:           now,
		applications:  deps.Applications,
		questions:     deps.Questions,
		book:          book,
		checkpoints:   checkpoints,
		completions:   completions,
		submissions:   NewSubmissionControllerWithClock(deps.Scorer, book, completions, checkpoints, logger.Named("submission"), deps.Metrics, now),
		reconciler:    reconciler,
		coordinator:   NewCoordinator(cfg.Location, cfg.WarnThreshold),
		logger:        logger,
		metrics:       deps.Metrics,
		events:        make(chan event),
		done:          make(chan struct{}),
		pendingExpiry: make(map[string]struct{}),
		subscribers:   make(map[chan Notification]struct{}),
	}
}

// Run processes events until ctx is cancelled. Cancelling tears down every
// countdown and closes all subscriptions; no notification is emitted afterwards.
func (e *Engine) Run(ctx context.Context) error {
	err := errors.New("engine already running")
	e.runOnce.Do(func() {
		err = e.run(ctx)
	})
	return err
}

func (e *Engine) run(ctx context.Context) error {
	e.runCtx = ctx
	defer e.shutdown()

	var tick <-chan time.Time
	if e.cfg.TickInterval > 0 {
		ticker := time.NewTicker(e.cfg.TickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	if e.cfg.RefreshInterval > 0 && e.applications != nil {
		go e.refreshLoop(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			e.onTick(e.now())
		case ev := <-e.events:
			e.handle(ev)
		}
	}
}

func (e *Engine) shutdown() {
	e.coordinator.Stop()
	e.session = nil
	close(e.done)

	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.closed = true
	for ch := range e.subscribers {
		delete(e.subscribers, ch)
		close(ch)
	}
	e.logger.Info("session engine stopped")
}

func (e *Engine) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		if _, err := e.Refresh(ctx); err != nil && !errors.Is(err, domain.ErrEngineStopped) && ctx.Err() == nil {
			e.logger.Warn("refresh applications", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Subscribe returns a channel of notifications. The caller must invoke the
// returned cancel function to avoid leaks.
func (e *Engine) Subscribe() (<-chan Notification, func()) {
	ch := make(chan Notification, 64)

	e.subMu.Lock()
	if e.closed {
		e.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	e.subscribers[ch] = struct{}{}
	e.subMu.Unlock()

	cancel := func() {
		e.subMu.Lock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
		e.subMu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) broadcast(n Notification) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for ch := range e.subscribers {
		select {
		case ch <- n:
		default:
			// slow subscriber: drop the oldest notification
			select {
			case <-ch:
			default:
			}
			ch <- n
		}
	}
}

// Refresh reloads the applications and re-evaluates the dashboard.
func (e *Engine) Refresh(ctx context.Context) ([]DashboardEntry, error) {
	apps, err := e.applications.ListApplications(ctx)
	if err != nil {
		return nil, err
	}
	reply := make(chan []DashboardEntry, 1)
	if err := e.post(ctx, syncEvent{apps: apps, reply: reply}); err != nil {
		return nil, err
	}
	return e.awaitEntries(ctx, reply)
}

// Dashboard evaluates the current applications against one now sample.
func (e *Engine) Dashboard(ctx context.Context) ([]DashboardEntry, error) {
	reply := make(chan []DashboardEntry, 1)
	if err := e.post(ctx, dashboardEvent{reply: reply}); err != nil {
		return nil, err
	}
	return e.awaitEntries(ctx, reply)
}

// Tick runs one evaluation pass at now.
func (e *Engine) Tick(ctx context.Context, now time.Time) error {
	reply := make(chan error, 1)
	if err := e.post(ctx, tickEvent{now: now, reply: reply}); err != nil {
		return err
	}
	return e.awaitErr(ctx, reply)
}

// OpenSession opens the session view of appID: it checks availability, loads
// the questions, restores a fresh checkpoint and hands timer authority to the session.
func (e *Engine) OpenSession(ctx context.Context, appID string) (SessionView, error) {
	prep := make(chan prepareReply, 1)
	if err := e.post(ctx, prepareEvent{appID: appID, reply: prep}); err != nil {
		return SessionView{}, err
	}
	var prepared prepareReply
	select {
	case prepared = <-prep:
	case <-ctx.Done():
		return SessionView{}, ctx.Err()
	}
	if prepared.err != nil {
		return SessionView{}, prepared.err
	}
	if prepared.existing != nil {
		return *prepared.existing, nil
	}

	questions, err := e.questions.GetQuestions(ctx, prepared.app.ScheduledAssessment.QuizSetID)
	if err == nil && len(questions) == 0 {
		err = fmt.Errorf("quiz set %s is empty: %w", prepared.app.ScheduledAssessment.QuizSetID, domain.ErrQuizNotFound)
	}
	if err != nil {
		e.logger.Warn("load questions", zap.String("application_id", appID), zap.Error(err))
		_ = e.post(ctx, openFailedEvent{appID: appID, err: err})
		return SessionView{}, err
	}

	reply := make(chan openReply, 1)
	if err := e.post(ctx, openEvent{app: prepared.app, questions: questions, reply: reply}); err != nil {
		return SessionView{}, err
	}
	select {
	case r := <-reply:
		return r.view, r.err
	case <-ctx.Done():
		return SessionView{}, ctx.Err()
	}
}

// RecordAnswer stores the chosen option for a question of the open session.
// Answers sent after the session froze are ignored.
func (e *Engine) RecordAnswer(ctx context.Context, appID, questionID string, optionIndex int) error {
	reply := make(chan error, 1)
	if err := e.post(ctx, answerEvent{appID: appID, questionID: questionID, optionIndex: optionIndex, reply: reply}); err != nil {
		return err
	}
	return e.awaitErr(ctx, reply)
}

// Navigate moves the current question pointer of the open session.
func (e *Engine) Navigate(ctx context.Context, appID string, index int) error {
	reply := make(chan error, 1)
	if err := e.post(ctx, navigateEvent{appID: appID, index: index, reply: reply}); err != nil {
		return err
	}
	return e.awaitErr(ctx, reply)
}

// Submit starts a manual submission. It returns once the submission is accepted
// for sending; the outcome arrives as a notification.
func (e *Engine) Submit(ctx context.Context, appID string) error {
	reply := make(chan error, 1)
	if err := e.post(ctx, submitEvent{appID: appID, reply: reply}); err != nil {
		return err
	}
	return e.awaitErr(ctx, reply)
}

// LeaveSession closes the session view. In-flight submissions keep running and
// still update the dashboard record.
func (e *Engine) LeaveSession(ctx context.Context, appID string) error {
	reply := make(chan error, 1)
	if err := e.post(ctx, leaveEvent{appID: appID, reply: reply}); err != nil {
		return err
	}
	return e.awaitErr(ctx, reply)
}

// View returns the state of the open session view.
func (e *Engine) View(ctx context.Context, appID string) (SessionView, error) {
	reply := make(chan openReply, 1)
	if err := e.post(ctx, viewEvent{appID: appID, reply: reply}); err != nil {
		return SessionView{}, err
	}
	select {
	case r := <-reply:
		return r.view, r.err
	case <-ctx.Done():
		return SessionView{}, ctx.Err()
	}
}

// Result reconciles the completion statistics of a completed application.
func (e *Engine) Result(ctx context.Context, appID string) (ResultView, error) {
	app, ok := e.book.Get(appID)
	if !ok {
		return ResultView{}, fmt.Errorf("%s: %w", appID, domain.ErrApplicationNotFound)
	}
	if !app.Completed {
		return ResultView{}, fmt.Errorf("%s not completed: %w", appID, domain.ErrNotAvailable)
	}
	stats, source := e.reconciler.Reconcile(ctx, app)
	e.book.SetStats(appID, stats)
	return ResultView{
		ApplicationID: appID,
		Score:         app.Score,
		Passed:        app.Passed,
		Stats:         stats,
		Source:        source,
	}, nil
}

func (e *Engine) post(ctx context.Context, ev event) error {
	select {
	case e.events <- ev:
		return nil
	case <-e.done:
		return domain.ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) awaitErr(ctx context.Context, reply <-chan error) error {
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) awaitEntries(ctx context.Context, reply <-chan []DashboardEntry) ([]DashboardEntry, error) {
	select {
	case entries := <-reply:
		return entries, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
