package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
	"go.uber.org/zap"
)

type event interface{}

type tickEvent struct {
	now   time.Time
	reply chan error
}

type syncEvent struct {
	apps  []domain.Application
	reply chan []DashboardEntry
}

type dashboardEvent struct {
	reply chan []DashboardEntry
}

type prepareReply struct {
	app      domain.Application
	existing *SessionView
	err      error
}

type prepareEvent struct {
	appID string
	reply chan prepareReply
}

type openReply struct {
	view SessionView
	err  error
}

type openEvent struct {
	app       domain.Application
	questions []domain.Question
	reply     chan openReply
}

type openFailedEvent struct {
	appID string
	err   error
}

type answerEvent struct {
	appID       string
	questionID  string
	optionIndex int
	reply       chan error
}

type navigateEvent struct {
	appID string
	index int
	reply chan error
}

type submitEvent struct {
	appID string
	reply chan error
}

type leaveEvent struct {
	appID string
	reply chan error
}

type viewEvent struct {
	appID string
	reply chan openReply
}

type submitDoneEvent struct {
	req     SubmitRequest
	outcome SubmissionOutcome
	err     error
}

func (e *Engine) handle(ev event) {
	switch ev := ev.(type) {
	case tickEvent:
		e.onTick(ev.now)
		ev.reply <- nil
	case syncEvent:
		apps := e.book.Replace(ev.apps)
		e.coordinator.Track(apps)
		e.metrics.SetCountdowns(e.coordinator.Len())
		ev.reply <- e.evaluate(e.now())
	case dashboardEvent:
		ev.reply <- e.evaluate(e.now())
	case prepareEvent:
		ev.reply <- e.prepare(ev.appID)
	case openEvent:
		view, err := e.open(ev.app, ev.questions)
		ev.reply <- openReply{view: view, err: err}
	case openFailedEvent:
		e.broadcast(Notification{
			Kind:          NotifyState,
			ApplicationID: ev.appID,
			State:         domain.SessionError,
			Message:       ev.err.Error(),
			ErrorKind:     domain.ErrorKind(ev.err),
		})
	case answerEvent:
		ev.reply <- e.recordAnswer(ev)
	case navigateEvent:
		sess, err := e.sessionFor(ev.appID)
		if err == nil {
			err = sess.answers.Navigate(ev.index)
		}
		ev.reply <- err
	case submitEvent:
		ev.reply <- e.submitManual(ev.appID)
	case leaveEvent:
		ev.reply <- e.leave(ev.appID)
	case viewEvent:
		sess, err := e.sessionFor(ev.appID)
		if err != nil {
			ev.reply <- openReply{err: err}
			return
		}
		ev.reply <- openReply{view: sess.view(e.now(), e.cfg.UrgentThreshold)}
	case submitDoneEvent:
		e.onSubmitDone(ev)
	default:
		e.logger.Error("unknown engine event", zap.String("type", fmt.Sprintf("%T", ev)))
	}
}

func (e *Engine) evaluate(now time.Time) []DashboardEntry {
	entries := Evaluate(now, e.book.List(), e.cfg.Location, e.cfg.UrgentThreshold)
	for i := range entries {
		entries[i].Owner = e.coordinator.Owner(entries[i].Application.ID)
	}
	return entries
}

func (e *Engine) onTick(now time.Time) {
	for _, s := range e.coordinator.Tick(now) {
		switch s.Kind {
		case SignalTick:
			e.broadcast(Notification{
				Kind:             NotifyTick,
				ApplicationID:    s.ApplicationID,
				Owner:            s.Owner,
				RemainingSeconds: seconds(s.Remaining),
				Urgent:           s.Remaining < e.cfg.UrgentThreshold && s.Remaining > 0,
			})
		case SignalWarning:
			e.broadcast(Notification{
				Kind:             NotifyWarning,
				ApplicationID:    s.ApplicationID,
				Owner:            s.Owner,
				RemainingSeconds: seconds(s.Remaining),
				Urgent:           true,
				Message:          "Less than one minute remaining",
			})
		case SignalExpired:
			e.expire(s)
		}
	}
	e.checkpoint(now)
	e.metrics.SetCountdowns(e.coordinator.Len())
}

func (e *Engine) checkpoint(now time.Time) {
	sess := e.session
	if sess == nil || sess.state != domain.SessionActive {
		return
	}
	if now.Sub(sess.lastCheckpoint) < e.cfg.CheckpointInterval {
		return
	}
	wrote, err := sess.answers.Checkpoint(e.runCtx, now)
	if err != nil {
		e.logger.Warn("write checkpoint", zap.String("application_id", sess.app.ID), zap.Error(err))
		return
	}
	if wrote {
		sess.lastCheckpoint = now
		e.metrics.CheckpointWritten()
	}
}

func (e *Engine) expire(s Signal) {
	sess := e.session
	if s.Owner == OwnerSession && sess != nil && sess.app.ID == s.ApplicationID {
		if sess.state == domain.SessionSubmitting {
			// the manual submission owns the outcome; escalate only if it fails
			sess.expiredInSubmit = true
			return
		}
		e.expireSession(sess)
		return
	}

	app, ok := e.book.Get(s.ApplicationID)
	if !ok || app.Completed {
		return
	}
	e.broadcast(Notification{
		Kind:          NotifyExpired,
		ApplicationID: app.ID,
		Owner:         OwnerDashboard,
		Trigger:       domain.TriggerExpiry,
		Message:       "The assessment window closed; submitting automatically",
	})
	e.autoSubmit(app, nil)
}

// autoSubmit issues the expiry submission for an application with no open
// session view. A nil answers map falls back to the durable checkpoint. When a
// manual submission is still running the expiry is parked until it settles.
func (e *Engine) autoSubmit(app domain.Application, answers domain.AnswerMap) {
	if !e.submissions.Begin(app.ID) {
		if e.submissions.InFlight(app.ID) {
			e.pendingExpiry[app.ID] = struct{}{}
		}
		return
	}
	delete(e.pendingExpiry, app.ID)
	if answers == nil {
		answers = e.checkpointAnswers(app.ID)
	}
	req := SubmitRequest{
		ApplicationID: app.ID,
		Answers:       answers,
		Trigger:       domain.TriggerExpiry,
	}
	if sa := app.ScheduledAssessment; sa != nil && sa.TotalQuestions != nil {
		req.TotalQuestions = *sa.TotalQuestions
	}
	quizSetID := ""
	if app.ScheduledAssessment != nil {
		quizSetID = app.ScheduledAssessment.QuizSetID
	}
	e.launch(req, quizSetID)
}

func (e *Engine) checkpointAnswers(appID string) domain.AnswerMap {
	cp, ok, err := e.checkpoints.Load(e.runCtx, appID)
	if err != nil {
		e.logger.Warn("load checkpoint for expiry", zap.String("application_id", appID), zap.Error(err))
		return domain.AnswerMap{}
	}
	if !ok || e.now().Sub(cp.SavedAt) >= e.checkpoints.TTL() || cp.Answers == nil {
		return domain.AnswerMap{}
	}
	return cp.Answers
}

// expiryDue reports whether a failed manual submission for appID must be
// followed by the expiry submission.
func (e *Engine) expiryDue(app domain.Application) bool {
	if _, ok := e.pendingExpiry[app.ID]; ok {
		return true
	}
	window, ok := WindowFor(app, e.cfg.Location)
	return ok && !e.now().Before(window.End)
}

func (e *Engine) expireSession(sess *sessionView) {
	sess.setState(domain.SessionTimeExpired)
	sess.autoSubmitted = true
	e.broadcast(Notification{
		Kind:          NotifyExpired,
		ApplicationID: sess.app.ID,
		State:         sess.state,
		Owner:         OwnerSession,
		Trigger:       domain.TriggerExpiry,
		Message:       "Time is up. Your answers were submitted automatically",
	})
	if !e.submissions.Begin(sess.app.ID) {
		return
	}
	e.launch(SubmitRequest{
		ApplicationID:  sess.app.ID,
		Answers:        sess.answers.Answers(),
		TotalQuestions: len(sess.questions),
		Trigger:        domain.TriggerExpiry,
	}, "")
}

// launch runs a submission that already won Begin. quizSetID is set when the
// question count still has to be resolved.
func (e *Engine) launch(req SubmitRequest, quizSetID string) {
	ctx, cancel := context.WithTimeout(e.runCtx, e.cfg.SubmitTimeout)
	go func() {
		defer cancel()
		if req.TotalQuestions == 0 && quizSetID != "" && e.questions != nil {
			if questions, err := e.questions.GetQuestions(ctx, quizSetID); err == nil {
				req.TotalQuestions = len(questions)
			} else {
				e.logger.Warn("resolve question count", zap.String("application_id", req.ApplicationID), zap.Error(err))
			}
		}
		outcome, err := e.submissions.Execute(ctx, req)
		_ = e.post(context.Background(), submitDoneEvent{req: req, outcome: outcome, err: err})
	}()
}

func (e *Engine) onSubmitDone(ev submitDoneEvent) {
	appID := ev.req.ApplicationID
	sess := e.session
	if sess != nil && sess.app.ID != appID {
		sess = nil
	}

	if ev.err == nil {
		delete(e.pendingExpiry, appID)
		e.coordinator.Complete(appID)
		e.metrics.SetCountdowns(e.coordinator.Len())
		stats := domain.CompletionStats{
			TotalQuestions:    ev.outcome.Record.TotalQuestions,
			AnsweredQuestions: ev.outcome.Record.AnsweredQuestions,
		}
		if sess != nil {
			result := ev.outcome.Result
			sess.result = &result
			sess.stats = &stats
			sess.lastErr = ""
			sess.setState(domain.SessionSubmitted)
			if err := sess.answers.Clear(e.runCtx); err != nil {
				e.logger.Warn("clear answers", zap.String("application_id", appID), zap.Error(err))
			}
		}
		e.broadcast(Notification{
			Kind:          NotifySubmitted,
			ApplicationID: appID,
			State:         domain.SessionSubmitted,
			Trigger:       ev.req.Trigger,
			Score:         domain.FloatPtr(ev.outcome.Result.Score),
			Passed:        domain.BoolPtr(ev.outcome.Result.Passed),
			Stats:         &stats,
		})
		return
	}

	n := Notification{
		Kind:          NotifyError,
		ApplicationID: appID,
		Trigger:       ev.req.Trigger,
		Message:       ev.err.Error(),
		ErrorKind:     domain.ErrorKind(ev.err),
	}
	if sess == nil {
		e.broadcast(n)
		if ev.req.Trigger != domain.TriggerManual {
			return
		}
		if app, ok := e.book.Get(appID); ok && !app.Completed && e.expiryDue(app) {
			e.autoSubmit(app, ev.req.Answers)
		}
		return
	}
	sess.lastErr = ev.err.Error()
	if ev.req.Trigger == domain.TriggerExpiry {
		// time has elapsed: input stays frozen without server acknowledgement
		n.State = sess.state
		e.broadcast(n)
		return
	}
	if sess.expiredInSubmit || !e.now().Before(sess.window.End) {
		e.broadcast(n)
		e.expireSession(sess)
		return
	}
	sess.setState(domain.SessionActive)
	n.State = sess.state
	n.Message = "Submission failed, please retry: " + ev.err.Error()
	e.broadcast(n)
}

func (e *Engine) sessionFor(appID string) (*sessionView, error) {
	if e.session == nil || e.session.app.ID != appID {
		return nil, fmt.Errorf("%s: %w", appID, domain.ErrSessionNotOpen)
	}
	return e.session, nil
}

func (e *Engine) prepare(appID string) prepareReply {
	if sess := e.session; sess != nil {
		if sess.app.ID == appID {
			view := sess.view(e.now(), e.cfg.UrgentThreshold)
			return prepareReply{existing: &view}
		}
		return prepareReply{err: fmt.Errorf("%s is open: %w", sess.app.ID, domain.ErrSessionBusy)}
	}
	app, err := e.openable(appID, e.now())
	return prepareReply{app: app, err: err}
}

func (e *Engine) openable(appID string, now time.Time) (domain.Application, error) {
	app, ok := e.book.Get(appID)
	if !ok {
		return domain.Application{}, fmt.Errorf("%s: %w", appID, domain.ErrApplicationNotFound)
	}
	if e.submissions.InFlight(appID) {
		return domain.Application{}, fmt.Errorf("%s: %w", appID, domain.ErrSubmissionInFlight)
	}
	if IsExpired(now, app, e.cfg.Location) {
		return domain.Application{}, fmt.Errorf("%s: %w", appID, domain.ErrWindowExpired)
	}
	if !IsAvailable(now, app, e.cfg.Location) {
		return domain.Application{}, fmt.Errorf("%s: %w", appID, domain.ErrNotAvailable)
	}
	return app, nil
}

func (e *Engine) open(app domain.Application, questions []domain.Question) (SessionView, error) {
	if e.session != nil {
		if e.session.app.ID == app.ID {
			return e.session.view(e.now(), e.cfg.UrgentThreshold), nil
		}
		return SessionView{}, fmt.Errorf("%s is open: %w", e.session.app.ID, domain.ErrSessionBusy)
	}
	now := e.now()
	current, err := e.openable(app.ID, now)
	if err != nil {
		return SessionView{}, err
	}
	window, _ := WindowFor(current, e.cfg.Location)

	if err := e.coordinator.EnterSession(current.ID); err != nil {
		return SessionView{}, err
	}

	answers := NewAnswerStore(current.ID, questions, e.checkpoints)
	recovered, err := answers.Recover(e.runCtx, now)
	switch {
	case err != nil:
		e.metrics.Recovery("error")
		e.logger.Warn("recover checkpoint", zap.String("application_id", current.ID), zap.Error(err))
	case recovered:
		e.metrics.Recovery("restored")
		e.logger.Info("checkpoint restored",
			zap.String("application_id", current.ID),
			zap.Int("answers", answers.Len()),
			zap.Int("current_question", answers.Current()))
	default:
		e.metrics.Recovery("none")
	}
	sess := &sessionView{
		app:            current,
		window:         window,
		questions:      questions,
		answers:        answers,
		recovered:      recovered,
		lastCheckpoint: now,
	}
	sess.setState(domain.SessionActive)
	e.session = sess

	view := sess.view(now, e.cfg.UrgentThreshold)
	e.broadcast(Notification{
		Kind:             NotifyState,
		ApplicationID:    current.ID,
		State:            sess.state,
		Owner:            OwnerSession,
		RemainingSeconds: view.RemainingSeconds,
	})
	e.logger.Info("session opened",
		zap.String("application_id", current.ID),
		zap.Int("questions", len(questions)),
		zap.Int("remaining_seconds", view.RemainingSeconds))
	return view, nil
}

func (e *Engine) recordAnswer(ev answerEvent) error {
	sess, err := e.sessionFor(ev.appID)
	if err != nil {
		return err
	}
	_, err = sess.answers.RecordAnswer(ev.questionID, ev.optionIndex)
	return err
}

func (e *Engine) submitManual(appID string) error {
	sess, err := e.sessionFor(appID)
	if err != nil {
		return err
	}
	switch sess.state {
	case domain.SessionSubmitting:
		return fmt.Errorf("%s: %w", appID, domain.ErrSubmissionInFlight)
	case domain.SessionSubmitted, domain.SessionTimeExpired:
		return fmt.Errorf("%s: %w", appID, domain.ErrSessionFrozen)
	}
	if !e.submissions.Begin(appID) {
		return fmt.Errorf("%s: %w", appID, domain.ErrSubmissionInFlight)
	}
	req := SubmitRequest{
		ApplicationID:  appID,
		Answers:        sess.answers.Answers(),
		TotalQuestions: len(sess.questions),
		Trigger:        domain.TriggerManual,
	}
	sess.lastErr = ""
	sess.setState(domain.SessionSubmitting)
	e.broadcast(Notification{Kind: NotifyState, ApplicationID: appID, State: sess.state, Trigger: domain.TriggerManual})
	e.launch(req, "")
	return nil
}

func (e *Engine) leave(appID string) error {
	sess, err := e.sessionFor(appID)
	if err != nil {
		return err
	}
	if sess.state == domain.SessionActive {
		if wrote, err := sess.answers.Checkpoint(e.runCtx, e.now()); err != nil {
			e.logger.Warn("checkpoint on leave", zap.String("application_id", appID), zap.Error(err))
		} else if wrote {
			e.metrics.CheckpointWritten()
		}
	}
	completed := sess.state == domain.SessionSubmitted
	if app, ok := e.book.Get(appID); ok && app.Completed {
		completed = true
	}
	e.coordinator.LeaveSession(appID, completed)
	e.session = nil
	e.broadcast(Notification{Kind: NotifyState, ApplicationID: appID, State: domain.SessionNotOpen, Owner: e.coordinator.Owner(appID)})
	e.logger.Info("session closed", zap.String("application_id", appID), zap.Bool("completed", completed))
	return nil
}
