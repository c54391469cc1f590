package app

import (
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
)

// NotificationKind enumerates what the engine broadcasts to the hosting shell.
type NotificationKind string

const (
	NotifyTick      NotificationKind = "tick"
	NotifyWarning   NotificationKind = "warning"
	NotifyExpired   NotificationKind = "expired"
	NotifyState     NotificationKind = "state"
	NotifySubmitted NotificationKind = "submitted"
	NotifyError     NotificationKind = "error"
)

// Notification is one event of the engine's broadcast stream.
type Notification struct {
	Kind             NotificationKind        `json:"kind"`
	ApplicationID    string                  `json:"applicationId"`
	State            domain.SessionState     `json:"state,omitempty"`
	Owner            Owner                   `json:"owner,omitempty"`
	RemainingSeconds int                     `json:"remainingSeconds"`
	Urgent           bool                    `json:"urgent,omitempty"`
	Trigger          domain.Trigger          `json:"trigger,omitempty"`
	Score            *float64                `json:"score,omitempty"`
	Passed           *bool                   `json:"passed,omitempty"`
	Stats            *domain.CompletionStats `json:"stats,omitempty"`
	Message          string                  `json:"message,omitempty"`
	ErrorKind        string                  `json:"errorKind,omitempty"`
}

// SessionView is the state of an open session view handed to the shell.
type SessionView struct {
	ApplicationID        string                  `json:"applicationId"`
	Title                string                  `json:"title"`
	State                domain.SessionState     `json:"state"`
	Questions            []domain.Question       `json:"questions"`
	Answers              domain.AnswerMap        `json:"answers"`
	CurrentQuestionIndex int                     `json:"currentQuestionIndex"`
	RemainingSeconds     int                     `json:"remainingSeconds"`
	Urgent               bool                    `json:"urgent"`
	Recovered            bool                    `json:"recovered"`
	AutoSubmitted        bool                    `json:"autoSubmitted"`
	Score                *float64                `json:"score,omitempty"`
	Passed               *bool                   `json:"passed,omitempty"`
	Stats                *domain.CompletionStats `json:"stats,omitempty"`
	Error                string                  `json:"error,omitempty"`
}

// ResultView is the reconciled outcome of a completed application.
type ResultView struct {
	ApplicationID string                 `json:"applicationId"`
	Score         *float64               `json:"score,omitempty"`
	Passed        *bool                  `json:"passed,omitempty"`
	Stats         domain.CompletionStats `json:"stats"`
	Source        StatsSource            `json:"source"`
}

type sessionView struct {
	app             domain.Application
	window          Window
	questions       []domain.Question
	answers         *AnswerStore
	state           domain.SessionState
	recovered       bool
	autoSubmitted   bool
	expiredInSubmit bool
	result          *domain.ScoreResult
	stats           *domain.CompletionStats
	lastErr         string
	lastCheckpoint  time.Time
}

func (s *sessionView) setState(state domain.SessionState) {
	s.state = state
	s.answers.SetState(state)
}

func (s *sessionView) view(now time.Time, urgentBelow time.Duration) SessionView {
	v := SessionView{
		ApplicationID:        s.app.ID,
		State:                s.state,
		Questions:            publicQuestions(s.questions),
		Answers:              s.answers.Answers(),
		CurrentQuestionIndex: s.answers.Current(),
		Recovered:            s.recovered,
		AutoSubmitted:        s.autoSubmitted,
		Error:                s.lastErr,
	}
	if s.app.ScheduledAssessment != nil {
		v.Title = s.app.ScheduledAssessment.Title
	}
	if remaining := s.window.Remaining(now); remaining > 0 && !s.state.Frozen() {
		v.RemainingSeconds = seconds(remaining)
		v.Urgent = remaining < urgentBelow
	}
	if s.result != nil {
		v.Score = domain.FloatPtr(s.result.Score)
		v.Passed = domain.BoolPtr(s.result.Passed)
	}
	if s.stats != nil {
		stats := *s.stats
		v.Stats = &stats
	}
	return v
}

func publicQuestions(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	for i, q := range questions {
		opts := make([]domain.Option, len(q.Options))
		for j, o := range q.Options {
			opts[j] = domain.Option{ID: o.ID, Text: o.Text}
		}
		out[i] = domain.Question{ID: q.ID, Text: q.Text, Options: opts}
	}
	return out
}
