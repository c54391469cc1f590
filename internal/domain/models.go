package domain

import "time"

// ApplicationStatus is the recruitment decision attached to an application.
type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "pending"
	StatusAccepted ApplicationStatus = "accepted"
	StatusRejected ApplicationStatus = "rejected"
)

// ScheduledAssessment describes a timed test attached to an application.
// Date is "2006-01-02" and StartTime is "15:04" (seconds optional).
type ScheduledAssessment struct {
	QuizSetID       string `json:"quizSetId"`
	Title           string `json:"title"`
	Date            string `json:"date"`
	StartTime       string `json:"startTime"`
	DurationMinutes int    `json:"durationMinutes"`
	PassPercentage  int    `json:"passPercentage"`
	TotalQuestions  *int   `json:"totalQuestions,omitempty"`
}

// Application is the dashboard record of a candidate's internship application.
type Application struct {
	ID                  string               `json:"id"`
	Status              ApplicationStatus    `json:"status"`
	ScheduledAssessment *ScheduledAssessment `json:"scheduledAssessment,omitempty"`
	Completed           bool                 `json:"completed"`
	Score               *float64             `json:"score,omitempty"`
	Passed              *bool                `json:"passed,omitempty"`
	TotalQuestions      *int                 `json:"totalQuestions,omitempty"`
	AnsweredQuestions   *int                 `json:"answeredQuestions,omitempty"`
}

// Clone returns a deep copy so callers can hand records across goroutines.
func (a Application) Clone() Application {
	out := a
	if a.ScheduledAssessment != nil {
		sa := *a.ScheduledAssessment
		if sa.TotalQuestions != nil {
			sa.TotalQuestions = IntPtr(*sa.TotalQuestions)
		}
		out.ScheduledAssessment = &sa
	}
	if a.Score != nil {
		v := *a.Score
		out.Score = &v
	}
	if a.Passed != nil {
		v := *a.Passed
		out.Passed = &v
	}
	if a.TotalQuestions != nil {
		out.TotalQuestions = IntPtr(*a.TotalQuestions)
	}
	if a.AnsweredQuestions != nil {
		out.AnsweredQuestions = IntPtr(*a.AnsweredQuestions)
	}
	return out
}

// Option represents a possible answer for a question. Correct is only populated
// by local quiz sources and is never sent to candidates.
type Option struct {
	ID      string `json:"optionId"`
	Text    string `json:"text"`
	Correct bool   `json:"correct,omitempty"`
}

// Question models an MCQ question.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// QuizSet is the ordered list of questions behind a scheduled assessment.
type QuizSet struct {
	ID             string     `json:"id"`
	PassPercentage int        `json:"passPercentage,omitempty"`
	Questions      []Question `json:"questions"`
}

// AnswerMap maps question ID to the chosen option index.
type AnswerMap map[string]int

// Clone copies the map.
func (m AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SessionCheckpoint is the durable snapshot of in-progress answers.
type SessionCheckpoint struct {
	Answers              AnswerMap `json:"answers"`
	CurrentQuestionIndex int       `json:"currentQuestionIndex"`
	SavedAt              time.Time `json:"savedAt"`
}

// CompletionRecord caches the display statistics of a finished attempt.
type CompletionRecord struct {
	Score             float64   `json:"score"`
	Passed            bool      `json:"passed"`
	TotalQuestions    int       `json:"totalQuestions"`
	AnsweredQuestions int       `json:"answeredQuestions"`
	CompletedAt       time.Time `json:"completedAt"`
}

// CompletionStats is what the candidate sees after an attempt.
type CompletionStats struct {
	TotalQuestions    int `json:"totalQuestions"`
	AnsweredQuestions int `json:"answeredQuestions"`
}

// ScoreResult is the scoring service response.
type ScoreResult struct {
	Score         float64 `json:"score"`
	Passed        bool    `json:"passed"`
	TestCompleted bool    `json:"testCompleted"`
	TestScore     float64 `json:"testScore"`
	TestPassed    bool    `json:"testPassed"`
}

// Submission is the payload sent to the scoring service.
type Submission struct {
	ApplicationID  string    `json:"applicationId"`
	Answers        AnswerMap `json:"answers"`
	IdempotencyKey string    `json:"-"`
}

// SessionState is the lifecycle state of a session view exposed to the shell.
type SessionState string

const (
	SessionNotOpen     SessionState = "not_open"
	SessionActive      SessionState = "active"
	SessionSubmitting  SessionState = "submitting"
	SessionSubmitted   SessionState = "submitted"
	SessionTimeExpired SessionState = "time_expired"
	SessionError       SessionState = "error"
)

// Frozen reports whether answers may no longer change in this state.
func (s SessionState) Frozen() bool {
	switch s {
	case SessionSubmitting, SessionSubmitted, SessionTimeExpired:
		return true
	}
	return false
}

// Trigger identifies who initiated a submission.
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerExpiry Trigger = "expiry"
)

// IntPtr is a small helper for optional integer fields.
func IntPtr(v int) *int { return &v }

// FloatPtr is a small helper for optional float fields.
func FloatPtr(v float64) *float64 { return &v }

// BoolPtr is a small helper for optional bool fields.
func BoolPtr(v bool) *bool { return &v }
