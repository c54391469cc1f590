package cli

import (
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
)

// sampleQuizSets backs local runs without a recruitment API; `seed` copies them into Postgres.
func sampleQuizSets() map[string]domain.QuizSet {
	return map[string]domain.QuizSet{
		"go-basics": {
			ID:             "go-basics",
			PassPercentage: 60,
			Questions: []domain.Question{
				{
					ID:   "q1",
					Text: "Which keyword starts a goroutine?",
					Options: []domain.Option{
						{ID: "o1", Text: "defer"},
						{ID: "o2", Text: "go", Correct: true},
						{ID: "o3", Text: "async"},
					},
				},
				{
					ID:   "q2",
					Text: "What does reading a missing key from a map return?",
					Options: []domain.Option{
						{ID: "o1", Text: "The zero value", Correct: true},
						{ID: "o2", Text: "A panic"},
						{ID: "o3", Text: "nil, always"},
					},
				},
				{
					ID:   "q3",
					Text: "Which statement closes a channel?",
					Options: []domain.Option{
						{ID: "o1", Text: "ch.Close()"},
						{ID: "o2", Text: "close(ch)", Correct: true},
						{ID: "o3", Text: "ch <- nil"},
					},
				},
			},
		},
	}
}

// sampleApplications schedules one assessment that is open now, one later
// today and one unscheduled application.
func sampleApplications(now time.Time) []domain.Application {
	start := now.Add(-5 * time.Minute)
	later := now.Add(2 * time.Hour)
	return []domain.Application{
		{
			ID:     "app-open",
			Status: domain.StatusAccepted,
			ScheduledAssessment: &domain.ScheduledAssessment{
				QuizSetID:       "go-basics",
				Title:           "Go fundamentals",
				Date:            start.Format("2006-01-02"),
				StartTime:       start.Format("15:04"),
				DurationMinutes: 60,
				PassPercentage:  60,
			},
		},
		{
			ID:     "app-later",
			Status: domain.StatusAccepted,
			ScheduledAssessment: &domain.ScheduledAssessment{
				QuizSetID:       "go-basics",
				Title:           "Go fundamentals (retake)",
				Date:            later.Format("2006-01-02"),
				StartTime:       later.Format("15:04"),
				DurationMinutes: 30,
				PassPercentage:  60,
			},
		},
		{ID: "app-pending", Status: domain.StatusPending},
	}
}
