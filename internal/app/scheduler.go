package app

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
)

// Window is the [Start, End) interval during which an assessment may be taken.
type Window struct {
	Start time.Time
	End   time.Time
}

// Remaining returns End - now; negative once the window has closed.
func (w Window) Remaining(now time.Time) time.Duration {
	return w.End.Sub(now)
}

// ComputeWindow derives the assessment window from the scheduled date, start time and duration.
func ComputeWindow(date, startTime string, durationMinutes int, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.Local
	}
	if durationMinutes <= 0 {
		return Window{}, fmt.Errorf("duration %d: %w", durationMinutes, domain.ErrValidation)
	}
	clock := strings.TrimSpace(startTime)
	layout := "2006-01-02 15:04"
	if strings.Count(clock, ":") == 2 {
		layout = "2006-01-02 15:04:05"
	}
	start, err := time.ParseInLocation(layout, strings.TrimSpace(date)+" "+clock, loc)
	if err != nil {
		return Window{}, fmt.Errorf("parse schedule %q %q: %w", date, startTime, domain.ErrValidation)
	}
	return Window{Start: start, End: start.Add(time.Duration(durationMinutes) * time.Minute)}, nil
}

// WindowFor computes the window of an application's scheduled assessment.
func WindowFor(app domain.Application, loc *time.Location) (Window, bool) {
	sa := app.ScheduledAssessment
	if sa == nil {
		return Window{}, false
	}
	w, err := ComputeWindow(sa.Date, sa.StartTime, sa.DurationMinutes, loc)
	if err != nil {
		return Window{}, false
	}
	return w, true
}

// IsAvailable reports whether the candidate may start the assessment at now.
func IsAvailable(now time.Time, app domain.Application, loc *time.Location) bool {
	if app.Status != domain.StatusAccepted || app.Completed {
		return false
	}
	w, ok := WindowFor(app, loc)
	if !ok {
		return false
	}
	return !now.Before(w.Start)
}

// IsExpired reports whether the window closed without a completed attempt.
// A window that was never opened still expires.
func IsExpired(now time.Time, app domain.Application, loc *time.Location) bool {
	if app.Completed {
		return false
	}
	w, ok := WindowFor(app, loc)
	if !ok {
		return false
	}
	return now.After(w.End)
}

// Outstanding reports whether the application needs a countdown: accepted,
// scheduled and not yet completed.
func Outstanding(app domain.Application, loc *time.Location) bool {
	if app.Status != domain.StatusAccepted || app.Completed {
		return false
	}
	_, ok := WindowFor(app, loc)
	return ok
}

// Phase classifies an application on the dashboard.
type Phase string

const (
	PhaseInapplicable Phase = "inapplicable"
	PhaseNotOpen      Phase = "not_open"
	PhaseOpen         Phase = "open"
	PhaseExpired      Phase = "expired"
	PhaseCompleted    Phase = "completed"
)

// DashboardEntry is one evaluated dashboard row.
type DashboardEntry struct {
	Application      domain.Application `json:"application"`
	Phase            Phase              `json:"phase"`
	Owner            Owner              `json:"owner,omitempty"`
	WindowStart      *time.Time         `json:"windowStart,omitempty"`
	WindowEnd        *time.Time         `json:"windowEnd,omitempty"`
	RemainingSeconds int                `json:"remainingSeconds"`
	Urgent           bool               `json:"urgent"`
	StatusLabel      string             `json:"statusLabel"`
	ResultLabel      string             `json:"resultLabel,omitempty"`
	ScoreLabel       string             `json:"scoreLabel,omitempty"`
}

// Evaluate classifies every application from a single now sample so that all labels agree.
func Evaluate(now time.Time, apps []domain.Application, loc *time.Location, urgentBelow time.Duration) []DashboardEntry {
	entries := make([]DashboardEntry, 0, len(apps))
	for _, app := range apps {
		entries = append(entries, evaluateOne(now, app, loc, urgentBelow))
	}
	return entries
}

func evaluateOne(now time.Time, app domain.Application, loc *time.Location, urgentBelow time.Duration) DashboardEntry {
	entry := DashboardEntry{Application: app}
	w, scheduled := WindowFor(app, loc)
	if scheduled {
		start, end := w.Start, w.End
		entry.WindowStart = &start
		entry.WindowEnd = &end
	}

	switch {
	case app.Completed:
		entry.Phase = PhaseCompleted
		entry.StatusLabel = "Test Completed"
		if app.Passed != nil {
			if *app.Passed {
				entry.ResultLabel = "PASSED"
			} else {
				entry.ResultLabel = "FAILED"
			}
		}
		if app.Score != nil {
			entry.ScoreLabel = fmt.Sprintf("%d%%", int(math.Round(*app.Score)))
		}
	case app.Status != domain.StatusAccepted || !scheduled:
		entry.Phase = PhaseInapplicable
	case IsExpired(now, app, loc):
		entry.Phase = PhaseExpired
		entry.StatusLabel = "Test Expired"
	case IsAvailable(now, app, loc):
		entry.Phase = PhaseOpen
		entry.StatusLabel = "Test Available"
		remaining := w.Remaining(now)
		entry.RemainingSeconds = seconds(remaining)
		entry.Urgent = remaining < urgentBelow
	default:
		entry.Phase = PhaseNotOpen
		entry.StatusLabel = "Opens at " + w.Start.Format("15:04")
		entry.RemainingSeconds = seconds(w.Remaining(now))
	}
	return entry
}

func seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}
