package app

import (
	"sort"
	"sync"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
)

// ApplicationBook is the dashboard's copy of the candidate's applications.
// It is shared between the engine loop and in-flight submissions.
type ApplicationBook struct {
	mu   sync.RWMutex
	apps map[string]domain.Application
}

func NewApplicationBook() *ApplicationBook {
	return &ApplicationBook{apps: make(map[string]domain.Application)}
}

// Replace swaps in a fresh listing. A locally completed application stays
// completed even when the listing lags behind the scoring service.
func (b *ApplicationBook) Replace(apps []domain.Application) []domain.Application {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := make(map[string]domain.Application, len(apps))
	for _, app := range apps {
		if prev, ok := b.apps[app.ID]; ok && prev.Completed && !app.Completed {
			app = prev
		}
		next[app.ID] = app.Clone()
	}
	b.apps = next
	return b.listLocked()
}

func (b *ApplicationBook) Get(id string) (domain.Application, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	app, ok := b.apps[id]
	if !ok {
		return domain.Application{}, false
	}
	return app.Clone(), true
}

// List returns the applications sorted by ID.
func (b *ApplicationBook) List() []domain.Application {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.listLocked()
}

func (b *ApplicationBook) listLocked() []domain.Application {
	out := make([]domain.Application, 0, len(b.apps))
	for _, app := range b.apps {
		out = append(out, app.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MarkCompleted records a successful submission on the dashboard record.
func (b *ApplicationBook) MarkCompleted(id string, rec domain.CompletionRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	app, ok := b.apps[id]
	if !ok {
		app = domain.Application{ID: id, Status: domain.StatusAccepted}
	}
	app.Completed = true
	app.Score = domain.FloatPtr(rec.Score)
	app.Passed = domain.BoolPtr(rec.Passed)
	app.TotalQuestions = domain.IntPtr(rec.TotalQuestions)
	app.AnsweredQuestions = domain.IntPtr(rec.AnsweredQuestions)
	b.apps[id] = app
}

// SetStats attaches reconciled statistics to the dashboard record.
func (b *ApplicationBook) SetStats(id string, stats domain.CompletionStats) {
	b.mu.Lock()
	defer b.mu.Unlock()
	app, ok := b.apps[id]
	if !ok {
		return
	}
	app.TotalQuestions = domain.IntPtr(stats.TotalQuestions)
	app.AnsweredQuestions = domain.IntPtr(stats.AnsweredQuestions)
	b.apps[id] = app
}
