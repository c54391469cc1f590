package memory

import (
	"context"
	"sync"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
)

// ApplicationDirectory is an in-memory stand-in for the recruitment API's
// application listing (useful for tests/demos).
type ApplicationDirectory struct {
	mu    sync.RWMutex
	order []string
	apps  map[string]domain.Application
}

func NewApplicationDirectory(apps []domain.Application) *ApplicationDirectory {
	d := &ApplicationDirectory{apps: make(map[string]domain.Application, len(apps))}
	for _, app := range apps {
		d.order = append(d.order, app.ID)
		d.apps[app.ID] = app.Clone()
	}
	return d
}

func (d *ApplicationDirectory) ListApplications(_ context.Context) ([]domain.Application, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Application, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.apps[id].Clone())
	}
	return out, nil
}

func (d *ApplicationDirectory) Lookup(id string) (domain.Application, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	app, ok := d.apps[id]
	return app.Clone(), ok
}

func (d *ApplicationDirectory) complete(id string, result domain.ScoreResult, answered int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	app, ok := d.apps[id]
	if !ok {
		return
	}
	app.Completed = true
	app.Score = domain.FloatPtr(result.Score)
	app.Passed = domain.BoolPtr(result.Passed)
	app.AnsweredQuestions = domain.IntPtr(answered)
	d.apps[id] = app
}
