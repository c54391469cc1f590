package app

import (
	"fmt"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
)

// Owner names the timer holding expiry authority for one application.
type Owner string

const (
	OwnerNone      Owner = "none"
	OwnerDashboard Owner = "dashboard"
	OwnerSession   Owner = "session"
)

// SignalKind enumerates what a countdown pass produced for an application.
type SignalKind string

const (
	SignalTick    SignalKind = "tick"
	SignalWarning SignalKind = "warning"
	SignalExpired SignalKind = "expired"
)

// Signal is emitted by Coordinator.Tick. Only the authoritative timer emits
// warning and expired signals.
type Signal struct {
	Kind          SignalKind
	ApplicationID string
	Remaining     time.Duration
	Owner         Owner
}

type countdown struct {
	window Window
	owner  Owner
	warned bool
	fired  bool
}

// Coordinator keeps one countdown per outstanding application and tracks which
// timer owns expiry for each of them.
//
// Transitions:
//
//	Track               none      -> dashboard
//	EnterSession        dashboard -> session
//	LeaveSession        session   -> dashboard (incomplete) | none (completed)
//	Complete            *         -> none
//
// Coordinator is not safe for concurrent use; the engine drives it from its loop.
type Coordinator struct {
	loc     *time.Location
	warnAt  time.Duration
	entries map[string]*countdown
	stopped bool
}

func NewCoordinator(loc *time.Location, warnAt time.Duration) *Coordinator {
	if warnAt <= 0 {
		warnAt = 60 * time.Second
	}
	return &Coordinator{
		loc:     loc,
		warnAt:  warnAt,
		entries: make(map[string]*countdown),
	}
}

// Track creates countdowns for outstanding applications and drops countdowns for
// applications that were completed or are no longer applicable.
func (c *Coordinator) Track(apps []domain.Application) {
	if c.stopped {
		return
	}
	seen := make(map[string]struct{}, len(apps))
	for _, app := range apps {
		if !Outstanding(app, c.loc) {
			continue
		}
		seen[app.ID] = struct{}{}
		w, _ := WindowFor(app, c.loc)
		if entry, ok := c.entries[app.ID]; ok {
			entry.window = w
			continue
		}
		c.entries[app.ID] = &countdown{window: w, owner: OwnerDashboard}
	}
	for id, entry := range c.entries {
		if _, ok := seen[id]; ok {
			continue
		}
		// the open session keeps its timer until it leaves
		if entry.owner == OwnerSession {
			continue
		}
		delete(c.entries, id)
	}
}

// EnterSession hands authority for appID to the session timer.
func (c *Coordinator) EnterSession(appID string) error {
	entry, ok := c.entries[appID]
	if !ok || c.stopped {
		return fmt.Errorf("no countdown for %s: %w", appID, domain.ErrNotAvailable)
	}
	if entry.fired {
		return fmt.Errorf("countdown for %s: %w", appID, domain.ErrWindowExpired)
	}
	entry.owner = OwnerSession
	entry.warned = false
	return nil
}

// LeaveSession returns authority to the dashboard, or removes the countdown when
// the application was completed.
func (c *Coordinator) LeaveSession(appID string, completed bool) {
	entry, ok := c.entries[appID]
	if !ok {
		return
	}
	if completed {
		delete(c.entries, appID)
		return
	}
	entry.owner = OwnerDashboard
}

// Complete removes the countdown for appID.
func (c *Coordinator) Complete(appID string) {
	delete(c.entries, appID)
}

// Owner reports who holds expiry authority for appID.
func (c *Coordinator) Owner(appID string) Owner {
	if entry, ok := c.entries[appID]; ok {
		return entry.owner
	}
	return OwnerNone
}

// Remaining reports the remaining time for appID at now.
func (c *Coordinator) Remaining(appID string, now time.Time) (time.Duration, bool) {
	entry, ok := c.entries[appID]
	if !ok {
		return 0, false
	}
	return entry.window.Remaining(now), true
}

// Len reports how many countdowns are live.
func (c *Coordinator) Len() int {
	return len(c.entries)
}

// Tick advances every countdown using one shared now sample.
func (c *Coordinator) Tick(now time.Time) []Signal {
	if c.stopped {
		return nil
	}
	signals := make([]Signal, 0, len(c.entries))
	for id, entry := range c.entries {
		if entry.fired {
			continue
		}
		remaining := entry.window.Remaining(now)
		if now.Before(entry.window.Start) {
			signals = append(signals, Signal{Kind: SignalTick, ApplicationID: id, Remaining: remaining, Owner: entry.owner})
			continue
		}
		if remaining <= 0 {
			entry.fired = true
			signals = append(signals, Signal{Kind: SignalExpired, ApplicationID: id, Remaining: 0, Owner: entry.owner})
			continue
		}
		signals = append(signals, Signal{Kind: SignalTick, ApplicationID: id, Remaining: remaining, Owner: entry.owner})
		if entry.owner == OwnerSession && !entry.warned && remaining <= c.warnAt {
			entry.warned = true
			signals = append(signals, Signal{Kind: SignalWarning, ApplicationID: id, Remaining: remaining, Owner: entry.owner})
		}
	}
	return signals
}

// Stop cancels every countdown; later calls to Tick return nothing.
func (c *Coordinator) Stop() {
	c.stopped = true
	c.entries = make(map[string]*countdown)
}
