package scoring

import (
	"sync"
	"time"

	"github.com/aimd54/fanscore/internal/models"
)

// ActionWindow is a process-local sliding log of recent actions per (user, kind).
// It is a soft abuse throttle and is lost on restart.
type ActionWindow struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	actions map[string][]time.Time
}

// NewActionWindow allows at most limit actions per (user, kind) within window.
func NewActionWindow(limit int, window time.Duration, now func() time.Time) *ActionWindow {
	if now == nil {
		now = time.Now
	}
	return &ActionWindow{
		limit:   limit,
		window:  window,
		now:     now,
		actions: make(map[string][]time.Time),
	}
}

func windowKey(userID string, kind models.EngagementKind) string {
	return userID + "|" + string(kind)
}

// trim keeps the timestamps strictly inside the window ending at now.
func (w *ActionWindow) trim(times []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}

// Allow reports whether another action of kind by userID fits in the window.
func (w *ActionWindow) Allow(userID string, kind models.EngagementKind) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := windowKey(userID, kind)
	recent := w.trim(w.actions[key], w.now())
	if len(recent) == 0 {
		delete(w.actions, key)
	} else {
		w.actions[key] = recent
	}
	return len(recent) < w.limit
}

// Record appends an action at the current time.
func (w *ActionWindow) Record(userID string, kind models.EngagementKind) {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := windowKey(userID, kind)
	now := w.now()
	w.actions[key] = append(w.trim(w.actions[key], now), now)
}

// Prune drops every expired timestamp and returns the number of keys still tracked.
func (w *ActionWindow) Prune() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for key, times := range w.actions {
		recent := w.trim(times, now)
		if len(recent) == 0 {
			delete(w.actions, key)
			continue
		}
		w.actions[key] = recent
	}
	return len(w.actions)
}

// Reset forgets every recorded action.
func (w *ActionWindow) Reset() {
	w.mu.Lock()
	w.actions = make(map[string][]time.Time)
	w.mu.Unlock()
}
