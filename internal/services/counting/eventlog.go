package counting

import (
	"sync"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

// EventLog is the ordered, append-only record of a camera's crossings.
// The owning job appends; API readers take copies.
type EventLog struct {
	mu     sync.RWMutex
	events []models.CrossingEvent
}

func (l *EventLog) Append(ev models.CrossingEvent) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

// Events returns a copy of the whole log
func (l *EventLog) Events() []models.CrossingEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.CrossingEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Last returns up to n most recent events, newest last
func (l *EventLog) Last(n int) []models.CrossingEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.events) {
		n = len(l.events)
	}
	out := make([]models.CrossingEvent, n)
	copy(out, l.events[len(l.events)-n:])
	return out
}

func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Clear empties the log on restart
func (l *EventLog) Clear() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}
