package bot

import (
	"fmt"
	"sync"
	"time"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event is one line of the bot activity feed shown to users.
type Event struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

// ActivityLog is a bounded ring of recent events. Writers come from the
// loops and user-triggered operations; readers are UI snapshots.
type ActivityLog struct {
	mu     sync.Mutex
	max    int
	events []Event
	now    func() time.Time
}

const DefaultActivityCapacity = 50

func NewActivityLog(max int) *ActivityLog {
	if max <= 0 {
		max = DefaultActivityCapacity
	}
	return &ActivityLog{max: max, now: time.Now}
}

func (l *ActivityLog) Add(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, Event{
		Time:    l.now(),
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
	if len(l.events) > l.max {
		l.events = l.events[len(l.events)-l.max:]
	}
}

// Events returns the retained events, oldest first.
func (l *ActivityLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}
