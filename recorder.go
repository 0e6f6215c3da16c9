package photoshare

import (
	"sync"
)

// DefaultRecorderCapacity bounds a Recorder created with capacity <= 0.
const DefaultRecorderCapacity = 100

// Recorder is a Notifier that keeps the most recent notifications in memory.
// It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	capacity int
	entries  []Notification
	next     Notifier
}

// NewRecorder returns a Recorder holding at most capacity notifications. When
// next is not nil every notification is forwarded to it.
func NewRecorder(capacity int, next Notifier) *Recorder {
	if capacity <= 0 {
		capacity = DefaultRecorderCapacity
	}
	return &Recorder{capacity: capacity, next: next}
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	if len(r.entries) == r.capacity {
		copy(r.entries, r.entries[1:])
		r.entries = r.entries[:len(r.entries)-1]
	}
	r.entries = append(r.entries, n)
	r.mu.Unlock()

	if r.next != nil {
		r.next.Notify(n)
	}
}

// Entries returns a copy of the recorded notifications, oldest first.
func (r *Recorder) Entries() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.entries))
	copy(out, r.entries)
	return out
}

// Kinds returns the kinds of the recorded notifications, oldest first.
func (r *Recorder) Kinds() []NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NotificationKind, 0, len(r.entries))
	for _, n := range r.entries {
		out = append(out, n.Kind)
	}
	return out
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return Notification{}, false
	}
	return r.entries[len(r.entries)-1], true
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}
