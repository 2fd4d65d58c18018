package errors

import (
	"sync"
	"time"
)

// maxRecorded bounds the rolling diagnostic log.
const maxRecorded = 100

// Entry is a recorded classification of a handled error.
type Entry struct {
	Code      ErrorCode
	Op        Operation
	Component string
	Message   string
	Timestamp time.Time
}

// Recorder keeps a rolling in-memory log of the last 100 classified errors
// for diagnostics. It is an explicit object owned by the application
// lifecycle, not package-level state. The log is not persisted across
// restarts.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// Record classifies err and appends it to the rolling log. It returns the
// recorded entry so callers can surface the category message.
func (r *Recorder) Record(err error) Entry {
	entry := Entry{
		Code:    CodeOf(err),
		Message: err.Error(),
	}

	var appErr *AppError
	if As(err, &appErr) {
		entry.Op = appErr.Op
		entry.Component = appErr.Component
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry.Timestamp = r.now()
	r.entries = append(r.entries, entry)
	if len(r.entries) > maxRecorded {
		r.entries = r.entries[len(r.entries)-maxRecorded:]
	}

	return entry
}

// Recent returns up to n of the most recent entries, newest last.
func (r *Recorder) Recent(n int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || n > len(r.entries) {
		n = len(r.entries)
	}
	out := make([]Entry, n)
	copy(out, r.entries[len(r.entries)-n:])
	return out
}

// Stats returns a count of recorded errors per code.
func (r *Recorder) Stats() map[ErrorCode]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make(map[ErrorCode]int)
	for _, e := range r.entries {
		stats[e.Code]++
	}
	return stats
}

// Len returns the number of entries currently held.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Clear drops all recorded entries.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}
