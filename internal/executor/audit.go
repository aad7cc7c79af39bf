package executor

import (
	"sync"
	"time"
)

// DefaultAuditCapacity is the number of entries kept by a CommandLog.
const DefaultAuditCapacity = 100

// AuditEntry records a single git invocation.
type AuditEntry struct {
	ID        string        `json:"id"`
	Command   string        `json:"command"`
	Args      []string      `json:"args"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	ExitCode  int           `json:"exitCode"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// CommandLog is a fixed-capacity ring buffer of audit entries.
// When full, the oldest entry is evicted.
type CommandLog struct {
	mu       sync.Mutex
	entries  []AuditEntry
	next     int
	size     int
	capacity int
}

// NewCommandLog creates a command log holding at most capacity entries.
func NewCommandLog(capacity int) *CommandLog {
	if capacity <= 0 {
		capacity = DefaultAuditCapacity
	}
	return &CommandLog{
		entries:  make([]AuditEntry, capacity),
		capacity: capacity,
	}
}

// Add appends an entry, evicting the oldest when the log is full.
func (l *CommandLog) Add(entry AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.next] = entry
	l.next = (l.next + 1) % l.capacity
	if l.size < l.capacity {
		l.size++
	}
}

// Entries returns up to limit entries, newest first, skipping the first
// offset. A limit of zero or less returns everything after offset.
func (l *CommandLog) Entries(offset, limit int) []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if offset < 0 {
		offset = 0
	}
	if offset >= l.size {
		return []AuditEntry{}
	}
	n := l.size - offset
	if limit > 0 && limit < n {
		n = limit
	}

	result := make([]AuditEntry, 0, n)
	for i := 0; i < n; i++ {
		idx := (l.next - 1 - offset - i + 2*l.capacity) % l.capacity
		result = append(result, l.entries[idx])
	}
	return result
}

// Len returns the number of entries currently held.
func (l *CommandLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Capacity returns the maximum number of entries.
func (l *CommandLog) Capacity() int {
	return l.capacity
}

// Clear removes all entries.
func (l *CommandLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make([]AuditEntry, l.capacity)
	l.next = 0
	l.size = 0
}
