package audit

import (
	"sync"

	"github.com/casbridge/casbridge/internal/core"
)

// maxRetainedEntries bounds the in-memory audit buffer. Session traffic is
// unbounded, so without a cap a long-running dev instance would grow
// forever; oldest entries are dropped first.
const maxRetainedEntries = 10000

var _ core.Auditor = (*InMemoryAuditor)(nil)

// InMemoryAuditor keeps the newest audit entries in a bounded in-process
// buffer. For development and tests; entries do not survive a restart.
type InMemoryAuditor struct {
	mu      sync.Mutex
	entries []core.AuditEntry
}

func NewInMemoryAuditor() *InMemoryAuditor {
	return &InMemoryAuditor{
		entries: make([]core.AuditEntry, 0),
	}
}

func (i *InMemoryAuditor) Log(entry core.AuditEntry) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.entries = append(i.entries, entry)
	if len(i.entries) > maxRetainedEntries {
		i.entries = i.entries[len(i.entries)-maxRetainedEntries:]
	}
	return nil
}

// GetRecent returns up to limit entries, newest last.
func (i *InMemoryAuditor) GetRecent(limit int) ([]core.AuditEntry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if limit > len(i.entries) {
		limit = len(i.entries)
	}
	start := len(i.entries) - limit
	entries := make([]core.AuditEntry, limit)
	copy(entries, i.entries[start:])

	return entries, nil
}

// Find returns up to limit matching entries, newest last. It walks the
// buffer backwards so the newest matches win when more than limit match.
func (i *InMemoryAuditor) Find(filter func(entry core.AuditEntry) bool, limit int) ([]core.AuditEntry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var matches []core.AuditEntry
	for idx := len(i.entries) - 1; idx >= 0 && len(matches) < limit; idx-- {
		if filter(i.entries[idx]) {
			matches = append(matches, i.entries[idx])
		}
	}

	// reverse into chronological order
	for a, b := 0, len(matches)-1; a < b; a, b = a+1, b-1 {
		matches[a], matches[b] = matches[b], matches[a]
	}
	return matches, nil
}

func (i *InMemoryAuditor) Close() error {
	return nil // nothing to close
}
