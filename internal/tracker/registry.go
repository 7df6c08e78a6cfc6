// Package tracker holds the in-memory registry of live sessions and their
// deletion-protection counters. The registry is the single owner of this
// state; handlers and the poll loop mutate it only through its methods.
package tracker

import (
	"sync"
	"time"
)

// Entry is the derived bookkeeping for one tracked session.
type Entry struct {
	SessionID   string
	ProjectID   string
	ProjectName string
	Title       string
	Slug        string
	// NotePath is the summary document path. Recomputed, never edited in
	// place, whenever Slug changes.
	NotePath        string
	CreatedAt       time.Time
	MessageCount    int
	LastSyncedAt    time.Time
	TranscriptParts int
	// SeenInUpstream is true once any upstream read of the session has
	// succeeded since tracking began. A session is never trashed before
	// it has been observed at least once.
	SeenInUpstream bool
}

type Registry struct {
	mu       sync.Mutex
	entries  map[string]Entry
	failures map[string]int
}

func NewRegistry() *Registry {
	return &Registry{
		entries:  map[string]Entry{},
		failures: map[string]int{},
	}
}

func (r *Registry) Put(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.SessionID] = entry
}

func (r *Registry) Get(sessionID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[sessionID]
	return entry, ok
}

// Update applies fn to the entry under the registry lock. Returns false if
// the session is not tracked.
func (r *Registry) Update(sessionID string, fn func(*Entry)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[sessionID]
	if !ok {
		return false
	}
	fn(&entry)
	r.entries[sessionID] = entry
	return true
}

// Remove drops the session and its failure counter.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sessionID)
	delete(r.failures, sessionID)
}

func (r *Registry) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	return entries
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// HasSlug reports whether another tracked session in the same project
// already uses slug.
func (r *Registry) HasSlug(projectID, slug, excludeSessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, entry := range r.entries {
		if id == excludeSessionID {
			continue
		}
		if entry.ProjectID == projectID && entry.Slug == slug {
			return true
		}
	}
	return false
}

// RecordFailure increments the consecutive failed-read counter and returns
// the new value.
func (r *Registry) RecordFailure(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[sessionID]++
	return r.failures[sessionID]
}

// ResetFailures clears the counter after any successful upstream read.
func (r *Registry) ResetFailures(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.failures, sessionID)
}

func (r *Registry) Failures(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures[sessionID]
}

// Reset clears all state. Test hook only.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = map[string]Entry{}
	r.failures = map[string]int{}
}
