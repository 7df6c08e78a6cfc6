package engine

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/agentworkforce/notebridge/internal/notes"
	"github.com/agentworkforce/notebridge/internal/queue"
	"github.com/agentworkforce/notebridge/internal/sessions"
	"github.com/agentworkforce/notebridge/internal/tracker"
)

const defaultSplitLimit = notes.DefaultSplitLimit

func (e *Engine) handleSessionCreated(ev Event) error {
	sessionID := ev.stringProp("sessionId")
	projectID := ev.stringProp("projectId")
	if sessionID == "" || projectID == "" {
		return fmt.Errorf("session.created missing sessionId or projectId")
	}
	if _, ok := e.registry.Get(sessionID); ok {
		return nil
	}

	projectName := e.resolveProjectName(projectID)
	session, seen, err := e.store.ReadSession(sessionID, projectID)
	if err != nil {
		// The creation event frequently races the session's own first
		// write; fall back to the event payload.
		log.WithError(err).WithField("session", sessionID).Debug("upstream read failed on creation")
	}

	title := ev.stringProp("title")
	if title == "" {
		title = session.Title
	}
	if title == "" {
		title = sessionID
	}
	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = e.now().UTC()
	}

	slug := e.uniqueSlug(projectID, notes.Slugify(title), sessionID)
	entry := tracker.Entry{
		SessionID:      sessionID,
		ProjectID:      projectID,
		ProjectName:    projectName,
		Title:          title,
		Slug:           slug,
		NotePath:       notes.Path(projectName, createdAt, slug, notes.KindSummary),
		CreatedAt:      createdAt,
		MessageCount:   session.MessageCount,
		SeenInUpstream: seen,
	}
	e.registry.Put(entry)
	if seen {
		e.registry.ResetFailures(sessionID)
	}

	conv := sessions.Conversation{Session: session, ProjectName: projectName}
	conv.Session.ID = sessionID
	conv.Session.ProjectID = projectID
	conv.Session.Title = title
	conv.Session.CreatedAt = createdAt
	e.enqueue(queue.OpCreate, entry.NotePath, notes.RenderSummary(conv, nil))

	log.WithFields(log.Fields{
		"session": sessionID,
		"project": projectName,
		"path":    entry.NotePath,
	}).Info("tracking new session")
	return nil
}

func (e *Engine) handleSessionUpdated(ev Event) error {
	sessionID := ev.stringProp("sessionId")
	if sessionID == "" {
		return fmt.Errorf("session.updated missing sessionId")
	}
	entry, ok := e.registry.Get(sessionID)
	if !ok {
		// Update for a session created before this process started.
		return e.handleSessionCreated(ev)
	}

	title := ev.stringProp("title")
	if title == "" {
		if session, found, err := e.store.ReadSession(sessionID, entry.ProjectID); err == nil && found {
			title = session.Title
		}
	}
	if title != "" && title != entry.Title {
		if err := e.renameCascade(sessionID, title); err != nil {
			return err
		}
	}
	return e.syncContent(sessionID, false)
}

func (e *Engine) handleSessionIdle(ev Event) error {
	sessionID := ev.stringProp("sessionId")
	if sessionID == "" {
		return fmt.Errorf("session.idle missing sessionId")
	}
	return e.syncContent(sessionID, true)
}

func (e *Engine) handleSessionCompacting(ev Event) error {
	sessionID := ev.stringProp("sessionId")
	if sessionID == "" {
		return fmt.Errorf("session.compacting missing sessionId")
	}
	// Flush before compaction rewrites the upstream record.
	return e.syncContent(sessionID, true)
}

func (e *Engine) handleMessageUpdated(ev Event) error {
	sessionID := ev.stringProp("sessionId")
	if sessionID == "" {
		return fmt.Errorf("message.updated missing sessionId")
	}
	if count, ok := ev.Properties["messageCount"].(float64); ok {
		e.registry.Update(sessionID, func(entry *tracker.Entry) {
			entry.MessageCount = int(count)
		})
	}
	return e.syncContent(sessionID, false)
}

// syncContent re-renders a session's documents and queues updates. Unless
// force is set, syncs are debounced per session.
func (e *Engine) syncContent(sessionID string, force bool) error {
	entry, ok := e.registry.Get(sessionID)
	if !ok {
		return fmt.Errorf("session %s is not tracked", sessionID)
	}
	if !force && !entry.LastSyncedAt.IsZero() && e.now().Sub(entry.LastSyncedAt) < e.syncDebounce {
		return nil
	}

	conv, found, err := e.store.ReconstructConversation(sessionID, entry.ProjectID)
	if err != nil {
		return fmt.Errorf("reconstruct %s: %w", sessionID, err)
	}
	if !found {
		// Momentarily unreadable upstream record; the deletion guard owns
		// disappearance, content sync just waits.
		log.WithField("session", sessionID).Debug("session unreadable; skipping content sync")
		return nil
	}
	e.registry.ResetFailures(sessionID)

	tags := notes.ExtractTags(conv)
	e.enqueue(queue.OpUpdate, entry.NotePath, notes.RenderSummary(conv, tags))

	transcript := notes.RenderTranscript(conv)
	parts := notes.Split(transcript, e.splitLimit)
	if len(parts) == 1 {
		e.enqueue(queue.OpUpdate,
			notes.Path(entry.ProjectName, entry.CreatedAt, entry.Slug, notes.KindTranscript),
			parts[0].Content)
	} else {
		for _, part := range parts {
			e.enqueue(queue.OpUpdate,
				notes.Path(entry.ProjectName, entry.CreatedAt, entry.Slug, notes.TranscriptPartKind(part.PartNumber)),
				part.Content)
		}
	}
	e.clearStaleTranscripts(entry, len(parts))

	e.registry.Update(sessionID, func(entry *tracker.Entry) {
		entry.MessageCount = conv.Session.MessageCount
		entry.LastSyncedAt = e.now()
		entry.TranscriptParts = len(parts)
		entry.SeenInUpstream = true
	})
	return nil
}

// clearStaleTranscripts removes part documents left behind when a
// transcript shrinks or collapses back to a single document.
func (e *Engine) clearStaleTranscripts(entry tracker.Entry, newParts int) {
	prev := entry.TranscriptParts
	if prev <= newParts {
		if newParts > 1 && prev == 1 {
			// Single document superseded by parts.
			e.enqueue(queue.OpDelete,
				notes.Path(entry.ProjectName, entry.CreatedAt, entry.Slug, notes.KindTranscript), "")
		}
		return
	}
	if newParts == 1 {
		for part := 1; part <= prev; part++ {
			e.enqueue(queue.OpDelete,
				notes.Path(entry.ProjectName, entry.CreatedAt, entry.Slug, notes.TranscriptPartKind(part)), "")
		}
		return
	}
	for part := newParts + 1; part <= prev; part++ {
		e.enqueue(queue.OpDelete,
			notes.Path(entry.ProjectName, entry.CreatedAt, entry.Slug, notes.TranscriptPartKind(part)), "")
	}
}

// uniqueSlug keeps slugs collision-free among live sessions of the same
// project by suffixing a counter.
func (e *Engine) uniqueSlug(projectID, slug, sessionID string) string {
	if !e.registry.HasSlug(projectID, slug, sessionID) {
		return slug
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", slug, i)
		if !e.registry.HasSlug(projectID, candidate, sessionID) {
			return candidate
		}
	}
}
