package engine

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/agentworkforce/notebridge/internal/notes"
	"github.com/agentworkforce/notebridge/internal/queue"
	"github.com/agentworkforce/notebridge/internal/tracker"
)

// renameCascade reacts to a title change. If the slug stays the same the
// new title is recorded and nothing else happens. Otherwise deletes for
// every document under the old slug are queued, the entry is repointed at
// the new path, and the next content sync fills it in. The cascade never
// writes the new documents itself; all ordering runs through the queue.
func (e *Engine) renameCascade(sessionID, newTitle string) error {
	entry, ok := e.registry.Get(sessionID)
	if !ok {
		return fmt.Errorf("session %s is not tracked", sessionID)
	}

	newSlug := e.uniqueSlug(entry.ProjectID, notes.Slugify(newTitle), sessionID)
	if newSlug == entry.Slug {
		e.registry.Update(sessionID, func(entry *tracker.Entry) {
			entry.Title = newTitle
		})
		return nil
	}

	oldSlug := entry.Slug
	e.enqueue(queue.OpDelete,
		notes.Path(entry.ProjectName, entry.CreatedAt, oldSlug, notes.KindSummary), "")
	e.enqueue(queue.OpDelete,
		notes.Path(entry.ProjectName, entry.CreatedAt, oldSlug, notes.KindTranscript), "")
	for part := 1; part <= transcriptProbeBound; part++ {
		e.enqueue(queue.OpDelete,
			notes.Path(entry.ProjectName, entry.CreatedAt, oldSlug, notes.TranscriptPartKind(part)), "")
	}

	newPath := notes.Path(entry.ProjectName, entry.CreatedAt, newSlug, notes.KindSummary)
	e.registry.Update(sessionID, func(entry *tracker.Entry) {
		entry.Title = newTitle
		entry.Slug = newSlug
		entry.NotePath = newPath
		// Force the next sync to rewrite everything under the new slug.
		entry.LastSyncedAt = time.Time{}
		entry.TranscriptParts = 0
	})

	log.WithFields(log.Fields{
		"session": sessionID,
		"oldSlug": oldSlug,
		"newSlug": newSlug,
	}).Info("session renamed, notes repointed")
	return nil
}
