package engine

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/agentworkforce/notebridge/internal/notes"
	"github.com/agentworkforce/notebridge/internal/queue"
	"github.com/agentworkforce/notebridge/internal/tracker"
)

// PollOnce checks every tracked session against the upstream store. A
// successful read clears the session's failure counter and marks it seen.
// Reads can fail because the session was genuinely deleted or because the
// store is briefly unreadable, so a session is only trashed after
// trashThreshold consecutive failures, and never before it has been seen
// upstream at least once.
func (e *Engine) PollOnce(ctx context.Context) {
	for _, entry := range e.registry.Snapshot() {
		if ctx.Err() != nil {
			return
		}
		_, found, err := e.store.ReadSession(entry.SessionID, entry.ProjectID)
		if err == nil && found {
			e.registry.ResetFailures(entry.SessionID)
			if !entry.SeenInUpstream {
				e.registry.Update(entry.SessionID, func(entry *tracker.Entry) {
					entry.SeenInUpstream = true
				})
			}
			continue
		}

		if !entry.SeenInUpstream {
			// Never observed upstream; absence proves nothing about
			// deletion, so the counter stays untouched.
			continue
		}
		failures := e.registry.RecordFailure(entry.SessionID)
		log.WithFields(log.Fields{
			"session":  entry.SessionID,
			"failures": failures,
		}).Debug("upstream session read failed")
		if failures >= trashThreshold {
			e.trashSession(ctx, entry)
		}
	}
}

// trashSession retires a session that has disappeared upstream: the
// summary is preserved under the quarantine prefix, every live document is
// queued for deletion, and the session is dropped from tracking. The
// quarantine copy is read from the sink because the upstream source is
// already gone.
func (e *Engine) trashSession(ctx context.Context, entry tracker.Entry) {
	content, found, err := e.sink.Read(ctx, entry.NotePath)
	if err != nil {
		// Leave the entry tracked; the next poll retries the whole move.
		log.WithError(err).WithField("session", entry.SessionID).Warn("could not read summary for quarantine, retrying next poll")
		return
	}
	if found {
		e.enqueue(queue.OpCreate,
			notes.QuarantinePath(entry.ProjectName, entry.CreatedAt, entry.Slug, notes.KindSummary),
			content)
	}

	e.enqueue(queue.OpDelete, entry.NotePath, "")
	e.enqueue(queue.OpDelete,
		notes.Path(entry.ProjectName, entry.CreatedAt, entry.Slug, notes.KindTranscript), "")
	for part := 1; part <= transcriptProbeBound; part++ {
		e.enqueue(queue.OpDelete,
			notes.Path(entry.ProjectName, entry.CreatedAt, entry.Slug, notes.TranscriptPartKind(part)), "")
	}

	e.registry.Remove(entry.SessionID)
	log.WithFields(log.Fields{
		"session": entry.SessionID,
		"path":    entry.NotePath,
	}).Info("session gone upstream, notes quarantined")
}
