package engine

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/agentworkforce/notebridge/internal/queue"
)

// ProcessTick drains the queue head-first against the note sink. Items
// run strictly in (CreatedAt, ID) order; the first failure ends the tick
// so a later write can never land before an earlier one. When the sink is
// marked unavailable a health probe gates the whole tick.
func (e *Engine) ProcessTick(ctx context.Context) {
	if !e.sink.Available() {
		if !e.sink.HealthCheck(ctx) {
			log.Debug("note sink still unavailable, deferring flush")
			return
		}
		log.Info("note sink recovered")
	}

	items, err := e.queue.ListPending()
	if err != nil {
		log.WithError(err).Error("failed to list pending writes")
		return
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		if queue.ShouldDiscard(item) {
			if err := e.queue.MarkDone(item.ID); err != nil {
				log.WithError(err).WithField("id", item.ID).Error("failed to discard exhausted item")
				return
			}
			e.discardedItems.Add(1)
			log.WithFields(log.Fields{
				"id":         item.ID,
				"operation":  item.Operation,
				"path":       item.Path,
				"retryCount": item.RetryCount,
			}).Warn("discarding write after exhausting retries")
			continue
		}

		if err := e.apply(ctx, item); err != nil {
			if recordErr := e.queue.RecordFailure(item.ID); recordErr != nil {
				log.WithError(recordErr).WithField("id", item.ID).Error("failed to record write failure")
			}
			log.WithError(err).WithFields(log.Fields{
				"id":        item.ID,
				"operation": item.Operation,
				"path":      item.Path,
			}).Warn("write failed, halting flush until next tick")
			return
		}
		if err := e.queue.MarkDone(item.ID); err != nil {
			log.WithError(err).WithField("id", item.ID).Error("failed to mark write done")
			return
		}
	}
}

func (e *Engine) apply(ctx context.Context, item queue.Item) error {
	if item.Operation == queue.OpDelete {
		return e.sink.Delete(ctx, item.Path)
	}
	return e.sink.Write(ctx, item.Path, item.Content)
}
