// Package engine is the synchronization core: it tracks live sessions,
// queues derived document writes durably, flushes them to the note sink in
// strict order, and protects against premature deletion when the upstream
// store misbehaves.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/agentworkforce/notebridge/internal/queue"
	"github.com/agentworkforce/notebridge/internal/sessions"
	"github.com/agentworkforce/notebridge/internal/sink"
	"github.com/agentworkforce/notebridge/internal/tracker"
)

const (
	// trashThreshold is the number of consecutive failed upstream reads
	// before a session's notes are quarantined. Absorbs transient I/O
	// races (a file mid-write, a housekeeping pass) without losing data
	// on a single blip.
	trashThreshold = 3
	// transcriptProbeBound caps how many transcript part paths a rename
	// or trash probes. Transcripts are size-capped upstream, so parts
	// beyond this cannot exist.
	transcriptProbeBound = 20
)

type Options struct {
	Store    *sessions.Store
	Queue    queue.Queue
	Sink     sink.Client
	Registry *tracker.Registry

	// FlushInterval drives the queue processor tick. Default 5s.
	FlushInterval time.Duration
	// PollInterval drives the deletion-guard poll. Default 30s.
	PollInterval time.Duration
	// SyncDebounce is the minimum gap between content syncs of one
	// session outside of idle/compaction flushes. Default 30s.
	SyncDebounce time.Duration
	// SplitLimit caps a single document's size before transcripts split
	// into parts.
	SplitLimit int
}

type Engine struct {
	store    *sessions.Store
	queue    queue.Queue
	sink     sink.Client
	registry *tracker.Registry

	flushInterval time.Duration
	pollInterval  time.Duration
	syncDebounce  time.Duration
	splitLimit    int

	handlerFailures atomic.Uint64
	discardedItems  atomic.Uint64

	projectNamesMu sync.Mutex
	projectNames   map[string]string

	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

type Status struct {
	QueueDepth      int    `json:"queueDepth"`
	TrackedSessions int    `json:"trackedSessions"`
	SinkAvailable   bool   `json:"sinkAvailable"`
	HandlerFailures uint64 `json:"handlerFailures"`
	DiscardedItems  uint64 `json:"discardedItems"`
}

func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if opts.Queue == nil {
		return nil, fmt.Errorf("queue is required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("sink client is required")
	}
	registry := opts.Registry
	if registry == nil {
		registry = tracker.NewRegistry()
	}
	flushInterval := opts.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	syncDebounce := opts.SyncDebounce
	if syncDebounce <= 0 {
		syncDebounce = 30 * time.Second
	}
	splitLimit := opts.SplitLimit
	if splitLimit <= 0 {
		splitLimit = defaultSplitLimit
	}
	return &Engine{
		store:         opts.Store,
		queue:         opts.Queue,
		sink:          opts.Sink,
		registry:      registry,
		flushInterval: flushInterval,
		pollInterval:  pollInterval,
		syncDebounce:  syncDebounce,
		splitLimit:    splitLimit,
		projectNames:  map[string]string{},
		now:           time.Now,
	}, nil
}

// Start launches the two periodic loops: queue flush and deletion poll.
// Stopping the returned context (or calling Stop) is the only cancellation
// primitive; in-flight calls finish and their results are discarded.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.wg.Add(2)
	go e.flushLoop(ctx)
	go e.pollLoop(ctx)
}

func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

func (e *Engine) Registry() *tracker.Registry {
	return e.registry
}

func (e *Engine) Status() Status {
	return Status{
		QueueDepth:      e.queue.Depth(),
		TrackedSessions: e.registry.Len(),
		SinkAvailable:   e.sink.Available(),
		HandlerFailures: e.handlerFailures.Load(),
		DiscardedItems:  e.discardedItems.Load(),
	}
}

func (e *Engine) flushLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.ProcessTick(ctx)
		}
	}
}

func (e *Engine) pollLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.PollOnce(ctx)
		}
	}
}

func (e *Engine) resolveProjectName(projectID string) string {
	e.projectNamesMu.Lock()
	defer e.projectNamesMu.Unlock()
	if name, ok := e.projectNames[projectID]; ok {
		return name
	}
	name := e.store.ResolveProjectName(projectID)
	e.projectNames[projectID] = name
	return name
}

func (e *Engine) enqueue(op queue.Operation, path, content string) {
	if _, err := e.queue.Enqueue(op, path, content); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"operation": op,
			"path":      path,
		}).Error("failed to enqueue write")
	}
}
