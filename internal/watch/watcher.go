// Package watch turns filesystem activity in the session store into
// lifecycle events. It is the daemon's event source when no external
// notifier posts to the HTTP API.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/agentworkforce/notebridge/internal/engine"
)

// Dispatcher receives the derived events. Satisfied by *engine.Engine.
type Dispatcher interface {
	HandleEvent(ev engine.Event)
}

type Options struct {
	// Root is the session store directory: <root>/<projectID>/<sessionID>.jsonl.
	Root       string
	Dispatcher Dispatcher
	// Debounce batches rapid writes to one session file into a single
	// message.updated event. Default 2s.
	Debounce time.Duration
}

// Watcher tails the session store with fsnotify. Project directories are
// added to the watch as they appear; writes are debounced per session so
// a burst of appends yields one event.
type Watcher struct {
	root       string
	dispatcher Dispatcher
	debounce   time.Duration

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]pendingWrite
	known   map[string]struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

type pendingWrite struct {
	projectID string
	sessionID string
	lastWrite time.Time
}

func New(opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	w := &Watcher{
		root:       filepath.Clean(opts.Root),
		dispatcher: opts.Dispatcher,
		debounce:   debounce,
		fsw:        fsw,
		pending:    map[string]pendingWrite{},
		known:      map[string]struct{}{},
	}
	if err := w.addExistingDirs(); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addExistingDirs() error {
	if err := w.fsw.Add(w.root); err != nil {
		return err
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := w.fsw.Add(filepath.Join(w.root, entry.Name())); err != nil {
			log.WithError(err).WithField("dir", entry.Name()).Warn("failed to watch project directory")
		}
	}
	// Session files already on disk are known; only new ones produce
	// session.created.
	matches, _ := filepath.Glob(filepath.Join(w.root, "*", "*.jsonl"))
	for _, match := range matches {
		w.known[match] = struct{}{}
	}
	return nil
}

func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.run(ctx)
}

func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.done != nil {
		<-w.done
	}
	_ = w.fsw.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("filesystem watch error")
		case now := <-ticker.C:
			w.flushPending(now)
		}
	}
}

func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if filepath.Dir(event.Name) == w.root {
				if err := w.fsw.Add(event.Name); err != nil {
					log.WithError(err).WithField("dir", event.Name).Warn("failed to watch project directory")
				}
			}
			return
		}
	}

	if !strings.HasSuffix(event.Name, ".jsonl") {
		return
	}
	projectID := filepath.Base(filepath.Dir(event.Name))
	sessionID := strings.TrimSuffix(filepath.Base(event.Name), ".jsonl")
	if projectID == "" || sessionID == "" {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Create):
		w.markKnown(event.Name)
		w.dispatcher.HandleEvent(engine.Event{
			Type: engine.EventSessionCreated,
			Properties: map[string]any{
				"sessionId": sessionID,
				"projectId": projectID,
			},
		})
	case event.Op.Has(fsnotify.Write):
		if w.firstSight(event.Name) {
			// A write to a file we never saw created, likely one that
			// appeared while the watch was down.
			w.dispatcher.HandleEvent(engine.Event{
				Type: engine.EventSessionCreated,
				Properties: map[string]any{
					"sessionId": sessionID,
					"projectId": projectID,
				},
			})
		}
		w.recordWrite(event.Name, projectID, sessionID)
	}
}

func (w *Watcher) markKnown(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.known[path] = struct{}{}
}

func (w *Watcher) firstSight(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.known[path]; ok {
		return false
	}
	w.known[path] = struct{}{}
	return true
}

func (w *Watcher) recordWrite(path, projectID, sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = pendingWrite{
		projectID: projectID,
		sessionID: sessionID,
		lastWrite: time.Now(),
	}
}

// flushPending emits message.updated for session files quiet for a full
// debounce window.
func (w *Watcher) flushPending(now time.Time) {
	w.mu.Lock()
	var due []pendingWrite
	for path, pending := range w.pending {
		if now.Sub(pending.lastWrite) >= w.debounce {
			due = append(due, pending)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, pending := range due {
		w.dispatcher.HandleEvent(engine.Event{
			Type: engine.EventMessageUpdated,
			Properties: map[string]any{
				"sessionId": pending.sessionID,
				"projectId": pending.projectID,
			},
		})
	}
}
