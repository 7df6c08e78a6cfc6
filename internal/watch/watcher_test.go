package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentworkforce/notebridge/internal/engine"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []engine.Event
}

func (d *recordingDispatcher) HandleEvent(ev engine.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
}

func (d *recordingDispatcher) received() []engine.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]engine.Event(nil), d.events...)
}

func newTestWatcher(t *testing.T) (*Watcher, *recordingDispatcher, string) {
	t.Helper()
	root := t.TempDir()
	dispatcher := &recordingDispatcher{}
	w, err := New(Options{Root: root, Dispatcher: dispatcher, Debounce: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.fsw.Close() })
	return w, dispatcher, root
}

func sessionPath(root, projectID, sessionID string) string {
	return filepath.Join(root, projectID, sessionID+".jsonl")
}

func TestCreateEmitsSessionCreated(t *testing.T) {
	w, dispatcher, root := newTestWatcher(t)

	w.handleFsEvent(fsnotify.Event{
		Name: sessionPath(root, "-home-dev-code-myapp", "sess-1"),
		Op:   fsnotify.Create,
	})

	events := dispatcher.received()
	require.Len(t, events, 1)
	assert.Equal(t, engine.EventSessionCreated, events[0].Type)
	assert.Equal(t, "sess-1", events[0].Properties["sessionId"])
	assert.Equal(t, "-home-dev-code-myapp", events[0].Properties["projectId"])
}

func TestNonSessionFilesIgnored(t *testing.T) {
	w, dispatcher, root := newTestWatcher(t)

	w.handleFsEvent(fsnotify.Event{Name: filepath.Join(root, "-proj", "notes.txt"), Op: fsnotify.Create})
	w.handleFsEvent(fsnotify.Event{Name: filepath.Join(root, "-proj", "index.lock"), Op: fsnotify.Write})

	assert.Empty(t, dispatcher.received())
}

func TestWritesDebounceToSingleEvent(t *testing.T) {
	w, dispatcher, root := newTestWatcher(t)
	path := sessionPath(root, "-proj", "sess-1")

	w.handleFsEvent(fsnotify.Event{Name: path, Op: fsnotify.Create})
	for i := 0; i < 5; i++ {
		w.handleFsEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})
	}

	// Not yet due.
	w.flushPending(time.Now())
	require.Len(t, dispatcher.received(), 1, "only the create so far")

	w.flushPending(time.Now().Add(time.Second))
	events := dispatcher.received()
	require.Len(t, events, 2, "burst of writes collapses to one update")
	assert.Equal(t, engine.EventMessageUpdated, events[1].Type)
	assert.Equal(t, "sess-1", events[1].Properties["sessionId"])
}

func TestWriteToUnseenFileEmitsCreatedFirst(t *testing.T) {
	w, dispatcher, root := newTestWatcher(t)
	path := sessionPath(root, "-proj", "sess-resumed")

	w.handleFsEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})
	events := dispatcher.received()
	require.Len(t, events, 1)
	assert.Equal(t, engine.EventSessionCreated, events[0].Type)

	// Later writes to the now-known file only queue updates.
	w.handleFsEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})
	require.Len(t, dispatcher.received(), 1)
	w.flushPending(time.Now().Add(time.Second))
	events = dispatcher.received()
	require.Len(t, events, 2)
	assert.Equal(t, engine.EventMessageUpdated, events[1].Type)
}

func TestExistingSessionsAreKnownAtStartup(t *testing.T) {
	root := t.TempDir()
	projectDir := filepath.Join(root, "-proj")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	existing := filepath.Join(projectDir, "sess-old.jsonl")
	require.NoError(t, os.WriteFile(existing, []byte("{}\n"), 0o644))

	dispatcher := &recordingDispatcher{}
	w, err := New(Options{Root: root, Dispatcher: dispatcher, Debounce: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.fsw.Close() })

	w.handleFsEvent(fsnotify.Event{Name: existing, Op: fsnotify.Write})
	assert.Empty(t, dispatcher.received(), "files present at startup must not re-emit created")

	w.flushPending(time.Now().Add(time.Second))
	events := dispatcher.received()
	require.Len(t, events, 1)
	assert.Equal(t, engine.EventMessageUpdated, events[0].Type)
}
