// Package sessions reads agent session records from their on-disk JSONL
// store. Files may be mid-write or already removed; readers tolerate
// truncated trailing lines and report absence instead of failing.
package sessions

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Session is the upstream unit of work notebridge derives notes from.
type Session struct {
	ID           string
	ProjectID    string
	Title        string
	CreatedAt    time.Time
	MessageCount int
}

type Message struct {
	Role      string
	Content   string
	Timestamp time.Time
}

// Entry is one conversation step: a message or a tool interaction.
type Entry struct {
	Role      string
	Content   string
	ToolName  string
	ToolInput string
	Timestamp time.Time
}

type Conversation struct {
	Session     Session
	ProjectName string
	ProjectPath string
	Entries     []Entry
}

// Store reads sessions from <root>/<projectID>/<sessionID>.jsonl. The
// project directory name encodes the project's absolute path with dashes
// substituted for separators.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(strings.TrimSpace(root))}
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) sessionFile(projectID, sessionID string) string {
	return filepath.Join(s.root, projectID, sessionID+".jsonl")
}

// ReadSession parses the session file's records into metadata. The second
// return is false when the session is absent or unreadable.
func (s *Store) ReadSession(sessionID, projectID string) (Session, bool, error) {
	records, err := readRecords(s.sessionFile(projectID, sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, false, nil
		}
		return Session{}, false, err
	}
	if len(records) == 0 {
		return Session{}, false, nil
	}
	session := Session{ID: sessionID, ProjectID: projectID}
	for _, record := range records {
		applyRecord(&session, record)
	}
	if session.Title == "" {
		session.Title = sessionID
	}
	return session, true, nil
}

// ReadMessages returns the conversational messages of a session in file
// order.
func (s *Store) ReadMessages(sessionID, projectID string) ([]Message, error) {
	records, err := readRecords(s.sessionFile(projectID, sessionID))
	if err != nil {
		return nil, err
	}
	messages := make([]Message, 0, len(records))
	for _, record := range records {
		for _, entry := range recordEntries(record) {
			if entry.Role == "user" || entry.Role == "assistant" {
				messages = append(messages, Message{
					Role:      entry.Role,
					Content:   entry.Content,
					Timestamp: entry.Timestamp,
				})
			}
		}
	}
	return messages, nil
}

// ResolveProjectName decodes the project directory name to the project's
// base directory name.
func (s *Store) ResolveProjectName(projectID string) string {
	decoded := decodeProjectPath(projectID)
	if decoded == "" {
		return strings.TrimSpace(projectID)
	}
	return filepath.Base(decoded)
}

// ReconstructConversation reads a session's full conversation: entries,
// session metadata, and the resolved project name and path.
func (s *Store) ReconstructConversation(sessionID, projectID string) (Conversation, bool, error) {
	session, ok, err := s.ReadSession(sessionID, projectID)
	if err != nil || !ok {
		return Conversation{}, false, err
	}
	records, err := readRecords(s.sessionFile(projectID, sessionID))
	if err != nil {
		return Conversation{}, false, err
	}
	conv := Conversation{
		Session:     session,
		ProjectName: s.ResolveProjectName(projectID),
		ProjectPath: decodeProjectPath(projectID),
	}
	for _, record := range records {
		conv.Entries = append(conv.Entries, recordEntries(record)...)
	}
	return conv, true, nil
}

// decodeProjectPath reverses the dash encoding of a project directory
// name: "-home-dev-code-myapp" becomes "/home/dev/code/myapp". Names that
// do not carry the leading dash are returned empty.
func decodeProjectPath(projectID string) string {
	projectID = strings.TrimSpace(projectID)
	if !strings.HasPrefix(projectID, "-") {
		return ""
	}
	decoded := strings.ReplaceAll(projectID, "-", "/")
	if decoded == "" || decoded == "/" {
		return ""
	}
	return filepath.Clean(decoded)
}
