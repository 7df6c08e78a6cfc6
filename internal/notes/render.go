// Package notes turns reconstructed conversations into markdown documents
// and derives their slugs, paths and tags. Everything here is a pure
// transform; the sync engine only consumes the outputs.
package notes

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agentworkforce/notebridge/internal/sessions"
)

type frontmatter struct {
	Title        string   `yaml:"title"`
	Project      string   `yaml:"project"`
	SessionID    string   `yaml:"session_id"`
	Created      string   `yaml:"created"`
	MessageCount int      `yaml:"message_count"`
	Tags         []string `yaml:"tags,omitempty"`
}

// RenderSummary renders the session's summary document: frontmatter, a
// short overview, and the opening user requests.
func RenderSummary(conv sessions.Conversation, tags []string) string {
	var b strings.Builder
	writeFrontmatter(&b, conv, tags)
	fmt.Fprintf(&b, "# %s\n\n", conv.Session.Title)
	fmt.Fprintf(&b, "Session in **%s**", conv.ProjectName)
	if !conv.Session.CreatedAt.IsZero() {
		fmt.Fprintf(&b, " started %s", conv.Session.CreatedAt.UTC().Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, ", %d messages.\n", conv.Session.MessageCount)

	requests := leadingUserRequests(conv.Entries, 5)
	if len(requests) > 0 {
		b.WriteString("\n## Requests\n\n")
		for _, request := range requests {
			fmt.Fprintf(&b, "- %s\n", firstLine(request))
		}
	}

	tools := toolUsage(conv.Entries)
	if len(tools) > 0 {
		b.WriteString("\n## Tools used\n\n")
		for _, tool := range tools {
			fmt.Fprintf(&b, "- %s\n", tool)
		}
	}
	return b.String()
}

// RenderTranscript renders the full conversation log.
func RenderTranscript(conv sessions.Conversation) string {
	var b strings.Builder
	writeFrontmatter(&b, conv, nil)
	fmt.Fprintf(&b, "# %s (transcript)\n", conv.Session.Title)
	for _, entry := range conv.Entries {
		b.WriteString("\n")
		switch {
		case entry.ToolName != "":
			fmt.Fprintf(&b, "**tool: %s**\n", entry.ToolName)
			if entry.ToolInput != "" {
				fmt.Fprintf(&b, "```json\n%s\n```\n", entry.ToolInput)
			}
		default:
			fmt.Fprintf(&b, "**%s**\n\n%s\n", entry.Role, entry.Content)
		}
	}
	return b.String()
}

func writeFrontmatter(b *strings.Builder, conv sessions.Conversation, tags []string) {
	fm := frontmatter{
		Title:        conv.Session.Title,
		Project:      conv.ProjectName,
		SessionID:    conv.Session.ID,
		MessageCount: conv.Session.MessageCount,
		Tags:         tags,
	}
	if !conv.Session.CreatedAt.IsZero() {
		fm.Created = conv.Session.CreatedAt.UTC().Format(time.RFC3339)
	}
	data, err := yaml.Marshal(fm)
	if err != nil {
		// yaml.Marshal of a plain struct does not fail; keep the document
		// renderable regardless.
		data = []byte("title: " + conv.Session.Title + "\n")
	}
	b.WriteString("---\n")
	b.Write(data)
	b.WriteString("---\n\n")
}

func leadingUserRequests(entries []sessions.Entry, limit int) []string {
	var requests []string
	for _, entry := range entries {
		if entry.Role != "user" {
			continue
		}
		requests = append(requests, entry.Content)
		if len(requests) >= limit {
			break
		}
	}
	return requests
}

func toolUsage(entries []sessions.Entry) []string {
	seen := map[string]struct{}{}
	var tools []string
	for _, entry := range entries {
		if entry.ToolName == "" {
			continue
		}
		if _, ok := seen[entry.ToolName]; ok {
			continue
		}
		seen[entry.ToolName] = struct{}{}
		tools = append(tools, entry.ToolName)
	}
	return tools
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)
	if len(text) > 120 {
		text = strings.TrimSpace(text[:120]) + "..."
	}
	return text
}
