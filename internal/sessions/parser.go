package sessions

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"time"
)

const maxRecordBytes = 4 * 1024 * 1024

// readRecords parses a JSONL session file. Lines that fail to parse are
// skipped: the writer may still be appending the final record.
func readRecords(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxRecordBytes)
	var records []map[string]any
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return records, err
	}
	return records, nil
}

func applyRecord(session *Session, record map[string]any) {
	if ts := recordTimestamp(record); !ts.IsZero() {
		if session.CreatedAt.IsZero() || ts.Before(session.CreatedAt) {
			session.CreatedAt = ts
		}
	}
	switch asString(record["type"]) {
	case "summary":
		if summary := strings.TrimSpace(asString(record["summary"])); summary != "" {
			session.Title = summary
		}
	case "user":
		session.MessageCount++
		if session.Title == "" {
			if text := firstUserText(record); text != "" {
				session.Title = truncateTitle(text)
			}
		}
	case "assistant":
		session.MessageCount++
	}
}

// recordEntries flattens a record into conversation entries: plain
// messages plus tool invocations and their results.
func recordEntries(record map[string]any) []Entry {
	ts := recordTimestamp(record)
	switch asString(record["type"]) {
	case "user":
		return userEntries(record, ts)
	case "assistant":
		return assistantEntries(record, ts)
	case "system":
		content := strings.TrimSpace(asString(record["content"]))
		if content == "" {
			return nil
		}
		return []Entry{{Role: "system", Content: content, Timestamp: ts}}
	}
	return nil
}

func userEntries(record map[string]any, ts time.Time) []Entry {
	msg, _ := record["message"].(map[string]any)
	if msg == nil {
		return nil
	}
	if text, ok := msg["content"].(string); ok {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil
		}
		return []Entry{{Role: "user", Content: text, Timestamp: ts}}
	}
	blocks, ok := msg["content"].([]any)
	if !ok {
		return nil
	}
	var entries []Entry
	for _, raw := range blocks {
		block, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch asString(block["type"]) {
		case "text":
			if text := strings.TrimSpace(asString(block["text"])); text != "" {
				entries = append(entries, Entry{Role: "user", Content: text, Timestamp: ts})
			}
		case "tool_result":
			if text := toolResultText(block); text != "" {
				entries = append(entries, Entry{Role: "tool", Content: text, Timestamp: ts})
			}
		}
	}
	return entries
}

func assistantEntries(record map[string]any, ts time.Time) []Entry {
	msg, _ := record["message"].(map[string]any)
	if msg == nil {
		return nil
	}
	blocks, ok := msg["content"].([]any)
	if !ok {
		return nil
	}
	var entries []Entry
	var textParts []string
	for _, raw := range blocks {
		block, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch asString(block["type"]) {
		case "text":
			if text := strings.TrimSpace(asString(block["text"])); text != "" {
				textParts = append(textParts, text)
			}
		case "tool_use":
			name := asString(block["name"])
			if name == "" {
				continue
			}
			entries = append(entries, Entry{
				Role:      "tool",
				ToolName:  name,
				ToolInput: compactToolInput(block["input"]),
				Timestamp: ts,
			})
		}
	}
	if combined := strings.TrimSpace(strings.Join(textParts, "\n\n")); combined != "" {
		entries = append([]Entry{{Role: "assistant", Content: combined, Timestamp: ts}}, entries...)
	}
	return entries
}

func toolResultText(block map[string]any) string {
	if text, ok := block["content"].(string); ok {
		return strings.TrimSpace(text)
	}
	blocks, ok := block["content"].([]any)
	if !ok {
		return ""
	}
	var parts []string
	for _, raw := range blocks {
		if m, ok := raw.(map[string]any); ok {
			if text := asString(m["text"]); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func compactToolInput(input any) string {
	m, ok := input.(map[string]any)
	if !ok || len(m) == 0 {
		return ""
	}
	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	s := string(data)
	if len(s) > 500 {
		s = s[:497] + "..."
	}
	return s
}

func recordTimestamp(record map[string]any) time.Time {
	raw := strings.TrimSpace(asString(record["timestamp"]))
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

func firstUserText(record map[string]any) string {
	for _, entry := range userEntries(record, time.Time{}) {
		if entry.Role == "user" {
			return entry.Content
		}
	}
	return ""
}

func truncateTitle(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > 80 {
		text = strings.TrimSpace(text[:80])
	}
	return text
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
