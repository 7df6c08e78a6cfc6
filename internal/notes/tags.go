package notes

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agentworkforce/notebridge/internal/sessions"
)

type tagPattern struct {
	tag string
	re  *regexp.Regexp
}

var technologyPatterns = []tagPattern{
	{"go", regexp.MustCompile(`(?i)\b(golang|go mod|goroutine)\b|\.go\b`)},
	{"python", regexp.MustCompile(`(?i)\bpython\b|\.py\b`)},
	{"rust", regexp.MustCompile(`(?i)\brust\b|\bcargo\b|\.rs\b`)},
	{"typescript", regexp.MustCompile(`(?i)\btypescript\b|\.tsx?\b`)},
	{"javascript", regexp.MustCompile(`(?i)\bjavascript\b|\bnode(\.js)?\b`)},
	{"docker", regexp.MustCompile(`(?i)\bdocker(file)?\b|\bcontainer\b`)},
	{"kubernetes", regexp.MustCompile(`(?i)\bkubernetes\b|\bk8s\b|\bkubectl\b`)},
	{"postgres", regexp.MustCompile(`(?i)\bpostgres(ql)?\b|\bpsql\b`)},
	{"sqlite", regexp.MustCompile(`(?i)\bsqlite3?\b`)},
	{"git", regexp.MustCompile(`(?i)\bgit (commit|push|pull|rebase|merge|branch)\b`)},
	{"sql", regexp.MustCompile(`(?i)\b(select|insert|update|delete) (from|into|set)\b`)},
	{"http", regexp.MustCompile(`(?i)\bhttps?://|\bREST\b|\bendpoint\b`)},
}

var activityPatterns = []tagPattern{
	{"debugging", regexp.MustCompile(`(?i)\b(debug|fix(ing|ed)?|bug|broken|crash|error)\b`)},
	{"refactoring", regexp.MustCompile(`(?i)\brefactor(ing|ed)?\b|\bclean ?up\b|\brename\b`)},
	{"testing", regexp.MustCompile(`(?i)\btest(s|ing)?\b|\bcoverage\b`)},
	{"feature-work", regexp.MustCompile(`(?i)\b(implement|add(ing)?|build(ing)?|create)\b`)},
	{"review", regexp.MustCompile(`(?i)\breview\b|\bexplain\b|\bwalk(ing)? through\b`)},
	{"docs", regexp.MustCompile(`(?i)\bdocument(ation)?\b|\breadme\b|\bchangelog\b`)},
}

// ExtractTags scans conversation text for technology and activity
// signals. Results are deduplicated and sorted.
func ExtractTags(conv sessions.Conversation) []string {
	var b strings.Builder
	b.WriteString(conv.Session.Title)
	b.WriteString("\n")
	for _, entry := range conv.Entries {
		if entry.Role == "user" || entry.Role == "assistant" {
			b.WriteString(entry.Content)
			b.WriteString("\n")
		}
		if entry.ToolInput != "" {
			b.WriteString(entry.ToolInput)
			b.WriteString("\n")
		}
	}
	text := b.String()

	seen := map[string]struct{}{}
	for _, group := range [][]tagPattern{technologyPatterns, activityPatterns} {
		for _, pattern := range group {
			if pattern.re.MatchString(text) {
				seen[pattern.tag] = struct{}{}
			}
		}
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
