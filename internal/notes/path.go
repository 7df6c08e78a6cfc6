package notes

import (
	"fmt"
	"strings"
	"time"
)

// Document kinds within a session's note folder.
const (
	KindSummary    = "summary"
	KindTranscript = "raw-log"
)

// QuarantinePrefix is where notes of sessions deemed deleted upstream are
// parked instead of being removed outright.
const QuarantinePrefix = "_quarantine"

// TranscriptPartKind names the Nth transcript part of an oversized
// session log.
func TranscriptPartKind(part int) string {
	return fmt.Sprintf("%s-part-%d", KindTranscript, part)
}

// Path renders the note path template
// <projectName>/sessions/<year>-<month>/<day>-<slug>/<kind>.
// projectName and slug are escaped for filesystem and URL safety.
func Path(projectName string, createdAt time.Time, slug, kind string) string {
	createdAt = createdAt.UTC()
	return fmt.Sprintf("%s/sessions/%04d-%02d/%02d-%s/%s",
		EscapeSegment(projectName),
		createdAt.Year(), int(createdAt.Month()), createdAt.Day(),
		EscapeSegment(slug), kind)
}

// QuarantinePath places a trashed session's document under the quarantine
// area, flattened to a single segment so the original folder can be
// removed cleanly.
func QuarantinePath(projectName string, createdAt time.Time, slug, kind string) string {
	createdAt = createdAt.UTC()
	return fmt.Sprintf("%s/%s/%04d-%02d-%02d-%s-%s",
		QuarantinePrefix,
		EscapeSegment(projectName),
		createdAt.Year(), int(createdAt.Month()), createdAt.Day(),
		EscapeSegment(slug), kind)
}

var segmentReplacer = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-",
	"\"", "-", "<", "-", ">", "-", "|", "-", "#", "-",
	"%", "-", " ", "-",
)

// EscapeSegment makes a path segment safe for both filesystem storage and
// URL query embedding. Control characters and reserved punctuation become
// dashes; runs of dashes collapse.
func EscapeSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range segment {
		if r < 0x20 || r == 0x7f {
			b.WriteRune('-')
			continue
		}
		b.WriteRune(r)
	}
	escaped := segmentReplacer.Replace(b.String())
	for strings.Contains(escaped, "--") {
		escaped = strings.ReplaceAll(escaped, "--", "-")
	}
	escaped = strings.Trim(escaped, "-.")
	if escaped == "" {
		return "unknown"
	}
	return escaped
}
