package notes

import "strings"

// DefaultSplitLimit caps a single document's size before the transcript is
// broken into parts.
const DefaultSplitLimit = 100 * 1024

type Part struct {
	Content    string
	PartNumber int
	TotalParts int
}

// Split breaks oversized content into parts on line boundaries. Content at
// or under the limit yields a single part. A single line longer than the
// limit becomes its own part rather than being cut mid-line.
func Split(content string, limit int) []Part {
	if limit <= 0 {
		limit = DefaultSplitLimit
	}
	if len(content) <= limit {
		return []Part{{Content: content, PartNumber: 1, TotalParts: 1}}
	}
	lines := strings.SplitAfter(content, "\n")
	var chunks []string
	var current strings.Builder
	for _, line := range lines {
		if current.Len() > 0 && current.Len()+len(line) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	parts := make([]Part, len(chunks))
	for i, chunk := range chunks {
		parts[i] = Part{
			Content:    chunk,
			PartNumber: i + 1,
			TotalParts: len(chunks),
		}
	}
	return parts
}
