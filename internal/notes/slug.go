package notes

import (
	"strings"
	"unicode"
)

const maxSlugLength = 60

var slugStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "in": {}, "into": {},
	"is": {}, "it": {}, "of": {}, "on": {}, "or": {}, "the": {},
	"to": {}, "with": {},
}

// Slugify derives a filesystem-safe identifier from a session title:
// lowercase, stopwords removed, runs of non-alphanumerics collapsed to a
// single dash, capped at 60 characters on a word boundary.
func Slugify(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return "untitled"
	}
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	words := strings.Fields(b.String())
	kept := make([]string, 0, len(words))
	for _, word := range words {
		if _, stop := slugStopwords[word]; stop {
			continue
		}
		kept = append(kept, word)
	}
	if len(kept) == 0 {
		// All-stopword titles still need a stable slug.
		kept = words
	}
	slug := strings.Join(kept, "-")
	if len(slug) > maxSlugLength {
		cut := strings.LastIndex(slug[:maxSlugLength+1], "-")
		if cut <= 0 {
			cut = maxSlugLength
		}
		slug = slug[:cut]
	}
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "untitled"
	}
	return slug
}
