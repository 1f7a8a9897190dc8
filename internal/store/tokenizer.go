package store

import (
	"regexp"
	"strings"
)

// queryTokenRegex matches runs of Unicode letters and digits, matching what
// the unicode61 tokenizer indexes. Everything else in user input (quotes,
// colons, parentheses, FTS5 operators) is dropped so queries are always
// treated as literal terms, never as match-syntax.
var queryTokenRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

// queryStopWords are common English words filtered from lexical queries.
var queryStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {},
	"of": {}, "to": {}, "in": {}, "on": {}, "for": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"with": {}, "as": {}, "at": {}, "by": {},
}

// buildMatchQuery converts free-form query text into a safe FTS5 MATCH
// expression: each token double-quoted, joined with AND. Returns "" when no
// searchable tokens remain.
func buildMatchQuery(query string) string {
	tokens := queryTokenRegex.FindAllString(strings.ToLower(query), -1)

	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, stop := queryStopWords[tok]; stop {
			continue
		}
		terms = append(terms, `"`+tok+`"`)
	}

	// If stop-word filtering removed everything, fall back to the raw
	// tokens so "to be or not to be" still matches something.
	if len(terms) == 0 {
		for _, tok := range tokens {
			terms = append(terms, `"`+tok+`"`)
		}
	}

	return strings.Join(terms, " AND ")
}
