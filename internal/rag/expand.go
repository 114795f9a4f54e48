package rag

import (
	"fmt"
	"strings"
)

// languageMarkers are the tokens that signal a query is already scoped to
// the language domain. When any is present, attempt 0 adds no hint
// variants.
var languageMarkers = []string{"ga", "english", "translate", "translation", "meaning"}

// interrogatives are the question words checked before appending the
// "what is" variant on the final attempt.
var interrogatives = []string{"what", "how", "why", "when", "where", "who"}

// Expand produces the ordered search variants for one retry attempt.
// The unmodified query always comes first; later entries are progressively
// looser rephrasings. Attempts are 0-indexed:
//
//	attempt 0: scope the query to Ga if it is not already
//	attempt 1: ask for meaning and the language pair, plus a tail shortening
//	attempt 2: phrasebook forms ("how to say", "in Ga language", "what is")
//
// The variant list is deterministic for a given query and attempt.
func Expand(query string, attempt int) []string {
	variants := []string{query}

	switch attempt {
	case 0:
		if !hasLanguageMarker(query) {
			variants = append(variants,
				fmt.Sprintf("Ga language %s", query),
				fmt.Sprintf("%s translation", query),
			)
		}
	case 1:
		variants = append(variants,
			fmt.Sprintf("%s meaning", query),
			fmt.Sprintf("%s Ga English", query),
		)
		if words := strings.Fields(query); len(words) > 3 {
			variants = append(variants, strings.Join(words[len(words)-3:], " "))
		}
	case 2:
		variants = append(variants,
			fmt.Sprintf("how to say %s", query),
			fmt.Sprintf("%s in Ga language", query),
		)
		if !startsWithInterrogative(query) {
			variants = append(variants, fmt.Sprintf("what is %s", query))
		}
	}

	return variants
}

func hasLanguageMarker(query string) bool {
	lower := strings.ToLower(query)
	for _, marker := range languageMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func startsWithInterrogative(query string) bool {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return false
	}
	for _, w := range interrogatives {
		if words[0] == w {
			return true
		}
	}
	return false
}
