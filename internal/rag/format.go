package rag

import (
	"fmt"
	"strings"

	"github.com/kofiasare/sankofa/internal/knowledge"
)

// FormatContext renders retrieved chunks as a prompt block. Each chunk
// becomes an indexed, scored section:
//
//	[Chunk 1 (score: 0.842)]
//	<chunk text>
//
// separated by blank lines, in input order. No chunks yields an empty
// string, which callers treat as "nothing retrieved".
func FormatContext(results []knowledge.Result) string {
	if len(results) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(results))
	for i, result := range results {
		blocks = append(blocks, fmt.Sprintf("[Chunk %d (score: %.3f)]\n%s",
			i+1, result.Similarity, result.Document.Content))
	}
	return strings.Join(blocks, "\n\n")
}
