// Package rag implements Retrieval-Augmented Generation for Sankofa.
//
// The rag package turns user questions into knowledge-base context. It
// covers the full retrieval path: expanding a query into phrasing
// variants, searching the vector store adaptively across those
// variants, formatting the matched chunks into prompt context, and
// indexing content files into the store in the first place.
//
// # Retrieval Flow
//
//	user query
//	     |
//	     +-- Expand (attempt 0..2 variant sets)
//	     |
//	     v
//	Retriever.Retrieve
//	     |
//	     +-- per-variant vector search (internal/knowledge)
//	     +-- metadata post-filter
//	     +-- relevance gate (similarity >= 0.3)
//	     |
//	     v
//	FormatContext ("[Chunk i (score: s)]" blocks)
//
// Each retrieval attempt widens the phrasing: attempt 0 adds language
// scoping, attempt 1 adds meaning-oriented forms, attempt 2 adds
// question-shaped forms. The retriever tries variants in order and
// stops at the first result that clears the relevance gate, falling
// back to the best result seen when nothing does.
//
// # Indexing
//
// Indexer ingests .txt, .md, .markdown, .html, and .htm files, splits
// them into paragraph-aligned chunks, and stores each chunk with
// provenance metadata. Chunk IDs are derived from content hashes, so
// re-indexing the same content is idempotent. Scheduler runs the
// indexer over a content directory on an interval, guarded by a file
// lock so multiple processes do not index the same tree concurrently.
package rag
