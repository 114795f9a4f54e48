package rag

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/kofiasare/sankofa/internal/knowledge"
)

type mockIndexStore struct {
	mu sync.Mutex

	// Error configuration
	addErr    error
	listErr   error
	deleteErr error

	// Return values
	listResult []knowledge.Document

	// Call tracking
	added          []knowledge.Document
	listSourceType string
	listLimit      int32
	deleted        []string
}

func (m *mockIndexStore) Add(_ context.Context, doc knowledge.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.added = append(m.added, doc)
	return nil
}

func (m *mockIndexStore) ListBySourceType(_ context.Context, sourceType string, limit int32) ([]knowledge.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listSourceType = sourceType
	m.listLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.listResult, nil
}

func (m *mockIndexStore) Delete(_ context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, docID)
	return nil
}

func (m *mockIndexStore) addedDocs() []knowledge.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]knowledge.Document(nil), m.added...)
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("creating directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

const namingCeremonyHTML = `<html>
<head><title>Ga Naming Ceremonies</title></head>
<body>
<article>
<p>Among the Ga people of Accra, a newborn is welcomed on the eighth day
with a naming ceremony called kpodziemo, the outdooring held by the
family elders at dawn. The child is carried outside for the first time,
shown to the sky, and given water and strong drink so it will learn to
tell truth from falsehood. The name itself follows the father's house:
each Ga family keeps its own stock of names, and the order of birth
decides which one the child receives. A first-born son of one house will
carry a different name from the first-born of the house next door, so a
Ga name places a person in a lineage, not merely in a family. Relatives
and neighbours attend, and the elder who performs the rite pours
libation to the ancestors before the name is spoken aloud.</p>
</article>
</body>
</html>`

func TestIndexerAddFile(t *testing.T) {
	t.Run("indexes a text file with provenance metadata", func(t *testing.T) {
		dir := t.TempDir()
		content := "Ojekoo is the Ga greeting for the morning.\n\nOshwiee serves for the afternoon."
		path := writeTestFile(t, dir, "greetings.txt", content)

		store := &mockIndexStore{}
		idx := NewIndexer(store, nil, nil)

		n, err := idx.AddFile(context.Background(), path)
		if err != nil {
			t.Fatalf("AddFile() unexpected error: %v", err)
		}
		if n != 1 {
			t.Fatalf("AddFile() = %d chunks, want 1", n)
		}

		docs := store.addedDocs()
		if len(docs) != 1 {
			t.Fatalf("store received %d documents, want 1", len(docs))
		}
		doc := docs[0]
		if doc.Content != content {
			t.Errorf("content = %q, want %q", doc.Content, content)
		}
		if !strings.HasPrefix(doc.ID, "doc_") {
			t.Errorf("document id = %q, want doc_ prefix", doc.ID)
		}
		if doc.Metadata["source_type"] != knowledge.SourceTypeFile {
			t.Errorf("source_type = %q, want %q", doc.Metadata["source_type"], knowledge.SourceTypeFile)
		}
		if doc.Metadata["file_name"] != "greetings.txt" {
			t.Errorf("file_name = %q, want greetings.txt", doc.Metadata["file_name"])
		}
		if doc.Metadata["file_ext"] != ".txt" {
			t.Errorf("file_ext = %q, want .txt", doc.Metadata["file_ext"])
		}
		if doc.Metadata["title"] != "greetings.txt" {
			t.Errorf("title = %q, want greetings.txt", doc.Metadata["title"])
		}
		if !filepath.IsAbs(doc.Metadata["file_path"]) {
			t.Errorf("file_path = %q, want absolute path", doc.Metadata["file_path"])
		}
		if doc.Metadata["indexed_at"] == "" {
			t.Error("indexed_at should be set")
		}
	})

	t.Run("extracts article text from html", func(t *testing.T) {
		dir := t.TempDir()
		path := writeTestFile(t, dir, "naming.html", namingCeremonyHTML)

		store := &mockIndexStore{}
		idx := NewIndexer(store, nil, nil)

		n, err := idx.AddFile(context.Background(), path)
		if err != nil {
			t.Fatalf("AddFile() unexpected error: %v", err)
		}
		if n < 1 {
			t.Fatalf("AddFile() = %d chunks, want at least 1", n)
		}

		var all strings.Builder
		for _, doc := range store.addedDocs() {
			all.WriteString(doc.Content)
			if doc.Metadata["file_ext"] != ".html" {
				t.Errorf("file_ext = %q, want .html", doc.Metadata["file_ext"])
			}
			if !strings.Contains(doc.Metadata["title"], "Naming") {
				t.Errorf("title = %q, want the page title", doc.Metadata["title"])
			}
		}
		if !strings.Contains(all.String(), "kpodziemo") {
			t.Errorf("extracted text missing article body: %q", all.String())
		}
		if strings.Contains(all.String(), "<p>") {
			t.Error("extracted text still contains markup")
		}
	})

	t.Run("rejects unsupported extensions", func(t *testing.T) {
		dir := t.TempDir()
		path := writeTestFile(t, dir, "notes.pdf", "binary")

		store := &mockIndexStore{}
		idx := NewIndexer(store, nil, nil)

		if _, err := idx.AddFile(context.Background(), path); err == nil || !strings.Contains(err.Error(), "unsupported file type") {
			t.Errorf("AddFile() error = %v, want unsupported file type", err)
		}
		if len(store.addedDocs()) != 0 {
			t.Error("store.Add should not be called for unsupported files")
		}
	})

	t.Run("rejects directories", func(t *testing.T) {
		dir := t.TempDir()
		store := &mockIndexStore{}
		idx := NewIndexer(store, nil, nil)

		if _, err := idx.AddFile(context.Background(), dir); err == nil || !strings.Contains(err.Error(), "directory") {
			t.Errorf("AddFile() error = %v, want directory error", err)
		}
	})

	t.Run("rejects oversized files", func(t *testing.T) {
		dir := t.TempDir()
		path := writeTestFile(t, dir, "big.txt", string(bytes.Repeat([]byte("a"), MaxFileSize+1)))

		store := &mockIndexStore{}
		idx := NewIndexer(store, nil, nil)

		if _, err := idx.AddFile(context.Background(), path); err == nil || !strings.Contains(err.Error(), "exceeds") {
			t.Errorf("AddFile() error = %v, want size limit error", err)
		}
	})

	t.Run("rejects files with no indexable text", func(t *testing.T) {
		dir := t.TempDir()
		path := writeTestFile(t, dir, "blank.txt", "  \n\n\t  ")

		store := &mockIndexStore{}
		idx := NewIndexer(store, nil, nil)

		if _, err := idx.AddFile(context.Background(), path); err == nil || !strings.Contains(err.Error(), "no indexable text") {
			t.Errorf("AddFile() error = %v, want no indexable text", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		store := &mockIndexStore{}
		idx := NewIndexer(store, nil, nil)

		if _, err := idx.AddFile(context.Background(), filepath.Join(t.TempDir(), "absent.txt")); err == nil {
			t.Error("AddFile() expected error for missing file")
		}
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		dir := t.TempDir()
		path := writeTestFile(t, dir, "fails.txt", "some content")

		store := &mockIndexStore{addErr: errors.New("connection lost")}
		idx := NewIndexer(store, nil, nil)

		n, err := idx.AddFile(context.Background(), path)
		if err == nil || !strings.Contains(err.Error(), "connection lost") {
			t.Errorf("AddFile() error = %v, want wrapped store error", err)
		}
		if n != 0 {
			t.Errorf("AddFile() = %d chunks, want 0", n)
		}
	})

	t.Run("custom extensions override defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := writeTestFile(t, dir, "vocab.csv", "ekome,one")

		store := &mockIndexStore{}
		idx := NewIndexer(store, []string{".csv"}, nil)

		if _, err := idx.AddFile(context.Background(), path); err != nil {
			t.Errorf("AddFile() unexpected error: %v", err)
		}

		txt := writeTestFile(t, dir, "plain.txt", "content")
		if _, err := idx.AddFile(context.Background(), txt); err == nil {
			t.Error("AddFile() should reject .txt when overridden extensions exclude it")
		}
	})
}

func TestIndexerAddText(t *testing.T) {
	t.Run("stores submitted text with title", func(t *testing.T) {
		store := &mockIndexStore{}
		idx := NewIndexer(store, nil, nil)

		n, err := idx.AddText(context.Background(), "Kpanlogo is a recreational dance of the Ga people.", "Kpanlogo")
		if err != nil {
			t.Fatalf("AddText() unexpected error: %v", err)
		}
		if n != 1 {
			t.Fatalf("AddText() = %d chunks, want 1", n)
		}

		doc := store.addedDocs()[0]
		if doc.Metadata["source_type"] != knowledge.SourceTypeText {
			t.Errorf("source_type = %q, want %q", doc.Metadata["source_type"], knowledge.SourceTypeText)
		}
		if doc.Metadata["title"] != "Kpanlogo" {
			t.Errorf("title = %q, want Kpanlogo", doc.Metadata["title"])
		}
		if _, ok := doc.Metadata["file_path"]; ok {
			t.Error("text documents should not carry file_path")
		}
	})

	t.Run("empty title defaults to untitled", func(t *testing.T) {
		store := &mockIndexStore{}
		idx := NewIndexer(store, nil, nil)

		if _, err := idx.AddText(context.Background(), "some heritage note", ""); err != nil {
			t.Fatalf("AddText() unexpected error: %v", err)
		}
		if got := store.addedDocs()[0].Metadata["title"]; got != "untitled" {
			t.Errorf("title = %q, want untitled", got)
		}
	})

	t.Run("rejects empty text", func(t *testing.T) {
		store := &mockIndexStore{}
		idx := NewIndexer(store, nil, nil)

		if _, err := idx.AddText(context.Background(), "   ", "t"); err == nil {
			t.Error("AddText() expected error for empty text")
		}
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		store := &mockIndexStore{addErr: errors.New("db down")}
		idx := NewIndexer(store, nil, nil)

		if _, err := idx.AddText(context.Background(), "content", "t"); err == nil {
			t.Error("AddText() expected wrapped store error")
		}
	})
}

func TestIndexerAddDirectory(t *testing.T) {
	t.Run("indexes supported files and skips the rest", func(t *testing.T) {
		dir := t.TempDir()
		writeTestFile(t, dir, "one.txt", "Ga proverbs pass wisdom between generations.")
		writeTestFile(t, dir, "two.md", "# Counting\n\nekome, enyo, ete.")
		writeTestFile(t, dir, "skip.pdf", "binary")
		writeTestFile(t, dir, "blank.txt", "   ")

		store := &mockIndexStore{}
		idx := NewIndexer(store, nil, nil)

		result, err := idx.AddDirectory(context.Background(), dir)
		if err != nil {
			t.Fatalf("AddDirectory() unexpected error: %v", err)
		}
		if result.FilesAdded != 2 {
			t.Errorf("FilesAdded = %d, want 2", result.FilesAdded)
		}
		if result.FilesSkipped != 2 {
			t.Errorf("FilesSkipped = %d, want 2", result.FilesSkipped)
		}
		if result.FilesFailed != 0 {
			t.Errorf("FilesFailed = %d, want 0", result.FilesFailed)
		}
		if result.ChunksAdded != len(store.addedDocs()) {
			t.Errorf("ChunksAdded = %d, store has %d", result.ChunksAdded, len(store.addedDocs()))
		}
		if result.TotalSize == 0 {
			t.Error("TotalSize should count indexed bytes")
		}
		if result.Duration == 0 {
			t.Error("Duration should be recorded")
		}
	})

	t.Run("skips hidden files and directories", func(t *testing.T) {
		dir := t.TempDir()
		writeTestFile(t, dir, "visible.txt", "indexed content")
		writeTestFile(t, dir, ".hidden.txt", "not indexed")
		writeTestFile(t, dir, filepath.Join(".archive", "inner.txt"), "not indexed either")

		store := &mockIndexStore{}
		idx := NewIndexer(store, nil, nil)

		result, err := idx.AddDirectory(context.Background(), dir)
		if err != nil {
			t.Fatalf("AddDirectory() unexpected error: %v", err)
		}
		if result.FilesAdded != 1 {
			t.Errorf("FilesAdded = %d, want 1", result.FilesAdded)
		}
		for _, doc := range store.addedDocs() {
			if name := doc.Metadata["file_name"]; name != "visible.txt" {
				t.Errorf("indexed hidden file %q", name)
			}
		}
	})

	t.Run("store failures count files as failed", func(t *testing.T) {
		dir := t.TempDir()
		writeTestFile(t, dir, "a.txt", "content a")
		writeTestFile(t, dir, "b.txt", "content b")

		store := &mockIndexStore{addErr: errors.New("db down")}
		idx := NewIndexer(store, nil, nil)

		result, err := idx.AddDirectory(context.Background(), dir)
		if err != nil {
			t.Fatalf("AddDirectory() should not fail on per-file errors: %v", err)
		}
		if result.FilesFailed != 2 {
			t.Errorf("FilesFailed = %d, want 2", result.FilesFailed)
		}
		if result.FilesAdded != 0 {
			t.Errorf("FilesAdded = %d, want 0", result.FilesAdded)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		store := &mockIndexStore{}
		idx := NewIndexer(store, nil, nil)

		if _, err := idx.AddDirectory(context.Background(), filepath.Join(t.TempDir(), "absent")); err == nil {
			t.Error("AddDirectory() expected error for missing directory")
		}
	})

	t.Run("canceled context aborts the walk", func(t *testing.T) {
		dir := t.TempDir()
		writeTestFile(t, dir, "a.txt", "content")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		store := &mockIndexStore{}
		idx := NewIndexer(store, nil, nil)

		if _, err := idx.AddDirectory(ctx, dir); !errors.Is(err, context.Canceled) {
			t.Errorf("AddDirectory() error = %v, want context.Canceled", err)
		}
	})
}

func TestIndexerListDocuments(t *testing.T) {
	store := &mockIndexStore{
		listResult: []knowledge.Document{
			{ID: "doc_1", Content: "chunk"},
		},
	}
	idx := NewIndexer(store, nil, nil)

	docs, err := idx.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments() unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("ListDocuments() = %d documents, want 1", len(docs))
	}
	if store.listSourceType != knowledge.SourceTypeFile {
		t.Errorf("queried source type %q, want %q", store.listSourceType, knowledge.SourceTypeFile)
	}

	store.listErr = errors.New("db down")
	if _, err := idx.ListDocuments(context.Background()); err == nil {
		t.Error("ListDocuments() expected error when the store fails")
	}
}

func TestIndexerRemoveDocument(t *testing.T) {
	store := &mockIndexStore{}
	idx := NewIndexer(store, nil, nil)

	if err := idx.RemoveDocument(context.Background(), "doc_abc"); err != nil {
		t.Fatalf("RemoveDocument() unexpected error: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "doc_abc" {
		t.Errorf("deleted = %v, want [doc_abc]", store.deleted)
	}
}

func TestIndexerStats(t *testing.T) {
	store := &mockIndexStore{
		listResult: []knowledge.Document{
			{ID: "1", Metadata: map[string]string{"file_ext": ".txt", "file_path": "/a.txt"}},
			{ID: "2", Metadata: map[string]string{"file_ext": ".txt", "file_path": "/a.txt"}},
			{ID: "3", Metadata: map[string]string{"file_ext": ".md", "file_path": "/b.md"}},
		},
	}
	idx := NewIndexer(store, nil, nil)

	stats, err := idx.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() unexpected error: %v", err)
	}
	if got := stats["total_chunks"]; got != 3 {
		t.Errorf("total_chunks = %v, want 3", got)
	}
	if got := stats["total_files"]; got != 2 {
		t.Errorf("total_files = %v, want 2", got)
	}
	fileTypes, ok := stats["file_types"].(map[string]int)
	if !ok {
		t.Fatalf("file_types has unexpected type %T", stats["file_types"])
	}
	if fileTypes[".txt"] != 2 || fileTypes[".md"] != 1 {
		t.Errorf("file_types = %v, want .txt:2 .md:1", fileTypes)
	}
}

func TestSplitChunks(t *testing.T) {
	t.Run("short text stays one chunk", func(t *testing.T) {
		got := splitChunks("hello world", 100)
		if len(got) != 1 || got[0] != "hello world" {
			t.Errorf("splitChunks() = %q, want [hello world]", got)
		}
	})

	t.Run("paragraphs pack together under the limit", func(t *testing.T) {
		got := splitChunks("abc\n\ndef", 20)
		if len(got) != 1 || got[0] != "abc\n\ndef" {
			t.Errorf("splitChunks() = %q, want one joined chunk", got)
		}
	})

	t.Run("paragraphs split when they would overflow", func(t *testing.T) {
		got := splitChunks("abc\n\ndef", 7)
		want := []string{"abc", "def"}
		if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("splitChunks() = %q, want %q", got, want)
		}
	})

	t.Run("oversized paragraph hard splits", func(t *testing.T) {
		got := splitChunks("abcdefghij", 4)
		want := []string{"abcd", "efgh", "ij"}
		if len(got) != 3 {
			t.Fatalf("splitChunks() = %q, want %q", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("hard split never breaks runes", func(t *testing.T) {
		got := splitChunks(strings.Repeat("ŋ", 10), 3)
		for i, c := range got {
			if !utf8.ValidString(c) {
				t.Errorf("chunk %d is not valid UTF-8: %q", i, c)
			}
			if len(c) > 3 {
				t.Errorf("chunk %d is %d bytes, want at most 3", i, len(c))
			}
		}
	})

	t.Run("normalizes CRLF line endings", func(t *testing.T) {
		got := splitChunks("a\r\n\r\nb", 100)
		if len(got) != 1 || got[0] != "a\n\nb" {
			t.Errorf("splitChunks() = %q, want [a\\n\\nb]", got)
		}
	})

	t.Run("whitespace only yields nothing", func(t *testing.T) {
		if got := splitChunks("  \n\n \t ", 100); len(got) != 0 {
			t.Errorf("splitChunks() = %q, want empty", got)
		}
	})
}

func TestChunkID(t *testing.T) {
	a := chunkID("Ojekoo means good morning.")
	b := chunkID("Ojekoo means good morning.")
	c := chunkID("Oshwiee means good afternoon.")

	if a != b {
		t.Errorf("chunkID not deterministic: %q vs %q", a, b)
	}
	if a == c {
		t.Error("chunkID should differ for different content")
	}
	if !strings.HasPrefix(a, "doc_") {
		t.Errorf("chunkID = %q, want doc_ prefix", a)
	}
	if len(a) != len("doc_")+32 {
		t.Errorf("chunkID length = %d, want %d", len(a), len("doc_")+32)
	}
}
