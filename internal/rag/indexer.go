package rag

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"

	"github.com/kofiasare/sankofa/internal/knowledge"
	"github.com/kofiasare/sankofa/internal/log"
)

// IndexerStore is the storage surface Indexer depends on. knowledge.Store
// satisfies it.
type IndexerStore interface {
	Add(ctx context.Context, doc knowledge.Document) error
	ListBySourceType(ctx context.Context, sourceType string, limit int32) ([]knowledge.Document, error)
	Delete(ctx context.Context, docID string) error
}

// defaultSupportedExtensions are the file types the indexer accepts.
var defaultSupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
}

const (
	// MaxFileSize caps indexable files. Larger files are skipped rather
	// than partially indexed.
	MaxFileSize = 1 << 20 // 1 MiB

	// maxChunkBytes bounds one chunk so it embeds without truncation.
	maxChunkBytes = 2000

	// DefaultListLimit bounds ListDocuments.
	DefaultListLimit = 1000
)

// IndexResult summarizes one indexing operation.
type IndexResult struct {
	FilesAdded   int
	FilesSkipped int
	FilesFailed  int
	ChunksAdded  int
	TotalSize    int64
	Duration     time.Duration
}

// Indexer ingests heritage content into the document store. Files are
// split on paragraph boundaries into chunks of at most maxChunkBytes, and
// each chunk's id is the hash of its text, so identical content indexes
// to the same document no matter where it came from.
type Indexer struct {
	store               IndexerStore
	supportedExtensions map[string]bool
	logger              log.Logger
}

// NewIndexer creates a file indexer. extensions overrides the supported
// file types; empty means the defaults (.txt, .md, .markdown, .html,
// .htm).
func NewIndexer(store IndexerStore, extensions []string, logger log.Logger) *Indexer {
	if logger == nil {
		logger = log.NewNop()
	}

	extMap := make(map[string]bool)
	if len(extensions) > 0 {
		for _, ext := range extensions {
			extMap[strings.ToLower(ext)] = true
		}
	} else {
		for k, v := range defaultSupportedExtensions {
			extMap[k] = v
		}
	}

	return &Indexer{
		store:               store,
		supportedExtensions: extMap,
		logger:              logger,
	}
}

// AddFile indexes a single file and returns the number of chunks stored.
func (idx *Indexer) AddFile(ctx context.Context, filePath string) (int, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return 0, fmt.Errorf("resolving path: %w", err)
	}

	// Reading through os.Root keeps symlinks from escaping the parent
	// directory.
	parentDir := filepath.Dir(absPath)
	fileName := filepath.Base(absPath)

	root, err := os.OpenRoot(parentDir)
	if err != nil {
		return 0, fmt.Errorf("opening root directory: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	info, err := root.Stat(fileName)
	if err != nil {
		return 0, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("path is a directory, use AddDirectory instead")
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if !idx.supportedExtensions[ext] {
		return 0, fmt.Errorf("unsupported file type: %s", ext)
	}
	if info.Size() > MaxFileSize {
		return 0, fmt.Errorf("file %s (%d bytes) exceeds the %d byte limit", fileName, info.Size(), MaxFileSize)
	}

	content, err := root.ReadFile(fileName)
	if err != nil {
		return 0, fmt.Errorf("reading file: %w", err)
	}

	title, text, err := extractText(content, ext, fileName, absPath)
	if err != nil {
		return 0, fmt.Errorf("extracting text from %s: %w", fileName, err)
	}

	chunks := splitChunks(text, maxChunkBytes)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("file %s has no indexable text", fileName)
	}

	added := 0
	for _, chunk := range chunks {
		doc := knowledge.Document{
			ID:      chunkID(chunk),
			Content: chunk,
			Metadata: map[string]string{
				"source_type": knowledge.SourceTypeFile,
				"file_path":   absPath,
				"file_name":   fileName,
				"file_ext":    ext,
				"title":       title,
				"indexed_at":  time.Now().Format(time.RFC3339),
			},
			CreatedAt: time.Now(),
		}
		if err := idx.store.Add(ctx, doc); err != nil {
			return added, fmt.Errorf("storing chunk of %s: %w", fileName, err)
		}
		added++
	}

	idx.logger.Debug("file indexed", "file", absPath, "chunks", added)
	return added, nil
}

// AddText indexes content submitted directly, without a backing file.
// Returns the number of chunks stored.
func (idx *Indexer) AddText(ctx context.Context, text, title string) (int, error) {
	chunks := splitChunks(text, maxChunkBytes)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no indexable text")
	}
	if title == "" {
		title = "untitled"
	}

	added := 0
	for _, chunk := range chunks {
		doc := knowledge.Document{
			ID:      chunkID(chunk),
			Content: chunk,
			Metadata: map[string]string{
				"source_type": knowledge.SourceTypeText,
				"title":       title,
				"indexed_at":  time.Now().Format(time.RFC3339),
			},
			CreatedAt: time.Now(),
		}
		if err := idx.store.Add(ctx, doc); err != nil {
			return added, fmt.Errorf("storing chunk of %q: %w", title, err)
		}
		added++
	}

	idx.logger.Debug("text indexed", "title", title, "chunks", added)
	return added, nil
}

// AddDirectory walks dirPath and indexes every supported file. Hidden
// files and directories are skipped, as are files over MaxFileSize.
// Individual file failures are counted, not fatal.
func (idx *Indexer) AddDirectory(ctx context.Context, dirPath string) (*IndexResult, error) {
	startTime := time.Now()
	result := &IndexResult{}

	absDirPath, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("resolving directory path: %w", err)
	}

	root, err := os.OpenRoot(absDirPath)
	if err != nil {
		return nil, fmt.Errorf("opening root directory: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	err = filepath.WalkDir(absDirPath, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			result.FilesFailed++
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := d.Name()
		hidden := strings.HasPrefix(name, ".") && path != absDirPath
		if d.IsDir() {
			if hidden {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden {
			result.FilesSkipped++
			return nil
		}

		ext := strings.ToLower(filepath.Ext(name))
		if !idx.supportedExtensions[ext] {
			result.FilesSkipped++
			return nil
		}

		info, err := d.Info()
		if err != nil {
			result.FilesFailed++
			return nil
		}
		if info.Size() > MaxFileSize {
			result.FilesSkipped++
			return nil
		}

		relPath, err := filepath.Rel(absDirPath, path)
		if err != nil {
			result.FilesFailed++
			return nil
		}
		content, err := root.ReadFile(relPath)
		if err != nil {
			result.FilesFailed++
			return nil
		}

		title, text, err := extractText(content, ext, name, path)
		if err != nil {
			idx.logger.Warn("text extraction failed", "file", path, "error", err)
			result.FilesFailed++
			return nil
		}

		chunks := splitChunks(text, maxChunkBytes)
		if len(chunks) == 0 {
			result.FilesSkipped++
			return nil
		}

		for _, chunk := range chunks {
			doc := knowledge.Document{
				ID:      chunkID(chunk),
				Content: chunk,
				Metadata: map[string]string{
					"source_type": knowledge.SourceTypeFile,
					"file_path":   path,
					"file_name":   name,
					"file_ext":    ext,
					"title":       title,
					"indexed_at":  time.Now().Format(time.RFC3339),
				},
				CreatedAt: time.Now(),
			}
			if err := idx.store.Add(ctx, doc); err != nil {
				idx.logger.Warn("storing chunk failed", "file", path, "error", err)
				result.FilesFailed++
				return nil
			}
			result.ChunksAdded++
		}

		result.FilesAdded++
		result.TotalSize += info.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	result.Duration = time.Since(startTime)
	return result, nil
}

// ListDocuments returns indexed file chunks, newest first.
func (idx *Indexer) ListDocuments(ctx context.Context) ([]knowledge.Document, error) {
	docs, err := idx.store.ListBySourceType(ctx, knowledge.SourceTypeFile, DefaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// RemoveDocument removes one chunk by id.
func (idx *Indexer) RemoveDocument(ctx context.Context, docID string) error {
	return idx.store.Delete(ctx, docID)
}

// Stats summarizes the indexed file chunks.
func (idx *Indexer) Stats(ctx context.Context) (map[string]any, error) {
	docs, err := idx.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	fileTypes := make(map[string]int)
	files := make(map[string]bool)
	for _, doc := range docs {
		if ext, ok := doc.Metadata["file_ext"]; ok {
			fileTypes[ext]++
		}
		if path, ok := doc.Metadata["file_path"]; ok {
			files[path] = true
		}
	}

	return map[string]any{
		"total_chunks": len(docs),
		"total_files":  len(files),
		"file_types":   fileTypes,
	}, nil
}

// extractText pulls indexable text out of raw file content. HTML goes
// through readability to shed boilerplate; everything else is taken
// verbatim with the file name as title.
func extractText(content []byte, ext, fileName, absPath string) (title, text string, err error) {
	switch ext {
	case ".html", ".htm":
		article, err := readability.FromReader(bytes.NewReader(content), &url.URL{Scheme: "file", Path: absPath})
		if err != nil {
			return "", "", err
		}
		title = article.Title
		if title == "" {
			title = fileName
		}
		return title, article.TextContent, nil
	default:
		return fileName, string(content), nil
	}
}

// splitChunks splits text into paragraph-aligned chunks of at most
// maxBytes. Paragraphs longer than maxBytes are hard-split on rune
// boundaries.
func splitChunks(text string, maxBytes int) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var chunks []string
	var current strings.Builder

	flush := func() {
		if chunk := strings.TrimSpace(current.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
	}

	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if len(paragraph) > maxBytes {
			flush()
			for _, piece := range hardSplit(paragraph, maxBytes) {
				chunks = append(chunks, piece)
			}
			continue
		}

		if current.Len() > 0 && current.Len()+2+len(paragraph) > maxBytes {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
	}
	flush()

	return chunks
}

// hardSplit cuts s into pieces of at most maxBytes without breaking
// UTF-8 sequences.
func hardSplit(s string, maxBytes int) []string {
	var parts []string
	for len(s) > maxBytes {
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			cut = maxBytes
		}
		parts = append(parts, strings.TrimSpace(s[:cut]))
		s = s[cut:]
	}
	if s = strings.TrimSpace(s); s != "" {
		parts = append(parts, s)
	}
	return parts
}

// chunkID derives the document id from the chunk text, so identical
// chunks dedupe across files and re-indexing is idempotent.
func chunkID(chunk string) string {
	hash := sha256.Sum256([]byte(chunk))
	return "doc_" + hex.EncodeToString(hash[:16])
}
