package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"docqa/internal/adapter/fs"
	"docqa/internal/adapter/parser"
	"docqa/internal/domain"
	"docqa/internal/port"
)

// IngestUseCase turns raw documents into indexed vector records.
type IngestUseCase struct {
	parser      port.Parser
	chunker     port.Chunker
	embedder    port.Embedder
	index       port.VectorIndex
	docs        port.DocumentStore
	walker      *fs.Walker
	maxFileSize int64
}

func NewIngestUseCase(
	parser port.Parser,
	chunker port.Chunker,
	embedder port.Embedder,
	index port.VectorIndex,
	docs port.DocumentStore,
	walker *fs.Walker,
	maxFileSizeMB int,
) *IngestUseCase {
	return &IngestUseCase{
		parser:      parser,
		chunker:     chunker,
		embedder:    embedder,
		index:       index,
		docs:        docs,
		walker:      walker,
		maxFileSize: int64(maxFileSizeMB) << 20,
	}
}

// IndexDocument parses, chunks, embeds and indexes one document. The
// index is only written once every chunk has an embedding, so a failure
// at any stage leaves previously indexed records for sourceID intact.
func (u *IngestUseCase) IndexDocument(ctx context.Context, sourceID string, raw []byte, contentType string) (int, error) {
	text, err := u.parser.Parse(raw, contentType)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", sourceID, err)
	}

	chunks, err := u.chunker.Chunk(text, sourceID)
	if err != nil {
		return 0, fmt.Errorf("chunk %s: %w", sourceID, err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", sourceID, err)
	}

	records := make([]domain.VectorRecord, len(chunks))
	for i, c := range chunks {
		records[i] = domain.VectorRecord{
			ID:     uuid.NewString(),
			Chunk:  c,
			Vector: vectors[i],
		}
	}

	n, err := u.index.Upsert(sourceID, records)
	if err != nil {
		return 0, fmt.Errorf("index %s: %w", sourceID, err)
	}
	return n, nil
}

// IndexStored indexes a document previously saved to the document store,
// using its store key as the source id.
func (u *IngestUseCase) IndexStored(ctx context.Context, key string) (int, error) {
	doc, raw, err := u.docs.Get(key)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", key, err)
	}
	return u.IndexDocument(ctx, doc.Key, raw, doc.ContentType)
}

// RemoveSource drops a source from the index and returns how many
// records were removed.
func (u *IngestUseCase) RemoveSource(sourceID string) (int, error) {
	return u.index.Delete(sourceID)
}

// BulkResult summarizes a directory ingestion run.
type BulkResult struct {
	FilesIndexed  int
	FilesSkipped  int
	ChunksCreated int
	Errors        []string
}

// ProgressFunc reports bulk ingestion progress after each file.
type ProgressFunc func(done, total int, path string)

// IndexDirectory indexes every matching file under root, using paths
// relative to root as source ids. Individual file failures are recorded
// and skipped; only walk errors or context cancellation abort the run.
func (u *IngestUseCase) IndexDirectory(ctx context.Context, root string, progress ProgressFunc) (*BulkResult, error) {
	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	result := &BulkResult{}
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if n, err := u.indexFile(ctx, file); err != nil {
			result.FilesSkipped++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", file.RelPath, err))
		} else {
			result.FilesIndexed++
			result.ChunksCreated += n
		}

		if progress != nil {
			progress(i+1, len(files), file.RelPath)
		}
	}

	return result, nil
}

func (u *IngestUseCase) indexFile(ctx context.Context, file fs.FileInfo) (int, error) {
	if u.maxFileSize > 0 && file.Size > u.maxFileSize {
		return 0, fmt.Errorf("exceeds size limit (%d bytes)", file.Size)
	}

	raw, err := fs.ReadFile(file.Path)
	if err != nil {
		return 0, err
	}

	contentType := parser.ContentTypeForPath(file.RelPath)
	if contentType == "" {
		return 0, domain.ErrUnsupportedFormat
	}

	return u.IndexDocument(ctx, file.RelPath, raw, contentType)
}
