package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"docqa/internal/domain"
)

const metaSuffix = ".meta.json"

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// LocalStore keeps raw uploaded documents in a directory, one file per
// document plus a JSON sidecar with its metadata. Keys embed a uuid so
// repeated uploads of the same filename never collide.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save validates and stores a document, returning its metadata with the
// generated key.
func (s *LocalStore) Save(raw []byte, filename, contentType string) (domain.StoredDocument, error) {
	if err := ValidateUpload(filename, int64(len(raw)), 10); err != nil {
		return domain.StoredDocument{}, err
	}

	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)
	safe := unsafeKeyChars.ReplaceAllString(base, "_")
	if safe == "" {
		safe = "file"
	}
	key := fmt.Sprintf("%s-%s%s", safe, uuid.NewString(), ext)

	doc := domain.StoredDocument{
		Key:              key,
		OriginalFilename: filename,
		ContentType:      contentType,
		Size:             int64(len(raw)),
		UploadedAt:       time.Now().UTC(),
	}

	if err := os.WriteFile(filepath.Join(s.dir, key), raw, 0644); err != nil {
		return domain.StoredDocument{}, fmt.Errorf("failed to write document: %w", err)
	}
	meta, err := json.Marshal(doc)
	if err != nil {
		return domain.StoredDocument{}, err
	}
	if err := os.WriteFile(filepath.Join(s.dir, key+metaSuffix), meta, 0644); err != nil {
		return domain.StoredDocument{}, fmt.Errorf("failed to write document metadata: %w", err)
	}

	return doc, nil
}

// Get returns a stored document's metadata and raw bytes.
func (s *LocalStore) Get(key string) (domain.StoredDocument, []byte, error) {
	doc, err := s.readMeta(key)
	if err != nil {
		return domain.StoredDocument{}, nil, err
	}

	raw, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		return domain.StoredDocument{}, nil, fmt.Errorf("failed to read document %q: %w", key, err)
	}
	return doc, raw, nil
}

// List returns all stored documents, ordered by key.
func (s *LocalStore) List() ([]domain.StoredDocument, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read document directory: %w", err)
	}

	docs := make([]domain.StoredDocument, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, metaSuffix) {
			continue
		}
		doc, err := s.readMeta(name)
		if err != nil {
			// Document without sidecar; report what the filesystem knows.
			info, statErr := entry.Info()
			if statErr != nil {
				continue
			}
			doc = domain.StoredDocument{
				Key:              name,
				OriginalFilename: name,
				Size:             info.Size(),
				UploadedAt:       info.ModTime().UTC(),
			}
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Key < docs[j].Key })
	return docs, nil
}

// Delete removes a document and its metadata.
func (s *LocalStore) Delete(key string) error {
	if err := os.Remove(filepath.Join(s.dir, key)); err != nil {
		return fmt.Errorf("failed to delete document %q: %w", key, err)
	}
	os.Remove(filepath.Join(s.dir, key+metaSuffix))
	return nil
}

func (s *LocalStore) readMeta(key string) (domain.StoredDocument, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, key + metaSuffix))
	if err != nil {
		return domain.StoredDocument{}, fmt.Errorf("failed to read metadata for %q: %w", key, err)
	}
	var doc domain.StoredDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.StoredDocument{}, fmt.Errorf("failed to parse metadata for %q: %w", key, err)
	}
	return doc, nil
}

// ValidateUpload checks a document before it is stored: known extension,
// non-empty, within the size limit.
func ValidateUpload(filename string, size int64, maxSizeMB int) error {
	if filename == "" {
		return fmt.Errorf("filename is required")
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".markdown", ".pdf":
	default:
		return fmt.Errorf("file extension of %q: %w", filename, domain.ErrUnsupportedFormat)
	}
	if size == 0 {
		return fmt.Errorf("file %q: %w", filename, domain.ErrEmptyDocument)
	}
	if maxSizeMB > 0 && size > int64(maxSizeMB)<<20 {
		return fmt.Errorf("file %q exceeds maximum size of %dMB", filename, maxSizeMB)
	}
	return nil
}
