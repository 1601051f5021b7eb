package port

import "docqa/internal/domain"

// DocumentStore holds raw uploaded documents. Indexing reads documents
// back by key; the store never interprets their contents.
type DocumentStore interface {
	Save(raw []byte, filename, contentType string) (domain.StoredDocument, error)

	Get(key string) (domain.StoredDocument, []byte, error)

	List() ([]domain.StoredDocument, error)

	Delete(key string) error
}
