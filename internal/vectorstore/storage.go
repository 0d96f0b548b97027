package vectorstore

import "curriculum-rag/internal/domain"

// Storage persists fragment vectors and supports similarity search.
// Implementations must round-trip structured fields through their payload
// so query-time filtering still has metadata to agree with.
type Storage interface {
	Init(dimension int) error
	Upsert(fragments []domain.Fragment, vectors [][]float64) error
	Search(vector []float64, topK int) ([]domain.SearchResult, error)
	Clear() error
}
