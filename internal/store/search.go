package store

// VectorSearch exposes the namespace's in-memory HNSW graph to callers
// outside the package (internal/search's hybrid fusion).
func (s *Store) VectorSearch(query []float32, k int, kinds map[string]bool) []VectorHit {
	return s.vw.Search(query, k, kinds)
}

// KeywordSearch exposes the namespace's bleve BM25 index to callers
// outside the package (internal/search's hybrid fusion).
func (s *Store) KeywordSearch(q string, limit int, kinds map[string]bool) ([]KeywordHit, error) {
	return s.kw.Search(q, limit, kinds)
}
