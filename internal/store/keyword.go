package store

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/vuxtra/jivemcp/internal/apperr"
)

// keywordDoc is the document shape indexed in bleve for BM25 scoring
// over each entity's searchable text. Kind discriminates
// work_item/architecture/troubleshoot so content_types filtering can be
// pushed down as a term query alongside the free-text match.
type keywordDoc struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// keywordIndex wraps a bleve.Index holding one document per entity.
type keywordIndex struct {
	idx bleve.Index
}

func openKeywordIndex(dir string) (*keywordIndex, error) {
	if idx, err := bleve.Open(dir); err == nil {
		return &keywordIndex{idx: idx}, nil
	}
	// Index doesn't exist yet (first use of this namespace): create it.
	idx, err := bleve.New(dir, bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &keywordIndex{idx: idx}, nil
}

func (k *keywordIndex) Close() error { return k.idx.Close() }

func (k *keywordIndex) Upsert(kind, id, text string) error {
	return k.idx.Index(kind+":"+id, keywordDoc{Kind: kind, Text: text})
}

func (k *keywordIndex) Delete(kind, id string) error {
	return k.idx.Delete(kind + ":" + id)
}

// KeywordHit is one BM25 candidate.
type KeywordHit struct {
	Kind  string
	ID    string
	Score float32
}

// Search runs a BM25 match query over Text, optionally restricted to a
// set of kinds.
func (k *keywordIndex) Search(q string, limit int, kinds map[string]bool) ([]KeywordHit, error) {
	if q == "" {
		return nil, nil
	}
	// Field names follow the json tags on keywordDoc: bleve's default
	// mapping walks structs with the json struct tag.
	matchQ := bleve.NewMatchQuery(q)
	matchQ.SetField("text")

	var finalQuery query.Query = matchQ
	if len(kinds) > 0 {
		disjunct := bleve.NewDisjunctionQuery()
		for kind := range kinds {
			tq := bleve.NewTermQuery(kind)
			tq.SetField("kind")
			disjunct.AddQuery(tq)
		}
		finalQuery = bleve.NewConjunctionQuery(matchQ, disjunct)
	}

	req := bleve.NewSearchRequestOptions(finalQuery, limit, 0, false)
	res, err := k.idx.Search(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreError, "keyword search failed", err)
	}
	hits := make([]KeywordHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		kind, id := splitVectorKey(h.ID)
		hits = append(hits, KeywordHit{Kind: kind, ID: id, Score: float32(h.Score)})
	}
	return hits, nil
}
