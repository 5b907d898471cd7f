// Package search keeps a local full-text index over cached businesses so they
// can be found by name, address or trade without calling the provider.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/renderinc/prolocator/internal/places"
	"github.com/renderinc/prolocator/internal/storage"
)

// Index wraps a Bleve search index
type Index struct {
	index bleve.Index
}

// IndexedBusiness is the document stored per place id.
type IndexedBusiness struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Types   []string `json:"types"`
	Status  string   `json:"status"`
	Rating  float64  `json:"rating"`
}

// SearchResult represents a search result
type SearchResult struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Address   string              `json:"address"`
	Rating    float64             `json:"rating,omitempty"`
	Score     float64             `json:"score"`
	Fragments map[string][]string `json:"fragments,omitempty"`
}

// Open opens or creates a Bleve index
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return &Index{index: idx}, nil
}

// OpenMemory creates a throwaway in-memory index.
func OpenMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create memory index: %w", err)
	}
	return &Index{index: idx}, nil
}

// buildIndexMapping analyzes text in English, queries included, and keeps ids
// and statuses as exact keywords.
func buildIndexMapping() mapping.IndexMapping {
	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = "en"

	keywordFieldMapping := bleve.NewKeywordFieldMapping()

	ratingFieldMapping := bleve.NewNumericFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)
	docMapping.AddFieldMappingsAt("address", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("types", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("status", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("rating", ratingFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = "en"
	return indexMapping
}

// Close closes the index
func (i *Index) Close() error {
	return i.index.Close()
}

func fromPlace(p places.Place) *IndexedBusiness {
	doc := &IndexedBusiness{
		ID:      p.PlaceID,
		Name:    p.Name,
		Address: p.FormattedAddress,
		Types:   tradeWords(p.Types),
		Status:  p.BusinessStatus,
	}
	if p.Rating != nil {
		doc.Rating = *p.Rating
	}
	return doc
}

func fromBusiness(b storage.Business) *IndexedBusiness {
	doc := &IndexedBusiness{
		ID:      b.PlaceID,
		Name:    b.Name,
		Address: b.FormattedAddress,
		Types:   tradeWords(b.Types),
		Status:  b.BusinessStatus,
	}
	if b.Rating != nil {
		doc.Rating = *b.Rating
	}
	return doc
}

// tradeWords turns provider tags like "general_contractor" into searchable words.
func tradeWords(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, strings.ReplaceAll(t, "_", " "))
	}
	return out
}

// IndexPlaces adds or updates the given search results in one batch.
func (i *Index) IndexPlaces(_ context.Context, ps []places.Place) error {
	if len(ps) == 0 {
		return nil
	}
	batch := i.index.NewBatch()
	for _, p := range ps {
		if err := batch.Index(p.PlaceID, fromPlace(p)); err != nil {
			return fmt.Errorf("batch index %s: %w", p.PlaceID, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Delete removes a business from the index
func (i *Index) Delete(id string) error {
	return i.index.Delete(id)
}

// Search performs a query string search (quotes, +/-, fuzzy ~).
func (i *Index) Search(queryStr string, limit int) ([]*SearchResult, error) {
	query := bleve.NewQueryStringQuery(queryStr)

	req := bleve.NewSearchRequestOptions(query, limit, 0, false)
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Fields = []string{"name", "address", "rating"}

	results, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out := make([]*SearchResult, 0, len(results.Hits))
	for _, hit := range results.Hits {
		result := &SearchResult{
			ID:        hit.ID,
			Score:     hit.Score,
			Fragments: hit.Fragments,
		}
		if name, ok := hit.Fields["name"].(string); ok {
			result.Name = name
		}
		if address, ok := hit.Fields["address"].(string); ok {
			result.Address = address
		}
		if rating, ok := hit.Fields["rating"].(float64); ok {
			result.Rating = rating
		}
		out = append(out, result)
	}
	return out, nil
}

// BusinessLister is the part of a store Rebuild reads from.
type BusinessLister interface {
	ListBusinesses(ctx context.Context) ([]storage.Business, error)
}

// IndexFromStorage indexes every business held by store and returns how many
// were written.
func (i *Index) IndexFromStorage(ctx context.Context, store BusinessLister) (int, error) {
	businesses, err := store.ListBusinesses(ctx)
	if err != nil {
		return 0, fmt.Errorf("list businesses: %w", err)
	}

	batch := i.index.NewBatch()
	for _, b := range businesses {
		if err := batch.Index(b.PlaceID, fromBusiness(b)); err != nil {
			return 0, fmt.Errorf("batch index %s: %w", b.PlaceID, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	return len(businesses), nil
}

// Count returns the number of businesses in the index
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
