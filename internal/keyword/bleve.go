package keyword

import (
	"context"
	"fmt"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/tanya/internal/models"
)

// BleveIndex implements KeywordIndex using an in-memory Bleve index.
type BleveIndex struct {
	index bleve.Index
}

type chunkDoc struct {
	Content  string  `json:"content"`
	Position float64 `json:"position"`
}

// NewBleveIndex creates an empty in-memory Bleve index.
func NewBleveIndex() (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase + tokenize, no stemming, so matches stay exact words.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	positionMapping := bleve.NewNumericFieldMapping()
	positionMapping.Store = true
	docMapping.AddFieldMappingsAt("position", positionMapping)
	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds chunks in a single Bleve batch.
func (b *BleveIndex) Index(ctx context.Context, chunks []models.Chunk) error {
	batch := b.index.NewBatch()
	for _, ch := range chunks {
		if err := batch.Index(ch.ID, chunkDoc{Content: ch.Text, Position: float64(ch.Position)}); err != nil {
			return fmt.Errorf("index chunk %s: %w", ch.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	return nil
}

// Search runs a match query over chunk content and returns up to limit results.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error) {
	if limit <= 0 {
		return nil, nil
	}
	search := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	search.Size = limit
	search.Fields = []string{"position"}
	results, err := b.index.SearchInContext(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		pos, _ := hit.Fields["position"].(float64)
		out[i] = &KeywordResult{ID: hit.ID, Position: int(pos), Score: hit.Score}
	}
	// Bleve breaks score ties by internal doc number; position keeps them in text order.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

// DocCount returns the total number of chunks in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
