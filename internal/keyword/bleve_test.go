package keyword

import (
	"context"
	"testing"

	"github.com/hyperjump/tanya/internal/models"
)

func newIndex(t *testing.T, texts ...string) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex()
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{ID: "b_" + string(rune('a'+i)), Position: i, Text: text}
	}
	if err := idx.Index(context.Background(), chunks); err != nil {
		t.Fatalf("Index: %v", err)
	}
	return idx
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx := newIndex(t,
		"Shipping takes five days.",
		"This report mentions Omnisyan and other findings. The Bayes app is also referenced.",
	)
	ctx := context.Background()

	results, err := idx.Search(ctx, "Omnisyan", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one keyword result for \"Omnisyan\", got %d", len(results))
	}
	if results[0].ID != "b_b" || results[0].Position != 1 {
		t.Errorf("first result = %+v", results[0])
	}

	// Standard analyzer (no stemming) so "bayes" matches "Bayes" in content
	results, err = idx.Search(ctx, "bayes", 10)
	if err != nil {
		t.Fatalf("Search bayes: %v", err)
	}
	if len(results) == 0 || results[0].ID != "b_b" {
		t.Fatalf("expected a hit for \"bayes\", got %v", results)
	}
}

func TestBleveIndex_tiesOrderedByPosition(t *testing.T) {
	idx := newIndex(t, "alpha beta", "gamma", "alpha beta", "alpha beta")
	results, err := idx.Search(context.Background(), "alpha", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(results))
	}
	for i, want := range []int{0, 2, 3} {
		if results[i].Position != want {
			t.Errorf("hit %d at position %d, want %d", i, results[i].Position, want)
		}
	}
}

func TestBleveIndex_limit(t *testing.T) {
	idx := newIndex(t, "x", "x", "x")
	results, _ := idx.Search(context.Background(), "x", 2)
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
	if results, _ := idx.Search(context.Background(), "x", 0); results != nil {
		t.Error("limit 0 should return nothing")
	}
}

func TestBleveIndex_DocCount(t *testing.T) {
	idx := newIndex(t, "first", "second", "third")
	n, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if n != 3 {
		t.Errorf("DocCount=%d, want 3", n)
	}
}
