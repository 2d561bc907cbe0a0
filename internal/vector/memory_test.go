package vector

import (
	"context"
	"math"
	"testing"
)

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	ids := []string{"a", "b", "c"}
	if err := idx.Add(ctx, ids, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("order: %s, %s", results[0].ID, results[1].ID)
	}
	if results[0].Score < results[1].Score {
		t.Error("scores should be non-increasing")
	}
}

func TestMemoryIndex_tiesKeepInsertionOrder(t *testing.T) {
	idx, _ := NewMemoryIndex(2, MetricCosine)
	ctx := context.Background()
	ids := []string{"c0", "c1", "c2", "c3", "c4"}
	vecs := [][]float32{{0, 1}, {1, 0}, {0, 1}, {1, 0}, {1, 0}}
	_ = idx.Add(ctx, ids, vecs)
	for run := 0; run < 5; run++ {
		results, _ := idx.Search(ctx, []float32{1, 0}, 3)
		want := []string{"c1", "c3", "c4"}
		for i, r := range results {
			if r.ID != want[i] {
				t.Fatalf("run %d: got %s at %d, want %s", run, r.ID, i, want[i])
			}
			if r.Ordinal != []int{1, 3, 4}[i] {
				t.Errorf("ordinal %d for %s", r.Ordinal, r.ID)
			}
		}
	}
}

func TestMemoryIndex_kLargerThanSize(t *testing.T) {
	idx, _ := NewMemoryIndex(2, MetricCosine)
	_ = idx.Add(context.Background(), []string{"x", "y"}, [][]float32{{1, 0}, {0, 1}})
	results, _ := idx.Search(context.Background(), []float32{1, 1}, 6)
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
	if results, _ := idx.Search(context.Background(), []float32{1, 1}, 0); results != nil {
		t.Error("k=0 should return nothing")
	}
}

func TestMemoryIndex_l2(t *testing.T) {
	idx, _ := NewMemoryIndex(2, MetricL2)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"far", "near"}, [][]float32{{10, 10}, {1, 1}})
	results, _ := idx.Search(ctx, []float32{0, 0}, 2)
	if results[0].ID != "near" {
		t.Errorf("expected near first, got %s", results[0].ID)
	}
	if math.Abs(results[0].Score+math.Sqrt2) > 1e-9 {
		t.Errorf("score should be negated distance, got %f", results[0].Score)
	}
}

func TestMemoryIndex_dimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex(2, MetricCosine)
	ctx := context.Background()
	if err := idx.Add(ctx, []string{"a", "b"}, [][]float32{{1, 0}, {1}}); err == nil {
		t.Error("expected error for short vector")
	}
	if idx.Size() != 0 {
		t.Error("a rejected batch must not be partially added")
	}
	if _, err := idx.Search(ctx, []float32{1}, 1); err == nil {
		t.Error("expected error for short query")
	}
}

func TestMemoryIndex_Metric(t *testing.T) {
	idx, _ := NewMemoryIndex(2, MetricL2)
	if idx.Metric() != MetricL2 {
		t.Errorf("Metric() = %q", idx.Metric())
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{2, 0}, []float32{5, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("parallel vectors: %f", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector: %f", got)
	}
}
