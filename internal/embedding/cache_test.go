package embedding

import (
	"context"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
	if c.Len() != 2 {
		t.Errorf("Len=%d", c.Len())
	}
}

type countingEmbedder struct {
	*HashEmbedder
	texts int
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.texts += len(texts)
	return e.HashEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_onlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: NewHashEmbedder(16)}
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()
	if _, err := c.EmbedBatch(ctx, []string{"alpha", "beta"}); err != nil {
		t.Fatal(err)
	}
	got, err := c.EmbedBatch(ctx, []string{"beta", "gamma", "alpha"})
	if err != nil {
		t.Fatal(err)
	}
	if inner.texts != 3 {
		t.Errorf("expected 3 texts sent to provider, got %d", inner.texts)
	}
	want, _ := inner.HashEmbedder.Embed(ctx, "gamma")
	for i := range want {
		if got[1][i] != want[i] {
			t.Fatal("batch results out of order")
		}
	}
	if c.Dimensions() != 16 {
		t.Errorf("Dimensions=%d", c.Dimensions())
	}
}
