package search

import (
	"math"
	"testing"

	"github.com/hyperjump/tanya/internal/keyword"
	"github.com/hyperjump/tanya/internal/vector"
)

func TestNormalizeKeywordScores(t *testing.T) {
	results := []*keyword.KeywordResult{
		{ID: "a", Score: 2},
		{ID: "b", Score: 4},
		{ID: "c", Score: 1},
	}
	m := NormalizeKeywordScores(results)
	if m["b"] != 1.0 {
		t.Errorf("max score should be 1.0, got %f", m["b"])
	}
	if m["a"] != 0.5 {
		t.Errorf("a should be 0.5, got %f", m["a"])
	}
	if len(m) != 3 {
		t.Errorf("expected 3 entries, got %d", len(m))
	}
}

func TestNormalizeSemanticScores(t *testing.T) {
	results := []*vector.VectorResult{
		{ID: "c1", Score: 0.9},
		{ID: "c2", Score: -0.5},
	}
	m := NormalizeSemanticScores(results, vector.MetricCosine)
	if m["c1"] != 0.9 || m["c2"] != 0 {
		t.Errorf("unexpected map %v", m)
	}

	l2 := NormalizeSemanticScores([]*vector.VectorResult{{ID: "x", Score: -1}, {ID: "y", Score: 0}}, vector.MetricL2)
	if math.Abs(l2["x"]-0.5) > 1e-9 || l2["y"] != 1 {
		t.Errorf("unexpected l2 map %v", l2)
	}
}

func TestFuse(t *testing.T) {
	kw := map[string]float64{"d1": 1.0, "d2": 0.5}
	sem := map[string]float64{"d1": 0.5, "d2": 1.0, "d3": 0.2}
	results := Fuse(kw, sem, 0.3, 0.7, map[string]int{"d1": 0, "d2": 1, "d3": 2})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].ChunkID != "d2" {
		t.Errorf("expected d2 first, got %s", results[0].ChunkID)
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Score < results[i].Score {
			t.Error("results should be sorted by score descending")
		}
	}
}

func TestFuse_tiesByPosition(t *testing.T) {
	sem := map[string]float64{"late": 0.5, "early": 0.5, "mid": 0.5}
	positions := map[string]int{"early": 1, "mid": 4, "late": 9}
	for run := 0; run < 10; run++ {
		results := Fuse(nil, sem, 0.3, 0.7, positions)
		if results[0].ChunkID != "early" || results[1].ChunkID != "mid" || results[2].ChunkID != "late" {
			t.Fatalf("run %d: order %s %s %s", run, results[0].ChunkID, results[1].ChunkID, results[2].ChunkID)
		}
	}
}
