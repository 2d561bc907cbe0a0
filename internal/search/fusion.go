// Package search fuses keyword and semantic scores for hybrid retrieval.
package search

import (
	"sort"

	"github.com/hyperjump/tanya/internal/keyword"
	"github.com/hyperjump/tanya/internal/vector"
)

// FusedResult holds a chunk ID and fused keyword/semantic scores.
type FusedResult struct {
	ChunkID       string
	Position      int
	Score         float64
	KeywordScore  float64
	SemanticScore float64
}

// NormalizeKeywordScores normalizes keyword scores to [0,1] by max.
func NormalizeKeywordScores(results []*keyword.KeywordResult) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	if len(results) == 0 {
		return normalized
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.ID] = r.Score / maxScore
		} else {
			normalized[r.ID] = 0
		}
	}
	return normalized
}

// NormalizeSemanticScores maps vector scores into [0,1]: cosine is clamped at 0,
// negated L2 distance d becomes 1/(1+d).
func NormalizeSemanticScores(results []*vector.VectorResult, metric vector.Metric) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	for _, r := range results {
		s := r.Score
		if metric == vector.MetricL2 {
			s = 1 / (1 - s)
		} else if s < 0 {
			s = 0
		}
		normalized[r.ID] = s
	}
	return normalized
}

// Fuse merges keyword and semantic score maps with weights and returns results by
// decreasing fused score. positions maps chunk IDs to their position and breaks ties.
func Fuse(keywordScores, semanticScores map[string]float64, keywordWeight, semanticWeight float64, positions map[string]int) []*FusedResult {
	scoreMap := make(map[string]*FusedResult)
	for id, score := range keywordScores {
		scoreMap[id] = &FusedResult{ChunkID: id, KeywordScore: score}
	}
	for id, score := range semanticScores {
		if result, exists := scoreMap[id]; exists {
			result.SemanticScore = score
		} else {
			scoreMap[id] = &FusedResult{ChunkID: id, SemanticScore: score}
		}
	}
	results := make([]*FusedResult, 0, len(scoreMap))
	for id, result := range scoreMap {
		result.Position = positions[id]
		result.Score = (keywordWeight * result.KeywordScore) + (semanticWeight * result.SemanticScore)
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Position < results[j].Position
	})
	return results
}
