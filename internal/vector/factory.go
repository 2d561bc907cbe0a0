package vector

// NewVectorIndex creates the vector index for one ingestion batch.
// metric is "cosine" (default) or "l2".
func NewVectorIndex(metric string, dimensions int) (VectorIndex, error) {
	m, err := ParseMetric(metric)
	if err != nil {
		return nil, err
	}
	return NewMemoryIndex(dimensions, m)
}
