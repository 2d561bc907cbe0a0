package vector

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownMetric is returned by ParseMetric for an unsupported metric name.
var ErrUnknownMetric = errors.New("unknown metric")

// Metric scores a stored vector against a query. Higher is more similar.
type Metric string

const (
	// MetricCosine is cosine similarity in [-1, 1].
	MetricCosine Metric = "cosine"
	// MetricL2 is the negated Euclidean distance, so that higher still means closer.
	MetricL2 Metric = "l2"
)

// ParseMetric validates name. The empty string selects cosine.
func ParseMetric(name string) (Metric, error) {
	switch Metric(name) {
	case MetricCosine, "":
		return MetricCosine, nil
	case MetricL2:
		return MetricL2, nil
	default:
		return "", fmt.Errorf("%w %q (supported: cosine, l2)", ErrUnknownMetric, name)
	}
}

// Score returns the similarity of a and b under m.
func (m Metric) Score(a, b []float32) float64 {
	if m == MetricL2 {
		return -L2Distance(a, b)
	}
	return CosineSimilarity(a, b)
}

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when either is zero.
func CosineSimilarity(a, b []float32) float64 {
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return InnerProduct(a, b) / (na * nb)
}

// L2Distance returns the Euclidean distance between a and b.
func L2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
