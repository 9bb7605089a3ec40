package aptitude

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// KNNClassifier is a k-nearest-neighbour classifier over Euclidean distance.
type KNNClassifier struct {
	k        int
	features [][]float64
	labels   []int
}

// FitKNN stores a copy of the training set. k must not exceed the number of rows.
func FitKNN(k int, features [][]float64, labels []int) (*KNNClassifier, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(features) == 0 {
		return nil, errors.New("training set is empty")
	}
	if len(features) != len(labels) {
		return nil, fmt.Errorf("features have %d rows, labels have %d", len(features), len(labels))
	}
	if k > len(features) {
		return nil, fmt.Errorf("k=%d exceeds training set size %d", k, len(features))
	}

	width := len(features[0])
	rows := make([][]float64, len(features))
	for i, x := range features {
		if len(x) != width {
			return nil, fmt.Errorf("row %d has %d features, expected %d", i, len(x), width)
		}
		rows[i] = append([]float64(nil), x...)
	}

	return &KNNClassifier{
		k:        k,
		features: rows,
		labels:   append([]int(nil), labels...),
	}, nil
}

type neighbour struct {
	index    int
	distance float64
}

// Predict returns the majority label among the k nearest rows. Equal distances
// keep training order; a tied vote resolves to the smallest label.
func (c *KNNClassifier) Predict(x []float64) (int, error) {
	width := len(c.features[0])
	if len(x) != width {
		return 0, fmt.Errorf("expected %d features, got %d", width, len(x))
	}

	neighbours := make([]neighbour, len(c.features))
	for i, row := range c.features {
		neighbours[i] = neighbour{index: i, distance: floats.Distance(row, x, 2)}
	}
	sort.SliceStable(neighbours, func(i, j int) bool {
		return neighbours[i].distance < neighbours[j].distance
	})

	votes := make(map[int]int)
	for _, n := range neighbours[:c.k] {
		votes[c.labels[n.index]]++
	}

	best, bestVotes := 0, -1
	for label, count := range votes {
		if count > bestVotes || (count == bestVotes && label < best) {
			best, bestVotes = label, count
		}
	}
	return best, nil
}
