package ml

import (
	"context"
	"fmt"
	"math"
	"sort"
)

type KNNSpec struct {
	K       int    `json:"k"`
	Weights string `json:"weights,omitempty"`
	// Samples are the training rows in raw form; they are encoded with the
	// artifact's preprocessor when the model loads.
	Samples []Row `json:"samples"`
	Labels  []int `json:"labels"`
}

// KNN is a k-nearest-neighbours classifier over preprocessed vectors.
type KNN struct {
	prep     *Preprocessor
	classes  []int
	k        int
	distance bool
	points   [][]float64
	targets  []int // index into classes
}

func newKNN(artifact *Artifact) (*KNN, error) {
	spec := artifact.KNN
	prep, err := NewPreprocessor(*artifact.Preprocessor)
	if err != nil {
		return nil, err
	}
	if len(spec.Samples) != len(spec.Labels) {
		return nil, fmt.Errorf("%w: %d samples but %d labels", ErrInvalidArtifact, len(spec.Samples), len(spec.Labels))
	}
	if spec.K > len(spec.Samples) {
		return nil, fmt.Errorf("%w: k=%d exceeds %d samples", ErrInvalidArtifact, spec.K, len(spec.Samples))
	}

	index := artifact.classIndex()
	model := &KNN{
		prep:     prep,
		classes:  artifact.Classes,
		k:        spec.K,
		distance: spec.Weights == "distance",
		points:   make([][]float64, len(spec.Samples)),
		targets:  make([]int, len(spec.Labels)),
	}
	for i, sample := range spec.Samples {
		vector, err := prep.Transform(sample)
		if err != nil {
			return nil, fmt.Errorf("%w: sample %d: %v", ErrInvalidArtifact, i, err)
		}
		model.points[i] = vector
		target, ok := index[spec.Labels[i]]
		if !ok {
			return nil, fmt.Errorf("%w: sample %d has unknown class %d", ErrInvalidArtifact, i, spec.Labels[i])
		}
		model.targets[i] = target
	}
	return model, nil
}

func (m *KNN) Classes() []int {
	return append([]int(nil), m.classes...)
}

func (m *KNN) Columns() []string {
	return m.prep.Columns()
}

func (m *KNN) Predict(ctx context.Context, row Row) (int, error) {
	proba, err := m.PredictProba(ctx, row)
	if err != nil {
		return 0, err
	}
	return m.classes[argmax(proba)], nil
}

func (m *KNN) PredictProba(ctx context.Context, row Row) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query, err := m.prep.Transform(row)
	if err != nil {
		return nil, err
	}

	type neighbour struct {
		index int
		dist  float64
	}
	neighbours := make([]neighbour, len(m.points))
	for i, point := range m.points {
		neighbours[i] = neighbour{index: i, dist: euclidean(query, point)}
	}
	sort.SliceStable(neighbours, func(a, b int) bool {
		return neighbours[a].dist < neighbours[b].dist
	})
	nearest := neighbours[:m.k]

	weights := make([]float64, len(m.classes))
	exact := false
	if m.distance {
		for _, n := range nearest {
			if n.dist == 0 {
				exact = true
				weights[m.targets[n.index]]++
			}
		}
	}
	if !exact {
		for _, n := range nearest {
			w := 1.0
			if m.distance {
				w = 1 / n.dist
			}
			weights[m.targets[n.index]] += w
		}
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights, nil
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
