package ml

import (
	"context"
	"errors"
)

var (
	// ErrArtifactNotFound means no model file exists at the configured path.
	ErrArtifactNotFound = errors.New("model artifact not found")
	// ErrInvalidArtifact means the file exists but cannot be turned into a model.
	ErrInvalidArtifact = errors.New("invalid model artifact")
	// ErrSchemaMismatch means an input row does not fit what the model was trained on.
	ErrSchemaMismatch = errors.New("input does not match model schema")
)

// Row is one raw input record keyed by column name. Categorical values stay
// as strings; the classifier owns its encoding.
type Row map[string]any

// Classifier is a loaded, read-only model. PredictProba returns one
// probability per entry of Classes, in the same order.
type Classifier interface {
	Classes() []int
	Predict(ctx context.Context, row Row) (int, error)
	PredictProba(ctx context.Context, row Row) ([]float64, error)
}

// ProbaPredictor is implemented by classifiers that produce the label and
// the probabilities in one call. Callers should prefer it so both come from
// the same evaluation.
type ProbaPredictor interface {
	PredictWithProba(ctx context.Context, row Row) (int, []float64, error)
}

// Describer is implemented by classifiers that can report their expected columns.
type Describer interface {
	Columns() []string
}

func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
