// Package predictor turns a patient record into a prediction by calling a
// loaded classifier, and classifies every failure on the way.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"heartpredict/ml"
	"heartpredict/patient"
)

// Label is the binary outcome.
type Label int

const (
	NoDisease Label = 0
	Disease   Label = 1
)

func (l Label) String() string {
	if l == Disease {
		return "Heart Disease"
	}
	return "No Heart Disease"
}

// Message is the sentence shown to the patient for the label.
func (l Label) Message() string {
	if l == Disease {
		return "⚠️ You are likely to have heart disease."
	}
	return "✅ You are not likely to have heart disease."
}

// Probabilities is the class distribution; NoDisease + Disease == 1.
type Probabilities struct {
	NoDisease float64 `json:"no_disease"`
	Disease   float64 `json:"disease"`
}

type Result struct {
	ID            string        `json:"id"`
	Label         Label         `json:"label"`
	Probabilities Probabilities `json:"probabilities"`
}

// Predictor is the boundary the form and CLI depend on.
type Predictor interface {
	Predict(ctx context.Context, rec patient.Record) (Result, error)
}

type State int32

const (
	Idle State = iota
	Predicting
)

func (s State) String() string {
	if s == Predicting {
		return "predicting"
	}
	return "idle"
}

const probabilityTolerance = 1e-6

type loaded struct {
	model ml.Classifier
	path  string
}

// Adapter owns one read-only classifier. It is safe for concurrent use.
type Adapter struct {
	current  atomic.Pointer[loaded]
	inflight atomic.Int32
	opts     ml.LoadOptions
	logger   *zap.Logger
}

// Open loads the artifact at path. A missing file is reported as
// ErrMissingArtifact.
func Open(path string, opts ml.LoadOptions, logger *zap.Logger) (*Adapter, error) {
	model, err := load(path, opts)
	if err != nil {
		return nil, err
	}
	a := New(model, logger)
	a.opts = opts
	a.current.Store(&loaded{model: model, path: path})
	a.logger.Info("model loaded", zap.String("path", path), zap.Ints("classes", model.Classes()))
	return a, nil
}

// Reload replaces the model with a fresh load of the same artifact. On
// failure the current model stays in place.
func (a *Adapter) Reload() error {
	current := a.current.Load()
	if current.path == "" {
		return errors.New("adapter was not opened from a file")
	}
	model, err := load(current.path, a.opts)
	if err != nil {
		return err
	}
	a.current.Store(&loaded{model: model, path: current.path})
	a.logger.Info("model reloaded", zap.String("path", current.path))
	return nil
}

// Path is the artifact the model was loaded from, empty for New.
func (a *Adapter) Path() string {
	return a.current.Load().path
}

func load(path string, opts ml.LoadOptions) (ml.Classifier, error) {
	model, err := ml.LoadModelWithOptions(path, opts)
	if err != nil {
		if errors.Is(err, ml.ErrArtifactNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrMissingArtifact, err)
		}
		return nil, err
	}
	if err := checkClasses(model.Classes()); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ml.ErrInvalidArtifact, err)
	}
	return model, nil
}

func checkClasses(classes []int) error {
	if len(classes) != 2 || classes[0] != int(NoDisease) || classes[1] != int(Disease) {
		return fmt.Errorf("classes %v, want [0 1]", classes)
	}
	return nil
}

// New wraps an already constructed classifier.
func New(model ml.Classifier, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Adapter{logger: logger}
	a.current.Store(&loaded{model: model})
	return a
}

// State reports Predicting while any call is in flight.
func (a *Adapter) State() State {
	if a.inflight.Load() > 0 {
		return Predicting
	}
	return Idle
}

// Model returns the classifier currently in use.
func (a *Adapter) Model() ml.Classifier {
	return a.current.Load().model
}

// Predict runs one record through the model. Any failure, including a
// panic inside the model or an output that is not a valid distribution,
// comes back as an *InferenceError.
func (a *Adapter) Predict(ctx context.Context, rec patient.Record) (result Result, err error) {
	a.inflight.Add(1)
	defer a.inflight.Add(-1)

	id := uuid.NewString()
	logger := a.logger.With(zap.String("prediction_id", id))
	defer func() {
		if r := recover(); r != nil {
			err = &InferenceError{Op: "model panic", Err: fmt.Errorf("%v", r)}
		}
		if err != nil {
			logger.Warn("prediction failed", zap.Error(err))
		}
	}()

	model := a.Model()
	row := ml.Row(rec.Row())

	label, proba, err := infer(ctx, model, row)
	if err != nil {
		return Result{}, err
	}
	if label != int(NoDisease) && label != int(Disease) {
		return Result{}, &InferenceError{Op: "predict", Err: fmt.Errorf("label %d outside {0,1}", label)}
	}
	probs, err := toProbabilities(proba)
	if err != nil {
		return Result{}, &InferenceError{Op: "predict_proba", Err: err}
	}
	if !probs.agree(Label(label)) {
		return Result{}, &InferenceError{Op: "predict", Err: fmt.Errorf("label %d disagrees with probabilities %v", label, proba)}
	}

	result = Result{ID: id, Label: Label(label), Probabilities: probs}
	logger.Debug("prediction",
		zap.Int("label", label),
		zap.Float64("p_no_disease", probs.NoDisease),
		zap.Float64("p_disease", probs.Disease),
	)
	return result, nil
}

// infer takes label and probabilities from a single evaluation when the
// model supports it.
func infer(ctx context.Context, model ml.Classifier, row ml.Row) (int, []float64, error) {
	if pp, ok := model.(ml.ProbaPredictor); ok {
		label, proba, err := pp.PredictWithProba(ctx, row)
		if err != nil {
			return 0, nil, &InferenceError{Op: "predict", Err: err}
		}
		return label, proba, nil
	}
	label, err := model.Predict(ctx, row)
	if err != nil {
		return 0, nil, &InferenceError{Op: "predict", Err: err}
	}
	proba, err := model.PredictProba(ctx, row)
	if err != nil {
		return 0, nil, &InferenceError{Op: "predict_proba", Err: err}
	}
	return label, proba, nil
}

// agree reports whether label is a most probable class. Ties accept either.
func (p Probabilities) agree(label Label) bool {
	if label == Disease {
		return p.Disease >= p.NoDisease
	}
	return p.NoDisease >= p.Disease
}

func toProbabilities(proba []float64) (Probabilities, error) {
	if len(proba) != 2 {
		return Probabilities{}, fmt.Errorf("got %d probabilities, want 2", len(proba))
	}
	for _, p := range proba {
		if math.IsNaN(p) || p < -probabilityTolerance || p > 1+probabilityTolerance {
			return Probabilities{}, fmt.Errorf("probability %v outside [0,1]", p)
		}
	}
	total := proba[0] + proba[1]
	if math.Abs(total-1) > probabilityTolerance {
		return Probabilities{}, fmt.Errorf("probabilities sum to %v", total)
	}
	return Probabilities{
		NoDisease: clamp(proba[0] / total),
		Disease:   clamp(proba[1] / total),
	}, nil
}

func clamp(p float64) float64 {
	return math.Min(1, math.Max(0, p))
}
