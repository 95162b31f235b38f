package predictor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"heartpredict/ml"
	"heartpredict/ml/mltest"
	"heartpredict/patient"
)

type stubModel struct {
	label    int
	proba    []float64
	err      error
	panicMsg string
	block    chan struct{}
}

func (s *stubModel) Classes() []int { return []int{0, 1} }

func (s *stubModel) Predict(ctx context.Context, row ml.Row) (int, error) {
	if s.block != nil {
		<-s.block
	}
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.label, s.err
}

func (s *stubModel) PredictProba(ctx context.Context, row ml.Row) ([]float64, error) {
	return s.proba, s.err
}

func scenario() patient.Record {
	rec := patient.Default()
	rec.FastingBloodSugar = patient.FastingBloodSugarFalse
	rec.ExerciseAngina = patient.ExerciseAnginaNo
	return rec
}

func TestOpenMissingArtifact(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "knn_model.json"), ml.LoadOptions{}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingArtifact))
	assert.True(t, errors.Is(err, ml.ErrArtifactNotFound))
	assert.False(t, errors.Is(err, ErrInferenceFailure))
}

func TestOpenRejectsNonBinaryClasses(t *testing.T) {
	artifact := mltest.HeartTree()
	artifact.Classes = []int{1, 2}
	_, err := Open(mltest.WriteArtifact(t, artifact), ml.LoadOptions{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ml.ErrInvalidArtifact))
}

func TestPredictScenario(t *testing.T) {
	for name, artifact := range map[string]*ml.Artifact{
		"knn":  mltest.HeartKNN(),
		"tree": mltest.HeartTree(),
	} {
		t.Run(name, func(t *testing.T) {
			adapter, err := Open(mltest.WriteArtifact(t, artifact), ml.LoadOptions{}, zaptest.NewLogger(t))
			require.NoError(t, err)

			result, err := adapter.Predict(context.Background(), scenario())
			require.NoError(t, err)

			assert.Contains(t, []Label{NoDisease, Disease}, result.Label)
			p := result.Probabilities
			assert.GreaterOrEqual(t, p.NoDisease, 0.0)
			assert.LessOrEqual(t, p.NoDisease, 1.0)
			assert.GreaterOrEqual(t, p.Disease, 0.0)
			assert.LessOrEqual(t, p.Disease, 1.0)
			assert.InDelta(t, 1.0, p.NoDisease+p.Disease, 1e-9)
			assert.NotEmpty(t, result.ID)
			assert.Equal(t, Idle, adapter.State())
		})
	}
}

func TestPredictInferenceFailures(t *testing.T) {
	tests := []struct {
		name  string
		model *stubModel
		want  string
	}{
		{"model error", &stubModel{err: errors.New("feature names mismatch")}, "feature names mismatch"},
		{"model panic", &stubModel{panicMsg: "index out of range"}, "index out of range"},
		{"label out of range", &stubModel{label: 2, proba: []float64{0.5, 0.5}}, "outside {0,1}"},
		{"three probabilities", &stubModel{proba: []float64{0.2, 0.3, 0.5}}, "want 2"},
		{"negative probability", &stubModel{proba: []float64{-0.5, 1.5}}, "outside [0,1]"},
		{"does not sum to one", &stubModel{proba: []float64{0.4, 0.4}}, "sum to"},
		{"label contradicts probabilities", &stubModel{label: 1, proba: []float64{0.9, 0.1}}, "disagrees"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := New(tt.model, zaptest.NewLogger(t))

			result, err := adapter.Predict(context.Background(), patient.Default())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInferenceFailure))
			var ierr *InferenceError
			require.True(t, errors.As(err, &ierr))
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, Result{}, result)

			// the session stays usable
			tt.model.err, tt.model.panicMsg = nil, ""
			tt.model.label, tt.model.proba = 1, []float64{0.3, 0.7}
			result, err = adapter.Predict(context.Background(), patient.Default())
			require.NoError(t, err)
			assert.Equal(t, Disease, result.Label)
		})
	}
}

func TestPredictSchemaMismatchIsInferenceFailure(t *testing.T) {
	artifact := mltest.HeartKNN()
	artifact.Preprocessor.Categorical[6].Categories = []string{"zero", "one", "two", "three"}
	artifact.Preprocessor.HandleUnknown = "error"
	for i := range artifact.KNN.Samples {
		artifact.KNN.Samples[i]["ca"] = "zero"
	}
	adapter, err := Open(mltest.WriteArtifact(t, artifact), ml.LoadOptions{}, nil)
	require.NoError(t, err)

	_, err = adapter.Predict(context.Background(), scenario())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInferenceFailure))
	assert.True(t, errors.Is(err, ml.ErrSchemaMismatch))
}

func TestStateWhilePredicting(t *testing.T) {
	model := &stubModel{label: 0, proba: []float64{1, 0}, block: make(chan struct{})}
	adapter := New(model, nil)
	assert.Equal(t, Idle, adapter.State())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = adapter.Predict(context.Background(), patient.Default())
	}()

	require.Eventually(t, func() bool { return adapter.State() == Predicting }, time.Second, time.Millisecond)
	close(model.block)
	<-done
	assert.Equal(t, Idle, adapter.State())
}

func TestReloadKeepsModelOnFailure(t *testing.T) {
	path := mltest.WriteArtifact(t, mltest.HeartKNN())
	adapter, err := Open(path, ml.LoadOptions{}, zap.NewNop())
	require.NoError(t, err)
	before := adapter.Model()

	require.NoError(t, os.WriteFile(path, []byte(`{"type":"knn"}`), 0o600))
	require.Error(t, adapter.Reload())
	assert.Same(t, before, adapter.Model())

	require.NoError(t, mltest.HeartTree().Save(path))
	require.NoError(t, adapter.Reload())
	_, isTree := adapter.Model().(*ml.DecisionTree)
	assert.True(t, isTree)
}

func TestReloadRequiresPath(t *testing.T) {
	adapter := New(&stubModel{}, nil)
	assert.Error(t, adapter.Reload())
	_, err := NewWatcher(adapter, nil)
	assert.Error(t, err)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := mltest.WriteArtifact(t, mltest.HeartKNN())
	adapter, err := Open(path, ml.LoadOptions{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	w, err := NewWatcher(adapter, zaptest.NewLogger(t))
	require.NoError(t, err)
	w.settle = 10 * time.Millisecond
	reloaded := make(chan error, 1)
	w.onReload = func(err error) {
		select {
		case reloaded <- err:
		default:
		}
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, mltest.HeartTree().Save(path))

	// a reload can catch the file half written; wait for one that succeeds
	deadline := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case err := <-reloaded:
			done = err == nil
		case <-deadline:
			t.Fatal("model was not reloaded")
		}
	}
	_, isTree := adapter.Model().(*ml.DecisionTree)
	assert.True(t, isTree)
}
