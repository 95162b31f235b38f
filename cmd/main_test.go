package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heartpredict/ml"
	"heartpredict/ml/mltest"
	"heartpredict/patient"
	"heartpredict/predictor"
)

// setup writes a config whose model path points at artifact (relative to the
// config file) and returns the config path.
func setup(t *testing.T, artifact *ml.Artifact) string {
	t.Helper()
	dir := t.TempDir()
	if artifact != nil {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "models"), 0o755))
		require.NoError(t, artifact.Save(filepath.Join(dir, "models", "heart.json")))
	}
	cfg := "log:\n  level: error\nmodel:\n  path: models/heart.json\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPredictJSON(t *testing.T) {
	cfg := setup(t, mltest.HeartTree())

	out, err := run(t, "", "--config", cfg, "predict", "--json", "--exang", "No", "--fbs", "False")
	require.NoError(t, err)

	var payload predictOutput
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, predictor.NoDisease, payload.Label)
	assert.Equal(t, "No Heart Disease", payload.Outcome)
	assert.InDelta(t, 1.0, payload.Probabilities.NoDisease+payload.Probabilities.Disease, 1e-9)
	assert.Equal(t, patient.ExerciseAnginaNo, payload.Input.ExerciseAngina)
	assert.Equal(t, 54, payload.Input.Age)
}

func TestPredictReport(t *testing.T) {
	cfg := setup(t, mltest.HeartTree())

	out, err := run(t, "", "--config", cfg, "predict")
	require.NoError(t, err)

	// exercise angina sends the default record to the 1:4 leaf
	for _, want := range []string{
		"User Input Parameters",
		"Age (years)",
		"⚠️ You are likely to have heart disease.",
		"Probability of No Heart Disease: 0.20",
		"Probability of Heart Disease: 0.80",
		"Prediction Probabilities",
	} {
		assert.Contains(t, out, want)
	}
}

func TestPredictInputFile(t *testing.T) {
	cfg := setup(t, mltest.HeartKNN())

	out, err := run(t, `{"age": 63, "thal": "Reversible Defect"}`, "--config", cfg, "predict", "--input", "-", "--json", "--age", "70")
	require.NoError(t, err)

	var payload predictOutput
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, 70, payload.Input.Age, "flags win over the input record")
	assert.Equal(t, patient.ThalReversibleDefect, payload.Input.Thal)
}

func TestPredictRejectsOutOfDomain(t *testing.T) {
	cfg := setup(t, mltest.HeartKNN())

	_, err := run(t, "", "--config", cfg, "predict", "--age", "12")
	var verr *patient.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.NotEmpty(t, verr.For("age"))
}

func TestPredictMissingArtifact(t *testing.T) {
	cfg := setup(t, nil)

	_, err := run(t, "", "--config", cfg, "predict")
	require.Error(t, err)
	assert.True(t, errors.Is(err, predictor.ErrMissingArtifact))
}

func TestModelCheck(t *testing.T) {
	cfg := setup(t, mltest.HeartKNN())

	out, err := run(t, "", "--config", cfg, "model", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "*ml.KNN")
	assert.Contains(t, out, "thal")
	assert.True(t, strings.HasSuffix(out, "ok\n"))

	_, err = run(t, "", "--config", cfg, "model", "check", filepath.Join(t.TempDir(), "none.json"))
	assert.True(t, errors.Is(err, predictor.ErrMissingArtifact))
}

func TestModelCheckShippedArtifact(t *testing.T) {
	out, err := run(t, "", "model", "check", filepath.Join("..", "models", "heart_knn.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
}

func TestConfigShow(t *testing.T) {
	cfg := setup(t, nil)
	t.Setenv("HEARTPREDICT_HTTP_PORT", "9191")

	out, err := run(t, "", "--config", cfg, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "port: 9191")
	assert.Contains(t, out, filepath.Join(filepath.Dir(cfg), "models", "heart.json"))
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "heartpredict dev\n", out)
}
