package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"heartpredict/monitoring"
	"heartpredict/patient"
)

func TestMetricsCountOutcomes(t *testing.T) {
	fake := &fakePredictor{result: diseaseResult()}
	app := NewApp(fake, nil)

	serve(app, postForm("/predict", patient.Default().Values()))
	serve(app, postForm("/predict", url.Values{"age": {"12"}}))
	fake.err = errors.New("model exploded")
	serve(app, postForm("/predict", patient.Default().Values()))

	w := serve(app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"model_loaded 1\n",
		`predictions_total{outcome="Heart Disease"} 1` + "\n",
		`prediction_failures_total{reason="inference"} 1` + "\n",
		`prediction_failures_total{reason="validation"} 1` + "\n",
		"prediction_duration_seconds_count 2\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestMetricsJSON(t *testing.T) {
	app := NewHaltedApp(errors.New("model file not found"), nil)

	w := serve(app, httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics must stay available while halted, got %d", w.Code)
	}

	var payload struct {
		Metrics []monitoring.Metric    `json:"metrics"`
		System  map[string]interface{} `json:"system"`
	}
	if err := json.NewDecoder(w.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Metrics) != 1 || payload.Metrics[0].Name != "model_loaded" || payload.Metrics[0].Value != 0 {
		t.Fatalf("unexpected metrics: %+v", payload.Metrics)
	}
	if _, ok := payload.System["uptime"]; !ok {
		t.Fatal("missing system stats")
	}
}
